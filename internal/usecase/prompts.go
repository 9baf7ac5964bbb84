package usecase

import (
	"fmt"
	"strings"

	"ShortsPipeline/internal/domain"
)

const (
	selectionTemperature = 0.5
	scriptTemperature    = 0.7

	selectionMaxTokens = 1500
	scriptMaxTokens    = 2000

	candidateSummaryRunes = 200
	noSummaryPlaceholder  = "요약 없음"
)

const selectionSystemPrompt = `당신은 IT/테크 유튜브 쇼츠 채널의 뉴스 큐레이터입니다.
60초 이내의 세로형 영상으로 만들었을 때 시청자의 관심을 가장 끌 수 있는 뉴스를 고릅니다.
화제성, 시각화 가능성, 한 문장으로 설명 가능한 핵심 포인트를 기준으로 판단하세요.
반드시 아래 JSON 형식으로만 답하세요:
{"selected":[{"index":0,"reason":"선정 이유","hook_idea":"첫 3초 훅 아이디어"}]}`

const scriptSystemPrompt = `당신은 유튜브 쇼츠 대본 작가입니다.
뉴스 하나를 45~60초 분량의 한국어 내레이션 대본으로 만듭니다.
구성: 강렬한 훅(3초) → 핵심 내용 → 짧은 마무리와 구독 유도.
반드시 아래 JSON 형식으로만 답하세요:
{"title":"영상 제목","script":{"hook":"훅","body":"본문","outro":"마무리"},"full_script":"전체 내레이션","keywords":["키워드"],"hashtags":["#해시태그"],"description":"영상 설명"}`

// selectionUserPrompt enumerates candidates by zero-based index.
func selectionUserPrompt(candidates []domain.NewsRecord, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "다음 뉴스 목록에서 쇼츠로 만들기 좋은 뉴스 %d개를 골라주세요.\n\n", count)
	for i, item := range candidates {
		fmt.Fprintf(&b, "[%d] 제목: %s\n", i, item.Title)
		fmt.Fprintf(&b, "    출처: %s\n", item.OriginLabel)
		if item.Summary != "" {
			fmt.Fprintf(&b, "    요약: %s\n", domain.TruncateRunes(item.Summary, candidateSummaryRunes))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "index는 위 목록의 번호(0부터 %d까지)를 사용하세요.", len(candidates)-1)
	return b.String()
}

func scriptUserPrompt(selection domain.CurationResult) string {
	news := selection.Record
	summary := news.Summary
	if strings.TrimSpace(summary) == "" {
		summary = noSummaryPlaceholder
	}

	var b strings.Builder
	b.WriteString("다음 뉴스로 쇼츠 대본을 작성해주세요.\n\n")
	fmt.Fprintf(&b, "제목: %s\n", news.Title)
	fmt.Fprintf(&b, "요약: %s\n", summary)
	fmt.Fprintf(&b, "링크: %s\n", news.URL)
	fmt.Fprintf(&b, "훅 아이디어: %s\n", selection.HookIdea)
	return b.String()
}
