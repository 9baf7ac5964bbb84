package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ShortsPipeline/internal/domain"
	"ShortsPipeline/internal/ports"
)

func TestSelectEmptyCandidatesMakesNoCall(t *testing.T) {
	t.Parallel()

	client := &mockCompletionClient{}
	selector := NewSelector(client, nil)

	for _, count := range []int{0, 1, 5} {
		got, err := selector.Select(context.Background(), nil, count)
		require.NoError(t, err)
		assert.Empty(t, got)
	}

	client.AssertNotCalled(t, "CompleteJSON", mock.Anything, mock.Anything, mock.Anything)
	client.AssertNumberOfCalls(t, "CompleteJSON", 0)
}

func TestSelectResolvesModelIndex(t *testing.T) {
	t.Parallel()

	client := &mockCompletionClient{}
	client.On("CompleteJSON", mock.Anything, mock.MatchedBy(func(req ports.CompletionRequest) bool {
		return req.Temperature == selectionTemperature &&
			strings.Contains(req.UserPrompt, "[0] 제목: A") &&
			strings.Contains(req.UserPrompt, "[1] 제목: B")
	}), mock.Anything).
		Run(decodeInto(`{"selected":[{"index":1,"reason":"r","hook_idea":"h"}]}`)).
		Return(nil).
		Once()

	candidates := []domain.NewsRecord{news("A", "u1"), news("B", "u2")}
	got, err := NewSelector(client, nil).Select(context.Background(), candidates, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Record.Title)
	assert.Equal(t, "u2", got[0].Record.URL)
	assert.Equal(t, "r", got[0].SelectionReason)
	assert.Equal(t, "h", got[0].HookIdea)
	client.AssertExpectations(t)
}

func TestSelectDropsInvalidEntries(t *testing.T) {
	t.Parallel()

	payload := `{"selected":[
		{"index":-1,"reason":"negative"},
		{"index":2,"reason":"too large"},
		{"index":"1","reason":"string"},
		{"index":1.5,"reason":"fraction"},
		{"reason":"missing"},
		{"index":null,"reason":"null"},
		"junk",
		{"index":1,"reason":"second"},
		{"index":0,"reason":"first"},
		{"index":1,"reason":"duplicate"}
	]}`
	client := &mockCompletionClient{}
	client.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).Run(decodeInto(payload)).Return(nil)

	candidates := []domain.NewsRecord{news("A", "u1"), news("B", "u2")}
	got, err := NewSelector(client, nil).Select(context.Background(), candidates, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Record.Title, "model order is preserved")
	assert.Equal(t, "second", got[0].SelectionReason)
	assert.Equal(t, "A", got[1].Record.Title)
	assert.Equal(t, "first", got[1].SelectionReason)
}

func TestSelectKeepsEntryWithNonStringRationale(t *testing.T) {
	t.Parallel()

	client := &mockCompletionClient{}
	client.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).
		Run(decodeInto(`{"selected":[{"index":1,"reason":5,"hook_idea":null}]}`)).Return(nil)

	candidates := []domain.NewsRecord{news("A", "u1"), news("B", "u2")}
	got, err := NewSelector(client, nil).Select(context.Background(), candidates, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Record.Title)
	assert.Equal(t, "5", got[0].SelectionReason)
	assert.Empty(t, got[0].HookIdea)
}

func TestSelectNeverResolvesOutOfRange(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(8)
		candidates := make([]domain.NewsRecord, n)
		for i := range candidates {
			candidates[i] = news(fmt.Sprintf("T%d", i), fmt.Sprintf("u%d", i))
		}

		entries := make([]string, 0, 12)
		for i := 0; i < 12; i++ {
			entries = append(entries, fmt.Sprintf(`{"index":%d,"reason":"r","hook_idea":"h"}`, rng.Intn(n+10)-5))
		}
		payload := `{"selected":[` + strings.Join(entries, ",") + `]}`

		client := &mockCompletionClient{}
		client.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).Run(decodeInto(payload)).Return(nil)

		got, err := NewSelector(client, nil).Select(context.Background(), candidates, 12)
		require.NoError(t, err)
		for _, res := range got {
			idx := -1
			for i, c := range candidates {
				if c.URL == res.Record.URL {
					idx = i
				}
			}
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, n)
		}
	}
}

func TestSelectTruncatesToCount(t *testing.T) {
	t.Parallel()

	client := &mockCompletionClient{}
	client.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).
		Run(decodeInto(`{"selected":[{"index":2},{"index":0},{"index":1}]}`)).
		Return(nil)

	candidates := []domain.NewsRecord{news("A", "u1"), news("B", "u2"), news("C", "u3")}
	got, err := NewSelector(client, nil).Select(context.Background(), candidates, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "C", got[0].Record.Title)
	assert.Equal(t, "A", got[1].Record.Title)
}

func TestSelectPropagatesClientFailure(t *testing.T) {
	t.Parallel()

	malformed := &domain.MalformedOutputError{Raw: "not json", Err: errors.New("invalid character")}
	client := &mockCompletionClient{}
	client.On("CompleteJSON", mock.Anything, mock.Anything, mock.Anything).Return(malformed)

	got, err := NewSelector(client, nil).Select(context.Background(), []domain.NewsRecord{news("A", "u1")}, 1)
	assert.Nil(t, got)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedModelOutput)

	var typed *domain.MalformedOutputError
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, "not json", typed.Raw)
}

func TestSelectRejectsNonPositiveCount(t *testing.T) {
	t.Parallel()

	client := &mockCompletionClient{}
	_, err := NewSelector(client, nil).Select(context.Background(), []domain.NewsRecord{news("A", "u1")}, 0)
	require.Error(t, err)
	client.AssertNotCalled(t, "CompleteJSON", mock.Anything, mock.Anything, mock.Anything)
}

func TestSelectionPromptBoundsSummary(t *testing.T) {
	t.Parallel()

	long := news("Long", "u1")
	long.Summary = strings.Repeat("가", 300)
	prompt := selectionUserPrompt([]domain.NewsRecord{long, news("Short", "u2")}, 2)

	assert.Contains(t, prompt, "[0] 제목: Long")
	assert.Contains(t, prompt, "출처: Press")
	assert.Contains(t, prompt, "요약: "+strings.Repeat("가", candidateSummaryRunes)+"\n")
	assert.NotContains(t, prompt, strings.Repeat("가", candidateSummaryRunes+1))
	assert.Contains(t, prompt, "[1] 제목: Short")
	assert.Contains(t, prompt, "뉴스 2개")
}
