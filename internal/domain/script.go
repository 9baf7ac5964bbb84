package domain

import (
	"encoding/json"
	"unicode/utf8"
)

// NarrationCharsPerMinute is the speaking rate used to estimate narration length.
const NarrationCharsPerMinute = 350

// ScriptRecord is a structured narration generated for one selection.
type ScriptRecord struct {
	Title       string   `json:"title"`
	Hook        string   `json:"hook"`
	Body        string   `json:"body"`
	Outro       string   `json:"outro"`
	FullScript  string   `json:"full_script"`
	Keywords    []string `json:"keywords"`
	Hashtags    []string `json:"hashtags"`
	Description string   `json:"description"`
	SourceURL   string   `json:"source_url,omitempty"`
}

// CharacterCount is the number of code points in FullScript.
func (s ScriptRecord) CharacterCount() int {
	return utf8.RuneCountInString(s.FullScript)
}

// EstimatedDurationSeconds is the spoken length of FullScript.
func (s ScriptRecord) EstimatedDurationSeconds() float64 {
	return float64(s.CharacterCount()) / NarrationCharsPerMinute * 60
}

// MarshalJSON adds the derived metrics next to the stored fields.
func (s ScriptRecord) MarshalJSON() ([]byte, error) {
	type plain ScriptRecord
	return json.Marshal(struct {
		plain
		CharacterCount    int     `json:"character_count"`
		EstimatedDuration float64 `json:"estimated_duration"`
	}{
		plain:             plain(s),
		CharacterCount:    s.CharacterCount(),
		EstimatedDuration: s.EstimatedDurationSeconds(),
	})
}
