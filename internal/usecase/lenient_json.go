package usecase

import (
	"bytes"
	"encoding/json"
)

// lenientText decodes a string, number or bool as text. Null, objects and arrays become "".
type lenientText string

func (t *lenientText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = ""
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = lenientText(s)
	case 't', 'f':
		var b bool
		if json.Unmarshal(data, &b) == nil {
			*t = lenientText(data)
		}
	case 'n', '{', '[':
	default:
		var num json.Number
		if json.Unmarshal(data, &num) == nil {
			*t = lenientText(num.String())
		}
	}
	return nil
}

// stringList accepts an array (non-string members are skipped), a bare string, or null.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*l = stringList{single}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(stringList, 0, len(items))
	for _, item := range items {
		if len(item) == 0 || item[0] != '"' {
			continue
		}
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}
