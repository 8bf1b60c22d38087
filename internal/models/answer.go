package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// AnswerValue holds a text, numeric or multi-choice answer. Exactly one form is set.
type AnswerValue struct {
	Text    *string
	Number  *float64
	Choices []string
}

// TextValue builds a text answer.
func TextValue(s string) AnswerValue { return AnswerValue{Text: &s} }

// NumberValue builds a numeric answer (e.g. a rating).
func NumberValue(n float64) AnswerValue { return AnswerValue{Number: &n} }

// ChoicesValue builds a checkbox answer.
func ChoicesValue(choices ...string) AnswerValue {
	return AnswerValue{Choices: append([]string{}, choices...)}
}

// IsZero reports whether no value is set.
func (v AnswerValue) IsZero() bool {
	return v.Text == nil && v.Number == nil && v.Choices == nil
}

// String renders the value for exports.
func (v AnswerValue) String() string {
	switch {
	case v.Text != nil:
		return *v.Text
	case v.Number != nil:
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	case v.Choices != nil:
		return strings.Join(v.Choices, "; ")
	}
	return ""
}

// MarshalJSON encodes the value as a JSON string, number or array.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.Text != nil:
		return json.Marshal(*v.Text)
	case v.Number != nil:
		return json.Marshal(*v.Number)
	case v.Choices != nil:
		return json.Marshal(v.Choices)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts a JSON string, number, array of strings or null.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	*v = AnswerValue{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v.Text = &s
	case '[':
		var choices []string
		if err := json.Unmarshal(data, &choices); err != nil {
			return err
		}
		if choices == nil {
			choices = []string{}
		}
		v.Choices = choices
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return errors.New("answer value must be a string, number or list of strings")
		}
		v.Number = &n
	}
	return nil
}

func (v AnswerValue) clone() AnswerValue {
	out := AnswerValue{}
	if v.Text != nil {
		s := *v.Text
		out.Text = &s
	}
	if v.Number != nil {
		n := *v.Number
		out.Number = &n
	}
	if v.Choices != nil {
		out.Choices = append([]string{}, v.Choices...)
	}
	return out
}
