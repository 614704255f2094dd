package stream

import (
	"bytes"
	"encoding/json"
)

// EventType discriminates the payloads carried by an Event.
type EventType string

const (
	EventChunk    EventType = "chunk"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is a single decoded frame from a generation stream.
//
// Decoding is lenient: any valid JSON produces an Event. Fields of an
// unexpected type are coerced where possible and left empty otherwise, and a
// payload that is not an object yields an Event with no type.
type Event struct {
	Type                  EventType              `json:"type"`
	Text                  string                 `json:"text,omitempty"`
	Success               bool                   `json:"success,omitempty"`
	Variations            []Variation            `json:"variations,omitempty"`
	BasePrompt            string                 `json:"base_prompt,omitempty"`
	GeneratedTitle        string                 `json:"generated_title,omitempty"`
	AnnotationSuggestions []AnnotationSuggestion `json:"annotation_suggestions,omitempty"`
	Error                 string                 `json:"error,omitempty"`
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		*e = Event{}
		return nil
	}

	*e = Event{
		Type:           EventType(looseString(fields["type"])),
		Text:           looseString(fields["text"]),
		BasePrompt:     looseString(fields["base_prompt"]),
		GeneratedTitle: looseString(fields["generated_title"]),
		Error:          looseString(fields["error"]),
	}
	_ = json.Unmarshal(fields["success"], &e.Success)

	for _, raw := range looseArray(fields["variations"]) {
		e.Variations = append(e.Variations, Variation(wrapValue(raw, "prompt")))
	}
	for _, raw := range looseArray(fields["annotation_suggestions"]) {
		e.AnnotationSuggestions = append(e.AnnotationSuggestions, AnnotationSuggestion(wrapValue(raw, "text")))
	}
	return nil
}

// Variation and AnnotationSuggestion are passed through as the backend sends
// them; only a handful of keys are interpreted by the client. Elements that
// are not objects are stored under a single key: "prompt" for variations and
// "text" for suggestions.
type (
	Variation            map[string]any
	AnnotationSuggestion map[string]any
)

func (v *Variation) UnmarshalJSON(data []byte) error {
	*v = wrapValue(data, "prompt")
	return nil
}

func (a *AnnotationSuggestion) UnmarshalJSON(data []byte) error {
	*a = wrapValue(data, "text")
	return nil
}

func (v Variation) Title() string       { return stringField(v, "title") }
func (v Variation) Prompt() string      { return stringField(v, "prompt") }
func (v Variation) Description() string { return stringField(v, "description") }

func (a AnnotationSuggestion) Text() string  { return stringField(a, "text") }
func (a AnnotationSuggestion) Label() string { return stringField(a, "label") }

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// looseString returns a JSON string's value, or the literal JSON text for
// numbers, booleans, arrays and objects. Missing and null values are empty.
func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// looseArray returns the elements of a JSON array, or nil for anything else.
func looseArray(raw json.RawMessage) []json.RawMessage {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	return items
}

func wrapValue(raw json.RawMessage, key string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil && obj != nil {
		return obj
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return map[string]any{}
	}
	return map[string]any{key: v}
}

// errorEvent builds the synthetic event reported for failed preconditions.
func errorEvent(msg string) *Event {
	return &Event{Type: EventError, Error: msg}
}
