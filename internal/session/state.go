// Package session folds generation events into the state shown to the user.
package session

import "github.com/markis/studio/internal/stream"

// State is the view of one generation request.
type State struct {
	Generating  bool
	Text        string
	Success     bool
	BasePrompt  string
	Title       string
	Variations  []stream.Variation
	Suggestions []stream.AnnotationSuggestion
	Err         string
}

// Start clears any previous result and marks a request as in flight.
func (s *State) Start() {
	*s = State{Generating: true}
}

// Apply folds a single event into the state.
func (s *State) Apply(ev stream.Event) {
	switch ev.Type {
	case stream.EventChunk:
		s.Text += ev.Text
	case stream.EventComplete:
		*s = State{
			Success:     ev.Success,
			BasePrompt:  ev.BasePrompt,
			Title:       ev.GeneratedTitle,
			Variations:  ev.Variations,
			Suggestions: ev.AnnotationSuggestions,
		}
	case stream.EventError:
		s.fail(ev.Error)
	}
}

// Fail records a transport error as the user-facing message.
func (s *State) Fail(err error) {
	if err != nil {
		s.fail(err.Error())
	}
}

func (s *State) fail(msg string) {
	s.Generating = false
	s.Err = msg
}

// Done reports whether the request has finished, successfully or not.
func (s *State) Done() bool {
	return !s.Generating
}
