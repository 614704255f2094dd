package render_test

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/markis/studio/internal/render"
	"github.com/markis/studio/internal/session"
	"github.com/markis/studio/internal/stream"
)

func feed(chunks ...stream.Chunk) <-chan stream.Chunk {
	ch := make(chan stream.Chunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

func event(ev stream.Event) stream.Chunk {
	return stream.Chunk{Event: ev}
}

var _ = Describe("TerminalRenderer", func() {
	var out *bytes.Buffer

	BeforeEach(func() {
		out = &bytes.Buffer{}
	})

	It("prints streamed text and the summary in plain mode", func() {
		r := render.NewTerminalRenderer(out, true)
		state, err := r.Render(feed(
			event(stream.Event{Type: stream.EventChunk, Text: "Thinking about "}),
			event(stream.Event{Type: stream.EventChunk, Text: "cats\n\n"}),
			event(stream.Event{
				Type:           stream.EventComplete,
				Success:        true,
				GeneratedTitle: "Cats",
				BasePrompt:     "a cat",
				Variations: []stream.Variation{
					{"title": "Dusk", "prompt": "a cat at dusk"},
					{"prompt": "a cat at dawn"},
				},
			}),
		))

		Expect(err).NotTo(HaveOccurred())
		Expect(state.Title).To(Equal("Cats"))
		Expect(out.String()).To(ContainSubstring("Thinking about cats"))
		Expect(out.String()).To(ContainSubstring("# Cats"))
		Expect(out.String()).To(ContainSubstring("1. **Dusk**: a cat at dusk"))
		Expect(out.String()).To(ContainSubstring("2. **Variation 2**: a cat at dawn"))
	})

	It("renders markdown through glamour", func() {
		r := render.NewTerminalRenderer(out, false)
		_, err := r.Render(feed(
			event(stream.Event{Type: stream.EventComplete, Success: true, GeneratedTitle: "Rendered"}),
		))
		Expect(err).NotTo(HaveOccurred())
		Expect(out.String()).To(ContainSubstring("Rendered"))
	})

	It("returns error events as errors", func() {
		r := render.NewTerminalRenderer(out, true)
		state, err := r.Render(feed(event(stream.Event{Type: stream.EventError, Error: "HTTP 500"})))

		Expect(err).To(MatchError("generation failed: HTTP 500"))
		Expect(state.Err).To(Equal("HTTP 500"))
	})

	It("returns transport errors", func() {
		boom := errors.New("connection reset")
		r := render.NewTerminalRenderer(out, true)
		state, err := r.Render(feed(
			event(stream.Event{Type: stream.EventChunk, Text: "partial"}),
			stream.Chunk{Error: boom},
		))

		Expect(err).To(MatchError(boom))
		Expect(state.Err).To(Equal("connection reset"))
	})

	It("reports a stream that closes before completing", func() {
		r := render.NewTerminalRenderer(out, true)
		state, err := r.Render(feed(
			event(stream.Event{Type: stream.EventChunk, Text: "Hel"}),
			event(stream.Event{Type: stream.EventChunk, Text: "lo"}),
		))

		Expect(err).To(MatchError(render.ErrIncomplete))
		Expect(out.String()).To(ContainSubstring("Hello"))
		Expect(state.Done()).To(BeTrue())
		Expect(state.Err).To(Equal("stream ended before completion"))
	})

	It("reports an empty stream", func() {
		r := render.NewTerminalRenderer(out, true)
		_, err := r.Render(feed())
		Expect(err).To(MatchError(render.ErrIncomplete))
	})

	It("flags unsuccessful completions", func() {
		r := render.NewTerminalRenderer(out, true)
		_, err := r.Render(feed(event(stream.Event{Type: stream.EventComplete})))
		Expect(err).To(MatchError(render.ErrUnsuccessful))
	})
})

var _ = Describe("Summary", func() {
	It("lists annotation suggestions", func() {
		s := &session.State{
			Suggestions: []stream.AnnotationSuggestion{
				{"label": "mood", "text": "calm"},
				{"text": "add rain"},
			},
		}
		md := render.Summary(s)
		Expect(md).To(ContainSubstring("# Variations"))
		Expect(md).To(ContainSubstring("- *mood*: calm"))
		Expect(md).To(ContainSubstring("- add rain"))
	})
})
