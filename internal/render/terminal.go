package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/cli/go-gh/v2/pkg/markdown"

	"github.com/markis/studio/internal/session"
	"github.com/markis/studio/internal/stream"
)

var (
	// ErrUnsuccessful is returned when the backend completes without success.
	ErrUnsuccessful = errors.New("generation finished without success")
	// ErrIncomplete is returned when the stream closes before a result arrives.
	ErrIncomplete = errors.New("stream ended before completion")
)

type TerminalRenderer struct {
	out       io.Writer
	markdown  *glamour.TermRenderer
	plainText bool
	buffer    strings.Builder
}

func NewTerminalRenderer(out io.Writer, usePlainText bool) *TerminalRenderer {
	var md *glamour.TermRenderer
	if !usePlainText {
		md, _ = glamour.NewTermRenderer(
			markdown.WithWrap(120),
			glamour.WithAutoStyle(),
		)
	}

	return &TerminalRenderer{
		out:       out,
		markdown:  md,
		plainText: usePlainText || md == nil,
	}
}

// Render prints streamed text as it arrives and the final result once the
// stream completes. It returns the folded state together with the first error
// reported by the stream.
func (t *TerminalRenderer) Render(chunks <-chan stream.Chunk) (*session.State, error) {
	state := &session.State{}
	state.Start()

	for chunk := range chunks {
		if chunk.Error != nil {
			state.Fail(chunk.Error)
			return state, fmt.Errorf("stream error: %w", chunk.Error)
		}

		state.Apply(chunk.Event)

		switch chunk.Event.Type {
		case stream.EventChunk:
			if err := t.write(chunk.Event.Text); err != nil {
				return state, err
			}
		case stream.EventError:
			return state, fmt.Errorf("generation failed: %s", chunk.Event.Error)
		case stream.EventComplete:
			if err := t.flush(); err != nil {
				return state, err
			}
			if !state.Success {
				return state, ErrUnsuccessful
			}
			if err := t.renderContent(Summary(state)); err != nil {
				return state, err
			}
		}
	}

	if err := t.flush(); err != nil {
		return state, err
	}
	fmt.Fprintln(t.out)

	if !state.Done() {
		state.Fail(ErrIncomplete)
		return state, ErrIncomplete
	}
	return state, nil
}

// write buffers streamed text and prints it in markdown-sized sections.
func (t *TerminalRenderer) write(text string) error {
	t.buffer.WriteString(text)
	content := t.buffer.String()

	if idx := findMarkdownBreakPoint(content); idx > 0 {
		if err := t.renderContent(content[:idx]); err != nil {
			return err
		}
		// Reset buffer with remaining content
		remaining := content[idx:]
		t.buffer.Reset()
		t.buffer.WriteString(remaining)
	}
	return nil
}

func (t *TerminalRenderer) flush() error {
	remaining := t.buffer.String()
	t.buffer.Reset()
	if strings.TrimSpace(remaining) == "" {
		return nil
	}
	return t.renderContent(remaining)
}

func (t *TerminalRenderer) renderContent(content string) error {
	if t.plainText {
		_, err := io.WriteString(t.out, content)
		return err
	}

	content = strings.TrimSpace(content)
	rendered, err := t.markdown.Render(content)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}

	// Headings get a blank line above them so sections stay apart.
	var lead string
	if strings.HasPrefix(content, "#") {
		lead = "\n"
	}
	_, err = fmt.Fprintf(t.out, "%s%s\n", lead, strings.TrimSpace(rendered))
	return err
}

// findMarkdownBreakPoint returns the offset just past the last blank line, or
// -1 when the content has none yet.
func findMarkdownBreakPoint(content string) int {
	const marker = "\n\n"
	if idx := strings.LastIndex(content, marker); idx >= 0 {
		return idx + len(marker)
	}
	return -1
}
