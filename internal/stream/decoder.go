// Package stream decodes the Server-Sent-Events responses produced by the
// studio generation endpoint into typed events.
//
// Only single-line "data: " frames carrying one JSON object are understood.
// Comments, blank keep-alive lines and other SSE fields are skipped.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/markis/studio/internal/logger"
)

const (
	dataPrefix       = "data: "
	defaultChunkSize = 4096

	msgNoResponseBody = "No response body"
)

type state int

const (
	stateAwaitingFirstChunk state = iota
	stateReading
	stateDone
)

// Option configures a Decoder created with NewDecoder.
type Option func(*Decoder)

// WithLogger sets the logger used for diagnostics about dropped frames.
func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithChunkSize sets how many bytes are requested from the body per read.
func WithChunkSize(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// Decoder turns one HTTP response body into a sequence of events. It is not
// safe for concurrent use, with the exception of Close.
type Decoder struct {
	resp      *http.Response
	src       io.Reader
	buf       []byte
	chunkSize int
	logger    *slog.Logger

	// pending holds at most one partial line; lines holds complete lines
	// that have not been handed out yet.
	pending strings.Builder
	lines   []string
	eof     bool
	state   state

	closeOnce sync.Once
	closeErr  error
}

// NewDecoder starts a decode session over resp. Nothing is read until the
// first call to Next.
func NewDecoder(resp *http.Response, opts ...Option) *Decoder {
	d := &Decoder{
		resp:      resp,
		chunkSize: defaultChunkSize,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Next returns the next event in stream order. It returns io.EOF once the
// stream is exhausted. A failed status or missing body is reported as a
// single error event rather than an error. Read failures are returned as
// errors and end the session.
//
// The response body is closed when Next returns io.EOF, a precondition event
// or an error.
func (d *Decoder) Next() (*Event, error) {
	switch d.state {
	case stateDone:
		return nil, io.EOF
	case stateAwaitingFirstChunk:
		if ev := d.checkResponse(); ev != nil {
			d.finish()
			return ev, nil
		}
		d.src = transform.NewReader(d.resp.Body, unicode.UTF8BOM.NewDecoder())
		d.buf = make([]byte, d.chunkSize)
		d.state = stateReading
	}

	for {
		for len(d.lines) > 0 {
			line := d.lines[0]
			d.lines = d.lines[1:]
			if ev, ok := d.parseLine(line); ok {
				return ev, nil
			}
		}

		if d.eof {
			d.finish()
			return nil, io.EOF
		}

		if err := d.readChunk(); err != nil {
			d.finish()
			return nil, fmt.Errorf("reading event stream: %w", err)
		}
	}
}

// Collect drains the remaining events.
func (d *Decoder) Collect() ([]Event, error) {
	var events []Event
	for {
		ev, err := d.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, *ev)
	}
}

// Close releases the response body. It may be called at any time, from any
// goroutine, and any number of times; the body is closed once.
func (d *Decoder) Close() error {
	d.closeOnce.Do(func() {
		if d.resp != nil && d.resp.Body != nil {
			d.closeErr = d.resp.Body.Close()
		}
	})
	return d.closeErr
}

func (d *Decoder) finish() {
	d.state = stateDone
	d.pending.Reset()
	d.lines = nil
	if err := d.Close(); err != nil {
		d.logger.Debug("closing event stream", "error", err)
	}
}

func (d *Decoder) checkResponse() *Event {
	if d.resp == nil {
		return errorEvent(msgNoResponseBody)
	}
	if d.resp.StatusCode < 200 || d.resp.StatusCode > 299 {
		return errorEvent("HTTP " + strconv.Itoa(d.resp.StatusCode))
	}
	if d.resp.Body == nil {
		return errorEvent(msgNoResponseBody)
	}
	return nil
}

// readChunk performs a single read and moves every complete line from the
// text buffer to the line queue.
func (d *Decoder) readChunk() error {
	n, err := d.src.Read(d.buf)
	chunk := string(d.buf[:n])
	for {
		i := strings.IndexByte(chunk, '\n')
		if i < 0 {
			d.pending.WriteString(chunk)
			break
		}
		d.pending.WriteString(chunk[:i])
		d.lines = append(d.lines, d.pending.String())
		d.pending.Reset()
		chunk = chunk[i+1:]
	}

	if errors.Is(err, io.EOF) {
		d.eof = true
		return nil
	}
	return err
}

func (d *Decoder) parseLine(line string) (*Event, bool) {
	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok {
		return nil, false
	}

	// Event decodes leniently, so only invalid JSON fails here.
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		d.logger.Debug("dropping malformed frame", "error", err, "size", len(payload))
		return nil, false
	}
	return &ev, true
}
