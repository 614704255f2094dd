package stream_test

import (
	"errors"
	"io"
	"net/http"
	"sync"
)

// chunkedBody hands out one predefined chunk per Read and records how it was
// used.
type chunkedBody struct {
	mu     sync.Mutex
	chunks [][]byte
	err    error
	reads  int
	closes int
}

func newChunkedBody(chunks ...string) *chunkedBody {
	b := &chunkedBody{}
	for _, c := range chunks {
		b.chunks = append(b.chunks, []byte(c))
	}
	return b
}

func (b *chunkedBody) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reads++
	if b.closes > 0 {
		return 0, errors.New("read on closed body")
	}
	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}

	n := copy(p, b.chunks[0])
	if n < len(b.chunks[0]) {
		b.chunks[0] = b.chunks[0][n:]
	} else {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *chunkedBody) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
	return nil
}

func (b *chunkedBody) Reads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reads
}

func (b *chunkedBody) Closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

// blockingBody blocks every Read until it is closed.
type blockingBody struct {
	once   sync.Once
	closed chan struct{}
}

func newBlockingBody() *blockingBody {
	return &blockingBody{closed: make(chan struct{})}
}

func (b *blockingBody) Read([]byte) (int, error) {
	<-b.closed
	return 0, errors.New("read on closed body")
}

func (b *blockingBody) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}

func response(status int, body io.ReadCloser) *http.Response {
	return &http.Response{StatusCode: status, Body: body}
}

// splitAt cuts s into pieces at the given byte offsets.
func splitAt(s string, offsets ...int) []string {
	var parts []string
	prev := 0
	for _, off := range offsets {
		parts = append(parts, s[prev:off])
		prev = off
	}
	return append(parts, s[prev:])
}
