package stream

import (
	"context"
	"errors"
	"io"
)

// Chunk is a single item published by a Parser: either an event or the error
// that ended the stream.
type Chunk struct {
	Event Event
	Error error
}

// Parser drives a Decoder on behalf of a consumer reading from a channel.
type Parser struct {
	ctx    context.Context
	chunks chan Chunk
}

func NewParser(ctx context.Context) *Parser {
	return &Parser{
		ctx:    ctx,
		chunks: make(chan Chunk),
	}
}

func (p *Parser) Chunks() <-chan Chunk {
	return p.chunks
}

// Process publishes every event from dec in order and closes the channel when
// the stream ends. Cancelling the parser's context releases the decoder, even
// while a read is blocked, and Process returns without waiting for a reader.
func (p *Parser) Process(dec *Decoder) {
	defer close(p.chunks)
	defer dec.Close()

	stop := context.AfterFunc(p.ctx, func() { _ = dec.Close() })
	defer stop()

	done := p.ctx.Done()

	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return
		}

		var chunk Chunk
		if err != nil {
			if ctxErr := p.ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			chunk.Error = err
		} else {
			chunk.Event = *ev
		}

		select {
		case <-done:
			select {
			case p.chunks <- Chunk{Error: p.ctx.Err()}:
			default:
			}
			return
		case p.chunks <- chunk:
		}

		if err != nil {
			return
		}
	}
}
