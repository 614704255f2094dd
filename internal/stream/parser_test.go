package stream_test

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/markis/studio/internal/stream"
)

var _ = Describe("Parser", func() {
	It("publishes events in order and closes the channel", func() {
		body := newChunkedBody(sampleStream)
		p := stream.NewParser(context.Background())
		go p.Process(stream.NewDecoder(response(http.StatusOK, body)))

		var types []stream.EventType
		for chunk := range p.Chunks() {
			Expect(chunk.Error).NotTo(HaveOccurred())
			types = append(types, chunk.Event.Type)
		}

		Expect(types).To(Equal([]stream.EventType{stream.EventChunk, stream.EventChunk, stream.EventComplete}))
		Expect(body.Closes()).To(Equal(1))
	})

	It("publishes precondition failures as events", func() {
		p := stream.NewParser(context.Background())
		go p.Process(stream.NewDecoder(response(http.StatusBadGateway, newChunkedBody())))

		var chunks []stream.Chunk
		for chunk := range p.Chunks() {
			chunks = append(chunks, chunk)
		}
		Expect(chunks).To(Equal([]stream.Chunk{{Event: stream.Event{Type: stream.EventError, Error: "HTTP 502"}}}))
	})

	It("releases a blocked stream when the context is cancelled", func() {
		body := newBlockingBody()
		ctx, cancel := context.WithCancel(context.Background())
		p := stream.NewParser(ctx)

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			p.Process(stream.NewDecoder(response(http.StatusOK, body)))
		}()

		cancel()
		Eventually(finished).Should(BeClosed())
		Eventually(body.closed).Should(BeClosed())
	})
})
