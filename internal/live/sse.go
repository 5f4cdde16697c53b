package live

import (
	"fmt"
	"io"
	"net/http"
)

// FlushWriter is the response side of an SSE connection: written frames
// must reach the client immediately, not sit in a buffer.
type FlushWriter interface {
	io.Writer
	http.Flusher
}

// SetStreamHeaders prepares a response for server-sent events.
func SetStreamHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// WriteFrame writes one data frame carrying payload verbatim and flushes.
func WriteFrame(w FlushWriter, payload []byte) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	w.Flush()
	return nil
}

// WriteComment writes a comment frame (keepalive probe; clients ignore it)
// and flushes.
func WriteComment(w FlushWriter, text string) error {
	if _, err := fmt.Fprintf(w, ": %s\n\n", text); err != nil {
		return err
	}
	w.Flush()
	return nil
}
