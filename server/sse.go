package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var errStreaming = errors.New("streaming not supported")

type sseEvent struct {
	Type string
	Data string
}

// setSSEHeaders sets the required headers for Server-Sent Events
func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// writeSSEEvents writes events until the channel closes or the client goes
// away. It is the only writer of w.
func writeSSEEvents(ctx context.Context, w http.ResponseWriter, events <-chan sseEvent) {
	flusher, _ := w.(http.Flusher)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-ctx.Done():
			return
		}
	}
}
