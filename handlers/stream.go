package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// streamCommand is a control message a client may send over a state stream.
// Which fields matter depends on Type.
type streamCommand struct {
	Type    string `json:"type"`
	Index   *int   `json:"index,omitempty"`
	Key     string `json:"key,omitempty"`
	ItemID  int64  `json:"itemId,omitempty"`
	Attempt uint64 `json:"attempt,omitempty"`
	Subject string `json:"subject,omitempty"`
}

type streamError struct {
	Error string `json:"error"`
}

// serveStateStream upgrades the request and pushes every state from states,
// passed through stamp when set, until the client goes away or the session
// closes the channel. Messages read from the client are passed to handle; a
// returned error is reported back on the socket without closing it.
func serveStateStream[T any](
	w http.ResponseWriter,
	r *http.Request,
	opts *websocket.AcceptOptions,
	states <-chan T,
	stamp func(T) T,
	stop func(),
	handle func(streamCommand) error,
) {
	defer stop()

	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		log.Printf("[stream] WARN: websocket accept failed: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Writes are serialised through this goroutine; command errors are
	// forwarded to it.
	replies := make(chan streamError, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case state, ok := <-states:
				if !ok {
					conn.Close(websocket.StatusNormalClosure, "session closed")
					return
				}
				if stamp != nil {
					state = stamp(state)
				}
				if err := wsjson.Write(ctx, conn, state); err != nil {
					return
				}
			case reply := <-replies:
				if err := wsjson.Write(ctx, conn, reply); err != nil {
					return
				}
			}
		}
	}()

	for {
		var cmd streamCommand
		if err := wsjson.Read(ctx, conn, &cmd); err != nil {
			break
		}
		if err := handle(cmd); err != nil {
			select {
			case replies <- streamError{Error: err.Error()}:
			case <-ctx.Done():
			}
		}
	}

	cancel()
	<-done
}
