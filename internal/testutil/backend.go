package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kendovivi/timebank-client/internal/mainloop"
)

// Envelope encodes a backend business envelope, {meta, body}. A nil body
// omits the body member.
func Envelope(status int, messages []string, body any) []byte {
	if messages == nil {
		messages = []string{}
	}
	env := map[string]any{
		"meta": map[string]any{"status": status, "message": messages},
	}
	if body != nil {
		env["body"] = body
	}
	data, err := json.Marshal(env)
	if err != nil {
		panic(err)
	}
	return data
}

// WriteJSON writes raw JSON with a 200 status.
func WriteJSON(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Backend is a fake API server routed with chi that counts every request.
type Backend struct {
	*httptest.Server
	Router chi.Router
	hits   atomic.Int64
	log    requestLog
}

// NewBackend starts a fake API server. Register routes on b.Router.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{Router: chi.NewRouter()}
	b.Router.Use(recordRequests(t, &b.log))
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.hits.Add(1)
		b.Router.ServeHTTP(w, r)
	}))
	t.Cleanup(b.Server.Close)
	return b
}

// Hits returns how many requests reached the server.
func (b *Backend) Hits() int64 {
	return b.hits.Load()
}

// Requests returns every exchange seen so far, in arrival order.
func (b *Backend) Requests() []RecordedRequest {
	return b.log.snapshot()
}

// RunLoop starts a main loop on its own goroutine for the duration of the
// test.
func RunLoop(t *testing.T) *mainloop.Loop {
	t.Helper()

	loop := mainloop.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop
}

// Await receives one value from ch or fails the test after timeout.
func Await[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
	var zero T
	return zero
}
