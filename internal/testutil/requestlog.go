package testutil

import (
	"net/http"
	"sync"
	"testing"
	"time"
)

// RecordedRequest is one exchange seen by a Backend. Status and Duration
// stay zero until the handler has returned.
type RecordedRequest struct {
	RequestID string
	Method    string
	Path      string
	Status    int
	Duration  time.Duration
}

type requestLog struct {
	mu      sync.Mutex
	entries []*RecordedRequest
}

func (l *requestLog) start(r *http.Request) *RecordedRequest {
	rec := &RecordedRequest{
		RequestID: r.Header.Get("X-Request-ID"),
		Method:    r.Method,
		Path:      r.URL.Path,
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, rec)
	return rec
}

func (l *requestLog) finish(rec *RecordedRequest, status int, d time.Duration) RecordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec.Status = status
	rec.Duration = d
	return *rec
}

func (l *requestLog) snapshot() []RecordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]RecordedRequest, len(l.entries))
	for i, rec := range l.entries {
		out[i] = *rec
	}
	return out
}

// recordRequests appends each exchange to log on arrival and logs it to t
// on completion. The request id is the one the client sent in X-Request-ID.
func recordRequests(t *testing.T, log *requestLog) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := log.start(r)
			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			rec := log.finish(entry, wrapped.statusCode, time.Since(start))
			t.Logf("backend: %s %s -> %d request_id=%s duration=%s",
				rec.Method, rec.Path, rec.Status, rec.RequestID, rec.Duration)
		})
	}
}

// statusRecorder wraps http.ResponseWriter to capture status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
