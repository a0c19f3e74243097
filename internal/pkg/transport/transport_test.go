package transport

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew_TLSFloor(t *testing.T) {
	rt := New(Options{})
	tr, ok := rt.(*http.Transport)
	if !ok {
		t.Fatalf("New() = %T, want *http.Transport", rt)
	}
	if tr.TLSClientConfig.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS 1.2", tr.TLSClientConfig.MinVersion)
	}
}

func TestNew_TracingWraps(t *testing.T) {
	rt := New(Options{Tracing: true})
	if _, ok := rt.(*http.Transport); ok {
		t.Error("tracing transport should wrap the base transport")
	}
}

func TestNewClient_ReachesLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := NewClient(Options{}).Get(srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}

func TestNewClient_DenyPrivate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := NewClient(Options{DenyPrivate: true}).Get(srv.URL)
	if err == nil {
		t.Fatal("expected loopback connection to be denied")
	}
	if !strings.Contains(err.Error(), "access to private IP") {
		t.Errorf("error = %v, want private IP denial", err)
	}
}
