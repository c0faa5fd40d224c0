package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pfrederiksen/game-watcher/internal/logger"
)

func TestGet_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != UserAgent {
			t.Errorf("User-Agent = %q, want %q", got, UserAgent)
		}
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	c := New(logger.Nop())
	body, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() returned error: %v", err)
	}
	if string(body) != "payload" {
		t.Errorf("Get() body = %q, want %q", body, "payload")
	}
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	c := New(logger.Nop())
	body, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() returned error after retries: %v", err)
	}
	if string(body) != "recovered" {
		t.Errorf("Get() body = %q, want %q", body, "recovered")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server saw %d requests, want 3", got)
	}
}

func TestGet_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(logger.Nop())
	_, err := c.Get(context.Background(), srv.URL)

	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("Get() error = %v, want *StatusError", err)
	}
	if serr.Code != http.StatusNotFound {
		t.Errorf("StatusError.Code = %d, want %d", serr.Code, http.StatusNotFound)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server saw %d requests, want 1 (no retry on 4xx)", got)
	}
}

func TestGet_SurfacesRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(logger.Nop(), WithTimeout(2*time.Second))
	_, err := c.Get(context.Background(), srv.URL)

	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("Get() error = %v, want *StatusError", err)
	}
	if serr.Code != http.StatusTooManyRequests {
		t.Errorf("StatusError.Code = %d, want 429", serr.Code)
	}
}

func TestGet_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := New(logger.Nop())
	if _, err := c.Get(ctx, srv.URL); err == nil {
		t.Fatal("Get() succeeded, want context deadline error")
	}
}
