package network

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetch(t *testing.T) {
	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte("tile-bytes"))
	}))
	defer srv.Close()

	c := New(Options{Timeout: 5 * time.Second})
	data, err := c.Fetch(context.Background(), srv.URL+"/10/1/2.png")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != "tile-bytes" {
		t.Errorf("expected body 'tile-bytes', got %q", data)
	}
	if gotAgent != DefaultUserAgent {
		t.Errorf("expected user agent %q, got %q", DefaultUserAgent, gotAgent)
	}
}

func TestFetchStatusErrors(t *testing.T) {
	tests := []struct {
		status      int
		rateLimited bool
	}{
		{http.StatusNotFound, false},
		{http.StatusInternalServerError, false},
		{http.StatusTooManyRequests, true},
		{509, true},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		c := New(Options{UserAgent: "test"})
		_, err := c.Fetch(context.Background(), srv.URL)
		srv.Close()

		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("status %d: expected *StatusError, got %v", tt.status, err)
		}
		if statusErr.StatusCode != tt.status {
			t.Errorf("expected status %d, got %d", tt.status, statusErr.StatusCode)
		}
		if errors.Is(err, ErrRateLimited) != tt.rateLimited {
			t.Errorf("status %d: rate limited = %v, want %v", tt.status, !tt.rateLimited, tt.rateLimited)
		}
	}
}

func TestFetchBodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte{1}, 64))
	}))
	defer srv.Close()

	c := New(Options{MaxBytes: 32})
	_, err := c.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("expected ErrBodyTooLarge, got %v", err)
	}

	c = New(Options{MaxBytes: 64})
	if _, err := c.Fetch(context.Background(), srv.URL); err != nil {
		t.Errorf("body at the limit should pass, got %v", err)
	}
}

func TestFetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).Fetch(ctx, srv.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
