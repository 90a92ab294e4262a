package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %q", ct)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["timestamp"] != "2024-03-05T00:00:00.000Z" {
			t.Errorf("unexpected body %v", body)
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", `attachment; filename="logs.zip"`)
		w.Write([]byte("PK\x03\x04"))
	}))
	defer server.Close()

	client := NewClient(DefaultOptions())
	resp, err := client.PostJSON(context.Background(), server.URL, map[string]string{
		"timestamp": "2024-03-05T00:00:00.000Z",
	})
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	defer resp.Body.Close()

	if resp.ContentType != "application/zip" {
		t.Errorf("expected content type application/zip, got %q", resp.ContentType)
	}
	if resp.ContentDisposition != `attachment; filename="logs.zip"` {
		t.Errorf("unexpected content disposition %q", resp.ContentDisposition)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "PK\x03\x04" {
		t.Errorf("unexpected body %q", data)
	}
}

func TestPostJSONStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("overloaded"))
	}))
	defer server.Close()

	client := NewClient(DefaultOptions())
	_, err := client.PostJSON(context.Background(), server.URL, struct{}{})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != http.StatusServiceUnavailable {
		t.Errorf("expected code 503, got %d", se.Code)
	}
	if !errors.Is(err, ErrServerError) {
		t.Errorf("expected ErrServerError, got %v", err)
	}
	if msg := err.Error(); !strings.Contains(msg, "503") || !strings.Contains(msg, "overloaded") {
		t.Errorf("expected message with status and body, got %q", msg)
	}
}

func TestPostJSONSnippetTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(strings.Repeat("x", 500)))
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.SnippetLength = 10
	client := NewClient(opts)
	_, err := client.PostJSON(context.Background(), server.URL, struct{}{})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Snippet != strings.Repeat("x", 10) {
		t.Errorf("expected 10 byte snippet, got %q", se.Snippet)
	}
	if !errors.Is(err, ErrBadRequest) {
		t.Errorf("expected ErrBadRequest, got %v", err)
	}
}

func TestPostJSONNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(DefaultOptions())
	_, err := client.PostJSON(context.Background(), server.URL, struct{}{})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err.Error() != "HTTP 404 Not Found" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestPostJSONNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(DefaultOptions())
	_, err := client.PostJSON(context.Background(), url, struct{}{})
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}

func TestPostJSONUnencodableBody(t *testing.T) {
	client := NewClient(DefaultOptions())
	_, err := client.PostJSON(context.Background(), "http://127.0.0.1:0", make(chan int))
	if err == nil || !strings.Contains(err.Error(), "encode body") {
		t.Errorf("expected encode error, got %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := NewClient(DefaultOptions())
	_, err := client.PostJSON(ctx, server.URL, struct{}{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestIsArchiveType(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"application/zip", true},
		{"application/x-zip-compressed", true},
		{"application/octet-stream", true},
		{"Application/ZIP; charset=binary", true},
		{"text/plain; charset=utf-8", false},
		{"application/json", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsArchiveType(tt.input); got != tt.expected {
			t.Errorf("IsArchiveType(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
