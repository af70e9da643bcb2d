package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCompleteSendsChatRequest(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, APIKey: "secret", Model: "google/gemini-2.5-flash", Timeout: time.Second})
	reply, err := c.Complete(context.Background(), "be brief", "analyze this")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "hello" {
		t.Fatalf("reply = %q", reply)
	}
	if got.Model != "google/gemini-2.5-flash" || len(got.Messages) != 2 {
		t.Fatalf("request = %+v", got)
	}
	if got.Messages[0] != (message{Role: "system", Content: "be brief"}) || got.Messages[1] != (message{Role: "user", Content: "analyze this"}) {
		t.Fatalf("messages = %+v", got.Messages)
	}
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"gateway error status", http.StatusTooManyRequests, `{"error":"rate limited"}`, ErrUpstreamStatus},
		{"server error", http.StatusBadGateway, "bad gateway", ErrUpstreamStatus},
		{"no choices", http.StatusOK, `{"choices":[]}`, ErrEmptyReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(Config{URL: srv.URL, APIKey: "k"}).Complete(context.Background(), "s", "p")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == ErrUpstreamStatus && !strings.Contains(err.Error(), tt.body) {
				t.Fatalf("error should carry the body snippet: %v", err)
			}
		})
	}
}

func TestCompleteMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	if _, err := NewClient(Config{URL: srv.URL, APIKey: "k"}).Complete(context.Background(), "s", "p"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCompleteWithoutKey(t *testing.T) {
	_, err := NewClient(Config{URL: "http://127.0.0.1:1", APIKey: "  "}).Complete(context.Background(), "s", "p")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestCompleteReplyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"`))
		w.Write([]byte(strings.Repeat("x", maxBodySize)))
		w.Write([]byte(`"}}]}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{URL: srv.URL, APIKey: "k"}).Complete(context.Background(), "s", "p")
	if !errors.Is(err, ErrReplyTooLarge) {
		t.Fatalf("expected ErrReplyTooLarge, got %v", err)
	}
}
