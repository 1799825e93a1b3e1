package brevo

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendWelcomeEmail(t *testing.T) {
	var gotBody map[string]any
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"messageId": "msg-1"})
	}))
	defer server.Close()

	c := NewClient("test-api-key", 2, discardLogger())
	c.SetTestURL(server.URL)

	if err := c.SendWelcomeEmail(context.Background(), "jane@example.com", "Jane"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotKey != "test-api-key" {
		t.Errorf("expected api-key header, got %q", gotKey)
	}
	if tid, _ := gotBody["templateId"].(float64); tid != 2 {
		t.Errorf("expected templateId 2, got %v", gotBody["templateId"])
	}
	to, _ := gotBody["to"].([]any)
	if len(to) != 1 {
		t.Fatalf("expected 1 recipient, got %v", gotBody["to"])
	}
	recipient, _ := to[0].(map[string]any)
	if recipient["email"] != "jane@example.com" || recipient["name"] != "Jane" {
		t.Errorf("unexpected recipient: %v", recipient)
	}
	params, _ := gotBody["params"].(map[string]any)
	if params["firstName"] != "Jane" {
		t.Errorf("expected firstName param, got %v", params)
	}
}

func TestSendWelcomeEmail_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient("bad-key", 2, discardLogger())
	c.SetTestURL(server.URL)

	if err := c.SendWelcomeEmail(context.Background(), "jane@example.com", "Jane"); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}
