package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/agent"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/azure"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/extractor"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/giphy"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/recommend"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/session"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeLLM serves queued completion contents in order, one per model call.
type fakeLLM struct {
	mu       sync.Mutex
	contents []string
}

func (f *fakeLLM) next() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.contents) == 0 {
		return "{}"
	}
	c := f.contents[0]
	f.contents = f.contents[1:]
	return c
}

func (f *fakeLLM) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": f.next()},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}
}

type fakeStore struct {
	mu          sync.Mutex
	submissions []store.Submission
	users       []store.UserRecord
	insertErr   error
}

func (f *fakeStore) InsertSubmission(_ context.Context, sub store.Submission) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions = append(f.submissions, sub)
	return fmt.Sprintf("sub-%d", len(f.submissions)), nil
}

func (f *fakeStore) ListAllUsers(context.Context) ([]store.UserRecord, error) {
	return f.users, nil
}

func newTestServer(t *testing.T, llm *fakeLLM, st SubmissionStore, recHandler http.HandlerFunc) *Server {
	t.Helper()

	llmServer := httptest.NewServer(llm.handler())
	t.Cleanup(llmServer.Close)

	client := azure.NewClient(azure.Config{
		Endpoint:   "https://example.openai.azure.com",
		APIKey:     "test-key",
		Deployment: "gpt-4o-mini",
	}, azure.RetryPolicy{MaxTries: 1, InitialInterval: time.Millisecond, Multiplier: 2}, discardLogger())
	client.SetTestBaseURL(llmServer.URL)

	recURL := "http://127.0.0.1:1"
	if recHandler != nil {
		recServer := httptest.NewServer(recHandler)
		t.Cleanup(recServer.Close)
		recURL = recServer.URL
	}

	return NewServer(0, Deps{
		Sessions:     session.NewManager(),
		Agent:        agent.New(client, discardLogger()),
		Extractor:    extractor.New(client, "https://uchiai.co.uk", discardLogger()),
		Store:        st,
		Recommender:  recommend.New(recURL, recommend.PayloadSubmissionID, discardLogger()),
		Gifs:         giphy.NewService(""),
		DashboardURL: "https://dashboard.uchiai.co.uk",
		Logger:       discardLogger(),
	})
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndStatus(t *testing.T) {
	srv := newTestServer(t, &fakeLLM{}, &fakeStore{}, nil)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/uchi/status", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status: expected 200, got %d", rec.Code)
	}
	var status map[string]string
	json.Unmarshal(rec.Body.Bytes(), &status)
	if status["service"] != "uchi-ai-questionnaire" {
		t.Errorf("unexpected status payload: %v", status)
	}
}

func TestCreateSession(t *testing.T) {
	srv := newTestServer(t, &fakeLLM{}, &fakeStore{}, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions", map[string]string{"listing_type": "buy"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp createSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID == "" {
		t.Error("expected a session id")
	}
	if len(resp.Messages) == 0 {
		t.Error("expected greeting messages")
	}
	if resp.GifURL == "" {
		t.Error("expected a greeting gif url")
	}
}

func TestPostMessage_Turn(t *testing.T) {
	envelope, _ := json.Marshal(map[string]any{
		"response": "Nice to meet you, Jane!",
		"extracted_info": map[string]any{
			"first_name":         "Jane",
			"maximum_budget":     500,
			"preferred_location": "Hackney",
		},
		"wants_to_signup": false,
	})
	llm := &fakeLLM{contents: []string{string(envelope)}}
	srv := newTestServer(t, llm, &fakeStore{}, nil)

	created := doJSON(t, srv, http.MethodPost, "/api/v1/sessions", nil)
	var sess createSessionResponse
	json.Unmarshal(created.Body.Bytes(), &sess)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions/"+sess.SessionID+"/messages",
		map[string]string{"content": "I'm Jane, budget 500k, looking in Hackney"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp postMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Reply != "Nice to meet you, Jane!" {
		t.Errorf("unexpected reply: %q", resp.Reply)
	}
	if resp.WantsSignup {
		t.Error("expected wants_to_signup false without email or signup phrase")
	}
	if resp.Signup != nil {
		t.Error("expected no signup details yet")
	}
	if resp.Profile.FirstName == nil || *resp.Profile.FirstName != "Jane" {
		t.Errorf("expected first name Jane, got %v", resp.Profile.FirstName)
	}
	if resp.Profile.MaximumBudget == nil || *resp.Profile.MaximumBudget != 500 {
		t.Errorf("expected budget 500, got %v", resp.Profile.MaximumBudget)
	}
}

func TestPostMessage_UnknownSession(t *testing.T) {
	srv := newTestServer(t, &fakeLLM{}, &fakeStore{}, nil)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions/nope/messages", map[string]string{"content": "hi"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestPostMessage_EmailOverridesSignup(t *testing.T) {
	envelope, _ := json.Marshal(map[string]any{
		"response":        "Got it, thanks!",
		"extracted_info":  map[string]any{"email": "a@b.com"},
		"wants_to_signup": false,
	})
	finalProfile := `{"first_name":"Jane","email":"a@b.com","maximum_budget":500,"preferred_location":"Hackney"}`
	llm := &fakeLLM{contents: []string{string(envelope), finalProfile}}
	srv := newTestServer(t, llm, &fakeStore{}, nil)

	created := doJSON(t, srv, http.MethodPost, "/api/v1/sessions", nil)
	var sess createSessionResponse
	json.Unmarshal(created.Body.Bytes(), &sess)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions/"+sess.SessionID+"/messages",
		map[string]string{"content": "my email is a@b.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp postMessageResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	// Model said false; the "@" override wins.
	if !resp.WantsSignup {
		t.Fatal("expected signup intent from email override")
	}
	if resp.Signup == nil {
		t.Fatal("expected signup details")
	}
	if !strings.Contains(resp.Signup.URL, "form=true") {
		t.Errorf("expected pre-fill URL, got %q", resp.Signup.URL)
	}
	if !strings.Contains(resp.Signup.URL, "name=Jane") {
		t.Errorf("expected name pre-filled from final extraction, got %q", resp.Signup.URL)
	}
	if resp.Signup.Error != "" {
		t.Errorf("expected no signup error, got %q", resp.Signup.Error)
	}
}

func TestPostMessage_ExtractionFailureFallsBack(t *testing.T) {
	envelope, _ := json.Marshal(map[string]any{
		"response":        "Let's sign you up!",
		"extracted_info":  map[string]any{},
		"wants_to_signup": true,
	})
	llm := &fakeLLM{contents: []string{string(envelope), "not json at all"}}
	srv := newTestServer(t, llm, &fakeStore{}, nil)

	created := doJSON(t, srv, http.MethodPost, "/api/v1/sessions", nil)
	var sess createSessionResponse
	json.Unmarshal(created.Body.Bytes(), &sess)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/sessions/"+sess.SessionID+"/messages",
		map[string]string{"content": "please sign up"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp postMessageResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Signup == nil {
		t.Fatal("expected signup details")
	}
	if resp.Signup.URL != "https://uchiai.co.uk/for-buy?form=true" {
		t.Errorf("expected bare fallback form URL, got %q", resp.Signup.URL)
	}
	if resp.Signup.Error == "" {
		t.Error("expected a registration-failure message with retry affordance")
	}
}

func TestCreateSubmission(t *testing.T) {
	st := &fakeStore{}
	srv := newTestServer(t, &fakeLLM{}, st, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"matched_properties": []map[string]any{
				{"matched_criteria": []string{"Hackney"}, "prop_property_criteria_matched": 0.9},
			},
		})
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/submissions", map[string]any{
		"session_id":   "sess-1",
		"listing_type": "buy",
		"content": map[string]any{
			"first_name":     "Jane",
			"email":          "jane@example.com",
			"maximum_budget": 500,
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp createSubmissionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SubmissionID != "sub-1" {
		t.Errorf("unexpected submission id: %q", resp.SubmissionID)
	}
	if resp.Result == nil || resp.Result.Deferred {
		t.Errorf("expected inline matches, got %+v", resp.Result)
	}
	if len(resp.Result.Matches) != 1 {
		t.Errorf("expected 1 match, got %d", len(resp.Result.Matches))
	}

	if len(st.submissions) != 1 {
		t.Fatalf("expected 1 stored submission, got %d", len(st.submissions))
	}
	stored := st.submissions[0]
	if stored.ListingType != "buy" || stored.SessionID != "sess-1" {
		t.Errorf("unexpected stored submission: %+v", stored)
	}
	if stored.Content.Email == nil || *stored.Content.Email != "jane@example.com" {
		t.Errorf("expected email stored, got %v", stored.Content.Email)
	}
}

func TestCreateSubmission_RecommendationFailureDegrades(t *testing.T) {
	srv := newTestServer(t, &fakeLLM{}, &fakeStore{}, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/submissions", map[string]any{
		"listing_type": "rent",
		"content":      map[string]any{"email": "jane@example.com"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 despite recommendation failure, got %d", rec.Code)
	}

	var resp createSubmissionResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Result == nil || !resp.Result.Deferred {
		t.Errorf("expected deferred result, got %+v", resp.Result)
	}
	if resp.Result.Message != recommend.DeferredMessage {
		t.Errorf("expected deferred message, got %q", resp.Result.Message)
	}
}

func TestCreateSubmission_StoreFailure(t *testing.T) {
	srv := newTestServer(t, &fakeLLM{}, &fakeStore{insertErr: fmt.Errorf("firestore down")}, nil)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/submissions", map[string]any{
		"listing_type": "buy",
		"content":      map[string]any{"email": "jane@example.com"},
	})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 on store failure, got %d", rec.Code)
	}
}

func TestListUsers(t *testing.T) {
	st := &fakeStore{users: []store.UserRecord{
		{ID: "u1", Email: "a@example.com", FirstName: "A"},
		{ID: "u2", Email: "b@example.com", FirstName: "B"},
	}}
	srv := newTestServer(t, &fakeLLM{}, st, nil)

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/users", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp listUsersResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Count != 2 || len(resp.Users) != 2 {
		t.Errorf("expected 2 users, got %+v", resp)
	}
}
