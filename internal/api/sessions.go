package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/agent"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/azure"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/extractor"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/profile"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/session"
)

type createSessionRequest struct {
	ListingType string `json:"listing_type"`
}

type createSessionResponse struct {
	SessionID string          `json:"session_id"`
	Messages  []azure.Message `json:"messages"`
	GifURL    string          `json:"gif_url,omitempty"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.Body != nil {
		// Body is optional; defaults to a buyer session.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	listing := session.ListingBuy
	if strings.EqualFold(req.ListingType, string(session.ListingRent)) {
		listing = session.ListingRent
	}

	sess := s.deps.Sessions.Create(listing)
	s.deps.Logger.Info("session created", "session_id", sess.ID, "listing_type", listing)

	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: sess.ID,
		Messages:  sess.Messages,
		GifURL:    s.deps.Gifs.GreetingGif(r.Context()),
	})
}

type postMessageRequest struct {
	Content string `json:"content"`
}

// signupDetails is included once signup intent is established: either a
// pre-filled registration URL, or the bare form plus an apology when the
// final extraction failed.
type signupDetails struct {
	URL    string `json:"url"`
	GifURL string `json:"gif_url,omitempty"`
	Error  string `json:"error,omitempty"`
}

type postMessageResponse struct {
	Reply       string                  `json:"reply"`
	Profile     profile.CustomerProfile `json:"profile"`
	WantsSignup bool                    `json:"wants_to_signup"`
	Signup      *signupDetails          `json:"signup,omitempty"`
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, ok := s.deps.Sessions.Get(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	// Turns within a session are processed one at a time.
	sess.Lock()
	defer sess.Unlock()

	// Client-side override, evaluated before the agent sees the message.
	if agent.DetectSignupIntent(req.Content) {
		sess.WantsSignup = true
	}
	sess.Append(azure.RoleUser, req.Content)

	result, err := s.deps.Agent.Respond(r.Context(), sess.Messages, sess.Profile)
	if err != nil {
		s.deps.Logger.Error("turn failed", "session_id", sess.ID, "error", err)
		writeError(w, http.StatusBadGateway, "assistant unavailable, please try again")
		return
	}

	sess.Append(azure.RoleAssistant, result.Reply)
	sess.Profile = result.Profile
	if result.Parsed && result.WantsSignup {
		sess.WantsSignup = true
	}

	resp := postMessageResponse{
		Reply:       result.Reply,
		Profile:     sess.Profile,
		WantsSignup: sess.WantsSignup,
	}
	if sess.WantsSignup {
		resp.Signup = s.prepareSignup(r, sess)
		resp.Profile = sess.Profile
	}

	writeJSON(w, http.StatusOK, resp)
}

// prepareSignup runs the authoritative final extraction and builds the
// registration URL. An extraction failure degrades to the bare form with a
// retry affordance instead of failing the turn.
func (s *Server) prepareSignup(r *http.Request, sess *session.Session) *signupDetails {
	extracted, err := s.deps.Extractor.Extract(r.Context(), sess.Messages)
	if err != nil {
		var extractionErr *extractor.ExtractionError
		if errors.As(err, &extractionErr) {
			s.deps.Logger.Error("final extraction failed", "session_id", sess.ID, "error", err)
			return &signupDetails{
				URL:   s.deps.Extractor.FallbackSignupURL(),
				Error: "Sorry, our agent forgot the details. Please complete your registration manually.",
			}
		}
		s.deps.Logger.Error("final extraction call failed", "session_id", sess.ID, "error", err)
		return &signupDetails{
			URL:   s.deps.Extractor.FallbackSignupURL(),
			Error: "Registration details are temporarily unavailable. Please complete the form manually.",
		}
	}

	sess.Profile = *extracted
	return &signupDetails{
		URL:    s.deps.Extractor.SignupURL(extracted, sess.ID),
		GifURL: s.deps.Gifs.CelebrationGif(r.Context()),
	}
}
