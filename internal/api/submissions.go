package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/events"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/profile"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/recommend"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/session"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/store"
)

type createSubmissionRequest struct {
	SessionID   string                  `json:"session_id,omitempty"`
	ListingType string                  `json:"listing_type"`
	Content     profile.CustomerProfile `json:"content"`
}

type createSubmissionResponse struct {
	SubmissionID string            `json:"submission_id"`
	DashboardURL string            `json:"dashboard_url,omitempty"`
	Result       *recommend.Result `json:"result"`
}

// createSubmission persists the finalized profile, then sends the welcome
// email and lifecycle event best-effort, and finally blocks on the
// recommendation call. Only the store write can fail the request.
func (s *Server) createSubmission(w http.ResponseWriter, r *http.Request) {
	var req createSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	listing := string(session.ListingBuy)
	if strings.EqualFold(req.ListingType, string(session.ListingRent)) {
		listing = string(session.ListingRent)
	}

	submissionID, err := s.deps.Store.InsertSubmission(r.Context(), store.Submission{
		SessionID:   req.SessionID,
		ListingType: listing,
		Content:     req.Content,
	})
	if err != nil {
		s.deps.Logger.Error("submission insert failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store submission")
		return
	}

	email := ""
	if req.Content.Email != nil {
		email = *req.Content.Email
	}
	firstName := ""
	if req.Content.FirstName != nil {
		firstName = *req.Content.FirstName
	}

	if s.deps.Mailer != nil && email != "" {
		if err := s.deps.Mailer.SendWelcomeEmail(r.Context(), email, firstName); err != nil {
			s.deps.Logger.Warn("welcome email failed", "submission_id", submissionID, "error", err)
		}
	}

	if s.deps.Events != nil {
		evt := events.SubmissionStored{
			SubmissionID: submissionID,
			Email:        email,
			ListingType:  listing,
			SessionID:    req.SessionID,
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
		}
		if err := s.deps.Events.Publish(events.SubjectSubmissionStored, evt); err != nil {
			s.deps.Logger.Warn("submission event publish failed", "submission_id", submissionID, "error", err)
		}
	}

	content, _ := json.Marshal(req.Content)
	var contentMap map[string]any
	_ = json.Unmarshal(content, &contentMap)

	result := s.deps.Recommender.SubmitAndWait(r.Context(), submissionID, contentMap)

	writeJSON(w, http.StatusCreated, createSubmissionResponse{
		SubmissionID: submissionID,
		DashboardURL: s.deps.DashboardURL,
		Result:       result,
	})
}

type listUsersResponse struct {
	Users []store.UserRecord `json:"users"`
	Count int                `json:"count"`
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.deps.Store.ListAllUsers(r.Context())
	if err != nil {
		s.deps.Logger.Error("user scan failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, listUsersResponse{Users: users, Count: len(users)})
}
