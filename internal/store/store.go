// Package store persists finalized submissions to Firestore as two linked
// documents: a user record and a submission record.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/profile"
)

const (
	usersCollection       = "users"
	submissionsCollection = "submissions"
)

type Store struct {
	client *firestore.Client
	logger *slog.Logger
}

func New(ctx context.Context, projectID, credentialsFile string, logger *slog.Logger) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("store: creating firestore client: %w", err)
	}
	return &Store{client: client, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Submission is a finalized profile ready for persistence.
type Submission struct {
	SessionID   string
	ListingType string
	Content     profile.CustomerProfile
}

// InsertSubmission writes the user document and then the submission document
// referencing it, returning the submission's generated id. The two writes are
// not wrapped in a transaction; users are not deduplicated by email, so a
// repeat submission always creates a fresh pair of documents.
func (s *Store) InsertSubmission(ctx context.Context, sub Submission) (string, error) {
	now := time.Now().UTC()

	userDoc := s.client.Collection(usersCollection).NewDoc()
	if _, err := userDoc.Create(ctx, userFields(sub.Content, now)); err != nil {
		return "", fmt.Errorf("store: creating user document: %w", err)
	}

	content, err := profileFields(sub.Content)
	if err != nil {
		return "", fmt.Errorf("store: encoding profile: %w", err)
	}

	subDoc := s.client.Collection(submissionsCollection).NewDoc()
	if _, err := subDoc.Create(ctx, submissionFields(sub, userDoc.ID, content, now)); err != nil {
		return "", fmt.Errorf("store: creating submission document: %w", err)
	}

	s.logger.Info("submission stored",
		"submission_id", subDoc.ID,
		"user_id", userDoc.ID,
		"listing_type", sub.ListingType,
	)
	return subDoc.ID, nil
}

// UserRecord is one entry from a users scan. listing-era fields added after
// launch may be absent in older documents.
type UserRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	CreatedAt time.Time `json:"created_at"`
}

// ListAllUsers does a full scan of the users collection. No pagination, no
// filtering.
func (s *Store) ListAllUsers(ctx context.Context) ([]UserRecord, error) {
	var users []UserRecord
	iter := s.client.Collection(usersCollection).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("store: scanning users: %w", err)
		}
		data := doc.Data()
		rec := UserRecord{ID: doc.Ref.ID}
		if v, ok := data["email"].(string); ok {
			rec.Email = v
		}
		if v, ok := data["first_name"].(string); ok {
			rec.FirstName = v
		}
		if v, ok := data["created_at"].(time.Time); ok {
			rec.CreatedAt = v
		}
		users = append(users, rec)
	}
	return users, nil
}

func userFields(p profile.CustomerProfile, now time.Time) map[string]any {
	email := ""
	if p.Email != nil {
		email = *p.Email
	}
	firstName := ""
	if p.FirstName != nil {
		firstName = *p.FirstName
	}
	return map[string]any{
		"email":      email,
		"first_name": firstName,
		"created_at": now,
	}
}

func submissionFields(sub Submission, userID string, content map[string]any, now time.Time) map[string]any {
	email := ""
	if sub.Content.Email != nil {
		email = *sub.Content.Email
	}
	fields := map[string]any{
		"user_id":      userID,
		"email":        email,
		"content":      content,
		"listing_type": sub.ListingType,
		"created_at":   now,
	}
	if sub.SessionID != "" {
		fields["session_id"] = sub.SessionID
	}
	return fields
}

// profileFields flattens the profile through its JSON form so the stored blob
// keeps the snake_case vocabulary and any extra keys.
func profileFields(p profile.CustomerProfile) (map[string]any, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
