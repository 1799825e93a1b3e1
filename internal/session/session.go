// Package session holds per-conversation state. Each browser session maps to
// exactly one Session; there is no sharing across sessions and turns within a
// session are processed one at a time.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/azure"
	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/profile"
)

type ListingType string

const (
	ListingBuy  ListingType = "buy"
	ListingRent ListingType = "rent"
)

// Greeting messages seeded into every new session, so the agent is never
// invoked on an empty conversation.
var greetings = []string{
	"Hello! I am an AI assistant for Uchi. I'm here to help you find your perfect home to buy!",
	"I heard you are looking for a home to buy and would love to know more. First, what is your name? 😊",
}

// Session is the explicit per-conversation context passed to every component
// call: the append-only transcript, the accumulated profile and the signup
// flag. Created on first interaction, discarded on session end.
type Session struct {
	sync.Mutex

	ID          string
	ListingType ListingType
	Messages    []azure.Message
	Profile     profile.CustomerProfile
	WantsSignup bool
	CreatedAt   time.Time
}

// Append adds a message to the transcript. Messages are immutable once
// appended.
func (s *Session) Append(role, content string) {
	s.Messages = append(s.Messages, azure.Message{Role: role, Content: content})
}

// Manager owns the live sessions, keyed by generated ID.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

func (m *Manager) Create(listing ListingType) *Session {
	s := &Session{
		ID:          uuid.NewString(),
		ListingType: listing,
		CreatedAt:   time.Now().UTC(),
	}
	for _, g := range greetings {
		s.Append(azure.RoleAssistant, g)
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
