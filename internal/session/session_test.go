package session

import (
	"testing"

	"github.com/CuriousKomodo/uchi-ai-questionnaire/internal/azure"
)

func TestCreate_SeedsGreeting(t *testing.T) {
	m := NewManager()
	s := m.Create(ListingBuy)

	if s.ID == "" {
		t.Fatal("expected a generated session id")
	}
	if s.ListingType != ListingBuy {
		t.Errorf("expected buy listing, got %q", s.ListingType)
	}
	if len(s.Messages) == 0 {
		t.Fatal("expected greeting messages seeded")
	}
	for _, msg := range s.Messages {
		if msg.Role != azure.RoleAssistant {
			t.Errorf("expected assistant greeting, got role %q", msg.Role)
		}
	}
	if s.WantsSignup {
		t.Error("new session must not want signup")
	}
}

func TestGetAndDelete(t *testing.T) {
	m := NewManager()
	s := m.Create(ListingRent)

	got, ok := m.Get(s.ID)
	if !ok || got.ID != s.ID {
		t.Fatalf("expected to retrieve session %s", s.ID)
	}

	if _, ok := m.Get("missing"); ok {
		t.Error("expected miss for unknown id")
	}

	m.Delete(s.ID)
	if _, ok := m.Get(s.ID); ok {
		t.Error("expected session gone after delete")
	}
}

func TestCreate_DistinctIDs(t *testing.T) {
	m := NewManager()
	if m.Create(ListingBuy).ID == m.Create(ListingBuy).ID {
		t.Error("expected distinct session ids")
	}
}

func TestAppend(t *testing.T) {
	m := NewManager()
	s := m.Create(ListingBuy)
	before := len(s.Messages)

	s.Append(azure.RoleUser, "hello")
	if len(s.Messages) != before+1 {
		t.Fatalf("expected %d messages, got %d", before+1, len(s.Messages))
	}
	last := s.Messages[len(s.Messages)-1]
	if last.Role != azure.RoleUser || last.Content != "hello" {
		t.Errorf("unexpected appended message: %+v", last)
	}
}
