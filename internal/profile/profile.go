// Package profile holds the structured record of a prospective customer's
// stated preferences, accumulated over a conversation.
package profile

import "encoding/json"

// CustomerProfile is the running extraction target. Every field is optional:
// a nil pointer means "not yet known", not "empty". Keys the model volunteers
// outside the fixed vocabulary are kept in Extra.
type CustomerProfile struct {
	FirstName         *string `json:"first_name,omitempty"`
	LastName          *string `json:"last_name,omitempty"`
	Email             *string `json:"email,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	Motivation        *string `json:"motivation,omitempty"`
	IsFirstTimeBuyer  *bool   `json:"is_first_time_buyer,omitempty"`
	IsBuyingAlone     *bool   `json:"is_buying_alone,omitempty"`
	PreferredLocation *string `json:"preferred_location,omitempty"`
	MaximumBudget     *int    `json:"maximum_budget,omitempty"` // thousands GBP
	PropertyType      *string `json:"property_type,omitempty"`  // "apartment", "house" or "both"
	NumberOfRooms     *int    `json:"number_of_rooms,omitempty"`
	Timeline          *string `json:"timeline,omitempty"`
	AdditionalNotes   *string `json:"additional_notes,omitempty"`

	Extra map[string]any `json:"-"`
}

var knownFields = []string{
	"first_name", "last_name", "email", "phone", "motivation",
	"is_first_time_buyer", "is_buying_alone", "preferred_location",
	"maximum_budget", "property_type", "number_of_rooms", "timeline",
	"additional_notes",
}

// Merge folds a partial extraction into the profile, last write wins per
// field. Fields absent from other never revert a known value, so a profile
// only ever gains information within a session.
func (p *CustomerProfile) Merge(other CustomerProfile) {
	if other.FirstName != nil {
		p.FirstName = other.FirstName
	}
	if other.LastName != nil {
		p.LastName = other.LastName
	}
	if other.Email != nil {
		p.Email = other.Email
	}
	if other.Phone != nil {
		p.Phone = other.Phone
	}
	if other.Motivation != nil {
		p.Motivation = other.Motivation
	}
	if other.IsFirstTimeBuyer != nil {
		p.IsFirstTimeBuyer = other.IsFirstTimeBuyer
	}
	if other.IsBuyingAlone != nil {
		p.IsBuyingAlone = other.IsBuyingAlone
	}
	if other.PreferredLocation != nil {
		p.PreferredLocation = other.PreferredLocation
	}
	if other.MaximumBudget != nil {
		p.MaximumBudget = other.MaximumBudget
	}
	if other.PropertyType != nil {
		p.PropertyType = other.PropertyType
	}
	if other.NumberOfRooms != nil {
		p.NumberOfRooms = other.NumberOfRooms
	}
	if other.Timeline != nil {
		p.Timeline = other.Timeline
	}
	if other.AdditionalNotes != nil {
		p.AdditionalNotes = other.AdditionalNotes
	}
	for k, v := range other.Extra {
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = v
	}
}

// UnmarshalJSON decodes the fixed vocabulary into typed fields and routes
// everything else into Extra. Explicit nulls are treated as absent.
func (p *CustomerProfile) UnmarshalJSON(data []byte) error {
	type plain CustomerProfile
	var pp plain
	if err := json.Unmarshal(data, &pp); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range knownFields {
		delete(raw, k)
	}
	for k, v := range raw {
		if v == nil {
			delete(raw, k)
		}
	}

	*p = CustomerProfile(pp)
	if len(raw) > 0 {
		p.Extra = raw
	}
	return nil
}

// MarshalJSON emits the typed fields plus any Extra keys as one flat object.
func (p CustomerProfile) MarshalJSON() ([]byte, error) {
	type plain CustomerProfile
	b, err := json.Marshal(plain(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return b, nil
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

// String returns a pointer to s, for building profiles in place.
func String(s string) *string { return &s }

// Int returns a pointer to n.
func Int(n int) *int { return &n }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
