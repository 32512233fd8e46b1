package vault

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Record is a single credential entry.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	URL       string    `json:"url,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RecordInput carries the user-supplied fields of a new record.
type RecordInput struct {
	Name     string
	Username string
	Password string
	URL      string
	Notes    string
}

// Validate checks the required fields.
func (in RecordInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case strings.TrimSpace(in.Username) == "":
		return fmt.Errorf("%w: username is required", ErrValidation)
	case in.Password == "":
		return fmt.Errorf("%w: password is required", ErrValidation)
	}
	return nil
}

// RecordPatch describes an edit. Nil fields are left untouched.
type RecordPatch struct {
	Name     *string
	Username *string
	Password *string
	URL      *string
	Notes    *string
}

// IsEmpty reports whether the patch changes nothing.
func (p RecordPatch) IsEmpty() bool {
	return p.Name == nil && p.Username == nil && p.Password == nil && p.URL == nil && p.Notes == nil
}

func (p RecordPatch) apply(r Record) Record {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Username != nil {
		r.Username = *p.Username
	}
	if p.Password != nil {
		r.Password = *p.Password
	}
	if p.URL != nil {
		r.URL = *p.URL
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	return r
}

func (r Record) input() RecordInput {
	return RecordInput{Name: r.Name, Username: r.Username, Password: r.Password, URL: r.URL, Notes: r.Notes}
}

// Matches reports whether term occurs, case-insensitively, in the name,
// username or URL of the record. An empty term matches everything.
func (r Record) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Name), term) ||
		strings.Contains(strings.ToLower(r.Username), term) ||
		strings.Contains(strings.ToLower(r.URL), term)
}

// Filter returns the records matching term, preserving order.
func Filter(records []Record, term string) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Matches(term) {
			out = append(out, r)
		}
	}
	return out
}

// encodeRecords serializes the record list. An empty list is encoded as []
// so the plaintext never depends on nil-ness.
func encodeRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal records: %w", err)
	}
	return data, nil
}

func decodeRecords(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal records: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func cloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
