package vault

import "github.com/illarion/boveda/internal/crypto"

// Session is the unlocked view of a container. It is treated as an
// immutable value: Store operations return a new Session instead of
// modifying the receiver.
type Session struct {
	key       []byte
	salt      []byte
	records   []Record
	container Container
}

func (s *Session) with(records []Record, c Container) *Session {
	return &Session{
		key:       s.key,
		salt:      s.salt,
		records:   records,
		container: c,
	}
}

// Records returns a copy of the record list in insertion order.
func (s *Session) Records() []Record {
	return cloneRecords(s.records)
}

// Len returns the number of records.
func (s *Session) Len() int {
	return len(s.records)
}

// Find returns the record with the given id.
func (s *Session) Find(id string) (Record, bool) {
	if i := s.index(id); i >= 0 {
		return s.records[i], true
	}
	return Record{}, false
}

// Search returns the records whose name, username or URL contain term.
func (s *Session) Search(term string) []Record {
	return Filter(s.records, term)
}

// Container returns the container this session was produced from or persisted as.
func (s *Session) Container() Container {
	return s.container.Clone()
}

// Salt returns a copy of the salt the session key was derived with.
func (s *Session) Salt() []byte {
	return append([]byte(nil), s.salt...)
}

// Wipe zeroes the key material and drops the record list. Every Session
// derived from the same unlock shares the key, so wiping one wipes them all.
func (s *Session) Wipe() {
	if s == nil {
		return
	}
	crypto.ClearBytes(s.key)
	s.records = nil
}

func (s *Session) index(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}
