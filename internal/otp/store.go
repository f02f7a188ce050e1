package otp

import (
	"crypto/subtle"
	"sync"
	"time"
)

// Record is a pending one-time code for one email address.
type Record struct {
	Code      string
	ExpiresAt time.Time
}

func (r Record) matches(code string, now time.Time) bool {
	return subtle.ConstantTimeCompare([]byte(r.Code), []byte(code)) == 1 && now.Before(r.ExpiresAt)
}

// Store holds at most one pending code per email. State is process-local:
// it starts empty, is never persisted and is lost on restart.
type Store struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewStore() *Store {
	return &Store{records: make(map[string]Record)}
}

// Put stores rec for email, replacing any previous code.
func (s *Store) Put(email string, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[email] = rec
}

// Matches reports whether code is the current, unexpired code for email
// without consuming it.
func (s *Store) Matches(email, code string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[email]
	return ok && rec.matches(code, now)
}

// Consume removes the record for email if, and only if, code matches and
// has not expired. At most one caller can consume a given record.
func (s *Store) Consume(email, code string, now time.Time) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[email]
	if !ok || !rec.matches(code, now) {
		return Record{}, false
	}
	delete(s.records, email)
	return rec, true
}

// Restore puts a consumed record back unless a newer code was issued for
// email in the meantime.
func (s *Store) Restore(email string, rec Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[email]; ok {
		return false
	}
	s.records[email] = rec
	return true
}

// Sweep drops expired records and returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for email, rec := range s.records {
		if !now.Before(rec.ExpiresAt) {
			delete(s.records, email)
			n++
		}
	}
	return n
}

// Len returns the number of pending records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
