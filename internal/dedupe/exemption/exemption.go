// Package exemption persists user-asserted "these are not duplicates" pairs
// to a JSON file, in the teacher's mismatch-recording style: a mutex-guarded
// in-memory slice with add-or-update-in-place semantics, flushed to disk.
package exemption

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/calibretools/bookdupe/internal/dedupe"
	derrors "github.com/calibretools/bookdupe/internal/errors"
	"github.com/calibretools/bookdupe/internal/logger"
)

// Record is one user-asserted exemption between two books.
type Record struct {
	BookA      dedupe.BookID `json:"book_a"`
	BookB      dedupe.BookID `json:"book_b"`
	Reason     string        `json:"reason,omitempty"`
	Source     string        `json:"source,omitempty"`
	RecordedAt time.Time     `json:"recorded_at"`
}

func (r Record) key() (dedupe.BookID, dedupe.BookID) {
	if r.BookA <= r.BookB {
		return r.BookA, r.BookB
	}
	return r.BookB, r.BookA
}

// Store is a file-backed collection of exemption records, safe for
// concurrent use. The zero value is not usable; construct with New or Load.
type Store struct {
	mu      sync.Mutex
	path    string
	records []Record
}

// New returns an empty Store bound to path. Nothing is read or written until
// Load or Save is called.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads path's JSON contents into a new Store. A missing file is not an
// error — it yields an empty Store, matching a fresh installation.
func Load(path string) (*Store, error) {
	s := New(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, derrors.Wrap(derrors.IOFault, err, "reading exemption file %s", path)
	}
	if len(data) == 0 {
		return s, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, derrors.Wrap(derrors.IOFault, err, "parsing exemption file %s", path)
	}
	s.records = records
	return s, nil
}

// Add records a mutual exemption between a and b, updating the existing
// record in place (new reason/source/timestamp) if the pair is already
// present, exactly as the teacher's mismatch.RecordMismatch does for repeat
// entries.
func (s *Store) Add(a, b dedupe.BookID, reason, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{BookA: a, BookB: b, Reason: reason, Source: source, RecordedAt: time.Now()}
	lo, hi := rec.key()

	for i, existing := range s.records {
		eLo, eHi := existing.key()
		if eLo == lo && eHi == hi {
			existing.Reason = reason
			existing.Source = source
			existing.RecordedAt = rec.RecordedAt
			s.records[i] = existing
			if log := logger.Get(); log != nil {
				log.Debug("exemption updated", map[string]interface{}{"book_a": lo, "book_b": hi})
			}
			return
		}
	}

	s.records = append(s.records, rec)
	if log := logger.Get(); log != nil {
		log.Info("exemption recorded", map[string]interface{}{"book_a": lo, "book_b": hi, "reason": reason})
	}
}

// All returns a copy of every recorded exemption.
func (s *Store) All() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// ToExemptionMap converts the stored records into a dedupe.ExemptionMap
// ready to hand to dedupe.New.
func (s *Store) ToExemptionMap() dedupe.ExemptionMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := dedupe.NewExemptionMap()
	for _, r := range s.records {
		m.Add(r.BookA, r.BookB)
	}
	return m
}

// Save writes the current records to the Store's path as indented JSON,
// creating the parent directory if needed.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return derrors.Wrap(derrors.IOFault, err, "creating exemption directory for %s", s.path)
	}
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return derrors.Wrap(derrors.IOFault, err, "marshaling exemptions")
	}
	data = append(data, '\n')
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return derrors.Wrap(derrors.IOFault, err, "writing exemption file %s", s.path)
	}
	return nil
}

// Clear removes every recorded exemption from memory (not from disk; call
// Save afterward to persist the clear).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}
