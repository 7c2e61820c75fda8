// Package dedupetest provides an in-memory fake LibraryStore for exercising
// the dedupe engine without a real persisted store, in the teacher's
// testutils builder style.
package dedupetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/calibretools/bookdupe/internal/dedupe"
)

// Book is one fake library record. Any zero-valued field is treated as
// "absent" by the Store (e.g. empty Title means the book has no title).
type Book struct {
	ID          dedupe.BookID
	Title       string
	Authors     []string
	Identifiers map[string]string
	Language    string
	Formats     map[string][]byte // format code -> file content
}

// Store is a fake dedupe.LibraryStore backed by an in-memory book list,
// built with a fluent AddBook call chain.
type Store struct {
	books map[dedupe.BookID]Book
	order []dedupe.BookID
}

// New returns an empty Store.
func New() *Store {
	return &Store{books: make(map[dedupe.BookID]Book)}
}

// AddBook registers b, overwriting any existing book with the same ID.
// Returns the Store for chaining.
func (s *Store) AddBook(b Book) *Store {
	if _, exists := s.books[b.ID]; !exists {
		s.order = append(s.order, b.ID)
	}
	s.books[b.ID] = b
	return s
}

func (s *Store) AllIDs(ctx context.Context) ([]dedupe.BookID, error) {
	out := append([]dedupe.BookID(nil), s.order...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) Title(ctx context.Context, id dedupe.BookID) (string, bool, error) {
	b, ok := s.books[id]
	if !ok || b.Title == "" {
		return "", false, nil
	}
	return b.Title, true, nil
}

func (s *Store) Authors(ctx context.Context, id dedupe.BookID) ([]string, error) {
	return s.books[id].Authors, nil
}

func (s *Store) Identifiers(ctx context.Context, id dedupe.BookID) (map[string]string, error) {
	return s.books[id].Identifiers, nil
}

func (s *Store) Language(ctx context.Context, id dedupe.BookID) (string, bool, error) {
	b, ok := s.books[id]
	if !ok || b.Language == "" {
		return "", false, nil
	}
	return b.Language, true, nil
}

func (s *Store) Formats(ctx context.Context, id dedupe.BookID) ([]string, error) {
	b, ok := s.books[id]
	if !ok {
		return nil, nil
	}
	codes := make([]string, 0, len(b.Formats))
	for code := range b.Formats {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

func (s *Store) FormatMetadata(ctx context.Context, id dedupe.BookID, format string) (dedupe.FormatMetadata, bool, error) {
	b, ok := s.books[id]
	if !ok {
		return dedupe.FormatMetadata{}, false, nil
	}
	content, ok := b.Formats[format]
	if !ok {
		return dedupe.FormatMetadata{}, false, nil
	}
	return dedupe.FormatMetadata{
		ByteSize: int64(len(content)),
		Path:     fmt.Sprintf("memory://%d/%s", id, format),
	}, true, nil
}

func (s *Store) FormatContent(ctx context.Context, id dedupe.BookID, format string) (io.ReadCloser, bool, error) {
	b, ok := s.books[id]
	if !ok {
		return nil, false, nil
	}
	content, ok := b.Formats[format]
	if !ok {
		return nil, false, nil
	}
	return io.NopCloser(bytes.NewReader(content)), true, nil
}

var _ dedupe.LibraryStore = (*Store)(nil)
