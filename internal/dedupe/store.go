// Package dedupe implements the duplicate-book-detection engine: the
// normalization pipelines, hash-bucket grouping, exemption-aware
// partitioning, and binary-content matcher that turn a library of book
// records into groups of mutually-matching duplicates.
package dedupe

import (
	"context"
	"io"
	"time"
)

// BookID is an opaque book identity. The engine never interprets its value.
type BookID int64

// FormatMetadata describes one on-disk format file for a book.
type FormatMetadata struct {
	ByteSize int64
	ModTime  time.Time
	Path     string
}

// LibraryStore is the read-only collaborator the engine queries for book
// metadata and format content. Implementations own book data and file
// handles; the engine only ever borrows read-only projections of them.
// Concurrent readers must be safe: the engine may call FormatContent (or a
// HashProvider's FormatHash) from multiple goroutines during Pass 2 of the
// binary matcher.
type LibraryStore interface {
	// AllIDs returns every book id the store knows about, in an order the
	// implementation considers stable.
	AllIDs(ctx context.Context) ([]BookID, error)
	// Title returns a book's title. ok is false when the book has no title.
	Title(ctx context.Context, id BookID) (title string, ok bool, err error)
	// Authors returns a book's author display names, in store order. Names
	// may contain "|" as an internal separator within a single display
	// name; callers must not split on "|" themselves.
	Authors(ctx context.Context, id BookID) ([]string, error)
	// Identifiers returns a book's scheme-name -> value map (e.g. "isbn").
	Identifiers(ctx context.Context, id BookID) (map[string]string, error)
	// Language returns a book's language tag. ok is false when unset.
	Language(ctx context.Context, id BookID) (lang string, ok bool, err error)
	// Formats returns the format codes (e.g. "EPUB", "PDF") a book has on disk.
	Formats(ctx context.Context, id BookID) ([]string, error)
	// FormatMetadata returns size/mtime/path for one of a book's formats.
	// ok is false when the format is missing or the file is gone on disk.
	FormatMetadata(ctx context.Context, id BookID, format string) (meta FormatMetadata, ok bool, err error)
	// FormatContent opens the format file for reading so the engine can
	// hash it. ok is false under the same conditions as FormatMetadata.
	FormatContent(ctx context.Context, id BookID, format string) (r io.ReadCloser, ok bool, err error)
}

// HashProvider is an optional capability a LibraryStore may additionally
// implement to compute content hashes itself (e.g. because it already
// caches them), bypassing the engine's own FormatContent-based hashing.
type HashProvider interface {
	// FormatHash returns a pre-computed hex content digest for a format.
	// ok is false when no precomputed hash is available, in which case the
	// engine falls back to reading FormatContent itself.
	FormatHash(ctx context.Context, id BookID, format string) (digest string, ok bool, err error)
}

// ExemptionMap is a symmetric "never group these two" relation over book
// ids: if a excludes b then b excludes a. Stored as a mapping from book id
// to the set of ids it is exempted against. A nil ExemptionMap reads as
// containing no exemptions, but Add panics on it; use NewExemptionMap to
// get one that can be added to.
type ExemptionMap map[BookID]map[BookID]struct{}

// NewExemptionMap returns an empty, ready-to-use ExemptionMap.
func NewExemptionMap() ExemptionMap {
	return make(ExemptionMap)
}

// Add records a mutual exemption between a and b. A no-op when a == b.
func (m ExemptionMap) Add(a, b BookID) {
	if a == b {
		return
	}
	if m[a] == nil {
		m[a] = make(map[BookID]struct{})
	}
	m[a][b] = struct{}{}
	if m[b] == nil {
		m[b] = make(map[BookID]struct{})
	}
	m[b][a] = struct{}{}
}

// Has reports whether id has any recorded exemptions.
func (m ExemptionMap) Has(id BookID) bool {
	_, ok := m[id]
	return ok
}

// Neighbors returns the set of ids id is exempted against. The returned map
// must not be mutated by callers.
func (m ExemptionMap) Neighbors(id BookID) map[BookID]struct{} {
	return m[id]
}

// ProgressFunc receives status updates during a scan. total is 0 when
// indeterminate. A ProgressFunc must not panic; the engine does not retry a
// faulting callback but disables further progress reporting for the rest
// of the run.
type ProgressFunc func(message string, current, total int)

// SearchType selects which grouping strategy the orchestrator dispatches to.
type SearchType string

// Supported SearchType values.
const (
	SearchTitleAuthor SearchType = "title_author"
	SearchIdentifier  SearchType = "identifier"
	SearchBinary      SearchType = "binary"
	SearchAuthorOnly  SearchType = "author_only"
)

// Policy selects a match-key normalization strategy for a single field.
type Policy string

// Supported Policy values. PolicyIgnore disables matching on that field
// entirely (only meaningful for AuthorMatch).
const (
	PolicyIdentical Policy = "identical"
	PolicySimilar   Policy = "similar"
	PolicySoundex   Policy = "soundex"
	PolicyFuzzy     Policy = "fuzzy"
	PolicyIgnore    Policy = "ignore"
)

// SoundexLengths configures the fixed output length of the soundex encoder
// per field. Reconfigurable at Engine construction without code changes.
type SoundexLengths struct {
	Title     int
	Author    int
	Publisher int
	Series    int
	Tags      int
}

// DefaultSoundexLengths returns the spec's documented default lengths.
func DefaultSoundexLengths() SoundexLengths {
	return SoundexLengths{Title: 6, Author: 8, Publisher: 6, Series: 6, Tags: 4}
}

// Options configures one FindDuplicates invocation.
type Options struct {
	SearchType       SearchType
	TitleMatch       Policy
	AuthorMatch      Policy
	IdentifierType   string
	IncludeLanguages bool
	SortByTitle      bool
	BookIDs          []BookID // optional subset; nil means all books
	Soundex          SoundexLengths
}

// DefaultOptions returns the spec's documented default configuration.
func DefaultOptions() Options {
	return Options{
		SearchType:     SearchTitleAuthor,
		TitleMatch:     PolicySimilar,
		AuthorMatch:    PolicySimilar,
		IdentifierType: "isbn",
		SortByTitle:    true,
		Soundex:        DefaultSoundexLengths(),
	}
}

// DuplicateGroup is one final, emitted cluster of mutually-matching books.
type DuplicateGroup struct {
	GroupID  int
	BookIDs  []BookID
	MatchKey *string // populated only in author-only mode
}

// Status describes how a FindDuplicates call ended.
type Status int

// Status values.
const (
	StatusOK Status = iota
	StatusCancelled
)

// Result is the outcome of one FindDuplicates invocation.
type Result struct {
	Groups []DuplicateGroup
	Status Status
}

// Summary aggregates statistics across a result's groups.
type Summary struct {
	TotalGroups        int     `json:"total_groups"`
	TotalBooks         int     `json:"total_books"`
	DuplicatesToRemove int     `json:"duplicates_to_remove"`
	LargestGroup       int     `json:"largest_group"`
	AvgGroupSize       float64 `json:"avg_group_size"`
}
