package dbstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calibretools/bookdupe/internal/dedupe"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := (sqliteDriver{}).connect(Config{DSN: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return New(db)
}

func TestUpsertBookAndAllIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id1, err := s.UpsertBook(ctx, BookRecord{Title: "Dune", Authors: []string{"Frank Herbert"}})
	require.NoError(t, err)
	id2, err := s.UpsertBook(ctx, BookRecord{Title: "Dune Messiah", Authors: []string{"Frank Herbert"}})
	require.NoError(t, err)

	ids, err := s.AllIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []dedupe.BookID{id1, id2}, ids)
}

func TestTitleOkAndLanguageOkFalseWhenBlank(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.UpsertBook(ctx, BookRecord{Title: "Untitled"})
	require.NoError(t, err)

	title, ok, err := s.Title(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Untitled", title)

	_, ok, err = s.Language(ctx, id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTitleMissingBookReturnsNotOk(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.Title(context.Background(), dedupe.BookID(999))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAuthorsPreserveStoredOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id, err := s.UpsertBook(ctx, BookRecord{Title: "Good Omens", Authors: []string{"Terry Pratchett", "Neil Gaiman"}})
	require.NoError(t, err)

	authors, err := s.Authors(ctx, id)
	require.NoError(t, err)
	require.Equal(t, []string{"Terry Pratchett", "Neil Gaiman"}, authors)
}

func TestIdentifiersRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id, err := s.UpsertBook(ctx, BookRecord{
		Title:       "Dune",
		Identifiers: map[string]string{"isbn": "9780441013593"},
	})
	require.NoError(t, err)

	ids, err := s.Identifiers(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "9780441013593", ids["isbn"])
}

func TestFormatMetadataFalseWhenFileGone(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	path := filepath.Join(t.TempDir(), "dune.epub")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	id, err := s.UpsertBook(ctx, BookRecord{
		Title:   "Dune",
		Formats: []FormatRecord{{Code: "EPUB", Path: path}},
	})
	require.NoError(t, err)

	meta, ok, err := s.FormatMetadata(ctx, id, "EPUB")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(len("content")), meta.ByteSize)

	require.NoError(t, os.Remove(path))
	_, ok, err = s.FormatMetadata(ctx, id, "EPUB")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFormatContentReadsFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	path := filepath.Join(t.TempDir(), "dune.epub")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	id, err := s.UpsertBook(ctx, BookRecord{
		Title:   "Dune",
		Formats: []FormatRecord{{Code: "EPUB", Path: path}},
	})
	require.NoError(t, err)

	r, ok, err := s.FormatContent(ctx, id, "EPUB")
	require.NoError(t, err)
	require.True(t, ok)
	defer r.Close()

	data := make([]byte, 5)
	n, _ := r.Read(data)
	require.Equal(t, "hello", string(data[:n]))
}

func TestFormatsMissingCodeReturnsNotOk(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	id, err := s.UpsertBook(ctx, BookRecord{Title: "Dune"})
	require.NoError(t, err)

	_, ok, err := s.FormatMetadata(ctx, id, "PDF")
	require.NoError(t, err)
	require.False(t, ok)
}
