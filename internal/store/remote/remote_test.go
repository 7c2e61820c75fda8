package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calibretools/bookdupe/internal/dedupe"
	"github.com/calibretools/bookdupe/internal/dedupe/dedupetest"
)

type gqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

func newFakeServer(t *testing.T, isbn13ByTitle map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req gqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		title, _ := req.Variables["title"].(string)

		isbn, ok := isbn13ByTitle[title]
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			_, _ = w.Write([]byte(`{"data":{"books":[]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"books":[{"isbn13":"` + isbn + `","isbn10":""}]}}`))
	}))
}

func TestEnrichMissingFillsBlankIdentifiers(t *testing.T) {
	srv := newFakeServer(t, map[string]string{"Dune": "9780441013593"})
	defer srv.Close()

	lookup := New(Config{Endpoint: srv.URL, Token: "test-token"}, nil)

	store := dedupetest.New().
		AddBook(dedupetest.Book{ID: 1, Title: "Dune"}).
		AddBook(dedupetest.Book{ID: 2, Title: "Already Tagged", Identifiers: map[string]string{"isbn": "123"}})

	results, err := lookup.EnrichMissing(context.Background(), store, []dedupe.BookID{1, 2}, 4)
	require.NoError(t, err)

	require.Contains(t, results, dedupe.BookID(1))
	assert.Equal(t, "9780441013593", results[1]["isbn13"])
	assert.NotContains(t, results, dedupe.BookID(2), "book with existing identifiers must not be queried")
}

func TestEnrichMissingSkipsUnknownTitles(t *testing.T) {
	srv := newFakeServer(t, map[string]string{})
	defer srv.Close()

	lookup := New(Config{Endpoint: srv.URL, Token: "test-token"}, nil)
	store := dedupetest.New().AddBook(dedupetest.Book{ID: 1, Title: "Unfindable"})

	results, err := lookup.EnrichMissing(context.Background(), store, []dedupe.BookID{1}, 2)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEnrichMissingCachesSecondLookup(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"books":[{"isbn13":"111","isbn10":""}]}}`))
	}))
	defer srv.Close()

	lookup := New(Config{Endpoint: srv.URL, Token: "test-token"}, nil)
	store := dedupetest.New().AddBook(dedupetest.Book{ID: 1, Title: "Dune"})

	_, err := lookup.EnrichMissing(context.Background(), store, []dedupe.BookID{1}, 1)
	require.NoError(t, err)
	_, err = lookup.EnrichMissing(context.Background(), store, []dedupe.BookID{1}, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second lookup for the same book id should hit the cache, not the network")
}
