// Package remote looks up missing identifiers for books by querying an
// external metadata service. EnrichMissing returns what it finds to its
// caller; it does not write the identifiers back to any store, and the
// engine's matching does not read them. This is supplementary to the
// engine's read-only local store — nothing about matching itself depends
// on it.
package remote

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/hasura/go-graphql-client"

	"github.com/calibretools/bookdupe/internal/cache"
	"github.com/calibretools/bookdupe/internal/dedupe"
	derrors "github.com/calibretools/bookdupe/internal/errors"
	"github.com/calibretools/bookdupe/internal/logger"
	"github.com/calibretools/bookdupe/internal/util"
)

// Config configures a remote metadata lookup.
type Config struct {
	Endpoint      string
	Token         string
	RateLimit     time.Duration
	MaxConcurrent int
}

// authTransport adds the bearer token to every outgoing request, the same
// shape as the teacher's headerAddingTransport.
type authTransport struct {
	token string
	rt    http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.rt.RoundTrip(req)
}

type identifierQuery struct {
	Books []struct {
		Isbn13 string `graphql:"isbn13"`
		Isbn10 string `graphql:"isbn10"`
	} `graphql:"books(where: {title: {_ilike: $title}}, limit: 1)"`
}

// IdentifierLookup queries a GraphQL metadata endpoint for a book's
// identifiers by title, caching results by book id. Construction mirrors
// the teacher's hardcover.Client: a bearer-token RoundTripper wrapping an
// *http.Client feeding a hasura/go-graphql-client *graphql.Client.
type IdentifierLookup struct {
	gql   *graphql.Client
	cache cache.Cache[dedupe.BookID, map[string]string]

	rateLimit time.Duration
	mu        sync.Mutex
	last      time.Time

	log *logger.Logger
}

// New builds an IdentifierLookup from cfg.
func New(cfg Config, log *logger.Logger) *IdentifierLookup {
	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: &authTransport{token: cfg.Token, rt: http.DefaultTransport},
	}
	return &IdentifierLookup{
		gql:       graphql.NewClient(cfg.Endpoint, httpClient),
		cache:     cache.NewMemoryCache[dedupe.BookID, map[string]string](log),
		rateLimit: cfg.RateLimit,
		log:       log,
	}
}

// throttle blocks until at least rateLimit has elapsed since the previous
// call, a simplified stand-in for the teacher's token-bucket RateLimiter —
// this engine's remote lookups have no backoff/retry dimension to justify
// that machinery.
func (l *IdentifierLookup) throttle() {
	if l.rateLimit <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if wait := l.rateLimit - time.Since(l.last); wait > 0 {
		time.Sleep(wait)
	}
	l.last = time.Now()
}

func (l *IdentifierLookup) lookupByTitle(ctx context.Context, title string) (map[string]string, error) {
	l.throttle()
	var q identifierQuery
	if err := l.gql.Query(ctx, &q, map[string]interface{}{"title": title}); err != nil {
		return nil, derrors.Wrap(derrors.IOFault, err, "querying remote metadata for %q", title)
	}
	if len(q.Books) == 0 {
		return nil, nil
	}
	ids := make(map[string]string)
	if isbn := q.Books[0].Isbn13; isbn != "" {
		ids["isbn13"] = isbn
	}
	if isbn := q.Books[0].Isbn10; isbn != "" {
		ids["isbn10"] = isbn
	}
	return ids, nil
}

// EnrichMissing queries the remote service for every id in ids whose store
// Identifiers() come back empty, bounding concurrency to maxConcurrent via
// internal/util.Pool, and returns book id -> discovered identifiers. Ids
// that already have identifiers, or for which the remote service has
// nothing, are absent from the result.
func (l *IdentifierLookup) EnrichMissing(ctx context.Context, store dedupe.LibraryStore, ids []dedupe.BookID, maxConcurrent int) (map[dedupe.BookID]map[string]string, error) {
	var mu sync.Mutex
	results := make(map[dedupe.BookID]map[string]string)
	var firstErr error

	pool := util.New(ctx, maxConcurrent)
	for _, id := range ids {
		id := id
		pool.Submit(func() {
			existing, err := store.Identifiers(ctx, id)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			if len(existing) > 0 {
				return
			}

			if cached, ok := l.cache.Get(id); ok {
				mu.Lock()
				results[id] = cached
				mu.Unlock()
				return
			}

			title, ok, err := store.Title(ctx, id)
			if err != nil || !ok || title == "" {
				return
			}

			found, err := l.lookupByTitle(ctx, title)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			if len(found) == 0 {
				return
			}

			l.cache.Set(id, found, time.Hour)
			mu.Lock()
			results[id] = found
			mu.Unlock()
		})
	}
	pool.Run()

	if firstErr != nil {
		return results, firstErr
	}
	return results, nil
}
