package dedupe

import (
	"context"

	derrors "github.com/calibretools/bookdupe/internal/errors"
)

// candidateSet accumulates book ids under a match key during grouping.
type candidateSet map[string]map[BookID]struct{}

func (c candidateSet) add(key string, id BookID) {
	if c[key] == nil {
		c[key] = make(map[BookID]struct{})
	}
	c[key][id] = struct{}{}
}

func (c candidateSet) buckets() []bucket {
	out := make([]bucket, 0, len(c))
	for key, ids := range c {
		out = append(out, bucket{key: key, ids: ids})
	}
	return out
}

func idsToScan(all []BookID, subset []BookID) []BookID {
	if len(subset) == 0 {
		return all
	}
	return subset
}

// groupTitleAuthor implements spec §4.5.
func groupTitleAuthor(ctx context.Context, store LibraryStore, ids []BookID, opts Options, progress *progressGuard) ([]bucket, error) {
	cm := make(candidateSet)
	for n, id := range ids {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}

		title, ok, err := store.Title(ctx, id)
		if err != nil {
			return nil, derrors.Wrap(derrors.MissingStore, err, "fetching title for book %d", id)
		}
		if !ok || title == "" {
			continue
		}

		lang := ""
		if opts.IncludeLanguages {
			l, hasLang, err := store.Language(ctx, id)
			if err != nil {
				return nil, derrors.Wrap(derrors.MissingStore, err, "fetching language for book %d", id)
			}
			if hasLang {
				lang = l
			}
		}

		base, err := TitleMatchKey(title, opts.TitleMatch, opts.Soundex)
		if err != nil {
			return nil, err
		}
		titleKey := lang + base

		if opts.AuthorMatch == PolicyIgnore {
			cm.add(titleKey, id)
		} else {
			authors, err := store.Authors(ctx, id)
			if err != nil {
				return nil, derrors.Wrap(derrors.MissingStore, err, "fetching authors for book %d", id)
			}
			if len(authors) == 0 {
				cm.add(titleKey, id)
			}
			for _, a := range authors {
				ak, err := AuthorMatchKey(a, opts.AuthorMatch, opts.Soundex)
				if err != nil {
					return nil, err
				}
				cm.add(titleKey+ak.Primary, id)
				if ak.Alt != nil && *ak.Alt != ak.Primary {
					cm.add(titleKey+*ak.Alt, id)
				}
			}
		}

		if n > 0 && (n+1)%100 == 0 {
			progress.report("Analyzing books", n+1, len(ids))
		}
	}
	return cm.buckets(), nil
}

// groupIdentifier implements the identifier search mode: books sharing the
// same identifier scheme value are candidates.
func groupIdentifier(ctx context.Context, store LibraryStore, ids []BookID, opts Options, progress *progressGuard) ([]bucket, error) {
	cm := make(candidateSet)
	for n, id := range ids {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		identifiers, err := store.Identifiers(ctx, id)
		if err != nil {
			return nil, derrors.Wrap(derrors.MissingStore, err, "fetching identifiers for book %d", id)
		}
		value, ok := identifiers[opts.IdentifierType]
		if !ok || value == "" {
			continue
		}
		cm.add(value, id)

		if n > 0 && (n+1)%100 == 0 {
			progress.report("Analyzing books", n+1, len(ids))
		}
	}
	return cm.buckets(), nil
}

// groupAuthorOnly implements the author-only search mode: authors are
// grouped by their own match key first, then every surviving author group
// is translated into a book group spanning every book any of its authors
// wrote (spec §4.5 "Author-only mode").
func groupAuthorOnly(ctx context.Context, store LibraryStore, ids []BookID, opts Options, progress *progressGuard) ([]bucket, error) {
	authorBooks := make(map[string]map[BookID]struct{})
	authorBuckets := make(map[string]map[string]struct{})
	addAuthorBucket := func(key, name string) {
		if authorBuckets[key] == nil {
			authorBuckets[key] = make(map[string]struct{})
		}
		authorBuckets[key][name] = struct{}{}
	}

	for n, id := range ids {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		authors, err := store.Authors(ctx, id)
		if err != nil {
			return nil, derrors.Wrap(derrors.MissingStore, err, "fetching authors for book %d", id)
		}
		for _, a := range authors {
			if authorBooks[a] == nil {
				authorBooks[a] = make(map[BookID]struct{})
			}
			authorBooks[a][id] = struct{}{}

			ak, err := AuthorMatchKey(a, opts.AuthorMatch, opts.Soundex)
			if err != nil {
				return nil, err
			}
			addAuthorBucket(ak.Primary, a)
			if ak.Alt != nil && *ak.Alt != ak.Primary {
				addAuthorBucket(*ak.Alt, a)
			}
		}

		if n > 0 && (n+1)%100 == 0 {
			progress.report("Analyzing books", n+1, len(ids))
		}
	}

	// Shrink the author-name buckets (drop those with fewer than two names)
	// before expanding them into book-id groups; subset pruning happens later,
	// on the book-id groups, as in every other mode.
	nameBuckets := make([]struct {
		key   string
		names map[string]struct{}
	}, 0, len(authorBuckets))
	for key, names := range authorBuckets {
		if len(names) >= 2 {
			nameBuckets = append(nameBuckets, struct {
				key   string
				names map[string]struct{}
			}{key, names})
		}
	}

	out := make([]bucket, 0, len(nameBuckets))
	for _, nb := range nameBuckets {
		ids := make(map[BookID]struct{})
		for name := range nb.names {
			for id := range authorBooks[name] {
				ids[id] = struct{}{}
			}
		}
		key := nb.key
		out = append(out, bucket{key: nb.key, ids: ids, matchKey: &key})
	}
	return out, nil
}

func checkCancel(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
