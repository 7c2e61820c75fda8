package dedupe

import (
	"context"

	"github.com/google/uuid"

	"github.com/calibretools/bookdupe/internal/errors"
	"github.com/calibretools/bookdupe/internal/logger"
)

const defaultHashConcurrency = 8

// progressGuard wraps a caller-supplied ProgressFunc so a faulting
// callback is never retried; per spec §4.10 the engine continues with
// progress reporting disabled for the rest of the run once that happens.
type progressGuard struct {
	fn       ProgressFunc
	log      *logger.Logger
	disabled bool
}

func newProgressGuard(ctx context.Context, fn ProgressFunc) *progressGuard {
	return &progressGuard{fn: fn, log: logger.FromContext(ctx)}
}

func (g *progressGuard) report(msg string, current, total int) {
	if g == nil || g.fn == nil || g.disabled {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			g.disabled = true
			if g.log != nil {
				g.log.Warn("progress callback panicked, disabling further progress reporting", map[string]interface{}{
					"recovered": r,
				})
			}
		}
	}()
	g.fn(msg, current, total)
}

// Engine runs duplicate-detection scans against a LibraryStore. It is safe
// to reuse across multiple FindDuplicates calls; it holds no per-scan state.
type Engine struct {
	store         LibraryStore
	exemptions    ExemptionMap
	maxConcurrent int
}

// New validates opts-independent construction arguments and returns an
// Engine bound to store. exemptions may be nil, meaning no exemptions.
func New(store LibraryStore, exemptions ExemptionMap, maxConcurrent int) (*Engine, error) {
	if store == nil {
		return nil, errors.New(errors.InvalidInput, "library store must not be nil")
	}
	if exemptions == nil {
		exemptions = NewExemptionMap()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = defaultHashConcurrency
	}
	return &Engine{store: store, exemptions: exemptions, maxConcurrent: maxConcurrent}, nil
}

// validate checks option combinations that are invalid regardless of
// store content (spec §7: InvalidInput is signaled at construction/before
// any store access).
func validate(opts Options) error {
	switch opts.SearchType {
	case SearchTitleAuthor, SearchIdentifier, SearchBinary, SearchAuthorOnly:
	default:
		return errors.New(errors.InvalidInput, "unknown search type %q", opts.SearchType)
	}
	if opts.SearchType == SearchTitleAuthor || opts.SearchType == SearchAuthorOnly {
		switch opts.TitleMatch {
		case PolicyIdentical, PolicySimilar, PolicySoundex, PolicyFuzzy, PolicyIgnore:
		default:
			return errors.New(errors.InvalidInput, "unknown title match policy %q", opts.TitleMatch)
		}
		switch opts.AuthorMatch {
		case PolicyIdentical, PolicySimilar, PolicySoundex, PolicyFuzzy, PolicyIgnore:
		default:
			return errors.New(errors.InvalidInput, "unknown author match policy %q", opts.AuthorMatch)
		}
	}
	if opts.SearchType == SearchIdentifier && opts.IdentifierType == "" {
		return errors.New(errors.InvalidInput, "identifier_type must not be empty in identifier search mode")
	}
	for name, n := range map[string]int{
		"title":     opts.Soundex.Title,
		"author":    opts.Soundex.Author,
		"publisher": opts.Soundex.Publisher,
		"series":    opts.Soundex.Series,
		"tags":      opts.Soundex.Tags,
	} {
		if n < 0 {
			return errors.New(errors.InvalidInput, "%s soundex length must not be negative", name)
		}
	}
	return nil
}

// FindDuplicates runs one duplicate-detection scan. On cancellation it
// returns an empty Result with Status == StatusCancelled and a nil error,
// per spec §4.10/§7; all other failures are returned as *errors.Error.
func (e *Engine) FindDuplicates(ctx context.Context, opts Options, progress ProgressFunc) (Result, error) {
	if err := validate(opts); err != nil {
		return Result{}, err
	}

	runID := uuid.NewString()
	log := logger.FromContext(ctx)
	if log != nil {
		log = log.WithFields(map[string]interface{}{"scan_id": runID})
		ctx = logger.NewContext(ctx, log)
	}
	guard := newProgressGuard(ctx, progress)

	allIDs, err := e.store.AllIDs(ctx)
	if err != nil {
		return Result{}, errors.Wrap(errors.MissingStore, err, "listing book ids")
	}
	ids := idsToScan(allIDs, opts.BookIDs)

	var buckets []bucket
	switch opts.SearchType {
	case SearchTitleAuthor:
		buckets, err = groupTitleAuthor(ctx, e.store, ids, opts, guard)
	case SearchIdentifier:
		buckets, err = groupIdentifier(ctx, e.store, ids, opts, guard)
	case SearchBinary:
		buckets, err = groupBinary(ctx, e.store, ids, e.maxConcurrent, guard)
	case SearchAuthorOnly:
		buckets, err = groupAuthorOnly(ctx, e.store, ids, opts, guard)
	}
	if err != nil {
		if errors.Is(err, errors.Cancelled) || ctx.Err() != nil {
			return Result{Status: StatusCancelled}, nil
		}
		return Result{}, err
	}

	buckets = shrinkBuckets(buckets)
	sortBuckets(buckets, opts.SortByTitle)
	buckets = subsetPruneBuckets(buckets)
	// Pruning leaves the survivors in ascending size order; restore the
	// SortByTitle ordering for the emitted groups.
	sortBuckets(buckets, opts.SortByTitle)

	groups := make([]DuplicateGroup, 0, len(buckets))
	groupID := 1
	for _, b := range buckets {
		if err := checkCancel(ctx); err != nil {
			return Result{Status: StatusCancelled}, nil
		}
		parts := partitionUsingExemptions(sortedBookIDs(b.ids), e.exemptions)
		for _, p := range parts {
			groups = append(groups, DuplicateGroup{GroupID: groupID, BookIDs: p, MatchKey: b.matchKey})
			groupID++
		}
	}

	return Result{Groups: groups, Status: StatusOK}, nil
}

// Summary aggregates statistics across a result's groups (spec §6 "Summary
// output shape").
func (e *Engine) Summary(groups []DuplicateGroup) Summary {
	if len(groups) == 0 {
		return Summary{}
	}
	totalBooks := 0
	largest := 0
	for _, g := range groups {
		n := len(g.BookIDs)
		totalBooks += n
		if n > largest {
			largest = n
		}
	}
	return Summary{
		TotalGroups:        len(groups),
		TotalBooks:         totalBooks,
		DuplicatesToRemove: totalBooks - len(groups),
		LargestGroup:       largest,
		AvgGroupSize:       float64(totalBooks) / float64(len(groups)),
	}
}

// BookDetail is a book's full record joined back from the library store,
// used by DetailedGroups.
type BookDetail struct {
	ID      BookID
	Title   string
	Authors []string
}

// DetailedGroups joins each group's book ids back to full book records via
// the store, mirroring the original module's get_detailed_groups (spec
// §4 Supplementary Features).
func (e *Engine) DetailedGroups(ctx context.Context, groups []DuplicateGroup) ([][]BookDetail, error) {
	out := make([][]BookDetail, len(groups))
	for i, g := range groups {
		details := make([]BookDetail, 0, len(g.BookIDs))
		for _, id := range g.BookIDs {
			title, _, err := e.store.Title(ctx, id)
			if err != nil {
				return nil, errors.Wrap(errors.MissingStore, err, "fetching title for book %d", id)
			}
			authors, err := e.store.Authors(ctx, id)
			if err != nil {
				return nil, errors.Wrap(errors.MissingStore, err, "fetching authors for book %d", id)
			}
			details = append(details, BookDetail{ID: id, Title: title, Authors: authors})
		}
		out[i] = details
	}
	return out, nil
}

// FindDuplicates is a one-shot convenience entry point mirroring the
// original module's find_duplicates() free function, for callers that
// don't need to hold an Engine across calls.
func FindDuplicates(ctx context.Context, store LibraryStore, exemptions ExemptionMap, opts Options, progress ProgressFunc) (Result, error) {
	e, err := New(store, exemptions, 0)
	if err != nil {
		return Result{}, err
	}
	return e.FindDuplicates(ctx, opts, progress)
}
