package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"
	"sync"

	"github.com/calibretools/bookdupe/internal/errors"
	"github.com/calibretools/bookdupe/internal/util"
)

const hashChunkSize = 8 * 1024

// formatRef identifies one (book, format) pair carried through the binary
// matcher's two passes.
type formatRef struct {
	id     BookID
	format string
	size   int64
}

// groupBinary implements spec §4.8: a size-bucket pre-filter followed by a
// SHA-256 content hash over surviving candidates, hashed with bounded
// concurrency (spec §5 permits parallelizing Pass 2).
func groupBinary(ctx context.Context, store LibraryStore, ids []BookID, maxConcurrent int, progress *progressGuard) ([]bucket, error) {
	sizeBuckets := make(map[int64][]formatRef)

	for n, id := range ids {
		if err := checkCancel(ctx); err != nil {
			return nil, err
		}
		formats, err := store.Formats(ctx, id)
		if err != nil {
			return nil, errors.Wrap(errors.MissingStore, err, "fetching formats for book %d", id)
		}
		for _, f := range formats {
			meta, ok, err := store.FormatMetadata(ctx, id, f)
			if err != nil {
				return nil, errors.Wrap(errors.IOFault, err, "fetching format metadata for book %d/%s", id, f)
			}
			if !ok {
				continue
			}
			sizeBuckets[meta.ByteSize] = append(sizeBuckets[meta.ByteSize], formatRef{id: id, format: f, size: meta.ByteSize})
		}
		if n > 0 && (n+1)%100 == 0 {
			progress.report("Analyzing formats", n+1, len(ids))
		}
	}

	var survivors []formatRef
	for _, refs := range sizeBuckets {
		if len(refs) > 1 {
			survivors = append(survivors, refs...)
		}
	}

	type hashOutcome struct {
		ref    formatRef
		digest string
		found  bool
		err    error
	}
	outcomes := make([]hashOutcome, len(survivors))

	pool := util.New(ctx, maxConcurrent)
	var hashed int
	var hashedMu sync.Mutex
	var cancelled bool
	for i, ref := range survivors {
		i, ref := i, ref
		pool.Submit(func() {
			hashedMu.Lock()
			skip := cancelled
			hashedMu.Unlock()
			if skip {
				return
			}

			digest, found, err := hashFormat(ctx, store, ref)
			outcomes[i] = hashOutcome{ref: ref, digest: digest, found: found, err: err}

			hashedMu.Lock()
			hashed++
			n := hashed
			if n > 0 && n%10 == 0 && checkCancel(ctx) != nil {
				cancelled = true
			}
			hashedMu.Unlock()
			if n > 0 && n%10 == 0 {
				progress.report("Hashing formats", n, len(survivors))
			}
		})
	}
	pool.Run()

	if err := checkCancel(ctx); err != nil {
		return nil, err
	}
	if cancelled {
		return nil, errors.New(errors.Cancelled, "hashing cancelled")
	}

	hashBuckets := make(candidateSet)
	for _, o := range outcomes {
		if o.err != nil {
			return nil, errors.Wrap(errors.IOFault, o.err, "hashing format %s for book %d", o.ref.format, o.ref.id)
		}
		if !o.found {
			// File vanished between the size scan and hashing; skip per
			// spec §4.10 rather than treat it as an error.
			continue
		}
		key := o.digest + ":" + strconv.FormatInt(o.ref.size, 10)
		hashBuckets.add(key, o.ref.id)
	}
	return hashBuckets.buckets(), nil
}

// hashFormat computes the SHA-256 digest of a format's content, preferring
// a store-provided precomputed hash when the store implements HashProvider.
// found is false when the format's content has become unavailable.
func hashFormat(ctx context.Context, store LibraryStore, ref formatRef) (digest string, found bool, err error) {
	if hp, ok := store.(HashProvider); ok {
		if d, ok, err := hp.FormatHash(ctx, ref.id, ref.format); err != nil {
			return "", false, err
		} else if ok {
			return d, true, nil
		}
	}

	r, ok, err := store.FormatContent(ctx, ref.id, ref.format)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	defer r.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", false, err
	}
	return hex.EncodeToString(h.Sum(nil)), true, nil
}
