// Package dbstore is a gorm-backed dedupe.LibraryStore: the persisted
// backend a real library of 10^4-10^6 books would run against, adapted from
// the teacher's internal/database driver/repository pair.
package dbstore

import (
	"context"
	"io"
	"os"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/calibretools/bookdupe/internal/dedupe"
	derrors "github.com/calibretools/bookdupe/internal/errors"
	"github.com/calibretools/bookdupe/internal/logger"
)

// Store implements dedupe.LibraryStore over a gorm connection. The zero
// value is not usable; construct with Open or New.
type Store struct {
	db *gorm.DB
}

// Open connects using cfg, falling back to fallbackPath's SQLite file on any
// connection failure, and returns a ready Store.
func Open(cfg Config, fallbackPath string, log *logger.Logger) (*Store, error) {
	db, err := ConnectWithFallback(cfg, fallbackPath, log)
	if err != nil {
		return nil, derrors.Wrap(derrors.MissingStore, err, "opening store")
	}
	return &Store{db: db}, nil
}

// New wraps an already-connected, already-migrated gorm.DB. Exposed for
// callers (and tests) that manage their own connection lifecycle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AllIDs returns every book id in ascending insertion order.
func (s *Store) AllIDs(ctx context.Context) ([]dedupe.BookID, error) {
	var rows []int64
	if err := s.db.WithContext(ctx).Model(&Book{}).Order("id ASC").Pluck("id", &rows).Error; err != nil {
		return nil, derrors.Wrap(derrors.IOFault, err, "listing book ids")
	}
	ids := make([]dedupe.BookID, len(rows))
	for i, id := range rows {
		ids[i] = dedupe.BookID(id)
	}
	return ids, nil
}

// Title returns a book's title. ok is false when the book is missing or its
// title is blank.
func (s *Store) Title(ctx context.Context, id dedupe.BookID) (string, bool, error) {
	var b Book
	err := s.db.WithContext(ctx).Select("title").First(&b, int64(id)).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", false, nil
		}
		return "", false, derrors.Wrap(derrors.IOFault, err, "loading title for book %d", id)
	}
	return b.Title, b.Title != "", nil
}

// Authors returns a book's display names in stored position order.
func (s *Store) Authors(ctx context.Context, id dedupe.BookID) ([]string, error) {
	var rows []Author
	if err := s.db.WithContext(ctx).Where("book_id = ?", int64(id)).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, derrors.Wrap(derrors.IOFault, err, "loading authors for book %d", id)
	}
	names := make([]string, len(rows))
	for i, a := range rows {
		names[i] = a.Name
	}
	return names, nil
}

// Identifiers returns a book's scheme -> value map.
func (s *Store) Identifiers(ctx context.Context, id dedupe.BookID) (map[string]string, error) {
	var rows []Identifier
	if err := s.db.WithContext(ctx).Where("book_id = ?", int64(id)).Find(&rows).Error; err != nil {
		return nil, derrors.Wrap(derrors.IOFault, err, "loading identifiers for book %d", id)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Scheme] = r.Value
	}
	return out, nil
}

// Language returns a book's language tag. ok is false when unset.
func (s *Store) Language(ctx context.Context, id dedupe.BookID) (string, bool, error) {
	var b Book
	err := s.db.WithContext(ctx).Select("language").First(&b, int64(id)).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", false, nil
		}
		return "", false, derrors.Wrap(derrors.IOFault, err, "loading language for book %d", id)
	}
	return b.Language, b.Language != "", nil
}

// Formats returns the format codes a book has on disk.
func (s *Store) Formats(ctx context.Context, id dedupe.BookID) ([]string, error) {
	var rows []Format
	if err := s.db.WithContext(ctx).Where("book_id = ?", int64(id)).Order("code ASC").Find(&rows).Error; err != nil {
		return nil, derrors.Wrap(derrors.IOFault, err, "loading formats for book %d", id)
	}
	codes := make([]string, len(rows))
	for i, f := range rows {
		codes[i] = f.Code
	}
	sort.Strings(codes)
	return codes, nil
}

func (s *Store) lookupFormat(ctx context.Context, id dedupe.BookID, format string) (Format, bool, error) {
	var f Format
	err := s.db.WithContext(ctx).Where("book_id = ? AND code = ?", int64(id), format).First(&f).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return Format{}, false, nil
		}
		return Format{}, false, derrors.Wrap(derrors.IOFault, err, "loading format %s for book %d", format, id)
	}
	return f, true, nil
}

// FormatMetadata returns size/mtime/path for one of a book's formats. ok is
// false when the format row is missing or the backing file no longer
// exists on disk.
func (s *Store) FormatMetadata(ctx context.Context, id dedupe.BookID, format string) (dedupe.FormatMetadata, bool, error) {
	f, ok, err := s.lookupFormat(ctx, id, format)
	if err != nil || !ok {
		return dedupe.FormatMetadata{}, false, err
	}
	info, err := os.Stat(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return dedupe.FormatMetadata{}, false, nil
		}
		return dedupe.FormatMetadata{}, false, derrors.Wrap(derrors.IOFault, err, "statting format file %s", f.Path)
	}
	return dedupe.FormatMetadata{ByteSize: info.Size(), ModTime: info.ModTime(), Path: f.Path}, true, nil
}

// FormatContent opens the format file for reading. ok is false under the
// same conditions as FormatMetadata.
func (s *Store) FormatContent(ctx context.Context, id dedupe.BookID, format string) (io.ReadCloser, bool, error) {
	f, ok, err := s.lookupFormat(ctx, id, format)
	if err != nil || !ok {
		return nil, false, err
	}
	r, err := os.Open(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, derrors.Wrap(derrors.IOFault, err, "opening format file %s", f.Path)
	}
	return r, true, nil
}

// BookRecord is the write-side shape used to populate a Store, mirroring
// the columns a real library importer would scrape from disk.
type BookRecord struct {
	Title       string
	Language    string
	Authors     []string
	Identifiers map[string]string
	Formats     []FormatRecord
}

// FormatRecord is one on-disk file to associate with a book.
type FormatRecord struct {
	Code string
	Path string
}

// UpsertBook inserts rec as a new book and returns its id. Grounded on the
// teacher's Repository.CreateProfile transactional insert.
func (s *Store) UpsertBook(ctx context.Context, rec BookRecord) (dedupe.BookID, error) {
	var id int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b := Book{Title: rec.Title, Language: rec.Language}
		if err := tx.Create(&b).Error; err != nil {
			return err
		}
		id = b.ID

		for i, name := range rec.Authors {
			if err := tx.Create(&Author{BookID: id, Name: name, Position: i}).Error; err != nil {
				return err
			}
		}
		for scheme, value := range rec.Identifiers {
			if err := tx.Create(&Identifier{BookID: id, Scheme: scheme, Value: value}).Error; err != nil {
				return err
			}
		}
		for _, f := range rec.Formats {
			var size int64
			var modTime time.Time
			if info, statErr := os.Stat(f.Path); statErr == nil {
				size = info.Size()
				modTime = info.ModTime()
			}
			if err := tx.Create(&Format{BookID: id, Code: f.Code, Path: f.Path, ByteSize: size, ModTime: modTime}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, derrors.Wrap(derrors.IOFault, err, "inserting book %q", rec.Title)
	}
	return dedupe.BookID(id), nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return derrors.Wrap(derrors.IOFault, err, "unwrapping sql.DB")
	}
	return sqlDB.Close()
}

var _ dedupe.LibraryStore = (*Store)(nil)
