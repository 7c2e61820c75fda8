package dbstore

import (
	"time"

	"gorm.io/gorm"
)

// Book is the persisted record a Store query assembles into a
// dedupe.LibraryStore projection. ID doubles as the dedupe.BookID the engine
// works with — the store never renumbers rows.
type Book struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	Title     string
	Language  string
	CreatedAt time.Time
	UpdatedAt time.Time

	Authors     []Author     `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	Identifiers []Identifier `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	Formats     []Format     `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
}

// Author is one display name on a Book, in store order (Position).
type Author struct {
	ID       int64 `gorm:"primaryKey;autoIncrement"`
	BookID   int64 `gorm:"index;not null"`
	Name     string
	Position int
}

// Identifier is one scheme/value pair (e.g. "isbn" -> "978...") on a Book.
type Identifier struct {
	ID     int64 `gorm:"primaryKey;autoIncrement"`
	BookID int64 `gorm:"index;not null"`
	Scheme string
	Value  string
}

// Format is one on-disk file backing a Book (e.g. an EPUB or PDF copy).
type Format struct {
	ID       int64 `gorm:"primaryKey;autoIncrement"`
	BookID   int64 `gorm:"index;not null"`
	Code     string
	Path     string
	ByteSize int64
	ModTime  time.Time
}

// AutoMigrate creates or updates the four tables backing a Store.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Book{}, &Author{}, &Identifier{}, &Format{})
}
