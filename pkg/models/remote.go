package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RemoteBook is the raw text of a book as mirrored on the sync server.
type RemoteBook struct {
	bun.BaseModel `bun:"table:remote_books,alias:rb"`

	ID        string    `bun:",pk" json:"bookId"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	Content   string    `bun:",notnull" json:"content"`
}

// RemoteProgress is the last progress pushed for a book.
type RemoteProgress struct {
	bun.BaseModel `bun:"table:remote_progress,alias:rp"`

	BookID    string    `bun:",pk" json:"bookId"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	Progress  Progress  `bun:"embed:progress_" json:"progress"`
}
