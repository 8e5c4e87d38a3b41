package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID         string    `bun:",pk" json:"id"`
	CreatedAt  time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	Name       string    `bun:",notnull" json:"name"`
	Text       string    `bun:",notnull" json:"text"`
	Paragraphs []string  `bun:",notnull" json:"paragraphs"`
	Progress   Progress  `bun:"embed:progress_" json:"progress"`
	Synced     bool      `bun:",notnull,default:false" json:"synced"`
}

// ParagraphCount is the number of paragraphs in the book.
func (b *Book) ParagraphCount() int {
	return len(b.Paragraphs)
}

// HasParagraph reports whether i addresses an existing paragraph.
func (b *Book) HasParagraph(i int) bool {
	return i >= 0 && i < len(b.Paragraphs)
}

// PercentRead is the share of the book up to and including the paragraph the
// progress points at, from 0 to 100.
func (b *Book) PercentRead() int {
	if len(b.Paragraphs) == 0 {
		return 0
	}
	return (b.Progress.ParagraphIndex + 1) * 100 / len(b.Paragraphs)
}
