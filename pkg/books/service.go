package books

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/xreader/xreader/pkg/errcodes"
	"github.com/xreader/xreader/pkg/models"
)

type ListBooksOptions struct {
	Limit  *int
	Offset *int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// PutBook stores a book, replacing any book with the same ID wholesale.
// Re-ingesting a book resets its progress and sync state.
func (svc *Service) PutBook(ctx context.Context, book *models.Book) error {
	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = now
	if book.Paragraphs == nil {
		book.Paragraphs = []string{}
	}

	_, err := svc.db.
		NewInsert().
		Model(book).
		On("CONFLICT (id) DO UPDATE").
		Set("updated_at = EXCLUDED.updated_at").
		Set("name = EXCLUDED.name").
		Set("text = EXCLUDED.text").
		Set("paragraphs = EXCLUDED.paragraphs").
		Set("progress_page = EXCLUDED.progress_page").
		Set("progress_paragraph_index = EXCLUDED.progress_paragraph_index").
		Set("synced = EXCLUDED.synced").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, id string) (*models.Book, error) {
	book := &models.Book{}

	err := svc.db.
		NewSelect().
		Model(book).
		Where("b.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

// ListBooks returns books by name. Paragraphs and text are loaded too; the
// library is expected to be small enough for that.
func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	var books []*models.Book

	q := svc.db.
		NewSelect().
		Model(&books).
		Order("b.name ASC", "b.id ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return books, nil
}

func (svc *Service) DeleteBook(ctx context.Context, id string) error {
	res, err := svc.db.
		NewDelete().
		Model((*models.Book)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	return requireAffected(res, "Book")
}

// UpdateProgress overwrites the stored progress. Writing the same value twice
// leaves the store unchanged.
func (svc *Service) UpdateProgress(ctx context.Context, id string, progress models.Progress) error {
	res, err := svc.db.
		NewUpdate().
		Model((*models.Book)(nil)).
		Set("progress_page = ?", progress.Page).
		Set("progress_paragraph_index = ?", progress.ParagraphIndex).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	return requireAffected(res, "Book")
}

// MarkSynced records that the book's text has been mirrored remotely.
func (svc *Service) MarkSynced(ctx context.Context, id string) error {
	res, err := svc.db.
		NewUpdate().
		Model((*models.Book)(nil)).
		Set("synced = ?", true).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	return requireAffected(res, "Book")
}

func requireAffected(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if n == 0 {
		return errcodes.NotFound(resource)
	}
	return nil
}
