package syncserver

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/xreader/xreader/pkg/errcodes"
	"github.com/xreader/xreader/pkg/models"
)

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// PutBook stores the text of a book, replacing any earlier copy.
func (svc *Service) PutBook(ctx context.Context, bookID, content string) error {
	book := &models.RemoteBook{
		ID:        bookID,
		UpdatedAt: time.Now(),
		Content:   content,
	}
	_, err := svc.db.NewInsert().
		Model(book).
		On("CONFLICT (id) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return errors.WithStack(err)
}

// PutProgress stores the latest progress for a book. The server keeps no
// history and does not compare against what it had.
func (svc *Service) PutProgress(ctx context.Context, bookID string, progress models.Progress) error {
	rp := &models.RemoteProgress{
		BookID:    bookID,
		UpdatedAt: time.Now(),
		Progress:  progress,
	}
	_, err := svc.db.NewInsert().
		Model(rp).
		On("CONFLICT (book_id) DO UPDATE").
		Set("progress_page = EXCLUDED.progress_page").
		Set("progress_paragraph_index = EXCLUDED.progress_paragraph_index").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) RetrieveProgress(ctx context.Context, bookID string) (*models.RemoteProgress, error) {
	rp := &models.RemoteProgress{}
	err := svc.db.NewSelect().
		Model(rp).
		Where("rp.book_id = ?", bookID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Progress")
		}
		return nil, errors.WithStack(err)
	}
	return rp, nil
}
