package progress

import (
	"context"

	"github.com/pkg/errors"
	"github.com/xreader/xreader/pkg/books"
	"github.com/xreader/xreader/pkg/errcodes"
	"github.com/xreader/xreader/pkg/models"
	"github.com/xreader/xreader/pkg/settings"
)

// Store persists reading progress locally and hands the book off to the
// remote mirror, if one is attached. Persist never waits on the network.
type Store struct {
	books    *books.Service
	settings *settings.Service
	mirror   *Mirror
}

func NewStore(bookService *books.Service, settingsService *settings.Service, mirror *Mirror) *Store {
	return &Store{
		books:    bookService,
		settings: settingsService,
		mirror:   mirror,
	}
}

func (s *Store) Persist(ctx context.Context, bookID string, progress models.Progress) error {
	if err := s.books.UpdateProgress(ctx, bookID, progress); err != nil {
		return errors.WithStack(err)
	}
	if err := s.settings.SaveLastBookID(ctx, bookID); err != nil {
		return errors.WithStack(err)
	}
	if s.mirror != nil {
		s.mirror.Schedule(bookID)
	}
	return nil
}

// LastBook returns the most recently read book, or nil when there is none or
// it has since been deleted.
func (s *Store) LastBook(ctx context.Context) (*models.Book, error) {
	id, err := s.settings.LastBookID(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if id == "" {
		return nil, nil
	}
	book, err := s.books.RetrieveBook(ctx, id)
	if errcodes.HasCode(err, errcodes.CodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return book, nil
}
