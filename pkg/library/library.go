package library

import (
	"context"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/xreader/xreader/pkg/books"
	"github.com/xreader/xreader/pkg/errcodes"
	"github.com/xreader/xreader/pkg/models"
	"github.com/xreader/xreader/pkg/segmenter"
	"github.com/xreader/xreader/pkg/settings"
)

// MaxFileSize caps imported files.
const MaxFileSize = 50 << 20

// SessionCloser is told when a book goes away so an open reading session on
// it can be dropped.
type SessionCloser interface {
	ForgetBook(id string)
}

type Service struct {
	books    *books.Service
	settings *settings.Service
	session  SessionCloser
}

func NewService(bookService *books.Service, settingsService *settings.Service, session SessionCloser) *Service {
	return &Service{
		books:    bookService,
		settings: settingsService,
		session:  session,
	}
}

// ImportFile reads a plain-text file and stores it as a book keyed by its
// file name.
func (svc *Service) ImportFile(ctx context.Context, path string) (*models.Book, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if info.IsDir() {
		return nil, errcodes.InvalidInput(path + " is a directory.")
	}
	if info.Size() > MaxFileSize {
		return nil, errcodes.InvalidInput(path + " is too large.")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return svc.Import(ctx, filepath.Base(path), data)
}

// Import stores data as a book. Importing a name that already exists replaces
// the book, resetting its progress and sync state.
func (svc *Service) Import(ctx context.Context, name string, data []byte) (*models.Book, error) {
	log := logger.FromContext(ctx)

	if name == "" {
		return nil, errcodes.InvalidInput("Book name is required.")
	}
	if !isPlainText(data) {
		mtype := mimetype.Detect(data)
		log.Warn("rejected non-text file", logger.Data{"name": name, "mimetype": mtype.String()})
		return nil, errcodes.InvalidInput(name + " is not a plain text file (" + mtype.String() + ").")
	}

	text := string(data)
	paragraphs := segmenter.Segment(text)
	if len(paragraphs) == 0 {
		return nil, errcodes.InvalidInput(name + " has no readable text.")
	}

	book := &models.Book{
		ID:         name,
		Name:       name,
		Text:       text,
		Paragraphs: paragraphs,
	}
	if err := svc.books.PutBook(ctx, book); err != nil {
		return nil, errors.WithStack(err)
	}
	if svc.session != nil {
		svc.session.ForgetBook(name)
	}

	log.Info("imported book", logger.Data{"book_id": book.ID, "paragraphs": len(paragraphs)})
	return book, nil
}

// Delete removes a book, closing it if it is being read and clearing it as the
// last-read book.
func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.books.DeleteBook(ctx, id); err != nil {
		return errors.WithStack(err)
	}
	if svc.session != nil {
		svc.session.ForgetBook(id)
	}

	last, err := svc.settings.LastBookID(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if last == id {
		if err := svc.settings.Delete(ctx, models.SettingLastBookID); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func isPlainText(data []byte) bool {
	if !utf8.Valid(data) {
		return false
	}
	for mtype := mimetype.Detect(data); mtype != nil; mtype = mtype.Parent() {
		if mtype.Is("text/plain") {
			return true
		}
	}
	return false
}
