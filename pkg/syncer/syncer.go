package syncer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/xreader/xreader/pkg/books"
	"github.com/xreader/xreader/pkg/errcodes"
	"github.com/xreader/xreader/pkg/models"
	"github.com/xreader/xreader/pkg/settings"
	"github.com/xreader/xreader/pkg/syncclient"
)

type Outcome int

const (
	// OutcomeDisabled means sync is not configured or turned off.
	OutcomeDisabled Outcome = iota
	// OutcomeNoRemote means the remote has no progress for the book.
	OutcomeNoRemote
	// OutcomeUnchanged means the remote is level with or behind local progress.
	OutcomeUnchanged
	// OutcomeDeclined means the remote was ahead but the user kept local progress.
	OutcomeDeclined
	OutcomeAdopted
	// OutcomeUnreachable means the remote could not be asked. Local progress is
	// left alone.
	OutcomeUnreachable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDisabled:
		return "disabled"
	case OutcomeNoRemote:
		return "no remote progress"
	case OutcomeUnchanged:
		return "up to date"
	case OutcomeDeclined:
		return "kept local progress"
	case OutcomeAdopted:
		return "adopted remote progress"
	case OutcomeUnreachable:
		return "remote unreachable"
	default:
		return "unknown"
	}
}

// ConfirmFunc decides whether remote progress that is ahead of local progress
// should replace it.
type ConfirmFunc func(local, remote models.Progress) bool

// Client is the part of the remote API the syncer needs.
type Client interface {
	Health(ctx context.Context) error
	PushBook(ctx context.Context, bookID, content string) error
	PushProgress(ctx context.Context, bookID string, progress models.Progress) error
	FetchProgress(ctx context.Context, bookID string) (models.Progress, error)
}

// ClientFactory builds a client for the given settings.
type ClientFactory func(s models.SyncSettings) Client

type Options struct {
	PageSize int
	Timeout  time.Duration
	// NewClient defaults to an HTTP client bounded by Timeout.
	NewClient ClientFactory
}

type Service struct {
	books     *books.Service
	settings  *settings.Service
	pageSize  int
	newClient ClientFactory
}

func NewService(bookService *books.Service, settingsService *settings.Service, opts Options) *Service {
	newClient := opts.NewClient
	if newClient == nil {
		timeout := opts.Timeout
		newClient = func(s models.SyncSettings) Client {
			return syncclient.New(s.URL, s.Token, timeout)
		}
	}
	return &Service{
		books:     bookService,
		settings:  settingsService,
		pageSize:  opts.PageSize,
		newClient: newClient,
	}
}

// Reconcile compares local progress for book against the remote copy. Remote
// progress only replaces local progress when it is strictly ahead and confirm
// agrees. The returned book is always usable: on a network failure it is the
// book that was passed in, along with the error.
func (svc *Service) Reconcile(ctx context.Context, book *models.Book, confirm ConfirmFunc) (*models.Book, Outcome, error) {
	s, err := svc.settings.SyncSettings(ctx)
	if err != nil {
		return book, OutcomeDisabled, errors.WithStack(err)
	}
	if !s.Active() {
		return book, OutcomeDisabled, nil
	}

	remote, err := svc.newClient(s).FetchProgress(ctx, book.ID)
	if errcodes.HasCode(err, errcodes.CodeNotFound) {
		return book, OutcomeNoRemote, nil
	}
	if err != nil {
		return book, OutcomeUnreachable, errors.WithStack(err)
	}

	if !remote.Ahead(book.Progress) || !book.HasParagraph(remote.ParagraphIndex) {
		return book, OutcomeUnchanged, nil
	}
	if confirm == nil || !confirm(book.Progress, remote) {
		return book, OutcomeDeclined, nil
	}

	progress := models.NewProgress(remote.ParagraphIndex, svc.pageSize)
	if err := svc.books.UpdateProgress(ctx, book.ID, progress); err != nil {
		return book, OutcomeUnchanged, errors.WithStack(err)
	}

	updated := *book
	updated.Progress = progress
	return &updated, OutcomeAdopted, nil
}

// Push mirrors the current stored state of a book. It reads the book fresh so
// a debounced push always carries the latest progress.
func (svc *Service) Push(ctx context.Context, bookID string) error {
	book, err := svc.books.RetrieveBook(ctx, bookID)
	if err != nil {
		return errors.WithStack(err)
	}
	return svc.PushProgress(ctx, book)
}

// PushProgress sends the book text if it has never been mirrored, then the
// progress. Nothing is sent while sync is inactive.
func (svc *Service) PushProgress(ctx context.Context, book *models.Book) error {
	s, err := svc.settings.SyncSettings(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if !s.Active() {
		return nil
	}
	client := svc.newClient(s)

	if !book.Synced {
		if err := client.PushBook(ctx, book.ID, book.Text); err != nil {
			return errors.WithStack(err)
		}
		if err := svc.books.MarkSynced(ctx, book.ID); err != nil {
			return errors.WithStack(err)
		}
		book.Synced = true
		logger.FromContext(ctx).Info("mirrored book text", logger.Data{"book_id": book.ID})
	}

	return errors.WithStack(client.PushProgress(ctx, book.ID, book.Progress))
}

// CheckHealth verifies that s points at a reachable server that accepts its
// token.
func (svc *Service) CheckHealth(ctx context.Context, s models.SyncSettings) error {
	if !s.Configured() {
		return errcodes.InvalidInput("Sync URL and token are required.")
	}
	return errors.WithStack(svc.newClient(s).Health(ctx))
}

// SaveSettings stores s after a successful health check. Disabled settings
// are stored without contacting the server.
func (svc *Service) SaveSettings(ctx context.Context, s models.SyncSettings) error {
	if s.Enabled {
		if err := svc.CheckHealth(ctx, s); err != nil {
			return err
		}
	}
	return errors.WithStack(svc.settings.SaveSyncSettings(ctx, s))
}

// SetEnabled flips the sync toggle, checking health when turning it on.
func (svc *Service) SetEnabled(ctx context.Context, enabled bool) error {
	s, err := svc.settings.SyncSettings(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	s.Enabled = enabled
	return svc.SaveSettings(ctx, s)
}
