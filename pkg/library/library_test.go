package library

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/xreader/xreader/pkg/books"
	"github.com/xreader/xreader/pkg/errcodes"
	"github.com/xreader/xreader/pkg/migrations"
	"github.com/xreader/xreader/pkg/models"
	"github.com/xreader/xreader/pkg/settings"
)

type forgetter struct {
	mu        sync.Mutex
	forgotten []string
}

func (f *forgetter) ForgetBook(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forgotten = append(f.forgotten, id)
}

type fixture struct {
	ctx      context.Context
	books    *books.Service
	settings *settings.Service
	session  *forgetter
	svc      *Service
}

func setup(t *testing.T) *fixture {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		db.Close()
	})

	ctx := context.Background()
	_, err = migrations.BringUpToDate(ctx, db)
	require.NoError(t, err)

	f := &fixture{
		ctx:      ctx,
		books:    books.NewService(db),
		settings: settings.NewService(db),
		session:  &forgetter{},
	}
	f.svc = NewService(f.books, f.settings, f.session)
	return f
}

func TestImportFile(t *testing.T) {
	t.Parallel()
	f := setup(t)

	path := filepath.Join(t.TempDir(), "story.txt")
	require.NoError(t, os.WriteFile(path, []byte("Chapter 1\r\n\r\n  It was   late.\rThe end.\n"), 0o600))

	book, err := f.svc.ImportFile(f.ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "story.txt", book.ID)
	assert.Equal(t, "story.txt", book.Name)
	assert.Equal(t, []string{"Chapter 1", "It was late.", "The end."}, book.Paragraphs)

	stored, err := f.books.RetrieveBook(f.ctx, "story.txt")
	require.NoError(t, err)
	assert.Equal(t, book.Paragraphs, stored.Paragraphs)
	assert.False(t, stored.Synced)
}

func TestImport_ReplacesExisting(t *testing.T) {
	t.Parallel()
	f := setup(t)

	_, err := f.svc.Import(f.ctx, "a.txt", []byte("one\ntwo\nthree"))
	require.NoError(t, err)
	require.NoError(t, f.books.UpdateProgress(f.ctx, "a.txt", models.Progress{ParagraphIndex: 2}))
	require.NoError(t, f.books.MarkSynced(f.ctx, "a.txt"))

	_, err = f.svc.Import(f.ctx, "a.txt", []byte("uno\ndos"))
	require.NoError(t, err)

	stored, err := f.books.RetrieveBook(f.ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"uno", "dos"}, stored.Paragraphs)
	assert.Equal(t, 0, stored.Progress.ParagraphIndex)
	assert.False(t, stored.Synced)
	assert.Equal(t, []string{"a.txt", "a.txt"}, f.session.forgotten)
}

func TestImport_Rejects(t *testing.T) {
	t.Parallel()
	f := setup(t)

	cases := []struct {
		name string
		file string
		data []byte
	}{
		{"png", "cover.txt", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")},
		{"invalid utf-8", "latin1.txt", []byte("caf\xe9")},
		{"blank", "blank.txt", []byte(" \n\t\r\n")},
		{"no name", "", []byte("text")},
	}
	for _, tt := range cases {
		_, err := f.svc.Import(f.ctx, tt.file, tt.data)
		assert.True(t, errcodes.HasCode(err, errcodes.CodeInvalidInput), tt.name)
	}

	list, err := f.books.ListBooks(f.ctx, books.ListBooksOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestImportFile_Directory(t *testing.T) {
	t.Parallel()
	f := setup(t)

	_, err := f.svc.ImportFile(f.ctx, t.TempDir())
	assert.True(t, errcodes.HasCode(err, errcodes.CodeInvalidInput))
}

func TestDelete(t *testing.T) {
	t.Parallel()
	f := setup(t)

	_, err := f.svc.Import(f.ctx, "a.txt", []byte("one"))
	require.NoError(t, err)
	_, err = f.svc.Import(f.ctx, "b.txt", []byte("two"))
	require.NoError(t, err)
	require.NoError(t, f.settings.SaveLastBookID(f.ctx, "a.txt"))

	require.NoError(t, f.svc.Delete(f.ctx, "b.txt"))
	last, err := f.settings.LastBookID(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", last)

	require.NoError(t, f.svc.Delete(f.ctx, "a.txt"))
	last, err = f.settings.LastBookID(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, last)

	_, err = f.books.RetrieveBook(f.ctx, "a.txt")
	assert.True(t, errcodes.HasCode(err, errcodes.CodeNotFound))
	assert.Contains(t, f.session.forgotten, "a.txt")

	err = f.svc.Delete(f.ctx, "a.txt")
	assert.True(t, errcodes.HasCode(err, errcodes.CodeNotFound))
}
