package syncserver

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/xreader/xreader/pkg/errcodes"
	"github.com/xreader/xreader/pkg/migrations"
	"github.com/xreader/xreader/pkg/models"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringRemoteUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func storedContent(t *testing.T, db *bun.DB, bookID string) string {
	t.Helper()
	book := &models.RemoteBook{}
	err := db.NewSelect().Model(book).Where("rb.id = ?", bookID).Scan(context.Background())
	require.NoError(t, err)
	return book.Content
}

func TestService_Book(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db)

	require.NoError(t, svc.PutBook(ctx, "a.txt", "first"))
	require.NoError(t, svc.PutBook(ctx, "a.txt", "second"))

	assert.Equal(t, "second", storedContent(t, db, "a.txt"))
}

func TestService_Progress(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	_, err := svc.RetrieveProgress(ctx, "a.txt")
	assert.True(t, errcodes.HasCode(err, errcodes.CodeNotFound))

	require.NoError(t, svc.PutProgress(ctx, "a.txt", models.Progress{Page: 2, ParagraphIndex: 45}))
	require.NoError(t, svc.PutProgress(ctx, "a.txt", models.Progress{Page: 0, ParagraphIndex: 4}))
	require.NoError(t, svc.PutProgress(ctx, "b.txt", models.Progress{Page: 1, ParagraphIndex: 20}))

	rp, err := svc.RetrieveProgress(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, models.Progress{Page: 0, ParagraphIndex: 4}, rp.Progress)

	rp, err = svc.RetrieveProgress(ctx, "b.txt")
	require.NoError(t, err)
	assert.Equal(t, 20, rp.Progress.ParagraphIndex)
}

func TestService_ProgressOnFirstPage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	require.NoError(t, svc.PutProgress(ctx, "new.txt", models.Progress{Page: 0, ParagraphIndex: 5}))
	rp, err := svc.RetrieveProgress(ctx, "new.txt")
	require.NoError(t, err)
	assert.Equal(t, models.Progress{Page: 0, ParagraphIndex: 5}, rp.Progress)

	require.NoError(t, svc.PutProgress(ctx, "new.txt", models.Progress{}))
	rp, err = svc.RetrieveProgress(ctx, "new.txt")
	require.NoError(t, err)
	assert.Equal(t, models.Progress{}, rp.Progress)
}

func TestHashToken(t *testing.T) {
	t.Parallel()

	// echo -n dev-token | openssl dgst -md5 -hmac secret
	assert.Equal(t, "392372f6bf275d528d510cf7f31add1d", HashToken([]byte("secret"), "dev-token"))
	assert.NotEqual(t, HashToken([]byte("secret"), "dev-token"), HashToken([]byte("other"), "dev-token"))
}

func TestMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	hash := HashToken([]byte("secret"), "dev-token")
	ok := func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}

	cases := []struct {
		name   string
		secret string
		hash   string
		header string
		want   bool
	}{
		{"valid", "secret", hash, "Bearer dev-token", true},
		{"case-insensitive scheme and hash", "secret", " " + hash + " ", "bearer dev-token", true},
		{"wrong token", "secret", hash, "Bearer nope", false},
		{"missing header", "secret", hash, "", false},
		{"basic scheme", "secret", hash, "Basic dev-token", false},
		{"unconfigured secret", "", hash, "Bearer dev-token", false},
		{"unconfigured hash", "secret", "", "Bearer dev-token", false},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			c := e.NewContext(req, httptest.NewRecorder())

			err := NewMiddleware(tt.secret, tt.hash).Authenticate(ok)(c)
			if tt.want {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errcodes.HasCode(err, errcodes.CodeUnauthorized))
		})
	}
}
