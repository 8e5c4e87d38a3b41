package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
	"github.com/xreader/xreader/pkg/binder"
	"github.com/xreader/xreader/pkg/config"
	"github.com/xreader/xreader/pkg/errcodes"
	"github.com/xreader/xreader/pkg/syncserver"
)

// bodyLimit leaves room for large plain-text books.
const bodyLimit = "50M"

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e, err := NewEcho(cfg, db)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

// NewEcho builds the sync server's router.
func NewEcho(cfg *config.Config, db *bun.DB) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit(bodyLimit))

	authMiddleware := syncserver.NewMiddleware(cfg.SyncSecretKey, cfg.SyncTokenHash)
	syncserver.RegisterRoutes(e, db, authMiddleware)

	e.RouteNotFound("/*", notFoundHandler)
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
