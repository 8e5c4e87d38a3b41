package syncserver

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers the sync routes, all behind token auth.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *Middleware) {
	h := &handler{
		service: NewService(db),
	}

	mw := []echo.MiddlewareFunc{authMiddleware.Authenticate, AllowUnknownFields}
	e.GET("/health", h.health, mw...)
	e.POST("/book", h.putBook, mw...)
	e.POST("/sync", h.putProgress, mw...)
	e.GET("/sync/:bookId", h.retrieveProgress, mw...)
}
