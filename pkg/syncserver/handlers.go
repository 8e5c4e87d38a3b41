package syncserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/xreader/xreader/pkg/models"
)

type handler struct {
	service *Service
}

type statusResponse struct {
	Status string `json:"status"`
}

type progressResponse struct {
	BookID   string          `json:"bookId"`
	Progress models.Progress `json:"progress"`
}

func (h *handler) health(c echo.Context) error {
	return errors.WithStack(c.JSON(http.StatusOK, statusResponse{"ok"}))
}

func (h *handler) putBook(c echo.Context) error {
	ctx := c.Request().Context()

	params := PutBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if err := h.service.PutBook(ctx, params.BookID, params.Content); err != nil {
		return errors.WithStack(err)
	}
	logger.FromContext(ctx).Info("stored book", logger.Data{"book_id": params.BookID, "bytes": len(params.Content)})

	return errors.WithStack(c.JSON(http.StatusOK, statusResponse{"success"}))
}

func (h *handler) putProgress(c echo.Context) error {
	ctx := c.Request().Context()

	params := PutProgressPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if err := h.service.PutProgress(ctx, params.BookID, *params.Progress); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, statusResponse{"success"}))
}

func (h *handler) retrieveProgress(c echo.Context) error {
	ctx := c.Request().Context()

	params := RetrieveProgressParams{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	rp, err := h.service.RetrieveProgress(ctx, params.BookID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, progressResponse{
		BookID:   rp.BookID,
		Progress: rp.Progress,
	}))
}
