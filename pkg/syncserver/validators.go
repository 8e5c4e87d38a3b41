package syncserver

import "github.com/xreader/xreader/pkg/models"

type PutBookPayload struct {
	BookID  string `json:"bookId" validate:"bookid"`
	Content string `json:"content" validate:"required"`
}

type PutProgressPayload struct {
	BookID   string           `json:"bookId" validate:"bookid"`
	Progress *models.Progress `json:"progress" validate:"required"`
}

type RetrieveProgressParams struct {
	BookID string `param:"bookId" json:"-" validate:"bookid"`
}
