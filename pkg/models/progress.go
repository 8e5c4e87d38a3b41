package models

import (
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// Progress is a reading position. Page is always derived from ParagraphIndex
// and the page size in effect when it was recorded.
type Progress struct {
	Page           int `bun:"page,notnull" json:"page"`
	ParagraphIndex int `bun:"paragraph_index,notnull" json:"paragraphIndex"`
}

// NewProgress builds a Progress for paragraph i with the page derived from
// pageSize.
func NewProgress(i, pageSize int) Progress {
	page := 0
	if pageSize > 0 && i > 0 {
		page = i / pageSize
	}
	return Progress{Page: page, ParagraphIndex: i}
}

// Ahead reports whether p is strictly further into the book than other.
func (p Progress) Ahead(other Progress) bool {
	return p.ParagraphIndex > other.ParagraphIndex
}

type progressPayload struct {
	Page           *int `json:"page"`
	ParagraphIndex *int `json:"paragraphIndex"`
	ParaIndex      *int `json:"paraIndex"`
}

// UnmarshalJSON accepts both paragraphIndex and the older paraIndex key.
func (p *Progress) UnmarshalJSON(data []byte) error {
	payload := progressPayload{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return errors.WithStack(err)
	}
	if payload.Page == nil {
		return errors.New("progress is missing page")
	}
	idx := payload.ParagraphIndex
	if idx == nil {
		idx = payload.ParaIndex
	}
	if idx == nil {
		return errors.New("progress is missing paragraphIndex")
	}
	p.Page = *payload.Page
	p.ParagraphIndex = *idx
	return nil
}
