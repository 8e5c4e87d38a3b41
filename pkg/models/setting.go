package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	SettingLastBookID = "last_book_id"
	SettingSync       = "sync"
	SettingRate       = "rate"
	SettingVoiceName  = "voice_name"
)

// Setting is a single key/value pair of reader state that isn't tied to a
// book. Values are JSON documents.
type Setting struct {
	bun.BaseModel `bun:"table:settings,alias:s"`

	Key       string    `bun:",pk" json:"key"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updated_at"`
	Value     string    `bun:",notnull" json:"value"`
}

// SyncSettings configures the remote mirror.
type SyncSettings struct {
	URL     string `json:"syncUrl"`
	Token   string `json:"syncToken"`
	Enabled bool   `json:"enabled"`
}

// Configured reports whether the settings carry enough to reach a remote.
func (s SyncSettings) Configured() bool {
	return s.URL != "" && s.Token != ""
}

// Active reports whether background mirroring should happen.
func (s SyncSettings) Active() bool {
	return s.Enabled && s.Configured()
}
