package settings

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
	"github.com/xreader/xreader/pkg/models"
)

const DefaultRate = 1.0

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// Get decodes the value stored under key into dest. It reports false, leaving
// dest untouched, when nothing has been stored yet.
func (svc *Service) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	setting := &models.Setting{}
	err := svc.db.NewSelect().
		Model(setting).
		Where("key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}

	if err := json.Unmarshal([]byte(setting.Value), dest); err != nil {
		return false, errors.Wrapf(err, "failed to decode setting %s", key)
	}

	return true, nil
}

// Put stores value under key, creating or replacing it.
func (svc *Service) Put(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.WithStack(err)
	}

	setting := &models.Setting{
		Key:       key,
		UpdatedAt: time.Now(),
		Value:     string(data),
	}

	_, err = svc.db.NewInsert().
		Model(setting).
		On("CONFLICT (key) DO UPDATE").
		Set("updated_at = EXCLUDED.updated_at").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) Delete(ctx context.Context, key string) error {
	_, err := svc.db.NewDelete().
		Model((*models.Setting)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	return errors.WithStack(err)
}

// SyncSettings returns the remote mirror settings, or zero settings (disabled)
// when none are stored.
func (svc *Service) SyncSettings(ctx context.Context) (models.SyncSettings, error) {
	s := models.SyncSettings{}
	_, err := svc.Get(ctx, models.SettingSync, &s)
	return s, err
}

func (svc *Service) SaveSyncSettings(ctx context.Context, s models.SyncSettings) error {
	return svc.Put(ctx, models.SettingSync, s)
}

// Rate returns the speaking rate, DefaultRate when unset.
func (svc *Service) Rate(ctx context.Context) (float64, error) {
	rate := DefaultRate
	_, err := svc.Get(ctx, models.SettingRate, &rate)
	return rate, err
}

func (svc *Service) SaveRate(ctx context.Context, rate float64) error {
	return svc.Put(ctx, models.SettingRate, rate)
}

// VoiceName returns the name of the voice picked last, empty when unset.
func (svc *Service) VoiceName(ctx context.Context) (string, error) {
	name := ""
	_, err := svc.Get(ctx, models.SettingVoiceName, &name)
	return name, err
}

func (svc *Service) SaveVoiceName(ctx context.Context, name string) error {
	return svc.Put(ctx, models.SettingVoiceName, name)
}

// LastBookID returns the ID of the book read most recently, empty when unset.
func (svc *Service) LastBookID(ctx context.Context) (string, error) {
	id := ""
	_, err := svc.Get(ctx, models.SettingLastBookID, &id)
	return id, err
}

func (svc *Service) SaveLastBookID(ctx context.Context, id string) error {
	return svc.Put(ctx, models.SettingLastBookID, id)
}
