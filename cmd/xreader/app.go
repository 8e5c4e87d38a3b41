package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"github.com/xreader/xreader/pkg/books"
	"github.com/xreader/xreader/pkg/config"
	"github.com/xreader/xreader/pkg/database"
	"github.com/xreader/xreader/pkg/library"
	"github.com/xreader/xreader/pkg/migrations"
	"github.com/xreader/xreader/pkg/playback"
	"github.com/xreader/xreader/pkg/progress"
	"github.com/xreader/xreader/pkg/settings"
	"github.com/xreader/xreader/pkg/syncer"
	"github.com/xreader/xreader/pkg/tts"
)

// app holds everything a command needs. The speech engine and controller are
// only built for commands that speak or list voices.
type app struct {
	cfg      *config.Config
	db       *bun.DB
	books    *books.Service
	settings *settings.Service
	syncer   *syncer.Service
	mirror   *progress.Mirror
	store    *progress.Store
	library  *library.Service

	engine     tts.Engine
	controller *playback.Controller
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		db.Close()
		return nil, errors.WithStack(err)
	}
	if group.ID != 0 {
		logger.FromContext(ctx).Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	a := &app{
		cfg:      cfg,
		db:       db,
		books:    books.NewService(db),
		settings: settings.NewService(db),
	}
	a.syncer = syncer.NewService(a.books, a.settings, syncer.Options{
		PageSize: cfg.PageSize,
		Timeout:  cfg.SyncTimeout,
	})
	a.mirror = progress.NewMirror(ctx, a.syncer, cfg.SyncDebounce)
	a.store = progress.NewStore(a.books, a.settings, a.mirror)
	a.library = library.NewService(a.books, a.settings, nil)

	return a, nil
}

// startSpeech registers the speech engine, loads its voices in the
// background and builds the playback controller.
func (a *app) startSpeech(ctx context.Context) error {
	engine, err := tts.NewCommandEngine(tts.CommandConfig{
		BinaryPath:   a.cfg.TTSBinary,
		DefaultVoice: a.cfg.TTSDefaultVoice,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	registry := tts.NewRegistry()
	if err := registry.Register(engine); err != nil {
		return errors.WithStack(err)
	}
	a.engine, err = registry.Default()
	if err != nil {
		return errors.WithStack(err)
	}

	voice, err := a.settings.VoiceName(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if voice == "" {
		voice = a.cfg.TTSDefaultVoice
	}
	rate, err := a.settings.Rate(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	a.controller = playback.New(ctx, a.engine, a.store, playback.Options{
		PageSize: a.cfg.PageSize,
		Voice:    voice,
		Rate:     rate,
	})
	a.library = library.NewService(a.books, a.settings, a.controller)

	go a.controller.WatchVoices(ctx)
	go func() {
		if err := engine.LoadVoices(ctx); err != nil {
			logger.FromContext(ctx).Err(err).Error("failed to load voices")
		}
	}()
	return nil
}

// loadVoices blocks until the engine has listed its voices.
func (a *app) loadVoices(ctx context.Context) ([]tts.Voice, error) {
	engine, err := tts.NewCommandEngine(tts.CommandConfig{
		BinaryPath:   a.cfg.TTSBinary,
		DefaultVoice: a.cfg.TTSDefaultVoice,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := engine.LoadVoices(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return engine.Voices(ctx)
}

// close stops speech, pushes any pending progress and closes the database.
func (a *app) close(ctx context.Context) {
	log := logger.FromContext(ctx)
	if a.controller != nil {
		a.controller.Close(ctx)
	}
	a.mirror.Flush()
	a.mirror.Stop()
	if err := a.db.Close(); err != nil {
		log.Err(err).Error("database close error")
	}
}
