package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/urfave/cli/v2"
	"github.com/xreader/xreader/pkg/config"
	"github.com/xreader/xreader/pkg/database"
	"github.com/xreader/xreader/pkg/migrations"
	"github.com/xreader/xreader/pkg/server"
	"github.com/xreader/xreader/pkg/syncserver"
	"github.com/xreader/xreader/pkg/version"
)

func main() {
	app := &cli.App{
		Name:    "syncserver",
		Usage:   "mirror xreader books and reading progress",
		Version: version.Version,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the sync server",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "bring the sync server's schema up to date",
				Action: func(c *cli.Context) error {
					log := logger.New()
					cfg, err := config.New()
					if err != nil {
						return err
					}
					db, err := database.New(cfg)
					if err != nil {
						return err
					}
					defer db.Close()

					group, err := migrations.BringRemoteUpToDate(c.Context, db)
					if err != nil {
						return err
					}
					if group.ID == 0 {
						log.Info("no new migrations to run")
						return nil
					}
					log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
					return nil
				},
			},
			{
				Name:      "hash-token",
				Usage:     "print the token hash to configure for a client token",
				ArgsUsage: "<token>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("usage: syncserver hash-token <token>", 1)
					}
					cfg, err := config.New()
					if err != nil {
						return err
					}
					if cfg.SyncSecretKey == "" {
						return cli.Exit("SYNC_SECRET_KEY must be set", 1)
					}
					fmt.Println(syncserver.HashToken([]byte(cfg.SyncSecretKey), c.Args().First()))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.New().Err(err).Fatal("app run error")
	}
}

func serve(c *cli.Context) error {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting syncserver", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringRemoteUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	srv, err := server.New(cfg, db)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", srv.Addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		actualPort := listener.Addr().(*net.TCPAddr).Port
		log.Info("server started", logger.Data{"host": cfg.ServerHost, "port": actualPort})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")

	return nil
}
