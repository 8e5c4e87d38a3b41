package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Migrations holds the schema of the reader's local store.
var Migrations = migrate.NewMigrations()

// RemoteMigrations holds the schema of the sync server's store. Its history is
// kept in separate tables so both can share a database file.
var RemoteMigrations = migrate.NewMigrations()

// NewMigrator returns the migrator for the local store, or for the sync
// server's store when remote is true.
func NewMigrator(db *bun.DB, remote bool) *migrate.Migrator {
	if remote {
		return migrate.NewMigrator(db, RemoteMigrations,
			migrate.WithTableName("bun_remote_migrations"),
			migrate.WithLocksTableName("bun_remote_migration_locks"),
		)
	}
	return migrate.NewMigrator(db, Migrations)
}

func BringUpToDate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	return bringUpToDate(ctx, NewMigrator(db, false))
}

func BringRemoteUpToDate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	return bringUpToDate(ctx, NewMigrator(db, true))
}

func bringUpToDate(ctx context.Context, migrator *migrate.Migrator) (*migrate.MigrationGroup, error) {
	err := migrator.Init(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return group, nil
}
