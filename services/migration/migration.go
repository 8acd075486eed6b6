package migration

import (
	"github.com/go-pg/migrations/v8"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	services "github.com/webtor-io/common-services"
)

const sqlDir = "migrations"

// PGMigration applies the SQL migrations found in the migrations directory.
type PGMigration struct {
	db  *services.PG
	col *migrations.Collection
	dir string
}

func NewPGMigration(db *services.PG, col *migrations.Collection) *PGMigration {
	return &PGMigration{
		db:  db,
		col: col,
		dir: sqlDir,
	}
}

func (s *PGMigration) Run(a ...string) error {
	db := s.db.Get()
	if db == nil {
		log.Info("DB not initialized, skipping migration")
		return nil
	}
	err := s.col.DiscoverSQLMigrations(s.dir)
	if err != nil {
		return errors.Wrapf(err, "failed to discover migrations in %v", s.dir)
	}
	_, _, err = s.col.Run(db, "init")
	if err != nil {
		return errors.Wrap(err, "failed to init migrations table")
	}
	oldVersion, newVersion, err := s.col.Run(db, a...)
	if err != nil {
		return errors.Wrapf(err, "failed to migrate from %v to %v", oldVersion, newVersion)
	}
	log.WithField("old_version", oldVersion).
		WithField("new_version", newVersion).
		WithField("args", a).
		Info("permission grant schema migrated")
	return nil
}
