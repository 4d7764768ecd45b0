// Package storage opens the configured analysis store and keeps its schema
// current.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/fived/therapists/internal/analysis"
	"github.com/fived/therapists/internal/config"
)

// Store is an opened Repository plus whatever must be closed on shutdown.
type Store struct {
	analysis.Repository
	io.Closer
}

// Connect retry policy for a database that is still starting.
var (
	ConnectAttempts = 10
	ConnectBackoff  = 2 * time.Second
)

// Open connects to the driver named in cfg. For postgres it waits for the
// server, then runs pending migrations when cfg.Migrations is set.
func Open(ctx context.Context, cfg config.DBConfig, log logrus.FieldLogger) (*Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		repo, err := analysis.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.WithField("path", cfg.SQLitePath).Info("using sqlite store")
		return &Store{Repository: repo, Closer: repo}, nil

	case config.DriverPostgres:
		db, err := connectPostgres(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		if cfg.Migrations != "" {
			if err := Migrate(cfg.DSN, cfg.Migrations, log); err != nil {
				db.Close()
				return nil, err
			}
		}
		return &Store{Repository: analysis.NewPostgresRepository(db), Closer: db}, nil

	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

func connectPostgres(ctx context.Context, dsn string, log logrus.FieldLogger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	for i := 1; ; i++ {
		err = db.PingContext(ctx)
		if err == nil {
			log.Info("connected to database")
			return db, nil
		}
		if i >= ConnectAttempts {
			break
		}
		log.WithError(err).Infof("waiting for database (%d/%d)", i, ConnectAttempts)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(ConnectBackoff):
		}
	}
	db.Close()
	return nil, fmt.Errorf("could not connect to database: %w", err)
}

// Migrate applies every pending up migration from source, e.g.
// "file://migrations".
func Migrate(dsn, source string, log logrus.FieldLogger) error {
	m, err := migrate.New(source, dsn)
	if err != nil {
		return fmt.Errorf("migration init failed: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("migrations applied")
	return nil
}
