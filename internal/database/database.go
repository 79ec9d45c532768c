// Package database provides database connection and migration functionality.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"net/url"
	"strings"
	"sync"

	"telugulearn/internal/config"
	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"

	// Import PostgreSQL driver for database/sql
	_ "github.com/lib/pq"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // required for golang-migrate postgres driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // required for golang-migrate file source
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"go.nhat.io/otelsql"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Manager handles database operations with proper logging
type Manager struct {
	logger *observability.Logger
}

var (
	otelDriverNameCache string
	otelDriverOnce      sync.Once
	otelDriverErr       error
)

// NewManager creates a new database manager with the provided logger
func NewManager(logger *observability.Logger) *Manager {
	return &Manager{
		logger: logger,
	}
}

// DefaultDatabaseConfig returns the default pool configuration for url
func DefaultDatabaseConfig(databaseURL string) config.DatabaseConfig {
	return config.DatabaseConfig{
		URL:             databaseURL,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: config.DatabaseConnMaxLifetime,
	}
}

// InitDB opens a connection and applies the embedded migrations
func (dm *Manager) InitDB(databaseURL string) (result0 *sql.DB, err error) {
	return dm.InitDBWithConfig(DefaultDatabaseConfig(databaseURL), "")
}

// InitDBWithConfig opens a connection with the given pool settings and applies
// migrations from migrationsPath, or the embedded set when it is empty.
func (dm *Manager) InitDBWithConfig(cfg config.DatabaseConfig, migrationsPath string) (result0 *sql.DB, err error) {
	ctx, span := observability.TraceDatabaseFunction(context.Background(), "InitDBWithConfig",
		attribute.String("db.name", extractDatabaseName(cfg.URL)),
		attribute.String("db.system", "postgresql"),
		attribute.Bool("migrations.enabled", true),
		attribute.Int("db.max_open_conns", cfg.MaxOpenConns),
		attribute.Int("db.max_idle_conns", cfg.MaxIdleConns),
	)
	defer observability.FinishSpan(span, &err)

	if err := dm.RunMigrations(ctx, cfg.URL, migrationsPath); err != nil {
		return nil, err
	}

	return dm.InitDBWithoutMigrations(cfg)
}

// extractDatabaseName extracts the database name from a PostgreSQL connection string
func extractDatabaseName(databaseURL string) string {
	if u, err := url.Parse(databaseURL); err == nil && u.Path != "" {
		if dbName := strings.TrimPrefix(u.Path, "/"); dbName != "" {
			return dbName
		}
	}

	// key=value DSN form: "host=localhost dbname=telugu sslmode=disable"
	for _, part := range strings.Fields(databaseURL) {
		if name, ok := strings.CutPrefix(part, "dbname="); ok && name != "" {
			return name
		}
	}

	return "telugu_db"
}

// InitDBWithoutMigrations initializes and returns a database connection without running migrations
func (dm *Manager) InitDBWithoutMigrations(cfg config.DatabaseConfig) (result0 *sql.DB, err error) {
	ctx, span := observability.TraceDatabaseFunction(context.Background(), "InitDBWithoutMigrations",
		attribute.String("db.name", extractDatabaseName(cfg.URL)),
	)
	defer observability.FinishSpan(span, &err)

	if cfg.URL == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "database url is empty")
	}

	// Register OpenTelemetry SQL driver once per process and reuse the name
	otelDriverOnce.Do(func() {
		otelDriverNameCache, otelDriverErr = otelsql.Register("postgres",
			otelsql.WithDatabaseName(extractDatabaseName(cfg.URL)),
			otelsql.TraceQueryWithoutArgs(),
			otelsql.WithSystem(semconv.DBSystemPostgreSQL),
			otelsql.TraceRowsAffected(),
		)
	})
	if otelDriverErr != nil {
		return nil, contextutils.WrapError(otelDriverErr, "failed to register otelsql driver")
	}

	db, err := sql.Open(otelDriverNameCache, cfg.URL)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to open database connection")
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			dm.logger.Error(ctx, "Failed to close database connection after ping failure", closeErr)
		}
		return nil, contextutils.WrapError(contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeDatabaseConnection, contextutils.SeverityError,
			"failed to ping database", "", err), "database unavailable")
	}

	dm.logger.Info(ctx, "Database connection established", map[string]interface{}{
		"max_open_conns":    cfg.MaxOpenConns,
		"max_idle_conns":    cfg.MaxIdleConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime.String(),
	})

	return db, nil
}

// newMigrate builds a migrator for databaseURL using migrationsPath (file://...)
// or the embedded migrations when the path is empty.
func newMigrate(databaseURL, migrationsPath string) (*migrate.Migrate, error) {
	if migrationsPath != "" {
		if !strings.Contains(migrationsPath, "://") {
			migrationsPath = "file://" + migrationsPath
		}
		return migrate.New(migrationsPath, databaseURL)
	}

	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", src, databaseURL)
}

// RunMigrations applies all pending up migrations
func (dm *Manager) RunMigrations(ctx context.Context, databaseURL, migrationsPath string) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "RunMigrations",
		attribute.String("db.system", "postgresql"),
		attribute.Bool("migration.embedded", migrationsPath == ""),
	)
	defer observability.FinishSpan(span, &err)

	m, err := newMigrate(databaseURL, migrationsPath)
	if err != nil {
		return contextutils.WrapError(err, "failed to initialize golang-migrate")
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			dm.logger.Warn(ctx, "Error closing migration", map[string]interface{}{
				"source_error": errString(srcErr),
				"db_error":     errString(dbErr),
			})
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		dm.logger.Info(ctx, "No new migrations to apply")
		return nil
	}
	if err != nil {
		return contextutils.WrapError(err, "migrate up failed")
	}

	version, dirty, _ := m.Version()
	span.SetAttributes(attribute.Int("migration.version", int(version)))
	dm.logger.Info(ctx, "Database migrations applied", map[string]interface{}{
		"version": version,
		"dirty":   dirty,
	})
	return nil
}

// MigrateDown rolls back the given number of migration steps
func (dm *Manager) MigrateDown(ctx context.Context, databaseURL, migrationsPath string, steps int) (err error) {
	ctx, span := observability.TraceDatabaseFunction(ctx, "MigrateDown", attribute.Int("migration.steps", steps))
	defer observability.FinishSpan(span, &err)

	if steps <= 0 {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "steps must be positive")
	}

	m, err := newMigrate(databaseURL, migrationsPath)
	if err != nil {
		return contextutils.WrapError(err, "failed to initialize golang-migrate")
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return contextutils.WrapError(err, "migrate down failed")
	}
	dm.logger.Info(ctx, "Rolled back migrations", map[string]interface{}{"steps": steps})
	return nil
}

// MigrationVersion reports the current schema version
func (dm *Manager) MigrationVersion(databaseURL, migrationsPath string) (uint, bool, error) {
	m, err := newMigrate(databaseURL, migrationsPath)
	if err != nil {
		return 0, false, contextutils.WrapError(err, "failed to initialize golang-migrate")
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
