package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Arize-ai/phoenix-sub001/internal/logger"
)

// Dialect tags the backend in use. Migration steps and the introspection
// helpers branch on it; nothing else should.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

type Config struct {
	// URL selects the backend: "sqlite:///path/to.db", "sqlite://:memory:",
	// or a "postgres://..." DSN.
	URL string
	// Schema optionally qualifies the version-pointer table on PostgreSQL.
	Schema string
}

type Service struct {
	db      *gorm.DB
	dialect Dialect
	schema  string
	log     *logger.Logger
}

func New(cfg Config, logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "DBService")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gormCfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
	}

	var (
		conn    *gorm.DB
		dialect Dialect
		err     error
	)
	switch {
	case strings.HasPrefix(cfg.URL, "sqlite://"):
		path := strings.TrimPrefix(cfg.URL, "sqlite://")
		if path == ":memory:" || path == "" {
			path = "file::memory:?cache=shared"
		}
		// PRAGMA foreign_keys is per-connection, so it has to ride the
		// DSN to reach every connection the pool hands out.
		if strings.Contains(path, "?") {
			path += "&_foreign_keys=on"
		} else {
			path += "?_foreign_keys=on"
		}
		conn, err = gorm.Open(sqlite.Open(path), gormCfg)
		dialect = SQLite
	case strings.HasPrefix(cfg.URL, "postgres://"), strings.HasPrefix(cfg.URL, "postgresql://"):
		conn, err = gorm.Open(postgres.Open(cfg.URL), gormCfg)
		dialect = Postgres
	default:
		return nil, fmt.Errorf("unsupported database url %q", cfg.URL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dialect, err)
	}

	return &Service{db: conn, dialect: dialect, schema: cfg.Schema, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB       { return s.db }
func (s *Service) Dialect() Dialect   { return s.dialect }
func (s *Service) SchemaName() string { return s.schema }

// PostgresURLFromEnvParts assembles a DSN the way deployments that pass
// discrete POSTGRES_* variables expect.
func PostgresURLFromEnvParts(host, port, user, password, name string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
}
