package migrations

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
	"github.com/Arize-ai/phoenix-sub001/internal/logger"
)

func mustExec(t *testing.T, conn *gorm.DB, sql string, args ...any) {
	t.Helper()
	if err := conn.Exec(sql, args...).Error; err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
}

func newTestEngine(t *testing.T) (*Engine, *db.Service) {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	path := filepath.Join(t.TempDir(), "migrate.db")
	svc, err := db.New(db.Config{URL: "sqlite://" + path}, log)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	return NewEngine(svc, log), svc
}

// allTables is every table any revision creates, plus the version pointer.
var allTables = []string{
	"projects", "traces", "spans",
	"span_annotations", "trace_annotations", "document_annotations",
	"datasets", "dataset_versions", "dataset_examples", "dataset_example_revisions",
	"experiments", "experiment_runs", "experiments_dataset_examples",
	"users", "secrets",
	"project_sessions", "project_session_annotations",
	"prompts", "prompt_versions", "generative_models", "token_prices",
	"migration_version",
}
