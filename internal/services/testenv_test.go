package services

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/migrations"
)

// newTestDB opens a file-backed sqlite database in a temp dir and runs the
// full migration chain so services see the production schema.
func newTestDB(t *testing.T) (*gorm.DB, *logger.Logger) {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	svc, err := db.New(db.Config{URL: "sqlite://" + filepath.Join(t.TempDir(), "test.db")}, log)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	engine := migrations.NewEngine(svc, log)
	if err := engine.Upgrade(context.Background(), migrations.Head); err != nil {
		t.Fatalf("schema upgrade failed: %v", err)
	}
	return svc.DB(), log
}

func raw(s string) []byte { return []byte(s) }
