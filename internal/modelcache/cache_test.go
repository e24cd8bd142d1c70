package modelcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/migrations"
	"github.com/Arize-ai/phoenix-sub001/internal/repos"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

func newTestCache(t *testing.T) (*Cache, repos.ModelRepo) {
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
	repo := repos.NewModelRepo(svc.DB(), log)
	return New(repo, log, time.Hour), repo
}

func TestPollMergesNewAndUpdatedModels(t *testing.T) {
	cache, repo := newTestCache(t)
	ctx := context.Background()

	model, err := repo.Create(ctx, nil, &types.GenerativeModel{
		Name: "gpt-4o", Provider: "openai", NamePattern: "^gpt-4o",
	})
	if err != nil {
		t.Fatalf("create model: %v", err)
	}
	if err := cache.Poll(ctx); err != nil {
		t.Fatalf("poll: %v", err)
	}
	got := cache.Get(model.ID)
	if got == nil || got.Name != "gpt-4o" {
		t.Fatalf("model not cached: %+v", got)
	}

	model.NamePattern = "^gpt-4o.*"
	if _, err := repo.Update(ctx, nil, model); err != nil {
		t.Fatalf("update model: %v", err)
	}
	if err := cache.Poll(ctx); err != nil {
		t.Fatalf("second poll: %v", err)
	}
	got = cache.Get(model.ID)
	if got.NamePattern != "^gpt-4o.*" {
		t.Errorf("pattern = %q, update not merged", got.NamePattern)
	}
	if len(cache.List()) != 1 {
		t.Errorf("list size = %d, want 1", len(cache.List()))
	}
}

func TestPollRemovesSoftDeletedModels(t *testing.T) {
	cache, repo := newTestCache(t)
	ctx := context.Background()

	model, err := repo.Create(ctx, nil, &types.GenerativeModel{
		Name: "claude", Provider: "anthropic", NamePattern: "^claude",
	})
	if err != nil {
		t.Fatalf("create model: %v", err)
	}
	if err := cache.Poll(ctx); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if cache.Get(model.ID) == nil {
		t.Fatal("model missing after first poll")
	}

	if err := repo.SoftDelete(ctx, nil, model.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := cache.Poll(ctx); err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if cache.Get(model.ID) != nil {
		t.Fatal("deleted model still cached")
	}
}

func TestWatermarkAdvancesOnEmptyPolls(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	if err := cache.Poll(ctx); err != nil {
		t.Fatalf("poll: %v", err)
	}
	first := cache.Watermark()
	if first.IsZero() {
		t.Fatal("watermark still zero after a poll")
	}
	time.Sleep(5 * time.Millisecond)
	if err := cache.Poll(ctx); err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if !cache.Watermark().After(first) {
		t.Errorf("watermark did not advance: %v -> %v", first, cache.Watermark())
	}
}

func TestListIsSortedByID(t *testing.T) {
	cache, repo := newTestCache(t)
	ctx := context.Background()

	for _, name := range []string{"c", "a", "b"} {
		if _, err := repo.Create(ctx, nil, &types.GenerativeModel{
			Name: name, Provider: "test", NamePattern: name,
		}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	if err := cache.Poll(ctx); err != nil {
		t.Fatalf("poll: %v", err)
	}
	models := cache.List()
	if len(models) != 3 {
		t.Fatalf("list size = %d, want 3", len(models))
	}
	for i := 1; i < len(models); i++ {
		if models[i-1].ID >= models[i].ID {
			t.Fatalf("list not sorted by id: %d before %d", models[i-1].ID, models[i].ID)
		}
	}
}
