package migrations

import (
	"context"
	"strings"
	"testing"

	"github.com/Arize-ai/phoenix-sub001/internal/introspect"
)

func TestUpgradeToHeadSetsVersionPointer(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if err := engine.Upgrade(ctx, Head); err != nil {
		t.Fatalf("upgrade to head failed: %v", err)
	}
	current, err := engine.Current(ctx)
	if err != nil {
		t.Fatalf("failed to read current version: %v", err)
	}
	revisions := engine.Revisions()
	want := revisions[len(revisions)-1].ID
	if current != want {
		t.Fatalf("current version = %q, want %q", current, want)
	}
}

func TestUpgradeIsIdempotent(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if err := engine.Upgrade(ctx, Head); err != nil {
		t.Fatalf("first upgrade failed: %v", err)
	}
	if err := engine.Upgrade(ctx, Head); err != nil {
		t.Fatalf("second upgrade failed: %v", err)
	}
}

func TestDowngradeToBaseRemovesAllTables(t *testing.T) {
	engine, svc := newTestEngine(t)
	ctx := context.Background()

	if err := engine.Upgrade(ctx, Head); err != nil {
		t.Fatalf("upgrade to head failed: %v", err)
	}
	if err := engine.Downgrade(ctx, Base); err != nil {
		t.Fatalf("downgrade to base failed: %v", err)
	}
	current, err := engine.Current(ctx)
	if err != nil {
		t.Fatalf("failed to read current version: %v", err)
	}
	if current != Base {
		t.Fatalf("current version = %q, want base", current)
	}
	for _, table := range allTables {
		if table == "migration_version" {
			continue
		}
		exists, err := introspect.TableExists(ctx, svc.DB(), svc.Dialect(), table)
		if err != nil {
			t.Fatalf("introspecting %s: %v", table, err)
		}
		if exists {
			t.Errorf("table %s still exists after downgrade to base", table)
		}
	}
}

func TestPartialUpgradeStopsAtTarget(t *testing.T) {
	engine, svc := newTestEngine(t)
	ctx := context.Background()

	if err := engine.Upgrade(ctx, "3be8647b87d8"); err != nil {
		t.Fatalf("partial upgrade failed: %v", err)
	}
	current, err := engine.Current(ctx)
	if err != nil {
		t.Fatalf("failed to read current version: %v", err)
	}
	if current != "3be8647b87d8" {
		t.Fatalf("current version = %q, want 3be8647b87d8", current)
	}
	exists, err := introspect.TableExists(ctx, svc.DB(), svc.Dialect(), "users")
	if err != nil {
		t.Fatalf("introspect users: %v", err)
	}
	if !exists {
		t.Fatal("users table missing after upgrade to users_and_secrets")
	}
	exists, err = introspect.TableExists(ctx, svc.DB(), svc.Dialect(), "project_sessions")
	if err != nil {
		t.Fatalf("introspect project_sessions: %v", err)
	}
	if exists {
		t.Fatal("project_sessions table exists before its revision was applied")
	}
}

func TestUnknownRevisionIsRejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if err := engine.Upgrade(ctx, "ffffffffffff"); err == nil {
		t.Fatal("upgrade to unknown revision should fail")
	}
	if err := engine.Upgrade(ctx, Head); err != nil {
		t.Fatalf("upgrade to head failed: %v", err)
	}
	if err := engine.Downgrade(ctx, "ffffffffffff"); err == nil {
		t.Fatal("downgrade to unknown revision should fail")
	}
}

func TestDowngradeFromBaseToNamedRevisionIsRejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if err := engine.Downgrade(ctx, Base); err != nil {
		t.Fatalf("downgrade base to base should be a no-op: %v", err)
	}
	err := engine.Downgrade(ctx, "cf03bd6bae1d")
	if err == nil {
		t.Fatal("downgrade from base to a named revision should fail")
	}
	if !strings.Contains(err.Error(), "use Upgrade") {
		t.Fatalf("error %q should direct the caller to Upgrade", err)
	}
	if err := engine.Downgrade(ctx, "ffffffffffff"); err == nil {
		t.Fatal("downgrade from base to an unknown revision should fail")
	}
}

// snapshot captures the schema of every existing tracked table.
func snapshot(t *testing.T, ctx context.Context, engine *Engine) map[string]introspect.TableInfo {
	t.Helper()
	conn := engine.svc.DB()
	d := engine.svc.Dialect()
	out := make(map[string]introspect.TableInfo)
	for _, table := range allTables {
		exists, err := introspect.TableExists(ctx, conn, d, table)
		if err != nil {
			t.Fatalf("introspecting %s: %v", table, err)
		}
		if !exists {
			continue
		}
		info, err := introspect.Table(ctx, conn, d, table)
		if err != nil {
			t.Fatalf("introspecting %s: %v", table, err)
		}
		out[table] = info
	}
	return out
}

func compareSnapshots(t *testing.T, label string, want, got map[string]introspect.TableInfo) {
	t.Helper()
	for table, wantInfo := range want {
		gotInfo, ok := got[table]
		if !ok {
			t.Errorf("%s: table %s missing", label, table)
			continue
		}
		if !wantInfo.Equal(gotInfo) {
			t.Errorf("%s: table %s schema mismatch\nwant: %+v\ngot:  %+v", label, table, wantInfo, gotInfo)
		}
	}
	for table := range got {
		if _, ok := want[table]; !ok {
			t.Errorf("%s: unexpected table %s", label, table)
		}
	}
}

// TestStepwiseDowngradeRestoresSchema walks the chain to head capturing a
// schema snapshot after each revision, then walks back down one revision
// at a time and checks each intermediate schema matches what the upgrade
// produced at that same revision.
func TestStepwiseDowngradeRestoresSchema(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	revisions := engine.Revisions()

	ascent := make([]map[string]introspect.TableInfo, len(revisions))
	for i, rev := range revisions {
		if err := engine.Upgrade(ctx, rev.ID); err != nil {
			t.Fatalf("upgrade to %s failed: %v", rev.ID, err)
		}
		ascent[i] = snapshot(t, ctx, engine)
	}

	for i := len(revisions) - 1; i >= 1; i-- {
		target := revisions[i-1].ID
		if err := engine.Downgrade(ctx, target); err != nil {
			t.Fatalf("downgrade to %s failed: %v", target, err)
		}
		compareSnapshots(t, "at "+target, ascent[i-1], snapshot(t, ctx, engine))
	}
	if err := engine.Downgrade(ctx, Base); err != nil {
		t.Fatalf("downgrade to base failed: %v", err)
	}
	if got := snapshot(t, ctx, engine); len(got) > 1 {
		t.Fatalf("tables remain after downgrade to base: %v", got)
	}
}
