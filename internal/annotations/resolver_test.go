package annotations

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
	"github.com/Arize-ai/phoenix-sub001/internal/db"
	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/migrations"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

func newTestResolver(t *testing.T) (*Resolver, *gorm.DB) {
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
	conn := svc.DB()
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	seed := []string{
		`INSERT INTO projects (name) VALUES ('demo')`,
	}
	for _, stmt := range seed {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if err := conn.Exec(`INSERT INTO traces (trace_id, project_rowid, start_time, end_time) VALUES ('t1', 1, ?, ?)`, t0, t0).Error; err != nil {
		t.Fatalf("seed trace: %v", err)
	}
	if err := conn.Exec(`INSERT INTO spans (trace_rowid, span_id, parent_id, name, span_kind, attributes, num_documents, start_time, end_time)
		VALUES (1, 's1', NULL, 'root', 'RETRIEVER', '{}', 3, ?, ?)`, t0, t0).Error; err != nil {
		t.Fatalf("seed span: %v", err)
	}
	return NewResolver(conn, log), conn
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
func intPtr(i int) *int         { return &i }

func spanInput(name, identifier string) UpsertInput {
	return UpsertInput{
		ParentID:      1,
		Name:          name,
		AnnotatorKind: types.AnnotatorHuman,
		Identifier:    identifier,
		Source:        types.SourceApp,
	}
}

func TestCreateUpsertsOnConflictKey(t *testing.T) {
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	first := spanInput("quality", "")
	first.Label = strPtr("good")
	rows, err := resolver.Create(ctx, SpanAnnotations, []UpsertInput{first})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Label == nil || *rows[0].Label != "good" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	originalID := rows[0].ID

	second := spanInput("quality", "")
	second.Label = strPtr("bad")
	second.Score = f64Ptr(0.1)
	rows, err = resolver.Create(ctx, SpanAnnotations, []UpsertInput{second})
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}
	if rows[0].ID != originalID {
		t.Fatalf("upsert created new row %d, want update of %d", rows[0].ID, originalID)
	}
	if rows[0].Label == nil || *rows[0].Label != "bad" {
		t.Errorf("label = %v, want bad", rows[0].Label)
	}

	var count int64
	if err := resolverCount(resolver, "span_annotations", &count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("row count = %d, want 1", count)
	}
}

func TestCreateUpsertOverwritesAbsentFieldsWithNull(t *testing.T) {
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	first := spanInput("quality", "")
	first.Label = strPtr("good")
	first.Explanation = strPtr("looked fine")
	if _, err := resolver.Create(ctx, SpanAnnotations, []UpsertInput{first}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// A replacement without explanation clears it; upsert is not a merge.
	second := spanInput("quality", "")
	second.Label = strPtr("bad")
	rows, err := resolver.Create(ctx, SpanAnnotations, []UpsertInput{second})
	if err != nil {
		t.Fatalf("replacement failed: %v", err)
	}
	if rows[0].Explanation != nil {
		t.Errorf("explanation = %q, want NULL", *rows[0].Explanation)
	}
}

func TestCreateBatchDedupLastWins(t *testing.T) {
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	a := spanInput("quality", "")
	a.Score = f64Ptr(0.1)
	b := spanInput("other", "")
	c := spanInput("quality", "")
	c.Score = f64Ptr(0.9)

	rows, err := resolver.Create(ctx, SpanAnnotations, []UpsertInput{a, b, c})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 after dedup", len(rows))
	}
	// Survivor keeps the earliest duplicate's position in the batch.
	if rows[0].Name != "quality" || rows[1].Name != "other" {
		t.Fatalf("row order = [%s %s], want [quality other]", rows[0].Name, rows[1].Name)
	}
	if rows[0].Score == nil || *rows[0].Score != 0.9 {
		t.Errorf("score = %v, want last-wins 0.9", rows[0].Score)
	}
}

func TestCreateDistinctIdentifiersCoexist(t *testing.T) {
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	rows, err := resolver.Create(ctx, SpanAnnotations, []UpsertInput{
		spanInput("quality", "run-1"),
		spanInput("quality", "run-2"),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(rows) != 2 || rows[0].ID == rows[1].ID {
		t.Fatalf("identifiers should map to distinct rows: %+v", rows)
	}
}

func TestCreateMissingParent(t *testing.T) {
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	in := spanInput("quality", "")
	in.ParentID = 999
	_, err := resolver.Create(ctx, SpanAnnotations, []UpsertInput{in})
	if !apierr.IsNotFound(err) {
		t.Fatalf("error = %v, want not-found", err)
	}
}

func TestDocumentPositionBounds(t *testing.T) {
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	in := UpsertInput{
		ParentID:         1,
		Name:             "relevance",
		AnnotatorKind:    types.AnnotatorLLM,
		Source:           types.SourceAPI,
		DocumentPosition: intPtr(3),
	}
	_, err := resolver.Create(ctx, DocumentAnnotations, []UpsertInput{in})
	if !apierr.IsValidation(err) {
		t.Fatalf("position 3 on a 3-document span should fail validation, got %v", err)
	}

	in.DocumentPosition = intPtr(2)
	rows, err := resolver.Create(ctx, DocumentAnnotations, []UpsertInput{in})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if rows[0].DocumentPosition == nil || *rows[0].DocumentPosition != 2 {
		t.Fatalf("document position not persisted: %+v", rows[0])
	}
}

func TestPatchNullClearsUnsetPreserves(t *testing.T) {
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	in := spanInput("quality", "")
	in.Label = strPtr("good")
	in.Score = f64Ptr(0.8)
	rows, err := resolver.Create(ctx, SpanAnnotations, []UpsertInput{in})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := rows[0].ID

	patched, err := resolver.Patch(ctx, SpanAnnotations, []PatchInput{{
		ID:    id,
		Score: types.Null[float64](),
	}})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if patched[0].Score != nil {
		t.Errorf("score = %v, want cleared", *patched[0].Score)
	}
	if patched[0].Label == nil || *patched[0].Label != "good" {
		t.Errorf("label = %v, want untouched \"good\"", patched[0].Label)
	}
}

func TestPatchRejectsDuplicateIDs(t *testing.T) {
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	rows, err := resolver.Create(ctx, SpanAnnotations, []UpsertInput{spanInput("quality", "")})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := rows[0].ID
	_, err = resolver.Patch(ctx, SpanAnnotations, []PatchInput{
		{ID: id, Label: types.Some("a")},
		{ID: id, Label: types.Some("b")},
	})
	if !apierr.IsValidation(err) {
		t.Fatalf("duplicate patch ids should fail validation, got %v", err)
	}
}

func TestPatchRejectsEmptyPatch(t *testing.T) {
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	rows, err := resolver.Create(ctx, SpanAnnotations, []UpsertInput{spanInput("quality", "")})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	_, err = resolver.Patch(ctx, SpanAnnotations, []PatchInput{{ID: rows[0].ID}})
	if !apierr.IsValidation(err) {
		t.Fatalf("empty patch should fail validation, got %v", err)
	}
}

func TestDeleteReturnsRowsInInputOrder(t *testing.T) {
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	rows, err := resolver.Create(ctx, SpanAnnotations, []UpsertInput{
		spanInput("a", ""), spanInput("b", ""), spanInput("c", ""),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	ids := []int64{rows[2].ID, rows[0].ID}
	deleted, err := resolver.Delete(ctx, SpanAnnotations, ids)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(deleted) != 2 || deleted[0].Name != "c" || deleted[1].Name != "a" {
		t.Fatalf("deleted = %+v, want [c a] in input order", deleted)
	}

	var count int64
	if err := resolverCount(resolver, "span_annotations", &count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("remaining rows = %d, want 1", count)
	}
}

func TestDeleteRejectsDuplicateAndUnknownIDs(t *testing.T) {
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	rows, err := resolver.Create(ctx, SpanAnnotations, []UpsertInput{spanInput("a", "")})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := rows[0].ID

	_, err = resolver.Delete(ctx, SpanAnnotations, []int64{id, id})
	if !apierr.IsValidation(err) {
		t.Fatalf("duplicate delete ids should fail validation, got %v", err)
	}
	_, err = resolver.Delete(ctx, SpanAnnotations, []int64{id, 999})
	if !apierr.IsNotFound(err) {
		t.Fatalf("unknown delete id should be not-found, got %v", err)
	}
	// The failed batch must not have removed the existing row.
	var count int64
	if err := resolverCount(resolver, "span_annotations", &count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("row count = %d after failed deletes, want 1", count)
	}
}

func resolverCount(r *Resolver, table string, out *int64) error {
	return r.db.Table(table).Count(out).Error
}
