package services

import (
	"context"
	"testing"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
	"github.com/Arize-ai/phoenix-sub001/internal/repos"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

func newDatasetService(t *testing.T) DatasetService {
	t.Helper()
	conn, log := newTestDB(t)
	return NewDatasetService(conn, log, repos.NewDatasetRepo(conn, log))
}

func TestCreateDatasetWritesCreateRevisions(t *testing.T) {
	svc := newDatasetService(t)
	ctx := context.Background()

	dataset, version, err := svc.CreateDataset(ctx, "qa", nil, []ExampleContent{
		{Input: raw(`{"q": "a?"}`), Output: raw(`{"a": "b"}`)},
		{Input: raw(`{"q": "c?"}`)},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if dataset.Name != "qa" {
		t.Errorf("name = %q", dataset.Name)
	}

	revs, err := svc.GetExamples(ctx, dataset.ID, &version.ID)
	if err != nil {
		t.Fatalf("get examples: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("got %d examples, want 2", len(revs))
	}
	for _, r := range revs {
		if r.RevisionKind != types.RevisionCreate {
			t.Errorf("revision kind = %s, want CREATE", r.RevisionKind)
		}
		if r.ContentHash == "" {
			t.Errorf("content hash missing on revision %d", r.ID)
		}
		// Omitted sections canonicalize to an empty object.
		if string(r.Metadata) != "{}" {
			t.Errorf("metadata = %s, want {}", r.Metadata)
		}
	}
}

func TestCreateDatasetRejectsDuplicateName(t *testing.T) {
	svc := newDatasetService(t)
	ctx := context.Background()

	if _, _, err := svc.CreateDataset(ctx, "qa", nil, nil); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	_, _, err := svc.CreateDataset(ctx, "qa", nil, nil)
	if !apierr.IsValidation(err) {
		t.Fatalf("duplicate name should fail validation, got %v", err)
	}
}

func TestPatchExamplesRequiresExistingMembers(t *testing.T) {
	svc := newDatasetService(t)
	ctx := context.Background()

	dataset, _, err := svc.CreateDataset(ctx, "qa", nil, []ExampleContent{{Input: raw(`{}`)}})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	_, err = svc.PatchExamples(ctx, dataset.ID, []ExamplePatch{{ExampleID: 999, Input: raw(`{}`)}})
	if !apierr.IsNotFound(err) {
		t.Fatalf("patch of unknown example should be not-found, got %v", err)
	}
}

func TestVersionResolutionReplaysTheLog(t *testing.T) {
	svc := newDatasetService(t)
	ctx := context.Background()

	dataset, v1, err := svc.CreateDataset(ctx, "qa", nil, []ExampleContent{
		{Input: raw(`{"q": 1}`)},
		{Input: raw(`{"q": 2}`)},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	revs, err := svc.GetExamples(ctx, dataset.ID, &v1.ID)
	if err != nil {
		t.Fatalf("get at v1: %v", err)
	}
	exampleA, exampleB := revs[0].DatasetExampleID, revs[1].DatasetExampleID

	v2, err := svc.PatchExamples(ctx, dataset.ID, []ExamplePatch{
		{ExampleID: exampleA, Input: raw(`{"q": 1, "fixed": true}`)},
	})
	if err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	v3, err := svc.DeleteExamples(ctx, dataset.ID, []int64{exampleB})
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	// v1 still shows the original content of both examples.
	revs, err = svc.GetExamples(ctx, dataset.ID, &v1.ID)
	if err != nil {
		t.Fatalf("get at v1: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("v1 examples = %d, want 2", len(revs))
	}
	if string(revs[0].Input) != `{"q":1}` {
		t.Errorf("v1 input = %s", revs[0].Input)
	}

	// v2 shows the patched content for exampleA.
	revs, err = svc.GetExamples(ctx, dataset.ID, &v2.ID)
	if err != nil {
		t.Fatalf("get at v2: %v", err)
	}
	for _, r := range revs {
		if r.DatasetExampleID == exampleA && r.RevisionKind != types.RevisionPatch {
			t.Errorf("exampleA at v2 kind = %s, want PATCH", r.RevisionKind)
		}
	}

	// v3 omits the deleted example, and latest resolves the same way.
	revs, err = svc.GetExamples(ctx, dataset.ID, &v3.ID)
	if err != nil {
		t.Fatalf("get at v3: %v", err)
	}
	if len(revs) != 1 || revs[0].DatasetExampleID != exampleA {
		t.Fatalf("v3 examples = %+v, want only exampleA", revs)
	}
	latest, err := svc.GetExamples(ctx, dataset.ID, nil)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if len(latest) != 1 || latest[0].DatasetExampleID != exampleA {
		t.Fatalf("latest = %+v, want only exampleA", latest)
	}
}

func TestDeleteThenRecreateViaPatch(t *testing.T) {
	svc := newDatasetService(t)
	ctx := context.Background()

	dataset, v1, err := svc.CreateDataset(ctx, "qa", nil, []ExampleContent{{Input: raw(`{"q": 1}`)}})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	revs, err := svc.GetExamples(ctx, dataset.ID, &v1.ID)
	if err != nil {
		t.Fatalf("get at v1: %v", err)
	}
	exampleID := revs[0].DatasetExampleID

	if _, err := svc.DeleteExamples(ctx, dataset.ID, []int64{exampleID}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got, err := svc.GetExamples(ctx, dataset.ID, nil); err != nil || len(got) != 0 {
		t.Fatalf("after delete: revs=%v err=%v, want empty", got, err)
	}

	// Patching a deleted example appends a new revision; the example is
	// alive again at the latest version.
	if _, err := svc.PatchExamples(ctx, dataset.ID, []ExamplePatch{
		{ExampleID: exampleID, Input: raw(`{"q": 1, "restored": true}`)},
	}); err != nil {
		t.Fatalf("patch after delete failed: %v", err)
	}
	got, err := svc.GetExamples(ctx, dataset.ID, nil)
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if len(got) != 1 || got[0].DatasetExampleID != exampleID {
		t.Fatalf("latest = %+v, want the restored example", got)
	}
}

func TestDeleteExamplesRejectsDuplicates(t *testing.T) {
	svc := newDatasetService(t)
	ctx := context.Background()

	dataset, v1, err := svc.CreateDataset(ctx, "qa", nil, []ExampleContent{{Input: raw(`{}`)}})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	revs, err := svc.GetExamples(ctx, dataset.ID, &v1.ID)
	if err != nil {
		t.Fatalf("get examples: %v", err)
	}
	id := revs[0].DatasetExampleID
	_, err = svc.DeleteExamples(ctx, dataset.ID, []int64{id, id})
	if !apierr.IsValidation(err) {
		t.Fatalf("duplicate ids should fail validation, got %v", err)
	}
}
