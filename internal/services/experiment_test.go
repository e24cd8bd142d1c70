package services

import (
	"context"
	"testing"
	"time"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
	"github.com/Arize-ai/phoenix-sub001/internal/repos"
)

func newExperimentEnv(t *testing.T) (DatasetService, ExperimentService) {
	t.Helper()
	conn, log := newTestDB(t)
	datasetRepo := repos.NewDatasetRepo(conn, log)
	return NewDatasetService(conn, log, datasetRepo),
		NewExperimentService(conn, log, datasetRepo, repos.NewExperimentRepo(conn, log))
}

func TestCreateExperimentSnapshotsAliveExamples(t *testing.T) {
	datasets, experiments := newExperimentEnv(t)
	ctx := context.Background()

	dataset, v1, err := datasets.CreateDataset(ctx, "qa", nil, []ExampleContent{
		{Input: raw(`{"q": 1}`)},
		{Input: raw(`{"q": 2}`)},
	})
	if err != nil {
		t.Fatalf("create dataset: %v", err)
	}
	revs, err := datasets.GetExamples(ctx, dataset.ID, &v1.ID)
	if err != nil {
		t.Fatalf("get examples: %v", err)
	}
	doomed := revs[1].DatasetExampleID
	if _, err := datasets.DeleteExamples(ctx, dataset.ID, []int64{doomed}); err != nil {
		t.Fatalf("delete example: %v", err)
	}

	// Pinned to latest, the deleted example is excluded from the snapshot.
	exp, err := experiments.CreateExperiment(ctx, dataset.ID, nil, "baseline", nil, 2)
	if err != nil {
		t.Fatalf("create experiment: %v", err)
	}
	if exp.Repetitions != 2 {
		t.Errorf("repetitions = %d", exp.Repetitions)
	}
	snapshot, err := experiments.GetRevisions(ctx, exp.ID)
	if err != nil {
		t.Fatalf("get revisions: %v", err)
	}
	if len(snapshot) != 1 || snapshot[0].DatasetExampleID == doomed {
		t.Fatalf("snapshot = %+v, want only the surviving example", snapshot)
	}

	// Pinned to v1 instead, both examples are in the snapshot even though
	// one was deleted afterwards.
	pinned, err := experiments.CreateExperiment(ctx, dataset.ID, &v1.ID, "pinned", nil, 1)
	if err != nil {
		t.Fatalf("create pinned experiment: %v", err)
	}
	snapshot, err = experiments.GetRevisions(ctx, pinned.ID)
	if err != nil {
		t.Fatalf("get pinned revisions: %v", err)
	}
	if len(snapshot) != 2 {
		t.Fatalf("pinned snapshot size = %d, want 2", len(snapshot))
	}
}

func TestCreateExperimentRejectsBadRepetitions(t *testing.T) {
	datasets, experiments := newExperimentEnv(t)
	ctx := context.Background()

	dataset, _, err := datasets.CreateDataset(ctx, "qa", nil, nil)
	if err != nil {
		t.Fatalf("create dataset: %v", err)
	}
	_, err = experiments.CreateExperiment(ctx, dataset.ID, nil, "bad", nil, 0)
	if !apierr.IsValidation(err) {
		t.Fatalf("repetitions 0 should fail validation, got %v", err)
	}
}

func TestRecordRunsValidatesMembershipAndRepetition(t *testing.T) {
	datasets, experiments := newExperimentEnv(t)
	ctx := context.Background()

	dataset, v1, err := datasets.CreateDataset(ctx, "qa", nil, []ExampleContent{{Input: raw(`{"q": 1}`)}})
	if err != nil {
		t.Fatalf("create dataset: %v", err)
	}
	revs, err := datasets.GetExamples(ctx, dataset.ID, &v1.ID)
	if err != nil {
		t.Fatalf("get examples: %v", err)
	}
	exampleID := revs[0].DatasetExampleID

	exp, err := experiments.CreateExperiment(ctx, dataset.ID, nil, "baseline", nil, 2)
	if err != nil {
		t.Fatalf("create experiment: %v", err)
	}

	now := time.Now().UTC()
	runs, err := experiments.RecordRuns(ctx, exp.ID, []RunInput{{
		DatasetExampleID: exampleID,
		RepetitionNumber: 2,
		Output:           raw(`{"answer": 42}`),
		StartTime:        now,
		EndTime:          now.Add(time.Second),
	}})
	if err != nil {
		t.Fatalf("record runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RepetitionNumber != 2 {
		t.Fatalf("runs = %+v", runs)
	}

	// A repetition beyond the experiment's configured count is rejected.
	_, err = experiments.RecordRuns(ctx, exp.ID, []RunInput{{
		DatasetExampleID: exampleID,
		RepetitionNumber: 3,
		StartTime:        now,
		EndTime:          now,
	}})
	if !apierr.IsValidation(err) {
		t.Fatalf("out-of-range repetition should fail validation, got %v", err)
	}

	// An example outside the experiment's snapshot is rejected.
	_, err = experiments.RecordRuns(ctx, exp.ID, []RunInput{{
		DatasetExampleID: 999,
		RepetitionNumber: 1,
		StartTime:        now,
		EndTime:          now,
	}})
	if !apierr.IsValidation(err) && !apierr.IsNotFound(err) {
		t.Fatalf("non-member example should be rejected, got %v", err)
	}
}
