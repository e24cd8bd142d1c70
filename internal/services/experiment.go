package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
	"github.com/Arize-ai/phoenix-sub001/internal/canonjson"
	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/repos"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

// RunInput is one task execution result recorded against an experiment.
type RunInput struct {
	DatasetExampleID int64     `json:"dataset_example_id"`
	RepetitionNumber int       `json:"repetition_number"`
	Output           []byte    `json:"output"`
	Error            *string   `json:"error"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
}

type ExperimentService interface {
	// CreateExperiment pins the experiment to a dataset version (nil
	// means latest) and snapshots the revision of every example alive
	// at that version into the junction table.
	CreateExperiment(ctx context.Context, datasetID int64, versionID *int64, name string, description *string, repetitions int) (*types.Experiment, error)
	RecordRuns(ctx context.Context, experimentID int64, runs []RunInput) ([]*types.ExperimentRun, error)
	GetRevisions(ctx context.Context, experimentID int64) ([]*types.DatasetExampleRevision, error)
}

type experimentService struct {
	db             *gorm.DB
	log            *logger.Logger
	datasetRepo    repos.DatasetRepo
	experimentRepo repos.ExperimentRepo
}

func NewExperimentService(db *gorm.DB, baseLog *logger.Logger, datasetRepo repos.DatasetRepo, experimentRepo repos.ExperimentRepo) ExperimentService {
	return &experimentService{
		db:             db,
		log:            baseLog.With("service", "ExperimentService"),
		datasetRepo:    datasetRepo,
		experimentRepo: experimentRepo,
	}
}

func (es *experimentService) CreateExperiment(ctx context.Context, datasetID int64, versionID *int64, name string, description *string, repetitions int) (*types.Experiment, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apierr.Validationf("experiment name must be a non-empty string")
	}
	if repetitions < 1 {
		return nil, apierr.Validationf("repetitions must be at least 1")
	}
	var experiment *types.Experiment
	err := es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dataset, err := es.datasetRepo.GetByID(ctx, tx, datasetID)
		if err != nil {
			return err
		}
		if dataset == nil {
			return apierr.NotFoundf("dataset %d could not be found", datasetID)
		}
		pinned := int64(0)
		if versionID != nil {
			pinned = *versionID
		} else {
			latest, err := es.datasetRepo.LatestVersion(ctx, tx, datasetID)
			if err != nil {
				return err
			}
			if latest == nil {
				return apierr.Validationf("dataset %d has no versions", datasetID)
			}
			pinned = latest.ID
		}
		experiment, err = es.experimentRepo.Create(ctx, tx, &types.Experiment{
			DatasetID:        datasetID,
			DatasetVersionID: pinned,
			Name:             name,
			Description:      description,
			Repetitions:      repetitions,
			Metadata:         []byte("{}"),
		})
		if err != nil {
			return err
		}
		revisions, err := es.datasetRepo.RevisionsAt(ctx, tx, datasetID, pinned)
		if err != nil {
			return err
		}
		links := make([]*types.ExperimentDatasetExampleRevision, 0, len(revisions))
		for _, rev := range revisions {
			if rev.RevisionKind == types.RevisionDelete {
				continue
			}
			links = append(links, &types.ExperimentDatasetExampleRevision{
				ExperimentID:             experiment.ID,
				DatasetExampleID:         rev.DatasetExampleID,
				DatasetExampleRevisionID: rev.ID,
			})
		}
		return es.experimentRepo.LinkRevisions(ctx, tx, links)
	})
	if err != nil {
		return nil, err
	}
	es.log.Info("created experiment", "experiment_id", experiment.ID, "dataset_id", datasetID)
	return experiment, nil
}

func (es *experimentService) RecordRuns(ctx context.Context, experimentID int64, runs []RunInput) ([]*types.ExperimentRun, error) {
	if len(runs) == 0 {
		return nil, apierr.Validationf("at least one run must be provided")
	}
	var out []*types.ExperimentRun
	err := es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		experiment, err := es.experimentRepo.GetByID(ctx, tx, experimentID)
		if err != nil {
			return err
		}
		if experiment == nil {
			return apierr.NotFoundf("experiment %d could not be found", experimentID)
		}
		revisions, err := es.experimentRepo.RevisionsForExperiment(ctx, tx, experimentID)
		if err != nil {
			return err
		}
		member := make(map[int64]bool, len(revisions))
		for _, rev := range revisions {
			member[rev.DatasetExampleID] = true
		}
		rows := make([]*types.ExperimentRun, 0, len(runs))
		for _, run := range runs {
			if !member[run.DatasetExampleID] {
				return apierr.Validationf(
					"example %d is not part of experiment %d", run.DatasetExampleID, experimentID)
			}
			if run.RepetitionNumber < 1 || run.RepetitionNumber > experiment.Repetitions {
				return apierr.Validationf(
					"repetition number %d is out of range [1, %d]", run.RepetitionNumber, experiment.Repetitions)
			}
			output := run.Output
			if len(output) > 0 {
				output, err = canonjson.Canonicalize(output)
				if err != nil {
					return apierr.Validationf("run output must be valid JSON: %v", err)
				}
			}
			rows = append(rows, &types.ExperimentRun{
				ExperimentID:     experimentID,
				DatasetExampleID: run.DatasetExampleID,
				RepetitionNumber: run.RepetitionNumber,
				Output:           output,
				Error:            run.Error,
				StartTime:        run.StartTime,
				EndTime:          run.EndTime,
			})
		}
		out, err = es.experimentRepo.CreateRuns(ctx, tx, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (es *experimentService) GetRevisions(ctx context.Context, experimentID int64) ([]*types.DatasetExampleRevision, error) {
	experiment, err := es.experimentRepo.GetByID(ctx, nil, experimentID)
	if err != nil {
		return nil, err
	}
	if experiment == nil {
		return nil, apierr.NotFoundf("experiment %d could not be found", experimentID)
	}
	return es.experimentRepo.RevisionsForExperiment(ctx, nil, experimentID)
}
