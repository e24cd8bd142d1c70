package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

type ExperimentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, experiment *types.Experiment) (*types.Experiment, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Experiment, error)
	LinkRevisions(ctx context.Context, tx *gorm.DB, links []*types.ExperimentDatasetExampleRevision) error
	// RevisionsForExperiment returns the example revisions snapshotted
	// into the experiment's junction rows.
	RevisionsForExperiment(ctx context.Context, tx *gorm.DB, experimentID int64) ([]*types.DatasetExampleRevision, error)
	CreateRuns(ctx context.Context, tx *gorm.DB, runs []*types.ExperimentRun) ([]*types.ExperimentRun, error)
	GetRuns(ctx context.Context, tx *gorm.DB, experimentID int64) ([]*types.ExperimentRun, error)
}

type experimentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExperimentRepo(db *gorm.DB, baseLog *logger.Logger) ExperimentRepo {
	return &experimentRepo{db: db, log: baseLog.With("repo", "ExperimentRepo")}
}

func (er *experimentRepo) Create(ctx context.Context, tx *gorm.DB, experiment *types.Experiment) (*types.Experiment, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}
	if err := transaction.WithContext(ctx).Create(experiment).Error; err != nil {
		return nil, err
	}
	return experiment, nil
}

func (er *experimentRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Experiment, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}
	var result types.Experiment
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (er *experimentRepo) LinkRevisions(ctx context.Context, tx *gorm.DB, links []*types.ExperimentDatasetExampleRevision) error {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}
	if len(links) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&links).Error
}

func (er *experimentRepo) RevisionsForExperiment(ctx context.Context, tx *gorm.DB, experimentID int64) ([]*types.DatasetExampleRevision, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}
	var results []*types.DatasetExampleRevision
	err := transaction.WithContext(ctx).Raw(`
		SELECT der.*
		FROM dataset_example_revisions der
		JOIN experiments_dataset_examples ede
		  ON ede.dataset_example_revision_id = der.id
		WHERE ede.experiment_id = ?
		ORDER BY der.dataset_example_id ASC`,
		experimentID).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (er *experimentRepo) CreateRuns(ctx context.Context, tx *gorm.DB, runs []*types.ExperimentRun) ([]*types.ExperimentRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}
	if len(runs) == 0 {
		return []*types.ExperimentRun{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (er *experimentRepo) GetRuns(ctx context.Context, tx *gorm.DB, experimentID int64) ([]*types.ExperimentRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = er.db
	}
	var results []*types.ExperimentRun
	if err := transaction.WithContext(ctx).
		Where("experiment_id = ?", experimentID).
		Order("dataset_example_id ASC, repetition_number ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
