package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

type DatasetRepo interface {
	Create(ctx context.Context, tx *gorm.DB, dataset *types.Dataset) (*types.Dataset, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Dataset, error)
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Dataset, error)
	CreateVersion(ctx context.Context, tx *gorm.DB, version *types.DatasetVersion) (*types.DatasetVersion, error)
	LatestVersion(ctx context.Context, tx *gorm.DB, datasetID int64) (*types.DatasetVersion, error)
	CreateExamples(ctx context.Context, tx *gorm.DB, examples []*types.DatasetExample) ([]*types.DatasetExample, error)
	GetExamplesByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*types.DatasetExample, error)
	CreateRevisions(ctx context.Context, tx *gorm.DB, revisions []*types.DatasetExampleRevision) ([]*types.DatasetExampleRevision, error)
	// RevisionsAt returns, for each example of the dataset, its latest
	// revision with dataset_version_id <= versionID.
	RevisionsAt(ctx context.Context, tx *gorm.DB, datasetID, versionID int64) ([]*types.DatasetExampleRevision, error)
}

type datasetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDatasetRepo(db *gorm.DB, baseLog *logger.Logger) DatasetRepo {
	return &datasetRepo{db: db, log: baseLog.With("repo", "DatasetRepo")}
}

func (dr *datasetRepo) Create(ctx context.Context, tx *gorm.DB, dataset *types.Dataset) (*types.Dataset, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	if err := transaction.WithContext(ctx).Create(dataset).Error; err != nil {
		return nil, err
	}
	return dataset, nil
}

func (dr *datasetRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.Dataset, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	var result types.Dataset
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (dr *datasetRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Dataset, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	var result types.Dataset
	err := transaction.WithContext(ctx).Where("name = ?", name).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (dr *datasetRepo) CreateVersion(ctx context.Context, tx *gorm.DB, version *types.DatasetVersion) (*types.DatasetVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	if err := transaction.WithContext(ctx).Create(version).Error; err != nil {
		return nil, err
	}
	return version, nil
}

func (dr *datasetRepo) LatestVersion(ctx context.Context, tx *gorm.DB, datasetID int64) (*types.DatasetVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	var result types.DatasetVersion
	err := transaction.WithContext(ctx).
		Where("dataset_id = ?", datasetID).
		Order("id DESC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (dr *datasetRepo) CreateExamples(ctx context.Context, tx *gorm.DB, examples []*types.DatasetExample) ([]*types.DatasetExample, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	if len(examples) == 0 {
		return []*types.DatasetExample{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&examples).Error; err != nil {
		return nil, err
	}
	return examples, nil
}

func (dr *datasetRepo) GetExamplesByIDs(ctx context.Context, tx *gorm.DB, ids []int64) ([]*types.DatasetExample, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	var results []*types.DatasetExample
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (dr *datasetRepo) CreateRevisions(ctx context.Context, tx *gorm.DB, revisions []*types.DatasetExampleRevision) ([]*types.DatasetExampleRevision, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	if len(revisions) == 0 {
		return []*types.DatasetExampleRevision{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&revisions).Error; err != nil {
		return nil, err
	}
	return revisions, nil
}

func (dr *datasetRepo) RevisionsAt(ctx context.Context, tx *gorm.DB, datasetID, versionID int64) ([]*types.DatasetExampleRevision, error) {
	transaction := tx
	if transaction == nil {
		transaction = dr.db
	}
	var results []*types.DatasetExampleRevision
	err := transaction.WithContext(ctx).Raw(`
		SELECT der.*
		FROM dataset_example_revisions der
		JOIN (
			SELECT dataset_example_id, MAX(dataset_version_id) AS version_id
			FROM dataset_example_revisions
			WHERE dataset_version_id <= ?
			  AND dataset_example_id IN (
				SELECT id FROM dataset_examples WHERE dataset_id = ?
			  )
			GROUP BY dataset_example_id
		) latest
		  ON der.dataset_example_id = latest.dataset_example_id
		 AND der.dataset_version_id = latest.version_id
		ORDER BY der.dataset_example_id ASC`,
		versionID, datasetID).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
