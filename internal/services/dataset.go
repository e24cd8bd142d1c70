package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
	"github.com/Arize-ai/phoenix-sub001/internal/canonjson"
	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/repos"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

// ExampleContent is the caller-facing content of one dataset example.
type ExampleContent struct {
	Input    json.RawMessage `json:"input"`
	Output   json.RawMessage `json:"output"`
	Metadata json.RawMessage `json:"metadata"`
}

// ExamplePatch targets an existing example with replacement content.
type ExamplePatch struct {
	ExampleID int64           `json:"example_id"`
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output"`
	Metadata  json.RawMessage `json:"metadata"`
}

type DatasetService interface {
	CreateDataset(ctx context.Context, name string, description *string, examples []ExampleContent) (*types.Dataset, *types.DatasetVersion, error)
	AddExamples(ctx context.Context, datasetID int64, examples []ExampleContent) (*types.DatasetVersion, error)
	PatchExamples(ctx context.Context, datasetID int64, patches []ExamplePatch) (*types.DatasetVersion, error)
	DeleteExamples(ctx context.Context, datasetID int64, exampleIDs []int64) (*types.DatasetVersion, error)
	// GetExamples resolves the dataset's content at a version. A nil
	// versionID means the latest version. Examples whose newest
	// revision at that version is a DELETE are omitted.
	GetExamples(ctx context.Context, datasetID int64, versionID *int64) ([]*types.DatasetExampleRevision, error)
}

type datasetService struct {
	db          *gorm.DB
	log         *logger.Logger
	datasetRepo repos.DatasetRepo
}

func NewDatasetService(db *gorm.DB, baseLog *logger.Logger, datasetRepo repos.DatasetRepo) DatasetService {
	return &datasetService{
		db:          db,
		log:         baseLog.With("service", "DatasetService"),
		datasetRepo: datasetRepo,
	}
}

func (ds *datasetService) CreateDataset(ctx context.Context, name string, description *string, examples []ExampleContent) (*types.Dataset, *types.DatasetVersion, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil, apierr.Validationf("dataset name must be a non-empty string")
	}
	var (
		dataset *types.Dataset
		version *types.DatasetVersion
	)
	err := ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := ds.datasetRepo.GetByName(ctx, tx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return apierr.Validationf("a dataset named %q already exists", name)
		}
		dataset, err = ds.datasetRepo.Create(ctx, tx, &types.Dataset{
			Name:        name,
			Description: description,
			Metadata:    []byte("{}"),
		})
		if err != nil {
			return err
		}
		version, err = ds.appendVersion(ctx, tx, dataset.ID)
		if err != nil {
			return err
		}
		return ds.createExamples(ctx, tx, dataset.ID, version.ID, examples)
	})
	if err != nil {
		return nil, nil, err
	}
	ds.log.Info("created dataset", "dataset_id", dataset.ID, "examples", len(examples))
	return dataset, version, nil
}

func (ds *datasetService) AddExamples(ctx context.Context, datasetID int64, examples []ExampleContent) (*types.DatasetVersion, error) {
	if len(examples) == 0 {
		return nil, apierr.Validationf("at least one example must be provided")
	}
	var version *types.DatasetVersion
	err := ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ds.requireDataset(ctx, tx, datasetID); err != nil {
			return err
		}
		var err error
		version, err = ds.appendVersion(ctx, tx, datasetID)
		if err != nil {
			return err
		}
		return ds.createExamples(ctx, tx, datasetID, version.ID, examples)
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

func (ds *datasetService) PatchExamples(ctx context.Context, datasetID int64, patches []ExamplePatch) (*types.DatasetVersion, error) {
	if len(patches) == 0 {
		return nil, apierr.Validationf("at least one patch must be provided")
	}
	var version *types.DatasetVersion
	err := ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ds.requireDataset(ctx, tx, datasetID); err != nil {
			return err
		}
		ids := make([]int64, len(patches))
		for i, p := range patches {
			ids[i] = p.ExampleID
		}
		if err := ds.requireExamples(ctx, tx, datasetID, ids); err != nil {
			return err
		}
		var err error
		version, err = ds.appendVersion(ctx, tx, datasetID)
		if err != nil {
			return err
		}
		revisions := make([]*types.DatasetExampleRevision, 0, len(patches))
		for _, p := range patches {
			rev, err := buildRevision(p.ExampleID, version.ID, p.Input, p.Output, p.Metadata, types.RevisionPatch)
			if err != nil {
				return err
			}
			revisions = append(revisions, rev)
		}
		_, err = ds.datasetRepo.CreateRevisions(ctx, tx, revisions)
		return err
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

func (ds *datasetService) DeleteExamples(ctx context.Context, datasetID int64, exampleIDs []int64) (*types.DatasetVersion, error) {
	if len(exampleIDs) == 0 {
		return nil, apierr.Validationf("at least one example id must be provided")
	}
	var version *types.DatasetVersion
	err := ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ds.requireDataset(ctx, tx, datasetID); err != nil {
			return err
		}
		if err := ds.requireExamples(ctx, tx, datasetID, exampleIDs); err != nil {
			return err
		}
		var err error
		version, err = ds.appendVersion(ctx, tx, datasetID)
		if err != nil {
			return err
		}
		revisions := make([]*types.DatasetExampleRevision, 0, len(exampleIDs))
		for _, id := range exampleIDs {
			rev, err := buildRevision(id, version.ID, nil, nil, nil, types.RevisionDelete)
			if err != nil {
				return err
			}
			revisions = append(revisions, rev)
		}
		_, err = ds.datasetRepo.CreateRevisions(ctx, tx, revisions)
		return err
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

func (ds *datasetService) GetExamples(ctx context.Context, datasetID int64, versionID *int64) ([]*types.DatasetExampleRevision, error) {
	if err := ds.requireDataset(ctx, nil, datasetID); err != nil {
		return nil, err
	}
	resolved := int64(0)
	if versionID != nil {
		resolved = *versionID
	} else {
		latest, err := ds.datasetRepo.LatestVersion(ctx, nil, datasetID)
		if err != nil {
			return nil, err
		}
		if latest == nil {
			return []*types.DatasetExampleRevision{}, nil
		}
		resolved = latest.ID
	}
	revisions, err := ds.datasetRepo.RevisionsAt(ctx, nil, datasetID, resolved)
	if err != nil {
		return nil, err
	}
	visible := make([]*types.DatasetExampleRevision, 0, len(revisions))
	for _, rev := range revisions {
		if rev.RevisionKind == types.RevisionDelete {
			continue
		}
		visible = append(visible, rev)
	}
	return visible, nil
}

func (ds *datasetService) appendVersion(ctx context.Context, tx *gorm.DB, datasetID int64) (*types.DatasetVersion, error) {
	return ds.datasetRepo.CreateVersion(ctx, tx, &types.DatasetVersion{
		DatasetID: datasetID,
		Metadata:  []byte("{}"),
	})
}

func (ds *datasetService) createExamples(ctx context.Context, tx *gorm.DB, datasetID, versionID int64, contents []ExampleContent) error {
	if len(contents) == 0 {
		return nil
	}
	examples := make([]*types.DatasetExample, len(contents))
	for i := range contents {
		examples[i] = &types.DatasetExample{
			DatasetID:  datasetID,
			ExternalID: uuid.NewString(),
		}
	}
	if _, err := ds.datasetRepo.CreateExamples(ctx, tx, examples); err != nil {
		return err
	}
	revisions := make([]*types.DatasetExampleRevision, 0, len(contents))
	for i, c := range contents {
		rev, err := buildRevision(examples[i].ID, versionID, c.Input, c.Output, c.Metadata, types.RevisionCreate)
		if err != nil {
			return err
		}
		revisions = append(revisions, rev)
	}
	_, err := ds.datasetRepo.CreateRevisions(ctx, tx, revisions)
	return err
}

func (ds *datasetService) requireDataset(ctx context.Context, tx *gorm.DB, datasetID int64) error {
	dataset, err := ds.datasetRepo.GetByID(ctx, tx, datasetID)
	if err != nil {
		return err
	}
	if dataset == nil {
		return apierr.NotFoundf("dataset %d could not be found", datasetID)
	}
	return nil
}

func (ds *datasetService) requireExamples(ctx context.Context, tx *gorm.DB, datasetID int64, ids []int64) error {
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return apierr.Validationf("duplicate example id %d", id)
		}
		seen[id] = true
	}
	examples, err := ds.datasetRepo.GetExamplesByIDs(ctx, tx, ids)
	if err != nil {
		return err
	}
	byID := make(map[int64]*types.DatasetExample, len(examples))
	for _, ex := range examples {
		byID[ex.ID] = ex
	}
	for _, id := range ids {
		ex, ok := byID[id]
		if !ok {
			return apierr.NotFoundf("example %d could not be found", id)
		}
		if ex.DatasetID != datasetID {
			return apierr.Validationf("example %d does not belong to dataset %d", id, datasetID)
		}
	}
	return nil
}

// buildRevision canonicalizes the three content documents, hashes them,
// and produces the immutable log row. DELETE revisions carry empty
// documents; their hash still covers the canonical empty content.
func buildRevision(exampleID, versionID int64, input, output, metadata json.RawMessage, kind types.RevisionKind) (*types.DatasetExampleRevision, error) {
	canonInput, err := canonicalOrEmpty(input)
	if err != nil {
		return nil, apierr.Validationf("example input must be valid JSON: %v", err)
	}
	canonOutput, err := canonicalOrEmpty(output)
	if err != nil {
		return nil, apierr.Validationf("example output must be valid JSON: %v", err)
	}
	canonMetadata, err := canonicalOrEmpty(metadata)
	if err != nil {
		return nil, apierr.Validationf("example metadata must be valid JSON: %v", err)
	}
	hash, err := canonjson.HashContent(canonInput, canonOutput, canonMetadata)
	if err != nil {
		return nil, err
	}
	return &types.DatasetExampleRevision{
		DatasetExampleID: exampleID,
		DatasetVersionID: versionID,
		Input:            datatypes.JSON(canonInput),
		Output:           datatypes.JSON(canonOutput),
		Metadata:         datatypes.JSON(canonMetadata),
		RevisionKind:     kind,
		ContentHash:      hash,
	}, nil
}

func canonicalOrEmpty(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return json.RawMessage("{}"), nil
	}
	return canonjson.Canonicalize(raw)
}
