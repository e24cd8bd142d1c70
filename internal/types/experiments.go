package types

import (
	"time"

	"gorm.io/datatypes"
)

// Experiment pins a dataset version; runs are produced per
// (example, repetition).
type Experiment struct {
	ID               int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	DatasetID        int64          `gorm:"not null;index;column:dataset_id" json:"dataset_id"`
	DatasetVersionID int64          `gorm:"not null;column:dataset_version_id" json:"dataset_version_id"`
	Name             string         `gorm:"not null;column:name" json:"name"`
	Description      *string        `gorm:"column:description" json:"description"`
	Repetitions      int            `gorm:"not null;default:1;column:repetitions" json:"repetitions"`
	Metadata         datatypes.JSON `gorm:"not null;column:metadata" json:"metadata"`
	CreatedAt        time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Experiment) TableName() string { return "experiments" }

type ExperimentRun struct {
	ID               int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ExperimentID     int64          `gorm:"not null;column:experiment_id" json:"experiment_id"`
	DatasetExampleID int64          `gorm:"not null;column:dataset_example_id" json:"dataset_example_id"`
	RepetitionNumber int            `gorm:"not null;column:repetition_number" json:"repetition_number"`
	Output           datatypes.JSON `gorm:"column:output" json:"output"`
	Error            *string        `gorm:"column:error" json:"error"`
	StartTime        time.Time      `gorm:"not null;column:start_time" json:"start_time"`
	EndTime          time.Time      `gorm:"not null;column:end_time" json:"end_time"`
}

func (ExperimentRun) TableName() string { return "experiment_runs" }

// ExperimentDatasetExampleRevision resolves, per experiment, which revision
// of each example was in force at the experiment's pinned dataset version.
// Backfilled for pre-existing experiments by the migration chain.
type ExperimentDatasetExampleRevision struct {
	ID                       int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ExperimentID             int64 `gorm:"not null;column:experiment_id" json:"experiment_id"`
	DatasetExampleID         int64 `gorm:"not null;column:dataset_example_id" json:"dataset_example_id"`
	DatasetExampleRevisionID int64 `gorm:"not null;column:dataset_example_revision_id" json:"dataset_example_revision_id"`
}

func (ExperimentDatasetExampleRevision) TableName() string {
	return "experiments_dataset_examples"
}
