package types

import (
	"time"

	"gorm.io/datatypes"
)

type Dataset struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"uniqueIndex;not null;column:name" json:"name"`
	Description *string        `gorm:"column:description" json:"description"`
	Metadata    datatypes.JSON `gorm:"not null;column:metadata" json:"metadata"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Dataset) TableName() string { return "datasets" }

type DatasetVersion struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	DatasetID   int64          `gorm:"not null;index;column:dataset_id" json:"dataset_id"`
	Description *string        `gorm:"column:description" json:"description"`
	Metadata    datatypes.JSON `gorm:"not null;column:metadata" json:"metadata"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (DatasetVersion) TableName() string { return "dataset_versions" }

type DatasetExample struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DatasetID  int64     `gorm:"not null;index;column:dataset_id" json:"dataset_id"`
	ExternalID string    `gorm:"not null;column:external_id" json:"external_id"`
	SpanRowID  *int64    `gorm:"column:span_rowid" json:"span_rowid,omitempty"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (DatasetExample) TableName() string { return "dataset_examples" }

// DatasetExampleRevision is one entry of the append-only content log for an
// example. The content visible at version V is the latest revision with
// dataset_version_id <= V that is not a DELETE. Rows are immutable once
// written; deletion is a new DELETE-kind revision, never a row removal.
type DatasetExampleRevision struct {
	ID               int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	DatasetExampleID int64          `gorm:"not null;column:dataset_example_id" json:"dataset_example_id"`
	DatasetVersionID int64          `gorm:"not null;column:dataset_version_id" json:"dataset_version_id"`
	Input            datatypes.JSON `gorm:"not null;column:input" json:"input"`
	Output           datatypes.JSON `gorm:"not null;column:output" json:"output"`
	Metadata         datatypes.JSON `gorm:"not null;column:metadata" json:"metadata"`
	RevisionKind     RevisionKind   `gorm:"not null;column:revision_kind" json:"revision_kind"`
	ContentHash      string         `gorm:"not null;column:content_hash" json:"content_hash"`
	CreatedAt        time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (DatasetExampleRevision) TableName() string { return "dataset_example_revisions" }
