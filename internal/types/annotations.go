package types

import (
	"time"

	"gorm.io/datatypes"
)

// AnnotationFields is the payload shared by all four annotation kinds. The
// conflict key for upsert is (parent, name, identifier), with document
// annotations additionally keyed on document position.
type AnnotationFields struct {
	Name          string           `gorm:"not null;column:name" json:"name"`
	Label         *string          `gorm:"column:label" json:"label"`
	Score         *float64         `gorm:"column:score" json:"score"`
	Explanation   *string          `gorm:"column:explanation" json:"explanation"`
	Metadata      datatypes.JSON   `gorm:"not null;column:metadata" json:"metadata"`
	AnnotatorKind AnnotatorKind    `gorm:"not null;column:annotator_kind" json:"annotator_kind"`
	Identifier    string           `gorm:"not null;default:'';column:identifier" json:"identifier"`
	Source        AnnotationSource `gorm:"not null;column:source" json:"source"`
	UserID        *int64           `gorm:"column:user_id" json:"user_id"`
	CreatedAt     time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type SpanAnnotation struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	SpanRowID int64 `gorm:"not null;column:span_rowid" json:"span_rowid"`
	AnnotationFields
}

func (SpanAnnotation) TableName() string { return "span_annotations" }

type TraceAnnotation struct {
	ID         int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceRowID int64 `gorm:"not null;column:trace_rowid" json:"trace_rowid"`
	AnnotationFields
}

func (TraceAnnotation) TableName() string { return "trace_annotations" }

type ProjectSessionAnnotation struct {
	ID                  int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ProjectSessionRowID int64 `gorm:"not null;column:project_session_rowid" json:"project_session_rowid"`
	AnnotationFields
}

func (ProjectSessionAnnotation) TableName() string { return "project_session_annotations" }

type DocumentAnnotation struct {
	ID               int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	SpanRowID        int64 `gorm:"not null;column:span_rowid" json:"span_rowid"`
	DocumentPosition int   `gorm:"not null;column:document_position" json:"document_position"`
	AnnotationFields
}

func (DocumentAnnotation) TableName() string { return "document_annotations" }
