package types

import (
	"time"

	"gorm.io/datatypes"
)

type Project struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null;column:name" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

type Trace struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID             string    `gorm:"uniqueIndex;not null;column:trace_id" json:"trace_id"`
	ProjectRowID        int64     `gorm:"not null;index;column:project_rowid" json:"project_rowid"`
	ProjectSessionRowID *int64    `gorm:"index;column:project_session_rowid" json:"project_session_rowid,omitempty"`
	StartTime           time.Time `gorm:"not null;column:start_time" json:"start_time"`
	EndTime             time.Time `gorm:"not null;column:end_time" json:"end_time"`
}

func (Trace) TableName() string { return "traces" }

type Span struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceRowID   int64          `gorm:"not null;index;column:trace_rowid" json:"trace_rowid"`
	SpanID       string         `gorm:"uniqueIndex;not null;column:span_id" json:"span_id"`
	ParentID     *string        `gorm:"column:parent_id" json:"parent_id,omitempty"`
	Name         string         `gorm:"not null;column:name" json:"name"`
	SpanKind     string         `gorm:"not null;column:span_kind" json:"span_kind"`
	Attributes   datatypes.JSON `gorm:"column:attributes" json:"attributes"`
	NumDocuments int            `gorm:"not null;default:0;column:num_documents" json:"num_documents"`
	StartTime    time.Time      `gorm:"not null;column:start_time" json:"start_time"`
	EndTime      time.Time      `gorm:"not null;column:end_time" json:"end_time"`
}

func (Span) TableName() string { return "spans" }

// ProjectSession aggregates the traces sharing a session id extracted from
// root-span attributes. Start/end are the min/max over member traces.
type ProjectSession struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID    string    `gorm:"uniqueIndex;not null;column:session_id" json:"session_id"`
	ProjectRowID int64     `gorm:"not null;index;column:project_id" json:"project_id"`
	StartTime    time.Time `gorm:"not null;column:start_time" json:"start_time"`
	EndTime      time.Time `gorm:"not null;column:end_time" json:"end_time"`
}

func (ProjectSession) TableName() string { return "project_sessions" }
