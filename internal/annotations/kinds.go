package annotations

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
)

// Kind describes one of the four annotation families. The resolver's
// validation, dedup, and upsert algorithm is shared; everything that
// differs between kinds is data here.
type Kind struct {
	// Name is the node-id type tag, e.g. "SpanAnnotation".
	Name string
	// Table and ParentColumn locate the rows.
	Table        string
	ParentColumn string
	// ParentName is the node-id type tag of the parent, e.g. "Span"; it
	// doubles as the label in not-found messages.
	ParentName  string
	ParentTable string
	// HasPosition adds document_position to the conflict key.
	HasPosition bool
	// CheckBounds validates document_position against the parent, when set.
	CheckBounds func(ctx context.Context, tx *gorm.DB, parentID int64, position int) error
}

var SpanAnnotations = Kind{
	Name:         "SpanAnnotation",
	Table:        "span_annotations",
	ParentColumn: "span_rowid",
	ParentName:   "Span",
	ParentTable:  "spans",
}

var TraceAnnotations = Kind{
	Name:         "TraceAnnotation",
	Table:        "trace_annotations",
	ParentColumn: "trace_rowid",
	ParentName:   "Trace",
	ParentTable:  "traces",
}

var ProjectSessionAnnotations = Kind{
	Name:         "ProjectSessionAnnotation",
	Table:        "project_session_annotations",
	ParentColumn: "project_session_rowid",
	ParentName:   "ProjectSession",
	ParentTable:  "project_sessions",
}

var DocumentAnnotations = Kind{
	Name:         "DocumentAnnotation",
	Table:        "document_annotations",
	ParentColumn: "span_rowid",
	ParentName:   "Span",
	ParentTable:  "spans",
	HasPosition:  true,
	CheckBounds:  checkDocumentPosition,
}

// checkDocumentPosition enforces 0 <= position < the number of documents
// retrieved by the parent span.
func checkDocumentPosition(ctx context.Context, tx *gorm.DB, spanRowID int64, position int) error {
	var numDocuments int
	err := tx.WithContext(ctx).
		Raw(`SELECT num_documents FROM spans WHERE id = ?`, spanRowID).
		Scan(&numDocuments).Error
	if err != nil {
		return err
	}
	if position < 0 || position >= numDocuments {
		return apierr.Validationf(
			"document position %d is out of bounds for span with %d retrieved document(s)",
			position, numDocuments)
	}
	return nil
}

// conflictKey is the uniqueness tuple annotations upsert on. position is
// zero for the kinds that do not carry one.
type conflictKey struct {
	parentID   int64
	name       string
	identifier string
	position   int
}

func (k Kind) keyOf(in UpsertInput) conflictKey {
	key := conflictKey{parentID: in.ParentID, name: in.Name, identifier: in.Identifier}
	if k.HasPosition && in.DocumentPosition != nil {
		key.position = *in.DocumentPosition
	}
	return key
}

func (k Kind) selectColumns() string {
	cols := fmt.Sprintf(
		`id, %s AS parent_id, name, label, score, explanation, metadata, annotator_kind, identifier, source, user_id, created_at, updated_at`,
		k.ParentColumn)
	if k.HasPosition {
		cols += ", document_position"
	}
	return cols
}
