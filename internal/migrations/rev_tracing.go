package migrations

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
)

// cf03bd6bae1d: tracing core. Projects, traces, spans, and the original
// shape of the three span-parented annotation tables, whose uniqueness was
// still (parent, name) without an identifier column.
func upTracingCore(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	annotationTable := func(table, parentCol, parentTable, extraCols, uniqueCols, uqName string) string {
		return fmt.Sprintf(`
CREATE TABLE %s (
	id %s,
	%s BIGINT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
	name VARCHAR NOT NULL,
	label VARCHAR,
	score %s,
	explanation VARCHAR,
	metadata %s NOT NULL,
	annotator_kind VARCHAR NOT NULL,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,%s
	CONSTRAINT ck_%s_valid_annotator_kind CHECK (annotator_kind IN ('LLM', 'CODE', 'HUMAN')),
	CONSTRAINT %s UNIQUE (%s, name%s)
)`, table, pkType(d), parentCol, parentTable, floatType(d), jsonType(d), tsType(d), tsType(d),
			extraCols, table, uqName, parentCol, uniqueCols)
	}

	return execAll(tx,
		fmt.Sprintf(`
CREATE TABLE projects (
	id %s,
	name VARCHAR NOT NULL,
	description VARCHAR,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT uq_projects_name UNIQUE (name)
)`, pkType(d), tsType(d), tsType(d)),
		fmt.Sprintf(`
CREATE TABLE traces (
	id %s,
	trace_id VARCHAR NOT NULL,
	project_rowid BIGINT NOT NULL REFERENCES projects (id) ON DELETE CASCADE,
	start_time %s NOT NULL,
	end_time %s NOT NULL,
	CONSTRAINT uq_traces_trace_id UNIQUE (trace_id)
)`, pkType(d), tsType(d), tsType(d)),
		`CREATE INDEX ix_traces_project_rowid ON traces (project_rowid)`,
		fmt.Sprintf(`
CREATE TABLE spans (
	id %s,
	trace_rowid BIGINT NOT NULL REFERENCES traces (id) ON DELETE CASCADE,
	span_id VARCHAR NOT NULL,
	parent_id VARCHAR,
	name VARCHAR NOT NULL,
	span_kind VARCHAR NOT NULL,
	attributes %s,
	num_documents INTEGER NOT NULL DEFAULT 0,
	start_time %s NOT NULL,
	end_time %s NOT NULL,
	CONSTRAINT uq_spans_span_id UNIQUE (span_id)
)`, pkType(d), jsonType(d), tsType(d), tsType(d)),
		`CREATE INDEX ix_spans_trace_rowid ON spans (trace_rowid)`,
		annotationTable("span_annotations", "span_rowid", "spans", "",
			"", "uq_span_annotations_span_rowid_name"),
		annotationTable("trace_annotations", "trace_rowid", "traces", "",
			"", "uq_trace_annotations_trace_rowid_name"),
		annotationTable("document_annotations", "span_rowid", "spans",
			"\n\tdocument_position INTEGER NOT NULL,",
			", document_position", "uq_document_annotations_span_rowid_name_document_position"),
	)
}

func downTracingCore(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	return execAll(tx,
		`DROP TABLE document_annotations`,
		`DROP TABLE trace_annotations`,
		`DROP TABLE span_annotations`,
		`DROP TABLE spans`,
		`DROP TABLE traces`,
		`DROP TABLE projects`,
	)
}
