package migrations

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
)

// annotationMigrationSpec drives the per-kind DDL of 4ded9e43755f; the four
// annotation tables differ only in parent column and the document-position
// component of the conflict key.
type annotationMigrationSpec struct {
	table       string
	parentCol   string
	parentTable string
	hasPosition bool
	oldUqName   string
	// The full new-constraint name exceeds PostgreSQL's 63-byte identifier
	// limit for document_annotations, so the name actually produced there is
	// hardcoded per backend instead of computed.
	newUqNameSQLite   string
	newUqNamePostgres string
}

var annotationMigrationSpecs = []annotationMigrationSpec{
	{
		table: "span_annotations", parentCol: "span_rowid", parentTable: "spans",
		oldUqName:         "uq_span_annotations_span_rowid_name",
		newUqNameSQLite:   "uq_span_annotations_span_rowid_name_identifier",
		newUqNamePostgres: "uq_span_annotations_span_rowid_name_identifier",
	},
	{
		table: "trace_annotations", parentCol: "trace_rowid", parentTable: "traces",
		oldUqName:         "uq_trace_annotations_trace_rowid_name",
		newUqNameSQLite:   "uq_trace_annotations_trace_rowid_name_identifier",
		newUqNamePostgres: "uq_trace_annotations_trace_rowid_name_identifier",
	},
	{
		table: "project_session_annotations", parentCol: "project_session_rowid", parentTable: "project_sessions",
		oldUqName:         "uq_project_session_annotations_project_session_rowid_name",
		newUqNameSQLite:   "uq_project_session_annotations_session_rowid_name_identifier",
		newUqNamePostgres: "uq_project_session_annotations_session_rowid_name_identifier",
	},
	{
		table: "document_annotations", parentCol: "span_rowid", parentTable: "spans", hasPosition: true,
		oldUqName:         "uq_document_annotations_span_rowid_name_document_position",
		newUqNameSQLite:   "uq_document_annotations_span_rowid_name_identifier_document_position",
		newUqNamePostgres: "uq_document_annotations_span_rowid_name_identifier_docume_76183",
	},
}

func (s annotationMigrationSpec) newUqName(d db.Dialect) string {
	if d == db.Postgres {
		return s.newUqNamePostgres
	}
	return s.newUqNameSQLite
}

func (s annotationMigrationSpec) uniqueCols() string {
	if s.hasPosition {
		return s.parentCol + ", name, identifier, document_position"
	}
	return s.parentCol + ", name, identifier"
}

func (s annotationMigrationSpec) oldUniqueCols() string {
	if s.hasPosition {
		return s.parentCol + ", name, document_position"
	}
	return s.parentCol + ", name"
}

// 4ded9e43755f: annotation config. Adds identifier/source/user_id to every
// annotation table and widens the conflict key to include identifier. The
// source backfill default (HUMAN -> APP, everything else -> API) is a
// one-time heuristic specific to this migration; later code paths always
// supply source explicitly.
func upAnnotationConfig(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	const sourceBackfill = `CASE WHEN annotator_kind = 'HUMAN' THEN 'APP' ELSE 'API' END`
	for _, spec := range annotationMigrationSpecs {
		if d == db.Postgres {
			err := execAll(tx,
				fmt.Sprintf(`ALTER TABLE %s ADD COLUMN identifier VARCHAR NOT NULL DEFAULT ''`, spec.table),
				fmt.Sprintf(`ALTER TABLE %s ADD COLUMN source VARCHAR`, spec.table),
				fmt.Sprintf(`ALTER TABLE %s ADD COLUMN user_id BIGINT REFERENCES users (id) ON DELETE SET NULL`, spec.table),
				fmt.Sprintf(`UPDATE %s SET source = %s`, spec.table, sourceBackfill),
				fmt.Sprintf(`ALTER TABLE %s ALTER COLUMN source SET NOT NULL`, spec.table),
				fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT ck_%s_valid_source CHECK (source IN ('API', 'APP'))`, spec.table, spec.table),
				fmt.Sprintf(`ALTER TABLE %s DROP CONSTRAINT %s`, spec.table, spec.oldUqName),
				fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)`, spec.table, spec.newUqNamePostgres, spec.uniqueCols()),
			)
			if err != nil {
				return err
			}
			continue
		}
		err := rebuildTable(tx, spec.table,
			annotationHeadDDL(d, spec, spec.table+"_new"),
			fmt.Sprintf(`
INSERT INTO %s_new (id, %s, name, label, score, explanation, metadata, annotator_kind, identifier, source, created_at, updated_at%s)
SELECT id, %s, name, label, score, explanation, metadata, annotator_kind, '', %s, created_at, updated_at%s FROM %s`,
				spec.table, spec.parentCol, positionCol(spec, ", document_position"),
				spec.parentCol, sourceBackfill, positionCol(spec, ", document_position"), spec.table),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func downAnnotationConfig(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	for _, spec := range annotationMigrationSpecs {
		if d == db.Postgres {
			// Re-adding the narrower unique constraint fails loudly if rows
			// now share (parent, name) under distinct identifiers.
			err := execAll(tx,
				fmt.Sprintf(`ALTER TABLE %s DROP CONSTRAINT %s`, spec.table, spec.newUqNamePostgres),
				fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)`, spec.table, spec.oldUqName, spec.oldUniqueCols()),
				fmt.Sprintf(`ALTER TABLE %s DROP CONSTRAINT ck_%s_valid_source`, spec.table, spec.table),
				fmt.Sprintf(`ALTER TABLE %s DROP COLUMN user_id`, spec.table),
				fmt.Sprintf(`ALTER TABLE %s DROP COLUMN source`, spec.table),
				fmt.Sprintf(`ALTER TABLE %s DROP COLUMN identifier`, spec.table),
			)
			if err != nil {
				return err
			}
			continue
		}
		err := rebuildTable(tx, spec.table,
			annotationLegacyDDL(d, spec, spec.table+"_new"),
			fmt.Sprintf(`
INSERT INTO %s_new (id, %s, name, label, score, explanation, metadata, annotator_kind, created_at, updated_at%s)
SELECT id, %s, name, label, score, explanation, metadata, annotator_kind, created_at, updated_at%s FROM %s`,
				spec.table, spec.parentCol, positionCol(spec, ", document_position"),
				spec.parentCol, positionCol(spec, ", document_position"), spec.table),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func positionCol(spec annotationMigrationSpec, fragment string) string {
	if spec.hasPosition {
		return fragment
	}
	return ""
}

// annotationHeadDDL is the post-4ded9e43755f shape of an annotation table.
func annotationHeadDDL(d db.Dialect, spec annotationMigrationSpec, name string) string {
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
	identifier VARCHAR NOT NULL DEFAULT '',
	source VARCHAR NOT NULL,
	user_id BIGINT REFERENCES users (id) ON DELETE SET NULL,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,%s
	CONSTRAINT ck_%s_valid_annotator_kind CHECK (annotator_kind IN ('LLM', 'CODE', 'HUMAN')),
	CONSTRAINT ck_%s_valid_source CHECK (source IN ('API', 'APP')),
	CONSTRAINT %s UNIQUE (%s)
)`, name, pkType(d), spec.parentCol, spec.parentTable, floatType(d), jsonType(d), tsType(d), tsType(d),
		positionCol(spec, "\n\tdocument_position INTEGER NOT NULL,"),
		spec.table, spec.table, spec.newUqName(d), spec.uniqueCols())
}

// annotationLegacyDDL is the pre-4ded9e43755f shape.
func annotationLegacyDDL(d db.Dialect, spec annotationMigrationSpec, name string) string {
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
	CONSTRAINT %s UNIQUE (%s)
)`, name, pkType(d), spec.parentCol, spec.parentTable, floatType(d), jsonType(d), tsType(d), tsType(d),
		positionCol(spec, "\n\tdocument_position INTEGER NOT NULL,"),
		spec.table, spec.oldUqName, spec.oldUniqueCols())
}
