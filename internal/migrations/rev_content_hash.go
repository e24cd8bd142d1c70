package migrations

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/canonjson"
	"github.com/Arize-ai/phoenix-sub001/internal/db"
)

// 8a3764fe7f1a: content hashes and external ids. Every dataset example
// revision gets sha256(canonical_json({input, output, metadata})); every
// dataset example gets a fresh random UUID external id.
func upContentHash(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	err := execAll(tx,
		`ALTER TABLE dataset_example_revisions ADD COLUMN content_hash VARCHAR`,
		`ALTER TABLE dataset_examples ADD COLUMN external_id VARCHAR`,
	)
	if err != nil {
		return err
	}

	type revisionRow struct {
		ID       int64
		Input    []byte
		Output   []byte
		Metadata []byte
	}
	var revisions []revisionRow
	if err := tx.WithContext(ctx).Raw(
		`SELECT id, input, output, metadata FROM dataset_example_revisions ORDER BY id`).
		Scan(&revisions).Error; err != nil {
		return fmt.Errorf("read revisions: %w", err)
	}
	for _, rev := range revisions {
		hash, err := canonjson.HashContent(rev.Input, rev.Output, rev.Metadata)
		if err != nil {
			return fmt.Errorf("hash revision %d: %w", rev.ID, err)
		}
		if err := tx.WithContext(ctx).Exec(
			`UPDATE dataset_example_revisions SET content_hash = ? WHERE id = ?`, hash, rev.ID).Error; err != nil {
			return fmt.Errorf("write hash for revision %d: %w", rev.ID, err)
		}
	}

	var exampleIDs []int64
	if err := tx.WithContext(ctx).Raw(
		`SELECT id FROM dataset_examples ORDER BY id`).Scan(&exampleIDs).Error; err != nil {
		return fmt.Errorf("read examples: %w", err)
	}
	for _, id := range exampleIDs {
		if err := tx.WithContext(ctx).Exec(
			`UPDATE dataset_examples SET external_id = ? WHERE id = ?`, uuid.NewString(), id).Error; err != nil {
			return fmt.Errorf("assign external id for example %d: %w", id, err)
		}
	}

	if d == db.Postgres {
		return execAll(tx,
			`ALTER TABLE dataset_example_revisions ALTER COLUMN content_hash SET NOT NULL`,
			`ALTER TABLE dataset_examples ALTER COLUMN external_id SET NOT NULL`,
			`ALTER TABLE dataset_examples ADD CONSTRAINT uq_dataset_examples_external_id UNIQUE (external_id)`,
		)
	}
	err = rebuildTable(tx, "dataset_example_revisions",
		fmt.Sprintf(`
CREATE TABLE dataset_example_revisions_new (
	id %s,
	dataset_example_id BIGINT NOT NULL REFERENCES dataset_examples (id) ON DELETE CASCADE,
	dataset_version_id BIGINT NOT NULL REFERENCES dataset_versions (id) ON DELETE CASCADE,
	input %s NOT NULL,
	output %s NOT NULL,
	metadata %s NOT NULL,
	revision_kind VARCHAR NOT NULL,
	content_hash VARCHAR NOT NULL,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT ck_dataset_example_revisions_valid_revision_kind CHECK (revision_kind IN ('CREATE', 'PATCH', 'DELETE')),
	CONSTRAINT uq_dataset_example_revisions_example_version UNIQUE (dataset_example_id, dataset_version_id)
)`, pkType(d), jsonType(d), jsonType(d), jsonType(d), tsType(d)),
		`INSERT INTO dataset_example_revisions_new (id, dataset_example_id, dataset_version_id, input, output, metadata, revision_kind, content_hash, created_at)
		 SELECT id, dataset_example_id, dataset_version_id, input, output, metadata, revision_kind, content_hash, created_at FROM dataset_example_revisions`,
	)
	if err != nil {
		return err
	}
	return rebuildTable(tx, "dataset_examples",
		fmt.Sprintf(`
CREATE TABLE dataset_examples_new (
	id %s,
	dataset_id BIGINT NOT NULL REFERENCES datasets (id) ON DELETE CASCADE,
	span_rowid BIGINT REFERENCES spans (id) ON DELETE SET NULL,
	external_id VARCHAR NOT NULL,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT uq_dataset_examples_external_id UNIQUE (external_id)
)`, pkType(d), tsType(d)),
		`INSERT INTO dataset_examples_new (id, dataset_id, span_rowid, external_id, created_at)
		 SELECT id, dataset_id, span_rowid, external_id, created_at FROM dataset_examples`,
		`CREATE INDEX ix_dataset_examples_dataset_id ON dataset_examples (dataset_id)`,
	)
}

func downContentHash(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	if d == db.Postgres {
		return execAll(tx,
			`ALTER TABLE dataset_example_revisions DROP COLUMN content_hash`,
			`ALTER TABLE dataset_examples DROP CONSTRAINT uq_dataset_examples_external_id`,
			`ALTER TABLE dataset_examples DROP COLUMN external_id`,
		)
	}
	err := rebuildTable(tx, "dataset_example_revisions",
		fmt.Sprintf(`
CREATE TABLE dataset_example_revisions_new (
	id %s,
	dataset_example_id BIGINT NOT NULL REFERENCES dataset_examples (id) ON DELETE CASCADE,
	dataset_version_id BIGINT NOT NULL REFERENCES dataset_versions (id) ON DELETE CASCADE,
	input %s NOT NULL,
	output %s NOT NULL,
	metadata %s NOT NULL,
	revision_kind VARCHAR NOT NULL,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT ck_dataset_example_revisions_valid_revision_kind CHECK (revision_kind IN ('CREATE', 'PATCH', 'DELETE')),
	CONSTRAINT uq_dataset_example_revisions_example_version UNIQUE (dataset_example_id, dataset_version_id)
)`, pkType(d), jsonType(d), jsonType(d), jsonType(d), tsType(d)),
		`INSERT INTO dataset_example_revisions_new (id, dataset_example_id, dataset_version_id, input, output, metadata, revision_kind, created_at)
		 SELECT id, dataset_example_id, dataset_version_id, input, output, metadata, revision_kind, created_at FROM dataset_example_revisions`,
	)
	if err != nil {
		return err
	}
	return rebuildTable(tx, "dataset_examples",
		fmt.Sprintf(`
CREATE TABLE dataset_examples_new (
	id %s,
	dataset_id BIGINT NOT NULL REFERENCES datasets (id) ON DELETE CASCADE,
	span_rowid BIGINT REFERENCES spans (id) ON DELETE SET NULL,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, pkType(d), tsType(d)),
		`INSERT INTO dataset_examples_new (id, dataset_id, span_rowid, created_at)
		 SELECT id, dataset_id, span_rowid, created_at FROM dataset_examples`,
		`CREATE INDEX ix_dataset_examples_dataset_id ON dataset_examples (dataset_id)`,
	)
}
