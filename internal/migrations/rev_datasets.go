package migrations

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
)

// 10460e46d750: datasets and experiments. dataset_example_revisions is an
// append-only content log keyed (example, version); experiment_runs are
// unique per (experiment, example, repetition). content_hash and
// external_id arrive later (8a3764fe7f1a).
func upDatasets(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	return execAll(tx,
		fmt.Sprintf(`
CREATE TABLE datasets (
	id %s,
	name VARCHAR NOT NULL,
	description VARCHAR,
	metadata %s NOT NULL,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT uq_datasets_name UNIQUE (name)
)`, pkType(d), jsonType(d), tsType(d), tsType(d)),
		fmt.Sprintf(`
CREATE TABLE dataset_versions (
	id %s,
	dataset_id BIGINT NOT NULL REFERENCES datasets (id) ON DELETE CASCADE,
	description VARCHAR,
	metadata %s NOT NULL,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, pkType(d), jsonType(d), tsType(d)),
		`CREATE INDEX ix_dataset_versions_dataset_id ON dataset_versions (dataset_id)`,
		fmt.Sprintf(`
CREATE TABLE dataset_examples (
	id %s,
	dataset_id BIGINT NOT NULL REFERENCES datasets (id) ON DELETE CASCADE,
	span_rowid BIGINT REFERENCES spans (id) ON DELETE SET NULL,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, pkType(d), tsType(d)),
		`CREATE INDEX ix_dataset_examples_dataset_id ON dataset_examples (dataset_id)`,
		fmt.Sprintf(`
CREATE TABLE dataset_example_revisions (
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
		fmt.Sprintf(`
CREATE TABLE experiments (
	id %s,
	dataset_id BIGINT NOT NULL REFERENCES datasets (id) ON DELETE CASCADE,
	dataset_version_id BIGINT NOT NULL REFERENCES dataset_versions (id) ON DELETE CASCADE,
	name VARCHAR NOT NULL,
	description VARCHAR,
	repetitions INTEGER NOT NULL DEFAULT 1,
	metadata %s NOT NULL,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, pkType(d), jsonType(d), tsType(d), tsType(d)),
		`CREATE INDEX ix_experiments_dataset_id ON experiments (dataset_id)`,
		fmt.Sprintf(`
CREATE TABLE experiment_runs (
	id %s,
	experiment_id BIGINT NOT NULL REFERENCES experiments (id) ON DELETE CASCADE,
	dataset_example_id BIGINT NOT NULL REFERENCES dataset_examples (id) ON DELETE CASCADE,
	repetition_number INTEGER NOT NULL,
	output %s,
	error VARCHAR,
	start_time %s NOT NULL,
	end_time %s NOT NULL,
	CONSTRAINT uq_experiment_runs_experiment_example_repetition UNIQUE (experiment_id, dataset_example_id, repetition_number)
)`, pkType(d), jsonType(d), tsType(d), tsType(d)),
	)
}

func downDatasets(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	return execAll(tx,
		`DROP TABLE experiment_runs`,
		`DROP TABLE experiments`,
		`DROP TABLE dataset_example_revisions`,
		`DROP TABLE dataset_examples`,
		`DROP TABLE dataset_versions`,
		`DROP TABLE datasets`,
	)
}
