package migrations

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
)

// e76e491bf2a9: experiments_dataset_examples junction. For every existing
// experiment pinned to version V, resolves each touched example's latest
// revision at or before V; examples whose latest applicable revision is a
// DELETE get no junction row.
func upExperimentJunction(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	err := execAll(tx, fmt.Sprintf(`
CREATE TABLE experiments_dataset_examples (
	id %s,
	experiment_id BIGINT NOT NULL REFERENCES experiments (id) ON DELETE CASCADE,
	dataset_example_id BIGINT NOT NULL REFERENCES dataset_examples (id) ON DELETE CASCADE,
	dataset_example_revision_id BIGINT NOT NULL REFERENCES dataset_example_revisions (id) ON DELETE CASCADE,
	CONSTRAINT uq_experiments_dataset_examples_experiment_example UNIQUE (experiment_id, dataset_example_id)
)`, pkType(d)))
	if err != nil {
		return err
	}

	type experimentRow struct {
		ID               int64
		DatasetVersionID int64
	}
	var experiments []experimentRow
	if err := tx.WithContext(ctx).Raw(
		`SELECT id, dataset_version_id FROM experiments ORDER BY id`).Scan(&experiments).Error; err != nil {
		return fmt.Errorf("read experiments: %w", err)
	}

	type resolvedRow struct {
		DatasetExampleID int64
		RevisionID       int64
		RevisionKind     string
	}
	for _, exp := range experiments {
		// Latest revision per example with dataset_version_id <= the pinned
		// version. Kind is read off the winning row so DELETEs exclude the
		// example instead of resolving to an older revision.
		var resolved []resolvedRow
		err := tx.WithContext(ctx).Raw(`
			SELECT r.dataset_example_id AS dataset_example_id,
			       r.id AS revision_id,
			       r.revision_kind AS revision_kind
			FROM dataset_example_revisions r
			JOIN (
				SELECT dataset_example_id, MAX(dataset_version_id) AS max_version
				FROM dataset_example_revisions
				WHERE dataset_version_id <= ?
				GROUP BY dataset_example_id
			) latest
			ON latest.dataset_example_id = r.dataset_example_id
			AND latest.max_version = r.dataset_version_id`, exp.DatasetVersionID).
			Scan(&resolved).Error
		if err != nil {
			return fmt.Errorf("resolve revisions for experiment %d: %w", exp.ID, err)
		}
		for _, row := range resolved {
			if row.RevisionKind == "DELETE" {
				continue
			}
			err := tx.WithContext(ctx).Exec(`
				INSERT INTO experiments_dataset_examples (experiment_id, dataset_example_id, dataset_example_revision_id)
				VALUES (?, ?, ?)`, exp.ID, row.DatasetExampleID, row.RevisionID).Error
			if err != nil {
				return fmt.Errorf("insert junction row for experiment %d example %d: %w", exp.ID, row.DatasetExampleID, err)
			}
		}
	}
	return nil
}

func downExperimentJunction(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	return execAll(tx, `DROP TABLE experiments_dataset_examples`)
}
