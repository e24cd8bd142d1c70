package migrations

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
)

// 8b885da28ff9: JSON_PATH template format, and prompt invocation parameters
// move from JSONB to JSON on PostgreSQL so insertion order of keys is
// preserved on read-back (JSONB reorders object keys). The stored values
// are semantically unchanged by the type conversion.
func upPromptFormats(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	if d == db.Postgres {
		return execAll(tx,
			`ALTER TABLE prompt_versions ALTER COLUMN invocation_parameters TYPE JSON USING invocation_parameters::json`,
			`ALTER TABLE prompt_versions DROP CONSTRAINT ck_prompt_versions_valid_template_format`,
			`ALTER TABLE prompt_versions ADD CONSTRAINT ck_prompt_versions_valid_template_format CHECK (template_format IN ('MUSTACHE', 'FSTRING', 'NONE', 'JSON_PATH'))`,
		)
	}
	return rebuildTable(tx, "prompt_versions",
		promptVersionsDDL(d, "prompt_versions_new", "'MUSTACHE', 'FSTRING', 'NONE', 'JSON_PATH'"),
		`INSERT INTO prompt_versions_new (id, prompt_id, template_format, template, invocation_parameters, model_provider, model_name, created_at)
		 SELECT id, prompt_id, template_format, template, invocation_parameters, model_provider, model_name, created_at FROM prompt_versions`,
		`CREATE INDEX ix_prompt_versions_prompt_id ON prompt_versions (prompt_id)`,
	)
}

func downPromptFormats(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	// JSON_PATH has no representation under the narrower constraint; such
	// rows must be fixed or removed before downgrading.
	var jsonPathRows int64
	err := tx.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM prompt_versions WHERE template_format = 'JSON_PATH'`).
		Scan(&jsonPathRows).Error
	if err != nil {
		return err
	}
	if jsonPathRows > 0 {
		return &IrreversibleDataError{
			Revision: "8b885da28ff9",
			Reason:   fmt.Sprintf("%d prompt version(s) use the JSON_PATH template format", jsonPathRows),
		}
	}
	if d == db.Postgres {
		return execAll(tx,
			`ALTER TABLE prompt_versions DROP CONSTRAINT ck_prompt_versions_valid_template_format`,
			`ALTER TABLE prompt_versions ADD CONSTRAINT ck_prompt_versions_valid_template_format CHECK (template_format IN ('MUSTACHE', 'FSTRING', 'NONE'))`,
			`ALTER TABLE prompt_versions ALTER COLUMN invocation_parameters TYPE JSONB USING invocation_parameters::jsonb`,
		)
	}
	return rebuildTable(tx, "prompt_versions",
		promptVersionsDDL(d, "prompt_versions_new", "'MUSTACHE', 'FSTRING', 'NONE'"),
		`INSERT INTO prompt_versions_new (id, prompt_id, template_format, template, invocation_parameters, model_provider, model_name, created_at)
		 SELECT id, prompt_id, template_format, template, invocation_parameters, model_provider, model_name, created_at FROM prompt_versions`,
		`CREATE INDEX ix_prompt_versions_prompt_id ON prompt_versions (prompt_id)`,
	)
}

func promptVersionsDDL(d db.Dialect, name, formats string) string {
	return fmt.Sprintf(`
CREATE TABLE %s (
	id %s,
	prompt_id BIGINT NOT NULL REFERENCES prompts (id) ON DELETE CASCADE,
	template_format VARCHAR NOT NULL,
	template %s NOT NULL,
	invocation_parameters %s,
	model_provider VARCHAR NOT NULL,
	model_name VARCHAR NOT NULL,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT ck_prompt_versions_valid_template_format CHECK (template_format IN (%s))
)`, name, pkType(d), jsonType(d), jsonType(d), tsType(d), formats)
}
