package migrations

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
)

// a20694b15f82: prompts and generative models. Prompt versions carry a
// template_format restricted to the original three values; invocation
// parameters start as JSONB on PostgreSQL. Generative models power the
// model cache daemon and are soft-deleted via deleted_at.
func upPrompts(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	invocationType := jsonType(d) // JSONB here; converted to JSON by 8b885da28ff9
	return execAll(tx,
		fmt.Sprintf(`
CREATE TABLE prompts (
	id %s,
	name VARCHAR NOT NULL,
	description VARCHAR,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT uq_prompts_name UNIQUE (name)
)`, pkType(d), tsType(d), tsType(d)),
		fmt.Sprintf(`
CREATE TABLE prompt_versions (
	id %s,
	prompt_id BIGINT NOT NULL REFERENCES prompts (id) ON DELETE CASCADE,
	template_format VARCHAR NOT NULL,
	template %s NOT NULL,
	invocation_parameters %s,
	model_provider VARCHAR NOT NULL,
	model_name VARCHAR NOT NULL,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT ck_prompt_versions_valid_template_format CHECK (template_format IN ('MUSTACHE', 'FSTRING', 'NONE'))
)`, pkType(d), jsonType(d), invocationType, tsType(d)),
		`CREATE INDEX ix_prompt_versions_prompt_id ON prompt_versions (prompt_id)`,
		fmt.Sprintf(`
CREATE TABLE generative_models (
	id %s,
	name VARCHAR NOT NULL,
	provider VARCHAR NOT NULL,
	name_pattern VARCHAR NOT NULL,
	is_built_in BOOLEAN NOT NULL DEFAULT FALSE,
	start_time %s,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	deleted_at %s
)`, pkType(d), tsType(d), tsType(d), tsType(d), tsType(d)),
		`CREATE INDEX ix_generative_models_updated_at ON generative_models (updated_at)`,
		fmt.Sprintf(`
CREATE TABLE token_prices (
	id %s,
	model_id BIGINT NOT NULL REFERENCES generative_models (id) ON DELETE CASCADE,
	token_type VARCHAR NOT NULL,
	is_prompt BOOLEAN NOT NULL,
	base_rate %s NOT NULL,
	CONSTRAINT uq_token_prices_model_type_prompt UNIQUE (model_id, token_type, is_prompt)
)`, pkType(d), floatType(d)),
	)
}

func downPrompts(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	return execAll(tx,
		`DROP TABLE token_prices`,
		`DROP TABLE generative_models`,
		`DROP TABLE prompt_versions`,
		`DROP TABLE prompts`,
	)
}
