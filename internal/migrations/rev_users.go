package migrations

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
)

// 3be8647b87d8: users and secrets. The original user shape has no
// auth_method discriminator; "exactly one of password / oauth2" is implied
// by a single CHECK over the populated field pairs.
func upUsers(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	return execAll(tx,
		fmt.Sprintf(`
CREATE TABLE users (
	id %s,
	username VARCHAR NOT NULL,
	email VARCHAR NOT NULL,
	password_hash %s,
	password_salt %s,
	oauth2_client_id VARCHAR,
	oauth2_user_id VARCHAR,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT uq_users_username UNIQUE (username),
	CONSTRAINT uq_users_email UNIQUE (email),
	CONSTRAINT ck_users_exactly_one_auth_method CHECK (
		(password_hash IS NULL) = (password_salt IS NULL)
		AND (oauth2_client_id IS NULL) = (oauth2_user_id IS NULL)
		AND (password_hash IS NULL) != (oauth2_client_id IS NULL)
	)
)`, pkType(d), blobType(d), blobType(d), tsType(d), tsType(d)),
		fmt.Sprintf(`
CREATE TABLE secrets (
	id %s,
	name VARCHAR NOT NULL,
	value VARCHAR NOT NULL,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT uq_secrets_name UNIQUE (name)
)`, pkType(d), tsType(d), tsType(d)),
	)
}

func downUsers(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	return execAll(tx,
		`DROP TABLE secrets`,
		`DROP TABLE users`,
	)
}
