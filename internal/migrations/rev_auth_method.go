package migrations

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
)

// bc8fea3c2bc8: explicit auth_method discriminator. Derives the method from
// which credential fields are populated (password -> LOCAL, oauth2 ->
// OAUTH2), then replaces the implicit exactly-one CHECK with per-method
// named constraints.
func upAuthMethod(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	const authMethodBackfill = `CASE WHEN password_hash IS NOT NULL THEN 'LOCAL' ELSE 'OAUTH2' END`
	if d == db.Postgres {
		return execAll(tx,
			`ALTER TABLE users ADD COLUMN auth_method VARCHAR`,
			fmt.Sprintf(`UPDATE users SET auth_method = %s`, authMethodBackfill),
			`ALTER TABLE users ALTER COLUMN auth_method SET NOT NULL`,
			`ALTER TABLE users DROP CONSTRAINT ck_users_exactly_one_auth_method`,
			`ALTER TABLE users ADD CONSTRAINT ck_users_valid_auth_method CHECK (auth_method IN ('LOCAL', 'OAUTH2'))`,
			`ALTER TABLE users ADD CONSTRAINT local_auth_has_password_no_oauth CHECK (
				auth_method != 'LOCAL'
				OR (password_hash IS NOT NULL AND password_salt IS NOT NULL
					AND oauth2_client_id IS NULL AND oauth2_user_id IS NULL)
			)`,
			`ALTER TABLE users ADD CONSTRAINT oauth2_auth_has_client_no_password CHECK (
				auth_method != 'OAUTH2'
				OR (oauth2_client_id IS NOT NULL AND oauth2_user_id IS NOT NULL
					AND password_hash IS NULL AND password_salt IS NULL)
			)`,
		)
	}
	return rebuildTable(tx, "users",
		usersAuthMethodDDL(d, "users_new"),
		fmt.Sprintf(`
INSERT INTO users_new (id, username, email, auth_method, password_hash, password_salt, oauth2_client_id, oauth2_user_id, created_at, updated_at)
SELECT id, username, email, %s, password_hash, password_salt, oauth2_client_id, oauth2_user_id, created_at, updated_at FROM users`,
			authMethodBackfill),
	)
}

func downAuthMethod(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	// Rows carrying an auth method with no legacy equivalent cannot be
	// expressed under the implicit exactly-one constraint.
	var unrepresentable int64
	err := tx.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM users WHERE auth_method NOT IN ('LOCAL', 'OAUTH2')`).
		Scan(&unrepresentable).Error
	if err != nil {
		return err
	}
	if unrepresentable > 0 {
		return &IrreversibleDataError{
			Revision: "bc8fea3c2bc8",
			Reason:   fmt.Sprintf("%d user(s) have an auth_method not representable in the prior schema", unrepresentable),
		}
	}
	if d == db.Postgres {
		return execAll(tx,
			`ALTER TABLE users DROP CONSTRAINT local_auth_has_password_no_oauth`,
			`ALTER TABLE users DROP CONSTRAINT oauth2_auth_has_client_no_password`,
			`ALTER TABLE users DROP CONSTRAINT ck_users_valid_auth_method`,
			`ALTER TABLE users DROP COLUMN auth_method`,
			`ALTER TABLE users ADD CONSTRAINT ck_users_exactly_one_auth_method CHECK (
				(password_hash IS NULL) = (password_salt IS NULL)
				AND (oauth2_client_id IS NULL) = (oauth2_user_id IS NULL)
				AND (password_hash IS NULL) != (oauth2_client_id IS NULL)
			)`,
		)
	}
	return rebuildTable(tx, "users",
		usersLegacyDDL(d, "users_new"),
		`INSERT INTO users_new (id, username, email, password_hash, password_salt, oauth2_client_id, oauth2_user_id, created_at, updated_at)
		 SELECT id, username, email, password_hash, password_salt, oauth2_client_id, oauth2_user_id, created_at, updated_at FROM users`,
	)
}

// usersLegacyDDL is the 3be8647b87d8 shape.
func usersLegacyDDL(d db.Dialect, name string) string {
	return fmt.Sprintf(`
CREATE TABLE %s (
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
)`, name, pkType(d), blobType(d), blobType(d), tsType(d), tsType(d))
}

// usersAuthMethodDDL is the bc8fea3c2bc8 shape.
func usersAuthMethodDDL(d db.Dialect, name string) string {
	return fmt.Sprintf(`
CREATE TABLE %s (
	id %s,
	username VARCHAR NOT NULL,
	email VARCHAR NOT NULL,
	auth_method VARCHAR NOT NULL,
	password_hash %s,
	password_salt %s,
	oauth2_client_id VARCHAR,
	oauth2_user_id VARCHAR,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT uq_users_username UNIQUE (username),
	CONSTRAINT uq_users_email UNIQUE (email),
	CONSTRAINT ck_users_valid_auth_method CHECK (auth_method IN ('LOCAL', 'OAUTH2')),
	CONSTRAINT local_auth_has_password_no_oauth CHECK (
		auth_method != 'LOCAL'
		OR (password_hash IS NOT NULL AND password_salt IS NOT NULL
			AND oauth2_client_id IS NULL AND oauth2_user_id IS NULL)
	),
	CONSTRAINT oauth2_auth_has_client_no_password CHECK (
		auth_method != 'OAUTH2'
		OR (oauth2_client_id IS NOT NULL AND oauth2_user_id IS NOT NULL
			AND password_hash IS NULL AND password_salt IS NULL)
	)
)`, name, pkType(d), blobType(d), blobType(d), tsType(d), tsType(d))
}
