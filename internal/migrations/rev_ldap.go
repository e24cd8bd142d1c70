package migrations

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
)

// ReservedLDAPClientID is the sentinel legacy deployments stored in
// oauth2_client_id to mark directory-backed users before LDAP was a first
// class auth method.
const ReservedLDAPClientID = "__ldap__"

const noEmailSentinelPrefix = "ldap-no-email-"

// LegacyNoEmailSentinel reproduces the legacy "null email" marker bit for
// bit: prefix + MD5 hex digest of the lowercased directory unique id. The
// downgrade regenerates it so the round trip is exact.
func LegacyNoEmailSentinel(uniqueID string) string {
	sum := md5.Sum([]byte(strings.ToLower(uniqueID)))
	return noEmailSentinelPrefix + hex.EncodeToString(sum[:])
}

// 2f9d1a65945f: first-class LDAP. Email becomes nullable, ldap_unique_id is
// added, and legacy sentinel rows are reinterpreted: the directory id moves
// out of oauth2_user_id and sentinel emails revert to true NULLs.
func upLDAP(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	if d == db.Postgres {
		err := execAll(tx,
			`ALTER TABLE users ADD COLUMN ldap_unique_id VARCHAR`,
			`ALTER TABLE users ADD CONSTRAINT uq_users_ldap_unique_id UNIQUE (ldap_unique_id)`,
			`ALTER TABLE users ALTER COLUMN email DROP NOT NULL`,
			`ALTER TABLE users DROP CONSTRAINT ck_users_valid_auth_method`,
			`ALTER TABLE users ADD CONSTRAINT ck_users_valid_auth_method CHECK (auth_method IN ('LOCAL', 'OAUTH2', 'LDAP'))`,
			`ALTER TABLE users ADD CONSTRAINT ldap_auth_has_unique_id_no_password_no_oauth CHECK (
				auth_method != 'LDAP'
				OR (ldap_unique_id IS NOT NULL
					AND password_hash IS NULL AND password_salt IS NULL
					AND oauth2_client_id IS NULL AND oauth2_user_id IS NULL)
			)`,
		)
		if err != nil {
			return err
		}
	} else {
		err := rebuildTable(tx, "users",
			usersLDAPDDL(d, "users_new"),
			`INSERT INTO users_new (id, username, email, auth_method, password_hash, password_salt, oauth2_client_id, oauth2_user_id, ldap_unique_id, created_at, updated_at)
			 SELECT id, username, email, auth_method, password_hash, password_salt, oauth2_client_id, oauth2_user_id, NULL, created_at, updated_at FROM users`,
		)
		if err != nil {
			return err
		}
	}

	type legacyLDAPRow struct {
		ID           int64
		Email        *string
		Oauth2UserID *string
	}
	var rows []legacyLDAPRow
	err := tx.WithContext(ctx).Raw(
		`SELECT id, email, oauth2_user_id FROM users WHERE oauth2_client_id = ?`,
		ReservedLDAPClientID).Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("read legacy ldap rows: %w", err)
	}
	for _, row := range rows {
		if row.Oauth2UserID == nil || *row.Oauth2UserID == "" {
			return fmt.Errorf("legacy ldap user %d has no directory unique id", row.ID)
		}
		uniqueID := *row.Oauth2UserID
		var email any
		if row.Email != nil {
			email = *row.Email
		}
		if row.Email != nil && *row.Email == LegacyNoEmailSentinel(uniqueID) {
			email = nil
		}
		err := tx.WithContext(ctx).Exec(`
			UPDATE users
			SET auth_method = 'LDAP', ldap_unique_id = ?, email = ?,
			    oauth2_client_id = NULL, oauth2_user_id = NULL
			WHERE id = ?`, uniqueID, email, row.ID).Error
		if err != nil {
			return fmt.Errorf("reinterpret ldap user %d: %w", row.ID, err)
		}
	}
	return nil
}

func downLDAP(ctx context.Context, tx *gorm.DB, d db.Dialect) error {
	// Email becomes NOT NULL again. A non-LDAP row with a NULL email has no
	// legacy representation; LDAP rows get the deterministic sentinel back.
	var badEmails int64
	err := tx.WithContext(ctx).
		Raw(`SELECT COUNT(*) FROM users WHERE email IS NULL AND auth_method != 'LDAP'`).
		Scan(&badEmails).Error
	if err != nil {
		return err
	}
	if badEmails > 0 {
		return &IrreversibleDataError{
			Revision: "2f9d1a65945f",
			Reason:   fmt.Sprintf("%d non-LDAP user(s) have a NULL email, which the prior schema forbids", badEmails),
		}
	}

	type ldapRow struct {
		ID           int64
		Email        *string
		LdapUniqueID *string
	}
	var rows []ldapRow
	err = tx.WithContext(ctx).Raw(
		`SELECT id, email, ldap_unique_id FROM users WHERE auth_method = 'LDAP'`).Scan(&rows).Error
	if err != nil {
		return fmt.Errorf("read ldap rows: %w", err)
	}
	for _, row := range rows {
		if row.LdapUniqueID == nil {
			return &IrreversibleDataError{
				Revision: "2f9d1a65945f",
				Reason:   fmt.Sprintf("ldap user %d has no directory unique id", row.ID),
			}
		}
		email := ""
		if row.Email != nil {
			email = *row.Email
		} else {
			email = LegacyNoEmailSentinel(*row.LdapUniqueID)
		}
		err := tx.WithContext(ctx).Exec(`
			UPDATE users
			SET auth_method = 'OAUTH2', oauth2_client_id = ?, oauth2_user_id = ?,
			    email = ?, ldap_unique_id = NULL
			WHERE id = ?`, ReservedLDAPClientID, *row.LdapUniqueID, email, row.ID).Error
		if err != nil {
			return fmt.Errorf("restore legacy ldap user %d: %w", row.ID, err)
		}
	}

	if d == db.Postgres {
		return execAll(tx,
			`ALTER TABLE users DROP CONSTRAINT ldap_auth_has_unique_id_no_password_no_oauth`,
			`ALTER TABLE users DROP CONSTRAINT uq_users_ldap_unique_id`,
			`ALTER TABLE users DROP COLUMN ldap_unique_id`,
			`ALTER TABLE users ALTER COLUMN email SET NOT NULL`,
			`ALTER TABLE users DROP CONSTRAINT ck_users_valid_auth_method`,
			`ALTER TABLE users ADD CONSTRAINT ck_users_valid_auth_method CHECK (auth_method IN ('LOCAL', 'OAUTH2'))`,
		)
	}
	return rebuildTable(tx, "users",
		usersAuthMethodDDL(d, "users_new"),
		`INSERT INTO users_new (id, username, email, auth_method, password_hash, password_salt, oauth2_client_id, oauth2_user_id, created_at, updated_at)
		 SELECT id, username, email, auth_method, password_hash, password_salt, oauth2_client_id, oauth2_user_id, created_at, updated_at FROM users`,
	)
}

// usersLDAPDDL is the 2f9d1a65945f shape.
func usersLDAPDDL(d db.Dialect, name string) string {
	return fmt.Sprintf(`
CREATE TABLE %s (
	id %s,
	username VARCHAR NOT NULL,
	email VARCHAR,
	auth_method VARCHAR NOT NULL,
	password_hash %s,
	password_salt %s,
	oauth2_client_id VARCHAR,
	oauth2_user_id VARCHAR,
	ldap_unique_id VARCHAR,
	created_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CONSTRAINT uq_users_username UNIQUE (username),
	CONSTRAINT uq_users_email UNIQUE (email),
	CONSTRAINT uq_users_ldap_unique_id UNIQUE (ldap_unique_id),
	CONSTRAINT ck_users_valid_auth_method CHECK (auth_method IN ('LOCAL', 'OAUTH2', 'LDAP')),
	CONSTRAINT local_auth_has_password_no_oauth CHECK (
		auth_method != 'LOCAL'
		OR (password_hash IS NOT NULL AND password_salt IS NOT NULL
			AND oauth2_client_id IS NULL AND oauth2_user_id IS NULL)
	),
	CONSTRAINT oauth2_auth_has_client_no_password CHECK (
		auth_method != 'OAUTH2'
		OR (oauth2_client_id IS NOT NULL AND oauth2_user_id IS NOT NULL
			AND password_hash IS NULL AND password_salt IS NULL)
	),
	CONSTRAINT ldap_auth_has_unique_id_no_password_no_oauth CHECK (
		auth_method != 'LDAP'
		OR (ldap_unique_id IS NOT NULL
			AND password_hash IS NULL AND password_salt IS NULL
			AND oauth2_client_id IS NULL AND oauth2_user_id IS NULL)
	)
)`, name, pkType(d), blobType(d), blobType(d), tsType(d), tsType(d))
}
