package migrations

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
)

// Per-dialect column type fragments. Revisions interpolate these into DDL
// templates; names that diverge between backends stay hardcoded per step.
func pkType(d db.Dialect) string {
	if d == db.Postgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func jsonType(d db.Dialect) string {
	if d == db.Postgres {
		return "JSONB"
	}
	return "TEXT"
}

func tsType(d db.Dialect) string {
	if d == db.Postgres {
		return "TIMESTAMP WITH TIME ZONE"
	}
	return "DATETIME"
}

func floatType(d db.Dialect) string {
	if d == db.Postgres {
		return "DOUBLE PRECISION"
	}
	return "REAL"
}

func blobType(d db.Dialect) string {
	if d == db.Postgres {
		return "BYTEA"
	}
	return "BLOB"
}

// execAll runs each DDL/DML statement in order, stopping at the first error.
func execAll(tx *gorm.DB, stmts ...string) error {
	for _, stmt := range stmts {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := tx.Exec(stmt).Error; err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i]) + " ..."
	}
	return s
}

// rebuildTable performs the SQLite equivalent of altering table-level
// constraints: create <table>_new from newDDL, copy rows via copySQL, drop
// the old table and rename. copySQL must be a full INSERT INTO <table>_new
// ... SELECT statement so backfill expressions can run during the copy.
// Unique violations in the copy abort the rebuild, which is how incompatible
// data fails loudly instead of being dropped.
func rebuildTable(tx *gorm.DB, table, newDDL, copySQL string, postStmts ...string) error {
	stmts := []string{newDDL, copySQL,
		fmt.Sprintf(`DROP TABLE %s`, table),
		fmt.Sprintf(`ALTER TABLE %s_new RENAME TO %s`, table, table),
	}
	stmts = append(stmts, postStmts...)
	return execAll(tx, stmts...)
}
