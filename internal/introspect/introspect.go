// Package introspect reads the live shape of a table: its columns, which of
// them are nullable, its index names, and its constraint names. It exists
// for the migration test suite, which asserts that every revision's
// downgrade restores the exact schema its upgrade started from; nothing in
// the request path uses it.
package introspect

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/db"
)

// TableInfo is the observable shape of a table. All slices are sorted so
// values compare directly.
type TableInfo struct {
	Columns         []string
	NullableColumns []string
	Indexes         []string
	Constraints     []string
}

func (t TableInfo) Equal(other TableInfo) bool {
	return equalSlices(t.Columns, other.Columns) &&
		equalSlices(t.NullableColumns, other.NullableColumns) &&
		equalSlices(t.Indexes, other.Indexes) &&
		equalSlices(t.Constraints, other.Constraints)
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func Table(ctx context.Context, conn *gorm.DB, d db.Dialect, table string) (TableInfo, error) {
	switch d {
	case db.SQLite:
		return sqliteTable(ctx, conn, table)
	case db.Postgres:
		return postgresTable(ctx, conn, table)
	default:
		return TableInfo{}, fmt.Errorf("unsupported dialect %q", d)
	}
}

// TableExists reports whether the table is present at all, which is how
// tests assert a downgrade to base removed everything.
func TableExists(ctx context.Context, conn *gorm.DB, d db.Dialect, table string) (bool, error) {
	var count int64
	var err error
	switch d {
	case db.SQLite:
		err = conn.WithContext(ctx).
			Raw(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).
			Scan(&count).Error
	case db.Postgres:
		err = conn.WithContext(ctx).
			Raw(`SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`, table).
			Scan(&count).Error
	default:
		return false, fmt.Errorf("unsupported dialect %q", d)
	}
	return count > 0, err
}

func sqliteTable(ctx context.Context, conn *gorm.DB, table string) (TableInfo, error) {
	var info TableInfo

	type columnRow struct {
		Name    string
		Notnull int
		Pk      int
	}
	var columns []columnRow
	err := conn.WithContext(ctx).
		Raw(fmt.Sprintf(`PRAGMA table_info(%q)`, table)).Scan(&columns).Error
	if err != nil {
		return info, fmt.Errorf("table_info %s: %w", table, err)
	}
	if len(columns) == 0 {
		return info, fmt.Errorf("table %q does not exist", table)
	}
	for _, c := range columns {
		info.Columns = append(info.Columns, c.Name)
		if c.Notnull == 0 && c.Pk == 0 {
			info.NullableColumns = append(info.NullableColumns, c.Name)
		}
	}

	// index_list includes the sqlite_autoindex_<table>_<n> entries SQLite
	// creates for table-level UNIQUE constraints.
	type indexRow struct {
		Name string
	}
	var indexes []indexRow
	err = conn.WithContext(ctx).
		Raw(fmt.Sprintf(`PRAGMA index_list(%q)`, table)).Scan(&indexes).Error
	if err != nil {
		return info, fmt.Errorf("index_list %s: %w", table, err)
	}
	for _, ix := range indexes {
		info.Indexes = append(info.Indexes, ix.Name)
	}

	// SQLite keeps constraint names only in the original DDL text.
	var createSQL string
	err = conn.WithContext(ctx).
		Raw(`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, table).
		Scan(&createSQL).Error
	if err != nil {
		return info, fmt.Errorf("read ddl %s: %w", table, err)
	}
	info.Constraints = constraintNamesFromDDL(createSQL)

	sortAll(&info)
	return info, nil
}

var constraintNameRe = regexp.MustCompile(`(?i)CONSTRAINT\s+"?([A-Za-z0-9_]+)"?`)

func constraintNamesFromDDL(ddl string) []string {
	var names []string
	for _, m := range constraintNameRe.FindAllStringSubmatch(ddl, -1) {
		names = append(names, m[1])
	}
	return names
}

func postgresTable(ctx context.Context, conn *gorm.DB, table string) (TableInfo, error) {
	var info TableInfo

	type columnRow struct {
		ColumnName string
		IsNullable string
	}
	var columns []columnRow
	err := conn.WithContext(ctx).Raw(`
		SELECT column_name, is_nullable
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = ?`, table).
		Scan(&columns).Error
	if err != nil {
		return info, fmt.Errorf("columns %s: %w", table, err)
	}
	if len(columns) == 0 {
		return info, fmt.Errorf("table %q does not exist", table)
	}
	for _, c := range columns {
		info.Columns = append(info.Columns, c.ColumnName)
		if strings.EqualFold(c.IsNullable, "YES") {
			info.NullableColumns = append(info.NullableColumns, c.ColumnName)
		}
	}

	var indexNames []string
	err = conn.WithContext(ctx).Raw(`
		SELECT indexname FROM pg_indexes
		WHERE schemaname = current_schema() AND tablename = ?`, table).
		Scan(&indexNames).Error
	if err != nil {
		return info, fmt.Errorf("indexes %s: %w", table, err)
	}
	info.Indexes = indexNames

	// The per-column NOT NULL checks PostgreSQL synthesizes are noise for
	// schema comparison; only named table constraints matter here.
	var constraintNames []string
	err = conn.WithContext(ctx).Raw(`
		SELECT constraint_name
		FROM information_schema.table_constraints
		WHERE table_schema = current_schema() AND table_name = ?
		AND constraint_name NOT LIKE '%_not_null'`, table).
		Scan(&constraintNames).Error
	if err != nil {
		return info, fmt.Errorf("constraints %s: %w", table, err)
	}
	info.Constraints = constraintNames

	sortAll(&info)
	return info, nil
}

func sortAll(info *TableInfo) {
	sort.Strings(info.Columns)
	sort.Strings(info.NullableColumns)
	sort.Strings(info.Indexes)
	sort.Strings(info.Constraints)
}
