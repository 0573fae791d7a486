// Package sqlite implements warehouse.Repository for SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/abdullahkhizr7/Complete-ETL-Pipeline/internal/warehouse"
)

// Repo implements warehouse.Repository for SQLite.
//
// Key design points vs Postgres:
//   - "INTEGER PRIMARY KEY AUTOINCREMENT" is the rowid and auto-generates
//     surrogate keys, standing in for SERIAL.
//   - Foreign keys are only enforced with PRAGMA foreign_keys=ON, so the
//     connection enables it explicitly.
type Repo struct {
	db *sql.DB
}

func init() {
	warehouse.Register("sqlite", New)
}

func New(ctx context.Context, cfg warehouse.Config) (warehouse.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// EnsureSchema creates the star-schema tables if they do not exist.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, t := range warehouse.StarSchema() {
		ddl, err := buildCreateTableSQL(t)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	q, args := buildInsertSQL(table, columns, rows)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *Repo) ReplaceRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return 0, err
	}

	var n int64
	if len(rows) > 0 {
		q, args := buildInsertSQL(table, columns, rows)
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, err
		}
		n, _ = res.RowsAffected()
	}

	return n, tx.Commit()
}

// MergeDimension applies the SCD Type-1 merge inside one transaction:
// replace staging, UPDATE matched natural keys in place, INSERT unmatched
// staging rows. A mid-sequence failure rolls everything back, so staging and
// target can never be observed inconsistent.
func (r *Repo) MergeDimension(ctx context.Context, spec warehouse.MergeSpec, rows [][]any) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+spec.Staging); err != nil {
		return fmt.Errorf("clear staging %s: %w", spec.Staging, err)
	}

	if len(rows) > 0 {
		q, args := buildInsertSQL(spec.Staging, spec.Columns(), rows)
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("load staging %s: %w", spec.Staging, err)
		}
	}

	// UPDATE before INSERT, always: a row is either updated or inserted for
	// a given staging snapshot, never both.
	if _, err := tx.ExecContext(ctx, buildMergeUpdateSQL(spec)); err != nil {
		return fmt.Errorf("merge update %s: %w", spec.Target, err)
	}
	if _, err := tx.ExecContext(ctx, buildMergeInsertSQL(spec)); err != nil {
		return fmt.Errorf("merge insert %s: %w", spec.Target, err)
	}

	return tx.Commit()
}

func (r *Repo) SelectKeyValue(ctx context.Context, table, keyColumn, valueColumn string) (map[int64]int64, error) {
	q := fmt.Sprintf(`SELECT %s, %s FROM %s`, sqlIdent(keyColumn), sqlIdent(valueColumn), table)
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]int64{}
	for rows.Next() {
		var k int64
		var v sql.NullInt64
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		if !v.Valid {
			return nil, fmt.Errorf(
				"sqlite: %s.%s is NULL; surrogate key not auto-generated (primary key must map to INTEGER PRIMARY KEY)",
				table, valueColumn,
			)
		}
		out[k] = v.Int64
	}
	return out, rows.Err()
}

// ---- SQL builders (pure, unit-testable without a database) ----

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func sqliteType(generic string) string {
	switch generic {
	case "bigint":
		return "INTEGER"
	case "float":
		return "REAL"
	default:
		return "TEXT"
	}
}

func buildCreateTableSQL(t warehouse.TableSpec) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("table name is empty")
	}

	var parts []string
	if t.PrimaryKey != nil {
		// "INTEGER PRIMARY KEY" is special in sqlite: it becomes the rowid
		// and auto-generates values, which is what "serial" means here.
		parts = append(parts, fmt.Sprintf("%s INTEGER PRIMARY KEY AUTOINCREMENT", sqlIdent(t.PrimaryKey.Name)))
	}

	for _, c := range t.Columns {
		col := fmt.Sprintf("%s %s", sqlIdent(c.Name), sqliteType(c.Type))
		if !c.Nullable {
			col += " NOT NULL"
		}
		if c.References != "" {
			col += " REFERENCES " + c.References
		}
		parts = append(parts, col)
	}

	for _, u := range t.Unique {
		cols := make([]string, 0, len(u))
		for _, c := range u {
			cols = append(cols, sqlIdent(c))
		}
		parts = append(parts, fmt.Sprintf("UNIQUE (%s)", strings.Join(cols, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", t.Name, strings.Join(parts, ",\n  ")), nil
}

func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	colList := make([]string, 0, len(columns))
	for _, c := range columns {
		colList = append(colList, sqlIdent(c))
	}
	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(colList, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		args = append(args, row...)
	}
	return b.String(), args
}

// buildMergeUpdateSQL overwrites all non-key attributes of target rows whose
// natural key appears in staging. SQLite supports UPDATE ... FROM since
// 3.33, which modernc.org/sqlite ships.
func buildMergeUpdateSQL(spec warehouse.MergeSpec) string {
	sets := make([]string, 0, len(spec.AttrColumns))
	for _, c := range spec.AttrColumns {
		sets = append(sets, fmt.Sprintf("%s = s.%s", sqlIdent(c), sqlIdent(c)))
	}
	return fmt.Sprintf(
		"UPDATE %s SET %s FROM %s AS s WHERE %s.%s = s.%s",
		spec.Target, strings.Join(sets, ", "), spec.Staging,
		spec.Target, sqlIdent(spec.KeyColumn), sqlIdent(spec.KeyColumn),
	)
}

func buildMergeInsertSQL(spec warehouse.MergeSpec) string {
	cols := spec.Columns()
	colList := make([]string, 0, len(cols))
	selList := make([]string, 0, len(cols))
	for _, c := range cols {
		colList = append(colList, sqlIdent(c))
		selList = append(selList, "s."+sqlIdent(c))
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s AS s WHERE NOT EXISTS (SELECT 1 FROM %s t WHERE t.%s = s.%s)",
		spec.Target, strings.Join(colList, ", "), strings.Join(selList, ", "), spec.Staging,
		spec.Target, sqlIdent(spec.KeyColumn), sqlIdent(spec.KeyColumn),
	)
}
