// Package table implements the in-memory annotation table handed from a
// builder to the persistence engine, and the engine that checkpoints it.
package table

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Handle is the opaque result of a table builder. Its only operation is
// durably writing itself to a path.
type Handle interface {
	Checkpoint(ctx context.Context, path string, overwrite bool) error
}

// Table is a keyed, immutable, string-typed table. Transformations return
// new tables and never mutate the receiver.
type Table struct {
	engine  *Engine
	name    string
	columns []string
	index   map[string]int
	key     []string
	rows    [][]string
	globals map[string]string
}

var _ Handle = (*Table)(nil)

// Row is a read/write view of one table row used by MapRows and Filter.
type Row struct {
	index  map[string]int
	values []string
}

// Get returns the value of the named column, or "" when the column is absent.
func (r Row) Get(column string) string {
	i, ok := r.index[column]
	if !ok {
		return ""
	}
	return r.values[i]
}

// Set overwrites the value of an existing column.
func (r Row) Set(column, value string) {
	if i, ok := r.index[column]; ok {
		r.values[i] = value
	}
}

// Name identifies the table in metadata and logs.
func (t *Table) Name() string { return t.name }

// Columns returns a copy of the column names.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// Key returns a copy of the key columns.
func (t *Table) Key() []string { return append([]string(nil), t.key...) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Global returns a table-level annotation.
func (t *Table) Global(name string) (string, bool) {
	v, ok := t.globals[name]
	return v, ok
}

// Column returns a copy of the values of one column.
func (t *Table) Column(name string) ([]string, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("table %s: unknown column %q", t.name, name)
	}
	out := make([]string, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out, nil
}

// Require fails when any of the named columns is missing.
func (t *Table) Require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if _, ok := t.index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("table %s: missing columns %s", t.name, strings.Join(missing, ", "))
	}
	return nil
}

// Select projects the table onto the named columns, in the given order.
// Key columns that are dropped are removed from the key.
func (t *Table) Select(columns ...string) (*Table, error) {
	if err := t.Require(columns...); err != nil {
		return nil, err
	}
	rows := make([][]string, len(t.rows))
	for r, row := range t.rows {
		out := make([]string, len(columns))
		for i, c := range columns {
			out[i] = row[t.index[c]]
		}
		rows[r] = out
	}
	next := t.derive(columns, rows)
	for _, k := range t.key {
		if _, ok := next.index[k]; ok {
			next.key = append(next.key, k)
		}
	}
	return next, nil
}

// KeyBy sets the key columns.
func (t *Table) KeyBy(columns ...string) (*Table, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s: at least one key column is required", t.name)
	}
	if err := t.Require(columns...); err != nil {
		return nil, err
	}
	next := t.derive(t.columns, t.rows)
	next.key = append([]string(nil), columns...)
	return next, nil
}

// Distinct keeps the first row for every key value and orders rows by key.
func (t *Table) Distinct() *Table {
	if len(t.key) == 0 {
		return t.derive(t.columns, t.rows).withKey(t.key)
	}
	seen := make(map[string]struct{}, len(t.rows))
	rows := make([][]string, 0, len(t.rows))
	for _, row := range t.rows {
		k := t.keyOf(row)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return t.keyOf(rows[i]) < t.keyOf(rows[j])
	})
	return t.derive(t.columns, rows).withKey(t.key)
}

// Filter keeps rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	rows := make([][]string, 0, len(t.rows))
	for _, row := range t.rows {
		if keep(Row{index: t.index, values: row}) {
			rows = append(rows, row)
		}
	}
	return t.derive(t.columns, rows).withKey(t.key)
}

// MapRows applies fn to a copy of every row.
func (t *Table) MapRows(fn func(Row)) *Table {
	rows := make([][]string, len(t.rows))
	for r, row := range t.rows {
		values := append([]string(nil), row...)
		fn(Row{index: t.index, values: values})
		rows[r] = values
	}
	return t.derive(t.columns, rows).withKey(t.key)
}

// WithGlobal returns a copy of the table carrying one more table-level annotation.
func (t *Table) WithGlobal(name, value string) *Table {
	next := t.derive(t.columns, t.rows).withKey(t.key)
	next.globals[name] = value
	return next
}

// Checkpoint writes the table to path through the engine that created it.
func (t *Table) Checkpoint(ctx context.Context, path string, overwrite bool) error {
	if t.engine == nil {
		return fmt.Errorf("table %s: no engine attached", t.name)
	}
	return t.engine.checkpoint(ctx, t, path, overwrite)
}

func (t *Table) keyOf(row []string) string {
	parts := make([]string, len(t.key))
	for i, k := range t.key {
		parts[i] = row[t.index[k]]
	}
	return strings.Join(parts, "\x1f")
}

func (t *Table) derive(columns []string, rows [][]string) *Table {
	globals := make(map[string]string, len(t.globals))
	for k, v := range t.globals {
		globals[k] = v
	}
	return &Table{
		engine:  t.engine,
		name:    t.name,
		columns: append([]string(nil), columns...),
		index:   indexColumns(columns),
		rows:    rows,
		globals: globals,
	}
}

func (t *Table) withKey(key []string) *Table {
	t.key = append([]string(nil), key...)
	return t
}

func indexColumns(columns []string) map[string]int {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	return index
}
