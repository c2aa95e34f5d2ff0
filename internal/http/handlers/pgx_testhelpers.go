package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SimpleRow adapts a scan func to pgx.Row for tests.
type SimpleRow struct {
	scan func(dest ...any) error
}

func NewSimpleRow(scanner func(dest ...any) error) SimpleRow {
	return SimpleRow{scan: scanner}
}

func (r SimpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// FakeSQL is an in-memory SQLExecutor for handler tests. Queries are
// dispatched on a marker substring so tests read naturally.
type FakeSQL struct {
	Rows  map[string]func(args ...any) SimpleRow
	Execs []FakeExec
}

type FakeExec struct {
	Query string
	Args  []any
}

func NewFakeSQL() *FakeSQL {
	return &FakeSQL{Rows: map[string]func(args ...any) SimpleRow{}}
}

// On registers the row returned for queries containing the fragment.
func (f *FakeSQL) On(fragment string, fn func(args ...any) SimpleRow) {
	f.Rows[fragment] = fn
}

func (f *FakeSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	f.Execs = append(f.Execs, FakeExec{Query: query, Args: args})
	return pgconn.CommandTag{}, nil
}

func (f *FakeSQL) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	for fragment, fn := range f.Rows {
		if strings.Contains(query, fragment) {
			return fn(args...)
		}
	}
	return SimpleRow{}
}

func (f *FakeSQL) Query(_ context.Context, query string, _ ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("unexpected Query in test: %s", query)
}

// ExecCount returns how many recorded Execs contain the fragment.
func (f *FakeSQL) ExecCount(fragment string) int {
	n := 0
	for _, e := range f.Execs {
		if strings.Contains(e.Query, fragment) {
			n++
		}
	}
	return n
}
