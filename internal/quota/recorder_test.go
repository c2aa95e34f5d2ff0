package quota

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"backdrop/internal/domain"
)

type execRecorder struct {
	mu    sync.Mutex
	calls [][]any
}

func (f *execRecorder) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, args)
	return pgconn.CommandTag{}, nil
}

func (f *execRecorder) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return fakeRow{}
}

func (f *execRecorder) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, nil
}

func TestRecorderAppendsEvent(t *testing.T) {
	sql := &execRecorder{}
	rec := NewRecorder(sql)

	if err := rec.Record(context.Background(), 42, domain.ActionBackgroundRemoval); err != nil {
		t.Fatalf("Record() error: %v", err)
	}
	if len(sql.calls) != 1 {
		t.Fatalf("Record() issued %d execs, want 1", len(sql.calls))
	}
	args := sql.calls[0]
	if id, ok := args[0].(string); !ok || id == "" {
		t.Fatalf("event id = %v, want non-empty uuid string", args[0])
	}
	if args[1] != int64(42) || args[2] != string(domain.ActionBackgroundRemoval) {
		t.Fatalf("unexpected event args: %v", args)
	}
}
