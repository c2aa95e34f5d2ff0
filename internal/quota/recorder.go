package quota

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"backdrop/internal/domain"
	"backdrop/internal/infra"
	"backdrop/internal/sqlinline"
)

// Recorder appends immutable usage events. Events are written only after
// a job reaches its successful terminal state.
type Recorder struct {
	sql infra.SQLExecutor
}

// NewRecorder constructs a usage recorder.
func NewRecorder(sql infra.SQLExecutor) *Recorder {
	return &Recorder{sql: sql}
}

// Record appends one usage event for the user and action.
func (r *Recorder) Record(ctx context.Context, userID int64, action domain.Action) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QInsertUsageEvent, uuid.NewString(), userID, string(action)); err != nil {
		return fmt.Errorf("insert usage event: %w", err)
	}
	return nil
}
