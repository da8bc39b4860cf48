package repository

import (
	"context"
	"time"

	"github.com/iviccpataro-eng/api-elipse-sub000/internal/models"
)

// AlarmEventsRepository is the durable alarm log. Implementations must
// make InsertActive atomic with respect to the at-most-one-active-per
// (tag, name) invariant: a concurrent duplicate insert yields inserted
// == false, never a second active row.
type AlarmEventsRepository interface {
	// InsertActive appends a new active, unacknowledged row unless one
	// is already active for (event.Tag, event.Name). Returns whether a
	// row was inserted.
	InsertActive(ctx context.Context, event *models.AlarmEvent) (bool, error)

	// CloseActive clears the most recent active row for (tag, name),
	// setting timestamp_out. Returns whether a row was closed.
	CloseActive(ctx context.Context, tag, name string, ts time.Time) (bool, error)

	// AcknowledgeLatest marks the most recent row for (tag, name) as
	// acknowledged, active or not. Returns whether a row was updated.
	AcknowledgeLatest(ctx context.Context, tag, name, user string, ts time.Time) (bool, error)

	// ActiveByTag lists the active rows of one tag (used by ingest
	// reconciliation).
	ActiveByTag(ctx context.Context, tag string) ([]*models.AlarmEvent, error)

	// ListActive lists all active rows, oldest first.
	ListActive(ctx context.Context) ([]*models.AlarmEvent, error)

	// ListHistory lists all rows, newest first, paginated.
	ListHistory(ctx context.Context, limit, offset int) ([]*models.AlarmEvent, error)

	// PurgeRecognized deletes every acknowledged, cleared row and
	// returns how many were removed.
	PurgeRecognized(ctx context.Context) (int, error)
}
