package alarm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iviccpataro-eng/api-elipse-sub000/internal/models"
	"github.com/iviccpataro-eng/api-elipse-sub000/internal/repository"
)

// ErrStoreUnavailable wraps durable-store I/O failures. Callers may
// retry; ingest logs and keeps going so alarm trouble never blocks the
// telemetry merge.
var ErrStoreUnavailable = errors.New("alarm store unavailable")

// Engine drives the alarm state machine per (tag, name):
// NoAlarm -> Active(unacked) -> Active(acked) -> Cleared. The
// check-then-act sequences are serialized per key; operations on
// different keys run concurrently.
type Engine struct {
	repo   repository.AlarmEventsRepository
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(repo repository.AlarmEventsRepository, logger *zap.Logger) *Engine {
	return &Engine{
		repo:   repo,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex of one (tag, name) key. Locks are never
// freed; the map is bounded by the alarm-key cardinality of the plant.
func (e *Engine) lockFor(tag, name string) *sync.Mutex {
	key := tag + "\x00" + name
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	return l
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// ReportActive raises an alarm for (tag, name) unless one is already
// active, in which case the report is a deliberate no-op: repeated
// "still active" telemetry must not spam the log or refresh timestamps.
func (e *Engine) ReportActive(ctx context.Context, tag, name string, severity int, message string, ts time.Time) error {
	l := e.lockFor(tag, name)
	l.Lock()
	defer l.Unlock()

	event := &models.AlarmEvent{
		Tag:         tag,
		Name:        name,
		Severity:    severity,
		TimestampIn: ts,
	}
	if message != "" {
		event.Message = &message
	}

	inserted, err := e.repo.InsertActive(ctx, event)
	if err != nil {
		return storeErr(err)
	}
	if inserted {
		e.logger.Info("Alarm raised",
			zap.String("tag", tag),
			zap.String("name", name),
			zap.Int("severity", severity),
		)
	}
	return nil
}

// ReportInactive clears the most recent active row for (tag, name).
// No-op when nothing is active.
func (e *Engine) ReportInactive(ctx context.Context, tag, name string, ts time.Time) error {
	l := e.lockFor(tag, name)
	l.Lock()
	defer l.Unlock()

	closed, err := e.repo.CloseActive(ctx, tag, name, ts)
	if err != nil {
		return storeErr(err)
	}
	if closed {
		e.logger.Info("Alarm cleared",
			zap.String("tag", tag),
			zap.String("name", name),
		)
	}
	return nil
}

// Acknowledge marks the most recent row for (tag, name) as seen by an
// operator. Independent of the active/cleared transition; no-op when no
// row exists at all.
func (e *Engine) Acknowledge(ctx context.Context, tag, name, user string) error {
	l := e.lockFor(tag, name)
	l.Lock()
	defer l.Unlock()

	acked, err := e.repo.AcknowledgeLatest(ctx, tag, name, user, time.Now())
	if err != nil {
		return storeErr(err)
	}
	if acked {
		e.logger.Info("Alarm acknowledged",
			zap.String("tag", tag),
			zap.String("name", name),
			zap.String("user", user),
		)
	}
	return nil
}

// Reconcile applies one equipment snapshot as the authoritative alarm
// state for its tag: reported-active conditions are raised, and every
// row currently active in the store that the snapshot does not report as
// active is closed. Absence is a clear signal, so a dropped clear event
// heals on the next cycle.
func (e *Engine) Reconcile(ctx context.Context, tag string, reported []ReportedAlarm, ts time.Time) error {
	var errs []error

	activeNames := make(map[string]bool, len(reported))
	for _, rep := range reported {
		if !rep.Active {
			continue
		}
		activeNames[rep.Name] = true
		when := rep.Timestamp
		if when.IsZero() {
			when = ts
		}
		if err := e.ReportActive(ctx, tag, rep.Name, rep.Severity, rep.Message, when); err != nil {
			errs = append(errs, err)
		}
	}

	current, err := e.repo.ActiveByTag(ctx, tag)
	if err != nil {
		errs = append(errs, storeErr(err))
		return errors.Join(errs...)
	}
	for _, event := range current {
		if activeNames[event.Name] {
			continue
		}
		if err := e.ReportInactive(ctx, tag, event.Name, ts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListActive returns all active alarms, oldest first, so the oldest
// unresolved conditions surface at the top of the dashboard.
func (e *Engine) ListActive(ctx context.Context) ([]*models.AlarmEvent, error) {
	events, err := e.repo.ListActive(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return events, nil
}

// ListHistory returns the paginated alarm log, newest first.
func (e *Engine) ListHistory(ctx context.Context, limit, offset int) ([]*models.AlarmEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	events, err := e.repo.ListHistory(ctx, limit, offset)
	if err != nil {
		return nil, storeErr(err)
	}
	return events, nil
}

// PurgeRecognized irreversibly deletes every acknowledged, cleared row.
func (e *Engine) PurgeRecognized(ctx context.Context) (int, error) {
	n, err := e.repo.PurgeRecognized(ctx)
	if err != nil {
		return 0, storeErr(err)
	}
	if n > 0 {
		e.logger.Info("Purged recognized alarms", zap.Int("removed", n))
	}
	return n, nil
}
