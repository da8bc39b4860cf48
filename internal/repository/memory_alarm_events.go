package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iviccpataro-eng/api-elipse-sub000/internal/models"
)

// MemoryAlarmEventsRepository is an in-memory implementation used in
// tests and when the service runs without a database (DB_ENABLED=false).
// Same semantics as the Postgres repository, no durability.
type MemoryAlarmEventsRepository struct {
	mu     sync.Mutex
	events []*models.AlarmEvent
}

func NewMemoryAlarmEventsRepository() *MemoryAlarmEventsRepository {
	return &MemoryAlarmEventsRepository{}
}

var _ AlarmEventsRepository = (*MemoryAlarmEventsRepository)(nil)

func (r *MemoryAlarmEventsRepository) InsertActive(ctx context.Context, event *models.AlarmEvent) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.events {
		if e.Tag == event.Tag && e.Name == event.Name && e.Active {
			return false, nil
		}
	}

	stored := *event
	if stored.EventID == "" {
		stored.EventID = uuid.NewString()
	}
	stored.Active = true
	stored.Ack = false
	r.events = append(r.events, &stored)
	event.EventID = stored.EventID
	return true, nil
}

func (r *MemoryAlarmEventsRepository) CloseActive(ctx context.Context, tag, name string, ts time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target := r.latest(tag, name, true)
	if target == nil {
		return false, nil
	}
	out := ts
	target.Active = false
	target.TimestampOut = &out
	return true, nil
}

func (r *MemoryAlarmEventsRepository) AcknowledgeLatest(ctx context.Context, tag, name, user string, ts time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target := r.latest(tag, name, false)
	if target == nil {
		return false, nil
	}
	at := ts
	u := user
	target.Ack = true
	target.AckUser = &u
	target.AckTimestamp = &at
	return true, nil
}

func (r *MemoryAlarmEventsRepository) ActiveByTag(ctx context.Context, tag string) ([]*models.AlarmEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matches := []*models.AlarmEvent{}
	for _, e := range r.events {
		if e.Tag == tag && e.Active {
			matches = append(matches, copyEvent(e))
		}
	}
	sortByTimestampIn(matches, true)
	return matches, nil
}

func (r *MemoryAlarmEventsRepository) ListActive(ctx context.Context) ([]*models.AlarmEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matches := []*models.AlarmEvent{}
	for _, e := range r.events {
		if e.Active {
			matches = append(matches, copyEvent(e))
		}
	}
	sortByTimestampIn(matches, true)
	return matches, nil
}

func (r *MemoryAlarmEventsRepository) ListHistory(ctx context.Context, limit, offset int) ([]*models.AlarmEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*models.AlarmEvent, 0, len(r.events))
	for _, e := range r.events {
		all = append(all, copyEvent(e))
	}
	sortByTimestampIn(all, false)

	if offset >= len(all) {
		return []*models.AlarmEvent{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryAlarmEventsRepository) PurgeRecognized(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.events[:0]
	removed := 0
	for _, e := range r.events {
		if e.Ack && !e.Active {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.events = kept
	return removed, nil
}

// latest returns the most recent event for (tag, name), optionally only
// among active rows. Caller holds the lock.
func (r *MemoryAlarmEventsRepository) latest(tag, name string, activeOnly bool) *models.AlarmEvent {
	var target *models.AlarmEvent
	for _, e := range r.events {
		if e.Tag != tag || e.Name != name {
			continue
		}
		if activeOnly && !e.Active {
			continue
		}
		if target == nil || e.TimestampIn.After(target.TimestampIn) {
			target = e
		}
	}
	return target
}

func sortByTimestampIn(events []*models.AlarmEvent, ascending bool) {
	sort.SliceStable(events, func(i, j int) bool {
		if ascending {
			return events[i].TimestampIn.Before(events[j].TimestampIn)
		}
		return events[i].TimestampIn.After(events[j].TimestampIn)
	})
}

func copyEvent(e *models.AlarmEvent) *models.AlarmEvent {
	c := *e
	return &c
}
