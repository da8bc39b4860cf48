package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iviccpataro-eng/api-elipse-sub000/internal/models"
)

// PostgresAlarmEventsRepository persists alarm events in the
// alarm_events table (see scripts/alarm_events.sql). The active-row
// dedup is enforced in SQL (INSERT ... WHERE NOT EXISTS) so it holds
// across processes, not only across goroutines.
type PostgresAlarmEventsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresAlarmEventsRepository(db *sql.DB, logger *zap.Logger) *PostgresAlarmEventsRepository {
	return &PostgresAlarmEventsRepository{db: db, logger: logger}
}

var _ AlarmEventsRepository = (*PostgresAlarmEventsRepository)(nil)

const alarmEventColumns = `
	event_id,
	tag,
	name,
	severity,
	active,
	timestamp_in,
	timestamp_out,
	ack,
	ack_user,
	ack_timestamp,
	message,
	source
`

func (r *PostgresAlarmEventsRepository) InsertActive(ctx context.Context, event *models.AlarmEvent) (bool, error) {
	if event.Tag == "" || event.Name == "" {
		return false, fmt.Errorf("tag and name are required")
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	query := `
		INSERT INTO alarm_events (event_id, tag, name, severity, active, timestamp_in, ack, message, source)
		SELECT $1, $2, $3, $4, TRUE, $5, FALSE, $6, $7
		WHERE NOT EXISTS (
			SELECT 1 FROM alarm_events WHERE tag = $2 AND name = $3 AND active
		)
	`

	res, err := r.db.ExecContext(ctx, query,
		event.EventID,
		event.Tag,
		event.Name,
		event.Severity,
		event.TimestampIn,
		event.Message,
		event.Source,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert alarm event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresAlarmEventsRepository) CloseActive(ctx context.Context, tag, name string, ts time.Time) (bool, error) {
	query := `
		UPDATE alarm_events
		SET active = FALSE, timestamp_out = $3
		WHERE event_id = (
			SELECT event_id FROM alarm_events
			WHERE tag = $1 AND name = $2 AND active
			ORDER BY timestamp_in DESC
			LIMIT 1
		)
	`

	res, err := r.db.ExecContext(ctx, query, tag, name, ts)
	if err != nil {
		return false, fmt.Errorf("failed to close alarm event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read close result: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresAlarmEventsRepository) AcknowledgeLatest(ctx context.Context, tag, name, user string, ts time.Time) (bool, error) {
	query := `
		UPDATE alarm_events
		SET ack = TRUE, ack_user = $3, ack_timestamp = $4
		WHERE event_id = (
			SELECT event_id FROM alarm_events
			WHERE tag = $1 AND name = $2
			ORDER BY timestamp_in DESC
			LIMIT 1
		)
	`

	res, err := r.db.ExecContext(ctx, query, tag, name, user, ts)
	if err != nil {
		return false, fmt.Errorf("failed to acknowledge alarm event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read acknowledge result: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresAlarmEventsRepository) ActiveByTag(ctx context.Context, tag string) ([]*models.AlarmEvent, error) {
	query := `
		SELECT ` + alarmEventColumns + `
		FROM alarm_events
		WHERE tag = $1 AND active
		ORDER BY timestamp_in ASC
	`
	return r.queryEvents(ctx, query, tag)
}

func (r *PostgresAlarmEventsRepository) ListActive(ctx context.Context) ([]*models.AlarmEvent, error) {
	query := `
		SELECT ` + alarmEventColumns + `
		FROM alarm_events
		WHERE active
		ORDER BY timestamp_in ASC
	`
	return r.queryEvents(ctx, query)
}

func (r *PostgresAlarmEventsRepository) ListHistory(ctx context.Context, limit, offset int) ([]*models.AlarmEvent, error) {
	query := `
		SELECT ` + alarmEventColumns + `
		FROM alarm_events
		ORDER BY timestamp_in DESC
		LIMIT $1 OFFSET $2
	`
	return r.queryEvents(ctx, query, limit, offset)
}

func (r *PostgresAlarmEventsRepository) PurgeRecognized(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alarm_events WHERE ack AND NOT active`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge recognized alarms: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge result: %w", err)
	}
	return int(n), nil
}

func (r *PostgresAlarmEventsRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*models.AlarmEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alarm events: %w", err)
	}
	defer rows.Close()

	events := []*models.AlarmEvent{}
	for rows.Next() {
		event, err := scanAlarmEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alarm events: %w", err)
	}
	return events, nil
}

func scanAlarmEvent(rows *sql.Rows) (*models.AlarmEvent, error) {
	var event models.AlarmEvent
	var timestampOut, ackTimestamp sql.NullTime
	var ackUser, message, source sql.NullString

	err := rows.Scan(
		&event.EventID,
		&event.Tag,
		&event.Name,
		&event.Severity,
		&event.Active,
		&event.TimestampIn,
		&timestampOut,
		&event.Ack,
		&ackUser,
		&ackTimestamp,
		&message,
		&source,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan alarm event: %w", err)
	}

	if timestampOut.Valid {
		event.TimestampOut = &timestampOut.Time
	}
	if ackTimestamp.Valid {
		event.AckTimestamp = &ackTimestamp.Time
	}
	if ackUser.Valid {
		event.AckUser = &ackUser.String
	}
	if message.Valid {
		event.Message = &message.String
	}
	if source.Valid {
		event.Source = &source.String
	}
	return &event, nil
}
