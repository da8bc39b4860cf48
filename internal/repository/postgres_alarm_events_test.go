package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iviccpataro-eng/api-elipse-sub000/internal/models"
)

func setupMockAlarmEventsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresAlarmEventsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresAlarmEventsRepository(db, zap.NewNop())
	return db, mock, repo
}

func TestInsertActive_Inserts(t *testing.T) {
	db, mock, repo := setupMockAlarmEventsDB(t)
	defer db.Close()

	ts := time.Now()
	mock.ExpectExec(`INSERT INTO alarm_events`).
		WithArgs(sqlmock.AnyArg(), "EL/B/F/E", "Overtemp", 2, ts, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := repo.InsertActive(context.Background(), &models.AlarmEvent{
		Tag:         "EL/B/F/E",
		Name:        "Overtemp",
		Severity:    2,
		TimestampIn: ts,
	})
	require.NoError(t, err)
	assert.True(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertActive_DuplicateIsNoop(t *testing.T) {
	db, mock, repo := setupMockAlarmEventsDB(t)
	defer db.Close()

	ts := time.Now()
	// WHERE NOT EXISTS filtered the insert out: zero rows affected.
	mock.ExpectExec(`INSERT INTO alarm_events`).
		WithArgs(sqlmock.AnyArg(), "EL/B/F/E", "Overtemp", 2, ts, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.InsertActive(context.Background(), &models.AlarmEvent{
		Tag:         "EL/B/F/E",
		Name:        "Overtemp",
		Severity:    2,
		TimestampIn: ts,
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertActive_RequiresTagAndName(t *testing.T) {
	db, _, repo := setupMockAlarmEventsDB(t)
	defer db.Close()

	_, err := repo.InsertActive(context.Background(), &models.AlarmEvent{Name: "Overtemp"})
	assert.Error(t, err)
}

func TestCloseActive_ClosesLatest(t *testing.T) {
	db, mock, repo := setupMockAlarmEventsDB(t)
	defer db.Close()

	ts := time.Now()
	mock.ExpectExec(`UPDATE alarm_events`).
		WithArgs("EL/B/F/E", "Overtemp", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	closed, err := repo.CloseActive(context.Background(), "EL/B/F/E", "Overtemp", ts)
	require.NoError(t, err)
	assert.True(t, closed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCloseActive_NoActiveRow(t *testing.T) {
	db, mock, repo := setupMockAlarmEventsDB(t)
	defer db.Close()

	ts := time.Now()
	mock.ExpectExec(`UPDATE alarm_events`).
		WithArgs("EL/B/F/E", "Overtemp", ts).
		WillReturnResult(sqlmock.NewResult(0, 0))

	closed, err := repo.CloseActive(context.Background(), "EL/B/F/E", "Overtemp", ts)
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestAcknowledgeLatest(t *testing.T) {
	db, mock, repo := setupMockAlarmEventsDB(t)
	defer db.Close()

	ts := time.Now()
	mock.ExpectExec(`UPDATE alarm_events`).
		WithArgs("EL/B/F/E", "Overtemp", "operator1", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	acked, err := repo.AcknowledgeLatest(context.Background(), "EL/B/F/E", "Overtemp", "operator1", ts)
	require.NoError(t, err)
	assert.True(t, acked)
}

func TestListActive_ScansRows(t *testing.T) {
	db, mock, repo := setupMockAlarmEventsDB(t)
	defer db.Close()

	in := time.Now()
	rows := sqlmock.NewRows([]string{
		"event_id", "tag", "name", "severity", "active", "timestamp_in",
		"timestamp_out", "ack", "ack_user", "ack_timestamp", "message", "source",
	}).AddRow(
		"11111111-1111-1111-1111-111111111111", "EL/B/F/E", "Overtemp", 2, true, in,
		nil, false, nil, nil, "too hot", nil,
	)

	mock.ExpectQuery(`SELECT`).WillReturnRows(rows)

	events, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Overtemp", events[0].Name)
	assert.True(t, events[0].Active)
	assert.Nil(t, events[0].TimestampOut)
	require.NotNil(t, events[0].Message)
	assert.Equal(t, "too hot", *events[0].Message)
}

func TestListHistory_PassesPagination(t *testing.T) {
	db, mock, repo := setupMockAlarmEventsDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"event_id", "tag", "name", "severity", "active", "timestamp_in",
		"timestamp_out", "ack", "ack_user", "ack_timestamp", "message", "source",
	})
	mock.ExpectQuery(`SELECT`).WithArgs(20, 40).WillReturnRows(rows)

	events, err := repo.ListHistory(context.Background(), 20, 40)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPurgeRecognized_ReturnsCount(t *testing.T) {
	db, mock, repo := setupMockAlarmEventsDB(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM alarm_events`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.PurgeRecognized(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
