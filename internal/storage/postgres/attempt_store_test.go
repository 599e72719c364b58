package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchaops/cafeleads/internal/leads"
)

func sampleAttempt() leads.SearchAttempt {
	return leads.SearchAttempt{
		ID:        "attempt-1",
		QueryText: "matcha cafe seattle",
		Provider:  leads.SourceGoogleMaps,
		Status:    leads.AttemptPending,
		Initiator: "ops@example.com",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAttemptStoreCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAttemptStoreWithPool(mock, "search_attempts")
	require.NoError(t, err)

	a := sampleAttempt()
	mock.ExpectExec("INSERT INTO search_attempts").
		WithArgs(a.ID, a.QueryText, string(a.Provider), a.SearchType,
			string(a.Status), a.Initiator, a.ErrorText, a.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Create(context.Background(), a))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptStoreUpdateStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAttemptStoreWithPool(mock, "search_attempts")
	require.NoError(t, err)

	mock.ExpectExec("UPDATE search_attempts SET status").
		WithArgs("running", "", "attempt-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.UpdateStatus(context.Background(), "attempt-1", leads.AttemptRunning, ""))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptStoreUpdateStatusTerminalRowUntouched(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAttemptStoreWithPool(mock, "search_attempts")
	require.NoError(t, err)

	mock.ExpectExec("UPDATE search_attempts SET status").
		WithArgs("running", "", "attempt-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = store.UpdateStatus(context.Background(), "attempt-1", leads.AttemptRunning, "")
	assert.ErrorIs(t, err, leads.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptStoreGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAttemptStoreWithPool(mock, "search_attempts")
	require.NoError(t, err)

	a := sampleAttempt()
	rows := pgxmock.NewRows([]string{
		"id", "query_text", "provider", "search_type", "status",
		"initiator", "error_text", "created_at",
	}).AddRow(a.ID, a.QueryText, string(a.Provider), a.SearchType,
		string(a.Status), a.Initiator, a.ErrorText, a.CreatedAt)
	mock.ExpectQuery("SELECT (.+) FROM search_attempts WHERE id").
		WithArgs("attempt-1").
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, a, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptStoreGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAttemptStoreWithPool(mock, "search_attempts")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM search_attempts WHERE id").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "query_text", "provider", "search_type", "status",
			"initiator", "error_text", "created_at",
		}))

	_, err = store.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, leads.ErrNotFound)
}

func TestAttemptStoreListRecent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewAttemptStoreWithPool(mock, "search_attempts")
	require.NoError(t, err)

	a := sampleAttempt()
	rows := pgxmock.NewRows([]string{
		"id", "query_text", "provider", "search_type", "status",
		"initiator", "error_text", "created_at",
	}).AddRow(a.ID, a.QueryText, string(a.Provider), a.SearchType,
		string(a.Status), a.Initiator, a.ErrorText, a.CreatedAt)
	mock.ExpectQuery("SELECT (.+) FROM search_attempts WHERE initiator").
		WithArgs("ops@example.com", 20).
		WillReturnRows(rows)

	got, err := store.ListRecent(context.Background(), "ops@example.com", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
