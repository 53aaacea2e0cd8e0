package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConsentRepo(t *testing.T) (*ConsentRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewConsentRepo(db), mock
}

func TestConsentReplaceForDevice(t *testing.T) {
	repo, mock := newConsentRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM device_consents").
		WithArgs(uint64(7), "dev-1", "android").
		WillReturnResult(sqlmock.NewResult(0, 4))
	// One value group per category, in declared category order; the
	// timestamp columns are stamped from the boolean so they are only
	// pinned loosely here.
	mock.ExpectExec(`INSERT INTO device_consents .+ VALUES \(.+\),\(.+\),\(.+\),\(.+\)`).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	err := repo.ReplaceForDevice(context.Background(), 7, "dev-1", "android", map[string]bool{
		"steps":      true,
		"heart_rate": false,
		"sleep":      true,
		"calories":   false,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentReplaceForDevice_RollsBackOnInsertFailure(t *testing.T) {
	repo, mock := newConsentRepo(t)

	// A failed insert must roll the delete back so the device keeps its
	// previous consent rows instead of ending up with none.
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM device_consents").
		WithArgs(uint64(7), "dev-1", "android").
		WillReturnResult(sqlmock.NewResult(0, 4))
	boom := errors.New("invalid connection")
	mock.ExpectExec("INSERT INTO device_consents").WillReturnError(boom)
	mock.ExpectRollback()

	err := repo.ReplaceForDevice(context.Background(), 7, "dev-1", "android", map[string]bool{
		"steps":      true,
		"heart_rate": true,
		"sleep":      true,
		"calories":   true,
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentReplaceForDevice_EmptyMapOnlyDeletes(t *testing.T) {
	repo, mock := newConsentRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM device_consents").
		WithArgs(uint64(7), "dev-1", "android").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	err := repo.ReplaceForDevice(context.Background(), 7, "dev-1", "android", nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentMapForDevice(t *testing.T) {
	repo, mock := newConsentRepo(t)

	mock.ExpectQuery("SELECT category, granted FROM device_consents").
		WithArgs(uint64(7), "dev-1", "android").
		WillReturnRows(sqlmock.NewRows([]string{"category", "granted"}).
			AddRow("steps", true).
			AddRow("sleep", false))

	m, err := repo.MapForDevice(context.Background(), 7, "dev-1", "android")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"steps": true, "sleep": false}, m)
}

func TestConsentMapForDevice_Empty(t *testing.T) {
	repo, mock := newConsentRepo(t)

	mock.ExpectQuery("SELECT category, granted FROM device_consents").
		WillReturnRows(sqlmock.NewRows([]string{"category", "granted"}))

	m, err := repo.MapForDevice(context.Background(), 7, "ghost", "ios")
	require.NoError(t, err)
	assert.Empty(t, m)
}
