package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitatrack/health-sync/internal/config"
	"github.com/vitatrack/health-sync/internal/repository"
	"github.com/vitatrack/health-sync/internal/utils"
)

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 30,
		BcryptCost:     4, // MinCost keeps the hashing fast in tests
	}
	return NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), mock
}

func TestAuthRegister(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(sqlmock.NewResult(1, 1))

	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/register",
		`{"email":"Ana@Example.com","password":"hunter22"}`)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 9, resp.User.ID)
	assert.Equal(t, "ana@example.com", resp.User.Email, "email is normalized")
	assert.NotEmpty(t, resp.Access.Token)
	assert.Len(t, resp.Refresh.Token, 96)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthRegister_DuplicateEmail(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'ana@example.com' for key 'uq_users_email'"))

	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/register",
		`{"email":"ana@example.com","password":"hunter22"}`)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthLogin(t *testing.T) {
	h, mock := newAuthHandler(t)

	hash, err := utils.HashPassword("hunter22", 4)
	require.NoError(t, err)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .* FROM users WHERE email=").
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "is_active", "created_at", "updated_at"}).
			AddRow(9, "ana@example.com", hash, true, now, now))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(sqlmock.NewResult(1, 1))

	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/login",
		`{"email":"ana@example.com","password":"hunter22"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthLogin_BadPassword(t *testing.T) {
	h, mock := newAuthHandler(t)

	hash, err := utils.HashPassword("hunter22", 4)
	require.NoError(t, err)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .* FROM users WHERE email=").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "is_active", "created_at", "updated_at"}).
			AddRow(9, "ana@example.com", hash, true, now, now))

	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/login",
		`{"email":"ana@example.com","password":"wrong"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthLogin_InactiveAccount(t *testing.T) {
	h, mock := newAuthHandler(t)

	hash, err := utils.HashPassword("hunter22", 4)
	require.NoError(t, err)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .* FROM users WHERE email=").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "is_active", "created_at", "updated_at"}).
			AddRow(9, "ana@example.com", hash, false, now, now))

	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/login",
		`{"email":"ana@example.com","password":"hunter22"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRefresh_RotatesToken(t *testing.T) {
	h, mock := newAuthHandler(t)

	raw := "0123456789abcdef"
	hash := utils.HashRefreshRaw(raw)
	future := time.Now().UTC().Add(24 * time.Hour)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WithArgs(hash).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(9, future, nil))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(hash).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .* FROM users WHERE id=").
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "is_active", "created_at", "updated_at"}).
			AddRow(9, "ana@example.com", "x", true, now, now))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(sqlmock.NewResult(2, 1))

	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+raw+`"}`)
	require.NoError(t, h.Refresh(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEqual(t, raw, resp.Refresh.Token, "a fresh refresh token is issued")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthRefresh_ExpiredToken(t *testing.T) {
	h, mock := newAuthHandler(t)

	raw := "expired-token"
	past := time.Now().UTC().Add(-time.Hour)
	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(9, past, nil))

	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"`+raw+`"}`)
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthLogout(t *testing.T) {
	h, mock := newAuthHandler(t)

	raw := "valid-token"
	future := time.Now().UTC().Add(24 * time.Hour)
	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(9, future, nil))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := newJSONContext(t, http.MethodPost, "/v1/auth/logout",
		`{"refresh_token":"`+raw+`"}`)
	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthMe(t *testing.T) {
	h, mock := newAuthHandler(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .* FROM users WHERE id=").
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "is_active", "created_at", "updated_at"}).
			AddRow(testUserID, "ana@example.com", "x", true, now, now))

	c, rec := newJSONContext(t, http.MethodGet, "/v1/me", "")
	require.NoError(t, h.Me(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp userPart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ana@example.com", resp.Email)
	assert.NotContains(t, rec.Body.String(), "password")
}
