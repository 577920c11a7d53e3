package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRecentReturnsNewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "actor_key", "to_email", "subject", "status", "error", "created_at"}).
		AddRow(2, "user:u1", "b@example.com", "Appointment request", "failed", "smtp timeout", now).
		AddRow(1, "user:u1", "a@example.com", "Appointment request", "sent", "", now.Add(-time.Hour))
	mock.ExpectQuery(`SELECT id, actor_key, to_email, subject, status, error, created_at`).
		WithArgs(100).
		WillReturnRows(rows)

	orch := NewOrchestrator(db, &StubEmailSender{}, nil)
	emails, err := orch.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, emails, 2)
	assert.Equal(t, "failed", emails[0].Status)
	assert.Equal(t, "smtp timeout", emails[0].Error)
	assert.Equal(t, "sent", emails[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecentClampsLimit(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, actor_key, to_email, subject, status, error, created_at`).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "actor_key", "to_email", "subject", "status", "error", "created_at"}))

	orch := NewOrchestrator(db, &StubEmailSender{}, nil)
	_, err = orch.ListRecent(context.Background(), 5000)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditEndpointServesEmails(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, actor_key, to_email, subject, status, error, created_at`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "actor_key", "to_email", "subject", "status", "error", "created_at"}).
			AddRow(1, "user:u1", "a@example.com", "Appointment request", "blocked", "rate_limit_exceeded", now))

	handler := NewHandler(NewOrchestrator(db, &StubEmailSender{}, nil), nil)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	server := httptest.NewServer(r)
	defer server.Close()

	resp, err := http.Get(server.URL + "/outbound-emails?limit=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Emails []OutboundEmail `json:"emails"`
		Count  int             `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "blocked", body.Emails[0].Status)
}

func TestAuditEndpointRejectsBadLimit(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler := NewHandler(NewOrchestrator(db, &StubEmailSender{}, nil), nil)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	server := httptest.NewServer(r)
	defer server.Close()

	resp, err := http.Get(server.URL + "/outbound-emails?limit=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
