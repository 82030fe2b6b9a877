package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hstu-emis/admin-gateway/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestAuditRecord(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	sessionID := "sess-1"
	entry := &models.AuditLog{
		SessionID: &sessionID,
		Username:  "admin1",
		Action:    models.AuditActionLogin,
		Resource:  "auth",
		IPAddress: "127.0.0.1",
		UserAgent: "test-agent",
	}
	err := repo.Record(context.Background(), entry)
	require.NoError(t, err)

	// ID and timestamp are filled in on insert.
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRecordKeepsProvidedID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	at := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	entry := &models.AuditLog{ID: "audit-1", Username: "admin1", Action: models.AuditActionExport, Resource: "academic-records", CreatedAt: at}
	require.NoError(t, repo.Record(context.Background(), entry))

	assert.Equal(t, "audit-1", entry.ID)
	assert.Equal(t, at, entry.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditListRecent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "session_id", "username", "action", "resource", "resource_id", "detail", "ip_address", "user_agent", "created_at"}).
		AddRow("audit-1", "sess-1", "admin1", models.AuditActionLogin, "auth", nil, []byte(`{"status":"success"}`), "127.0.0.1", "agent", now).
		AddRow("audit-2", "sess-1", "admin1", models.AuditActionLogout, "auth", nil, []byte(`{"status":"logout"}`), "127.0.0.1", "agent", now)
	mock.ExpectQuery("SELECT (.+) FROM audit_logs ORDER BY created_at DESC LIMIT").
		WithArgs(2).
		WillReturnRows(rows)

	entries, err := repo.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.AuditActionLogin, entries[0].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditListRecentClampsLimit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	rows := sqlmock.NewRows([]string{"id", "session_id", "username", "action", "resource", "resource_id", "detail", "ip_address", "user_agent", "created_at"})
	mock.ExpectQuery("SELECT (.+) FROM audit_logs ORDER BY created_at DESC LIMIT").
		WithArgs(100).
		WillReturnRows(rows)

	entries, err := repo.ListRecent(context.Background(), -5)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}
