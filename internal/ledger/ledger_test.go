package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"sme-onboarding/internal/common/database"
	stderrors "sme-onboarding/internal/common/errors"
	"sme-onboarding/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestLedger(t *testing.T) (*Ledger, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	l := New(database.NewPostgresFromDB(db), logger.NewTestLogger(t))
	l.now = func() time.Time { return fixedNow }
	return l, mock
}

func createTestSubmission() *Submission {
	return &Submission{
		ApplicationID: "app-001",
		BusinessName:  "Acme Trading",
		Country:       "SG",
		BusinessType:  "sole_proprietorship",
		UserID:        "user-001",
		FormData:      map[string]interface{}{"companyName": "Acme Trading"},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestLedger_EnsureSchema(t *testing.T) {
	l, mock := newTestLedger(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS submissions`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, l.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Start(t *testing.T) {
	l, mock := newTestLedger(t)

	mock.ExpectExec(`INSERT INTO submissions`).
		WithArgs(
			sqlmock.AnyArg(), // submission ID (UUID)
			"app-001",
			"Acme Trading",
			"SG",
			"sole_proprietorship",
			"user-001",
			StatusInProgress,
			sqlmock.AnyArg(), // form data JSON
			fixedNow,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := l.Start(context.Background(), createTestSubmission())
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Start_InsertFails(t *testing.T) {
	l, mock := newTestLedger(t)
	mock.ExpectExec(`INSERT INTO submissions`).WillReturnError(errors.New("connection reset"))

	_, err := l.Start(context.Background(), createTestSubmission())
	require.Error(t, err)
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeQueryExecutionFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_RecordDocument(t *testing.T) {
	l, mock := newTestLedger(t)

	mock.ExpectExec(`INSERT INTO submission_documents`).
		WithArgs("sub-1", "bank_statement", sqlmock.AnyArg(), "bank.pdf", DocumentUploaded, sqlmock.AnyArg(), fixedNow).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := l.RecordDocument(context.Background(), "sub-1", &Document{
		DocumentType: "bank_statement",
		UploadID:     "up-1",
		Filename:     "bank.pdf",
		Status:       DocumentUploaded,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Finish(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  bool
	}{
		{"updated", 1, false},
		{"unknown submission", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, mock := newTestLedger(t)
			mock.ExpectExec(`UPDATE submissions SET status`).
				WithArgs("sub-1", StatusFailed, sqlmock.AnyArg(), fixedNow).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := l.Finish(context.Background(), "sub-1", StatusFailed, "Storage PUT upload failed")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLedger_Incomplete(t *testing.T) {
	l, mock := newTestLedger(t)

	rows := sqlmock.NewRows([]string{
		"id", "application_id", "business_name", "country", "business_type",
		"user_id", "status", "error", "created_at", "updated_at",
	}).
		AddRow("sub-2", "app-002", "Beta", "ID", "partnership", "u-2", StatusFailed, "confirm failed", fixedNow, fixedNow).
		AddRow("sub-3", "app-003", "Gamma", "SG", "private_limited", "", StatusInProgress, "", fixedNow, fixedNow)

	mock.ExpectQuery(`SELECT (.+) FROM submissions`).
		WithArgs(StatusCompleted, 50).
		WillReturnRows(rows)

	got, err := l.Incomplete(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "app-002", got[0].ApplicationID)
	assert.Equal(t, "confirm failed", got[0].Error)
	assert.Equal(t, StatusInProgress, got[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_Documents(t *testing.T) {
	l, mock := newTestLedger(t)

	rows := sqlmock.NewRows([]string{"document_type", "upload_id", "filename", "status", "error", "created_at"}).
		AddRow("bank_statement", "up-1", "bank.pdf", DocumentUploaded, "", fixedNow).
		AddRow("owner_id", "", "id.pdf", DocumentFailed, "Storage PUT upload failed (owner_id): 403", fixedNow)

	mock.ExpectQuery(`SELECT (.+) FROM submission_documents`).
		WithArgs("sub-1").
		WillReturnRows(rows)

	docs, err := l.Documents(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, DocumentFailed, docs[1].Status)
	assert.Empty(t, docs[1].UploadID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
