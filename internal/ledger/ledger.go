// Package ledger journals submissions in Postgres so a submission that
// stopped partway can be followed up: which application was created and
// which documents reached storage.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"sme-onboarding/internal/common/database"
	stderrors "sme-onboarding/internal/common/errors"
	"sme-onboarding/internal/common/logger"

	"github.com/google/uuid"
)

const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"

	DocumentUploaded = "uploaded"
	DocumentFailed   = "failed"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS submissions (
	id              UUID PRIMARY KEY,
	application_id  TEXT NOT NULL,
	business_name   TEXT NOT NULL,
	country         TEXT NOT NULL,
	business_type   TEXT NOT NULL,
	user_id         TEXT,
	status          TEXT NOT NULL,
	error           TEXT,
	form_data       JSONB,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS submission_documents (
	submission_id   UUID NOT NULL REFERENCES submissions(id),
	document_type   TEXT NOT NULL,
	upload_id       TEXT,
	filename        TEXT NOT NULL,
	status          TEXT NOT NULL,
	error           TEXT,
	created_at      TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (submission_id, document_type)
);`

// Submission is one journal row.
type Submission struct {
	ID            string
	ApplicationID string
	BusinessName  string
	Country       string
	BusinessType  string
	UserID        string
	Status        string
	Error         string
	FormData      map[string]interface{}
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Document struct {
	// DocumentType is the slot, or "slot[i]" for file i of a multi-file slot.
	DocumentType string
	UploadID     string
	Filename     string
	Status       string
	Error        string
	CreatedAt    time.Time
}

type Ledger struct {
	db     *database.PostgresClient
	logger logger.Logger
	now    func() time.Time
}

func New(db *database.PostgresClient, log logger.Logger) *Ledger {
	return &Ledger{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "ledger"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// EnsureSchema creates the journal tables when missing.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, schemaSQL); err != nil {
		return stderrors.NewQueryExecutionFailedError("create_schema", err)
	}
	return nil
}

// Start opens a journal entry for a freshly created application.
func (l *Ledger) Start(ctx context.Context, s *Submission) (string, error) {
	id := uuid.New().String()
	now := l.now()

	formDataJSON, err := json.Marshal(s.FormData)
	if err != nil {
		l.logger.Warn("failed to marshal form data", map[string]interface{}{"error": err.Error()})
		formDataJSON = []byte("{}")
	}

	_, err = l.db.Exec(ctx, `
		INSERT INTO submissions (
			id, application_id, business_name, country, business_type,
			user_id, status, form_data, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		id,
		s.ApplicationID,
		s.BusinessName,
		s.Country,
		s.BusinessType,
		s.UserID,
		StatusInProgress,
		string(formDataJSON),
		now,
	)
	if err != nil {
		return "", stderrors.NewQueryExecutionFailedError("insert_submission", err)
	}

	l.logger.Info("Submission journaled", map[string]interface{}{
		"submissionId":  id,
		"applicationId": s.ApplicationID,
	})
	return id, nil
}

// RecordDocument upserts the outcome for one document of a submission.
func (l *Ledger) RecordDocument(ctx context.Context, submissionID string, d *Document) error {
	_, err := l.db.Exec(ctx, `
		INSERT INTO submission_documents (
			submission_id, document_type, upload_id, filename, status, error, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (submission_id, document_type)
		DO UPDATE SET upload_id = EXCLUDED.upload_id, status = EXCLUDED.status, error = EXCLUDED.error`,
		submissionID,
		d.DocumentType,
		nullable(d.UploadID),
		d.Filename,
		d.Status,
		nullable(d.Error),
		l.now(),
	)
	if err != nil {
		return stderrors.NewQueryExecutionFailedError("insert_document", err)
	}
	return nil
}

// Finish closes the entry with a final status.
func (l *Ledger) Finish(ctx context.Context, submissionID, status, errMsg string) error {
	res, err := l.db.Exec(ctx, `
		UPDATE submissions SET status = $2, error = $3, updated_at = $4 WHERE id = $1`,
		submissionID, status, nullable(errMsg), l.now(),
	)
	if err != nil {
		return stderrors.NewQueryExecutionFailedError("finish_submission", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("submission %s not found", submissionID)
	}
	return nil
}

// Incomplete lists entries that did not finish successfully, newest first.
func (l *Ledger) Incomplete(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.Query(ctx, `
		SELECT id, application_id, business_name, country, business_type,
		       COALESCE(user_id, ''), status, COALESCE(error, ''), created_at, updated_at
		FROM submissions
		WHERE status <> $1
		ORDER BY created_at DESC
		LIMIT $2`, StatusCompleted, limit)
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("list_incomplete", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var s Submission
		if err := rows.Scan(&s.ID, &s.ApplicationID, &s.BusinessName, &s.Country, &s.BusinessType,
			&s.UserID, &s.Status, &s.Error, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, stderrors.NewQueryExecutionFailedError("scan_submission", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("list_incomplete", err)
	}
	return out, nil
}

// Documents returns the recorded document outcomes for a submission.
func (l *Ledger) Documents(ctx context.Context, submissionID string) ([]Document, error) {
	rows, err := l.db.Query(ctx, `
		SELECT document_type, COALESCE(upload_id, ''), filename, status, COALESCE(error, ''), created_at
		FROM submission_documents
		WHERE submission_id = $1
		ORDER BY created_at`, submissionID)
	if err != nil {
		return nil, stderrors.NewQueryExecutionFailedError("list_documents", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.DocumentType, &d.UploadID, &d.Filename, &d.Status, &d.Error, &d.CreatedAt); err != nil {
			return nil, stderrors.NewQueryExecutionFailedError("scan_document", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
