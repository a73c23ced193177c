package submission

import (
	"context"

	"sme-onboarding/internal/ledger"
	"sme-onboarding/internal/models"
	"sme-onboarding/internal/onboarding/upload"
)

// Submitter identifies who is submitting and who should review.
type Submitter struct {
	UserID     string
	ReviewerID string
}

type Result struct {
	ApplicationID string
	// SubmissionID is the ledger entry, empty when no ledger is configured.
	SubmissionID string
	Documents    []models.Descriptor
}

type Backend interface {
	CreateApplication(ctx context.Context, req *models.CreateApplicationRequest) (string, error)
}

type Uploader interface {
	Upload(ctx context.Context, req upload.Request, onProgress upload.ProgressFunc) (*models.Descriptor, error)
}

// Recorder journals submissions. *ledger.Ledger satisfies it.
type Recorder interface {
	Start(ctx context.Context, s *ledger.Submission) (string, error)
	RecordDocument(ctx context.Context, submissionID string, d *ledger.Document) error
	Finish(ctx context.Context, submissionID, status, errMsg string) error
}
