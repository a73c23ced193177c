package upload

import (
	"context"

	"sme-onboarding/internal/models"
	"sme-onboarding/internal/onboarding/staging"
)

// Request is one document bound for an application.
type Request struct {
	ApplicationID string
	DocumentType  string
	File          *staging.File
}

// ProgressFunc receives integer percentages. It is only called when the
// total size is known, and there is no guaranteed final 100.
type ProgressFunc func(percent int)

// Backend is the part of the portal API the pipeline needs.
type Backend interface {
	InitUpload(ctx context.Context, req *models.InitUploadRequest) (*models.InitUploadResponse, error)
	ConfirmUpload(ctx context.Context, documentID string) error
}
