// Package submission drives a finished wizard to the backend: required
// document check, application creation, then strictly sequential uploads.
package submission

import (
	"context"
	"time"

	stderrors "sme-onboarding/internal/common/errors"
	"sme-onboarding/internal/common/logger"
	"sme-onboarding/internal/common/metrics"
	"sme-onboarding/internal/ledger"
	"sme-onboarding/internal/models"
	"sme-onboarding/internal/onboarding/form"
	"sme-onboarding/internal/onboarding/staging"
	"sme-onboarding/internal/onboarding/upload"
)

type Config struct {
	// IncludeOptional also uploads staged slots that are not required.
	IncludeOptional bool
}

func LoadConfig() *Config {
	return &Config{IncludeOptional: true}
}

type Orchestrator struct {
	config   *Config
	backend  Backend
	uploader Uploader
	recorder Recorder
	logger   logger.Logger
}

func NewOrchestrator(config *Config, backend Backend, uploader Uploader, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		config:   config,
		backend:  backend,
		uploader: uploader,
		logger:   log.WithFields(map[string]interface{}{"component": "submission"}),
	}
}

// WithRecorder attaches a journal for partial outcomes.
func (o *Orchestrator) WithRecorder(r Recorder) *Orchestrator {
	o.recorder = r
	return o
}

// Submit runs the sequence. On failure the wizard keeps its step and the
// already created application and uploaded documents are left in place.
func (o *Orchestrator) Submit(ctx context.Context, w *form.Wizard, who Submitter) (*Result, error) {
	start := time.Now()
	result, err := o.submit(ctx, w, who)

	outcome := "success"
	if err != nil {
		outcome = "failed"
		if stdErr, ok := stderrors.AsStandard(err); ok {
			outcome = string(stdErr.Code)
		}
	}
	metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()
	metrics.SubmissionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return result, err
}

func (o *Orchestrator) submit(ctx context.Context, w *form.Wizard, who Submitter) (*Result, error) {
	state := w.State()
	required := w.RequiredDocuments()

	// 1. Every required document must be staged before any network call.
	for _, key := range required {
		if !state.HasDocument(key) {
			o.logger.Warn("Submission blocked", map[string]interface{}{"missingDocument": key})
			return nil, stderrors.NewMissingRequiredDocumentError(key)
		}
	}

	// 2. Create the application.
	req := o.applicationRequest(w, state, who)
	appID, err := o.backend.CreateApplication(ctx, req)
	if err != nil {
		return nil, err
	}
	if appID == "" {
		return nil, stderrors.NewApplicationIDMissingError("")
	}

	result := &Result{ApplicationID: appID}
	log := o.logger.WithFields(map[string]interface{}{"applicationId": appID})
	result.SubmissionID = o.journalStart(ctx, log, req, appID)

	// 3. Upload sequentially, every file of a multi-file slot in staging
	// order; the first failure stops the run.
	for _, p := range o.pendingUploads(w, state, required) {
		desc, err := o.uploader.Upload(ctx, upload.Request{
			ApplicationID: appID,
			DocumentType:  p.slot,
			File:          p.file,
		}, func(pct int) { w.SetUploadProgress(p.key, pct) })
		if err != nil {
			o.journalDocument(ctx, log, result.SubmissionID, &ledger.Document{
				DocumentType: p.key,
				Filename:     p.file.Name,
				Status:       ledger.DocumentFailed,
				Error:        stderrors.Normalize(err).Message,
			})
			o.journalFinish(ctx, log, result.SubmissionID, ledger.StatusFailed, stderrors.Normalize(err).Message)
			log.Error("Submission stopped", map[string]interface{}{
				"documentType": p.slot,
				"file":         p.key,
				"uploaded":     len(result.Documents),
				"error":        err.Error(),
			})
			return result, err
		}

		w.SetDocumentMeta(p.key, *desc)
		result.Documents = append(result.Documents, *desc)
		o.journalDocument(ctx, log, result.SubmissionID, &ledger.Document{
			DocumentType: p.key,
			UploadID:     desc.UploadID,
			Filename:     desc.Filename,
			Status:       ledger.DocumentUploaded,
		})
	}

	o.journalFinish(ctx, log, result.SubmissionID, ledger.StatusCompleted, "")
	log.Info("Submission complete", map[string]interface{}{
		"documents": len(result.Documents),
	})
	return result, nil
}

func (o *Orchestrator) applicationRequest(w *form.Wizard, s form.State, who Submitter) *models.CreateApplicationRequest {
	country := s.Country()
	if c, ok := w.Registry().Country(country); ok {
		country = c.Name
	}
	return &models.CreateApplicationRequest{
		BusinessName:    s.Field("companyName"),
		BusinessCountry: country,
		BusinessType:    s.BusinessType(),
		UserID:          who.UserID,
		ReviewerID:      who.ReviewerID,
		Status:          models.StatusSubmitted,
		FormData:        w.FormData(),
	}
}

// uploadOrder lists the required keys in derived order, then, when
// enabled, the remaining staged slots in slot order.
func (o *Orchestrator) uploadOrder(w *form.Wizard, s form.State, required []string) []string {
	order := append([]string(nil), required...)
	if !o.config.IncludeOptional {
		return order
	}
	seen := make(map[string]bool, len(required))
	for _, k := range required {
		seen[k] = true
	}
	for _, slot := range w.DocumentSlots() {
		if seen[slot] || !s.HasDocument(slot) {
			continue
		}
		seen[slot] = true
		order = append(order, slot)
	}
	return order
}

// pendingUpload is one file to send. key is the slot for single-file
// slots and form.FileKey for files of a multi-file slot.
type pendingUpload struct {
	slot string
	key  string
	file *staging.File
}

func (o *Orchestrator) pendingUploads(w *form.Wizard, s form.State, required []string) []pendingUpload {
	var out []pendingUpload
	for _, slot := range o.uploadOrder(w, s, required) {
		multi := len(s.Data.DocumentLists[slot]) > 0
		for i, f := range s.Files(slot) {
			key := slot
			if multi {
				key = form.FileKey(slot, i)
			}
			out = append(out, pendingUpload{slot: slot, key: key, file: f})
		}
	}
	return out
}

// Journal writes never fail a submission.

func (o *Orchestrator) journalStart(ctx context.Context, log logger.Logger, req *models.CreateApplicationRequest, appID string) string {
	if o.recorder == nil {
		return ""
	}
	id, err := o.recorder.Start(ctx, &ledger.Submission{
		ApplicationID: appID,
		BusinessName:  req.BusinessName,
		Country:       req.BusinessCountry,
		BusinessType:  req.BusinessType,
		UserID:        req.UserID,
		FormData:      req.FormData,
	})
	if err != nil {
		log.Warn("ledger start failed", map[string]interface{}{"error": err.Error()})
		return ""
	}
	return id
}

func (o *Orchestrator) journalDocument(ctx context.Context, log logger.Logger, submissionID string, d *ledger.Document) {
	if o.recorder == nil || submissionID == "" {
		return
	}
	if err := o.recorder.RecordDocument(ctx, submissionID, d); err != nil {
		log.Warn("ledger document insert failed", map[string]interface{}{
			"documentType": d.DocumentType,
			"error":        err.Error(),
		})
	}
}

func (o *Orchestrator) journalFinish(ctx context.Context, log logger.Logger, submissionID, status, errMsg string) {
	if o.recorder == nil || submissionID == "" {
		return
	}
	if err := o.recorder.Finish(ctx, submissionID, status, errMsg); err != nil {
		log.Warn("ledger finish failed", map[string]interface{}{"error": err.Error()})
	}
}
