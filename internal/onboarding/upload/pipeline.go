// Package upload runs the two-phase document upload: init against the
// portal, PUT to the signed storage URL, then an optional confirm.
package upload

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"

	stderrors "sme-onboarding/internal/common/errors"
	commonhttp "sme-onboarding/internal/common/http"
	"sme-onboarding/internal/common/logger"
	"sme-onboarding/internal/common/metrics"
	"sme-onboarding/internal/common/portal"
	"sme-onboarding/internal/models"
)

type Pipeline struct {
	backend  Backend
	transfer *commonhttp.Client
	config   *Config
	logger   logger.Logger
}

// NewPipeline wires the pipeline. The transfer client is created here as a
// bare client: signed URLs reject any Authorization header.
func NewPipeline(config *Config, backend Backend, log logger.Logger) *Pipeline {
	return &Pipeline{
		backend:  backend,
		transfer: commonhttp.NewClient(config.TransferTimeout),
		config:   config,
		logger:   log.WithFields(map[string]interface{}{"component": "upload"}),
	}
}

// Upload runs init, transfer and confirm for one document. Any failure is
// terminal for the document and is not retried.
func (p *Pipeline) Upload(ctx context.Context, req Request, onProgress ProgressFunc) (*models.Descriptor, error) {
	if req.File == nil {
		return nil, stderrors.NewUploadInitFailedError(req.DocumentType, 0, "", fmt.Errorf("no file staged"))
	}
	f := req.File
	mimeType := f.MIMEType()

	log := p.logger.WithFields(map[string]interface{}{
		"applicationId": req.ApplicationID,
		"documentType":  req.DocumentType,
		"file":          f.Name,
	})

	initResp, err := p.backend.InitUpload(ctx, &models.InitUploadRequest{
		ApplicationID: req.ApplicationID,
		DocumentType:  req.DocumentType,
		Filename:      f.Name,
		MIMEType:      mimeType,
	})
	if err != nil {
		status, body := portal.ResponseStatus(err)
		p.record(req.DocumentType, "init_failed")
		log.Error("Upload init failed", map[string]interface{}{"status": status, "error": err.Error()})
		return nil, stderrors.NewUploadInitFailedError(req.DocumentType, status, body, err)
	}

	if err := p.put(ctx, initResp.UploadURL, f.Size, mimeType, req, onProgress); err != nil {
		p.record(req.DocumentType, "transfer_failed")
		log.Error("Storage transfer failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	metrics.UploadBytes.Add(float64(f.Size))

	if p.config.Confirm {
		if err := p.backend.ConfirmUpload(ctx, initResp.UploadID); err != nil {
			status, body := portal.ResponseStatus(err)
			p.record(req.DocumentType, "confirm_failed")
			log.Error("Upload confirm failed", map[string]interface{}{"status": status, "error": err.Error()})
			return nil, stderrors.NewUploadConfirmFailedError(req.DocumentType, status, body, err)
		}
	}

	p.record(req.DocumentType, "success")
	log.Info("Document uploaded", map[string]interface{}{
		"uploadId": initResp.UploadID,
		"size":     f.Size,
	})

	return &models.Descriptor{
		UploadID:     initResp.UploadID,
		DocumentType: req.DocumentType,
		Filename:     f.Name,
		MIMEType:     mimeType,
		StoragePath:  initResp.StoragePath,
		Size:         f.Size,
		Meta:         initResp.Meta,
	}, nil
}

func (p *Pipeline) put(ctx context.Context, url string, size int64, mimeType string, req Request, onProgress ProgressFunc) error {
	src, err := req.File.Open()
	if err != nil {
		return stderrors.NewUploadTransferFailedError(req.DocumentType, 0, "", fmt.Errorf("open %s: %w", req.File.Name, err))
	}
	defer src.Close()

	body := io.Reader(src)
	if size == 0 {
		body = http.NoBody
	} else if onProgress != nil {
		body = &progressReader{r: src, total: size, report: onProgress, last: -1}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return stderrors.NewUploadTransferFailedError(req.DocumentType, 0, "", err)
	}
	httpReq.ContentLength = size
	if req.File.ContentType != "" {
		httpReq.Header.Set("Content-Type", mimeType)
	}

	resp, err := p.transfer.Do(httpReq)
	if err != nil {
		return stderrors.NewUploadTransferFailedError(req.DocumentType, 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return stderrors.NewUploadTransferFailedError(req.DocumentType, resp.StatusCode, string(respBody), nil)
	}
	return nil
}

func (p *Pipeline) record(documentType, outcome string) {
	metrics.UploadsTotal.WithLabelValues(documentType, outcome).Inc()
}

// progressReader reports round(sent*100/total) whenever the percentage changes.
type progressReader struct {
	r      io.Reader
	total  int64
	sent   int64
	last   int
	report ProgressFunc
}

func (pr *progressReader) Read(b []byte) (int, error) {
	n, err := pr.r.Read(b)
	if n > 0 {
		pr.sent += int64(n)
		pct := int(math.Round(float64(pr.sent) * 100 / float64(pr.total)))
		if pct > 100 {
			pct = 100
		}
		if pct != pr.last {
			pr.last = pct
			pr.report(pct)
		}
	}
	return n, err
}
