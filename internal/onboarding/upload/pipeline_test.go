package upload

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	stderrors "sme-onboarding/internal/common/errors"
	"sme-onboarding/internal/common/logger"
	"sme-onboarding/internal/models"
	"sme-onboarding/internal/onboarding/staging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test doubles
// ==========================

type fakeBackend struct {
	mu         sync.Mutex
	initCalls  []models.InitUploadRequest
	confirmed  []string
	uploadURL  string
	initErr    error
	confirmErr error
}

func (f *fakeBackend) InitUpload(_ context.Context, req *models.InitUploadRequest) (*models.InitUploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls = append(f.initCalls, *req)
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &models.InitUploadResponse{
		UploadURL:   f.uploadURL,
		UploadID:    "up-" + req.DocumentType,
		StoragePath: "applications/" + req.ApplicationID + "/" + req.Filename,
		Meta:        map[string]interface{}{"bucket": "kyc"},
	}, nil
}

func (f *fakeBackend) ConfirmUpload(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, documentID)
	return f.confirmErr
}

type storageHit struct {
	method        string
	auth          string
	contentType   string
	contentLength int64
	body          []byte
}

func newStorage(t *testing.T, status int) (*httptest.Server, *[]storageHit) {
	t.Helper()
	var hits []storageHit
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		hits = append(hits, storageHit{
			method:        r.Method,
			auth:          r.Header.Get("Authorization"),
			contentType:   r.Header.Get("Content-Type"),
			contentLength: r.ContentLength,
			body:          data,
		})
		mu.Unlock()
		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte("SignatureDoesNotMatch"))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newTestPipeline(t *testing.T, backend Backend, confirm bool) *Pipeline {
	return NewPipeline(&Config{Confirm: confirm, TransferTimeout: 5 * time.Second}, backend, logger.NewTestLogger(t))
}

// ==========================
// Happy path
// ==========================

func TestUpload_Success(t *testing.T) {
	storage, hits := newStorage(t, http.StatusOK)
	backend := &fakeBackend{uploadURL: storage.URL + "/put?sig=abc"}
	p := newTestPipeline(t, backend, true)

	content := bytes.Repeat([]byte("x"), 64*1024)
	file := staging.NewFile("bank.pdf", "application/pdf", content)

	var (
		progressMu sync.Mutex
		progress   []int
	)
	desc, err := p.Upload(context.Background(), Request{
		ApplicationID: "app-1",
		DocumentType:  "bank_statement",
		File:          file,
	}, func(pct int) {
		progressMu.Lock()
		progress = append(progress, pct)
		progressMu.Unlock()
	})
	require.NoError(t, err)
	progressMu.Lock()
	defer progressMu.Unlock()

	assert.Equal(t, "up-bank_statement", desc.UploadID)
	assert.Equal(t, "bank_statement", desc.DocumentType)
	assert.Equal(t, "bank.pdf", desc.Filename)
	assert.Equal(t, "application/pdf", desc.MIMEType)
	assert.Equal(t, "applications/app-1/bank.pdf", desc.StoragePath)
	assert.Equal(t, "kyc", desc.Meta["bucket"])

	require.Len(t, backend.initCalls, 1)
	assert.Equal(t, models.InitUploadRequest{
		ApplicationID: "app-1",
		DocumentType:  "bank_statement",
		Filename:      "bank.pdf",
		MIMEType:      "application/pdf",
	}, backend.initCalls[0])
	assert.Equal(t, []string{"up-bank_statement"}, backend.confirmed)

	require.Len(t, *hits, 1)
	hit := (*hits)[0]
	assert.Equal(t, http.MethodPut, hit.method)
	assert.Empty(t, hit.auth, "signed URL must not receive an Authorization header")
	assert.Equal(t, "application/pdf", hit.contentType)
	assert.Equal(t, int64(len(content)), hit.contentLength)
	assert.Equal(t, content, hit.body)

	require.NotEmpty(t, progress)
	for i := 1; i < len(progress); i++ {
		assert.Greater(t, progress[i], progress[i-1])
	}
	assert.LessOrEqual(t, progress[len(progress)-1], 100)
}

func TestUpload_NoConfirmWhenDisabled(t *testing.T) {
	storage, _ := newStorage(t, http.StatusOK)
	backend := &fakeBackend{uploadURL: storage.URL}
	p := newTestPipeline(t, backend, false)

	_, err := p.Upload(context.Background(), Request{
		ApplicationID: "app-1",
		DocumentType:  "owner_id",
		File:          staging.NewFile("id.png", "image/png", []byte{1, 2, 3}),
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, backend.confirmed)
}

func TestUpload_OmitsContentTypeWhenUndeclared(t *testing.T) {
	storage, hits := newStorage(t, http.StatusOK)
	backend := &fakeBackend{uploadURL: storage.URL}
	p := newTestPipeline(t, backend, false)

	desc, err := p.Upload(context.Background(), Request{
		ApplicationID: "app-1",
		DocumentType:  "kycDocument",
		File:          staging.NewFile("scan.pdf", "", []byte("%PDF")),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", desc.MIMEType)
	assert.Empty(t, (*hits)[0].contentType)
}

func TestUpload_ProgressNotSynthesisedForEmptyFile(t *testing.T) {
	storage, _ := newStorage(t, http.StatusOK)
	backend := &fakeBackend{uploadURL: storage.URL}
	p := newTestPipeline(t, backend, false)

	calls := 0
	_, err := p.Upload(context.Background(), Request{
		ApplicationID: "app-1",
		DocumentType:  "kycDocument",
		File:          staging.NewFile("empty.pdf", "application/pdf", nil),
	}, func(int) { calls++ })
	require.NoError(t, err)
	assert.Zero(t, calls)
}

// ==========================
// Failures
// ==========================

func TestUpload_InitFailure(t *testing.T) {
	backend := &fakeBackend{
		initErr: stderrors.NewBackendRequestFailedError("POST", "/documents/init-persist-upload", 500, "db down"),
	}
	p := newTestPipeline(t, backend, true)

	_, err := p.Upload(context.Background(), Request{
		ApplicationID: "app-1",
		DocumentType:  "bank_statement",
		File:          staging.NewFile("bank.pdf", "application/pdf", []byte("x")),
	}, nil)
	require.Error(t, err)
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeUploadInitFailed))

	stdErr, _ := stderrors.AsStandard(err)
	assert.Equal(t, "init-persist-upload failed (bank_statement): 500 db down", stdErr.Message)
	assert.Equal(t, 500, stdErr.Metadata["status"])
	assert.Empty(t, backend.confirmed)
}

func TestUpload_TransferFailure(t *testing.T) {
	storage, _ := newStorage(t, http.StatusForbidden)
	backend := &fakeBackend{uploadURL: storage.URL}
	p := newTestPipeline(t, backend, true)

	_, err := p.Upload(context.Background(), Request{
		ApplicationID: "app-1",
		DocumentType:  "owner_id",
		File:          staging.NewFile("id.pdf", "application/pdf", []byte("x")),
	}, nil)
	require.Error(t, err)
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeUploadTransferFailed))

	stdErr, _ := stderrors.AsStandard(err)
	assert.Equal(t, 403, stdErr.Metadata["status"])
	assert.Equal(t, "SignatureDoesNotMatch", stdErr.Metadata["body"])
	assert.Empty(t, backend.confirmed, "confirm must not follow a failed transfer")
}

func TestUpload_ConfirmFailure(t *testing.T) {
	storage, _ := newStorage(t, http.StatusOK)
	backend := &fakeBackend{
		uploadURL:  storage.URL,
		confirmErr: stderrors.NewBackendRequestFailedError("POST", "/documents/confirm-persist-upload", 404, "unknown document"),
	}
	p := newTestPipeline(t, backend, true)

	_, err := p.Upload(context.Background(), Request{
		ApplicationID: "app-1",
		DocumentType:  "owner_id",
		File:          staging.NewFile("id.pdf", "application/pdf", []byte("x")),
	}, nil)
	require.Error(t, err)
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeUploadConfirmFailed))
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeBackendRequestFailed), "cause stays reachable")
}

func TestUpload_NoFile(t *testing.T) {
	p := newTestPipeline(t, &fakeBackend{}, true)
	_, err := p.Upload(context.Background(), Request{DocumentType: "owner_id"}, nil)
	assert.True(t, stderrors.HasCode(err, stderrors.ErrCodeUploadInitFailed))
}

// ==========================
// Progress reader
// ==========================

func TestProgressReader(t *testing.T) {
	var got []int
	pr := &progressReader{
		r:      bytes.NewReader(make([]byte, 1000)),
		total:  1000,
		last:   -1,
		report: func(p int) { got = append(got, p) },
	}
	buf := make([]byte, 333)
	for {
		_, err := pr.Read(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, []int{33, 67, 100}, got)
}
