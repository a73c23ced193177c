package models

import "time"

// Descriptor is what a confirmed upload leaves behind in form state.
type Descriptor struct {
	UploadID     string                 `json:"upload_id"`
	DocumentType string                 `json:"document_type"`
	Filename     string                 `json:"filename"`
	MIMEType     string                 `json:"mime_type"`
	StoragePath  string                 `json:"storage_path,omitempty"`
	Size         int64                  `json:"size,omitempty"`
	Meta         map[string]interface{} `json:"meta,omitempty"`
}

type InitUploadRequest struct {
	ApplicationID string `json:"application_id"`
	DocumentType  string `json:"document_type"`
	Filename      string `json:"filename"`
	MIMEType      string `json:"mime_type"`
}

// InitUploadResponse is decoded loosely: the backend has shipped two
// shapes (uploadUrl/uploadId and document_id/signed_upload).
type InitUploadResponse struct {
	UploadURL   string
	UploadID    string
	StoragePath string
	Meta        map[string]interface{}
}

type ConfirmUploadRequest struct {
	DocumentID string `json:"document_id"`
}

// DocumentRecord is one row of GET /documents/by-application/{id}.
type DocumentRecord struct {
	DocumentID       string     `json:"document_id"`
	DocumentType     string     `json:"document_type"`
	StoragePath      string     `json:"storage_path"`
	Status           string     `json:"status"`
	OriginalFilename string     `json:"original_filename,omitempty"`
	MIMEType         string     `json:"mime_type,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty"`
}

type DownloadURL struct {
	URL string `json:"url"`
}
