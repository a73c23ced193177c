package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"sme-onboarding/internal/models"
)

// InitUpload registers a document and returns where to PUT its bytes.
// A response missing either the URL or the ID is an error.
func (c *Client) InitUpload(ctx context.Context, req *models.InitUploadRequest) (*models.InitUploadResponse, error) {
	body, err := c.do(ctx, http.MethodPost, "/documents/init-persist-upload", req, nil)
	if err != nil {
		return nil, err
	}
	resp, err := parseInitUpload(body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Upload initialised", map[string]interface{}{
		"documentType": req.DocumentType,
		"uploadId":     resp.UploadID,
	})
	return resp, nil
}

// parseInitUpload accepts both response shapes the backend has used:
// {uploadUrl, uploadId} and {document_id, signed_upload}. signed_upload is
// either the URL itself or an object carrying it. When both shapes are
// present the camel case keys win.
func parseInitUpload(body []byte) (*models.InitUploadResponse, error) {
	var raw map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal init response: %w", err)
	}
	if data, ok := raw["data"].(map[string]interface{}); ok {
		raw = data
	}

	resp := &models.InitUploadResponse{Meta: make(map[string]interface{})}
	for _, k := range []string{"uploadUrl", "upload_url", "signed_upload"} {
		if resp.UploadURL = signedUploadURL(raw[k]); resp.UploadURL != "" {
			break
		}
	}
	for _, k := range []string{"uploadId", "upload_id", "document_id", "documentId"} {
		if resp.UploadID = anyString(raw[k]); resp.UploadID != "" {
			break
		}
	}
	for _, k := range []string{"storage_path", "storagePath"} {
		if s, ok := raw[k].(string); ok && s != "" {
			resp.StoragePath = s
			break
		}
	}
	for k, v := range raw {
		if k == "uploadUrl" || k == "upload_url" {
			continue
		}
		resp.Meta[k] = v
	}

	if resp.UploadURL == "" {
		return nil, fmt.Errorf("init response has no upload URL")
	}
	if resp.UploadID == "" {
		return nil, fmt.Errorf("init response has no upload ID")
	}
	return resp, nil
}

func signedUploadURL(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		for _, k := range []string{"signedURL", "signedUrl", "url", "signed_upload_url"} {
			if s, ok := t[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// anyString renders string or numeric IDs. Numbers arrive as json.Number so
// IDs above 2^53 keep every digit.
func anyString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	}
	return ""
}

// ConfirmUpload acknowledges that the bytes reached storage.
func (c *Client) ConfirmUpload(ctx context.Context, documentID string) error {
	_, err := c.do(ctx, http.MethodPost, "/documents/confirm-persist-upload",
		&models.ConfirmUploadRequest{DocumentID: documentID}, nil)
	return err
}

// DocumentsByApplication lists the documents attached to an application.
func (c *Client) DocumentsByApplication(ctx context.Context, applicationID string) ([]models.DocumentRecord, error) {
	body, err := c.do(ctx, http.MethodGet, "/documents/by-application/"+url.PathEscape(applicationID), nil, nil)
	if err != nil {
		return nil, err
	}
	var docs []models.DocumentRecord
	if err := decodeList(body, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

// DownloadURL returns a short-lived signed URL for a stored document.
func (c *Client) DownloadURL(ctx context.Context, documentID string) (string, error) {
	var out models.DownloadURL
	if _, err := c.do(ctx, http.MethodGet, "/documents/download-url/"+url.PathEscape(documentID), nil, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("no url returned for document %s", documentID)
	}
	return out.URL, nil
}

// DeleteDocument removes a stored document.
func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/documents/"+url.PathEscape(documentID), nil, nil)
	return err
}
