package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	stderrors "sme-onboarding/internal/common/errors"
	"sme-onboarding/internal/models"
)

// CreateApplication posts the first submission and returns the server
// assigned application ID, read from application_id or data.application_id.
func (c *Client) CreateApplication(ctx context.Context, req *models.CreateApplicationRequest) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/applications/firstSubmit", req, nil)
	if err != nil {
		return "", stderrors.NewApplicationCreateFailedError(err)
	}

	id := applicationIDFrom(body)
	if id == "" {
		c.logger.Error("No application_id in creation response", map[string]interface{}{
			"body": string(body),
		})
		return "", stderrors.NewApplicationIDMissingError(string(body))
	}

	c.logger.Info("Application created", map[string]interface{}{
		"applicationId": id,
		"businessName":  req.BusinessName,
	})
	return id, nil
}

func applicationIDFrom(body []byte) string {
	var resp struct {
		ApplicationID json.RawMessage `json:"application_id"`
		Data          struct {
			ApplicationID json.RawMessage `json:"application_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	if id := scalarString(resp.ApplicationID); id != "" {
		return id
	}
	return scalarString(resp.Data.ApplicationID)
}

// scalarString renders a JSON string or number; anything else is "".
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// ApplicationsByUser lists the applications a user has submitted.
func (c *Client) ApplicationsByUser(ctx context.Context, userID string) ([]models.Application, error) {
	return c.listApplications(ctx, "/applications/byUserID/"+url.PathEscape(userID))
}

// ApplicationsByReviewer lists the applications assigned to a staff member.
func (c *Client) ApplicationsByReviewer(ctx context.Context, reviewerID string) ([]models.Application, error) {
	return c.listApplications(ctx, "/applications/byEmployeeID/"+url.PathEscape(reviewerID))
}

func (c *Client) listApplications(ctx context.Context, path string) ([]models.Application, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	var apps []models.Application
	if err := decodeList(body, &apps); err != nil {
		return nil, fmt.Errorf("failed to decode applications: %w", err)
	}
	return apps, nil
}

// Application fetches one application by ID.
func (c *Client) Application(ctx context.Context, applicationID string) (*models.Application, error) {
	body, err := c.do(ctx, http.MethodGet, "/applications/byAppID/"+url.PathEscape(applicationID), nil, nil)
	if err != nil {
		return nil, err
	}

	// The backend returns either the record or a one-element list.
	var apps []models.Application
	if err := decodeList(body, &apps); err == nil && len(apps) > 0 {
		return &apps[0], nil
	}
	var app models.Application
	if err := json.Unmarshal(body, &app); err != nil {
		return nil, fmt.Errorf("failed to decode application: %w", err)
	}
	if app.ApplicationID == "" {
		var wrapped struct {
			Data models.Application `json:"data"`
		}
		if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Data.ApplicationID != "" {
			return &wrapped.Data, nil
		}
	}
	return &app, nil
}

// Approve marks an application approved.
func (c *Client) Approve(ctx context.Context, applicationID, reason string) error {
	return c.review(ctx, "approve", applicationID, &models.ReviewDecision{Reason: reason})
}

// Reject marks an application rejected with a reason.
func (c *Client) Reject(ctx context.Context, applicationID, reason string) error {
	return c.review(ctx, "reject", applicationID, &models.ReviewDecision{Reason: reason})
}

// Escalate forwards an application for senior review.
func (c *Client) Escalate(ctx context.Context, applicationID, reason string) error {
	return c.review(ctx, "escalate", applicationID, &models.ReviewDecision{Reason: reason})
}

// Withdraw is the applicant's own cancellation and carries no body.
func (c *Client) Withdraw(ctx context.Context, applicationID string) error {
	return c.review(ctx, "withdraw", applicationID, nil)
}

func (c *Client) review(ctx context.Context, action, applicationID string, decision *models.ReviewDecision) error {
	path := fmt.Sprintf("/applications/%s/%s", action, url.PathEscape(applicationID))
	var payload interface{}
	if decision != nil {
		payload = decision
	}
	if _, err := c.do(ctx, http.MethodPut, path, payload, nil); err != nil {
		return err
	}
	c.logger.Info("Application updated", map[string]interface{}{
		"applicationId": applicationID,
		"action":        action,
	})
	return nil
}

// DeleteApplication removes an application record.
func (c *Client) DeleteApplication(ctx context.Context, applicationID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/applications/delete/"+url.PathEscape(applicationID), nil, nil)
	return err
}
