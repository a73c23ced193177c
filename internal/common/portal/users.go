package portal

import (
	"context"
	"net/http"

	"sme-onboarding/internal/models"
)

func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var out models.LoginResponse
	req := &models.LoginRequest{Email: email, Password: password}
	if _, err := c.do(ctx, http.MethodPost, "/users/login", req, &out); err != nil {
		return nil, err
	}
	c.logger.Info("Logged in", map[string]interface{}{
		"userId": out.UserID,
		"role":   out.Role,
	})
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req *models.RegisterRequest) (*models.RegisterResponse, error) {
	var out models.RegisterResponse
	if _, err := c.do(ctx, http.MethodPost, "/users/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
