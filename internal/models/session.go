package models

import "time"

// Session is the signed-in identity cached between CLI invocations.
type Session struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsExpired checks if session has expired
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// IsStaff reports whether review actions are available.
func (s *Session) IsStaff() bool {
	return s.Role == RoleStaff
}
