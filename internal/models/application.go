package models

// Application statuses as reported by the portal backend.
const (
	StatusDraft       = "Draft"
	StatusSubmitted   = "Submitted"
	StatusUnderReview = "Under Review"
	StatusApproved    = "Approved"
	StatusRejected    = "Rejected"
	StatusEscalated   = "Escalated"
	StatusWithdrawn   = "Withdrawn"
)

type Application struct {
	ApplicationID   string                 `json:"application_id"`
	BusinessName    string                 `json:"business_name"`
	BusinessCountry string                 `json:"business_country"`
	BusinessType    string                 `json:"business_type,omitempty"`
	Status          string                 `json:"status"`
	UserID          string                 `json:"user_id"`
	ReviewerID      string                 `json:"reviewer_id,omitempty"`
	Reason          string                 `json:"reason,omitempty"`
	FormData        map[string]interface{} `json:"form_data,omitempty"`
}

// CreateApplicationRequest is the firstSubmit payload.
type CreateApplicationRequest struct {
	BusinessName    string                 `json:"business_name"`
	BusinessCountry string                 `json:"business_country"`
	BusinessType    string                 `json:"business_type,omitempty"`
	UserID          string                 `json:"user_id,omitempty"`
	ReviewerID      string                 `json:"reviewer_id,omitempty"`
	Status          string                 `json:"status,omitempty"`
	FormData        map[string]interface{} `json:"form_data,omitempty"`
}

// ReviewDecision carries the reason for reject and escalate.
type ReviewDecision struct {
	Reason string `json:"reason"`
}

// StatusCounts tallies applications per status, in the order statuses were first seen.
type StatusCounts struct {
	Order  []string
	Counts map[string]int
	Total  int
}

// CountByStatus builds the dashboard summary for a listing.
func CountByStatus(apps []Application) StatusCounts {
	sc := StatusCounts{Counts: make(map[string]int)}
	for _, a := range apps {
		if _, seen := sc.Counts[a.Status]; !seen {
			sc.Order = append(sc.Order, a.Status)
		}
		sc.Counts[a.Status]++
		sc.Total++
	}
	return sc
}

// FilterByStatus keeps applications whose status matches one of statuses.
// An empty filter keeps everything.
func FilterByStatus(apps []Application, statuses ...string) []Application {
	if len(statuses) == 0 {
		return apps
	}
	want := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var out []Application
	for _, a := range apps {
		if want[a.Status] {
			out = append(out, a)
		}
	}
	return out
}
