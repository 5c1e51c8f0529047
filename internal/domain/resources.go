package domain

import (
	"maps"
	"time"
)

// Notification is an in-app message addressed to a citizen.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind,omitempty"`
	Read      bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func (n Notification) EntityID() string { return n.ID }

// Profile is a citizen's account profile.
type Profile struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
	Language string `json:"language,omitempty"`
}

func (p Profile) EntityID() string { return p.ID }

// ProfileUpdate is a partial profile update.
type ProfileUpdate struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,e164"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=300"`
	Language *string `json:"language,omitempty" validate:"omitempty,bcp47_language_tag"`
}

// AnalyticsPeriods lists the accepted summary periods.
var AnalyticsPeriods = []string{"week", "month", "quarter", "year"}

// AnalyticsQuery selects the summary period.
type AnalyticsQuery struct {
	Period string `json:"period" form:"period" validate:"required,oneof=week month quarter year"`
}

// AnalyticsSummary aggregates complaint statistics for a period.
type AnalyticsSummary struct {
	Period             string         `json:"period"`
	Total              int            `json:"total"`
	Open               int            `json:"open"`
	Resolved           int            `json:"resolved"`
	ByCategory         map[string]int `json:"by_category,omitempty"`
	ByStatus           map[string]int `json:"by_status,omitempty"`
	AvgResolutionHours float64        `json:"avg_resolution_hours"`
}

// Clone returns a copy of s with its own maps.
func (s AnalyticsSummary) Clone() AnalyticsSummary {
	s.ByCategory = maps.Clone(s.ByCategory)
	s.ByStatus = maps.Clone(s.ByStatus)
	return s
}
