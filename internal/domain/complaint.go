// Package domain holds the portal resources exchanged with the upstream API.
package domain

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"time"

	"grievance/internal/shared"
)

// ComplaintStatus is the lifecycle state of a complaint.
type ComplaintStatus string

const (
	StatusSubmitted  ComplaintStatus = "submitted"
	StatusInReview   ComplaintStatus = "in_review"
	StatusInProgress ComplaintStatus = "in_progress"
	StatusResolved   ComplaintStatus = "resolved"
	StatusRejected   ComplaintStatus = "rejected"
	StatusClosed     ComplaintStatus = "closed"
)

// Complaint is a grievance filed by a citizen.
type Complaint struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Status      ComplaintStatus `json:"status"`
	Priority    string          `json:"priority,omitempty"`
	Location    string          `json:"location,omitempty"`
	CitizenID   string          `json:"citizen_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (c Complaint) EntityID() string { return c.ID }

// ComplaintInput is the body of a new complaint.
type ComplaintInput struct {
	Title       string `json:"title" validate:"required,min=5,max=200"`
	Description string `json:"description" validate:"required,min=10,max=5000"`
	Category    string `json:"category" validate:"required,max=64"`
	Priority    string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Location    string `json:"location,omitempty" validate:"omitempty,max=300"`
}

// ComplaintUpdate is a partial update. Nil fields are left unchanged.
type ComplaintUpdate struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=5,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,min=10,max=5000"`
	Category    *string `json:"category,omitempty" validate:"omitempty,max=64"`
	Priority    *string `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	Location    *string `json:"location,omitempty" validate:"omitempty,max=300"`
}

// StatusChange moves a complaint to another state.
type StatusChange struct {
	Status  ComplaintStatus `json:"status" validate:"required,oneof=submitted in_review in_progress resolved rejected closed"`
	Comment string          `json:"comment,omitempty" validate:"max=1000"`
}

var transitions = map[ComplaintStatus][]ComplaintStatus{
	StatusSubmitted:  {StatusInReview, StatusRejected, StatusClosed},
	StatusInReview:   {StatusInProgress, StatusRejected, StatusClosed},
	StatusInProgress: {StatusResolved, StatusRejected, StatusClosed},
	StatusResolved:   {StatusInProgress, StatusClosed},
	StatusRejected:   {StatusClosed},
}

// CheckTransition reports whether a complaint may move from one status to
// another. An unknown current status is left to the API to decide.
func CheckTransition(from, to ComplaintStatus) error {
	if from == "" {
		return nil
	}
	return shared.Invariant(slices.Contains(transitions[from], to),
		fmt.Sprintf("complaint cannot move from %s to %s", from, to))
}

// ComplaintFilter narrows a complaint listing.
type ComplaintFilter struct {
	Status   ComplaintStatus `form:"status"`
	Category string          `form:"category"`
	Search   string          `form:"search"`
	Page     int             `form:"page"`
	PageSize int             `form:"page_size"`
}

// Query encodes the non-empty filter fields.
func (f ComplaintFilter) Query() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	return q
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
	Results  []T    `json:"results"`
}

// Clone returns a copy of p with its own Results slice.
func (p Page[T]) Clone() Page[T] {
	p.Results = slices.Clone(p.Results)
	return p
}
