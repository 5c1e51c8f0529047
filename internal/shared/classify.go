package shared

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Category is the classification bucket that selects the user-facing message.
type Category string

const (
	CategoryNetwork        Category = "NETWORK"
	CategoryAuthentication Category = "AUTHENTICATION"
	CategoryAuthorization  Category = "AUTHORIZATION"
	CategoryValidation     Category = "VALIDATION"
	CategoryBusinessLogic  Category = "BUSINESS_LOGIC"
	CategorySystem         Category = "SYSTEM"
	CategoryUserInput      Category = "USER_INPUT"
)

// Categories lists every category in declaration order.
var Categories = []Category{
	CategoryNetwork,
	CategoryAuthentication,
	CategoryAuthorization,
	CategoryValidation,
	CategoryBusinessLogic,
	CategorySystem,
	CategoryUserInput,
}

// Severity is the ordinal urgency of a failure.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the upper-case name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// MarshalJSON encodes the severity by name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity name.
func (s *Severity) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	v, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSeverity parses a severity name, case-insensitively.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToUpper(name) {
	case "LOW":
		return SeverityLow, nil
	case "MEDIUM":
		return SeverityMedium, nil
	case "HIGH":
		return SeverityHigh, nil
	case "CRITICAL":
		return SeverityCritical, nil
	}
	return SeverityLow, fmt.Errorf("unknown severity %q", name)
}

var userMessages = map[Category]string{
	CategoryNetwork:        "Network connection problem. Please check your connection and try again.",
	CategoryAuthentication: "Please log in again to continue.",
	CategoryAuthorization:  "You do not have permission to perform this action.",
	CategoryValidation:     "Please check your input and try again.",
	CategoryBusinessLogic:  "This action cannot be completed right now.",
	CategorySystem:         "Something went wrong. Please try again later.",
	CategoryUserInput:      "Please correct the highlighted fields and try again.",
}

// UserMessage returns the fixed user-facing sentence for a category.
// Unknown categories get the SYSTEM message.
func UserMessage(c Category) string {
	if m, ok := userMessages[c]; ok {
		return m
	}
	return userMessages[CategorySystem]
}

// Categorize returns the category of err.
//
// Rules, first match wins:
//  1. nil → SYSTEM; local input failures → USER_INPUT
//  2. status 401 → AUTHENTICATION, 403 → AUTHORIZATION
//  3. other 4xx, or message mentions "validation" → VALIDATION
//  4. code NETWORK_ERROR, or message mentions "network" → NETWORK
//  5. message mentions "business" or "logic" → BUSINESS_LOGIC
//  6. SYSTEM
func Categorize(err error) Category {
	f := AsFailure(err)
	if f == nil {
		return CategorySystem
	}
	if _, ok := f.(*InputError); ok {
		return CategoryUserInput
	}

	status := f.Status()
	msg := strings.ToLower(f.Message())

	switch {
	case status == 401:
		return CategoryAuthentication
	case status == 403:
		return CategoryAuthorization
	case (status >= 400 && status < 500) || strings.Contains(msg, "validation"):
		return CategoryValidation
	case f.Code() == CodeNetworkError || strings.Contains(msg, "network"):
		return CategoryNetwork
	case strings.Contains(msg, "business") || strings.Contains(msg, "logic"):
		return CategoryBusinessLogic
	default:
		return CategorySystem
	}
}

// SeverityOf returns the severity of err. It is derived independently of
// the category.
func SeverityOf(err error) Severity {
	f := AsFailure(err)
	if f == nil {
		return SeverityLow
	}

	status := f.Status()
	msg := strings.ToLower(f.Message())

	switch {
	case strings.Contains(msg, "critical") || strings.Contains(msg, "fatal"):
		return SeverityCritical
	case status >= 500 || strings.Contains(msg, "server error"):
		return SeverityHigh
	case status == 401 || status == 403 || strings.Contains(msg, "auth"):
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// IsRetryable reports whether err is worth retrying: the remote side was
// unreachable or answered with a 5xx status.
func IsRetryable(err error) bool {
	f := AsFailure(err)
	if f == nil {
		return false
	}
	if f.Code() == CodeNetworkError {
		return true
	}
	status := f.Status()
	return status >= 500 && status < 600
}

// Classification is the outcome of running every classifier on one error.
type Classification struct {
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Retryable   bool     `json:"isRetryable"`
	UserMessage string   `json:"userMessage"`
}

// Classify runs every classifier on err.
func Classify(err error) Classification {
	c := Categorize(err)
	return Classification{
		Category:    c,
		Severity:    SeverityOf(err),
		Retryable:   IsRetryable(err),
		UserMessage: UserMessage(c),
	}
}
