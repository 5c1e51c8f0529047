package shared_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/internal/shared"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected shared.Category
	}{
		{"nil error", nil, shared.CategorySystem},
		{"input error", shared.NewInputError("title", "is required"), shared.CategoryUserInput},
		{"status 401", shared.NewRemoteError(401, "", "", nil), shared.CategoryAuthentication},
		{"status 403", shared.NewRemoteError(403, "", "", nil), shared.CategoryAuthorization},
		{"status 404", shared.NewRemoteError(404, "", "", nil), shared.CategoryValidation},
		{"status 422", shared.NewRemoteError(422, "", "bad payload", nil), shared.CategoryValidation},
		{"validation message", errors.New("Validation failed for field"), shared.CategoryValidation},
		{"network code", shared.NewNetworkError(errors.New("dial tcp: refused")), shared.CategoryNetwork},
		{"network message", errors.New("network unreachable"), shared.CategoryNetwork},
		{"business message", errors.New("business rule rejected"), shared.CategoryBusinessLogic},
		{"logic message", errors.New("workflow logic error"), shared.CategoryBusinessLogic},
		{"server error status", shared.NewRemoteError(503, "", "", nil), shared.CategorySystem},
		{"plain error", errors.New("boom"), shared.CategorySystem},
		{"wrapped remote", fmt.Errorf("list complaints: %w", shared.NewRemoteError(401, "", "", nil)), shared.CategoryAuthentication},
		{"401 beats validation message", shared.NewRemoteError(401, "", "validation", nil), shared.CategoryAuthentication},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shared.Categorize(tt.err))
		})
	}
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected shared.Severity
	}{
		{"nil error", nil, shared.SeverityLow},
		{"fatal message", errors.New("fatal database corruption"), shared.SeverityCritical},
		{"critical message", shared.NewRemoteError(400, "", "Critical failure", nil), shared.SeverityCritical},
		{"status 500", shared.NewRemoteError(500, "", "", nil), shared.SeverityHigh},
		{"status 503", shared.NewRemoteError(503, "", "try later", nil), shared.SeverityHigh},
		{"server error message", errors.New("upstream server error"), shared.SeverityHigh},
		{"status 401", shared.NewRemoteError(401, "", "", nil), shared.SeverityMedium},
		{"status 403", shared.NewRemoteError(403, "", "nope", nil), shared.SeverityMedium},
		{"auth message", errors.New("auth token expired"), shared.SeverityMedium},
		{"status 404", shared.NewRemoteError(404, "", "", nil), shared.SeverityLow},
		{"plain error", errors.New("boom"), shared.SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shared.SeverityOf(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"network error", shared.NewNetworkError(nil), true},
		{"status 400", shared.NewRemoteError(400, "", "", nil), false},
		{"status 401", shared.NewRemoteError(401, "", "", nil), false},
		{"status 499", shared.NewRemoteError(499, "", "x", nil), false},
		{"status 600", shared.NewRemoteError(600, "", "odd", nil), false},
		{"network message without code", errors.New("network unreachable"), false},
		{"input error", shared.NewInputError("title", "required"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shared.IsRetryable(tt.err))
		})
	}
}

func TestIsRetryable_AllServerStatuses(t *testing.T) {
	for status := 500; status < 600; status++ {
		err := shared.NewRemoteError(status, "", "", nil)
		assert.True(t, shared.IsRetryable(err), "status %d", status)
	}
}

func TestUnauthorized_CategoryAndSeverity(t *testing.T) {
	for _, msg := range []string{"", "Unauthorized", "token expired", "please sign in"} {
		err := shared.NewRemoteError(401, "", msg, nil)
		assert.Equal(t, shared.CategoryAuthentication, shared.Categorize(err), msg)
		assert.Equal(t, shared.SeverityMedium, shared.SeverityOf(err), msg)
	}
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Please log in again to continue.", shared.UserMessage(shared.CategoryAuthentication))

	seen := map[string]bool{}
	for _, c := range shared.Categories {
		m := shared.UserMessage(c)
		require.NotEmpty(t, m, c)
		assert.False(t, seen[m], "duplicate message for %s", c)
		seen[m] = true
	}
	assert.Equal(t, shared.UserMessage(shared.CategorySystem), shared.UserMessage("UNKNOWN"))
}

func TestClassify(t *testing.T) {
	cl := shared.Classify(shared.NewRemoteError(503, "", "", nil))
	assert.Equal(t, shared.Classification{
		Category:    shared.CategorySystem,
		Severity:    shared.SeverityHigh,
		Retryable:   true,
		UserMessage: shared.UserMessage(shared.CategorySystem),
	}, cl)
}

func TestSeverity_JSON(t *testing.T) {
	b, err := json.Marshal(shared.SeverityCritical)
	require.NoError(t, err)
	assert.Equal(t, `"CRITICAL"`, string(b))

	var s shared.Severity
	require.NoError(t, json.Unmarshal([]byte(`"medium"`), &s))
	assert.Equal(t, shared.SeverityMedium, s)

	assert.Error(t, json.Unmarshal([]byte(`"extreme"`), &s))
	assert.Equal(t, "Severity(9)", shared.Severity(9).String())
}

func TestSeverity_Ordering(t *testing.T) {
	assert.Less(t, shared.SeverityLow, shared.SeverityMedium)
	assert.Less(t, shared.SeverityMedium, shared.SeverityHigh)
	assert.Less(t, shared.SeverityHigh, shared.SeverityCritical)
}
