// Package shared contains the portal's error model: sentinel errors, the
// closed set of failure shapes, the classifier and the AppError record.
//
// # Failure Shapes
//
// Raw errors are converted once, at the boundary where they are first
// caught, into one of three shapes:
//
//   - *RemoteError: non-2xx response or transport failure from the HTTP layer
//   - *InputError: local input checks failed before any remote call
//   - *PlainError: anything else
//
// AsFailure performs the conversion. Classifiers accept any error and call
// AsFailure themselves, so wrapped failures are found through errors.As.
//
// # Classification
//
// Four pure functions classify an error:
//
//	shared.Categorize(err)  // NETWORK, AUTHENTICATION, ..., SYSTEM
//	shared.SeverityOf(err)  // LOW, MEDIUM, HIGH, CRITICAL
//	shared.IsRetryable(err) // NETWORK_ERROR code or 5xx status
//	shared.UserMessage(cat) // one fixed sentence per category
//
// Classify runs all of them at once.
//
// # Category Rules
//
//	Order | Condition                                   | Category
//	------|---------------------------------------------|---------------
//	1     | nil error                                   | SYSTEM
//	2     | *InputError                                 | USER_INPUT
//	3     | status 401                                  | AUTHENTICATION
//	4     | status 403                                  | AUTHORIZATION
//	5     | other 4xx, message has "validation"         | VALIDATION
//	6     | code NETWORK_ERROR, message has "network"   | NETWORK
//	7     | message has "business" or "logic"           | BUSINESS_LOGIC
//	8     | otherwise                                   | SYSTEM
//
// Severity is derived independently of the category:
//
//	Condition                                   | Severity
//	--------------------------------------------|---------
//	message has "critical" or "fatal"           | CRITICAL
//	status >= 500, message has "server error"   | HIGH
//	status 401/403, message has "auth"          | MEDIUM
//	otherwise                                   | LOW
//
// # AppError
//
// NewAppError builds the immutable record that is buffered, reported and
// shown to the user:
//
//	appErr := shared.NewAppError(err, shared.ErrorContext{SessionID: sid})
//	fmt.Println(appErr.Category(), appErr.Severity(), appErr.UserMessage())
//
// AppError matches the sentinel of its category:
//
//	if errors.Is(err, shared.ErrUnauthorized) {
//	    // send the user to the login page
//	}
//
// # Error Wrapping
//
// Add context to errors while preserving the original error:
//
//	if err := repo.Get(ctx, id); err != nil {
//	    return shared.Wrapf(err, "load complaint %s", id)
//	}
package shared
