// Package retry provides per-operation retry orchestration with exponential
// backoff.
//
// Key Features:
//   - Retry budgets keyed by operation id
//   - Deterministic backoff: BaseDelay * Multiplier^n, capped at MaxDelay
//   - Retry state removed on success, exhaustion, rejection and cancellation
//   - Context-aware backoff waits
//   - Observability hook (OnRetry callback)
//   - Full testability support (timer abstraction)
//
// Basic Usage:
//
//	coord, err := retry.NewCoordinator(retry.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	err = coord.Execute(ctx, retry.Options{
//	    OperationID: "complaints.list",
//	    IsRetryable: shared.IsRetryable,
//	}, func(ctx context.Context) error {
//	    return fetchComplaints(ctx)
//	})
//
// With the default configuration an operation that keeps failing with a
// retryable error is invoked 4 times, waiting 1s, 2s and 4s in between,
// and then fails with *RetriesExceededError wrapping the last error.
//
// Sharing a Budget:
//
// Callers that pass the same OperationID from several goroutines draw
// from one budget. An empty OperationID gets a fresh id, so unrelated calls
// never share backoff state.
package retry
