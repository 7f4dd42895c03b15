// Package failover runs broadcast-shaped operations against an ordered list
// of node endpoints, returning the first success or an aggregated error
// after a bounded number of attempts.
package failover

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"feedd/observability"
)

const (
	// DefaultAttemptTimeout bounds a single endpoint attempt.
	DefaultAttemptTimeout = 10 * time.Second
	// DefaultAttemptsPerEndpoint sizes the retry budget so every endpoint
	// gets revisited at least once.
	DefaultAttemptsPerEndpoint = 2
)

// Attempt records the outcome of one endpoint attempt. Attempts exist only
// for the duration of an Execute call and are never persisted.
type Attempt struct {
	Attempt  int
	Endpoint string
	Elapsed  time.Duration
	Err      error
}

// ExhaustedError reports that every attempt failed. It carries the ordered
// per-attempt causes and the label of the logical operation so callers can
// tell which operation failed and why each endpoint was rejected.
type ExhaustedError struct {
	Label    string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failover: %s exhausted %d attempts", e.Label, len(e.Attempts))
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "; attempt %d %s: %v", a.Attempt, a.Endpoint, a.Err)
	}
	return b.String()
}

// Executor holds a fixed, ordered endpoint list. Relative order defines
// failover priority; there is no health-based reprioritization.
type Executor struct {
	endpoints   []string
	timeout     time.Duration
	maxAttempts int
}

// New validates the endpoint list and retry budget. An empty endpoint list
// is a construction-time error. A maxAttempts of zero defaults to twice the
// endpoint count; smaller budgets are legal but leave endpoints untried.
func New(endpoints []string, timeout time.Duration, maxAttempts int) (*Executor, error) {
	cleaned := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		if trimmed := strings.TrimSpace(ep); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New("failover: at least one endpoint required")
	}
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultAttemptsPerEndpoint * len(cleaned)
	}
	return &Executor{endpoints: cleaned, timeout: timeout, maxAttempts: maxAttempts}, nil
}

// Endpoints returns a copy of the configured endpoint list.
func (e *Executor) Endpoints() []string {
	return append([]string(nil), e.endpoints...)
}

// MaxAttempts reports the configured retry budget.
func (e *Executor) MaxAttempts() int {
	return e.maxAttempts
}

// Execute runs op against endpoints in round-robin order until it succeeds
// or the retry budget is spent. Attempt i targets endpoint (i-1) mod N, so
// later attempts wrap back to earlier endpoints. Each attempt receives a
// context bounded by the per-attempt timeout; ops must honor it for the
// timeout to count as a failure rather than a hang. Attempts run strictly
// sequentially. A cancelled parent context stops the loop and returns the
// context error.
func Execute[T any](ctx context.Context, e *Executor, label string, op func(ctx context.Context, endpoint string) (T, error)) (T, error) {
	var zero T
	attempts := make([]Attempt, 0, e.maxAttempts)
	for i := 1; i <= e.maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		endpoint := e.endpoints[(i-1)%len(e.endpoints)]
		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		start := time.Now()
		result, err := op(attemptCtx, endpoint)
		cancel()
		elapsed := time.Since(start)
		if err == nil {
			observability.Feed().BroadcastAttempts.WithLabelValues(endpoint, "ok").Inc()
			return result, nil
		}
		observability.Feed().BroadcastAttempts.WithLabelValues(endpoint, "error").Inc()
		attempts = append(attempts, Attempt{Attempt: i, Endpoint: endpoint, Elapsed: elapsed, Err: err})
	}
	return zero, &ExhaustedError{Label: label, Attempts: attempts}
}
