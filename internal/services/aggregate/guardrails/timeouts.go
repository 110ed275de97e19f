// Package guardrails holds cross cutting safety helpers for aggregation
package guardrails

import (
	"context"
	"time"
)

// Timeouts is an optional budget bundle for processing a single machine.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Machine is the overall time budget for one machine's run
	Machine time.Duration

	// Read caps the clickhouse snapshot read step
	Read time.Duration

	// DB caps the postgres write steps
	DB time.Duration
}

// WithMachine returns a context limited by the machine budget without extending any parent deadline.
// if Machine is zero it returns a cancelable child that simply inherits the parent deadline
func WithMachine(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Machine)
}

// ForRead returns a sub context for the snapshot read phase bounded by Read and any remaining parent budget
func ForRead(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Read)
}

// ForDB returns a sub context for the write phase bounded by DB and any remaining parent budget
func ForDB(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.DB)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		d := time.Until(dl)
		if d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout chooses the tighter of the requested duration and any parent remainder.
// Never extends the parent deadline
// When d is zero it returns a simple cancelable child inheriting the parent deadline
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
