package approval

import (
	"context"
	"time"

	"github.com/viant/durable/policy"
)

// DecisionFunc decides a pending request. Returning decided=false leaves the
// request for someone else.
type DecisionFunc func(r *Request) (approved bool, reason string, decided bool)

// AutoDecider starts a goroutine that polls ListPending and applies fn to
// every request it has not seen yet. It returns stop(); call it (or cancel
// ctx) to exit.
func AutoDecider(ctx context.Context, svc Service, fn DecisionFunc, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})
	seen := map[string]bool{}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				requests, _ := svc.ListPending(ctx)
				for _, r := range requests {
					if seen[r.ID] {
						continue
					}
					ok, reason, decided := fn(r)
					if !decided {
						continue
					}
					seen[r.ID] = true
					_, _ = svc.Decide(ctx, r.ID, ok, reason)
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoApprove automatically approves all pending requests
func AutoApprove(ctx context.Context, svc Service, interval time.Duration) func() {
	return AutoDecider(ctx, svc, func(*Request) (bool, string, bool) { return true, "", true }, interval)
}

// AutoReject automatically rejects all pending requests with the given reason
func AutoReject(ctx context.Context, svc Service, reason string, interval time.Duration) func() {
	return AutoDecider(ctx, svc, func(*Request) (bool, string, bool) { return false, reason, true }, interval)
}

// WithPolicy decides requests by callback name according to p. It returns a
// no-op stop when p leaves decisions to a human.
func WithPolicy(ctx context.Context, svc Service, p *policy.Policy, interval time.Duration) func() {
	if p.IsManual() {
		return func() {}
	}
	return AutoDecider(ctx, svc, func(r *Request) (bool, string, bool) { return p.Decide(r.Name) }, interval)
}
