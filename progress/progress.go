package progress

import (
	"context"
	"sync"
	"time"
)

// Delta is an incremental counter change. Fields are signed.
type Delta struct {
	Steps            int
	Completed        int
	Failed           int
	Running          int
	PendingCallbacks int
}

// Counters is a point-in-time view of an execution.
type Counters struct {
	ExecutionID      string    `json:"executionId"`
	Function         string    `json:"function"`
	StartedAt        time.Time `json:"startedAt"`
	TotalSteps       int       `json:"totalSteps"`
	CompletedSteps   int       `json:"completedSteps"`
	FailedSteps      int       `json:"failedSteps"`
	RunningSteps     int       `json:"runningSteps"`
	PendingCallbacks int       `json:"pendingCallbacks"`
}

// Progress keeps step and callback counters for one execution. It is safe for
// concurrent use.
type Progress struct {
	mux      sync.Mutex
	counters Counters
	onChange func(Counters)
}

// New creates a tracker.
func New(executionID, function string, onChange func(Counters)) *Progress {
	return &Progress{
		counters: Counters{ExecutionID: executionID, Function: function, StartedAt: time.Now()},
		onChange: onChange,
	}
}

// Update applies d. The onChange callback, if any, receives a copy outside
// the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.counters.TotalSteps += d.Steps
	p.counters.CompletedSteps += d.Completed
	p.counters.FailedSteps += d.Failed
	p.counters.RunningSteps += d.Running
	p.counters.PendingCallbacks += d.PendingCallbacks
	snapshot := p.counters
	cb := p.onChange
	p.mux.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the counters.
func (p *Progress) Snapshot() Counters {
	if p == nil {
		return Counters{}
	}
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.counters
}

// OnChange replaces the change callback; nil disables it.
func (p *Progress) OnChange(cb func(Counters)) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.onChange = cb
	p.mux.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithTracker embeds p in ctx.
func WithTracker(ctx context.Context, p *Progress) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, p)
}

// FromContext extracts the tracker from ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx applies d to the tracker carried by ctx, if any.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
