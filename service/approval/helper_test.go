package approval_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/durable/policy"
	"github.com/viant/durable/service/approval"
)

type service struct {
	mux       sync.Mutex
	pending   map[string]*approval.Request
	decisions map[string]*approval.Decision
	calls     int
}

func newService(requests ...*approval.Request) *service {
	ret := &service{pending: map[string]*approval.Request{}, decisions: map[string]*approval.Decision{}}
	for _, r := range requests {
		ret.pending[r.ID] = r
	}
	return ret
}

func (s *service) ListPending(ctx context.Context) ([]*approval.Request, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	var ret []*approval.Request
	for _, r := range s.pending {
		ret = append(ret, r)
	}
	return ret, nil
}

func (s *service) Decide(ctx context.Context, id string, approved bool, reason string) (*approval.Decision, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.calls++
	delete(s.pending, id)
	d := &approval.Decision{ID: id, Approved: approved, Reason: reason, DecidedAt: time.Now()}
	s.decisions[id] = d
	return d, nil
}

func (s *service) decision(id string) *approval.Decision {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.decisions[id]
}

func TestAutoDecider(t *testing.T) {
	var testCases = []struct {
		description    string
		start          func(ctx context.Context, svc approval.Service) func()
		expectApproved bool
		expectReason   string
	}{
		{
			description: "approve",
			start: func(ctx context.Context, svc approval.Service) func() {
				return approval.AutoApprove(ctx, svc, 5*time.Millisecond)
			},
			expectApproved: true,
		},
		{
			description: "reject",
			start: func(ctx context.Context, svc approval.Service) func() {
				return approval.AutoReject(ctx, svc, "not today", 5*time.Millisecond)
			},
			expectReason: "not today",
		},
		{
			description: "deny policy",
			start: func(ctx context.Context, svc approval.Service) func() {
				return approval.WithPolicy(ctx, svc, &policy.Policy{Mode: policy.ModeDeny}, 5*time.Millisecond)
			},
			expectReason: "denied by policy",
		},
	}

	for _, testCase := range testCases {
		svc := newService(&approval.Request{ID: "tok-1", Name: "high-value-transaction-approval"})
		ctx, cancel := context.WithCancel(context.Background())
		stop := testCase.start(ctx, svc)
		assert.Eventually(t, func() bool { return svc.decision("tok-1") != nil }, time.Second, 5*time.Millisecond, testCase.description)
		stop()
		cancel()
		d := svc.decision("tok-1")
		assert.Equal(t, testCase.expectApproved, d.Approved, testCase.description)
		assert.Equal(t, testCase.expectReason, d.Reason, testCase.description)
	}
}

func TestWithPolicy_Manual(t *testing.T) {
	svc := newService(&approval.Request{ID: "tok-1", Name: "approval"})
	stop := approval.WithPolicy(context.Background(), svc, &policy.Policy{Mode: policy.ModeAsk}, time.Millisecond)
	defer stop()
	time.Sleep(20 * time.Millisecond)
	assert.Nil(t, svc.decision("tok-1"))
}

func TestAutoDecider_DecidesOnce(t *testing.T) {
	svc := newService(&approval.Request{ID: "tok-1", Name: "approval"})
	sticky := &stickyService{service: svc}
	stop := approval.AutoApprove(context.Background(), sticky, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	stop()
	svc.mux.Lock()
	defer svc.mux.Unlock()
	assert.Equal(t, 1, svc.calls)
}

// stickyService keeps reporting requests as pending after a decision.
type stickyService struct {
	*service
}

func (s *stickyService) ListPending(ctx context.Context) ([]*approval.Request, error) {
	return []*approval.Request{{ID: "tok-1", Name: "approval"}}, nil
}
