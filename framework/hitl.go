package framework

import (
	"fmt"
	"sync"
	"time"
)

// ApprovalRequest captures a pending human gate raised during finalization,
// typically because the confidence score fell below threshold or the
// security scan produced findings.
type ApprovalRequest struct {
	ID          string    `json:"id"`
	Reason      string    `json:"reason"`
	Confidence  int       `json:"confidence"`
	Findings    int       `json:"findings"`
	RequestedAt time.Time `json:"requested_at"`
}

// ApprovalDecision records the human (or policy) answer to a request.
type ApprovalDecision struct {
	RequestID string    `json:"request_id"`
	Approved  bool      `json:"approved"`
	DecidedBy string    `json:"decided_by"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}

// ApprovalGate coordinates blocking approvals. Non-interactive runs get the
// auto-decline policy: the gate answers immediately so unattended runs never
// hang waiting for a human. The request/decision log is append-only.
type ApprovalGate struct {
	timeout     time.Duration
	interactive bool
	mu          sync.Mutex
	seq         int
	requests    []ApprovalRequest
	decisions   []ApprovalDecision
	waiters     map[string]chan ApprovalDecision
	clock       func() time.Time
}

// NewApprovalGate builds a gate. When interactive is false every request is
// auto-declined.
func NewApprovalGate(timeout time.Duration, interactive bool) *ApprovalGate {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &ApprovalGate{
		timeout:     timeout,
		interactive: interactive,
		waiters:     make(map[string]chan ApprovalDecision),
		clock:       time.Now,
	}
}

// Request raises an approval gate and blocks until a decision arrives or
// the timeout elapses. Timeouts count as declines.
func (g *ApprovalGate) Request(reason string, confidence, findings int) ApprovalDecision {
	g.mu.Lock()
	g.seq++
	req := ApprovalRequest{
		ID:          fmt.Sprintf("approval-%d", g.seq),
		Reason:      reason,
		Confidence:  confidence,
		Findings:    findings,
		RequestedAt: g.clock().UTC(),
	}
	g.requests = append(g.requests, req)
	if !g.interactive {
		decision := ApprovalDecision{
			RequestID: req.ID,
			Approved:  false,
			DecidedBy: "policy",
			Reason:    "auto-declined: non-interactive run",
			DecidedAt: g.clock().UTC(),
		}
		g.decisions = append(g.decisions, decision)
		g.mu.Unlock()
		return decision
	}
	ch := make(chan ApprovalDecision, 1)
	g.waiters[req.ID] = ch
	g.mu.Unlock()

	select {
	case decision := <-ch:
		return decision
	case <-time.After(g.timeout):
		decision := ApprovalDecision{
			RequestID: req.ID,
			Approved:  false,
			DecidedBy: "timeout",
			Reason:    "no decision before timeout",
			DecidedAt: g.clock().UTC(),
		}
		g.mu.Lock()
		delete(g.waiters, req.ID)
		g.decisions = append(g.decisions, decision)
		g.mu.Unlock()
		return decision
	}
}

// Decide answers a pending request.
func (g *ApprovalGate) Decide(requestID string, approved bool, decidedBy, reason string) error {
	g.mu.Lock()
	ch, ok := g.waiters[requestID]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("no pending approval %s", requestID)
	}
	delete(g.waiters, requestID)
	decision := ApprovalDecision{
		RequestID: requestID,
		Approved:  approved,
		DecidedBy: decidedBy,
		Reason:    reason,
		DecidedAt: g.clock().UTC(),
	}
	g.decisions = append(g.decisions, decision)
	g.mu.Unlock()
	ch <- decision
	return nil
}

// Pending returns copies of requests still awaiting a decision.
func (g *ApprovalGate) Pending() []ApprovalRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	pending := make([]ApprovalRequest, 0, len(g.waiters))
	for _, req := range g.requests {
		if _, waiting := g.waiters[req.ID]; waiting {
			pending = append(pending, req)
		}
	}
	return pending
}

// History returns the append-only decision log.
func (g *ApprovalGate) History() []ApprovalDecision {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ApprovalDecision, len(g.decisions))
	copy(out, g.decisions)
	return out
}
