package framework

import (
	"testing"
	"time"
)

func TestApprovalGateAutoDeclines(t *testing.T) {
	gate := NewApprovalGate(time.Minute, false)

	decision := gate.Request("confidence 40 with 2 security findings", 40, 2)
	if decision.Approved {
		t.Fatal("non-interactive gate must decline")
	}
	if decision.DecidedBy != "policy" {
		t.Errorf("decided_by = %q, want policy", decision.DecidedBy)
	}
	if decision.Reason != "auto-declined: non-interactive run" {
		t.Errorf("unexpected reason %q", decision.Reason)
	}
	if len(gate.Pending()) != 0 {
		t.Error("auto-declined requests must not stay pending")
	}
	if len(gate.History()) != 1 {
		t.Errorf("history = %d entries, want 1", len(gate.History()))
	}
}

func TestApprovalGateInteractiveDecide(t *testing.T) {
	gate := NewApprovalGate(5*time.Second, true)

	done := make(chan ApprovalDecision, 1)
	go func() {
		done <- gate.Request("low confidence", 55, 0)
	}()

	// wait for the request to register
	var pending []ApprovalRequest
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		pending = gate.Pending()
		if len(pending) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}

	if err := gate.Decide(pending[0].ID, true, "alice", "reviewed the diff"); err != nil {
		t.Fatalf("decide: %v", err)
	}
	decision := <-done
	if !decision.Approved {
		t.Error("expected approval")
	}
	if decision.DecidedBy != "alice" {
		t.Errorf("decided_by = %q, want alice", decision.DecidedBy)
	}
}

func TestApprovalGateTimeoutDeclines(t *testing.T) {
	gate := NewApprovalGate(20*time.Millisecond, true)

	decision := gate.Request("nobody is watching", 50, 0)
	if decision.Approved {
		t.Fatal("timeout must decline")
	}
	if decision.DecidedBy != "timeout" {
		t.Errorf("decided_by = %q, want timeout", decision.DecidedBy)
	}
}

func TestApprovalGateDecideUnknown(t *testing.T) {
	gate := NewApprovalGate(time.Minute, true)
	if err := gate.Decide("approval-99", true, "bob", ""); err == nil {
		t.Fatal("expected error for unknown request")
	}
}
