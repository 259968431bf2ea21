package store

import (
	"testing"
	"time"

	"github.com/kontext-run/kontext-core/pkg/chain"
)

func newTestStore() *ActionStore {
	return New(chain.New())
}

func TestAddAction_IndexesByAgentCorrelationType(t *testing.T) {
	s := newTestStore()
	a := &Action{
		ActionID:      "act-1",
		AgentID:       "agent-1",
		Type:          ActionTypeApproval,
		Timestamp:     time.Now().UTC(),
		CorrelationID: "corr-1",
	}
	if err := s.AddAction(a); err != nil {
		t.Fatalf("AddAction returned error: %v", err)
	}
	if a.Sequence != 1 {
		t.Errorf("Sequence = %d, want 1", a.Sequence)
	}
	if a.Digest == "" {
		t.Error("expected Digest to be set after append")
	}

	if got := s.QueryActionsByAgent("agent-1"); len(got) != 1 {
		t.Fatalf("QueryActionsByAgent returned %d actions, want 1", len(got))
	}
	if got := s.QueryActionsByCorrelation("corr-1"); len(got) != 1 {
		t.Fatalf("QueryActionsByCorrelation returned %d actions, want 1", len(got))
	}
	if got := s.QueryActionsByType(ActionTypeApproval); len(got) != 1 {
		t.Fatalf("QueryActionsByType returned %d actions, want 1", len(got))
	}
}

func TestAddAction_EmptyID(t *testing.T) {
	s := newTestStore()
	a := &Action{ActionID: "", AgentID: "agent-1", Timestamp: time.Now().UTC()}
	if err := s.AddAction(a); err != ErrEmptyID {
		t.Fatalf("expected ErrEmptyID, got %v", err)
	}
}

func TestAddTransaction_ValidatesAmount(t *testing.T) {
	s := newTestStore()
	tx := &Transaction{
		Action: Action{
			ActionID:  "tx-1",
			AgentID:   "agent-1",
			Timestamp: time.Now().UTC(),
		},
		Chain:  "ethereum",
		Amount: "not-a-number",
		Token:  "USDC",
		From:   "0xabc",
		To:     "0xdef",
	}
	if err := s.AddTransaction(tx); err == nil {
		t.Fatal("expected error for malformed amount")
	}
}

func TestAddTransaction_IndexesByAgentAndToAddress(t *testing.T) {
	s := newTestStore()
	tx := &Transaction{
		Action: Action{
			ActionID:  "tx-1",
			AgentID:   "agent-1",
			Timestamp: time.Now().UTC(),
		},
		Chain:  "ethereum",
		Amount: "100.50",
		Token:  "USDC",
		From:   "0xabc",
		To:     "0xdef",
	}
	if err := s.AddTransaction(tx); err != nil {
		t.Fatalf("AddTransaction returned error: %v", err)
	}
	if tx.Type != ActionTypeTransaction {
		t.Errorf("Type = %q, want transaction", tx.Type)
	}
	if got := s.QueryTransactionsByAgent("agent-1"); len(got) != 1 {
		t.Fatalf("QueryTransactionsByAgent returned %d, want 1", len(got))
	}
	if got := s.QueryTransactionsByToAddress("0xdef"); len(got) != 1 {
		t.Fatalf("QueryTransactionsByToAddress returned %d, want 1", len(got))
	}
	if got := s.QueryActionsByAgent("agent-1"); len(got) != 1 {
		t.Fatalf("transaction must also appear in the generic actions-by-agent index, got %d", len(got))
	}
}

func TestAddAnomaly_RequiresExistingAction(t *testing.T) {
	s := newTestStore()
	e := &AnomalyEvent{
		EventID:    "anom-1",
		Type:       "unusualAmount",
		Severity:   SeverityMedium,
		AgentID:    "agent-1",
		ActionID:   "does-not-exist",
		DetectedAt: time.Now().UTC(),
	}
	if err := s.AddAnomaly(e); err == nil {
		t.Fatal("expected error for anomaly referencing unknown action")
	}
}

func TestAddAnomaly_RejectsAgentIDMismatch(t *testing.T) {
	s := newTestStore()
	a := &Action{ActionID: "act-1", AgentID: "agent-1", Type: ActionTypeTransaction, Timestamp: time.Now().UTC()}
	if err := s.AddAction(a); err != nil {
		t.Fatalf("AddAction returned error: %v", err)
	}

	e := &AnomalyEvent{
		EventID:    "anom-1",
		Type:       "unusualAmount",
		Severity:   SeverityMedium,
		AgentID:    "agent-2",
		ActionID:   "act-1",
		DetectedAt: time.Now().UTC(),
	}
	if err := s.AddAnomaly(e); err == nil {
		t.Fatal("expected error when anomaly agentId does not match referenced action's agentId")
	}
	if got := s.QueryAnomaliesByAgent("agent-2"); len(got) != 0 {
		t.Fatalf("rejected anomaly must not be persisted, got %d", len(got))
	}
}

func TestAddAnomaly_IndexesByAgentAndDispatchesHandlers(t *testing.T) {
	s := newTestStore()
	a := &Action{ActionID: "act-1", AgentID: "agent-1", Type: ActionTypeTransaction, Timestamp: time.Now().UTC()}
	if err := s.AddAction(a); err != nil {
		t.Fatalf("AddAction returned error: %v", err)
	}

	received := make(chan *AnomalyEvent, 1)
	s.AddHandler(func(e *AnomalyEvent) { received <- e })

	e := &AnomalyEvent{
		EventID:    "anom-1",
		Type:       "unusualAmount",
		Severity:   SeverityHigh,
		AgentID:    "agent-1",
		ActionID:   "act-1",
		DetectedAt: time.Now().UTC(),
	}
	if err := s.AddAnomaly(e); err != nil {
		t.Fatalf("AddAnomaly returned error: %v", err)
	}

	select {
	case got := <-received:
		if got.EventID != "anom-1" {
			t.Errorf("handler received %q, want anom-1", got.EventID)
		}
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}

	if got := s.QueryAnomaliesByAgent("agent-1"); len(got) != 1 {
		t.Fatalf("QueryAnomaliesByAgent returned %d, want 1", len(got))
	}
}

func TestAddHandler_PanicDoesNotPropagate(t *testing.T) {
	s := newTestStore()
	a := &Action{ActionID: "act-1", AgentID: "agent-1", Type: ActionTypeTransaction, Timestamp: time.Now().UTC()}
	if err := s.AddAction(a); err != nil {
		t.Fatalf("AddAction returned error: %v", err)
	}

	s.AddHandler(func(e *AnomalyEvent) { panic("boom") })

	e := &AnomalyEvent{
		EventID:    "anom-1",
		Type:       "unusualAmount",
		Severity:   SeverityLow,
		AgentID:    "agent-1",
		ActionID:   "act-1",
		DetectedAt: time.Now().UTC(),
	}
	if err := s.AddAnomaly(e); err != nil {
		t.Fatalf("AddAnomaly returned error despite handler panic: %v", err)
	}
}

func TestQueryActions_ReturnCopiesNotSharedReferences(t *testing.T) {
	s := newTestStore()
	a := &Action{ActionID: "act-1", AgentID: "agent-1", Type: ActionTypeApproval, Timestamp: time.Now().UTC()}
	if err := s.AddAction(a); err != nil {
		t.Fatalf("AddAction returned error: %v", err)
	}

	got := s.QueryActionsByAgent("agent-1")
	got[0].Description = "mutated"

	again := s.QueryActionsByAgent("agent-1")
	if again[0].Description == "mutated" {
		t.Fatal("query results must not share mutable references with stored actions")
	}
}
