package store

import (
	"testing"
	"time"
)

func TestAddTask_DefaultsToPending(t *testing.T) {
	s := newTestStore()
	task := &Task{ID: "task-1", AgentID: "agent-1", RequiredEvidence: []string{"kyc"}}
	if err := s.AddTask(task); err != nil {
		t.Fatalf("AddTask returned error: %v", err)
	}
	got, err := s.GetTask("task-1")
	if err != nil {
		t.Fatalf("GetTask returned error: %v", err)
	}
	if got.Status != TaskStatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}
}

func TestConfirmTask_DirectPath(t *testing.T) {
	s := newTestStore()
	task := &Task{ID: "task-1", AgentID: "agent-1", RequiredEvidence: []string{"kyc", "source_of_funds"}}
	_ = s.AddTask(task)

	confirmed, err := s.ConfirmTask("task-1", map[string]interface{}{
		"kyc":             "passed",
		"source_of_funds": "payroll",
	})
	if err != nil {
		t.Fatalf("ConfirmTask returned error: %v", err)
	}
	if confirmed.Status != TaskStatusConfirmed {
		t.Errorf("Status = %q, want confirmed", confirmed.Status)
	}
	if confirmed.ConfirmedAt == nil {
		t.Error("expected ConfirmedAt to be set")
	}
}

func TestConfirmTask_StagedPath(t *testing.T) {
	s := newTestStore()
	task := &Task{ID: "task-1", AgentID: "agent-1", RequiredEvidence: []string{"kyc"}}
	_ = s.AddTask(task)

	if _, err := s.StartTask("task-1"); err != nil {
		t.Fatalf("StartTask returned error: %v", err)
	}
	got, _ := s.GetTask("task-1")
	if got.Status != TaskStatusInProgress {
		t.Fatalf("Status = %q, want in_progress", got.Status)
	}

	confirmed, err := s.ConfirmTask("task-1", map[string]interface{}{"kyc": "passed"})
	if err != nil {
		t.Fatalf("ConfirmTask returned error: %v", err)
	}
	if confirmed.Status != TaskStatusConfirmed {
		t.Errorf("Status = %q, want confirmed", confirmed.Status)
	}
}

func TestConfirmTask_InsufficientEvidence(t *testing.T) {
	s := newTestStore()
	task := &Task{ID: "task-1", AgentID: "agent-1", RequiredEvidence: []string{"kyc", "source_of_funds"}}
	_ = s.AddTask(task)

	_, err := s.ConfirmTask("task-1", map[string]interface{}{"kyc": "passed"})
	if err == nil {
		t.Fatal("expected InsufficientEvidence error")
	}
	if _, ok := err.(*InsufficientEvidence); !ok {
		t.Fatalf("expected *InsufficientEvidence, got %T", err)
	}
}

func TestConfirmTask_NullEvidenceValueCountsAsMissing(t *testing.T) {
	s := newTestStore()
	task := &Task{ID: "task-1", AgentID: "agent-1", RequiredEvidence: []string{"kyc"}}
	_ = s.AddTask(task)

	_, err := s.ConfirmTask("task-1", map[string]interface{}{"kyc": nil})
	if _, ok := err.(*InsufficientEvidence); !ok {
		t.Fatalf("expected *InsufficientEvidence for nil evidence value, got %T", err)
	}
}

func TestConfirmTask_AlreadyConfirmed(t *testing.T) {
	s := newTestStore()
	task := &Task{ID: "task-1", AgentID: "agent-1", RequiredEvidence: []string{}}
	_ = s.AddTask(task)
	if _, err := s.ConfirmTask("task-1", map[string]interface{}{}); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}

	_, err := s.ConfirmTask("task-1", map[string]interface{}{})
	if _, ok := err.(*TaskAlreadyConfirmed); !ok {
		t.Fatalf("expected *TaskAlreadyConfirmed, got %T", err)
	}
}

func TestConfirmTask_ExpiredByClock(t *testing.T) {
	s := newTestStore()
	past := time.Now().UTC().Add(-time.Hour)
	task := &Task{ID: "task-1", AgentID: "agent-1", RequiredEvidence: []string{}, ExpiresAt: &past}
	_ = s.AddTask(task)

	_, err := s.ConfirmTask("task-1", map[string]interface{}{})
	if _, ok := err.(*TaskExpired); !ok {
		t.Fatalf("expected *TaskExpired, got %T", err)
	}

	got, _ := s.GetTask("task-1")
	if got.Status != TaskStatusExpired {
		t.Errorf("Status = %q, want expired (side effect of the failed confirm)", got.Status)
	}
}

func TestGetTask_LazilyExpiresOnRead(t *testing.T) {
	s := newTestStore()
	past := time.Now().UTC().Add(-time.Minute)
	task := &Task{ID: "task-1", AgentID: "agent-1", ExpiresAt: &past}
	_ = s.AddTask(task)

	got, err := s.GetTask("task-1")
	if err != nil {
		t.Fatalf("GetTask returned error: %v", err)
	}
	if got.Status != TaskStatusExpired {
		t.Errorf("Status = %q, want expired", got.Status)
	}
}

func TestFailTask_FromAnyStatus(t *testing.T) {
	s := newTestStore()
	task := &Task{ID: "task-1", AgentID: "agent-1"}
	_ = s.AddTask(task)

	failed, err := s.FailTask("task-1", "compliance rejected")
	if err != nil {
		t.Fatalf("FailTask returned error: %v", err)
	}
	if failed.Status != TaskStatusFailed {
		t.Errorf("Status = %q, want failed", failed.Status)
	}
}

func TestQueryTasksByStatus(t *testing.T) {
	s := newTestStore()
	_ = s.AddTask(&Task{ID: "t1", AgentID: "agent-1"})
	_ = s.AddTask(&Task{ID: "t2", AgentID: "agent-1"})
	_, _ = s.StartTask("t2")

	pending := s.QueryTasksByStatus(TaskStatusPending)
	if len(pending) != 1 || pending[0].ID != "t1" {
		t.Fatalf("QueryTasksByStatus(pending) = %+v, want [t1]", pending)
	}

	inProgress := s.QueryTasksByStatus(TaskStatusInProgress)
	if len(inProgress) != 1 || inProgress[0].ID != "t2" {
		t.Fatalf("QueryTasksByStatus(in_progress) = %+v, want [t2]", inProgress)
	}
}

func TestGetTask_NotFound(t *testing.T) {
	s := newTestStore()
	if _, err := s.GetTask("missing"); err == nil {
		t.Fatal("expected TaskNotFound")
	}
}
