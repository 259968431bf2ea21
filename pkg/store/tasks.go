package store

import (
	"sort"
	"time"
)

// AddTask registers a task, defaulting an empty Status to pending.
// CreatedAt is stamped if zero; UpdatedAt is always set to now.
func (s *ActionStore) AddTask(t *Task) error {
	if t.ID == "" {
		return ErrEmptyID
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = TaskStatusPending
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasksByID[t.ID] = t
	s.tasksByStatus[t.Status] = append(s.tasksByStatus[t.Status], t)
	return nil
}

// GetTask returns a copy of the task, lazily transitioning it to expired if
// its clock has passed expiresAt (spec §5: task expiration is evaluated
// lazily on the next read or write touching the task).
func (s *ActionStore) GetTask(id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasksByID[id]
	if !ok {
		return nil, &TaskNotFound{TaskID: id}
	}
	s.expireIfDue(t, time.Now().UTC())
	return t.clone(), nil
}

// expireIfDue transitions t to expired if it is still pending/in_progress
// and now is past t.ExpiresAt. Caller must hold s.mu.
func (s *ActionStore) expireIfDue(t *Task, now time.Time) {
	if t.ExpiresAt == nil || now.Before(*t.ExpiresAt) {
		return
	}
	if t.Status != TaskStatusPending && t.Status != TaskStatusInProgress {
		return
	}
	s.transitionLocked(t, TaskStatusExpired)
}

// transitionLocked moves t to the new status, updating the by-status index
// and UpdatedAt. Caller must hold s.mu.
func (s *ActionStore) transitionLocked(t *Task, to TaskStatus) {
	from := t.Status
	s.removeFromStatusIndex(from, t.ID)
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	s.tasksByStatus[to] = append(s.tasksByStatus[to], t)
}

func (s *ActionStore) removeFromStatusIndex(status TaskStatus, id string) {
	list := s.tasksByStatus[status]
	for i, t := range list {
		if t.ID == id {
			s.tasksByStatus[status] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// StartTask transitions a pending task to in_progress.
func (s *ActionStore) StartTask(id string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasksByID[id]
	if !ok {
		return nil, &TaskNotFound{TaskID: id}
	}
	now := time.Now().UTC()
	s.expireIfDue(t, now)
	if t.Status != TaskStatusPending {
		return nil, &IllegalTransition{TaskID: id, From: t.Status, To: TaskStatusInProgress}
	}
	s.transitionLocked(t, TaskStatusInProgress)
	return t.clone(), nil
}

// ConfirmTask attempts to confirm a task with the given evidence. Valid
// from pending or in_progress (the "direct path" and the staged path in the
// spec's state diagram). Checks run in this order: TaskAlreadyConfirmed
// for a confirmed task, TaskExpired once expiresAt has passed, then
// InsufficientEvidence when required evidence keys are missing.
func (s *ActionStore) ConfirmTask(id string, evidence map[string]interface{}) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasksByID[id]
	if !ok {
		return nil, &TaskNotFound{TaskID: id}
	}

	now := time.Now().UTC()

	if t.Status == TaskStatusConfirmed {
		return nil, &TaskAlreadyConfirmed{TaskID: id}
	}

	s.expireIfDue(t, now)
	if t.Status == TaskStatusExpired {
		return nil, &TaskExpired{TaskID: id, ExpiredAt: t.ExpiresAt.Format(time.RFC3339)}
	}

	if t.Status != TaskStatusPending && t.Status != TaskStatusInProgress {
		return nil, &IllegalTransition{TaskID: id, From: t.Status, To: TaskStatusConfirmed}
	}

	missing := missingEvidence(t.RequiredEvidence, evidence)
	if len(missing) > 0 {
		return nil, &InsufficientEvidence{TaskID: id, Missing: missing}
	}

	t.ProvidedEvidence = evidence
	s.transitionLocked(t, TaskStatusConfirmed)
	confirmedAt := now
	t.ConfirmedAt = &confirmedAt
	return t.clone(), nil
}

func missingEvidence(required []string, provided map[string]interface{}) []string {
	var missing []string
	for _, key := range required {
		v, ok := provided[key]
		if !ok || v == nil {
			missing = append(missing, key)
		}
	}
	return missing
}

// FailTask transitions a task in any status to failed.
func (s *ActionStore) FailTask(id, reason string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasksByID[id]
	if !ok {
		return nil, &TaskNotFound{TaskID: id}
	}
	if t.Metadata == nil {
		t.Metadata = make(map[string]interface{})
	}
	t.Metadata["failureReason"] = reason
	s.transitionLocked(t, TaskStatusFailed)
	return t.clone(), nil
}

// UpdateTask applies a patch restricted to mutable fields (description,
// metadata, requiredEvidence) without touching the state machine.
func (s *ActionStore) UpdateTask(id string, patch func(*Task)) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasksByID[id]
	if !ok {
		return nil, &TaskNotFound{TaskID: id}
	}
	patched := t.clone()
	patch(patched)
	t.Description = patched.Description
	t.Metadata = patched.Metadata
	t.RequiredEvidence = patched.RequiredEvidence
	t.UpdatedAt = time.Now().UTC()
	return t.clone(), nil
}

// AllTasks returns copies of every task ordered by creation time, lazily
// expiring any that are due first, for the audit export.
func (s *ActionStore) AllTasks() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	out := make([]*Task, 0, len(s.tasksByID))
	for _, t := range s.tasksByID {
		s.expireIfDue(t, now)
		out = append(out, t.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// QueryTasksByStatus returns copies of all tasks currently in the given
// status, lazily expiring any that are due first.
func (s *ActionStore) QueryTasksByStatus(status TaskStatus) []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, t := range s.tasksByID {
		s.expireIfDue(t, now)
	}

	list := s.tasksByStatus[status]
	out := make([]*Task, len(list))
	for i, t := range list {
		out[i] = t.clone()
	}
	return out
}
