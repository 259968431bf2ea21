// Package store implements the Action Store: an in-memory typed repository
// for actions, transactions, tasks, reasoning entries, and anomaly events,
// with the indexes the Compliance Engine, Trust Scorer, and Anomaly
// Detector read from.
package store

import "time"

// ActionType discriminates the kinds of Action the store holds.
type ActionType string

const (
	ActionTypeTransaction     ActionType = "transaction"
	ActionTypeApproval        ActionType = "approval"
	ActionTypeReasoning       ActionType = "reasoning"
	ActionTypeToolCall        ActionType = "tool_call"
	ActionTypeComplianceCheck ActionType = "compliance_check"
	ActionTypeVerifyStart     ActionType = "verify_start"
	ActionTypeAnomalyDetected ActionType = "anomaly_detected"
	ActionTypeTrustSnapshot   ActionType = "trust_snapshot"
)

// Action is the base unit persisted by the store; Transaction and
// ReasoningEntry embed it and add domain-specific fields.
type Action struct {
	ActionID      string                 `json:"id"`
	ProjectID     string                 `json:"projectId"`
	AgentID       string                 `json:"agentId"`
	Type          ActionType             `json:"type"`
	Description   string                 `json:"description"`
	Timestamp     time.Time              `json:"timestamp"`
	Sequence      uint64                 `json:"sequence"`
	CorrelationID string                 `json:"correlationId,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Digest        string                 `json:"digest,omitempty"`
	PriorDigest   string                 `json:"priorDigest,omitempty"`
}

// ID satisfies chain.Appendable.
func (a *Action) ID() string { return a.ActionID }

// Kind satisfies chain.Appendable.
func (a *Action) Kind() string { return string(a.Type) }

// Fingerprint satisfies chain.Appendable for a plain Action; embedders with
// extra fields override it, folding in fingerprintFields().
func (a *Action) Fingerprint() interface{} { return a.fingerprintFields() }

// fingerprintFields returns the action content with digest/priorDigest
// excluded, per I-3. Embedders merge in their own type-specific fields.
func (a *Action) fingerprintFields() map[string]interface{} {
	return map[string]interface{}{
		"id":            a.ActionID,
		"projectId":     a.ProjectID,
		"agentId":       a.AgentID,
		"type":          string(a.Type),
		"description":   a.Description,
		"timestamp":     a.Timestamp.Format(time.RFC3339Nano),
		"sequence":      a.Sequence,
		"correlationId": a.CorrelationID,
		"metadata":      a.Metadata,
	}
}

// Transaction is an Action with transaction-specific fields, `type =
// "transaction"`.
type Transaction struct {
	Action
	TxHash string `json:"txHash,omitempty"`
	Chain  string `json:"chain"`
	Amount string `json:"amount"`
	Token  string `json:"token"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// Fingerprint overrides Action.Fingerprint to include transaction fields.
func (t *Transaction) Fingerprint() interface{} {
	f := t.Action.fingerprintFields()
	f["txHash"] = t.TxHash
	f["chain"] = t.Chain
	f["amount"] = t.Amount
	f["token"] = t.Token
	f["from"] = t.From
	f["to"] = t.To
	return f
}

// ReasoningEntry is an Action carrying an agent's reasoning trail, `type =
// "reasoning"`.
type ReasoningEntry struct {
	Action
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
	Step       *int    `json:"step,omitempty"`
	SessionID  string  `json:"sessionId,omitempty"`
}

// Fingerprint overrides Action.Fingerprint to include reasoning fields.
func (r *ReasoningEntry) Fingerprint() interface{} {
	f := r.Action.fingerprintFields()
	f["reasoning"] = r.Reasoning
	f["confidence"] = r.Confidence
	f["step"] = r.Step
	f["sessionId"] = r.SessionID
	return f
}

// TaskStatus is the Task state machine's current state.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusConfirmed  TaskStatus = "confirmed"
	TaskStatusFailed     TaskStatus = "failed"
	TaskStatusExpired    TaskStatus = "expired"
)

// Task is an approval/evidence-gathering workflow attached to a chain of
// actions (I-6: evidence completeness before confirmation).
type Task struct {
	ID               string                 `json:"id"`
	Description      string                 `json:"description"`
	AgentID          string                 `json:"agentId"`
	Status           TaskStatus             `json:"status"`
	RequiredEvidence []string               `json:"requiredEvidence"`
	ProvidedEvidence map[string]interface{} `json:"providedEvidence,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
	ConfirmedAt      *time.Time             `json:"confirmedAt,omitempty"`
	ExpiresAt        *time.Time             `json:"expiresAt,omitempty"`
	CorrelationID    string                 `json:"correlationId,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// clone returns a deep-enough copy for query results (no shared mutable
// references per spec §4.2).
func (t *Task) clone() *Task {
	cp := *t
	if t.RequiredEvidence != nil {
		cp.RequiredEvidence = append([]string(nil), t.RequiredEvidence...)
	}
	if t.ProvidedEvidence != nil {
		cp.ProvidedEvidence = make(map[string]interface{}, len(t.ProvidedEvidence))
		for k, v := range t.ProvidedEvidence {
			cp.ProvidedEvidence[k] = v
		}
	}
	if t.Metadata != nil {
		cp.Metadata = make(map[string]interface{}, len(t.Metadata))
		for k, v := range t.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// AnomalySeverity classifies how serious an emitted anomaly is.
type AnomalySeverity string

const (
	SeverityLow      AnomalySeverity = "low"
	SeverityMedium   AnomalySeverity = "medium"
	SeverityHigh     AnomalySeverity = "high"
	SeverityCritical AnomalySeverity = "critical"
)

// AnomalyEvent is an anomaly finding emitted by the Anomaly Detector and
// persisted by the store (I-7: actionId/agentId must reference an existing
// action).
type AnomalyEvent struct {
	EventID     string                 `json:"id"`
	Type        string                 `json:"type"`
	Severity    AnomalySeverity        `json:"severity"`
	AgentID     string                 `json:"agentId"`
	ActionID    string                 `json:"actionId"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
	DetectedAt  time.Time              `json:"detectedAt"`
	Reviewed    bool                   `json:"reviewed"`
}

// ID satisfies chain.Appendable.
func (e *AnomalyEvent) ID() string { return e.EventID }

// Kind satisfies chain.Appendable.
func (e *AnomalyEvent) Kind() string { return "anomaly_event" }

// Fingerprint satisfies chain.Appendable.
func (e *AnomalyEvent) Fingerprint() interface{} {
	return map[string]interface{}{
		"id":          e.EventID,
		"type":        e.Type,
		"severity":    string(e.Severity),
		"agentId":     e.AgentID,
		"actionId":    e.ActionID,
		"description": e.Description,
		"data":        e.Data,
		"detectedAt":  e.DetectedAt.Format(time.RFC3339Nano),
	}
}
