package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kontext-run/kontext-core/pkg/compliance"
	"github.com/kontext-run/kontext-core/pkg/finance"
	"github.com/kontext-run/kontext-core/pkg/store"
	"github.com/kontext-run/kontext-core/pkg/tiers"
)

// Input is the shape an agent submits before/after executing a financial
// action.
type Input struct {
	AgentID       string
	TxHash        string
	Chain         string
	Amount        string
	Token         string
	From          string
	To            string
	CorrelationID string
}

// DigestProof summarises the Digest Chain's state after a Verify call.
type DigestProof struct {
	TerminalDigest string `json:"terminalDigest"`
	ChainLength    uint64 `json:"chainLength"`
	Valid          bool   `json:"valid"`
}

// Result is the nine-step orchestrator's structured output.
type Result struct {
	Compliant       bool                    `json:"compliant"`
	RiskLevel       compliance.RiskLevel    `json:"riskLevel"`
	Checks          []compliance.Check      `json:"checks"`
	Recommendations []string                `json:"recommendations"`
	Anomalies       []*store.AnomalyEvent   `json:"anomalies"`
	TrustScore      int                     `json:"trustScore"`
	Task            *store.Task             `json:"task,omitempty"`
	DigestProof     DigestProof             `json:"digestProof"`
}

// Verify is the single entry point an agent calls before/after executing a
// financial action. It validates the input, runs compliance, persists the
// transaction, detects anomalies, scores trust, and conditionally opens an
// approval task — all as one sequence serialized by the Context's lock.
//
// Step failures are deterministic: a non-compliant verdict is returned, not
// raised. Only malformed input or a store/chain invariant violation returns
// an error.
func (c *Context) Verify(ctx context.Context, tier tiers.TierID, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, Cancelled{}
	}
	if err := c.validateInput(in); err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkApprovalGate(tier); err != nil {
		return Result{}, err
	}

	now := time.Now()

	// Step 2: append verify_start, capturing inputs.
	startAction := &store.Action{
		ActionID:      uuid.NewString(),
		ProjectID:     c.projectID,
		AgentID:       in.AgentID,
		Type:          store.ActionTypeVerifyStart,
		Description:   "verify invoked",
		Timestamp:     now,
		CorrelationID: in.CorrelationID,
		Metadata: map[string]interface{}{
			"txHash": in.TxHash,
			"chain":  in.Chain,
			"amount": in.Amount,
			"token":  in.Token,
			"from":   in.From,
			"to":     in.To,
		},
	}
	if err := c.store.AddAction(startAction); err != nil {
		return Result{}, fmt.Errorf("verify: append verify_start: %w", err)
	}

	// Step 3: run the Compliance Engine.
	intent := compliance.TransactionIntent{
		TxHash:  in.TxHash,
		Chain:   in.Chain,
		Amount:  in.Amount,
		Token:   in.Token,
		From:    in.From,
		To:      in.To,
		AgentID: in.AgentID,
	}
	verdict, err := c.engine.Evaluate(intent, tier)
	if err != nil {
		return Result{}, fmt.Errorf("verify: compliance evaluation: %w", err)
	}

	// Step 4: append compliance_check.
	complianceAction := &store.Action{
		ActionID:      uuid.NewString(),
		ProjectID:     c.projectID,
		AgentID:       in.AgentID,
		Type:          store.ActionTypeComplianceCheck,
		Description:   "compliance verdict computed",
		Timestamp:     time.Now(),
		CorrelationID: in.CorrelationID,
		Metadata: map[string]interface{}{
			"compliant":       verdict.Compliant,
			"riskLevel":       string(verdict.RiskLevel),
			"checks":          checksToMetadata(verdict.Checks),
			"recommendations": verdict.Recommendations,
			"sdnVersion":      verdict.SDNVersion,
		},
	}
	if err := c.store.AddAction(complianceAction); err != nil {
		return Result{}, fmt.Errorf("verify: append compliance_check: %w", err)
	}

	// Step 5: append the transaction action.
	txAction := &store.Transaction{
		Action: store.Action{
			ActionID:      uuid.NewString(),
			ProjectID:     c.projectID,
			AgentID:       in.AgentID,
			Type:          store.ActionTypeTransaction,
			Description:   "transaction submitted",
			Timestamp:     time.Now(),
			CorrelationID: in.CorrelationID,
		},
		TxHash: in.TxHash,
		Chain:  in.Chain,
		Amount: in.Amount,
		Token:  in.Token,
		From:   in.From,
		To:     in.To,
	}
	if err := c.store.AddTransaction(txAction); err != nil {
		return Result{}, fmt.Errorf("verify: append transaction: %w", err)
	}

	// Step 6: feed the Anomaly Detector, appending one anomaly_detected
	// action per emitted event.
	var anomalies []*store.AnomalyEvent
	findings, err := c.detector.Evaluate(ctx, c.store, txAction, "")
	if err != nil {
		return Result{}, fmt.Errorf("verify: anomaly detection: %w", err)
	}
	for _, ev := range findings {
		anomalyAction := &store.Action{
			ActionID:      uuid.NewString(),
			ProjectID:     c.projectID,
			AgentID:       in.AgentID,
			Type:          store.ActionTypeAnomalyDetected,
			Description:   fmt.Sprintf("anomaly detected: %s", ev.Type),
			Timestamp:     time.Now(),
			CorrelationID: in.CorrelationID,
			Metadata: map[string]interface{}{
				"type":     ev.Type,
				"severity": string(ev.Severity),
			},
		}
		if err := c.store.AddAction(anomalyAction); err != nil {
			return Result{}, fmt.Errorf("verify: append anomaly_detected: %w", err)
		}
		ev.ActionID = anomalyAction.ActionID
		if err := c.store.AddAnomaly(ev); err != nil {
			return Result{}, fmt.Errorf("verify: persist anomaly event: %w", err)
		}
		anomalies = append(anomalies, ev)
		c.logger.Warn("anomaly detected",
			"agentId", in.AgentID, "type", ev.Type, "severity", string(ev.Severity))
	}

	// Step 7: compute the post-event trust score, append trust_snapshot.
	score := c.scorer.Score(c.store, in.AgentID)
	snapshotAction := &store.Action{
		ActionID:      uuid.NewString(),
		ProjectID:     c.projectID,
		AgentID:       in.AgentID,
		Type:          store.ActionTypeTrustSnapshot,
		Description:   "trust score recomputed",
		Timestamp:     time.Now(),
		CorrelationID: in.CorrelationID,
		Metadata: map[string]interface{}{
			"total": score.Total,
			"level": string(score.Level),
		},
	}
	if err := c.store.AddAction(snapshotAction); err != nil {
		return Result{}, fmt.Errorf("verify: append trust_snapshot: %w", err)
	}

	// Step 8: conditionally open an approval Task.
	var task *store.Task
	if c.approvalThreshold != nil {
		threshold, err := finance.ParseAmount(*c.approvalThreshold)
		if err != nil {
			return Result{}, fmt.Errorf("verify: malformed approval threshold: %w", err)
		}
		amount, err := finance.ParseAmount(in.Amount)
		if err == nil && amount.GreaterThan(threshold) {
			t := &store.Task{
				ID:               uuid.NewString(),
				Description:      "approval required: amount exceeds configured threshold",
				AgentID:          in.AgentID,
				RequiredEvidence: []string{"txHash"},
				CorrelationID:    in.CorrelationID,
				Metadata: map[string]interface{}{
					"referencedActions": []string{
						startAction.ActionID,
						complianceAction.ActionID,
						txAction.ActionID,
						snapshotAction.ActionID,
					},
				},
			}
			if err := c.store.AddTask(t); err != nil {
				return Result{}, fmt.Errorf("verify: create approval task: %w", err)
			}
			task = t
			c.logger.Info("approval task opened", "agentId", in.AgentID, "taskId", t.ID)
		}
	}

	chainVerify := c.chain.Verify()

	return Result{
		Compliant:       verdict.Compliant,
		RiskLevel:       verdict.RiskLevel,
		Checks:          verdict.Checks,
		Recommendations: verdict.Recommendations,
		Anomalies:       anomalies,
		TrustScore:      score.Total,
		Task:            task,
		DigestProof: DigestProof{
			TerminalDigest: c.chain.TerminalDigest(),
			ChainLength:    uint64(c.chain.Len()),
			Valid:          chainVerify.Valid,
		},
	}, nil
}

func checksToMetadata(checks []compliance.Check) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(checks))
	for _, c := range checks {
		out = append(out, map[string]interface{}{
			"name":        c.Name,
			"description": c.Description,
			"passed":      c.Passed,
			"severity":    string(c.Severity),
		})
	}
	return out
}

// validateInput rejects malformed input before anything is appended. Field
// checks give callers a precise, per-field error message; the compiled
// transaction-intent JSON Schema is then run over the same payload as the
// authoritative structural check (compliance.NewIntentSchema).
func (c *Context) validateInput(in Input) error {
	if in.AgentID == "" {
		return &ValidationError{Field: "agentId", Reason: "must not be empty"}
	}
	if in.Chain == "" {
		return &ValidationError{Field: "chain", Reason: "must not be empty"}
	}
	if in.Amount == "" {
		return &ValidationError{Field: "amount", Reason: "must not be empty"}
	}
	if in.Token == "" {
		return &ValidationError{Field: "token", Reason: "must not be empty"}
	}
	if in.From == "" {
		return &ValidationError{Field: "from", Reason: "must not be empty"}
	}
	if in.To == "" {
		return &ValidationError{Field: "to", Reason: "must not be empty"}
	}

	payload := map[string]interface{}{
		"txHash":  in.TxHash,
		"chain":   in.Chain,
		"amount":  in.Amount,
		"token":   in.Token,
		"from":    in.From,
		"to":      in.To,
		"agentId": in.AgentID,
	}
	if err := c.intentSchema.Validate(payload); err != nil {
		return &ValidationError{Field: "input", Reason: err.Error()}
	}
	return nil
}
