package trust

import (
	"math"

	"github.com/kontext-run/kontext-core/pkg/finance"
	"github.com/kontext-run/kontext-core/pkg/store"
)

// Level is the mapped trust level for a score in [0, 100].
type Level string

const (
	LevelUntrusted Level = "untrusted"
	LevelLow       Level = "low"
	LevelMedium    Level = "medium"
	LevelHigh      Level = "high"
	LevelVerified  Level = "verified"
)

// Weights are the five factor weights. They default to the spec's stated
// values but are configurable per SPEC_FULL §9's resolved Open Question.
type Weights struct {
	HistoryDepth           float64
	TaskCompletionRate     float64
	AnomalyFrequency       float64
	TransactionConsistency float64
	ComplianceAdherence    float64
}

// DefaultWeights reproduces the spec's literal factor weights.
func DefaultWeights() Weights {
	return Weights{
		HistoryDepth:           0.15,
		TaskCompletionRate:     0.25,
		AnomalyFrequency:       0.25,
		TransactionConsistency: 0.20,
		ComplianceAdherence:    0.15,
	}
}

// FactorBreakdown carries each factor's sub-score so downstream
// explanations are deterministic.
type FactorBreakdown struct {
	HistoryDepth           float64 `json:"historyDepth"`
	TaskCompletionRate     float64 `json:"taskCompletionRate"`
	AnomalyFrequency       float64 `json:"anomalyFrequency"`
	TransactionConsistency float64 `json:"transactionConsistency"`
	ComplianceAdherence    float64 `json:"complianceAdherence"`
}

// Score is the Trust Scorer's output for one agent.
type Score struct {
	AgentID string          `json:"agentId"`
	Total   int             `json:"total"`
	Level   Level           `json:"level"`
	Factors FactorBreakdown `json:"factors"`
}

// Scorer computes per-agent trust scores reading exclusively from the
// Action Store, per spec §4.4.
type Scorer struct {
	weights Weights
}

// NewScorer constructs a Scorer with the given weights.
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Score computes the weighted trust score for agentID.
func (s *Scorer) Score(st *store.ActionStore, agentID string) Score {
	actions := st.QueryActionsByAgent(agentID)
	transactions := st.QueryTransactionsByAgent(agentID)
	anomalies := st.QueryAnomaliesByAgent(agentID)
	tasks := tasksForAgent(st, agentID)

	factors := FactorBreakdown{
		HistoryDepth:           historyDepthFactor(len(actions)),
		TaskCompletionRate:     taskCompletionRateFactor(tasks),
		AnomalyFrequency:       anomalyFrequencyFactor(anomalies, len(actions)),
		TransactionConsistency: transactionConsistencyFactor(transactions),
		ComplianceAdherence:    complianceAdherenceFactor(actions),
	}

	weighted := factors.HistoryDepth*s.weights.HistoryDepth +
		factors.TaskCompletionRate*s.weights.TaskCompletionRate +
		factors.AnomalyFrequency*s.weights.AnomalyFrequency +
		factors.TransactionConsistency*s.weights.TransactionConsistency +
		factors.ComplianceAdherence*s.weights.ComplianceAdherence

	total := int(math.Round(weighted))
	return Score{
		AgentID: agentID,
		Total:   total,
		Level:   levelFor(total),
		Factors: factors,
	}
}

func levelFor(total int) Level {
	switch {
	case total >= 80:
		return LevelVerified
	case total >= 60:
		return LevelHigh
	case total >= 40:
		return LevelMedium
	case total >= 20:
		return LevelLow
	default:
		return LevelUntrusted
	}
}

// historyDepthFactor saturates at >= 50 actions: min(100, actions * 2).
func historyDepthFactor(actionCount int) float64 {
	v := float64(actionCount) * 2
	if v > 100 {
		return 100
	}
	return v
}

func tasksForAgent(st *store.ActionStore, agentID string) []*store.Task {
	var out []*store.Task
	for _, status := range []store.TaskStatus{store.TaskStatusConfirmed, store.TaskStatusFailed, store.TaskStatusExpired} {
		for _, t := range st.QueryTasksByStatus(status) {
			if t.AgentID == agentID {
				out = append(out, t)
			}
		}
	}
	return out
}

// taskCompletionRateFactor = 100 * confirmed / (confirmed+failed+expired);
// 50 if no tasks.
func taskCompletionRateFactor(tasks []*store.Task) float64 {
	var confirmed, failed, expired int
	for _, t := range tasks {
		switch t.Status {
		case store.TaskStatusConfirmed:
			confirmed++
		case store.TaskStatusFailed:
			failed++
		case store.TaskStatusExpired:
			expired++
		}
	}
	total := confirmed + failed + expired
	if total == 0 {
		return 50
	}
	return 100 * float64(confirmed) / float64(total)
}

var anomalySeverityWeight = map[store.AnomalySeverity]float64{
	store.SeverityLow:      1,
	store.SeverityMedium:   3,
	store.SeverityHigh:     7,
	store.SeverityCritical: 15,
}

// anomalyFrequencyFactor = 100 - (severity-weighted anomalies / actions) *
// 100, floored at 0.
func anomalyFrequencyFactor(anomalies []*store.AnomalyEvent, actionCount int) float64 {
	if actionCount == 0 {
		return 100
	}
	var weighted float64
	for _, a := range anomalies {
		weighted += anomalySeverityWeight[a.Severity]
	}
	v := 100 - (weighted/float64(actionCount))*100
	if v < 0 {
		return 0
	}
	return v
}

// transactionConsistencyFactor is the inverse of the coefficient of
// variation of transaction amounts; 50 if fewer than 3 transactions.
func transactionConsistencyFactor(transactions []*store.Transaction) float64 {
	if len(transactions) < 3 {
		return 50
	}

	amounts := make([]float64, 0, len(transactions))
	var sum float64
	for _, tx := range transactions {
		d, err := finance.ParseAmount(tx.Amount)
		if err != nil {
			continue
		}
		f, _ := d.Float64()
		amounts = append(amounts, f)
		sum += f
	}
	if len(amounts) < 3 {
		return 50
	}

	mean := sum / float64(len(amounts))
	if mean == 0 {
		return 50
	}

	var variance float64
	for _, a := range amounts {
		diff := a - mean
		variance += diff * diff
	}
	variance /= float64(len(amounts))
	stddev := math.Sqrt(variance)
	cv := stddev / mean

	v := 100 / (1 + cv)
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

// complianceAdherenceFactor = 100 * passed-compliance-checks /
// total-compliance-checks; 100 if none. Reads compliance_check actions'
// metadata, where the orchestrator records each check's pass/fail outcome.
func complianceAdherenceFactor(actions []*store.Action) float64 {
	var passed, total int
	for _, a := range actions {
		if a.Type != store.ActionTypeComplianceCheck {
			continue
		}
		checks, ok := a.Metadata["checks"].([]interface{})
		if !ok {
			continue
		}
		for _, raw := range checks {
			m, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			total++
			if p, ok := m["passed"].(bool); ok && p {
				passed++
			}
		}
	}
	if total == 0 {
		return 100
	}
	return 100 * float64(passed) / float64(total)
}
