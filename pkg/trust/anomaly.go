package trust

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kontext-run/kontext-core/pkg/finance"
	"github.com/kontext-run/kontext-core/pkg/store"
)

// ErrEmptyRuleSet is returned by NewDetectorWithRules when asked to run zero rules,
// per the spec's AnomalyConfigError.
type ErrEmptyRuleSet struct{}

func (ErrEmptyRuleSet) Error() string {
	return "trust: anomaly detector requires at least one enabled rule"
}

// Detector evaluates the six fixed anomaly rules against each new
// transaction, reading prior history from the Action Store and using a
// FrequencyWindow for the frequencySpike rule.
type Detector struct {
	thresholds Thresholds
	window     FrequencyWindow
	enabled    map[string]bool
}

// NewDetector constructs a Detector with all six rules enabled.
func NewDetector(thresholds Thresholds, window FrequencyWindow) *Detector {
	return &Detector{thresholds: thresholds, window: window, enabled: nil}
}

// NewDetectorWithRules constructs a Detector restricted to the named rules
// (by Finding.Type). An empty set is rejected.
func NewDetectorWithRules(thresholds Thresholds, window FrequencyWindow, ruleNames []string) (*Detector, error) {
	if len(ruleNames) == 0 {
		return nil, ErrEmptyRuleSet{}
	}
	enabled := make(map[string]bool, len(ruleNames))
	for _, name := range ruleNames {
		enabled[name] = true
	}
	return &Detector{thresholds: thresholds, window: window, enabled: enabled}, nil
}

// Evaluate runs the enabled rules against tx, which must already be
// persisted in st (the orchestrator appends the transaction action before
// feeding it here). Returns zero or more AnomalyEvents in rule-enumeration
// order; each is stamped with a fresh EventID and actionID pointing at the
// action the orchestrator appends for it.
func (d *Detector) Evaluate(ctx context.Context, st *store.ActionStore, tx *store.Transaction, anomalyActionID string) ([]*store.AnomalyEvent, error) {
	ec, err := d.buildContext(ctx, tx, st)
	if err != nil {
		return nil, fmt.Errorf("trust: build anomaly context: %w", err)
	}

	var events []*store.AnomalyEvent
	for _, r := range rules {
		f := r(d.thresholds, ec)
		if f == nil {
			continue
		}
		if d.enabled != nil && !d.enabled[f.Type] {
			continue
		}
		events = append(events, &store.AnomalyEvent{
			EventID:     uuid.NewString(),
			Type:        f.Type,
			Severity:    f.Severity,
			AgentID:     tx.AgentID,
			ActionID:    anomalyActionID,
			Description: f.Description,
			Data:        f.Data,
			DetectedAt:  tx.Timestamp,
		})
	}
	return events, nil
}

func (d *Detector) buildContext(ctx context.Context, tx *store.Transaction, st *store.ActionStore) (evalContext, error) {
	all := st.QueryTransactionsByAgent(tx.AgentID)

	prior := make([]*store.Transaction, 0, len(all))
	for _, t := range all {
		if t.ActionID == tx.ActionID {
			continue
		}
		prior = append(prior, t)
	}
	sort.Slice(prior, func(i, j int) bool { return prior[i].Timestamp.Before(prior[j].Timestamp) })

	amount, err := finance.ParseAmount(tx.Amount)
	if err != nil {
		return evalContext{}, err
	}
	amountF, _ := amount.Float64()

	var sum float64
	dests := make(map[string]bool, len(prior))
	for _, t := range prior {
		a, err := finance.ParseAmount(t.Amount)
		if err != nil {
			continue
		}
		f, _ := a.Float64()
		sum += f
		dests[t.To] = true
	}
	var mean float64
	if len(prior) > 0 {
		mean = sum / float64(len(prior))
	}

	var gap time.Duration
	hasPrevious := len(prior) > 0
	if hasPrevious {
		gap = tx.Timestamp.Sub(prior[len(prior)-1].Timestamp)
	}

	count := 1
	if d.window != nil {
		c, err := d.window.Record(ctx, tx.AgentID, tx.Timestamp, d.thresholds.FrequencyWindow)
		if err != nil {
			return evalContext{}, fmt.Errorf("frequency window: %w", err)
		}
		count = c
	}

	return evalContext{
		tx:             tx,
		amount:         amountF,
		priorCount:     len(prior),
		historicalMean: mean,
		priorDests:     dests,
		frequencyCount: count,
		gapToPrevious:  gap,
		hasPrevious:    hasPrevious,
	}, nil
}
