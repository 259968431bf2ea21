package trust

import (
	"time"

	"github.com/kontext-run/kontext-core/pkg/store"
)

// Thresholds configures the Anomaly Detector's six rules. Values mirror the
// spec's stated defaults but are operator-configurable per SPEC_FULL's
// ambient config section.
type Thresholds struct {
	MaxAmount          float64
	MaxFrequency        int
	FrequencyWindow     time.Duration
	OffHoursStart       int // UTC hour, inclusive
	OffHoursEnd         int // UTC hour, exclusive
	MinIntervalSeconds  int
}

// DefaultThresholds reproduces the spec's literal rule defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxAmount:          10000,
		MaxFrequency:       30,
		FrequencyWindow:    60 * time.Minute,
		OffHoursStart:      22,
		OffHoursEnd:        5,
		MinIntervalSeconds: 10,
	}
}

// evalContext is the per-evaluation state a rule needs: the incoming
// transaction plus whatever prior history the rule requires.
type evalContext struct {
	tx             *store.Transaction
	amount         float64
	priorCount     int // prior transactions by this agent, excluding this one
	historicalMean float64
	priorDests     map[string]bool
	frequencyCount int // count returned by the FrequencyWindow, inclusive of this tx
	gapToPrevious  time.Duration
	hasPrevious    bool
}

// rule is a single stateless anomaly check. Rules run in the fixed
// enumeration order below; all applicable ones fire independently.
type rule func(cfg Thresholds, ec evalContext) *finding

type finding struct {
	Type        string
	Severity    store.AnomalySeverity
	Description string
	Data        map[string]interface{}
}

// rules is evaluated in this exact order; the spec requires enumeration
// order, not severity order.
var rules = []rule{
	ruleUnusualAmount,
	ruleFrequencySpike,
	ruleNewDestination,
	ruleOffHoursActivity,
	ruleRapidSuccession,
	ruleRoundAmount,
}

func ruleUnusualAmount(cfg Thresholds, ec evalContext) *finding {
	overMax := ec.amount > cfg.MaxAmount
	var overMean bool
	var ratio float64
	if ec.priorCount >= 3 && ec.historicalMean > 0 {
		ratio = ec.amount / ec.historicalMean
		overMean = ratio > 5
	}
	if !overMax && !overMean {
		return nil
	}

	severity := store.SeverityLow
	basis := ec.amount / cfg.MaxAmount
	if overMean {
		basis = ratio
	}
	switch {
	case basis > 10:
		severity = store.SeverityCritical
	case basis > 5:
		severity = store.SeverityHigh
	case basis > 2:
		severity = store.SeverityMedium
	}

	return &finding{
		Type:        "unusualAmount",
		Severity:    severity,
		Description: "transaction amount is unusually large for this agent",
		Data: map[string]interface{}{
			"amount":         ec.amount,
			"maxAmount":      cfg.MaxAmount,
			"historicalMean": ec.historicalMean,
		},
	}
}

func ruleFrequencySpike(cfg Thresholds, ec evalContext) *finding {
	if cfg.MaxFrequency <= 0 || ec.frequencyCount <= cfg.MaxFrequency {
		return nil
	}
	ratio := float64(ec.frequencyCount) / float64(cfg.MaxFrequency)
	severity := store.SeverityMedium
	switch {
	case ratio > 3:
		severity = store.SeverityCritical
	case ratio > 2:
		severity = store.SeverityHigh
	}
	return &finding{
		Type:        "frequencySpike",
		Severity:    severity,
		Description: "agent exceeded the maximum transaction frequency",
		Data: map[string]interface{}{
			"count":        ec.frequencyCount,
			"maxFrequency": cfg.MaxFrequency,
		},
	}
}

func ruleNewDestination(cfg Thresholds, ec evalContext) *finding {
	if ec.priorCount < 3 {
		return nil
	}
	if ec.priorDests[ec.tx.To] {
		return nil
	}
	severity := store.SeverityLow
	if ec.amount > cfg.MaxAmount*0.5 {
		severity = store.SeverityHigh
	}
	return &finding{
		Type:        "newDestination",
		Severity:    severity,
		Description: "destination address has not been used before by this agent",
		Data: map[string]interface{}{
			"to": ec.tx.To,
		},
	}
}

func ruleOffHoursActivity(cfg Thresholds, ec evalContext) *finding {
	hour := ec.tx.Timestamp.UTC().Hour()
	var inOffHours bool
	if cfg.OffHoursStart > cfg.OffHoursEnd {
		inOffHours = hour >= cfg.OffHoursStart || hour < cfg.OffHoursEnd
	} else {
		inOffHours = hour >= cfg.OffHoursStart && hour < cfg.OffHoursEnd
	}
	if !inOffHours {
		return nil
	}
	return &finding{
		Type:        "offHoursActivity",
		Severity:    store.SeverityLow,
		Description: "transaction occurred during configured off-hours",
		Data: map[string]interface{}{
			"hourUTC": hour,
		},
	}
}

func ruleRapidSuccession(cfg Thresholds, ec evalContext) *finding {
	if !ec.hasPrevious {
		return nil
	}
	minInterval := time.Duration(cfg.MinIntervalSeconds) * time.Second
	if minInterval <= 0 || ec.gapToPrevious >= minInterval {
		return nil
	}
	severity := store.SeverityMedium
	if ec.gapToPrevious < 2*time.Second {
		severity = store.SeverityHigh
	}
	return &finding{
		Type:        "rapidSuccession",
		Severity:    severity,
		Description: "transaction followed the agent's previous one too closely",
		Data: map[string]interface{}{
			"gapSeconds": ec.gapToPrevious.Seconds(),
		},
	}
}

var roundAmountBuckets = []float64{1000, 3000, 5000, 10000}

func ruleRoundAmount(cfg Thresholds, ec evalContext) *finding {
	for _, bucket := range roundAmountBuckets {
		lower := bucket * 0.95
		if ec.amount >= lower && ec.amount <= bucket {
			severity := store.SeverityMedium
			if bucket >= 10000 {
				severity = store.SeverityHigh
			}
			return &finding{
				Type:        "roundAmount",
				Severity:    severity,
				Description: "amount sits just below a common reporting threshold",
				Data: map[string]interface{}{
					"amount": ec.amount,
					"bucket": bucket,
				},
			}
		}
	}
	if ec.amount >= 5000 && isWholeThousand(ec.amount) {
		return &finding{
			Type:        "roundAmount",
			Severity:    store.SeverityLow,
			Description: "amount is an exact round multiple of 1,000",
			Data: map[string]interface{}{
				"amount": ec.amount,
			},
		}
	}
	return nil
}

func isWholeThousand(amount float64) bool {
	const unit = 1000
	mod := amount - unit*float64(int64(amount/unit))
	return mod == 0
}
