package compliance

import (
	"fmt"

	"github.com/kontext-run/kontext-core/pkg/finance"
	"github.com/kontext-run/kontext-core/pkg/tiers"
)

// Engine produces a structured compliance verdict for a transaction intent.
// It is pure and stateless: the same inputs always yield the identical
// output, modulo the embedded SDN snapshot and threshold configuration it
// was constructed with.
type Engine struct {
	thresholds *ThresholdEvaluator
	nameScreen *NameScreen
	gate       tiers.Gate
}

// NewEngine constructs an Engine with the given threshold set and an
// optional name-screen watchlist (may be nil to disable name screening).
func NewEngine(thresholds ThresholdSet, watchlist []string, gate tiers.Gate) (*Engine, error) {
	te, err := NewThresholdEvaluator(thresholds)
	if err != nil {
		return nil, err
	}
	var ns *NameScreen
	if len(watchlist) > 0 {
		ns = NewNameScreen(watchlist)
	}
	if gate == nil {
		gate = tiers.DefaultGate()
	}
	return &Engine{thresholds: te, nameScreen: ns, gate: gate}, nil
}

// Evaluate runs all 7 checks, in fixed order, none short-circuiting, and
// composes the verdict per spec §4.3.
func (e *Engine) Evaluate(intent TransactionIntent, tier tiers.TierID) (Verdict, error) {
	checks := make([]Check, 0, 9)

	checks = append(checks, e.checkChainSupport(intent.Chain, tier))
	checks = append(checks, checkTokenType(intent.Token))

	senderOK := ValidAddress(intent.From)
	checks = append(checks, Check{
		Name:        "address_format_sender",
		Passed:      senderOK,
		Description: addressFormatDescription("sender", senderOK),
		Severity:    SeverityHigh,
	})
	recipientOK := ValidAddress(intent.To)
	checks = append(checks, Check{
		Name:        "address_format_recipient",
		Passed:      recipientOK,
		Description: addressFormatDescription("recipient", recipientOK),
		Severity:    SeverityHigh,
	})

	amount, amountErr := finance.ParseAmount(intent.Amount)
	amountValid := amountErr == nil
	checks = append(checks, Check{
		Name:        "amount_valid",
		Passed:      amountValid,
		Description: amountDescription(amountValid, amountErr),
		Severity:    SeverityHigh,
	})

	senderMatch, senderHit := ScreenAddress(intent.From)
	checks = append(checks, Check{
		Name:        "sanctions_sender",
		Passed:      !senderHit,
		Description: sanctionsDescription("sender", senderHit, senderMatch),
		Severity:    SeverityHigh,
	})
	recipientMatch, recipientHit := ScreenAddress(intent.To)
	checks = append(checks, Check{
		Name:        "sanctions_recipient",
		Passed:      !recipientHit,
		Description: sanctionsDescription("recipient", recipientHit, recipientMatch),
		Severity:    SeverityHigh,
	})

	var eddCheck, reportingCheck Check
	if amountValid {
		eddTriggered, err := e.thresholds.TriggersEDD(amount)
		if err != nil {
			return Verdict{}, fmt.Errorf("compliance: %w", err)
		}
		eddCheck = Check{
			Name:        "enhanced_due_diligence",
			Passed:      !eddTriggered,
			Description: eddDescription(eddTriggered),
			Severity:    SeverityMedium,
		}

		reportingTriggered, err := e.thresholds.TriggersReporting(amount)
		if err != nil {
			return Verdict{}, fmt.Errorf("compliance: %w", err)
		}
		highTriggered, err := e.thresholds.TriggersHighSeverity(amount)
		if err != nil {
			return Verdict{}, fmt.Errorf("compliance: %w", err)
		}
		severity := SeverityMedium
		if highTriggered {
			severity = SeverityHigh
		}
		reportingCheck = Check{
			Name:        "reporting_threshold",
			Passed:      !reportingTriggered,
			Description: reportingDescription(reportingTriggered, highTriggered),
			Severity:    severity,
		}
	} else {
		eddCheck = Check{Name: "enhanced_due_diligence", Passed: true, Description: "skipped: amount invalid", Severity: SeverityMedium}
		reportingCheck = Check{Name: "reporting_threshold", Passed: true, Description: "skipped: amount invalid", Severity: SeverityMedium}
	}
	checks = append(checks, eddCheck, reportingCheck)

	verdict := composeVerdict(checks)
	verdict.SDNVersion = SDNSnapshotVersion.String()
	return verdict, nil
}

func (e *Engine) checkChainSupport(chainName string, tier tiers.TierID) Check {
	if SupportedChains[chainName] {
		return Check{Name: "chain_support", Passed: true, Description: fmt.Sprintf("%s is a supported chain", chainName), Severity: SeverityHigh}
	}
	if ExtendedChains[chainName] {
		if err := e.gate(tier, tiers.FeatureExtendedChainSupport); err != nil {
			return Check{Name: "chain_support", Passed: false, Description: fmt.Sprintf("%s requires a plan upgrade: %v", chainName, err), Severity: SeverityHigh}
		}
		return Check{Name: "chain_support", Passed: true, Description: fmt.Sprintf("%s is a supported extended chain", chainName), Severity: SeverityHigh}
	}
	return Check{Name: "chain_support", Passed: false, Description: fmt.Sprintf("%s is not a supported chain", chainName), Severity: SeverityHigh}
}

func checkTokenType(token string) Check {
	passed := SupportedTokens[token]
	desc := fmt.Sprintf("%s is a supported stablecoin", token)
	if !passed {
		desc = fmt.Sprintf("%s is not a supported stablecoin", token)
	}
	return Check{Name: "token_type", Passed: passed, Description: desc, Severity: SeverityHigh}
}

func addressFormatDescription(role string, ok bool) string {
	if ok {
		return fmt.Sprintf("%s address is well-formed", role)
	}
	return fmt.Sprintf("%s address is malformed", role)
}

func amountDescription(ok bool, err error) string {
	if ok {
		return "amount is a valid positive decimal"
	}
	return fmt.Sprintf("amount is invalid: %v", err)
}

func sanctionsDescription(role string, hit bool, match SanctionsMatch) string {
	if !hit {
		return fmt.Sprintf("%s address is not on any sanctions list", role)
	}
	return fmt.Sprintf("%s address %s matched %s", role, match.NormalizedAddress, match.ListName)
}

func eddDescription(triggered bool) string {
	if triggered {
		return fmt.Sprintf("amount meets the enhanced due diligence threshold ($%s)", DefaultEDDThreshold)
	}
	return "amount is below the enhanced due diligence threshold"
}

func reportingDescription(triggered, high bool) string {
	if !triggered {
		return "amount is below the currency transaction reporting threshold"
	}
	if high {
		return fmt.Sprintf("amount meets the high-severity reporting threshold ($%s)", DefaultHighSeverityThreshold)
	}
	return fmt.Sprintf("amount meets the currency transaction reporting threshold ($%s)", DefaultReportingThreshold)
}

// composeVerdict applies the composition rules: compliant iff every
// high-severity check passed and no sanctions check failed; riskLevel is
// critical on any sanctions failure, else high/medium/low by worst failed
// check severity.
func composeVerdict(checks []Check) Verdict {
	compliant := true
	anySanctionsFailed := false
	anyHighFailed := false
	anyMediumFailed := false
	var recommendations []string

	for _, c := range checks {
		if c.Passed {
			continue
		}
		if c.Name == "sanctions_sender" || c.Name == "sanctions_recipient" {
			anySanctionsFailed = true
			recommendations = append(recommendations, fmt.Sprintf("BLOCK: %s", c.Description))
			continue
		}
		if c.Severity == SeverityHigh {
			anyHighFailed = true
			compliant = false
		} else if c.Severity == SeverityMedium {
			anyMediumFailed = true
		}
		recommendations = append(recommendations, fmt.Sprintf("REVIEW: %s", c.Description))
	}

	if anySanctionsFailed {
		compliant = false
	}

	risk := RiskLow
	switch {
	case anySanctionsFailed:
		risk = RiskCritical
	case anyHighFailed:
		risk = RiskHigh
	case anyMediumFailed:
		risk = RiskMedium
	}

	return Verdict{
		Compliant:       compliant,
		RiskLevel:       risk,
		Checks:          checks,
		Recommendations: recommendations,
	}
}
