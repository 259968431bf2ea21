// Package tiers defines the plan-tier model kontext-core calls through for
// its two gated features: the extended chain-support set in the
// chain_support compliance check, and the approval-threshold workflow in
// the Verify Orchestrator. Tier business rules beyond these two features
// and the three default tiers are an external cross-cutting concern this
// package does not own.
package tiers

import "fmt"

// TierID identifies a product tier.
type TierID string

const (
	TierFree       TierID = "free"
	TierPro        TierID = "pro"
	TierEnterprise TierID = "enterprise"
)

// Tier represents a product tier and the features it unlocks.
type Tier struct {
	ID          TierID
	Name        string
	Description string
	Features    []string
}

// Feature names the core gates on.
const (
	FeatureExtendedChainSupport = "extended_chain_support"
	FeatureApprovalThreshold    = "approval_threshold"
)

var (
	Free = Tier{
		ID:          TierFree,
		Name:        "Free",
		Description: "Base chain support only, no configurable approval workflow",
		Features:    []string{},
	}

	Pro = Tier{
		ID:          TierPro,
		Name:        "Pro",
		Description: "Extended chain support and configurable approval thresholds",
		Features:    []string{FeatureExtendedChainSupport, FeatureApprovalThreshold},
	}

	Enterprise = Tier{
		ID:          TierEnterprise,
		Name:        "Enterprise",
		Description: "All gated features",
		Features:    []string{"all"},
	}

	// AllTiers contains all available tiers.
	AllTiers = map[TierID]Tier{
		TierFree:       Free,
		TierPro:        Pro,
		TierEnterprise: Enterprise,
	}
)

// Get returns a tier by ID, or nil if not found.
func Get(id TierID) *Tier {
	tier, ok := AllTiers[id]
	if !ok {
		return nil
	}
	return &tier
}

// HasFeature reports whether a tier unlocks the named feature.
func (t *Tier) HasFeature(feature string) bool {
	for _, f := range t.Features {
		if f == feature || f == "all" {
			return true
		}
	}
	return false
}

// PlanRequired reports that a feature is gated behind a tier the caller's
// plan does not have.
type PlanRequired struct {
	Feature      string
	CurrentTier  TierID
	RequiredTier TierID
}

func (e *PlanRequired) Error() string {
	return fmt.Sprintf("tiers: feature %q requires tier %q, caller is on %q", e.Feature, e.RequiredTier, e.CurrentTier)
}

// Gate is the predicate the core calls through for gated features, per
// SPEC_FULL.md's domain-stack addition: the core owns neither tier
// definitions' business rules nor the plan lookup, only the call-through
// and the resulting PlanRequired error.
type Gate func(tier TierID, feature string) error

// DefaultGate builds a Gate from the three default tiers: free has neither
// gated feature, pro and enterprise have both.
func DefaultGate() Gate {
	return func(tier TierID, feature string) error {
		t := Get(tier)
		if t == nil {
			return &PlanRequired{Feature: feature, CurrentTier: tier, RequiredTier: TierPro}
		}
		if t.HasFeature(feature) {
			return nil
		}
		return &PlanRequired{Feature: feature, CurrentTier: tier, RequiredTier: TierPro}
	}
}
