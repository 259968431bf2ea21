package tiers_test

import (
	"testing"

	"github.com/kontext-run/kontext-core/pkg/tiers"
	"github.com/stretchr/testify/assert"
)

func TestTiers_Get(t *testing.T) {
	tests := []struct {
		id       tiers.TierID
		expected string
	}{
		{tiers.TierFree, "Free"},
		{tiers.TierPro, "Pro"},
		{tiers.TierEnterprise, "Enterprise"},
	}

	for _, tt := range tests {
		tier := tiers.Get(tt.id)
		assert.NotNil(t, tier)
		assert.Equal(t, tt.expected, tier.Name)
	}
}

func TestTiers_GetUnknown(t *testing.T) {
	tier := tiers.Get("unknown-tier")
	assert.Nil(t, tier)
}

func TestTiers_HasFeature(t *testing.T) {
	assert.False(t, tiers.Free.HasFeature(tiers.FeatureExtendedChainSupport))
	assert.True(t, tiers.Pro.HasFeature(tiers.FeatureExtendedChainSupport))
	assert.True(t, tiers.Pro.HasFeature(tiers.FeatureApprovalThreshold))
	assert.True(t, tiers.Enterprise.HasFeature(tiers.FeatureExtendedChainSupport))
	assert.True(t, tiers.Enterprise.HasFeature("any_feature")) // "all" matches anything
}

func TestTiers_AllTiers(t *testing.T) {
	assert.Len(t, tiers.AllTiers, 3)
	assert.Contains(t, tiers.AllTiers, tiers.TierFree)
	assert.Contains(t, tiers.AllTiers, tiers.TierPro)
	assert.Contains(t, tiers.AllTiers, tiers.TierEnterprise)
}

func TestDefaultGate_FreeDenied(t *testing.T) {
	gate := tiers.DefaultGate()
	err := gate(tiers.TierFree, tiers.FeatureExtendedChainSupport)
	if err == nil {
		t.Fatal("expected PlanRequired for free tier")
	}
	if _, ok := err.(*tiers.PlanRequired); !ok {
		t.Fatalf("expected *tiers.PlanRequired, got %T", err)
	}
}

func TestDefaultGate_ProAllowed(t *testing.T) {
	gate := tiers.DefaultGate()
	if err := gate(tiers.TierPro, tiers.FeatureExtendedChainSupport); err != nil {
		t.Fatalf("expected pro tier to be allowed, got %v", err)
	}
}

func TestDefaultGate_UnknownTierDenied(t *testing.T) {
	gate := tiers.DefaultGate()
	err := gate(tiers.TierID("bogus"), tiers.FeatureApprovalThreshold)
	if err == nil {
		t.Fatal("expected PlanRequired for unknown tier")
	}
}
