package verify

import "github.com/kontext-run/kontext-core/pkg/tiers"

// checkApprovalGate enforces the approval-threshold feature's plan gate:
// only tiers with FeatureApprovalThreshold may have an approval threshold
// configured at all, mirroring check 1's extended-chain gate in the
// Compliance Engine.
func (c *Context) checkApprovalGate(tier tiers.TierID) error {
	if c.approvalThreshold == nil {
		return nil
	}
	return c.gate(tier, tiers.FeatureApprovalThreshold)
}
