package export

import (
	"fmt"
	"time"

	"github.com/kontext-run/kontext-core/pkg/canonicalize"
	"github.com/kontext-run/kontext-core/pkg/chain"
	"github.com/kontext-run/kontext-core/pkg/store"
	"github.com/kontext-run/kontext-core/pkg/trust"
)

// CertificateSummary is the certificate's activity summary.
type CertificateSummary struct {
	Actions            int     `json:"actions"`
	Transactions       int     `json:"transactions"`
	CompliancePassRate float64 `json:"compliancePassRate"`
}

// CertificateDigestChain is the certificate's chain-commitment summary.
type CertificateDigestChain struct {
	TerminalDigest string `json:"terminalDigest"`
	ChainLength    uint64 `json:"chainLength"`
	Verified       bool   `json:"verified"`
}

// Certificate is a signed-by-content-hash summary of an agent's
// compliance posture over its chain history.
type Certificate struct {
	AgentID     string                 `json:"agentId"`
	GeneratedAt time.Time              `json:"generatedAt"`
	Summary     CertificateSummary     `json:"summary"`
	TrustScore  int                    `json:"trustScore"`
	DigestChain CertificateDigestChain `json:"digestChain"`
	ContentHash string                 `json:"contentHash"`
	Disclaimer  string                 `json:"disclaimer"`
}

const certificateDisclaimer = "This certificate summarizes on-chain compliance activity recorded by kontext. " +
	"It is not legal advice and does not constitute a regulatory filing."

// BuildCertificate computes a compliance certificate for agentID.
// contentHash is computed over the certificate body with contentHash
// itself omitted, so a verifier can recompute and compare it.
func BuildCertificate(s *store.ActionStore, c *chain.DigestChain, scorer *trust.Scorer, agentID string, generatedAt time.Time) (*Certificate, error) {
	actions := s.QueryActionsByAgent(agentID)
	transactions := s.QueryTransactionsByAgent(agentID)

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
	passRate := 1.0
	if total > 0 {
		passRate = float64(passed) / float64(total)
	}

	score := scorer.Score(s, agentID)
	verifyResult := c.Verify()

	cert := &Certificate{
		AgentID:     agentID,
		GeneratedAt: generatedAt,
		Summary: CertificateSummary{
			Actions:            len(actions),
			Transactions:       len(transactions),
			CompliancePassRate: passRate,
		},
		TrustScore: score.Total,
		DigestChain: CertificateDigestChain{
			TerminalDigest: c.TerminalDigest(),
			ChainLength:    uint64(c.Len()),
			Verified:       verifyResult.Valid,
		},
		Disclaimer: certificateDisclaimer,
	}

	hash, err := canonicalize.CanonicalHash(certificateWithoutHashOf(*cert))
	if err != nil {
		return nil, fmt.Errorf("export: hash certificate body: %w", err)
	}
	cert.ContentHash = hash
	return cert, nil
}

// certificateWithoutHash is hashed in place of Certificate itself so the
// contentHash field never hashes itself.
type certificateWithoutHash struct {
	AgentID     string                 `json:"agentId"`
	GeneratedAt time.Time              `json:"generatedAt"`
	Summary     CertificateSummary     `json:"summary"`
	TrustScore  int                    `json:"trustScore"`
	DigestChain CertificateDigestChain `json:"digestChain"`
	Disclaimer  string                 `json:"disclaimer"`
}

func certificateWithoutHashOf(c Certificate) certificateWithoutHash {
	return certificateWithoutHash{
		AgentID:     c.AgentID,
		GeneratedAt: c.GeneratedAt,
		Summary:     c.Summary,
		TrustScore:  c.TrustScore,
		DigestChain: c.DigestChain,
		Disclaimer:  c.Disclaimer,
	}
}
