// Package export renders the Action Store and Digest Chain into the byte
// layouts external auditors and on-chain anchoring consume.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/kontext-run/kontext-core/pkg/chain"
)

// ChainJSON renders the Digest Chain export bundle exactly as specified:
// genesisHash, terminalDigest, and the chronologically ordered links. Two
// exports of the same chain are byte-identical.
func ChainJSON(c *chain.DigestChain) ([]byte, error) {
	bundle := c.Export()
	data, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("export: marshal chain bundle: %w", err)
	}
	return data, nil
}
