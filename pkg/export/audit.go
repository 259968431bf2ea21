package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kontext-run/kontext-core/pkg/chain"
	"github.com/kontext-run/kontext-core/pkg/store"
)

// AuditBundle is the full-entity-body export: actions, transactions,
// tasks, and anomalies in insertion order, plus the terminal digest they
// commit to.
type AuditBundle struct {
	Actions        []*store.Action       `json:"actions"`
	Transactions   []*store.Transaction  `json:"transactions"`
	Tasks          []*store.Task         `json:"tasks"`
	Anomalies      []*store.AnomalyEvent `json:"anomalies"`
	ExportedAt     time.Time             `json:"exportedAt"`
	TerminalDigest string                `json:"terminalDigest"`
}

// AuditJSON builds and marshals the audit export for a store/chain pair.
// exportedAt is supplied by the caller (the core itself generates no
// timestamps from within export so callers can reproduce exports for
// tests).
func AuditJSON(s *store.ActionStore, c *chain.DigestChain, exportedAt time.Time) ([]byte, error) {
	bundle := AuditBundle{
		Actions:        s.AllActions(),
		Transactions:   s.AllTransactions(),
		Tasks:          s.AllTasks(),
		Anomalies:      s.AllAnomalies(),
		ExportedAt:     exportedAt,
		TerminalDigest: c.TerminalDigest(),
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("export: marshal audit bundle: %w", err)
	}
	return data, nil
}
