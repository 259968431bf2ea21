package verify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kontext-run/kontext-core/pkg/store"
	"github.com/kontext-run/kontext-core/pkg/storage"
)

// Reserved storage keys, per spec.
const (
	keyActions   = "kontext:actions"
	keyTasks     = "kontext:tasks"
	keyAnomalies = "kontext:anomalies"
	keyChain     = "kontext:chain"
)

type peekType struct {
	Type store.ActionType `json:"type"`
}

// Persist flushes the in-memory store to adapter under the reserved keys.
// It is best-effort from the core's perspective: a failing adapter write is
// returned to the caller to log, never rolling back in-memory state.
func Persist(ctx context.Context, c *Context, adapter storage.Adapter) error {
	c.mu.Lock()
	actions := c.store.AllActions()
	txByID := make(map[string]*store.Transaction, len(actions))
	for _, tx := range c.store.AllTransactions() {
		txByID[tx.ActionID] = tx
	}
	tasks := c.store.AllTasks()
	anomalies := c.store.AllAnomalies()
	chainBundle := c.chain.Export()
	c.mu.Unlock()

	entries := make([]json.RawMessage, 0, len(actions))
	for _, a := range actions {
		var (
			raw json.RawMessage
			err error
		)
		if tx, ok := txByID[a.ActionID]; ok {
			raw, err = json.Marshal(tx)
		} else {
			raw, err = json.Marshal(a)
		}
		if err != nil {
			return fmt.Errorf("verify: persist: marshal action %s: %w", a.ActionID, err)
		}
		entries = append(entries, raw)
	}

	writes := map[string]interface{}{
		keyActions:   entries,
		keyTasks:     tasks,
		keyAnomalies: anomalies,
		keyChain:     chainBundle,
	}
	for key, value := range writes {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("verify: persist: marshal %s: %w", key, err)
		}
		if err := adapter.Save(ctx, key, data); err != nil {
			return fmt.Errorf("verify: persist: save %s: %w", key, err)
		}
	}
	return nil
}

// Restore rebuilds a Context by replaying a prior Persist's output through
// the same Add* calls the live orchestrator uses, so the digest chain is
// re-derived rather than trusted verbatim. A missing store (no prior
// Persist) is a cold start, not an error.
func Restore(ctx context.Context, opts Options, adapter storage.Adapter) (*Context, error) {
	c, err := NewContext(opts)
	if err != nil {
		return nil, err
	}

	actionsData, ok, err := adapter.Load(ctx, keyActions)
	if err != nil {
		return nil, fmt.Errorf("verify: restore: load actions: %w", err)
	}
	if !ok {
		return c, nil
	}

	var rawEntries []json.RawMessage
	if err := json.Unmarshal(actionsData, &rawEntries); err != nil {
		return nil, fmt.Errorf("verify: restore: unmarshal actions: %w", err)
	}
	for _, raw := range rawEntries {
		var peek peekType
		if err := json.Unmarshal(raw, &peek); err != nil {
			return nil, fmt.Errorf("verify: restore: peek action type: %w", err)
		}
		switch peek.Type {
		case store.ActionTypeTransaction:
			var tx store.Transaction
			if err := json.Unmarshal(raw, &tx); err != nil {
				return nil, fmt.Errorf("verify: restore: unmarshal transaction: %w", err)
			}
			tx.Sequence = 0 // hashed as unassigned at the original append
			if err := c.store.AddTransaction(&tx); err != nil {
				return nil, fmt.Errorf("verify: restore: replay transaction %s: %w", tx.ActionID, err)
			}
		case store.ActionTypeReasoning:
			var r store.ReasoningEntry
			if err := json.Unmarshal(raw, &r); err != nil {
				return nil, fmt.Errorf("verify: restore: unmarshal reasoning: %w", err)
			}
			r.Sequence = 0
			if err := c.store.AddReasoning(&r); err != nil {
				return nil, fmt.Errorf("verify: restore: replay reasoning %s: %w", r.ActionID, err)
			}
		default:
			var a store.Action
			if err := json.Unmarshal(raw, &a); err != nil {
				return nil, fmt.Errorf("verify: restore: unmarshal action: %w", err)
			}
			a.Sequence = 0
			if err := c.store.AddAction(&a); err != nil {
				return nil, fmt.Errorf("verify: restore: replay action %s: %w", a.ActionID, err)
			}
		}
	}

	if tasksData, ok, err := adapter.Load(ctx, keyTasks); err != nil {
		return nil, fmt.Errorf("verify: restore: load tasks: %w", err)
	} else if ok {
		var tasks []*store.Task
		if err := json.Unmarshal(tasksData, &tasks); err != nil {
			return nil, fmt.Errorf("verify: restore: unmarshal tasks: %w", err)
		}
		for _, t := range tasks {
			if err := c.store.AddTask(t); err != nil {
				return nil, fmt.Errorf("verify: restore: replay task %s: %w", t.ID, err)
			}
		}
	}

	if anomaliesData, ok, err := adapter.Load(ctx, keyAnomalies); err != nil {
		return nil, fmt.Errorf("verify: restore: load anomalies: %w", err)
	} else if ok {
		var anomalies []*store.AnomalyEvent
		if err := json.Unmarshal(anomaliesData, &anomalies); err != nil {
			return nil, fmt.Errorf("verify: restore: unmarshal anomalies: %w", err)
		}
		for _, e := range anomalies {
			if err := c.store.AddAnomaly(e); err != nil {
				return nil, fmt.Errorf("verify: restore: replay anomaly %s: %w", e.EventID, err)
			}
		}
	}

	return c, nil
}
