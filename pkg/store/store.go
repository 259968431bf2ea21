package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/kontext-run/kontext-core/pkg/chain"
	"github.com/kontext-run/kontext-core/pkg/finance"
)

// actionLike is satisfied by Action and anything embedding it (Transaction,
// ReasoningEntry): base() is promoted automatically through the embedding,
// so addAction can index any of them generically.
type actionLike interface {
	chain.Appendable
	base() *Action
}

func (a *Action) base() *Action { return a }

// EntryHandler is invoked, outside the store's lock, whenever an anomaly is
// appended — mirroring the teacher's append-then-notify pattern.
type EntryHandler func(event *AnomalyEvent)

// ActionStore is the in-memory typed repository for actions, transactions,
// tasks, and anomaly events. A single mutex guards the store and the Digest
// Chain together, so the "append action + append link + update indexes"
// tuple stays atomic (the same critical section the teacher's AuditStore
// draws around entries+chain-head).
type ActionStore struct {
	mu sync.Mutex

	chain *chain.DigestChain

	actionsByAgent       map[string][]*Action
	actionsByCorrelation map[string][]*Action
	actionsByType        map[ActionType][]*Action
	actionsByID          map[string]*Action

	transactionsByAgent     map[string][]*Transaction
	transactionsByToAddress map[string][]*Transaction

	tasksByStatus map[TaskStatus][]*Task
	tasksByID     map[string]*Task

	anomaliesByAgent map[string][]*AnomalyEvent

	allActions      []*Action
	allTransactions []*Transaction
	allAnomalies    []*AnomalyEvent

	handlers []EntryHandler
}

// New constructs an empty Action Store bound to the given Digest Chain.
func New(c *chain.DigestChain) *ActionStore {
	return &ActionStore{
		chain:                   c,
		actionsByAgent:          make(map[string][]*Action),
		actionsByCorrelation:    make(map[string][]*Action),
		actionsByType:           make(map[ActionType][]*Action),
		actionsByID:             make(map[string]*Action),
		transactionsByAgent:     make(map[string][]*Transaction),
		transactionsByToAddress: make(map[string][]*Transaction),
		tasksByStatus:           make(map[TaskStatus][]*Task),
		tasksByID:               make(map[string]*Task),
		anomaliesByAgent:        make(map[string][]*AnomalyEvent),
	}
}

// Chain exposes the underlying Digest Chain for export/verify callers.
func (s *ActionStore) Chain() *chain.DigestChain { return s.chain }

func validateStructural(id string, ts time.Time) error {
	if id == "" {
		return ErrEmptyID
	}
	if ts.IsZero() {
		return ErrMalformedTimestamp
	}
	return nil
}

// addAction indexes any actionLike value (Action, Transaction,
// ReasoningEntry) and appends it to the Digest Chain under the store's
// lock. It assigns the Action's sequence/digest/priorDigest from the
// resulting link, satisfying I-4.
func (s *ActionStore) addAction(a actionLike) error {
	base := a.base()
	if err := validateStructural(base.ActionID, base.Timestamp); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.chain.Append(a)
	if err != nil {
		return err
	}
	base.Sequence = link.Sequence
	base.Digest = link.Digest
	base.PriorDigest = link.PriorDigest

	s.actionsByAgent[base.AgentID] = append(s.actionsByAgent[base.AgentID], base)
	if base.CorrelationID != "" {
		s.actionsByCorrelation[base.CorrelationID] = append(s.actionsByCorrelation[base.CorrelationID], base)
	}
	s.actionsByType[base.Type] = append(s.actionsByType[base.Type], base)
	s.actionsByID[base.ActionID] = base
	s.allActions = append(s.allActions, base)

	return nil
}

// AddAction persists a plain Action.
func (s *ActionStore) AddAction(a *Action) error {
	return s.addAction(a)
}

// AddReasoning persists a ReasoningEntry.
func (s *ActionStore) AddReasoning(r *ReasoningEntry) error {
	if r.Type == "" {
		r.Type = ActionTypeReasoning
	}
	return s.addAction(r)
}

// AddTransaction validates and persists a Transaction, additionally
// indexing it by agent and recipient address.
func (s *ActionStore) AddTransaction(t *Transaction) error {
	if t.Type == "" {
		t.Type = ActionTypeTransaction
	}
	if _, err := finance.ParseAmount(t.Amount); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	base := t.base()
	if err := validateStructural(base.ActionID, base.Timestamp); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.chain.Append(t)
	if err != nil {
		return err
	}
	base.Sequence = link.Sequence
	base.Digest = link.Digest
	base.PriorDigest = link.PriorDigest

	s.actionsByAgent[base.AgentID] = append(s.actionsByAgent[base.AgentID], base)
	if base.CorrelationID != "" {
		s.actionsByCorrelation[base.CorrelationID] = append(s.actionsByCorrelation[base.CorrelationID], base)
	}
	s.actionsByType[base.Type] = append(s.actionsByType[base.Type], base)
	s.actionsByID[base.ActionID] = base
	s.allActions = append(s.allActions, base)

	s.transactionsByAgent[t.AgentID] = append(s.transactionsByAgent[t.AgentID], t)
	s.transactionsByToAddress[t.To] = append(s.transactionsByToAddress[t.To], t)
	s.allTransactions = append(s.allTransactions, t)

	return nil
}

// AddAnomaly validates I-7 (actionId must reference an existing action and
// share its agentId) and persists the event, notifying handlers after the
// lock is released.
func (s *ActionStore) AddAnomaly(e *AnomalyEvent) error {
	if e.EventID == "" {
		return ErrEmptyID
	}
	if e.DetectedAt.IsZero() {
		return ErrMalformedTimestamp
	}

	s.mu.Lock()
	referenced, ok := s.actionsByID[e.ActionID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("store: anomaly references unknown action %q", e.ActionID)
	}
	if referenced.AgentID != e.AgentID {
		s.mu.Unlock()
		return fmt.Errorf("store: anomaly agentId %q does not match referenced action %q's agentId %q",
			e.AgentID, e.ActionID, referenced.AgentID)
	}

	s.anomaliesByAgent[e.AgentID] = append(s.anomaliesByAgent[e.AgentID], e)
	s.allAnomalies = append(s.allAnomalies, e)
	handlers := append([]EntryHandler(nil), s.handlers...)
	s.mu.Unlock()

	for _, h := range handlers {
		dispatch(h, e)
	}
	return nil
}

// dispatch invokes a handler, recovering from a panic so one bad callback
// cannot take down the others (grounded on the teacher's
// AddHandler/notify-after-append pattern).
func dispatch(h EntryHandler, e *AnomalyEvent) {
	defer func() {
		_ = recover()
	}()
	h(e)
}

// AddHandler registers a callback invoked after each AddAnomaly, outside
// the store's lock.
func (s *ActionStore) AddHandler(h EntryHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// QueryActionsByAgent returns copies of all actions recorded for agentID,
// in insertion order.
func (s *ActionStore) QueryActionsByAgent(agentID string) []*Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyActions(s.actionsByAgent[agentID])
}

// QueryActionsByCorrelation returns copies of all actions sharing
// correlationID.
func (s *ActionStore) QueryActionsByCorrelation(correlationID string) []*Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyActions(s.actionsByCorrelation[correlationID])
}

// QueryActionsByType returns copies of all actions of the given type.
func (s *ActionStore) QueryActionsByType(t ActionType) []*Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyActions(s.actionsByType[t])
}

// QueryTransactionsByAgent returns copies of all transactions recorded for
// agentID, in insertion order.
func (s *ActionStore) QueryTransactionsByAgent(agentID string) []*Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTransactions(s.transactionsByAgent[agentID])
}

// QueryTransactionsByToAddress returns copies of all transactions sent to
// the given address.
func (s *ActionStore) QueryTransactionsByToAddress(to string) []*Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTransactions(s.transactionsByToAddress[to])
}

// QueryAnomaliesByAgent returns copies of all anomalies recorded for
// agentID.
func (s *ActionStore) QueryAnomaliesByAgent(agentID string) []*AnomalyEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*AnomalyEvent, len(s.anomaliesByAgent[agentID]))
	for i, e := range s.anomaliesByAgent[agentID] {
		cp := *e
		out[i] = &cp
	}
	return out
}

// AllActions returns copies of every action in insertion order, used by
// the audit export (full entity bodies, not filtered by index).
func (s *ActionStore) AllActions() []*Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyActions(s.allActions)
}

// AllTransactions returns copies of every transaction in insertion order.
func (s *ActionStore) AllTransactions() []*Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyTransactions(s.allTransactions)
}

// AllAnomalies returns copies of every anomaly event in insertion order.
func (s *ActionStore) AllAnomalies() []*AnomalyEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*AnomalyEvent, len(s.allAnomalies))
	for i, e := range s.allAnomalies {
		cp := *e
		out[i] = &cp
	}
	return out
}

func copyActions(in []*Action) []*Action {
	out := make([]*Action, len(in))
	for i, a := range in {
		cp := *a
		out[i] = &cp
	}
	return out
}

func copyTransactions(in []*Transaction) []*Transaction {
	out := make([]*Transaction, len(in))
	for i, t := range in {
		cp := *t
		out[i] = &cp
	}
	return out
}
