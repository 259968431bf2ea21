// Package verify wires the Action Store, Digest Chain, Compliance Engine,
// and Trust & Anomaly Engine behind the single entry point an agent calls
// before or after executing a financial action.
package verify

import (
	"log/slog"
	"sync"

	"github.com/kontext-run/kontext-core/pkg/chain"
	"github.com/kontext-run/kontext-core/pkg/compliance"
	"github.com/kontext-run/kontext-core/pkg/store"
	"github.com/kontext-run/kontext-core/pkg/tiers"
	"github.com/kontext-run/kontext-core/pkg/trust"
)

// Options configures a new Context. Zero-valued optional fields fall back
// to package defaults.
type Options struct {
	ProjectID         string
	Thresholds        compliance.ThresholdSet
	Watchlist         []string
	Gate              tiers.Gate
	AnomalyThresholds trust.Thresholds
	FrequencyWindow   trust.FrequencyWindow
	TrustWeights      trust.Weights
	ApprovalThreshold string // decimal string; empty disables approval gating
}

// Context is the per-instance facade: one sync.Mutex guards the Action
// Store and Digest Chain together, so the nine-step verify sequence (and
// any reconfigure) stays atomic, grounded on the teacher's AuditStore
// pattern of guarding entries+index+chain-head as one critical section.
type Context struct {
	mu sync.Mutex

	projectID string

	chain *chain.DigestChain
	store *store.ActionStore

	engine       *compliance.Engine
	intentSchema *compliance.IntentSchema
	scorer       *trust.Scorer
	detector     *trust.Detector
	gate         tiers.Gate

	approvalThreshold *string

	logger *slog.Logger
}

// NewContext constructs a Context with a fresh, empty chain and store.
func NewContext(opts Options) (*Context, error) {
	gate := opts.Gate
	if gate == nil {
		gate = tiers.DefaultGate()
	}

	thresholds := opts.Thresholds
	if (thresholds == compliance.ThresholdSet{}) {
		thresholds = compliance.DefaultThresholds()
	}

	engine, err := compliance.NewEngine(thresholds, opts.Watchlist, gate)
	if err != nil {
		return nil, err
	}

	intentSchema, err := compliance.NewIntentSchema()
	if err != nil {
		return nil, err
	}

	weights := opts.TrustWeights
	if (weights == trust.Weights{}) {
		weights = trust.DefaultWeights()
	}

	anomalyThresholds := opts.AnomalyThresholds
	if (anomalyThresholds == trust.Thresholds{}) {
		anomalyThresholds = trust.DefaultThresholds()
	}

	window := opts.FrequencyWindow
	if window == nil {
		window = trust.NewInMemoryFrequencyWindow()
	}

	c := chain.New()
	s := store.New(c)

	var approval *string
	if opts.ApprovalThreshold != "" {
		v := opts.ApprovalThreshold
		approval = &v
	}

	return &Context{
		projectID:         opts.ProjectID,
		chain:             c,
		store:             s,
		engine:            engine,
		intentSchema:      intentSchema,
		scorer:            trust.NewScorer(weights),
		detector:          trust.NewDetector(anomalyThresholds, window),
		gate:              gate,
		approvalThreshold: approval,
		logger:            slog.Default().With("component", "verify"),
	}, nil
}

// Store exposes the underlying Action Store for read-only export/reporting
// callers. Mutating it directly outside Verify bypasses the nine-step
// sequence's invariants and should not be done by ordinary callers.
func (c *Context) Store() *store.ActionStore { return c.store }

// Chain exposes the underlying Digest Chain.
func (c *Context) Chain() *chain.DigestChain { return c.chain }

// Reconfigure atomically swaps the approval threshold, serialized with any
// in-flight Verify call via the same lock (spec §5: shared-resource
// reconfigure must be serialized with normal operations).
func (c *Context) Reconfigure(approvalThreshold string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if approvalThreshold == "" {
		c.approvalThreshold = nil
		return
	}
	v := approvalThreshold
	c.approvalThreshold = &v
}
