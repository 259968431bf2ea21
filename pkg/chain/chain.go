// Package chain implements the Digest Chain: an append-only, content-addressed
// hash chain that makes every appended action tamper-evident. It binds a
// totally ordered sequence of actions to a single terminal digest, the way
// the older audit store bound entries through a rolling chain head, but
// splits the hashing concern out from storage/indexing.
package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kontext-run/kontext-core/pkg/canonicalize"
)

// GenesisHash is the fixed 32 zero-byte hash (64 lowercase hex chars) that
// seeds an empty chain, per I-1.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

var (
	// ErrEmptyActionID is wrapped into DigestError when Append is called
	// with an action whose ID is empty.
	ErrEmptyActionID = errors.New("chain: action id must not be empty")
)

// DigestError reports that an append failed before any link was produced;
// the chain tail is left untouched.
type DigestError struct {
	Reason string
	Err    error
}

func (e *DigestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chain: digest error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("chain: digest error: %s", e.Reason)
}

func (e *DigestError) Unwrap() error { return e.Err }

// DuplicateAction reports that an action with this ID has already been
// appended; re-appending is rejected rather than silently accepted.
type DuplicateAction struct {
	ActionID string
}

func (e *DuplicateAction) Error() string {
	return fmt.Sprintf("chain: action %q already appended", e.ActionID)
}

// ChainInvariant describes a structural invariant (I-1..I-5) violated at a
// sequence. Verify and VerifyContent do not return it: they report the
// failing sequence through VerifyResult.FailedAt.
type ChainInvariant struct {
	Sequence uint64
	Reason   string
}

func (e *ChainInvariant) Error() string {
	return fmt.Sprintf("chain: invariant violated at sequence %d: %s", e.Sequence, e.Reason)
}

// Link is a single immutable entry in the Digest Chain (I-2: append-only,
// never mutated once returned by Append).
type Link struct {
	Sequence           uint64    `json:"sequence"`
	Digest             string    `json:"digest"`
	PriorDigest        string    `json:"priorDigest"`
	ActionID           string    `json:"actionId"`
	ActionType         string    `json:"actionType"`
	Timestamp          time.Time `json:"timestamp"`
	ContentFingerprint string    `json:"contentFingerprint"`
}

// VerifyResult is the outcome of Verify/VerifyContent: a failing sequence
// number is reported rather than thrown, per the spec's failure semantics.
type VerifyResult struct {
	Valid         bool
	LinksVerified uint64
	FailedAt      *uint64
}

// ExportBundle is a self-contained, chronologically ordered representation
// of a chain suitable for external verification or on-chain anchoring of
// the terminal digest alone.
type ExportBundle struct {
	GenesisHash    string  `json:"genesisHash"`
	TerminalDigest string  `json:"terminalDigest"`
	Links          []*Link `json:"links"`
}

// DigestChain is the append-only hash chain. Each method takes the chain's
// own mutex, so it can be used standalone (e.g. in tests) without data
// races. Callers (pkg/verify.Context) additionally hold an external lock
// that guards the chain together with the Action Store, per the
// concurrency model.
type DigestChain struct {
	mu       sync.RWMutex
	links    []*Link
	byAction map[string]*Link
	lastTime time.Time
}

// New constructs an empty Digest Chain seeded at the genesis hash.
func New() *DigestChain {
	return &DigestChain{
		links:    make([]*Link, 0),
		byAction: make(map[string]*Link),
	}
}

// Appendable is the minimal shape Append needs from a persisted action; the
// store's Action, Transaction, ReasoningEntry and AnomalyEvent types
// satisfy it via Fingerprint; Task does not.
type Appendable interface {
	// ID returns the action's unique id.
	ID() string
	// Kind returns the action's type discriminator (e.g. "transaction").
	Kind() string
	// Fingerprint returns the value to canonicalize and hash as the
	// action's content; it MUST NOT include digest/priorDigest fields.
	Fingerprint() interface{}
}

// Append computes contentFingerprint = SHA256(canonical(action)), reads the
// current tail digest (genesis if empty), computes
// digest = SHA256(priorDigest ‖ contentFingerprint), and appends the new
// link. Re-appending an action with the same id returns DuplicateAction and
// does not alter the tail.
func (c *DigestChain) Append(action Appendable) (*Link, error) {
	id := action.ID()
	if id == "" {
		return nil, &DigestError{Reason: "action id is empty", Err: ErrEmptyActionID}
	}

	fingerprint, err := canonicalize.CanonicalHash(action.Fingerprint())
	if err != nil {
		return nil, &DigestError{Reason: "canonicalization failed", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byAction[id]; exists {
		return nil, &DuplicateAction{ActionID: id}
	}

	priorDigest := GenesisHash
	var sequence uint64 = 1
	if n := len(c.links); n > 0 {
		priorDigest = c.links[n-1].Digest
		sequence = c.links[n-1].Sequence + 1
	}

	ts := monotonicAfter(c.lastTime)
	c.lastTime = ts

	digest := sha256Hex(priorDigest + fingerprint)

	link := &Link{
		Sequence:           sequence,
		Digest:             digest,
		PriorDigest:        priorDigest,
		ActionID:           id,
		ActionType:         action.Kind(),
		Timestamp:          ts,
		ContentFingerprint: fingerprint,
	}

	c.links = append(c.links, link)
	c.byAction[id] = link

	return link, nil
}

// monotonicAfter returns a timestamp strictly greater than prior (I-5): the
// wall clock, or prior+1ns if the wall clock did not advance.
func monotonicAfter(prior time.Time) time.Time {
	now := time.Now().UTC()
	if !prior.IsZero() && !now.After(prior) {
		return prior.Add(time.Nanosecond)
	}
	return now
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// TerminalDigest returns the last link's digest, or the genesis hash if the
// chain is empty. O(1).
func (c *DigestChain) TerminalDigest() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.links) == 0 {
		return GenesisHash
	}
	return c.links[len(c.links)-1].Digest
}

// Len returns the number of links appended so far.
func (c *DigestChain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.links)
}

// Verify replays the chain: for each link in order it recomputes
// SHA256(priorDigest ‖ contentFingerprint) and checks equality with the
// stored digest and with the previous link's digest.
func (c *DigestChain) Verify() VerifyResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expectedPrior := GenesisHash
	var verified uint64
	for _, link := range c.links {
		if link.PriorDigest != expectedPrior {
			seq := link.Sequence
			return VerifyResult{Valid: false, LinksVerified: verified, FailedAt: &seq}
		}
		recomputed := sha256Hex(link.PriorDigest + link.ContentFingerprint)
		if recomputed != link.Digest {
			seq := link.Sequence
			return VerifyResult{Valid: false, LinksVerified: verified, FailedAt: &seq}
		}
		verified++
		expectedPrior = link.Digest
	}
	return VerifyResult{Valid: true, LinksVerified: verified}
}

// VerifyContent is the stronger check used by external verifiers of
// exported chains: it also recomputes contentFingerprint from the provided
// action bodies (keyed by actionId) and compares against the stored value
// before checking digest continuity.
func (c *DigestChain) VerifyContent(actions map[string]Appendable) VerifyResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expectedPrior := GenesisHash
	var verified uint64
	for _, link := range c.links {
		action, ok := actions[link.ActionID]
		if !ok {
			seq := link.Sequence
			return VerifyResult{Valid: false, LinksVerified: verified, FailedAt: &seq}
		}
		recomputedFingerprint, err := canonicalize.CanonicalHash(action.Fingerprint())
		if err != nil || recomputedFingerprint != link.ContentFingerprint {
			seq := link.Sequence
			return VerifyResult{Valid: false, LinksVerified: verified, FailedAt: &seq}
		}
		if link.PriorDigest != expectedPrior {
			seq := link.Sequence
			return VerifyResult{Valid: false, LinksVerified: verified, FailedAt: &seq}
		}
		recomputed := sha256Hex(link.PriorDigest + link.ContentFingerprint)
		if recomputed != link.Digest {
			seq := link.Sequence
			return VerifyResult{Valid: false, LinksVerified: verified, FailedAt: &seq}
		}
		verified++
		expectedPrior = link.Digest
	}
	return VerifyResult{Valid: true, LinksVerified: verified}
}

// Export produces a self-contained, chronologically ordered bundle.
func (c *DigestChain) Export() *ExportBundle {
	c.mu.RLock()
	defer c.mu.RUnlock()

	links := make([]*Link, len(c.links))
	copy(links, c.links)

	terminal := GenesisHash
	if len(links) > 0 {
		terminal = links[len(links)-1].Digest
	}

	return &ExportBundle{
		GenesisHash:    GenesisHash,
		TerminalDigest: terminal,
		Links:          links,
	}
}

// Slice returns a read-only range of links with sequence in [from, to]
// (inclusive); it does not mutate the chain.
func (c *DigestChain) Slice(from, to uint64) []*Link {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Link, 0)
	for _, link := range c.links {
		if link.Sequence < from {
			continue
		}
		if to > 0 && link.Sequence > to {
			break
		}
		out = append(out, link)
	}
	return out
}

// LinkByAction returns the link bound to the given action id, if any, for
// I-4 bijection checks.
func (c *DigestChain) LinkByAction(actionID string) (*Link, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	link, ok := c.byAction[actionID]
	return link, ok
}
