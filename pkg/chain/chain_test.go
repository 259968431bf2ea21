package chain

import (
	"testing"
)

type testAction struct {
	id   string
	kind string
	body map[string]interface{}
}

func (a testAction) ID() string             { return a.id }
func (a testAction) Kind() string            { return a.kind }
func (a testAction) Fingerprint() interface{} { return a.body }

func TestAppend_GenesisAndContinuity(t *testing.T) {
	c := New()

	if got := c.TerminalDigest(); got != GenesisHash {
		t.Fatalf("TerminalDigest on empty chain = %q, want genesis", got)
	}

	l1, err := c.Append(testAction{id: "a1", kind: "transaction", body: map[string]interface{}{"amount": "100"}})
	if err != nil {
		t.Fatalf("Append 1 returned error: %v", err)
	}
	if l1.Sequence != 1 {
		t.Errorf("first link sequence = %d, want 1", l1.Sequence)
	}
	if l1.PriorDigest != GenesisHash {
		t.Errorf("first link priorDigest = %q, want genesis", l1.PriorDigest)
	}

	l2, err := c.Append(testAction{id: "a2", kind: "transaction", body: map[string]interface{}{"amount": "200"}})
	if err != nil {
		t.Fatalf("Append 2 returned error: %v", err)
	}
	if l2.PriorDigest != l1.Digest {
		t.Errorf("I-1 violated: link2.priorDigest = %q, want link1.digest %q", l2.PriorDigest, l1.Digest)
	}
	if l2.Sequence != 2 {
		t.Errorf("second link sequence = %d, want 2", l2.Sequence)
	}

	if got := c.TerminalDigest(); got != l2.Digest {
		t.Errorf("TerminalDigest = %q, want %q", got, l2.Digest)
	}
}

func TestAppend_EmptyActionID(t *testing.T) {
	c := New()
	_, err := c.Append(testAction{id: "", kind: "transaction"})
	if err == nil {
		t.Fatal("expected DigestError for empty action id")
	}
	if _, ok := err.(*DigestError); !ok {
		t.Fatalf("expected *DigestError, got %T", err)
	}
	if c.Len() != 0 {
		t.Fatalf("failed append must not alter the chain, Len() = %d", c.Len())
	}
}

func TestAppend_DuplicateAction(t *testing.T) {
	c := New()
	a := testAction{id: "dup", kind: "transaction", body: map[string]interface{}{"x": 1}}
	if _, err := c.Append(a); err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	before := c.TerminalDigest()

	_, err := c.Append(a)
	if err == nil {
		t.Fatal("expected DuplicateAction error")
	}
	if _, ok := err.(*DuplicateAction); !ok {
		t.Fatalf("expected *DuplicateAction, got %T", err)
	}
	if c.TerminalDigest() != before {
		t.Fatal("duplicate append must not alter chain tail")
	}
}

func TestVerify_ValidChain(t *testing.T) {
	c := New()
	for i := 0; i < 5; i++ {
		_, err := c.Append(testAction{id: string(rune('a' + i)), kind: "action", body: map[string]interface{}{"i": i}})
		if err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}
	result := c.Verify()
	if !result.Valid {
		t.Fatalf("expected valid chain, failedAt=%v", result.FailedAt)
	}
	if result.LinksVerified != 5 {
		t.Errorf("LinksVerified = %d, want 5", result.LinksVerified)
	}
}

func TestVerify_DetectsTamperedDigest(t *testing.T) {
	c := New()
	_, _ = c.Append(testAction{id: "a", kind: "action", body: map[string]interface{}{"v": 1}})
	l2, _ := c.Append(testAction{id: "b", kind: "action", body: map[string]interface{}{"v": 2}})

	l2.Digest = "tampered"

	result := c.Verify()
	if result.Valid {
		t.Fatal("expected verification failure after tampering")
	}
	if result.FailedAt == nil || *result.FailedAt != 2 {
		t.Errorf("FailedAt = %v, want pointer to 2", result.FailedAt)
	}
}

func TestVerifyContent_DetectsBodyMutation(t *testing.T) {
	c := New()
	original := testAction{id: "a", kind: "action", body: map[string]interface{}{"amount": "100"}}
	_, err := c.Append(original)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	mutated := testAction{id: "a", kind: "action", body: map[string]interface{}{"amount": "999"}}
	actions := map[string]Appendable{"a": mutated}

	result := c.VerifyContent(actions)
	if result.Valid {
		t.Fatal("expected VerifyContent to detect mutated content")
	}
}

func TestExport_RoundTrip(t *testing.T) {
	c := New()
	for i := 0; i < 3; i++ {
		_, err := c.Append(testAction{id: string(rune('x' + i)), kind: "action", body: map[string]interface{}{"i": i}})
		if err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}
	bundle := c.Export()
	if bundle.GenesisHash != GenesisHash {
		t.Errorf("bundle genesisHash = %q, want genesis", bundle.GenesisHash)
	}
	if bundle.TerminalDigest != c.TerminalDigest() {
		t.Error("bundle terminalDigest mismatch")
	}
	if len(bundle.Links) != 3 {
		t.Errorf("len(bundle.Links) = %d, want 3", len(bundle.Links))
	}
}

func TestSlice_Range(t *testing.T) {
	c := New()
	for i := 0; i < 5; i++ {
		_, _ = c.Append(testAction{id: string(rune('a' + i)), kind: "action", body: map[string]interface{}{"i": i}})
	}
	links := c.Slice(2, 4)
	if len(links) != 3 {
		t.Fatalf("Slice(2,4) returned %d links, want 3", len(links))
	}
	if links[0].Sequence != 2 || links[len(links)-1].Sequence != 4 {
		t.Errorf("Slice(2,4) = [%d..%d], want [2..4]", links[0].Sequence, links[len(links)-1].Sequence)
	}
}

func TestAppend_MonotonicTimestamps(t *testing.T) {
	c := New()
	var prev int64
	for i := 0; i < 50; i++ {
		l, err := c.Append(testAction{id: string(rune('a'+i%26)) + string(rune(i)), kind: "action", body: map[string]interface{}{"i": i}})
		if err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
		if l.Timestamp.UnixNano() <= prev {
			t.Fatalf("I-5 violated at %d: timestamp did not strictly increase", i)
		}
		prev = l.Timestamp.UnixNano()
	}
}
