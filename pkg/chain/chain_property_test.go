package chain

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestChainContinuityProperty generates random action sequences and asserts
// I-1..I-5 hold after every append.
func TestChainContinuityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("chain stays continuous and monotonic for any action sequence", prop.ForAll(
		func(n int, seed string) bool {
			c := New()
			var prevDigest string
			var prevTS int64
			for i := 0; i < n; i++ {
				id := fmt.Sprintf("%s-%d", seed, i)
				link, err := c.Append(testAction{
					id:   id,
					kind: "transaction",
					body: map[string]interface{}{"index": i, "seed": seed},
				})
				if err != nil {
					return false
				}
				if i == 0 {
					if link.PriorDigest != GenesisHash {
						return false
					}
				} else if link.PriorDigest != prevDigest {
					return false
				}
				if link.Timestamp.UnixNano() <= prevTS {
					return false
				}
				prevDigest = link.Digest
				prevTS = link.Timestamp.UnixNano()
			}
			result := c.Verify()
			return result.Valid && result.LinksVerified == uint64(n)
		},
		gen.IntRange(0, 40),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestContentFingerprintDeterminismProperty asserts that canonicalizing the
// same logical action body always yields the same fingerprint, regardless
// of map key insertion order.
func TestContentFingerprintDeterminismProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("fingerprint is independent of map construction order", prop.ForAll(
		func(a, b, amt string) bool {
			first := map[string]interface{}{"from": a, "to": b, "amount": amt}
			second := map[string]interface{}{"amount": amt, "to": b, "from": a}

			c1 := New()
			c2 := New()
			l1, err1 := c1.Append(testAction{id: "x", kind: "transaction", body: first})
			l2, err2 := c2.Append(testAction{id: "x", kind: "transaction", body: second})
			if err1 != nil || err2 != nil {
				return false
			}
			return l1.ContentFingerprint == l2.ContentFingerprint && l1.Digest == l2.Digest
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestVerifyContentDetectsMutationProperty asserts that mutating any
// non-digest field of an appended action's body breaks VerifyContent at the
// mutated sequence.
func TestVerifyContentDetectsMutationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("mutated action content fails VerifyContent", prop.ForAll(
		func(original, mutated string) bool {
			if original == mutated {
				return true
			}
			c := New()
			if _, err := c.Append(testAction{id: "m", kind: "transaction", body: map[string]interface{}{"amount": original}}); err != nil {
				return false
			}
			actions := map[string]Appendable{
				"m": testAction{id: "m", kind: "transaction", body: map[string]interface{}{"amount": mutated}},
			}
			return !c.VerifyContent(actions).Valid
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
