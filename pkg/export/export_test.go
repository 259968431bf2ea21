package export_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"testing"
	"time"

	"github.com/kontext-run/kontext-core/pkg/canonicalize"
	"github.com/kontext-run/kontext-core/pkg/chain"
	"github.com/kontext-run/kontext-core/pkg/export"
	"github.com/kontext-run/kontext-core/pkg/store"
	"github.com/kontext-run/kontext-core/pkg/trust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAction struct {
	id   string
	kind string
	body map[string]interface{}
}

func (a *testAction) ID() string             { return a.id }
func (a *testAction) Kind() string           { return a.kind }
func (a *testAction) Fingerprint() interface{} { return a.body }

func buildChain(t *testing.T, n int) *chain.DigestChain {
	t.Helper()
	c := chain.New()
	for i := 0; i < n; i++ {
		_, err := c.Append(&testAction{id: string(rune('a' + i)), kind: "test", body: map[string]interface{}{"n": i}})
		require.NoError(t, err)
	}
	return c
}

func TestChainJSON_RoundTripIsByteIdentical(t *testing.T) {
	c := buildChain(t, 5)
	first, err := export.ChainJSON(c)
	require.NoError(t, err)
	second, err := export.ChainJSON(c)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(first, &decoded))
	assert.Equal(t, chain.GenesisHash, decoded["genesisHash"])
}

func TestAuditJSON_IncludesAllSections(t *testing.T) {
	c := chain.New()
	s := store.New(c)
	now := time.Now().UTC()
	require.NoError(t, s.AddAction(&store.Action{ActionID: "a1", AgentID: "agent-1", Type: store.ActionTypeReasoning, Timestamp: now}))
	require.NoError(t, s.AddTransaction(&store.Transaction{
		Action: store.Action{ActionID: "tx1", AgentID: "agent-1", Type: store.ActionTypeTransaction, Timestamp: now},
		Chain:  "ethereum", Amount: "100", Token: "USDC",
		From: "0x1111111111111111111111111111111111111111", To: "0x2222222222222222222222222222222222222222",
	}))

	data, err := export.AuditJSON(s, c, now)
	require.NoError(t, err)

	var decoded export.AuditBundle
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Actions, 2)
	assert.Len(t, decoded.Transactions, 1)
	assert.Equal(t, c.TerminalDigest(), decoded.TerminalDigest)
}

func TestCSV_OneFilePerSectionWithSectionColumn(t *testing.T) {
	c := chain.New()
	s := store.New(c)
	now := time.Now().UTC()
	require.NoError(t, s.AddTransaction(&store.Transaction{
		Action: store.Action{ActionID: "tx1", AgentID: "agent-1", Type: store.ActionTypeTransaction, Timestamp: now},
		Chain:  "ethereum", Amount: "100", Token: "USDC",
		From: "0x1111111111111111111111111111111111111111", To: "0x2222222222222222222222222222222222222222",
	}))

	bundle, err := export.CSV(s)
	require.NoError(t, err)
	assert.Contains(t, string(bundle["transactions"]), "transactions,tx1,agent-1")
	assert.Contains(t, string(bundle["actions"]), "section,id")
}

func TestBuildCertificate_ContentHashRecomputes(t *testing.T) {
	c := chain.New()
	s := store.New(c)
	scorer := trust.NewScorer(trust.DefaultWeights())

	cert, err := export.BuildCertificate(s, c, scorer, "agent-1", time.Now().UTC())
	require.NoError(t, err)
	assert.NotEmpty(t, cert.ContentHash)
	assert.Equal(t, 1.0, cert.Summary.CompliancePassRate)

	raw, err := json.Marshal(cert)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	delete(body, "contentHash")
	recomputed, err := canonicalize.CanonicalHash(body)
	require.NoError(t, err)
	assert.Equal(t, cert.ContentHash, recomputed)
}

func TestSignAnchorVerifyAnchor_RoundTrip(t *testing.T) {
	c := buildChain(t, 3)
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	token, err := export.SignAnchor(c, "kontext-core", key, time.Now().UTC())
	require.NoError(t, err)

	claims, err := export.VerifyAnchor(token, &key.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, c.TerminalDigest(), claims.TerminalDigest)
}
