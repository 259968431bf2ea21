package export

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"
)

// AnchorKeyProvider derives per-project ECDSA anchor-signing keys from a
// single master key, grounded on the teacher's governance.Keyring's
// DeriveForTenant HKDF pattern (adapted here from ed25519 seeds to the
// ECDSA/P256 keys SignAnchor needs for ES256). Operators hold one master
// key; every project gets a distinct, deterministic signing identity
// without the master key ever leaving the machine it's loaded on.
type AnchorKeyProvider struct {
	master *ecdsa.PrivateKey
}

// NewAnchorKeyProvider wraps a master EC private key for derivation.
func NewAnchorKeyProvider(master *ecdsa.PrivateKey) *AnchorKeyProvider {
	return &AnchorKeyProvider{master: master}
}

// DeriveForProject derives a deterministic ECDSA keypair scoped to
// projectID via HKDF-SHA256 over the master key's scalar as IKM and
// projectID as info. The same (master, projectID) pair always yields the
// same derived key, so anchors signed across process restarts verify
// against one stable per-project public key.
func (p *AnchorKeyProvider) DeriveForProject(projectID string) (*ecdsa.PrivateKey, error) {
	if projectID == "" {
		return nil, fmt.Errorf("export: projectID must not be empty")
	}
	ikm := p.master.D.Bytes()
	reader := hkdf.New(sha256.New, ikm, []byte("kontext-anchor-kdf"), []byte(projectID))
	curve := elliptic.P256()
	params := curve.Params()
	buf := make([]byte, params.BitSize/8+8)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return nil, fmt.Errorf("export: derive anchor key for project %q: %w", projectID, err)
	}
	// Map the HKDF output onto a scalar in [1, N-1].
	k := new(big.Int).SetBytes(buf)
	k.Mod(k, new(big.Int).Sub(params.N, big.NewInt(1)))
	k.Add(k, big.NewInt(1))
	derived := &ecdsa.PrivateKey{D: k}
	derived.PublicKey.Curve = curve
	derived.PublicKey.X, derived.PublicKey.Y = curve.ScalarBaseMult(k.Bytes())
	return derived, nil
}
