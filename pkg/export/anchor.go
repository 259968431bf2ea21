package export

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kontext-run/kontext-core/pkg/chain"
)

// AnchorClaims wraps the terminal digest in a JWS so it can be submitted
// to an external on-chain anchoring service without exposing the rest of
// the chain, grounded on the teacher's IdentityClaims/TokenManager pattern
// (jwt.RegisteredClaims plus domain fields), simplified to ES256 signing
// with a caller-supplied key rather than the teacher's KeySet abstraction.
type AnchorClaims struct {
	jwt.RegisteredClaims
	TerminalDigest string `json:"terminalDigest"`
	ChainLength    uint64 `json:"chainLength"`
	GenesisHash    string `json:"genesisHash"`
}

// SignAnchor produces a compact JWS anchoring c's terminal digest, signed
// with the caller's ECDSA private key.
func SignAnchor(c *chain.DigestChain, issuer string, key *ecdsa.PrivateKey, issuedAt time.Time) (string, error) {
	bundle := c.Export()
	claims := AnchorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
		TerminalDigest: bundle.TerminalDigest,
		ChainLength:    uint64(len(bundle.Links)),
		GenesisHash:    bundle.GenesisHash,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("export: sign anchor: %w", err)
	}
	return signed, nil
}

// VerifyAnchor parses and validates a JWS produced by SignAnchor against
// the given public key, returning the claims it anchors.
func VerifyAnchor(token string, pub *ecdsa.PublicKey) (*AnchorClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &AnchorClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("export: unexpected signing method %v", t.Header["alg"])
		}
		return pub, nil
	})
	if err != nil {
		return nil, fmt.Errorf("export: parse anchor: %w", err)
	}
	claims, ok := parsed.Claims.(*AnchorClaims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return claims, nil
}
