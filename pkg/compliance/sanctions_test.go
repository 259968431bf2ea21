package compliance_test

import (
	"testing"

	"github.com/kontext-run/kontext-core/pkg/compliance"
	"github.com/stretchr/testify/assert"
)

func TestScreenAddress_KnownListedAddresses(t *testing.T) {
	cases := []struct {
		address string
		list    string
	}{
		{"0x8589427373d6d84e98730d7795d8f6f8731fda0", "Tornado Cash"},
		{"0x3cffd56b47b7b41c56258d9c7731abadc360e073", "Lazarus Group"},
		{"0x5b3f656c80e8ddb9ec01dd9018815576e9238c29", "Garantex"},
		{"0x3e9b4e0b721c53e4fb61e3a83c4d7f2f0e0a97fe", "Blender.io"},
	}
	for _, c := range cases {
		match, hit := compliance.ScreenAddress(c.address)
		assert.True(t, hit, "expected %s to be listed", c.address)
		assert.Contains(t, match.ListName, c.list)
	}
}

func TestScreenAddress_CaseInsensitive(t *testing.T) {
	_, hit := compliance.ScreenAddress("0x8589427373D6D84E98730D7795D8F6F8731FDA0")
	assert.True(t, hit)
}

func TestScreenAddress_CleanAddressNotListed(t *testing.T) {
	_, hit := compliance.ScreenAddress("0x1111111111111111111111111111111111111111")
	assert.False(t, hit)
}

func TestValidAddress_EVM(t *testing.T) {
	assert.True(t, compliance.ValidAddress("0x1111111111111111111111111111111111111111"))
	assert.False(t, compliance.ValidAddress("0x111"))
	assert.False(t, compliance.ValidAddress("not-hex"))
}

func TestValidAddress_Solana(t *testing.T) {
	assert.True(t, compliance.ValidAddress("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"))
	assert.False(t, compliance.ValidAddress("too-short"))
}
