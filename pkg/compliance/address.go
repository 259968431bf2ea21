package compliance

import "regexp"

var hexAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ValidAddress reports whether address is a well-formed EVM address
// (0x-prefixed, 40 hex chars) or a Solana address (base58, length 32-44).
func ValidAddress(address string) bool {
	if hexAddressPattern.MatchString(address) {
		return true
	}
	return isBase58(address) && len(address) >= 32 && len(address) <= 44
}

func isBase58(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !containsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

// SupportedChains is the base (non-gated) chain set.
var SupportedChains = map[string]bool{
	"ethereum": true,
	"base":     true,
	"polygon":  true,
}

// ExtendedChains is the plan-gated chain set (SPEC_FULL §4.3: "extended set
// behind plan gate").
var ExtendedChains = map[string]bool{
	"arbitrum": true,
	"optimism": true,
	"solana":   true,
	"avalanche": true,
}

// SupportedTokens is the fixed stablecoin set the Compliance Engine
// recognizes.
var SupportedTokens = map[string]bool{
	"USDC": true,
	"USDT": true,
	"DAI":  true,
	"EURC": true,
	"USDP": true,
	"USDG": true,
}
