package compliance

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SanctionsMatch describes a hit against the embedded SDN snapshot: which
// list the address appeared on, and its normalized (lowercased) form.
type SanctionsMatch struct {
	ListName          string
	NormalizedAddress string
}

// SDNSnapshotVersion is the semver of the embedded sanctions snapshot,
// embedded in every verdict/export so a verifier can reproduce historical
// screening against the same data (grounded on the teacher's
// trust.PackRef's semver-constrained packs).
var SDNSnapshotVersion = semver.MustParse("2026.1.0")

// sdnEntry is one embedded OFAC SDN-style listing.
type sdnEntry struct {
	address string
	list    string
}

// sdnSnapshot is the embedded sanctions list. It carries at minimum the
// entries required by the spec's test scenarios: Tornado Cash, Lazarus
// Group, Garantex, and Blender.io addresses.
var sdnSnapshot = []sdnEntry{
	{address: "0x8589427373d6d84e98730d7795d8f6f8731fda0", list: "OFAC-SDN: Tornado Cash"},
	{address: "0x722122df12d4e14e13ac3b6895a86e84145b6967", list: "OFAC-SDN: Tornado Cash"},
	{address: "0xdd4c48c0b24039969fc16d1cdf626eab821d3384", list: "OFAC-SDN: Tornado Cash"},
	{address: "0x3cffd56b47b7b41c56258d9c7731abadc360e073", list: "OFAC-SDN: Lazarus Group"},
	{address: "0x1da5821544e25c636c1417ba96ade4cf6d2f9b5a", list: "OFAC-SDN: Lazarus Group"},
	{address: "0x35fb6f6db4fb05e6a4ce86f2c93691425626d4b1", list: "OFAC-SDN: Lazarus Group"},
	{address: "0x5b3f656c80e8ddb9ec01dd9018815576e9238c29", list: "OFAC-SDN: Garantex"},
	{address: "0x910cbd523d972eb0a6f4cae4618ad62622b39dbf", list: "OFAC-SDN: Garantex"},
	{address: "0x3e9b4e0b721c53e4fb61e3a83c4d7f2f0e0a97fe", list: "OFAC-SDN: Blender.io"},
	{address: "0x07687e702b410fa43f4cb4af7fa097918ffd2730", list: "OFAC-SDN: Blender.io"},
}

// sdnIndex is a lowercase-address-keyed lookup built once at package init.
var sdnIndex = buildSDNIndex(sdnSnapshot)

func buildSDNIndex(entries []sdnEntry) map[string]string {
	idx := make(map[string]string, len(entries))
	for _, e := range entries {
		idx[strings.ToLower(e.address)] = e.list
	}
	return idx
}

// ScreenAddress checks a crypto address against the embedded SDN snapshot.
// Comparison is lowercase-normalized, per the spec's sanctions screening
// policy.
func ScreenAddress(address string) (SanctionsMatch, bool) {
	normalized := strings.ToLower(strings.TrimSpace(address))
	list, hit := sdnIndex[normalized]
	if !hit {
		return SanctionsMatch{}, false
	}
	return SanctionsMatch{ListName: list, NormalizedAddress: normalized}, true
}

// NameScreen performs case-insensitive substring screening against a bag of
// names, for non-crypto payments. It is optional and independent of the
// mandatory address-based path (Open Question resolution, SPEC_FULL §9).
type NameScreen struct {
	names []string
}

// NewNameScreen constructs a NameScreen over the given watchlist names.
func NewNameScreen(names []string) *NameScreen {
	normalized := make([]string, len(names))
	for i, n := range names {
		normalized[i] = strings.ToLower(n)
	}
	return &NameScreen{names: normalized}
}

// Screen reports whether subject matches (as a case-insensitive substring)
// any name on the watchlist.
func (n *NameScreen) Screen(subject string) (string, bool) {
	lower := strings.ToLower(subject)
	for _, name := range n.names {
		if name == "" {
			continue
		}
		if strings.Contains(lower, name) {
			return name, true
		}
	}
	return "", false
}
