// Package capability detects which optional processing support is
// compiled into the running binary and maps it onto a fallback tier for
// the prediction pipeline.
package capability

import "strings"

// Tier is the level of optional processing support available at runtime.
type Tier string

const (
	// TierFull means image decoding and numeric statistics are both available.
	TierFull Tier = "full"
	// TierImageOnly means images can be decoded but only coarse,
	// sampling-based statistics are available.
	TierImageOnly Tier = "image_only"
	// TierNone means no image content can be inspected at all.
	TierNone Tier = "none"
)

// Valid reports whether t is a recognised tier value.
func (t Tier) Valid() bool {
	switch t {
	case TierFull, TierImageOnly, TierNone:
		return true
	}
	return false
}

// MaxConfidence is the ceiling of the confidence band for this tier.
// Lower-trust tiers always cap below higher-trust ones.
func (t Tier) MaxConfidence() int {
	switch t {
	case TierFull:
		return 98
	case TierImageOnly:
		return 85
	default:
		return 70
	}
}

// MinConfidence is the floor of the confidence band for this tier.
func (t Tier) MinConfidence() int {
	switch t {
	case TierFull:
		return 55
	case TierImageOnly:
		return 40
	default:
		return 30
	}
}

// ParseTier converts a config/env string into a Tier.
func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if t.Valid() {
		return t, true
	}
	return "", false
}
