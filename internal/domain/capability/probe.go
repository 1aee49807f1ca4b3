package capability

import (
	"bytes"
	"image"
	"sync"
)

// pngFixture is a 1x1 opaque PNG used to verify that image decoding is
// actually registered in this build. With the noimaging build tag the
// codecs are never imported and this decode fails, downgrading the tier.
var pngFixture = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, // signature
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52, // IHDR
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53,
	0xde, 0x00, 0x00, 0x00, 0x0c, 0x49, 0x44, 0x41, // IDAT
	0x54, 0x08, 0xd7, 0x63, 0xf8, 0xcf, 0xc0, 0x00,
	0x00, 0x00, 0x03, 0x00, 0x01, 0x9e, 0xde, 0x7a,
	0x8e, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, // IEND
	0x44, 0xae, 0x42, 0x60, 0x82,
}

var (
	detectOnce   sync.Once
	detectedTier Tier

	overrideMu  sync.RWMutex
	overridden  bool
	overrideVal Tier
)

// Detect returns the capability tier of this process. The probe runs
// once and is memoized for the process lifetime; it never fails, any
// probe error simply downgrades the corresponding capability.
func Detect() Tier {
	overrideMu.RLock()
	if overridden {
		t := overrideVal
		overrideMu.RUnlock()
		return t
	}
	overrideMu.RUnlock()

	detectOnce.Do(func() {
		detectedTier = probe()
	})
	return detectedTier
}

func probe() Tier {
	if !imagingAvailable() {
		return TierNone
	}
	if !statsSupported {
		return TierImageOnly
	}
	return TierFull
}

func imagingAvailable() bool {
	_, _, err := image.DecodeConfig(bytes.NewReader(pngFixture))
	return err == nil
}

// Override pins the detected tier, bypassing the probe. Intended for
// tests and for deployments that force a degraded mode via config.
func Override(t Tier) {
	overrideMu.Lock()
	overridden = true
	overrideVal = t
	overrideMu.Unlock()
}

// ClearOverride restores probe-based detection.
func ClearOverride() {
	overrideMu.Lock()
	overridden = false
	overrideMu.Unlock()
}
