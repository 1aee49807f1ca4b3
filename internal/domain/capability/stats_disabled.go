//go:build nostats

package capability

const statsSupported = false
