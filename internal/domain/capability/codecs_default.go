//go:build !noimaging

package capability

// Image codecs are linked here so a single build tag removes decoding
// support from the whole binary. Every downstream consumer reaches the
// codecs through this package.
import (
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)
