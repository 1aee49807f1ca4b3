// Package features derives cheap statistical summaries from uploaded
// images. Extraction is best-effort: any decode problem yields no
// features instead of an error, and the pipeline degrades to a
// lower-fidelity derivation.
package features

import (
	"bytes"
	"image"
	"os"

	"github.com/nfnt/resize"

	"plantdoc-server-go/internal/domain/capability"
	"plantdoc-server-go/internal/platform/logging"
)

const (
	// thumbSize bounds the downsampled image scanned at the full tier.
	thumbSize = 64
	// gridSize is the sparse sampling grid used at the image-only tier.
	gridSize = 8
)

// Features are coarse numeric summaries of an image. Channel means are
// on a 0..255 scale; VarianceProxy is the luma variance over the pixels
// that were inspected.
type Features struct {
	Width         int        `json:"width"`
	Height        int        `json:"height"`
	MeanChannel   [3]float64 `json:"mean_channel"`
	VarianceProxy float64    `json:"variance_proxy"`
}

// GreenDominant reports whether the green channel clearly dominates the
// others, a crude proxy for healthy foliage.
func (f *Features) GreenDominant() bool {
	if f == nil {
		return false
	}
	g := f.MeanChannel[1]
	return g > f.MeanChannel[0]*1.2 && g > f.MeanChannel[2]*1.2
}

// Extractor turns image files into Features according to the capability
// tier it is given.
type Extractor struct {
	logger *logging.Logger
}

func NewExtractor(logger *logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.Default
	}
	return &Extractor{logger: logger}
}

// Extract reads the file at path and derives features for the given
// tier. It returns nil — never an error — when the tier forbids image
// inspection or the file cannot be decoded.
func (e *Extractor) Extract(path string, tier capability.Tier) *Features {
	if tier == capability.TierNone {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		e.logger.WarnTag("PREDICT", "feature extraction skipped, unreadable file: %v", err)
		return nil
	}
	return e.ExtractBytes(data, tier)
}

// ExtractBytes derives features from in-memory image bytes.
func (e *Extractor) ExtractBytes(data []byte, tier capability.Tier) *Features {
	if tier == capability.TierNone || len(data) == 0 {
		return nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		e.logger.WarnTag("PREDICT", "feature extraction skipped, decode failed: %v", err)
		return nil
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil
	}

	var f *Features
	if tier == capability.TierFull {
		f = scanFull(img)
	} else {
		f = scanGrid(img)
	}
	f.Width = width
	f.Height = height

	e.logger.DebugTag("PREDICT",
		"features extracted: format=%s size=%dx%d mean=[%.1f %.1f %.1f] variance=%.1f",
		format, width, height, f.MeanChannel[0], f.MeanChannel[1], f.MeanChannel[2],
		f.VarianceProxy)
	return f
}

// scanFull downsamples the image and walks every remaining pixel.
func scanFull(img image.Image) *Features {
	small := resize.Thumbnail(thumbSize, thumbSize, img, resize.Lanczos3)
	bounds := small.Bounds()

	var sum [3]float64
	var lumaSum, lumaSqSum float64
	count := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b := channels255(small.At(x, y).RGBA())
			sum[0] += r
			sum[1] += g
			sum[2] += b
			luma := 0.299*r + 0.587*g + 0.114*b
			lumaSum += luma
			lumaSqSum += luma * luma
			count++
		}
	}

	return summarize(sum, lumaSum, lumaSqSum, count)
}

// scanGrid samples a fixed small grid of pixels without resizing,
// the approximation used when vectorized statistics are unavailable.
func scanGrid(img image.Image) *Features {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var sum [3]float64
	var lumaSum, lumaSqSum float64
	count := 0

	for gy := 0; gy < gridSize; gy++ {
		for gx := 0; gx < gridSize; gx++ {
			x := bounds.Min.X + gx*width/gridSize
			y := bounds.Min.Y + gy*height/gridSize
			r, g, b := channels255(img.At(x, y).RGBA())
			sum[0] += r
			sum[1] += g
			sum[2] += b
			luma := 0.299*r + 0.587*g + 0.114*b
			lumaSum += luma
			lumaSqSum += luma * luma
			count++
		}
	}

	return summarize(sum, lumaSum, lumaSqSum, count)
}

func channels255(r, g, b, _ uint32) (float64, float64, float64) {
	return float64(r) / 257.0, float64(g) / 257.0, float64(b) / 257.0
}

func summarize(sum [3]float64, lumaSum, lumaSqSum float64, count int) *Features {
	if count == 0 {
		return &Features{}
	}
	n := float64(count)
	mean := lumaSum / n
	return &Features{
		MeanChannel:   [3]float64{sum[0] / n, sum[1] / n, sum[2] / n},
		VarianceProxy: lumaSqSum/n - mean*mean,
	}
}
