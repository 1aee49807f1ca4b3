package predict

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"

	"plantdoc-server-go/internal/domain/capability"
	"plantdoc-server-go/internal/domain/features"
	"plantdoc-server-go/internal/platform/logging"
)

// Engine runs the full fallback pipeline for one stored image. It holds
// no mutable state beyond the read-only tier and is safe for concurrent
// use.
type Engine struct {
	tier      capability.Tier
	extractor *features.Extractor
	logger    *logging.Logger
}

// Analysis bundles the result with the inputs that produced it, for
// callers that cache or persist outcomes.
type Analysis struct {
	Result      Result
	Features    *features.Features
	Fingerprint string
}

func NewEngine(tier capability.Tier, extractor *features.Extractor, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default
	}
	if extractor == nil {
		extractor = features.NewExtractor(logger)
	}
	return &Engine{
		tier:      tier,
		extractor: extractor,
		logger:    logger,
	}
}

// Tier returns the capability tier the engine was built with.
func (e *Engine) Tier() capability.Tier {
	return e.tier
}

// Analyze runs extraction, synthesis and formatting for the image at
// imagePath. filename is the original client-provided name used for
// deterministic seeding. The returned error is only ever an internal
// invariant violation; all expected degradation is absorbed.
func (e *Engine) Analyze(ctx context.Context, imagePath, filename string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}

	var fileSize int64
	if info, err := os.Stat(imagePath); err == nil {
		fileSize = info.Size()
	}

	if filename == "" {
		filename = filepath.Base(imagePath)
	}

	f := e.extractor.Extract(imagePath, e.tier)
	synthesis := Synthesize(f, filename, fileSize, e.tier)

	result, err := Format(synthesis)
	if err != nil {
		// Unreachable given the modulo invariant; if it fires the
		// synthesizer is broken and the caller should know.
		e.logger.ErrorTag("PREDICT", "catalog bounds violation: index=%d", synthesis.LabelIndex)
		return Analysis{}, err
	}

	e.logger.InfoTag("PREDICT", "analysis: file=%s label=%q confidence=%d tier=%s",
		filename, result.Label, result.Confidence, result.Tier)

	return Analysis{
		Result:      result,
		Features:    f,
		Fingerprint: Fingerprint(imagePath, filename, e.tier),
	}, nil
}

// Fingerprint builds a stable cache key from the stored file content,
// the original filename and the tier. The pipeline is deterministic, so
// equal fingerprints imply equal results.
func Fingerprint(imagePath, filename string, tier capability.Tier) string {
	h := fnv.New64a()
	h.Write([]byte(filename))
	h.Write([]byte{0})
	h.Write([]byte(tier))
	h.Write([]byte{0})
	if data, err := os.ReadFile(imagePath); err == nil {
		h.Write(data)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
