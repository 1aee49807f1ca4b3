// Package upload validates incoming image files and assigns them safe
// storage names. Validation is deliberately permissive about content:
// a file with an allowed extension that fails to decode is accepted
// with a warning, because the prediction pipeline downgrades gracefully
// instead of erroring on undecodable content.
package upload

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	// Codec registration travels with the capability build tags.
	_ "plantdoc-server-go/internal/domain/capability"
	"plantdoc-server-go/internal/platform/config"
	"plantdoc-server-go/internal/platform/logging"
)

// imageSignatures maps declared formats to their magic bytes.
var imageSignatures = map[string][]byte{
	"jpeg": {0xFF, 0xD8},
	"jpg":  {0xFF, 0xD8},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"gif":  {0x47, 0x49, 0x46, 0x38},
	"webp": {0x52, 0x49, 0x46, 0x46},
	"bmp":  {0x42, 0x4D},
}

// ValidationResult captures the outcome of upload validation.
type ValidationResult struct {
	IsValid  bool
	Format   string
	Width    int
	Height   int
	FileSize int64
	Error    error
}

// Validator performs layered checks against incoming uploads.
type Validator struct {
	cfg    *config.UploadConfig
	logger *logging.Logger
}

func NewValidator(cfg *config.UploadConfig, logger *logging.Logger) *Validator {
	if logger == nil {
		logger = logging.Default
	}
	return &Validator{cfg: cfg, logger: logger}
}

// Extension returns the lowercase extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// AllowedExtension reports whether the filename carries a whitelisted
// image extension.
func (v *Validator) AllowedExtension(filename string) bool {
	ext := Extension(filename)
	if ext == "" {
		return false
	}
	for _, allowed := range v.cfg.AllowedFormats {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

// ValidateBytes checks an upload's raw bytes against the configured
// limits. Decode-based dimension checks are best-effort: undecodable
// content passes with a warning and degrades downstream.
func (v *Validator) ValidateBytes(data []byte, filename string) ValidationResult {
	result := ValidationResult{FileSize: int64(len(data))}

	if len(data) == 0 {
		result.Error = fmt.Errorf("empty upload")
		return result
	}

	if v.cfg.MaxFileSize > 0 && int64(len(data)) > v.cfg.MaxFileSize {
		result.Error = fmt.Errorf("file size exceeds limit: %d bytes (max %d bytes)",
			len(data), v.cfg.MaxFileSize)
		v.logger.WarnTag("UPLOAD", "oversized upload rejected: size=%d max=%d",
			len(data), v.cfg.MaxFileSize)
		return result
	}

	if !v.AllowedExtension(filename) {
		result.Error = fmt.Errorf("unsupported file type: %q", Extension(filename))
		return result
	}

	declared := Extension(filename)
	if !matchesSignature(data, declared) {
		header := fmt.Sprintf("%x", data[:min(len(data), 8)])
		v.logger.WarnTag("UPLOAD", "file signature mismatch: declared=%s header=%s",
			declared, header)
	}

	cfgImg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		// Leave rejection to the pipeline's graceful degradation.
		v.logger.WarnTag("UPLOAD", "upload not decodable, accepting for degraded analysis: %v", err)
		result.IsValid = true
		result.Format = declared
		return result
	}

	result.Format = format
	result.Width = cfgImg.Width
	result.Height = cfgImg.Height

	if v.cfg.MaxWidth > 0 && cfgImg.Width > v.cfg.MaxWidth ||
		v.cfg.MaxHeight > 0 && cfgImg.Height > v.cfg.MaxHeight {
		result.Error = fmt.Errorf("dimensions exceed limit: %dx%d (max %dx%d)",
			cfgImg.Width, cfgImg.Height, v.cfg.MaxWidth, v.cfg.MaxHeight)
		return result
	}

	if v.cfg.MaxPixels > 0 {
		totalPixels := int64(cfgImg.Width) * int64(cfgImg.Height)
		if totalPixels > v.cfg.MaxPixels {
			result.Error = fmt.Errorf("pixel count exceeds limit: %d (max %d)",
				totalPixels, v.cfg.MaxPixels)
			return result
		}
	}

	result.IsValid = true
	return result
}

func matchesSignature(data []byte, format string) bool {
	signature, ok := imageSignatures[strings.ToLower(format)]
	if !ok || len(signature) == 0 {
		return true
	}
	if len(data) < len(signature) {
		return false
	}
	return bytes.Equal(signature, data[:len(signature)])
}

// StoredName generates a unique, collision-free storage name preserving
// only the upload's extension: plant_<timestamp>_<uuid8>.<ext>.
func StoredName(filename string) string {
	ext := Extension(filename)
	if ext == "" {
		ext = "bin"
	}
	timestamp := time.Now().Format("20060102_150405")
	uniqueID := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("plant_%s_%s.%s", timestamp, uniqueID, ext)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
