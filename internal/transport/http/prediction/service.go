// Package prediction exposes the analysis pipeline over HTTP. It is
// the only place where the deterministic core meets the results cache
// and the history store.
package prediction

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"plantdoc-server-go/internal/domain/features"
	"plantdoc-server-go/internal/domain/predict"
	"plantdoc-server-go/internal/domain/results"
	"plantdoc-server-go/internal/domain/upload"
	"plantdoc-server-go/internal/platform/config"
	"plantdoc-server-go/internal/platform/logging"
	"plantdoc-server-go/internal/platform/storage"
	httptransport "plantdoc-server-go/internal/transport/http"
)

// Service handles image uploads and returns analysis results.
type Service struct {
	cfg       *config.Config
	logger    *logging.Logger
	validator *upload.Validator
	engine    *predict.Engine
	cache     results.Store
	history   *storage.HistoryRepository
}

// Options carries the service dependencies. Cache and History are
// optional; the service works without either.
type Options struct {
	Config  *config.Config
	Logger  *logging.Logger
	Engine  *predict.Engine
	Cache   results.Store
	History *storage.HistoryRepository
}

func NewService(opts Options) (*Service, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("prediction service requires config")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("prediction service requires an engine")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default
	}

	return &Service{
		cfg:       opts.Config,
		logger:    logger,
		validator: upload.NewValidator(&opts.Config.Upload, logger),
		engine:    opts.Engine,
		cache:     opts.Cache,
		history:   opts.History,
	}, nil
}

// Register mounts the prediction routes on the API group.
func (s *Service) Register(ctx context.Context, api *gin.RouterGroup) {
	api.POST("/predict", s.handlePredict)
}

// predictionPayload is the JSON body of a successful prediction.
type predictionPayload struct {
	Result     predict.Result `json:"result"`
	Filename   string         `json:"filename"`
	StoredName string         `json:"stored_name"`
	ImageURL   string         `json:"image_url"`
	Cached     bool           `json:"cached"`
}

func (s *Service) handlePredict(c *gin.Context) {
	fileHeader, err := c.FormFile("img")
	if err != nil {
		httptransport.RespondError(c, http.StatusBadRequest, "missing file field 'img'", nil)
		return
	}

	data, err := readUpload(fileHeader.Open())
	if err != nil {
		s.logger.ErrorTag("UPLOAD", "failed to read upload %q: %v", fileHeader.Filename, err)
		httptransport.RespondError(c, http.StatusBadRequest, "failed to read upload", nil)
		return
	}

	filename := fileHeader.Filename
	validation := s.validator.ValidateBytes(data, filename)
	if validation.Error != nil {
		status := http.StatusBadRequest
		if s.cfg.Upload.MaxFileSize > 0 && validation.FileSize > s.cfg.Upload.MaxFileSize {
			status = http.StatusRequestEntityTooLarge
		}
		httptransport.RespondError(c, status, validation.Error.Error(), nil)
		return
	}

	storedName := upload.StoredName(filename)
	storedPath, err := s.persistUpload(storedName, data)
	if err != nil {
		s.logger.ErrorTag("UPLOAD", "failed to store upload %q: %v", filename, err)
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to store upload", nil)
		return
	}
	s.logger.InfoTag("UPLOAD", "stored %q as %s (%d bytes)", filename, storedName, len(data))

	payload := predictionPayload{
		Filename:   filename,
		StoredName: storedName,
		ImageURL:   "/uploads/" + storedName,
	}

	fingerprint := predict.Fingerprint(storedPath, filename, s.engine.Tier())

	if cached, ok := s.cacheGet(c.Request.Context(), fingerprint); ok {
		payload.Result = cached
		payload.Cached = true
		s.recordHistory(filename, storedName, fingerprint, cached, nil)
		httptransport.RespondSuccess(c, http.StatusOK, payload, "prediction complete")
		return
	}

	analysis, err := s.engine.Analyze(c.Request.Context(), storedPath, filename)
	if err != nil {
		httptransport.RespondError(c, http.StatusInternalServerError, "analysis failed", nil)
		return
	}

	payload.Result = analysis.Result
	s.cachePut(c.Request.Context(), fingerprint, analysis.Result)
	s.recordHistory(filename, storedName, fingerprint, analysis.Result, &analysis)

	httptransport.RespondSuccess(c, http.StatusOK, payload, "prediction complete")
}

func (s *Service) persistUpload(storedName string, data []byte) (string, error) {
	dir := s.cfg.Upload.Dir
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, storedName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Service) cacheGet(ctx context.Context, key string) (predict.Result, bool) {
	if s.cache == nil {
		return predict.Result{}, false
	}
	result, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnTag("CACHE", "lookup failed for %s: %v", key, err)
		return predict.Result{}, false
	}
	if found {
		s.logger.InfoTag("CACHE", "hit for %s", key)
	}
	return result, found
}

func (s *Service) cachePut(ctx context.Context, key string, result predict.Result) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, key, result); err != nil {
		s.logger.WarnTag("CACHE", "store failed for %s: %v", key, err)
	}
}

func (s *Service) recordHistory(filename, storedName, fingerprint string, result predict.Result, analysis *predict.Analysis) {
	if s.history == nil {
		return
	}
	record := &storage.AnalysisRecord{
		Filename:    filename,
		StoredName:  storedName,
		Fingerprint: fingerprint,
		Label:       result.Label,
		Confidence:  result.Confidence,
		Tier:        result.Tier,
		Healthy:     result.Healthy,
	}
	var f *features.Features
	if analysis != nil {
		f = analysis.Features
	}
	if err := s.history.Save(record, f); err != nil {
		s.logger.WarnTag("STORE", "failed to record analysis for %s: %v", storedName, err)
	}
}

func readUpload(file io.ReadCloser, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
