// Package webapi serves the informational endpoints: health, service
// info, system metrics and analysis history.
package webapi

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"plantdoc-server-go/internal/domain/capability"
	"plantdoc-server-go/internal/domain/catalog"
	"plantdoc-server-go/internal/platform/config"
	"plantdoc-server-go/internal/platform/logging"
	"plantdoc-server-go/internal/platform/storage"
	httptransport "plantdoc-server-go/internal/transport/http"
)

const (
	serviceName    = "plantdoc-server"
	serviceVersion = "1.0.0"
)

// Service exposes the read-only web API.
type Service struct {
	cfg     *config.Config
	logger  *logging.Logger
	tier    capability.Tier
	history *storage.HistoryRepository
	started time.Time
}

// Options carries the webapi dependencies. History is optional.
type Options struct {
	Config  *config.Config
	Logger  *logging.Logger
	Tier    capability.Tier
	History *storage.HistoryRepository
}

func NewService(opts Options) (*Service, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("webapi service requires config")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default
	}

	return &Service{
		cfg:     opts.Config,
		logger:  logger,
		tier:    opts.Tier,
		history: opts.History,
		started: time.Now(),
	}, nil
}

// Register mounts the informational routes on the API group.
func (s *Service) Register(ctx context.Context, api *gin.RouterGroup) {
	api.GET("/health", s.handleHealth)
	api.GET("/info", s.handleInfo)
	api.GET("/system", s.handleSystem)
	api.GET("/history", s.handleHistory)
}

func (s *Service) handleHealth(c *gin.Context) {
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, "service healthy")
}

func (s *Service) handleInfo(c *gin.Context) {
	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"name":            serviceName,
		"version":         serviceVersion,
		"tier":            s.tier,
		"classes":         catalog.Len(),
		"allowed_formats": s.cfg.Upload.AllowedFormats,
		"max_file_size":   s.cfg.Upload.MaxFileSize,
		"uptime_seconds":  int64(time.Since(s.started).Seconds()),
	}, "service info")
}

func (s *Service) handleSystem(c *gin.Context) {
	data := gin.H{
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		data["cpu_percent"] = percents[0]
	} else if err != nil {
		s.logger.WarnTag("WEBAPI", "cpu sample failed: %v", err)
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		data["memory"] = gin.H{
			"total":        vm.Total,
			"used":         vm.Used,
			"used_percent": vm.UsedPercent,
		}
	} else {
		s.logger.WarnTag("WEBAPI", "memory sample failed: %v", err)
	}

	if info, err := host.Info(); err == nil {
		data["host"] = gin.H{
			"hostname": info.Hostname,
			"os":       info.OS,
			"platform": info.Platform,
			"uptime":   info.Uptime,
		}
	} else {
		s.logger.WarnTag("WEBAPI", "host info failed: %v", err)
	}

	httptransport.RespondSuccess(c, http.StatusOK, data, "system metrics")
}

func (s *Service) handleHistory(c *gin.Context) {
	if s.history == nil {
		httptransport.RespondError(c, http.StatusServiceUnavailable, "history storage disabled", nil)
		return
	}

	limit := s.cfg.Storage.HistoryLimit
	records, err := s.history.Recent(limit)
	if err != nil {
		s.logger.ErrorTag("WEBAPI", "history query failed: %v", err)
		httptransport.RespondError(c, http.StatusInternalServerError, "failed to load history", nil)
		return
	}

	count, err := s.history.Count()
	if err != nil {
		s.logger.WarnTag("WEBAPI", "history count failed: %v", err)
	}

	httptransport.RespondSuccess(c, http.StatusOK, gin.H{
		"records": records,
		"total":   count,
	}, "analysis history")
}
