// Package bootstrap wires configuration, logging, capability probing,
// storage, caching and the HTTP transport into a running service.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"plantdoc-server-go/internal/domain/capability"
	"plantdoc-server-go/internal/domain/features"
	"plantdoc-server-go/internal/domain/predict"
	"plantdoc-server-go/internal/domain/results"
	platformconfig "plantdoc-server-go/internal/platform/config"
	platformerrors "plantdoc-server-go/internal/platform/errors"
	platformlogging "plantdoc-server-go/internal/platform/logging"
	platformstorage "plantdoc-server-go/internal/platform/storage"
	httptransport "plantdoc-server-go/internal/transport/http"
	httpprediction "plantdoc-server-go/internal/transport/http/prediction"
	httpwebapi "plantdoc-server-go/internal/transport/http/webapi"
)

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	config     *platformconfig.Config
	configPath string
	logger     *platformlogging.Logger
	tier       capability.Tier
	db         *gorm.DB
	history    *platformstorage.HistoryRepository
	cache      results.Store
	engine     *predict.Engine
}

// Run starts the whole service lifecycle: configuration, dependency
// initialisation, the HTTP server and graceful shutdown.
func Run(ctx context.Context) error {
	state := &appState{}

	if err := executeInitSteps(ctx, InitGraph(), state); err != nil {
		return err
	}

	config := state.config
	logger := state.logger
	if config == nil || logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"config/logger not initialised",
		)
	}
	if state.engine == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"bootstrap state validation",
			"prediction engine not initialised",
		)
	}

	defer func() {
		if state.cache != nil {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := state.cache.Close(closeCtx); err != nil {
				logger.WarnTag("BOOT", "results cache did not close cleanly: %v", err)
			}
		}
	}()

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	if err := waitForShutdown(signalCtx, cancel, logger, group); err != nil {
		return err
	}

	logger.InfoTag("BOOT", "service stopped")
	logger.Close()
	return nil
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init",
			Title:     "Initialise logging",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "capability:resolve-tier",
			Title:     "Resolve capability tier",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindPipeline,
			Execute:   resolveTierStep,
		},
		{
			ID:        "storage:open",
			Title:     "Open history storage",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindStorage,
			Execute:   openStorageStep,
		},
		{
			ID:        "cache:init",
			Title:     "Initialise results cache",
			DependsOn: []string{"logging:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initCacheStep,
		},
		{
			ID:        "engine:init",
			Title:     "Initialise prediction engine",
			DependsOn: []string{"capability:resolve-tier"},
			Kind:      platformerrors.KindPipeline,
			Execute:   initEngineStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	result, err := platformconfig.NewLoader().Load()
	if err != nil {
		return err
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"logging:init",
			"config not loaded",
		)
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init", "failed to initialise logging", err)
	}
	state.logger = logger

	source := state.configPath
	if source == "" {
		source = "defaults"
	}
	logger.InfoTag("BOOT", "logging ready [%s] config=%s", state.config.Log.Level, source)
	return nil
}

func resolveTierStep(_ context.Context, state *appState) error {
	if state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"capability:resolve-tier",
			"missing config/logger",
		)
	}

	forced := strings.TrimSpace(state.config.Prediction.ForceTier)
	if forced != "" {
		tier, ok := capability.ParseTier(forced)
		if !ok {
			return platformerrors.New(
				platformerrors.KindConfig,
				"capability:resolve-tier",
				fmt.Sprintf("unknown forced tier %q", forced),
			)
		}
		capability.Override(tier)
		state.tier = tier
		state.logger.InfoTag("BOOT", "capability tier forced to %s", tier)
		return nil
	}

	state.tier = capability.Detect()
	state.logger.InfoTag("BOOT", "capability tier detected: %s", state.tier)
	return nil
}

func openStorageStep(_ context.Context, state *appState) error {
	if state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"storage:open",
			"missing config/logger",
		)
	}
	if !state.config.Storage.Enabled {
		state.logger.InfoTag("BOOT", "history storage disabled")
		return nil
	}

	db, err := platformstorage.Open(state.config.Storage.Dir, state.config.Storage.File)
	if err != nil {
		return err
	}
	state.db = db
	state.history = platformstorage.NewHistoryRepository(db)
	state.logger.InfoTag("BOOT", "history storage ready at %s/%s",
		state.config.Storage.Dir, state.config.Storage.File)
	return nil
}

func initCacheStep(_ context.Context, state *appState) error {
	if state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"cache:init",
			"missing config/logger",
		)
	}
	if !state.config.Cache.Enabled {
		state.logger.InfoTag("BOOT", "results cache disabled")
		return nil
	}

	cacheCfg := results.Config{
		Driver: state.config.Cache.Driver,
		TTL:    state.config.Cache.TTL,
	}
	if rc := state.config.Cache.Redis; rc != nil {
		cacheCfg.Redis = &results.RedisConfig{
			Addr:     rc.Addr,
			Username: rc.Username,
			Password: rc.Password,
			DB:       rc.DB,
			Prefix:   rc.Prefix,
		}
	}
	if mc := state.config.Cache.Memory; mc != nil {
		cacheCfg.Memory = &results.MemoryConfig{GCInterval: mc.GCInterval}
	}

	if cacheCfg.Driver == results.DriverRedis && (cacheCfg.Redis == nil || cacheCfg.Redis.Addr == "") {
		state.logger.WarnTag("BOOT", "redis cache selected without addr, falling back to memory")
		cacheCfg.Driver = results.DriverMemory
	}

	cache, err := results.New(cacheCfg)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "cache:init", "failed to create results cache", err)
	}
	state.cache = cache
	state.logger.InfoTag("BOOT", "results cache ready (driver=%s ttl=%s)",
		cacheCfg.Driver, state.config.Cache.TTL)
	return nil
}

func initEngineStep(_ context.Context, state *appState) error {
	if state.config == nil || state.logger == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"engine:init",
			"missing config/logger",
		)
	}

	extractor := features.NewExtractor(state.logger)
	state.engine = predict.NewEngine(state.tier, extractor, state.logger)
	return nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	config := state.config
	logger := state.logger

	httpRouter, err := httptransport.Build(httptransport.Options{
		Config:     config,
		Logger:     logger,
		UploadRoot: config.Upload.Dir,
	})
	if err != nil {
		return nil, err
	}
	router := httpRouter.Engine
	apiGroup := httpRouter.API

	router.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api") {
			c.JSON(http.StatusNotFound, httptransport.APIResponse{
				Success: false,
				Data:    gin.H{},
				Message: "api not found",
				Code:    http.StatusNotFound,
			})
			return
		}

		if config.Web.Enabled {
			staticRoot := config.Web.StaticDir
			if staticRoot == "" {
				staticRoot = "./web"
			}
			c.File(staticRoot + "/index.html")
			return
		}
		c.Status(http.StatusNotFound)
	})

	predictionService, err := httpprediction.NewService(httpprediction.Options{
		Config:  config,
		Logger:  logger,
		Engine:  state.engine,
		Cache:   state.cache,
		History: state.history,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "prediction:new-service", "failed to create prediction service", err)
	}

	webapiService, err := httpwebapi.NewService(httpwebapi.Options{
		Config:  config,
		Logger:  logger,
		Tier:    state.engine.Tier(),
		History: state.history,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "webapi:new-service", "failed to create webapi service", err)
	}

	predictionService.Register(groupCtx, apiGroup)
	webapiService.Register(groupCtx, apiGroup)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Server.IP, config.Server.Port),
		Handler: router,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "server listening on http://%s", httpServer.Addr)
		logger.InfoTag("HTTP", "prediction endpoint: http://%s/api/predict", httpServer.Addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "server shutdown failed: %v", err)
			} else {
				logger.InfoTag("HTTP", "server shut down cleanly")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag("BOOT", "shutdown signal received: %v", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "error during shutdown: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "all services stopped")
	case <-time.After(15 * time.Second):
		logger.ErrorTag("BOOT", "shutdown timed out, forcing exit")
		return errors.New("shutdown timed out")
	}
	return nil
}
