package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"echocore/config"
	"echocore/constant"
	jobHandler "echocore/handler"
	"echocore/pkg/asr"
	"echocore/pkg/rabbitmq"
	"echocore/repository"
	"echocore/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	projectRoot, err := os.Getwd()
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to resolve project root")
	}

	var notifier service.JobNotifier
	if cfg.Queue != nil {
		publisher, err := rabbitmq.NewPublisher(ctx, cfg.Queue)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("job event publisher unavailable, continuing without it")
		} else {
			defer publisher.Close()
			notifier = publisher
		}
	}

	store, err := repository.NewMeetingStore(cfg.Storage.MeetingsDir)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to open meeting store")
	}

	jobs := service.NewJobRegistry(notifier)
	locator := service.NewModelLocator(projectRoot, cfg.Offline.ModelSearchPaths, cfg.Offline.ModelsDir, cfg.Offline.CacheDir)
	devices := service.NewDeviceSelector(nil)
	factory := &asr.SubprocessFactory{
		Python: cfg.Engine.Python,
		Script: filepath.Join(projectRoot, cfg.Engine.Script),
		Caps: asr.Capabilities{
			DeviceOption:        cfg.Engine.SupportsDeviceOption,
			DisableUpdateOption: cfg.Engine.SupportsDisableUpdate,
		},
	}
	recognizer := service.NewRecognitionService(locator, devices, factory, store, jobs, cfg)

	uploads, err := service.NewUploadManager(cfg.Storage.UploadDir, cfg.Storage.TempDir, jobs, recognizer)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to prepare upload storage")
	}

	r := gin.Default()
	addHealth(r)
	jobHandler.New(uploads, jobs).Register(r)

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts inherit the logger context.
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := handler.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
