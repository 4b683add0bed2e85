package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/thoughtspace/internal/config"
	"github.com/xxxsen/thoughtspace/internal/handler"
	"github.com/xxxsen/thoughtspace/internal/job"
	"github.com/xxxsen/thoughtspace/internal/middleware"
	"github.com/xxxsen/thoughtspace/internal/schedule"
	"github.com/xxxsen/thoughtspace/internal/service"
	"github.com/xxxsen/thoughtspace/internal/store"
	"github.com/xxxsen/thoughtspace/internal/updatelog"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "thoughtspace",
		Short: "thoughtspace permission server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run thoughtspace server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	permStore := store.NewPermissionStore()
	views := store.NewViewStore()

	var persist *store.Persistence
	var permLog updatelog.Log
	if cfg.PermissionLog != nil {
		var err error
		permLog, err = updatelog.New(cfg.PermissionLog.Type, cfg.PermissionLog.Data)
		if err != nil {
			return fmt.Errorf("init permission log: %w", err)
		}
		persist = store.NewPersistence(permStore, permLog)
		// durability is best-effort: a broken log degrades persistence,
		// never availability
		if err := persist.Load(ctx); err != nil {
			logutil.GetLogger(ctx).Error("permission log load failed, continuing memory-only", zap.Error(err))
			persist = nil
		}
	}

	authService := service.NewAuthService(permStore, views)
	shareService := service.NewShareService(permStore, views)

	sessionTTL := time.Duration(cfg.SessionTTLMinutes) * time.Minute
	deps := handler.RouterDeps{
		Auth:           handler.NewAuthHandler(authService, []byte(cfg.JWTSecret), sessionTTL),
		Shares:         handler.NewShareHandler(shareService),
		JWTSecret:      []byte(cfg.JWTSecret),
		AuthRateWindow: time.Duration(cfg.AuthRateWindowMS) * time.Millisecond,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	var sched schedule.Scheduler
	if cfg.Compaction.Enable && persist != nil {
		sched = schedule.NewCronScheduler()
		if err := sched.AddJob(job.NewLogCompactionJob(permStore, permLog), cfg.Compaction.Spec); err != nil {
			return fmt.Errorf("schedule compaction: %w", err)
		}
		sched.Start(ctx)
	}

	logutil.GetLogger(ctx).Info("server listening", zap.String("addr", addr))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	if sched != nil {
		sched.Stop()
	}
	if persist != nil {
		persist.Close()
	}
	return nil
}
