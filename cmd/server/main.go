package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/taskgate/backend/api/handler"
	"github.com/taskgate/backend/internal/config"
	"github.com/taskgate/backend/internal/infrastructure/docstore"
	"github.com/taskgate/backend/internal/infrastructure/journal"
	"github.com/taskgate/backend/internal/infrastructure/monitor"
	"github.com/taskgate/backend/internal/middleware"
	"github.com/taskgate/backend/internal/router"
	"github.com/taskgate/backend/internal/services"
	"github.com/taskgate/backend/internal/services/lifecycle"
	"github.com/taskgate/backend/pkg/httpcontext"
	"github.com/taskgate/backend/pkg/logger"
	"github.com/taskgate/backend/pkg/token"
	boltRepo "github.com/taskgate/backend/repository/bolt"
	authUC "github.com/taskgate/backend/usecase/auth"
	taskUC "github.com/taskgate/backend/usecase/task"
	userUC "github.com/taskgate/backend/usecase/user"
	"github.com/taskgate/backend/usecase/xref"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	store, err := docstore.Open(cfg.Store.Path)
	if err != nil {
		zapLogger.Fatal("failed to open document store", zap.Error(err))
	}
	manager.Register("docstore", func(ctx context.Context) error {
		return store.Close()
	})

	repairJournal := journal.New(store)

	userRepo := boltRepo.NewUserRepository(store)
	taskRepo := boltRepo.NewTaskRepository(store)

	reconciler := services.NewReconciler(
		repairJournal,
		userRepo,
		taskRepo,
		zapLogger,
		services.ReconcilerConfig{
			Interval:   cfg.Reconciler.Interval,
			BatchSize:  cfg.Reconciler.BatchSize,
			MaxRetries: cfg.Reconciler.MaxRetries,
		},
	)
	reconciler.Start()
	manager.Register("reconciler", func(ctx context.Context) error {
		reconciler.Stop(ctx)
		return nil
	})

	mon := monitor.New(store, repairJournal, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	issuer := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	synchronizer := xref.New(userRepo, taskRepo, repairJournal, cfg.Reconciler.MaxRetries, zapLogger)

	authUseCase := authUC.New(userRepo, issuer, zapLogger)
	userUseCase := userUC.New(userRepo, synchronizer, zapLogger)
	taskUseCase := taskUC.New(taskRepo, userRepo, synchronizer, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:   apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger),
		User:   apiHandler.NewUserHandler(userUseCase, ctxAdapter, zapLogger),
		Task:   apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.Auth(issuer, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
