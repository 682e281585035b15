package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"access-tool/internal/common/config"
	"access-tool/internal/common/logger"
	"access-tool/internal/features/condition/registry"
	sandboxhttp "access-tool/internal/sandbox/delivery/http"
	"access-tool/internal/sandbox/repository"
	"access-tool/internal/sandbox/service"
	"access-tool/internal/workers"
)

func main() {
	// Инициализируем конфигурацию (.env подхватывается в config.Load)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализируем логгер
	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("Starting Access Tool sandbox",
		zap.Bool("debug", cfg.Debug),
		zap.Bool("seed", cfg.Sandbox.Seed),
	)
	if cfg.Sandbox.BotToken == "" {
		zlog.Warn("BOT_TOKEN is empty, init data signatures are not checked")
	}

	// Хранилище в памяти: данные живут до перезапуска
	repo := repository.NewMemory()
	if cfg.Sandbox.Seed {
		if err := repository.Seed(context.Background(), repo); err != nil {
			zlog.Fatal("Failed to seed demo chats", zap.Error(err))
		}
		zlog.Info("Demo chats seeded")
	}

	tasks := workers.NewTaskWorker(repo, cfg.Sandbox.TaskDelay, zlog)
	defer tasks.Close()

	// Инициализируем сервисы
	resources := service.NewResources(registry.New())
	handler := sandboxhttp.NewHandler(sandboxhttp.Services{
		Auth: service.NewAuth(repo, service.AuthOptions{
			BotToken:       cfg.Sandbox.BotToken,
			Secret:         cfg.Sandbox.JWTSecret,
			TokenTTL:       cfg.Sandbox.TokenTTL,
			InitDataMaxAge: cfg.Auth.InitDataMaxAge,
		}, zlog),
		Chats:     service.NewChats(repo, repo, zlog),
		Rules:     service.NewRules(repo, resources, zlog),
		Resources: resources,
		Wallets: service.NewWallets(repo,
			service.NewProofVerifier(cfg.Sandbox.ProofDomain, cfg.Sandbox.ProofTTL), tasks, zlog),
	}, cfg.Sandbox.AdminIDs, zlog)

	// Настраиваем Gin
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := sandboxhttp.NewRouter(handler, sandboxhttp.RouterOptions{
		Origin:    cfg.Sandbox.Origin,
		AccessLog: logger.Access(os.Stdout, "access-sandbox", cfg.Debug),
		Logger:    zlog,
		Sandbox:   true,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Sandbox.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		zlog.Info("Starting HTTP server", zap.Int("port", cfg.Sandbox.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Ждем сигнала для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}

	zlog.Info("Server exited")
}
