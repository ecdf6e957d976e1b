package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neetpractice/neetpractice/internal/api"
	"github.com/neetpractice/neetpractice/internal/config"
	"github.com/neetpractice/neetpractice/internal/gateway"
	"github.com/neetpractice/neetpractice/internal/jobs"
	"github.com/neetpractice/neetpractice/internal/logger"
	"github.com/neetpractice/neetpractice/internal/services"
	"github.com/neetpractice/neetpractice/internal/worker"
)

func main() {
	cfg := config.Load()

	// Initialize logger
	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithFormat(logger.ParseFormat(cfg.LogFormat)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}

	log.Info("===========================================")
	log.Info("NEET Practice Server Starting")
	log.Info("===========================================")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("remote_store=%v", cfg.UsesRemoteStore())
	log.Debug("local_db_path=%s", cfg.LocalDBPath)
	log.Debug("log_level=%s log_format=%s", cfg.LogLevel, cfg.LogFormat)
	log.Debug("quiz_duration=%s auto_advance=%s", cfg.QuizDuration(), cfg.AutoAdvanceDelay())
	log.Debug("save_worker_count=%d save_queue_size=%d", cfg.SaveWorkerCount, cfg.SaveQueueSize)
	log.Debug("cors_origins=%v", cfg.CORSOrigins)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw, err := gateway.Open(logger.NewContext(ctx, log), cfg)
	if err != nil {
		log.Error("failed to open storage: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing %s backend", gw.Backend())
		if err := gw.Close(); err != nil {
			log.Warn("failed to close backend: %v", err)
		}
	}()

	// Completed quiz attempts are persisted off the request path.
	savePool := worker.NewPool(cfg.SaveWorkerCount, cfg.SaveQueueSize)
	resultService := services.NewResultService(gw, cfg.DefaultSubjectTitle)
	quizService := services.NewQuizService(gw, jobs.NewWorkerQueue(savePool, resultService), services.QuizConfig{
		Duration:            cfg.QuizDuration(),
		AutoAdvance:         cfg.AutoAdvanceDelay(),
		DefaultSubjectTitle: cfg.DefaultSubjectTitle,
		CompletedTTL:        cfg.SessionRetention(),
		IdleTTL:             cfg.SessionIdleTimeout(),
	})

	srv := &api.Server{
		Gateway:         gw,
		SubjectService:  services.NewSubjectService(gw),
		BookService:     services.NewBookService(gw),
		ChapterService:  services.NewChapterService(gw),
		QuestionService: services.NewQuestionService(gw),
		QuizService:     quizService,
		ResultService:   resultService,
		StatsService:    services.NewStatsService(gw),
		FileService:     services.NewFileService(gw),
		MessageService:  services.NewMessageService(gw),
		BackupService:   services.NewBackupService(gw),
		CORSOrigins:     cfg.CORSOrigins,
	}

	savePool.Start(ctx)

	// Configure HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	// Sessions stop first so no new results reach the pool; queued saves
	// are drained before the backend closes.
	log.Debug("discarding quiz sessions")
	quizService.Close()
	log.Debug("stopping save pool")
	savePool.Stop()

	log.Info("===========================================")
	log.Info("NEET Practice Server Stopped")
	log.Info("===========================================")
}
