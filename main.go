package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"reelpick/config"
	"reelpick/handlers"
	"reelpick/internal/database"
	"reelpick/services/accounts"
	"reelpick/services/backup"
	"reelpick/services/jobs"
	"reelpick/services/metadata"
	"reelpick/services/refresh"
	"reelpick/services/sessions"
	"reelpick/services/youtube"
	"reelpick/utils"
)

func main() {
	cfg := config.Load()

	if cfg.LogFile != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	if cfg.OMDbAPIKey == "" {
		log.Println("[main] OMDB_API_KEY is not set; metadata lookups will fail")
	}

	db, err := database.NewDB(database.Config{DatabasePath: cfg.DatabasePath})
	if err != nil {
		log.Fatalf("[main] opening database: %v", err)
	}
	defer db.Close()

	movies := database.NewMovieRepository(db.Connection())
	info := database.NewInfoRepository(db.Connection())
	users := database.NewUserRepository(db.Connection())

	httpc := &http.Client{Timeout: cfg.HTTPTimeout}
	yt := youtube.NewClient(httpc)
	metaSvc := metadata.NewService(cfg.OMDbAPIKey, httpc, info, cfg.CacheTTL)

	accountsSvc := accounts.NewService(users, movies)
	if err := accountsSvc.EnsureAdmin(cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("[main] seeding admin account: %v", err)
	}

	sessionsSvc, err := sessions.NewService(cfg.DataDir, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("[main] starting sessions: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := jobs.NewService(16)
	if err := runner.Start(ctx); err != nil {
		log.Fatalf("[main] starting job executor: %v", err)
	}
	defer runner.Stop()

	refreshSvc := refresh.NewService(movies, info, yt, metaSvc, runner)

	backupSvc, err := backup.NewService(cfg.DataDir)
	if err != nil {
		log.Fatalf("[main] starting backups: %v", err)
	}

	router := utils.NewRouter()
	handlers.RegisterRoutes(router, handlers.Services{
		Movies:   movies,
		Info:     info,
		Accounts: accountsSvc,
		Sessions: sessionsSvc,
		Metadata: metaSvc,
		Refresh:  refreshSvc,
		Jobs:     runner,
		Backups:  backupSvc,
		YouTube:  yt,
		HTTP:     httpc,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("[main] listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[main] shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] shutdown: %v", err)
	}
}
