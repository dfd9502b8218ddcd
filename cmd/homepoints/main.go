package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fzheng/homepoints/internal/backup"
	"github.com/fzheng/homepoints/internal/database"
	"github.com/fzheng/homepoints/internal/logging"
	"github.com/fzheng/homepoints/internal/server"
)

func main() {
	port := envOr("HOMEPOINTS_PORT", "8080")
	dbPath := envOr("HOMEPOINTS_DB_PATH", "homepoints.db")

	logger := logging.Setup(os.Getenv("HOMEPOINTS_LOG_LEVEL"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("HOMEPOINTS_S3_ENDPOINT"),
			Bucket:    os.Getenv("HOMEPOINTS_S3_BUCKET"),
			Region:    envOr("HOMEPOINTS_S3_REGION", "us-east-1"),
			AccessKey: os.Getenv("HOMEPOINTS_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("HOMEPOINTS_S3_SECRET_KEY"),
		},
		DBPath:        dbPath,
		Passphrase:    os.Getenv("HOMEPOINTS_BACKUP_PASSPHRASE"),
		ScheduleHour:  envInt("HOMEPOINTS_BACKUP_HOUR", 3),
		RetentionDays: envInt("HOMEPOINTS_BACKUP_RETENTION_DAYS", 30),
	}
	if saltHex := os.Getenv("HOMEPOINTS_BACKUP_SALT"); saltHex != "" {
		salt, err := hex.DecodeString(saltHex)
		if err != nil {
			log.Fatalf("HOMEPOINTS_BACKUP_SALT must be hex: %v", err)
		}
		backupCfg.Salt = salt
	}

	cfg := server.Config{
		Backup:          backupCfg,
		VAPIDPublicKey:  os.Getenv("HOMEPOINTS_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("HOMEPOINTS_VAPID_PRIVATE_KEY"),
	}

	srv := server.New(db, cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backupMgr := srv.BackupManager()
	backupMgr.Start(ctx)
	defer backupMgr.Stop()

	// Periodic cleanup of expired sessions and stale rate-limit entries
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					logger.Error("session cleanup", "error", err)
				} else if n > 0 {
					logger.Info("session cleanup", "deleted", n)
				}
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Homepoints running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	fmt.Println("\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
