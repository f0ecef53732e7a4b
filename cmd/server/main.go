// Package main initializes and starts the GophVault HTTP server,
// setting up configuration, logging, database connections, repositories,
// blob storage, services, handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/GophVault/internal/blob"
	"github.com/atinyakov/GophVault/internal/config"
	"github.com/atinyakov/GophVault/internal/db"
	"github.com/atinyakov/GophVault/internal/logger"
	"github.com/atinyakov/GophVault/internal/repository"
	"github.com/atinyakov/GophVault/internal/server/handler/http"
	"github.com/atinyakov/GophVault/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// sessionStore is what both session backends provide.
type sessionStore interface {
	service.SessionRepository
	db.SessionPurger
}

func main() {
	// Parse command-line, config file and environment configuration.
	options, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Initialize repositories.
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	fileRepo := repository.NewPostgresFileRepository(postgresDB)
	shareRepo := repository.NewPostgresShareRepository(postgresDB)

	var sessionRepo sessionStore = repository.NewPostgresSessionRepository(postgresDB)
	if options.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     options.RedisAddr,
			Password: options.RedisPassword,
			DB:       options.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			zapLogger.Fatal("cannot reach redis", zap.Error(err))
		}
		sessionRepo = repository.NewRedisSessionRepository(rdb)
		zapLogger.Info("sessions stored in redis", zap.String("addr", options.RedisAddr))
	}

	// Initialize the blob store.
	var blobs blob.Store
	if options.MinioEndpoint != "" {
		blobs, err = blob.NewMinioStore(ctx, options.MinioEndpoint, options.MinioAccessKey,
			options.MinioSecretKey, options.MinioBucket, options.MinioUseSSL)
		if err != nil {
			zapLogger.Fatal("cannot init object storage", zap.Error(err))
		}
		zapLogger.Info("content stored in object storage",
			zap.String("endpoint", options.MinioEndpoint), zap.String("bucket", options.MinioBucket))
	} else {
		blobs, err = blob.NewFSStore(afero.NewOsFs(), options.UploadDir)
		if err != nil {
			zapLogger.Fatal("cannot init upload directory", zap.Error(err))
		}
		zapLogger.Info("content stored on disk", zap.String("dir", options.UploadDir))
	}

	// Purge expired and revoked sessions in the background.
	db.StartSessionCleaner(ctx, sessionRepo,
		options.CleanerInterval,
		options.CleanerRetention,
		zapLogger,
	)

	// Initialize business-logic services.
	authService := service.NewAuthService(userRepo, sessionRepo, service.WithSessionTTL(options.SessionTTL))
	fileService := service.NewFileService(fileRepo, shareRepo, blobs,
		service.FilePolicy{RevokeSharesOnDelete: options.RevokeSharesOnDelete}, zapLogger)

	// Create HTTP handlers.
	authHandler := &http.AuthHandler{AuthService: authService, Log: zapLogger}
	fileHandler := &http.FileHandler{
		FileService:    fileService,
		MaxUploadBytes: options.MaxUploadMB << 20,
		Log:            zapLogger,
	}
	shareHandler := &http.ShareHandler{FileService: fileService, Log: zapLogger}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, fileHandler, shareHandler, authService, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	if options.TLSCert != "" {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
