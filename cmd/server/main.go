package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appsync "github.com/sellerdesk/backend/internal/application/ordersync"
	"github.com/sellerdesk/backend/internal/infrastructure/config"
	"github.com/sellerdesk/backend/internal/infrastructure/logger"
	"github.com/sellerdesk/backend/internal/infrastructure/persistence"
	"github.com/sellerdesk/backend/internal/infrastructure/reauth"
	"github.com/sellerdesk/backend/internal/infrastructure/sellerapi"
	"github.com/sellerdesk/backend/internal/interfaces/http/handler"
	"github.com/sellerdesk/backend/internal/interfaces/http/middleware"
	"github.com/sellerdesk/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(cfg.Log, cfg.App.Env)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting SellerDesk backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	txRunner := persistence.NewGormTxRunner(db.DB)

	// Seller panel client
	sellerCfg := sellerapi.DefaultConfig()
	if cfg.Seller.BaseURL != "" {
		sellerCfg.BaseURL = cfg.Seller.BaseURL
	}
	if cfg.Seller.PageSize > 0 {
		sellerCfg.PageSize = cfg.Seller.PageSize
	}
	if cfg.Seller.MaxPages > 0 {
		sellerCfg.MaxPages = cfg.Seller.MaxPages
	}
	if cfg.Seller.PageDelay > 0 {
		sellerCfg.PageDelay = cfg.Seller.PageDelay
	}
	if cfg.Seller.DetailDelay > 0 {
		sellerCfg.DetailDelay = cfg.Seller.DetailDelay
	}

	credStore := sellerapi.NewFileCredentialStore(cfg.Seller.CredentialsFile)

	var clientOpts []sellerapi.ClientOption
	if cfg.Reauth.Enabled {
		reauther, err := newReauthenticator(cfg.Reauth, log)
		if err != nil {
			log.Fatal("Failed to initialize re-authenticator", zap.Error(err))
		}
		defer reauther.Close()
		clientOpts = append(clientOpts, sellerapi.WithReauthenticator(reauther))
		log.Info("Interactive re-authentication enabled",
			zap.String("username", cfg.Reauth.Username))
	}

	sellerClient, err := sellerapi.NewClient(sellerCfg, credStore, clientOpts...)
	if err != nil {
		log.Fatal("Failed to initialize seller panel client", zap.Error(err))
	}

	fetcher := sellerapi.NewFetcher(sellerClient, log)
	flattener := sellerapi.NewFlattener(sellerClient, log)

	// Application services
	syncService := appsync.NewSyncService(fetcher, flattener, txRunner, log)

	// HTTP handlers
	orderHandler := handler.NewOrderHandler(orderRepo, log)
	syncHandler := handler.NewSyncHandler(syncService, log)

	// Setup gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	// Middleware order matters: request ID first so every later layer sees it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.GET("/health", healthHandler(db))

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(orderHandler).
		Register(syncHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newReauthenticator builds the browser-driven login flow. The OTP is
// collected from the operator on standard input, matching how the seller
// panel delivers one-time codes over SMS.
func newReauthenticator(cfg config.ReauthConfig, log *zap.Logger) (*reauth.ChromedpReauthenticator, error) {
	otp := reauth.OTPFunc(func(ctx context.Context) (string, error) {
		fmt.Fprint(os.Stderr, "کد تایید پیامک‌شده را وارد کنید: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(line), nil
	})

	return reauth.NewChromedpReauthenticator(reauth.Config{
		LoginURL:  cfg.LoginURL,
		Username:  cfg.Username,
		Timeout:   cfg.Timeout,
		Headless:  cfg.Headless,
		NoSandbox: cfg.NoSandbox,
		RemoteURL: cfg.RemoteURL,
	}, otp, log)
}

// healthHandler reports process and database liveness
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
