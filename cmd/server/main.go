package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/myfin/backend/internal/application/audit"
	documentapp "github.com/myfin/backend/internal/application/document"
	identityapp "github.com/myfin/backend/internal/application/identity"
	inventoryapp "github.com/myfin/backend/internal/application/inventory"
	partnerapp "github.com/myfin/backend/internal/application/partner"
	sessionapp "github.com/myfin/backend/internal/application/session"
	tenantapp "github.com/myfin/backend/internal/application/tenant"
	"github.com/myfin/backend/internal/infrastructure/auth"
	"github.com/myfin/backend/internal/infrastructure/config"
	"github.com/myfin/backend/internal/infrastructure/docstore"
	"github.com/myfin/backend/internal/infrastructure/logger"
	"github.com/myfin/backend/internal/infrastructure/storage"
	"github.com/myfin/backend/internal/interfaces/http/handler"
	"github.com/myfin/backend/internal/interfaces/http/middleware"
	"github.com/myfin/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting MyFin Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := docstore.NewMongoStore(rootCtx, docstore.MongoConfig{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to document store", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(shutdownCtx); err != nil {
			log.Error("Error closing document store", zap.Error(err))
		}
	}()
	log.Info("Document store connected")

	blacklist, redisClient := newBlacklist(rootCtx, cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	blobs, err := newBlobStorage(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize blob storage", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	auditWriter := audit.NewWriter(store, log)
	identitySvc := identityapp.NewService(store, jwtService, blacklist, auditWriter, log)
	tenantSvc := tenantapp.NewService(store, auditWriter, log)
	partnerSvc := partnerapp.NewService(store, auditWriter)
	inventorySvc := inventoryapp.NewService(store, log)
	documentSvc := documentapp.NewService(store, auditWriter, inventorySvc, blobs, log)
	sessions := sessionapp.NewManager(store, log)
	defer sessions.CloseAll()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORS(cfg.HTTP),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	}

	checks := map[string]handler.HealthChecker{"mongo": store}
	if redisClient != nil {
		checks["redis"] = redisHealth{client: redisClient}
	}

	authHandler := handler.NewAuthHandler(identitySvc, sessions, log)
	router.New(engine).
		Public(
			authHandler,
			handler.NewSystemHandler(checks, log),
		).
		AuthChain(
			middleware.JWTAuth(jwtService, blacklist, log),
			middleware.Attach(sessions, rootCtx, log),
		).
		Protected(
			router.RegistrarFunc(authHandler.RegisterProtectedRoutes),
			handler.NewCompanyHandler(tenantSvc, log),
			handler.NewUserHandler(identitySvc, sessions, log),
			handler.NewClientHandler(partnerSvc, log),
			handler.NewProductHandler(inventorySvc, log),
			handler.NewTransactionHandler(documentSvc, log),
			handler.NewActivityHandler(auditWriter, log),
			handler.NewStreamHandler(log),
		).
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
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Server stopped")
}

// newBlacklist prefers Redis for token revocation; outside production a
// Redis outage degrades to the in-process blacklist instead of failing
// startup.
func newBlacklist(ctx context.Context, cfg *config.Config, log *zap.Logger) (auth.TokenBlacklist, *redis.Client) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		if cfg.App.Env == "production" {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		log.Warn("Redis unavailable, using in-memory token blacklist", zap.Error(err))
		_ = client.Close()
		return auth.NewInMemoryTokenBlacklist(), nil
	}
	log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	return auth.NewRedisTokenBlacklist(client), client
}

func newBlobStorage(cfg *config.Config, log *zap.Logger) (storage.BlobStorage, error) {
	if cfg.Storage.Provider == "s3" {
		return storage.NewS3BlobStorage(&cfg.Storage, log)
	}
	log.Warn("Using stub blob storage, receipts will not persist")
	return storage.NewStubBlobStorage(), nil
}

type redisHealth struct {
	client *redis.Client
}

func (r redisHealth) Healthy(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
