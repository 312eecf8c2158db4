package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appdir "github.com/freightflow/backend/internal/application/directory"
	ledgerapp "github.com/freightflow/backend/internal/application/ledger"
	"github.com/freightflow/backend/internal/infrastructure/auth"
	"github.com/freightflow/backend/internal/infrastructure/cache"
	"github.com/freightflow/backend/internal/infrastructure/config"
	"github.com/freightflow/backend/internal/infrastructure/docstore"
	"github.com/freightflow/backend/internal/infrastructure/logger"
	"github.com/freightflow/backend/internal/infrastructure/persistence"
	"github.com/freightflow/backend/internal/infrastructure/storage"
	"github.com/freightflow/backend/internal/infrastructure/telemetry"
	"github.com/freightflow/backend/internal/interfaces/http/handler"
	"github.com/freightflow/backend/internal/interfaces/http/middleware"
	"github.com/freightflow/backend/internal/interfaces/http/router"
	"github.com/freightflow/backend/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is stamped at build time via -ldflags.
var version = "dev"

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
		_ = logger.Sync(log)
	}()

	log.Info("Starting FreightFlow backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry (no-op provider when disabled)
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:         cfg.Database.DBName,
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	// Change notifier: Redis fan-out across instances, local fallback
	// when Redis is unreachable at boot.
	var notifier docstore.Notifier
	redisNotifier, err := docstore.NewRedisNotifier(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Warn("Redis unavailable, change events stay process-local", zap.Error(err))
		notifier = docstore.NewLocalNotifier()
	} else {
		notifier = redisNotifier
		defer func() {
			if err := redisNotifier.Close(); err != nil {
				log.Error("Error closing Redis notifier", zap.Error(err))
			}
		}()
	}

	store := docstore.NewGormStore(db.DB, notifier, log)
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing document store", zap.Error(err))
		}
	}()

	// Ledger wiring: credit terms fed from the client directory, cache
	// invalidated on every client write.
	var terms *ledgerapp.CachedCreditTerms
	dir := appdir.New(store, func() {
		if terms != nil {
			terms.Invalidate()
		}
	}, log)
	terms = ledgerapp.NewCachedCreditTerms(dir.ClientLookup(), log)
	defer terms.Stop()

	registers := persistence.NewBillingRegisterRepository(store, log)
	receivables := persistence.NewReceivableRepository(store, log)

	guard := ledgerapp.NewSaveGuard(cfg.Sync.SaveGuardTimeout, cfg.Sync.SaveGuardGrace, log)
	breaker := ledgerapp.NewWriteBreaker(cfg.Sync.BreakerThreshold, cfg.Sync.BreakerCooldown, log)
	ledgerService := ledgerapp.NewReconciliationService(registers, receivables, terms, guard, breaker, log)

	readyChecks := map[string]handler.ReadyChecker{
		"database": db,
		"docstore": store,
	}

	// Attachment offload to object storage, when configured.
	var attachmentHandler *handler.AttachmentHandler
	if cfg.Storage.Enabled {
		blobStore, err := storage.NewS3BlobStore(ctx, &cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		if err := blobStore.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to ensure attachment bucket", zap.Error(err))
		}
		ledgerService.SetAttachmentOffloader(ledgerapp.NewAttachmentOffloader(blobStore, log))
		attachmentHandler = handler.NewAttachmentHandler(blobStore, 15*time.Minute, log)
		readyChecks["storage"] = blobStore
		log.Info("Attachment storage enabled", zap.String("bucket", blobStore.Bucket()))
	}

	// Autofill bridge over the cross-module collections.
	snapshots := cache.NewAutofillSnapshots(time.Hour, log)
	defer snapshots.Stop()
	autofill := ledgerapp.NewAutofillService(map[string]ledgerapp.RecordSource{
		ledgerapp.ModuleLogistics: persistence.NewModuleRecordSource(store, persistence.CollectionLogisticsRecords, log),
		ledgerapp.ModuleTraffic:   persistence.NewModuleRecordSource(store, persistence.CollectionTrafficRecords, log),
		ledgerapp.ModuleBilling:   persistence.NewModuleRecordSource(store, persistence.CollectionBillingRecords, log),
	}, snapshots, log)

	// Session resolution: JWT claims carry the tenant for licensed
	// sessions; everything else walks the resolver chain.
	jwtService := auth.NewJWTService(cfg.JWT)
	resolver := session.NewResolver(
		nil,
		session.NewMemoryTenantCache(),
		persistence.NewUserProfileSource(store, log),
		cfg.Tenant.DemoTenantID,
		log,
	)

	// HTTP layer
	ledgerHandler := handler.NewLedgerHandler(ledgerService, autofill, log)
	streamHandler := handler.NewReceivablesStreamHandler(func() *ledgerapp.SyncCoordinator {
		return ledgerapp.NewSyncCoordinator(ledgerService, registers, receivables,
			cfg.Sync.ReadyRetries, cfg.Sync.ReadyInterval, log)
	}, log)
	defer streamHandler.Stop()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
	}
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{middleware.RequestIDKey},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	router.Setup(engine, router.Dependencies{
		JWTService:  jwtService,
		Resolver:    resolver,
		Directory:   dir,
		System:      handler.NewSystemHandler(version, readyChecks),
		Auth:        handler.NewAuthHandler(dir.Users, jwtService, log),
		Ledger:      ledgerHandler,
		Stream:      streamHandler,
		Users:       handler.NewUserHandler(dir),
		Attachments: attachmentHandler,
		Logger:      log,
	})

	// WriteTimeout stays off: the receivables stream holds connections
	// open indefinitely and a server-wide write deadline would cut every
	// SSE feed. Regular handlers are still bounded by the read timeout.
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
