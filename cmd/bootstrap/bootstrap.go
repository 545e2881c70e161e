package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emergency-triage/config"
	deliveryHttp "emergency-triage/internal/delivery/http"
	"emergency-triage/internal/delivery/http/handler"
	"emergency-triage/internal/delivery/http/middleware"
	"emergency-triage/internal/domain/entity"
	domainRepo "emergency-triage/internal/domain/repository"
	"emergency-triage/internal/domain/triage"
	"emergency-triage/internal/infrastructure/cache"
	"emergency-triage/internal/infrastructure/database"
	"emergency-triage/internal/repository"
	"emergency-triage/internal/service"
	"emergency-triage/internal/usecase"
	"emergency-triage/pkg/jwt"
	"emergency-triage/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const startupTimeout = 15 * time.Second

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server
	Hub         *service.SyncHub
}

// NewRoomUsecase builds the room allocation usecase for CLI commands that
// run without the HTTP server. The hub is never started; its publishes still
// reach running servers when redis is configured.
func (app *App) NewRoomUsecase() usecase.RoomUsecase {
	log := logrus.StandardLogger()
	auditService := service.NewAuditService(log, repository.NewAuditLogRepository())
	hub := service.NewSyncHub(app.RedisClient, app.Config.Fanout.Channel, app.Config.Fanout.RefreshInterval, log)
	return usecase.NewRoomUsecase(app.DB, log, repository.NewRoomRepository(), repository.NewPatientRepository(), auditService, hub)
}

// Connect loads configuration and opens the store connections. Redis is
// optional; when it is disabled or unreachable RedisClient stays nil.
func Connect() (*App, error) {
	app := &App{}

	// Setup logger
	setupLogger()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg
	applyLogLevel(cfg.App.LogLevel)
	logrus.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	logrus.Info("Database connected successfully")

	// Initialize Redis
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			logrus.Warnf("Redis unavailable, tokens and fanout stay local to this instance: %v", err)
		} else {
			app.RedisClient = redisClient
			logrus.Info("Redis connected successfully")
		}
	}

	return app, nil
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app, err := Connect()
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(app.DB); err != nil {
		app.Close()
		return nil, err
	}

	// Initialize all layers
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	if err := app.initializeServer(ctx); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)
}

func applyLogLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("Unknown LOG_LEVEL %q, keeping info", level)
		return
	}
	logrus.SetLevel(parsed)
}

// ThresholdsFromConfig maps the configured bands onto the classifier.
func ThresholdsFromConfig(cfg config.TriageConfig) triage.Thresholds {
	t := triage.Thresholds{
		CriticalPulseMin:      cfg.CriticalPulseMin,
		CriticalPulseMax:      cfg.CriticalPulseMax,
		UrgentPulseMin:        cfg.UrgentPulseMin,
		UrgentPulseMax:        cfg.UrgentPulseMax,
		CriticalTempMinF:      cfg.CriticalTempMinF,
		CriticalTempMaxF:      cfg.CriticalTempMaxF,
		UrgentTempMaxF:        cfg.UrgentTempMaxF,
		CriticalSystolicMin:   cfg.CriticalSystolicMin,
		CriticalSystolicMax:   cfg.CriticalSystolicMax,
		CriticalDiastolicMax:  cfg.CriticalDiastolicMax,
		UrgentSystolicMax:     cfg.UrgentSystolicMax,
		UrgentDiastolicMax:    cfg.UrgentDiastolicMax,
		CriticalSymptoms:      entity.NewStringSet(cfg.CriticalSymptoms...),
		UrgentSymptoms:        entity.NewStringSet(cfg.UrgentSymptoms...),
		MinAdvisoryConfidence: cfg.MinAdvisoryConfidence,
	}
	defaults := triage.DefaultThresholds()
	if len(t.CriticalSymptoms) == 0 {
		t.CriticalSymptoms = defaults.CriticalSymptoms
	}
	if len(t.UrgentSymptoms) == 0 {
		t.UrgentSymptoms = defaults.UrgentSymptoms
	}
	return t
}

// initializeServer wires every layer and starts the background services
func (app *App) initializeServer(ctx context.Context) error {
	cfg := app.Config
	db := app.DB

	// Initialize logger
	log := logrus.StandardLogger()

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	patientRepo := repository.NewPatientRepository()
	roomRepo := repository.NewRoomRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	auditService := service.NewAuditService(log, auditLogRepo)

	tokens := service.NewTokenSequencer(db, app.RedisClient, log, patientRepo)
	if err := tokens.SyncOnStartup(ctx); err != nil {
		return fmt.Errorf("failed to sync token sequence: %w", err)
	}

	var advisor usecase.Advisor
	var advisoryProbe handler.AdvisoryProbe
	if cfg.Advisory.BaseURL != "" {
		client := service.NewAdvisoryClient(cfg.Advisory.BaseURL, cfg.Advisory.Timeout, cfg.Advisory.ProbeInterval, log)
		if client.Healthy(ctx) {
			log.Infof("Advisory service reachable at %s", cfg.Advisory.BaseURL)
		} else {
			log.Warnf("Advisory service at %s is down, registrations use manual classification", cfg.Advisory.BaseURL)
		}
		advisor = client
		advisoryProbe = client
	}

	thresholds := triage.NewThresholdStore(ThresholdsFromConfig(cfg.Triage))
	config.WatchTriage(func(t config.TriageConfig) {
		thresholds.Store(ThresholdsFromConfig(t))
		log.Info("Triage thresholds reloaded")
	})

	hub := service.NewSyncHub(app.RedisClient, cfg.Fanout.Channel, cfg.Fanout.RefreshInterval, log)

	// Initialize usecases
	roomUsecase := usecase.NewRoomUsecase(db, log, roomRepo, patientRepo, auditService, hub)
	patientUsecase := usecase.NewPatientUsecase(db, log, patientRepo, roomRepo, roomUsecase, auditService,
		advisor, cfg.Advisory.Timeout, tokens, thresholds, hub)
	queueUsecase := usecase.NewQueueUsecase(db, log, patientRepo, roomRepo)
	auditLogUsecase := usecase.NewAuditLogUsecase(db, log, auditLogRepo)

	if err := provisionIfEmpty(ctx, db, roomRepo, roomUsecase, cfg.Rooms); err != nil {
		return err
	}

	if err := hub.Start(ctx, queueUsecase.Board); err != nil {
		return fmt.Errorf("failed to start sync hub: %w", err)
	}
	app.Hub = hub

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(db, app.RedisClient, advisoryProbe)
	patientHandler := handler.NewPatientHandler(patientUsecase, customValidator)
	roomHandler := handler.NewRoomHandler(roomUsecase, customValidator)
	queueHandler := handler.NewQueueHandler(queueUsecase, hub)
	streamHandler := handler.NewStreamHandler(hub, cfg.App.CORSAllowOrigin, log)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.CORSAllowOrigin)

	// Initialize router
	router := deliveryHttp.NewRouter(healthHandler, patientHandler, roomHandler, queueHandler,
		streamHandler, auditLogHandler, authMiddleware, corsMiddleware)
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	app.Server = &http.Server{
		Addr:              serverAddr,
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// provisionIfEmpty creates the default room pool on a fresh database
func provisionIfEmpty(ctx context.Context, db *gorm.DB, roomRepo domainRepo.RoomRepository, rooms usecase.RoomUsecase, cfg config.RoomsConfig) error {
	count, err := roomRepo.Count(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to count rooms: %w", err)
	}
	if count > 0 || cfg.PoolSize <= 0 {
		return nil
	}
	if _, err := rooms.ProvisionPool(ctx, cfg.LabelPrefix, cfg.PoolSize); err != nil {
		return fmt.Errorf("failed to provision rooms: %w", err)
	}
	return nil
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop streams first so websocket handlers return before Shutdown waits
	if app.Hub != nil {
		app.Hub.Stop()
	}

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close closes all connections (database, redis, etc.)
func (app *App) Close() {
	if app.Hub != nil {
		app.Hub.Stop()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
