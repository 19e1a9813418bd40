package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/loomhr/auth/internal/auth/http"
	"github.com/loomhr/auth/internal/auth/service"
	"github.com/loomhr/auth/internal/auth/store"
	"github.com/loomhr/auth/internal/auth/store/drivers/sqlite"
	"github.com/loomhr/auth/pkg/cryptox"
	"github.com/loomhr/auth/pkg/geo"
	"github.com/loomhr/auth/pkg/jwtx"
	"github.com/loomhr/auth/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	signer *jwtx.EdDSASigner

	loginService        *service.LoginService
	enrollmentService   *service.EnrollmentService
	deviceService       *service.DeviceService
	auditService        *service.AuditService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initSigner(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initSigner loads the Ed25519 signing key, or generates an ephemeral one
// when no key file is configured. Ephemeral keys invalidate outstanding
// sessions on restart, which only forces a re-login.
func (app *Application) initSigner() error {
	if app.cfg.SigningKey == "" {
		signer, err := jwtx.NewEphemeralEdDSA("session-signing", app.cfg.Issuer)
		if err != nil {
			return fmt.Errorf("failed to generate signing key: %w", err)
		}
		app.signer = signer
		app.logger.Info("using ephemeral session signing key")
		return nil
	}

	pemKey, err := os.ReadFile(app.cfg.SigningKey)
	if err != nil {
		return fmt.Errorf("failed to read signing key: %w", err)
	}
	signer, err := jwtx.NewEdDSAFromPEM("session-signing", app.cfg.Issuer, pemKey)
	if err != nil {
		return fmt.Errorf("failed to load signing key: %w", err)
	}
	app.signer = signer
	app.logger.Info("loaded session signing key", "file", app.cfg.SigningKey)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	var mailer service.Mailer = &service.LogMailer{Logger: app.logger}
	if app.cfg.MailEndpoint != "" {
		mailer = service.NewRelayMailer(app.cfg.MailEndpoint)
		app.logger.Info("using mail relay", "endpoint", app.cfg.MailEndpoint)
	}

	codeService := &service.CodeService{
		Store:  app.db,
		Mailer: mailer,
		Logger: app.logger,
		TTL:    app.cfg.CodeTTL,
	}

	app.enrollmentService = &service.EnrollmentService{
		Store:  app.db,
		Issuer: app.cfg.Issuer,
	}
	app.deviceService = &service.DeviceService{Store: app.db}
	app.auditService = &service.AuditService{
		Store:        app.db,
		Geo:          geo.Null{},
		ActiveWindow: app.cfg.ActiveWindow,
	}

	app.loginService = &service.LoginService{
		Store:             app.db,
		Codes:             codeService,
		Enrollments:       app.enrollmentService,
		Signer:            app.signer,
		Issuer:            app.cfg.Issuer,
		SessionTTL:        app.cfg.SessionTTL,
		ChallengeTTL:      app.cfg.ChallengeTTL,
		TrustedDeviceSkip: app.cfg.TrustedDeviceSkip,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.signer,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.LoginService = app.loginService
	router.EnrollmentService = app.enrollmentService
	router.DeviceService = app.deviceService
	router.AuditService = app.auditService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
