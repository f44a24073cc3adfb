package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"

	"schoollunch/internal/config"
	"schoollunch/internal/database"
	"schoollunch/internal/handlers"
	"schoollunch/internal/logging"
	"schoollunch/internal/metrics"
	"schoollunch/internal/repository"
	"schoollunch/internal/security"
	"schoollunch/internal/service"
)

const sessionCleanupInterval = time.Hour

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	// Load configuration
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database connection established", "type", cfg.DatabaseType)

	if err := db.RunMigrations(ctx); err != nil {
		return err
	}
	slog.Info("migrations completed successfully")

	clock := clockwork.NewRealClock()
	store := repository.NewSQLStore(db)
	m := metrics.New()
	csrf := security.NewCSRFProtector(cfg.CSRFSecret)
	limiter := security.NewRateLimiter(cfg.RateLimit, time.Minute, clock)
	trustedProxies, err := security.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}
	limiter.TrustProxies(trustedProxies)

	// Initialize services
	authService := service.NewAuthService(store, security.NewTokenManager(cfg.TokenSecret, cfg.TokenDuration, clock), clock, cfg.SessionDuration)
	eligibility := service.NewEligibilityService(store, clock, cfg.Location())
	menuService := service.NewMenuService(store)
	holidayService := service.NewHolidayService(store)
	lunchService := service.NewLunchService(store, eligibility, clock, m)
	backupService := service.NewBackupService(store, cfg.DatabaseType, clock)

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"facebook": {
			Name:  "facebook",
			Label: "Facebook",
			Config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"email", "public_profile"},
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		},
	}

	handler := handlers.NewRouter(handlers.Handlers{
		Auth:       handlers.NewAuthHandler(authService, csrf, oauthProviders, cfg.OAuthRedirectBaseURL),
		Kids:       handlers.NewKidHandler(service.NewKidService(store)),
		Menu:       handlers.NewMenuHandler(menuService, holidayService, eligibility),
		Lunch:      handlers.NewLunchHandler(lunchService),
		Admin:      handlers.NewAdminHandler(authService, menuService, holidayService, backupService, clock),
		Middleware: handlers.NewMiddleware(authService, csrf, limiter, m, clock),
		Metrics:    m,
		Health:     db.Ping,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		limiter.RunCleanup(ctx, 5*time.Minute)
	}()
	go func() {
		defer wg.Done()
		cleanupExpiredSessions(ctx, authService, clock)
	}()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", server.Addr, "school_timezone", cfg.Location().String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		wg.Wait()
		return err
	case <-ctx.Done():
	}

	slog.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	wg.Wait()
	return err
}

// cleanupExpiredSessions periodically removes expired sessions until ctx is done
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService, clock clockwork.Clock) {
	ticker := clock.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			n, err := authService.CleanupExpiredSessions(ctx)
			if err != nil {
				slog.Error("failed to clean up expired sessions", "error", err)
				continue
			}
			slog.Debug("expired sessions cleaned up", "removed", n)
		}
	}
}
