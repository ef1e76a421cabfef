package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"lms-gateway/admin"
	"lms-gateway/client"
	"lms-gateway/config"
	"lms-gateway/handler"
	"lms-gateway/middleware"
	"lms-gateway/session"
	"lms-gateway/store"
	"lms-gateway/utils/logger"
	"lms-gateway/utils/otel"
)

func main() {
	// Handle healthcheck subcommand (for Docker healthcheck in distroless image)
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		if err := runHealthcheck(); err != nil {
			fmt.Fprintf(os.Stderr, "Healthcheck failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	ctx := context.Background()

	_ = godotenv.Load()

	// Initialize OpenTelemetry
	otelCfg := otel.ConfigFromEnv()
	otelShutdown, err := otel.InitProvider(ctx, otelCfg)
	if err != nil {
		fmt.Printf("Failed to initialize OpenTelemetry: %v\n", err)
		otelCfg.Enabled = false
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if otelShutdown != nil {
			if err := otelShutdown(shutdownCtx); err != nil {
				fmt.Printf("Failed to shutdown OpenTelemetry: %v\n", err)
			}
		}
	}()

	// Initialize structured logger with OTel support
	log := logger.Init(otelCfg.Enabled)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load configuration", "error", err)
		os.Exit(1)
	}

	scopeLimits, err := config.LoadScopeLimits(cfg.ThrottleConfigPath)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load throttle configuration", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "configuration loaded",
		"idp_url", cfg.IdPURL,
		"port", cfg.Port,
		"auth_cache_ttl", cfg.AuthCacheTTL)

	// Initialize dependencies
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var sessions session.Store
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.ErrorContext(ctx, "invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		sessions = session.NewRedisStore(redis.NewClient(opts), cfg.SessionTTL)
		slog.InfoContext(ctx, "session store initialized", "backend", "redis")
	} else {
		sessions = session.NewMemoryStore(cfg.SessionTTL)
		slog.InfoContext(ctx, "session store initialized", "backend", "memory")
	}

	identityClient := client.NewIdentityClient(cfg.IdPURL, cfg.IdPTimeout)
	users := store.NewPostgresUserStore(pool, log)

	cookies := session.CookieOptions{Secure: true}
	authMiddleware := middleware.NewAuthMiddleware(identityClient, users, sessions, middleware.AuthConfig{
		PublicPaths:    cfg.PublicPaths,
		PublicPrefixes: cfg.PublicPrefixes,
		LoginPath:      cfg.LoginPath,
		CacheTTL:       cfg.AuthCacheTTL,
		SessionTTL:     cfg.SessionTTL,
		Cookies:        cookies,
	}, log)

	// Initialize handlers
	loginHandler := handler.NewLoginHandler(identityClient, users, sessions, cfg, cookies)
	sessionHandler := handler.NewSessionHandler(cfg)
	healthHandler := handler.NewHealthHandler()
	resourcesHandler := handler.NewResourcesHandler(adminResourceGroups(), admin.DefaultPriority())

	// Setup Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Add OpenTelemetry tracing middleware
	if otelCfg.Enabled {
		e.Use(otelecho.Middleware(otelCfg.ServiceName))
	}

	// Middleware
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			ctx := c.Request().Context()
			if v.Error == nil {
				slog.InfoContext(ctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				slog.ErrorContext(ctx, "request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))

	e.Use(echomw.Recover())
	e.Use(middleware.SecurityHeaders())
	useThrottledAuthChain(e, authMiddleware, scopeLimits)

	// Register routes
	e.GET("/health", healthHandler.Handle)
	e.GET("/session", sessionHandler.Handle)

	authLimiter := middleware.NewScopeLimiter(config.ScopeAuth, scopeLimits,
		middleware.AnonymousKey(config.ScopeAuth))
	e.POST("/login", loginHandler.HandleLogin, authLimiter.Middleware())
	e.POST("/logout", loginHandler.HandleLogout, authLimiter.Middleware())

	adminGroup := e.Group("/admin",
		middleware.RequireAdmin(),
		middleware.NewScopeLimiter(config.ScopeAdmin, scopeLimits,
			middleware.DefaultKey(config.ScopeAdmin)).Middleware())
	adminGroup.GET("/resources", resourcesHandler.Handle)

	// Proxy routes for downstream LMS services
	mountProxy(e, "/api/library", cfg.LibraryUpstreamURL,
		middleware.NewScopeLimiter(config.ScopeLibrary, scopeLimits,
			middleware.SchoolKey(config.ScopeLibrary)), cfg, log)
	mountProxy(e, "/api/uploads", cfg.UploadUpstreamURL,
		middleware.NewScopeLimiter(config.ScopeUpload, scopeLimits,
			middleware.DefaultKey(config.ScopeUpload)), cfg, log)

	// Start server
	address := fmt.Sprintf(":%s", cfg.Port)

	go func() {
		slog.InfoContext(ctx, "starting lms-gateway server", "address", address)
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 10 seconds.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.InfoContext(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "server exited properly")
}

// useThrottledAuthChain mounts the shared request gates: a burst guard ahead
// of authentication, then the anonymous-default scope for everything that
// reaches routing. The post-auth limiter buckets authenticated traffic by
// user id and anonymous traffic by client IP.
func useThrottledAuthChain(e *echo.Echo, auth *middleware.AuthMiddleware, scopeLimits config.ScopeLimits) {
	e.Use(middleware.NewScopeLimiter(config.ScopeBurst, scopeLimits,
		middleware.AnonymousKey(config.ScopeBurst)).Middleware())
	e.Use(auth.Handle())
	e.Use(middleware.NewScopeLimiter(config.ScopeAnonymousDefault, scopeLimits,
		middleware.DefaultKey(config.ScopeAnonymousDefault)).Middleware())
}

// mountProxy registers a throttled proxy group when an upstream is configured.
func mountProxy(e *echo.Echo, prefix, upstreamURL string, limiter *middleware.RateLimiter, cfg *config.Config, log *slog.Logger) {
	if upstreamURL == "" {
		return
	}
	upstream, err := url.Parse(upstreamURL)
	if err != nil {
		slog.Error("invalid upstream URL", "prefix", prefix, "error", err)
		os.Exit(1)
	}
	proxy := handler.NewProxyHandler(upstream, cfg, log)
	e.Group(prefix, limiter.Middleware()).Any("/*", proxy.Handle)
}

// adminResourceGroups lists the manageable resource groups the admin UI
// renders, in generated (unordered) form.
func adminResourceGroups() []admin.ResourceGroup {
	return []admin.ResourceGroup{
		{Name: "Library", Resources: []string{"resources", "collections"}},
		{Name: "Accounts", Resources: []string{"users", "roles"}},
		{Name: "Reports", Resources: []string{"activity", "progress"}},
		{Name: "Schools", Resources: []string{"schools", "districts"}},
		{Name: "Classrooms", Resources: []string{"classrooms", "rosters"}},
		{Name: "Curriculum", Resources: []string{"units", "lessons"}},
		{Name: "Integrations", Resources: []string{"webhooks"}},
	}
}

// runHealthcheck performs a health check against the local server
func runHealthcheck() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8888"
	}

	client := &http.Client{
		Timeout: 2 * time.Second,
	}

	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%s/health", port))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned status: %d", resp.StatusCode)
	}

	return nil
}
