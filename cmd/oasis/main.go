// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/oasis/internal/auth"
	"github.com/olegiv/oasis/internal/cache"
	"github.com/olegiv/oasis/internal/captcha"
	"github.com/olegiv/oasis/internal/config"
	"github.com/olegiv/oasis/internal/geoip"
	"github.com/olegiv/oasis/internal/handler"
	"github.com/olegiv/oasis/internal/handler/api"
	"github.com/olegiv/oasis/internal/i18n"
	"github.com/olegiv/oasis/internal/logging"
	"github.com/olegiv/oasis/internal/mail"
	"github.com/olegiv/oasis/internal/middleware"
	"github.com/olegiv/oasis/internal/model"
	"github.com/olegiv/oasis/internal/moderation"
	"github.com/olegiv/oasis/internal/render"
	"github.com/olegiv/oasis/internal/scheduler"
	"github.com/olegiv/oasis/internal/service"
	"github.com/olegiv/oasis/internal/session"
	"github.com/olegiv/oasis/internal/storage"
	"github.com/olegiv/oasis/internal/store"
	"github.com/olegiv/oasis/internal/version"
	"github.com/olegiv/oasis/web"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Oasis of Knowledge - moderated learning community\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OASIS_SESSION_SECRET     Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OASIS_DB_PATH            SQLite database path (default: ./data/oasis.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OASIS_SERVER_PORT        Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OASIS_ENV                Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OASIS_SUPERADMIN_EMAILS  Comma separated accounts that always resolve to admin\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OASIS_REDIS_URL          Redis URL for the catalog cache (optional)\n")
	}
	flag.Parse()

	if *showVersion {
		_, _ = fmt.Printf("oasis %s\n", version.Get())
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := i18n.Init(logger); err != nil {
		return fmt.Errorf("initializing i18n: %w", err)
	}
	slog.Info("i18n system initialized", "languages", i18n.SupportedLanguages)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o750); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// From here on WARN and ERROR records are mirrored into the event log.
	eventLogHandler := logging.NewEventLogHandler(
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}), db,
	).WithRequestURL(middleware.GetRequestURL)
	logger = slog.New(eventLogHandler)
	slog.SetDefault(logger)

	ctx := context.Background()
	if err := store.Seed(ctx, db); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	sessionManager := session.New(db, session.Config{IsDev: cfg.IsDevelopment()})

	catalogCache := cache.New(cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      time.Duration(cfg.CacheTTL) * time.Second,
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	})
	defer func() { _ = catalogCache.Close() }()

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		slog.Warn("GeoIP database unavailable, country defaults disabled", "path", cfg.GeoIPDBPath, "error", err)
	}
	defer func() { _ = geo.Close() }()

	storageCfg := storage.Config{
		Type:      cfg.StorageType,
		BasePath:  cfg.UploadsDir,
		BaseURL:   cfg.UploadsURL,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	}
	var imgSources []string
	if cfg.StorageType == storage.TypeS3 {
		storageCfg.BaseURL = cfg.S3PublicURL
		if cfg.S3PublicURL != "" {
			imgSources = append(imgSources, cfg.S3PublicURL)
		}
	}
	photoStorage, err := storage.New(storageCfg)
	if err != nil {
		return fmt.Errorf("initializing photo storage: %w", err)
	}

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:     templatesFS,
		SessionManager:  sessionManager,
		IsDev:           cfg.IsDevelopment(),
		HCaptchaSiteKey: cfg.HCaptchaSiteKey,
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	// Services
	resolver := moderation.NewResolver(db, cfg.SuperAdminEmails)
	events := service.NewEventService(db)
	catalog := service.NewCatalog(db, catalogCache, time.Duration(cfg.CacheTTL)*time.Second)
	lifecycle := moderation.NewLifecycle(db, resolver,
		moderation.WithAuditor(events),
		moderation.WithInvalidator(catalog),
	)
	roles := moderation.NewRoles(db, resolver, moderation.WithAuditor(events))
	submissions := service.NewSubmissions(db, events)
	messages := service.NewMessages(db, resolver, service.MessagesConfig{
		Captcha: captcha.New(cfg.HCaptchaSiteKey, cfg.HCaptchaSecretKey),
		Mailer: mail.New(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, logger),
		Events:    events,
		RateLimit: cfg.MessageRateLimit,
		RateBurst: cfg.MessageRateBurst,
	})
	profiles := service.NewProfiles(db, service.ProfilesConfig{
		GeoIP:       geo,
		Storage:     photoStorage,
		Roles:       roles,
		Events:      events,
		Invalidator: catalog,
	})
	tokens := auth.NewTokenManager(cfg.TokenSecret(), cfg.JWTTTL)
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	apiRateLimiter := middleware.NewRateLimiter(10, 20)
	publicRateLimiter := middleware.NewRateLimiter(10, 20)

	sched := scheduler.New(logger)
	for _, job := range []scheduler.Job{
		scheduler.EventRetentionJob(events, cfg.EventRetentionDays),
		scheduler.GeoIPReloadJob(geo),
		{
			Name:        "rate_limiter_prune",
			Description: "Drop idle rate limiters",
			Schedule:    "@every 10m",
			Run: func(context.Context) error {
				apiRateLimiter.Prune(10000)
				publicRateLimiter.Prune(10000)
				return nil
			},
		},
	} {
		if err := sched.Add(job); err != nil {
			return fmt.Errorf("registering job %s: %w", job.Name, err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// Handlers
	authHandler := handler.NewAuthHandler(profiles, resolver, events, renderer, sessionManager, loginProtection)
	publicHandler := handler.NewPublicHandler(renderer, catalog, messages)
	seoHandler := handler.NewSEOHandler(catalog, cfg.SiteURL, cfg.SEODisallowAll)
	adminHandler := handler.NewAdminHandler(db, handler.AdminDeps{
		Renderer:  renderer,
		Resolver:  resolver,
		Lifecycle: lifecycle,
		Roles:     roles,
		Catalog:   catalog,
		Messages:  messages,
		Events:    events,
	})
	apiHandler := api.NewHandler(api.Deps{
		Tokens:          tokens,
		Resolver:        resolver,
		Lifecycle:       lifecycle,
		Roles:           roles,
		Catalog:         catalog,
		Submissions:     submissions,
		Messages:        messages,
		Profiles:        profiles,
		Events:          events,
		LoginProtection: loginProtection,
	})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.GetHead)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment(), imgSources...)))
	r.Use(middleware.RequestPath)
	r.Use(sessionManager.LoadAndSave)

	r.Get(handler.RouteSitemap, seoHandler.Sitemap)
	r.Get(handler.RouteRobots, seoHandler.Robots)

	csrfMiddleware := middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment(), cfg.ServerPort))

	// Public pages
	r.Group(func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.Language(sessionManager))
		r.Use(middleware.OptionalLoadUser(sessionManager, db, resolver))

		r.Get(handler.RouteRoot, publicHandler.Home)
		for _, kind := range model.Kinds {
			base := "/" + kind.Plural()
			r.Get(base, publicHandler.List(kind))
			r.Get(base+handler.RouteParamSlug, publicHandler.Show(kind))
		}
		r.Get(handler.RouteContact, publicHandler.ContactForm)
		r.With(publicRateLimiter.HTMLMiddleware()).Post(handler.RouteContact, publicHandler.Contact)

		r.Get(handler.RouteLogin, authHandler.LoginForm)
		r.With(publicRateLimiter.HTMLMiddleware(), loginProtection.Middleware()).Post(handler.RouteLogin, authHandler.Login)
		r.Post(handler.RouteLogout, authHandler.Logout)
		r.Get(handler.RouteRegister, authHandler.RegisterForm)
		r.With(publicRateLimiter.HTMLMiddleware()).Post(handler.RouteRegister, authHandler.Register)
	})

	// Admin console
	r.Route(handler.RouteAdmin, func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(csrfMiddleware)
		r.Use(middleware.Auth(sessionManager))
		r.Use(middleware.LoadUser(sessionManager, db, resolver))
		r.Use(middleware.Language(sessionManager))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(sessionManager, model.RoleModerator, events))
			r.Get("/", adminHandler.Dashboard)
			r.Get("/queue", adminHandler.Queue)
			r.Post("/entities/{id}/approve", adminHandler.Approve)
			r.Post("/entities/{id}/reject", adminHandler.Reject)
			r.Get("/messages", adminHandler.Messages)
			r.Post("/messages/{id}/read", adminHandler.MarkRead)
			r.Post("/messages/{id}/reply", adminHandler.Reply)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(sessionManager, model.RoleAdmin, events))
			r.Post("/entities/{id}/delete", adminHandler.Delete)
			r.Get("/users", adminHandler.Users)
			r.Post("/users/{id}/role", adminHandler.SetRole)
			r.Get("/events", adminHandler.Events)
		})
	})

	// JSON API: bearer tokens or the session cookie.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Mount("/", apiHandler.Routes(api.RouteConfig{
			Auth:      middleware.APIAuth(tokens, sessionManager, db, resolver),
			RateLimit: apiRateLimiter.Middleware(),
			Events:    events,
		}))
	})
	slog.Info("REST API v1 mounted at /api/v1")

	staticFS, err := fs.Sub(web.Static, "static/dist")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	r.Handle("/static/*", middleware.StaticCache(365*24*time.Hour)(http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))))

	if cfg.StorageType != storage.TypeS3 {
		uploads := http.StripPrefix(cfg.UploadsURL+"/", http.FileServer(http.Dir(cfg.UploadsDir)))
		r.Handle(cfg.UploadsURL+"/*", middleware.StaticCache(7*24*time.Hour)(uploads))
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env, "version", version.Get().Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
