package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/toko-admin/internal/account"
	"github.com/noah-isme/toko-admin/internal/app"
	"github.com/noah-isme/toko-admin/internal/audit"
	"github.com/noah-isme/toko-admin/internal/auth"
	"github.com/noah-isme/toko-admin/internal/common"
	"github.com/noah-isme/toko-admin/internal/config"
	"github.com/noah-isme/toko-admin/internal/customer"
	"github.com/noah-isme/toko-admin/internal/db"
	"github.com/noah-isme/toko-admin/internal/health"
	"github.com/noah-isme/toko-admin/internal/invoice"
	"github.com/noah-isme/toko-admin/internal/obs"
	"github.com/noah-isme/toko-admin/internal/product"
	"github.com/noah-isme/toko-admin/internal/queue"
	"github.com/noah-isme/toko-admin/internal/quotation"
	"github.com/noah-isme/toko-admin/internal/ratelimit"
	"github.com/noah-isme/toko-admin/internal/security"
	"github.com/noah-isme/toko-admin/internal/shop"
	"github.com/noah-isme/toko-admin/internal/tenant"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "toko_admin")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "toko-admin-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	if cfg.MigrateOnStart {
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
		logger.Info().Msg("migrations applied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Open(ctx, cfg, logger, app.Options{AppName: "toko-admin-api", RedisMetrics: metricsEnabled})
	if err != nil {
		logger.Fatal().Err(err).Msg("open dependencies")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error().Err(err).Msg("close dependencies")
		}
	}()

	svcs, err := app.NewServices(deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise services")
	}

	issuer, err := auth.NewIssuer(auth.Config{
		Secret:   cfg.JWTSecret,
		TTL:      cfg.TokenTTL,
		Issuer:   cfg.TokenIssuer,
		Audience: cfg.TokenAudience,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token issuer")
	}
	authHandler := &auth.Handler{Issuer: issuer}
	authMiddleware := auth.Middleware{Issuer: issuer, Logger: obs.Component(logger, "auth")}

	accountHandler := &account.Handler{Svc: svcs.Accounts}
	shopHandler := &shop.Handler{Svc: svcs.Shops}
	customerHandler := &customer.Handler{Svc: svcs.Customers}
	productHandler := &product.Handler{Svc: svcs.Products}
	invoiceHandler := &invoice.Handler{Svc: svcs.Invoices}
	quotationHandler := &quotation.Handler{Svc: svcs.Quotations, Shops: svcs.Shops}

	auditStore := audit.NewStore(deps.DB)
	auditRecorder := audit.HTTPRecorder{
		Service: &audit.Service{Store: auditStore, Enabled: cfg.AuditEnabled, SamplingRate: 1},
		OnError: func(err error) { logger.Warn().Err(err).Msg("audit_record_failed") },
	}
	auditHandler := audit.Handler{Store: auditStore}

	queueAdmin := &queue.AdminHandler{
		Store:             queue.NewStore(deps.DB),
		Queue:             deps.Queue,
		Logger:            obs.Component(logger, "queue-admin"),
		VisibilityTimeout: cfg.QueueVisibilityTimeout,
	}

	var limiter ratelimit.Allower
	switch cfg.RateLimitBackend {
	case "fixed":
		fixed, err := ratelimit.NewFixedRedis(deps.Redis, cfg.QueuePrefix+":rl")
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise rate limiter")
		}
		limiter = fixed
	case "sliding":
		limiter = ratelimit.Sliding{Client: deps.Redis, Prefix: cfg.QueuePrefix + ":rl"}
	}

	resolver := tenant.NewResolver(cfg.ShopHeader)
	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL, Scope: func(r *http.Request) string { return tenant.Scope(r.Context()) }}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", cfg.ShopHeader, auth.ConsoleUserHeader},
		ExposedHeaders:   []string{"Link", "X-Total-Count", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(authMiddleware.Attach)
	r.Use(resolver.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.IsProduction(), HSTSMaxAge: 31536000}.Middleware)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", !cfg.IsProduction()) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{Probes: []health.Probe{
		{Name: "db", Timeout: envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500), Check: deps.DB.Ping},
		{Name: "redis", Timeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300), Check: func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		}},
	}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1.0", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		if limiter != nil {
			v.Use(ratelimit.Handler{
				Limiter: limiter,
				Config:  ratelimit.Config{Key: ratelimit.ByUserOrIP, Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
				OnError: func(err error) { logger.Warn().Err(err).Msg("rate_limit_backend_error") },
			}.Middleware)
		}
		v.Use(idem.Middleware)
		v.Use(auditRecorder.Writes)

		v.Get("/generateToken", authHandler.GenerateToken)

		v.Route("/account", func(a chi.Router) {
			a.Get("/getallaccounts", accountHandler.List)
			a.Post("/addaccount", accountHandler.Create)
			a.Get("/{id}", accountHandler.Get)
			a.Put("/update/{id}", accountHandler.Update)
			a.Delete("/delete/{id}", accountHandler.Delete)
		})

		v.Route("/shop", func(s chi.Router) {
			s.Get("/getAllShops", shopHandler.List)
			s.Post("/shop/addshop", shopHandler.Create)
			s.Get("/shop/{id}", shopHandler.Get)
			s.Put("/shop/{id}", shopHandler.Update)
			s.Delete("/shop/{id}", shopHandler.Delete)
		})

		v.Route("/customer", func(c chi.Router) {
			c.Get("/getAllCustomers", customerHandler.List)
			c.Post("/customer", customerHandler.Create)
			c.Get("/customer/{id}", customerHandler.Get)
			c.Put("/customer/{id}", customerHandler.Update)
			c.Delete("/customer/{id}", customerHandler.Delete)
		})

		v.Route("/product", func(p chi.Router) {
			p.Get("/getAllProducts", productHandler.List)
			p.Get("/getProductsByShop", productHandler.ListByShop)
			p.Get("/categories", productHandler.Categories)
			p.Post("/product", productHandler.Create)
			p.Get("/product/{id}", productHandler.Get)
			p.Put("/product/{id}", productHandler.Update)
			p.Delete("/product/{id}", productHandler.Delete)
		})

		v.Route("/invoice", func(i chi.Router) {
			i.Post("/createInvoice", invoiceHandler.Create)
			i.Post("/preview", invoiceHandler.Preview)
			i.Get("/getAllInvoices", invoiceHandler.List)
			i.Get("/{id}", invoiceHandler.Get)
		})

		v.Route("/quotation", func(q chi.Router) {
			q.Post("/quotation", quotationHandler.Create)
			q.Post("/preview", quotationHandler.Preview)
			q.Get("/getallquotation", quotationHandler.List)
			q.Get("/{id}", quotationHandler.Get)
			q.Get("/{id}/pdf", quotationHandler.PDF)
			q.Delete("/{id}", quotationHandler.Delete)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Get("/audit", auditHandler.List)
			admin.Get("/queue/dlq", queueAdmin.ListDLQ)
			admin.Post("/queue/dlq/replay", queueAdmin.ReplayDLQ)
			admin.Get("/queue/stats", queueAdmin.Stats)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-ctx.Done()
	health.SetReady(false)
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), envDurationMillis("HTTP_SHUTDOWN_TIMEOUT_MS", 10000))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func migrateUp(databaseURL string) error {
	m, err := db.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
