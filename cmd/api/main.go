package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/verimobi/phone-verify/internal/hasher"
	"github.com/verimobi/phone-verify/internal/http/handlers"
	httpmw "github.com/verimobi/phone-verify/internal/http/middleware"
	"github.com/verimobi/phone-verify/internal/repository"
	"github.com/verimobi/phone-verify/internal/service"
	"github.com/verimobi/phone-verify/internal/sms"
	"github.com/verimobi/phone-verify/pkg/config"
	"github.com/verimobi/phone-verify/pkg/database"
	"github.com/verimobi/phone-verify/pkg/events"
	"github.com/verimobi/phone-verify/pkg/logger"
	mw "github.com/verimobi/phone-verify/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis backs the transport-level IP rate limiter. The client connects
	// lazily and the limiter fails open, so a missing Redis does not take
	// the service down.
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	// Event publisher: NATS in production, noop in dev mode
	var eventBus events.Publisher
	if cfg.Server.DevMode {
		eventBus = events.NewNoopPublisher()
	} else {
		eventBus, err = events.NewNATSPublisher(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
	}
	defer eventBus.Close()

	// Initialize repositories
	verifyRepo := repository.NewVerifyRepository(pool)
	accountRepo := repository.NewAccountRepository(pool)

	// Initialize services
	verifyService := service.NewVerifyService(
		verifyRepo,
		accountRepo,
		hasher.NewArgon2idHasher(),
		sms.NewDevSender(),
		eventBus,
		cfg,
	)

	// Initialize handlers
	h := handlers.New(verifyService, verifyRepo, accountRepo, cfg)

	// IP rate limiter for code issuance
	issueLimiter := httpmw.NewRateLimiter(rdb, httpmw.RateLimitConfig{
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
		KeyFunc:  httpmw.RequestCodeKeyFunc,
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("phone-verify"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Routes
	r.Route("/api", func(r chi.Router) {
		r.With(issueLimiter.Middleware()).Post("/request-code", h.RequestCode)
		r.Post("/verify-code", h.VerifyCode)
		r.Post("/set-password", h.SetPassword)

		if cfg.Server.DevMode {
			r.Get("/debug/store", h.DebugStore)
		}
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting phone-verify service", "port", cfg.Server.Port, "dev_mode", cfg.Server.DevMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-sigChan:
			logger.Info("Shutting down phone-verify service...")
		case <-gctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Service error", "error", err)
		os.Exit(1)
	}
}
