package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tonycheng719/pickcardrebate-sub007/internal/cache"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/catalog"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/config"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/engine"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/events"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/features"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/handler"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/middleware"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/service"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "Path to JSON config file (optional)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize tracing
	flushTraces, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: "pickcardrebate-api",
		Environment: cfg.Tracing.Environment,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := flushTraces(ctx); err != nil {
			log.Printf("Error shutting down tracing: %v", err)
		}
	}()

	// Initialize catalog store
	store, err := catalog.NewStore(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize catalog store: %v", err)
	}
	defer store.Close()

	// Initialize cache
	var resultCache cache.Cache
	if cfg.Cache.Enabled {
		if cfg.Cache.RedisAddr != "" {
			redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
			if err != nil {
				log.Fatalf("Failed to initialize Redis cache: %v", err)
			}
			defer redisCache.Close()
			resultCache = redisCache
		} else {
			resultCache = cache.NewMemoryCache()
		}
	}

	// Initialize feature flags
	flags := features.NewManager()
	flags.Register(features.FeatureCacheEnabled, cfg.Cache.Enabled, "Cache calculation results")
	flags.Register(features.FeatureEventHooksEnabled, true, "Publish catalog and calculation events")
	flags.Register(features.FeatureMilesRanking, true, "Re-value mile programs when caller prefers miles")

	// Initialize events
	eventManager := events.NewManager(true)
	defer eventManager.Shutdown()

	// Initialize engine with configured policy overrides
	engineCfg := engine.DefaultConfig()
	if cfg.Engine.MilesValuation > 0 {
		engineCfg.MilesValuation = cfg.Engine.MilesValuation
	}

	// Initialize service
	svc := service.NewService(service.Options{
		Store:    store,
		Cache:    resultCache,
		Events:   eventManager,
		Features: flags,
		Engine:   engine.New(engineCfg),
		CacheTTL: time.Duration(cfg.Cache.TTLSeconds) * time.Second,
	})

	// Initialize handlers
	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	if cfg.Tracing.Enabled {
		r.Use(middleware.TracingMiddleware())
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.Security.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Routes
	h.Routes(r)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Printf("Catalog database: %s", cfg.Database.Path)
	if cfg.RateLimit.Enabled {
		log.Printf("Rate limit: %d requests per %d seconds", cfg.RateLimit.Rate, cfg.RateLimit.Window)
	}

	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
