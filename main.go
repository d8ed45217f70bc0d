package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"posterminal/auth"
	"posterminal/catalog"
	"posterminal/config"
	"posterminal/controllers"
	"posterminal/ledger"
	"posterminal/middleware"
	"posterminal/routes"
	"posterminal/utils"
)

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var logger zerolog.Logger
	if cfg.Production() {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Str("service", "posterminal").Logger()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	log := newLogger(cfg)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	log.Info().Str("mode", gin.Mode()).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := config.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}

	signer, err := utils.NewTokenSigner(cfg.SessionSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("session signer")
	}
	sessions, err := auth.NewSessionStore(backend, signer, cfg.SessionTTL, auth.WithLogger(log))
	if err != nil {
		log.Fatal().Err(err).Msg("session store")
	}
	// Already validated by config.Load.
	accounts, err := auth.ParseUsers(cfg.Users)
	if err != nil {
		log.Fatal().Err(err).Msg("POS_USERS")
	}
	users := auth.NewUsers(accounts)

	items := catalog.NewManager(backend, log)
	orders := ledger.New(backend, items, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(registry)
	loginLimiter := middleware.NewRateLimiter(cfg.LoginPerMinute, cfg.LoginBurst)

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies()); err != nil {
		log.Fatal().Err(err).Msg("TRUSTED_PROXIES")
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(metrics.PrometheusMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
	}))

	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	r.GET("/metrics", func(c *gin.Context) {
		if cfg.MetricsAllowIP != "" && c.ClientIP() != cfg.MetricsAllowIP {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		metricsHandler.ServeHTTP(c.Writer, c.Request)
	})

	routes.InitializeRoutes(r, routes.Handlers{
		Gate:         auth.NewGate(sessions),
		LoginLimiter: loginLimiter,
		Auth:         controllers.NewAuthController(users, sessions, cfg.Production(), log),
		Items:        controllers.NewItemController(items, log),
		Orders:       controllers.NewOrderController(orders, metrics, log),
	})

	scheduler, err := sessions.ScheduleSweep(cfg.SweepInterval, func(removed int) {
		metrics.SessionsSwept.Add(float64(removed))
		loginLimiter.Cleanup(cfg.SweepInterval)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("schedule session sweep")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scheduler.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := backend.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("close store")
	}
}
