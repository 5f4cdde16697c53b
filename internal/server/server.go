package server

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/fleetops/eldstream/internal/bus"
	"github.com/fleetops/eldstream/internal/config"
	"github.com/fleetops/eldstream/internal/handler"
	"github.com/fleetops/eldstream/internal/ingest"
	"github.com/fleetops/eldstream/internal/live"
	"github.com/fleetops/eldstream/internal/query"
	"github.com/fleetops/eldstream/internal/repository"
	"github.com/fleetops/eldstream/internal/response"
)

// Server holds the Echo app and the live-delivery machinery: the event
// bus, the subscriber hub, and the bridge loop between them.
type Server struct {
	Echo   *echo.Echo
	Config *config.Config
	Bus    *bus.Bus
	Hub    *live.Hub

	pool *pgxpool.Pool
	log  zerolog.Logger
}

// New builds the Echo server and registers routes. Caller must provide a
// non-nil pool; nrApp may be nil when observability is disabled.
func New(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger, nrApp *newrelic.Application) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover(), middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSAllowedOrigins,
	}))
	if nrApp != nil {
		e.Use(transactionMiddleware(nrApp))
	}

	liveCfg := cfg.Live
	if liveCfg == nil {
		liveCfg = config.DefaultLiveConfig()
	}

	b := bus.New(liveCfg.BusBuffer)
	hub := live.NewHub(logger, live.Options{SendTimeout: liveCfg.SendTimeout()})
	recent := newRecentStore(liveCfg.RecentCapacity)

	entryRepo := repository.NewLogEntryRepository(pool)
	pipeline := ingest.New(entryRepo, b, logger, &ingest.Opts{OnEntry: recent.Add})

	logHandler := &handler.LogHandler{
		Pipeline:         pipeline,
		Query:            query.New(entryRepo),
		Hub:              hub,
		KeepAlive:        liveCfg.KeepAlive(),
		SubscriberBuffer: liveCfg.SubscriberBuffer,
	}
	driverHandler := &handler.DriverHandler{Repo: repository.NewDriverRepository(pool)}

	e.POST("/api/events", logHandler.Ingest)
	e.GET("/api/logs", logHandler.Logs)
	e.GET("/api/stream", logHandler.Stream)
	e.GET("/api/drivers", driverHandler.List)
	e.GET("/api/drivers/:id", driverHandler.Get)
	e.PUT("/api/drivers/:id", driverHandler.Put)

	e.GET("/api/logs/recent", func(c echo.Context) error {
		return response.OK(c, map[string]any{"logs": recent.Entries()}, "")
	})
	e.GET("/healthz", func(c echo.Context) error {
		if err := pool.Ping(c.Request().Context()); err != nil {
			return response.ServiceUnavailable(c, "database unreachable", err.Error())
		}
		return response.OK(c, map[string]any{"status": "ok", "subscribers": hub.Len()}, "")
	})

	return &Server{
		Echo:   e,
		Config: cfg,
		Bus:    b,
		Hub:    hub,
		pool:   pool,
		log:    logger.With().Str("component", "server").Logger(),
	}
}

// Start launches the bus-to-hub bridge and the HTTP listener. Blocks
// until the context is cancelled or the listener fails; on cancel the
// live path is shut down before the listener.
func (s *Server) Start(ctx context.Context) error {
	go s.Hub.Run(ctx, s.Bus.Subscribe())
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	// WriteTimeout stays unset: it would sever long-lived SSE streams.
	s.Echo.Server.ReadTimeout = time.Duration(s.Config.Server.ReadTimeout) * time.Second
	s.Echo.Server.IdleTimeout = time.Duration(s.Config.Server.IdleTimeout) * time.Second

	addr := ":" + s.Config.Server.Port
	s.log.Info().Str("addr", addr).Msg("listening")
	return s.Echo.Start(addr)
}

// Shutdown stops live delivery (bus first, then the hub) and then the
// HTTP listener. Persisted data is unaffected.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Bus.Close()
	s.Hub.Shutdown()
	return s.Echo.Shutdown(ctx)
}
