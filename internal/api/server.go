package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"cinematime/internal/booking"
	"cinematime/internal/cache"
	"cinematime/internal/config"
	"cinematime/internal/database"
	"cinematime/internal/handlers"
	"cinematime/internal/inventory"
	"cinematime/internal/messaging"
	"cinematime/internal/metrics"
	"cinematime/internal/middleware"
	"cinematime/internal/repository"
	"cinematime/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Server is the booking HTTP API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *redis.Client
	services *service.Services
	metrics  *metrics.Metrics
}

// NewServer connects the backing stores and builds the router
func NewServer(cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	s := &Server{config: cfg, db: db}

	var publisher messaging.Publisher = messaging.NoopPublisher{}
	if cfg.NATS.Enabled {
		natsClient, err := messaging.NewNATSClient(cfg.NATS)
		if err != nil {
			s.Cleanup()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		s.nats = natsClient
		publisher = natsClient
	}

	// Valkey only backs the seat-map cache and the rate limiter, so the API runs without it
	if cfg.Cache.Enabled {
		client, err := cache.NewValkeyClient(cfg.Cache)
		if err != nil {
			slog.Warn("Valkey unavailable, running without cache and rate limiting", "error", err)
		} else {
			s.valkey = client
		}
	}

	if cfg.MetricsEnabled {
		s.metrics = metrics.New()
	}

	repos := repository.NewRepositories(db)

	engine := booking.NewEngine(repos.Showtimes, repos.Bookings,
		booking.WithPolicy(booking.CancellationPolicy{MinLeadTime: cfg.Booking.MinCancelLead}),
		booking.WithReferenceGenerator(booking.NewReferenceGenerator(cfg.Booking.ReferencePrefix)),
	)
	showtimes := cache.NewShowtimeCache(s.valkey, repos.Showtimes, cfg.Cache.ShowtimeTTL)
	view := inventory.NewView(showtimes, repos.Bookings)

	s.services = service.NewServices(engine, view, publisher, s.metrics)
	limiter := cache.NewRateLimiter(s.valkey, cfg.RateLimit)

	s.router = NewRouter(cfg, s.services, limiter, s.metrics, s.healthCheck)
	return s, nil
}

// NewRouter registers middleware and routes. m may be nil to disable /metrics.
func NewRouter(cfg *config.Config, services *service.Services, limiter middleware.Limiter, m *metrics.Metrics, health gin.HandlerFunc) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	if m != nil {
		router.Use(m.Middleware())
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	h := handlers.NewHandlers(services)

	api := router.Group("/api")
	{
		showtimes := api.Group("/showtimes")
		{
			showtimes.GET("/:id/seats", h.GetSeatMap)
			showtimes.GET("/:id/occupied", h.GetOccupiedSeats)
		}

		bookings := api.Group("/bookings")
		bookings.Use(middleware.Identity(cfg.UserIDHeader))
		{
			bookings.POST("", middleware.RateLimit(limiter), h.CreateBooking)
			bookings.GET("", h.ListBookings)
			bookings.GET("/:id", h.GetBooking)
			bookings.PATCH("/:id/cancel", h.CancelBooking)
		}
	}

	router.GET("/health", health)

	return router
}

func (s *Server) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	db := s.db.HealthCheck(ctx)
	s.db.ValidateConnectionPool()

	status := http.StatusOK
	body := gin.H{
		"status":   "ok",
		"service":  "cinematime-api",
		"database": db,
	}
	if !db.Healthy() {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	if s.valkey != nil {
		body["valkey"] = valkeyStatus(ctx, s.valkey)
	}

	c.JSON(status, body)
}

func valkeyStatus(ctx context.Context, client *redis.Client) string {
	if err := client.Ping(ctx).Err(); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Cleanup closes connections
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			slog.Error("Error closing Valkey connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
