package server

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"fabric-catalog/internal/config"
	"fabric-catalog/internal/media"
	"fabric-catalog/internal/metrics"
	custommiddleware "fabric-catalog/internal/middleware"
	"fabric-catalog/internal/repository"
	"fabric-catalog/internal/service"
	"fabric-catalog/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	storage *Storage
	redis   *redis.Client
}

// mediaBackend is the configured image store plus what the router and the
// health check need from it
type mediaBackend struct {
	store media.Store
	local *media.LocalStore
	ping  func(ctx context.Context) error
}

func openMedia(cfg config.MediaConfig) (*mediaBackend, error) {
	var backend mediaBackend

	switch cfg.Driver {
	case config.MediaCloudinary:
		store, err := media.NewCloudinaryStore(cfg.CloudName, cfg.APIKey, cfg.APISecret, cfg.Folder)
		if err != nil {
			return nil, err
		}
		backend.store = store
		backend.ping = store.Ping
	case config.MediaLocal:
		store, err := media.NewDiskStore(cfg.LocalDir, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		backend.store = store
		backend.local = store
	default:
		return nil, fmt.Errorf("unknown media driver %q", cfg.Driver)
	}

	backend.store = media.Instrument(media.Throttle(backend.store, cfg.UploadRate, cfg.UploadBurst), cfg.Driver)
	return &backend, nil
}

func NewServer(cfg *config.Config, logger *zap.Logger, storage *Storage) (*Server, error) {
	backend, err := openMedia(cfg.Media)
	if err != nil {
		return nil, err
	}

	admin, err := service.NewAdmin(cfg.Admin.Email, cfg.Admin.Name, cfg.Admin.PasswordHash, cfg.Admin.Password)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	deletePolicy := repository.DeleteAllow
	if cfg.Catalog.BlockReferencedCategoryDelete {
		deletePolicy = repository.DeleteRestrict
	}

	authService := service.NewAuthService(repository.NewStaticCredentialStore(admin), cfg.JWT.Secret, cfg.JWT.Expiration)
	categoryService := service.NewCategoryService(storage.Categories, deletePolicy, logger)
	productService := service.NewProductService(storage.Products, storage.Categories, backend.store, service.ProductServiceConfig{
		MaxFiles:          cfg.Media.MaxFiles,
		MaxFileSize:       cfg.Media.MaxFileSize,
		EmptyClears:       cfg.Catalog.EmptyFieldClears,
		UploadConcurrency: cfg.Media.UploadConcurrency,
	}, logger)

	dev := cfg.Server.IsDevelopment()
	authHandler := transport.NewAuthHandler(authService, logger, dev)
	categoryHandler := transport.NewCategoryHandler(categoryService, logger, dev)
	productHandler := transport.NewProductHandler(productService, cfg.Media.MaxFiles, cfg.Media.MaxFileSize, logger, dev)

	guards := []func(http.Handler) http.Handler{
		custommiddleware.AuthMiddleware(authService, logger),
		custommiddleware.RequireAdmin(logger),
	}

	var loginLimits []func(http.Handler) http.Handler
	if redisClient != nil && cfg.RateLimit.LoginRequests > 0 {
		loginLimits = append(loginLimits, custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.LoginRequests,
			Window:            cfg.RateLimit.LoginWindow,
			KeyPrefix:         "ratelimit:login",
		}, logger))
	}

	router := chi.NewRouter()
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.MetricsMiddleware)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, dev))

	router.Get("/health", healthHandler(storage, backend))
	router.Handle("/metrics", metrics.Handler())

	if backend.local != nil {
		base := backend.local.BaseURL()
		router.Handle(base+"/*", http.StripPrefix(base, backend.local.Handler()))
	}

	router.Route(basePath(cfg.Server.BasePath), func(r chi.Router) {
		authHandler.RegisterRoutes(r, loginLimits...)
		categoryHandler.RegisterRoutes(r, guards...)
		productHandler.RegisterRoutes(r, guards...)
	})

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		config:  cfg,
		logger:  logger,
		storage: storage,
		redis:   redisClient,
	}

	return server, nil
}

func basePath(p string) string {
	return path.Clean("/" + strings.Trim(p, "/"))
}

type healthResponse struct {
	Status   string            `json:"status"`
	Database map[string]string `json:"database"`
	Media    map[string]string `json:"media"`
}

func healthHandler(storage *Storage, backend *mediaBackend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:   "ok",
			Database: storage.Health(r.Context()),
			Media:    map[string]string{"status": "up"},
		}

		if backend.ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := backend.ping(ctx); err != nil {
				resp.Media = map[string]string{"status": "down", "error": err.Error()}
			}
		}

		status := http.StatusOK
		if resp.Database["status"] != "up" || resp.Media["status"] != "up" {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}

		custommiddleware.RespondWithJSON(w, status, resp)
	}
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			s.logger.Error("Failed to close storage", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
