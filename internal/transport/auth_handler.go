package transport

import (
	"net/http"

	"fabric-catalog/internal/middleware"
	"fabric-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token string       `json:"token"`
	User  AdminProfile `json:"user"`
}

// AdminProfile is the public view of the signed-in admin
type AdminProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AuthHandler handles admin sign-in
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
	errors      errorResponder
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger, development bool) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
		errors:      errorResponder{logger: logger, development: development},
	}
}

// RegisterRoutes registers the auth routes. Middlewares wrap the login
// endpoint only, typically a rate limiter.
func (h *AuthHandler) RegisterRoutes(r chi.Router, middlewares ...func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.With(middlewares...).Post("/login", h.Login)
	})
}

// Login handles admin authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Login validation failed", zap.Error(err))
		badRequestBody(w, err)
		return
	}

	token, admin, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Info("Login failed", zap.String("email", req.Email))
		h.errors.respond(w, r, err)
		return
	}

	h.logger.Info("Admin logged in", zap.String("admin_id", admin.ID))
	middleware.RespondWithJSON(w, http.StatusOK, LoginResponse{
		Token: token,
		User: AdminProfile{
			Name:  admin.Name,
			Email: admin.Email,
			Role:  admin.Role,
		},
	})
}
