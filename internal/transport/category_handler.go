package transport

import (
	"net/http"
	"strconv"

	"fabric-catalog/internal/middleware"
	"fabric-catalog/internal/repository"
	"fabric-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateCategoryRequest represents the category creation payload
type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Image       string `json:"image"`
	IsActive    *bool  `json:"isActive"`
}

// UpdateCategoryRequest changes only the fields present in the body
type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
	IsActive    *bool   `json:"isActive"`
}

// CategoryHandler handles HTTP requests for categories
type CategoryHandler struct {
	categoryService service.CategoryService
	logger          *zap.Logger
	errors          errorResponder
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService service.CategoryService, logger *zap.Logger, development bool) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger,
		errors:          errorResponder{logger: logger, development: development},
	}
}

// RegisterRoutes registers the category routes; writes go through guards
func (h *CategoryHandler) RegisterRoutes(r chi.Router, guards ...func(http.Handler) http.Handler) {
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(guards...)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

// Create handles category creation
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Category validation failed", zap.Error(err))
		badRequestBody(w, err)
		return
	}

	category, err := h.categoryService.Create(r.Context(), service.CreateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.errors.respond(w, r, err)
		return
	}

	middleware.RespondWithData(w, http.StatusCreated, category)
}

// List handles GET /categories?active=&sort=&order=
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	activeOnly, _ := strconv.ParseBool(q.Get("active"))

	categories, err := h.categoryService.List(r.Context(), repository.CategoryListOptions{
		ActiveOnly: activeOnly,
		SortBy:     q.Get("sort"),
		Order:      repository.ParseSortOrder(q.Get("order")),
	})
	if err != nil {
		h.errors.respond(w, r, err)
		return
	}

	middleware.RespondWithData(w, http.StatusOK, categories)
}

// Get handles GET /categories/{id}
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	category, err := h.categoryService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.respond(w, r, err)
		return
	}

	middleware.RespondWithData(w, http.StatusOK, category)
}

// Update handles PUT /categories/{id}
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateCategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Category validation failed", zap.Error(err))
		badRequestBody(w, err)
		return
	}

	category, err := h.categoryService.Update(r.Context(), chi.URLParam(r, "id"), service.UpdateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.errors.respond(w, r, err)
		return
	}

	middleware.RespondWithData(w, http.StatusOK, category)
}

// Delete handles DELETE /categories/{id}
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.categoryService.Delete(r.Context(), id); err != nil {
		h.errors.respond(w, r, err)
		return
	}

	middleware.RespondWithData(w, http.StatusOK, map[string]string{
		"id":      id,
		"message": "category deleted",
	})
}
