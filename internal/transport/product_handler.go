package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"fabric-catalog/internal/domain"
	"fabric-catalog/internal/middleware"
	"fabric-catalog/internal/repository"
	"fabric-catalog/internal/service"
	"fabric-catalog/internal/validation"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	imagesField = "images"

	// room for the text fields next to the file parts
	formOverhead    = 1 << 20
	maxJSONBodySize = 1 << 20
	multipartMemory = 8 << 20
)

var errUnsupportedContentType = errors.New("unsupported content type")

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
	errors         errorResponder
	maxBodySize    int64
}

// NewProductHandler creates a new ProductHandler. The multipart body limit
// leaves room for one file over the count limit so that an extra image is
// reported as a rejected attachment rather than a truncated body.
func NewProductHandler(productService service.ProductService, maxFiles int, maxFileSize int64, logger *zap.Logger, development bool) *ProductHandler {
	if maxFiles <= 0 {
		maxFiles = validation.DefaultMaxFiles
	}
	if maxFileSize <= 0 {
		maxFileSize = validation.DefaultMaxFileSize
	}
	return &ProductHandler{
		productService: productService,
		logger:         logger,
		errors:         errorResponder{logger: logger, development: development},
		maxBodySize:    int64(maxFiles+1)*maxFileSize + formOverhead,
	}
}

// RegisterRoutes registers the product routes; writes go through guards
func (h *ProductHandler) RegisterRoutes(r chi.Router, guards ...func(http.Handler) http.Handler) {
	r.Route("/products", func(r chi.Router) {
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

// Create handles POST /products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, cleanup, ok := h.readInput(w, r)
	if !ok {
		return
	}
	defer cleanup()

	product, err := h.productService.Create(r.Context(), in)
	if err != nil {
		h.errors.respond(w, r, err)
		return
	}

	middleware.RespondWithData(w, http.StatusCreated, product)
}

// Update handles PUT /products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, cleanup, ok := h.readInput(w, r)
	if !ok {
		return
	}
	defer cleanup()

	product, err := h.productService.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.errors.respond(w, r, err)
		return
	}

	middleware.RespondWithData(w, http.StatusOK, product)
}

// Delete handles DELETE /products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.productService.Delete(r.Context(), id); err != nil {
		h.errors.respond(w, r, err)
		return
	}

	middleware.RespondWithData(w, http.StatusOK, map[string]string{
		"id":      id,
		"message": "product deleted",
	})
}

// Get handles GET /products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.respond(w, r, err)
		return
	}

	middleware.RespondWithData(w, http.StatusOK, product)
}

// List handles GET /products?category=&sort=&order=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	products, err := h.productService.List(r.Context(), repository.ProductFilter{
		CategoryID: q.Get("category"),
		SortBy:     q.Get("sort"),
		Order:      repository.ParseSortOrder(q.Get("order")),
	})
	if err != nil {
		h.errors.respond(w, r, err)
		return
	}

	middleware.RespondWithData(w, http.StatusOK, products)
}

// readInput collects the form values and image parts of a product write.
// It writes the error response itself and reports ok=false on failure.
func (h *ProductHandler) readInput(w http.ResponseWriter, r *http.Request) (validation.Input, func(), bool) {
	noop := func() {}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil && r.Header.Get("Content-Type") != "" {
		middleware.RespondWithError(w, http.StatusUnsupportedMediaType, errUnsupportedContentType.Error())
		return validation.Input{}, noop, false
	}

	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			h.logger.Debug("Failed to parse multipart form", zap.Error(err))
			respondUnreadableBody(w, err)
			return validation.Input{}, noop, false
		}
		form := r.MultipartForm
		return validation.Input{
			Fields: form.Value,
			Files:  attachments(form.File[imagesField]),
		}, func() { form.RemoveAll() }, true

	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
		if err := r.ParseForm(); err != nil {
			respondUnreadableBody(w, err)
			return validation.Input{}, noop, false
		}
		return validation.Input{Fields: r.PostForm}, noop, true

	case "application/json":
		fields, err := decodeJSONFields(http.MaxBytesReader(w, r.Body, maxJSONBodySize))
		if err != nil {
			h.logger.Debug("Failed to decode product body", zap.Error(err))
			respondUnreadableBody(w, err)
			return validation.Input{}, noop, false
		}
		return validation.Input{Fields: fields}, noop, true

	case "":
		return validation.Input{Fields: map[string][]string{}}, noop, true
	}

	middleware.RespondWithError(w, http.StatusUnsupportedMediaType, errUnsupportedContentType.Error())
	return validation.Input{}, noop, false
}

func respondUnreadableBody(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		middleware.RespondWithError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
}

func attachments(headers []*multipart.FileHeader) []domain.Attachment {
	files := make([]domain.Attachment, 0, len(headers))
	for _, fh := range headers {
		files = append(files, domain.Attachment{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				f, err := fh.Open()
				if err != nil {
					return nil, err
				}
				return f, nil
			},
		})
	}
	return files
}

// decodeJSONFields flattens a JSON object into form values. Strings are
// taken as is, arrays are kept as their JSON text and other scalars as their
// literal, so the same coercion rules apply as for form bodies.
func decodeJSONFields(body io.Reader) (map[string][]string, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, err
	}

	fields := make(map[string][]string, len(raw))
	for key, value := range raw {
		value = bytes.TrimSpace(value)
		switch {
		case bytes.Equal(value, []byte("null")):
			continue
		case len(value) > 0 && value[0] == '"':
			var s string
			if err := json.Unmarshal(value, &s); err != nil {
				return nil, err
			}
			fields[key] = []string{s}
		default:
			fields[key] = []string{strings.TrimSpace(string(value))}
		}
	}
	return fields, nil
}
