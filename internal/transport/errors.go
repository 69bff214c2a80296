package transport

import (
	"errors"
	"net/http"

	"fabric-catalog/internal/domain"
	"fabric-catalog/internal/media"
	"fabric-catalog/internal/middleware"
	"fabric-catalog/internal/repository"
	"fabric-catalog/internal/service"

	"go.uber.org/zap"
)

// errorResponder maps service errors onto HTTP responses. Messages of
// unexpected failures are only exposed in development.
type errorResponder struct {
	logger      *zap.Logger
	development bool
}

func (e errorResponder) respond(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		attachmentErr *domain.AttachmentError
		upstreamErr   *media.UpstreamError
	)

	switch {
	case errors.As(err, &validationErr):
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, "validation failed", map[string]interface{}{
			"validation_errors": validationErr.Fields,
		})

	case errors.As(err, &attachmentErr):
		details := map[string]interface{}{"reason": attachmentErr.Reason}
		if attachmentErr.Filename != "" {
			details["filename"] = attachmentErr.Filename
		}
		if attachmentErr.Limit > 0 {
			details["limit"] = attachmentErr.Limit
		}
		middleware.RespondWithErrorDetails(w, http.StatusUnprocessableEntity, attachmentErr.Error(), details)

	case errors.Is(err, service.ErrInvalidCredentials):
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid email or password")

	case errors.Is(err, repository.ErrCategoryInUse):
		middleware.RespondWithError(w, http.StatusConflict, repository.ErrCategoryInUse.Error())

	case errors.Is(err, repository.ErrCategoryAlreadyExists):
		middleware.RespondWithErrorCode(w, http.StatusBadRequest, "Conflict", "category with this name already exists", nil)

	case errors.Is(err, repository.ErrCategoryNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "category not found")

	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")

	case errors.Is(err, domain.ErrNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "resource not found")

	case errors.As(err, &upstreamErr):
		e.logger.Error("Media store failure",
			zap.String("path", r.URL.Path),
			zap.String("op", upstreamErr.Op),
			zap.Error(err),
		)
		e.internal(w, "media store unavailable", err)

	default:
		e.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.Error(err),
		)
		e.internal(w, "internal server error", err)
	}
}

func (e errorResponder) internal(w http.ResponseWriter, message string, err error) {
	if e.development {
		message = err.Error()
	}
	middleware.RespondWithError(w, http.StatusInternalServerError, message)
}

// badRequestBody answers a body that failed to decode or validate
func badRequestBody(w http.ResponseWriter, err error) {
	if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
		middleware.RespondWithValidationErrors(w, validationErrors)
		return
	}
	middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
}
