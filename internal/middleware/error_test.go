package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

var errorStatusCodes = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusUnprocessableEntity,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
}

// Feature: catalog, Property 14: Errors have consistent structure
func TestProperty_ErrorsHaveConsistentStructure(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("all error responses carry code, message and timestamp", prop.ForAll(
		func(pick int, message string) bool {
			statusCode := errorStatusCodes[pick]

			w := httptest.NewRecorder()
			RespondWithError(w, statusCode, message)

			if w.Code != statusCode || w.Header().Get("Content-Type") != "application/json" {
				return false
			}

			var response ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				return false
			}

			if response.Error.Code != http.StatusText(statusCode) || response.Error.Message != message {
				return false
			}
			_, err := time.Parse(time.RFC3339, response.Error.Timestamp)
			return err == nil
		},
		gen.IntRange(0, len(errorStatusCodes)-1),
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ErrorDetailsAreIncluded(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("error responses with details include them", prop.ForAll(
		func(detailKey string, detailValue string) bool {
			w := httptest.NewRecorder()
			RespondWithErrorDetails(w, http.StatusBadRequest, "validation failed", map[string]interface{}{
				detailKey: detailValue,
			})

			var response ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				return false
			}

			val, ok := response.Error.Details[detailKey]
			return ok && val == detailValue
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRespondWithErrorCode_OverridesCode(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithErrorCode(w, http.StatusBadRequest, "Conflict", "category with this name already exists", nil)

	var response ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if w.Code != http.StatusBadRequest || response.Error.Code != "Conflict" {
		t.Errorf("unexpected response %d %+v", w.Code, response.Error)
	}
	if response.Error.Details != nil {
		t.Errorf("expected details to be omitted, got %v", response.Error.Details)
	}
}

func TestRespondWithValidationErrors(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithValidationErrors(w, []ValidationError{{Field: "email", Message: "Invalid email format"}})

	var response ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if _, ok := response.Error.Details["validation_errors"]; !ok {
		t.Errorf("expected validation_errors in details, got %v", response.Error.Details)
	}
}

func TestRespondWithData_WrapsPayload(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithData(w, http.StatusCreated, map[string]interface{}{"name": "Silk", "isActive": true})

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if w.Code != http.StatusCreated || body.Data["name"] != "Silk" || body.Data["isActive"] != true {
		t.Errorf("unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestErrorHandlingMiddleware_RecoversPanics(t *testing.T) {
	handler := ErrorHandlingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/products", nil))

	var response ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if w.Code != http.StatusInternalServerError || response.Error.Message != "internal server error" {
		t.Errorf("unexpected response %d %+v", w.Code, response.Error)
	}
}
