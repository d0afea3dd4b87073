package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"loom/internal/domain"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"Validation", fmt.Errorf("message: %w", domain.ErrValidation), http.StatusUnprocessableEntity},
		{"InvalidExpressionWrapsValidation", fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidExpression), http.StatusUnprocessableEntity},
		{"NotFound", fmt.Errorf("thread abc: %w", domain.ErrNotFound), http.StatusNotFound},
		{"Unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"Forbidden", fmt.Errorf("thread abc: %w", domain.ErrForbidden), http.StatusForbidden},
		{"Conflict", domain.ErrConflict, http.StatusConflict},
		{"BackendUnavailable", fmt.Errorf("reasoning: %w", domain.ErrBackendUnavailable), http.StatusBadGateway},
		{"LoopExceeded", domain.ErrLoopExceeded, http.StatusBadGateway},
		{"TypedValidationError", &domain.ValidationError{Message: "bad input"}, http.StatusUnprocessableEntity},
		{"Persistence", fmt.Errorf("%w: pq: connection reset", domain.ErrPersistence), http.StatusInternalServerError},
		{"Unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Content-Type"); got != "application/problem+json" {
				t.Errorf("content type = %q", got)
			}

			var problem map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
				t.Fatalf("body is not JSON: %v", err)
			}
			if int(problem["status"].(float64)) != tt.wantStatus {
				t.Errorf("problem status = %v, want %d", problem["status"], tt.wantStatus)
			}
		})
	}
}

func TestHandleErrorHidesInternalDetail(t *testing.T) {
	internalErrors := map[string]error{
		"Unknown":     errors.New("pq: connection refused to 10.0.0.5"),
		"Persistence": fmt.Errorf("%w: pq: connection refused to 10.0.0.5", domain.ErrPersistence),
	}

	for name, err := range internalErrors {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleError(rec, err)

			var problem map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
				t.Fatalf("body is not JSON: %v", err)
			}
			if detail, ok := problem["detail"].(string); ok && detail != "internal server error" {
				t.Errorf("internal detail leaked: %q", detail)
			}
		})
	}
}
