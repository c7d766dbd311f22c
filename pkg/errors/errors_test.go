package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "Reservation not found",
			},
			expected: "NOT_FOUND: Reservation not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("mongo connection reset"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: mongo connection reset)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	originalErr := errors.New("write failed")
	wrapped := Wrap(originalErr, CodeInternal, "internal error", http.StatusInternalServerError)

	if errors.Unwrap(wrapped) != originalErr {
		t.Errorf("Unwrap() should return original error")
	}
	if !errors.Is(wrapped, originalErr) {
		t.Errorf("errors.Is should reach the wrapped cause")
	}
}

func TestStatusCode_DefaultsToInternal(t *testing.T) {
	err := &AppError{Code: CodeInternal}
	if err.StatusCode() != http.StatusInternalServerError {
		t.Errorf("StatusCode() = %d, want %d", err.StatusCode(), http.StatusInternalServerError)
	}
}

func TestWithDetails_Merges(t *testing.T) {
	err := NotFoundWithID("Room", "r-101")
	err = err.WithDetails(map[string]any{"reason": "NOT_FOUND"})

	if err.Details["id"] != "r-101" {
		t.Errorf("expected id detail to survive merge, got %v", err.Details["id"])
	}
	if err.Details["reason"] != "NOT_FOUND" {
		t.Errorf("expected reason detail, got %v", err.Details["reason"])
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"not found", NotFound("Room"), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("bad", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"invalid input", InvalidInput("bad"), CodeInvalidInput, http.StatusBadRequest},
		{"unauthorized", Unauthorized("who"), CodeUnauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden("no"), CodeForbidden, http.StatusForbidden},
		{"conflict", Conflict("taken"), CodeConflict, http.StatusConflict},
		{"internal", Internal("boom", nil), CodeInternal, http.StatusInternalServerError},
		{"timeout", Timeout("slow"), CodeTimeout, http.StatusGatewayTimeout},
		{"unavailable", Unavailable("Room catalog"), CodeUnavailable, http.StatusServiceUnavailable},
		{"rate limited", RateLimited(), CodeRateLimited, http.StatusTooManyRequests},
		{"too large", PayloadTooLarge(1024), CodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{"media type", UnsupportedMediaType("application/json"), CodeUnsupportedMediaType, http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.wantCode)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", tt.err.StatusCode(), tt.wantStatus)
			}
		})
	}
}

func TestReason(t *testing.T) {
	if got := RateLimited().Reason(); got != CodeRateLimited {
		t.Errorf("RateLimited().Reason() = %q", got)
	}
	if got := NotFound("Room").Reason(); got != "" {
		t.Errorf("NotFound().Reason() = %q, want empty", got)
	}
	err := Conflict("taken").WithDetails(map[string]any{DetailReason: "SLOT_CONFLICT"})
	if got := err.Reason(); got != "SLOT_CONFLICT" {
		t.Errorf("Reason() = %q", got)
	}
}

func TestUnavailable_Message(t *testing.T) {
	err := Unavailable("Room catalog")
	if err.Message != "Room catalog is temporarily unavailable" {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Reservation")
	regularErr := errors.New("regular error")

	if AsAppError(appErr) != appErr {
		t.Errorf("AsAppError() should return same AppError")
	}

	wrapped := fmt.Errorf("service layer: %w", appErr)
	if AsAppError(wrapped) != appErr {
		t.Errorf("AsAppError() should unwrap to the AppError")
	}
	if !IsAppError(wrapped) {
		t.Errorf("IsAppError() should see through wrapping")
	}

	result := AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}
}

func TestAppError_ToJSON(t *testing.T) {
	body := string(NotFoundWithID("Reservation", "abc").ToJSON())

	for _, want := range []string{"NOT_FOUND", "Reservation not found", `"id":"abc"`} {
		if !strings.Contains(body, want) {
			t.Errorf("ToJSON() = %s, missing %s", body, want)
		}
	}
}
