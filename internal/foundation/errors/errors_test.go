package errors

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryValidation, "invalid slug").
			WithSeverity(SeverityWarning).
			WithContext("slug", "Bad Slug").
			Build()

		if err.Category() != CategoryValidation {
			t.Errorf("expected category %s, got %s", CategoryValidation, err.Category())
		}
		if err.Severity() != SeverityWarning {
			t.Errorf("expected severity %s, got %s", SeverityWarning, err.Severity())
		}
		if slug, ok := err.Context().GetString("slug"); !ok || slug != "Bad Slug" {
			t.Errorf("expected context slug, got %q", slug)
		}
	})

	t.Run("Wrapping keeps the cause", func(t *testing.T) {
		cause := stdErrors.New("exit status 1")
		err := WrapError(cause, CategoryBuild, "build failed").Build()
		if !stdErrors.Is(err, cause) {
			t.Error("expected error to wrap cause")
		}
		wrapped := fmt.Errorf("job: %w", err)
		if GetCategory(wrapped) != CategoryBuild {
			t.Errorf("expected category to be found through wrapping, got %s", GetCategory(wrapped))
		}
	})

	t.Run("Unclassified defaults to internal", func(t *testing.T) {
		if GetCategory(stdErrors.New("x")) != CategoryInternal {
			t.Error("expected internal category")
		}
	})
}

func TestHTTPErrorAdapter_StatusCodes(t *testing.T) {
	a := NewHTTPErrorAdapter(nil)
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ValidationError("x").Build(), http.StatusBadRequest},
		{NewError(CategoryTooLarge, "x").Build(), http.StatusRequestEntityTooLarge},
		{NotFoundError("x").Build(), http.StatusNotFound},
		{NewError(CategoryNotReady, "x").Build(), http.StatusConflict},
		{UnavailableError("x").Build(), http.StatusServiceUnavailable},
		{BuildError("x").Build(), http.StatusInternalServerError},
		{stdErrors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := a.StatusCodeFor(tt.err); got != tt.want {
			t.Errorf("StatusCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHTTPErrorAdapter_WriteErrorResponse(t *testing.T) {
	a := NewHTTPErrorAdapter(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tasks/x/status", nil)

	a.WriteErrorResponse(rec, req, UnavailableError("build queue is full").WithContext("capacity", 2).Build())

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body HTTPErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "build queue is full" || body.Code != "unavailable" || !body.Retryable {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Details["capacity"] != float64(2) {
		t.Fatalf("expected capacity detail, got %v", body.Details)
	}
}
