package apperr

import (
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{NotFound("Lead not found"), http.StatusNotFound},
		{Validation("Email is required"), http.StatusBadRequest},
		{BadRequest("Invalid request body"), http.StatusBadRequest},
		{Conflict("Lead already approved"), http.StatusConflict},
		{TooManyRequests("slow down"), http.StatusTooManyRequests},
		{Unavailable("proposal generator not configured"), http.StatusServiceUnavailable},
		{Internal("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Message, func(t *testing.T) {
			if got := tt.err.HTTPStatus(); got != tt.want {
				t.Fatalf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("approve lead: %w", NotFound("Lead not found"))

	if GetKind(err) != KindNotFound {
		t.Fatalf("expected not found kind, got %v", GetKind(err))
	}
	if !Is(err, KindNotFound) || Is(err, KindConflict) {
		t.Fatal("Is must match only the wrapped kind")
	}
	if GetKind(fmt.Errorf("plain")) != KindUnknown {
		t.Fatal("plain errors have no kind")
	}
}
