package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		showDetails bool
		wantStatus  int
		wantBody    string
	}{
		{
			name:       "api error",
			err:        NewNotFoundError("file", "abc"),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"code":"NOT_FOUND","message":"file not found: abc"}`,
		},
		{
			name:       "wrapped api error",
			err:        fmt.Errorf("handler: %w", NewValidationError("limit")),
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"code":"VALIDATION_ERROR","message":"validation failed for field: limit"}`,
		},
		{
			name:       "echo error",
			err:        echo.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed"),
			wantStatus: http.StatusMethodNotAllowed,
			wantBody:   `{"code":"HTTP_ERROR","message":"Method Not Allowed"}`,
		},
		{
			name:       "unknown error hides details",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"code":"UNKNOWN_ERROR","message":"An unexpected error occurred"}`,
		},
		{
			name:        "unknown error with details",
			err:         errors.New("boom"),
			showDetails: true,
			wantStatus:  http.StatusInternalServerError,
			wantBody:    `{"code":"UNKNOWN_ERROR","message":"An unexpected error occurred","details":"boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newJSONContext(http.MethodGet, "/api/anything", "")
			ErrorHandler(zap.NewNop(), tt.showDetails)(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
