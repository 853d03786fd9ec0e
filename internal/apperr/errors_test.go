package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DjordjeVuckovic/engine-bench/internal/apperr"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	err := apperr.NewValidation("baseline is required")

	assert.Equal(t, "baseline is required", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestNewValidationWrap(t *testing.T) {
	inner := fmt.Errorf("bad run id")
	err := apperr.NewValidationWrap("invalid request", inner)

	assert.Equal(t, "invalid request: bad run id", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestValidationError_SurvivesFmtWrapping(t *testing.T) {
	wrapped := fmt.Errorf("browser: %w", fmt.Errorf("compare: %w", apperr.NewValidation("candidate is required")))

	var ve *apperr.ValidationError
	require.ErrorAs(t, wrapped, &ve)
	assert.Equal(t, "candidate is required", ve.Message)
}

func TestValidationError_NotFoundForPlainErrors(t *testing.T) {
	wrapped := fmt.Errorf("read manifest: %w", errors.New("permission denied"))

	var ve *apperr.ValidationError
	assert.False(t, errors.As(wrapped, &ve))
}

func TestNewNotFound(t *testing.T) {
	err := apperr.NewNotFound("table r1/innodb")
	assert.Equal(t, "table r1/innodb not found", err.Error())
}

func TestGlobalErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"validation", apperr.NewValidation("engine is required"), http.StatusBadRequest, `"title":"validation error"`},
		{"not found", fmt.Errorf("browser: %w", apperr.NewNotFound(`run "r1"`)), http.StatusNotFound, `"title":"not found"`},
		{"http error", echo.NewHTTPError(http.StatusNotFound, "run not found"), http.StatusNotFound, `"error":"run not found"`},
		{"unhandled", errors.New("disk on fire"), http.StatusInternalServerError, `"error":"internal server error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			apperr.GlobalErrorHandler()(tt.err, c)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}
