package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"fintrack/internal/charts"
	"fintrack/internal/core"
	"fintrack/internal/rates"
	"fintrack/internal/services"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "bad request", err: badRequest("invalid id"), want: http.StatusBadRequest},
		{name: "validation", err: core.NewValidation("amount", "too precise"), want: http.StatusUnprocessableEntity},
		{name: "wrapped validation", err: fmt.Errorf("save: %w", core.NewValidation("name", "empty")), want: http.StatusUnprocessableEntity},
		{name: "not found", err: core.NewNotFound("account", 7), want: http.StatusNotFound},
		{name: "protected", err: &core.ProtectedDeleteError{Entity: "category", ID: 1, References: 2}, want: http.StatusConflict},
		{name: "rate lookup", err: &rates.LookupError{Codes: []string{"XYZ"}, Err: rates.ErrRateNotFound}, want: http.StatusBadGateway},
		{name: "export disabled", err: services.ErrExportDisabled, want: http.StatusServiceUnavailable},
		{name: "no chart data", err: charts.ErrNoData, want: http.StatusNoContent},
		{name: "unexpected", err: errors.New("disk on fire"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestJSONResponseBuilder(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		Body(map[string]int{"id": 3}).
		Write(rec)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Test"))
	assert.JSONEq(t, `{"id":3}`, rec.Body.String())
}

func TestJSONResponseBuilderRaw(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Raw("image/png", []byte("png")).Write(rec)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png", rec.Body.String())
}

func TestErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	BadRequestError("nope").Write(rec)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"nope"}`, rec.Body.String())
}
