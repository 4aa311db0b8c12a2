package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbot/pkg/errors"
	"ledgerbot/pkg/logger"
)

type stubChecker struct {
	err error
}

func (c stubChecker) Health(ctx context.Context) error {
	return c.err
}

func newTestHandler(checks map[string]Checker) *Handler {
	return New(logger.Get(), checks, "ledgerbot", "test")
}

func TestHandleRoot(t *testing.T) {
	h := newTestHandler(nil)

	rec := httptest.NewRecorder()
	h.HandleRoot(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Bot is running!", body["message"])
}

func TestHandleRoot_UnknownPath(t *testing.T) {
	h := newTestHandler(nil)

	rec := httptest.NewRecorder()
	h.HandleRoot(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleLiveness(t *testing.T) {
	h := newTestHandler(nil)

	rec := httptest.NewRecorder()
	h.HandleLiveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alive", body["status"])
}

func TestHandleReadiness_Healthy(t *testing.T) {
	h := newTestHandler(map[string]Checker{
		"postgres": stubChecker{},
	})

	rec := httptest.NewRecorder()
	h.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var status Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["postgres"].Status)
}

func TestHandleReadiness_UnhealthyDependency(t *testing.T) {
	h := newTestHandler(map[string]Checker{
		"postgres": stubChecker{},
		"redis":    stubChecker{err: errors.ErrUnavailable},
	})

	rec := httptest.NewRecorder()
	h.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "healthy", status.Checks["postgres"].Status)
	assert.Equal(t, "unhealthy", status.Checks["redis"].Status)
}

func TestHandleReadiness_NoChecks(t *testing.T) {
	h := newTestHandler(nil)

	rec := httptest.NewRecorder()
	h.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
