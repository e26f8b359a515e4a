package api

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/sunpath-tracker/backend/internal/loader"
	"github.com/sunpath-tracker/backend/internal/models"
)

// mockLoader is a LoadController that records calls
type mockLoader struct {
	mu         sync.Mutex
	calls      []mockLoad
	state      models.LoadState
	cancelResp bool
	cancels    int
}

type mockLoad struct {
	path       string
	cfg        models.PlaybackConfig
	onProgress loader.ProgressFunc
	onDone     loader.DoneFunc
}

func newMockLoader() *mockLoader {
	return &mockLoader{state: models.LoadState{Status: models.LoadStatusIdle}}
}

func (m *mockLoader) Load(path string, cfg models.PlaybackConfig, onProgress loader.ProgressFunc, onDone loader.DoneFunc) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mockLoad{path: path, cfg: cfg, onProgress: onProgress, onDone: onDone})
	m.state = models.LoadState{ID: "load-1", Path: path, Status: models.LoadStatusLoading, Config: &cfg}
	return "load-1"
}

func (m *mockLoader) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels++
	return m.cancelResp
}

func (m *mockLoader) State() models.LoadState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockLoader) setState(s models.LoadState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func newJSONContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// requireAPIError asserts err is an *APIError with the given status and code.
func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %T (%v)", err, err)
	require.Equal(t, status, apiErr.Status)
	require.Equal(t, code, apiErr.Code)
}
