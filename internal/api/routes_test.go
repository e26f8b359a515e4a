package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunpath-tracker/backend/internal/config"
	"github.com/sunpath-tracker/backend/internal/dataset"
	"github.com/sunpath-tracker/backend/internal/eventloop"
	"github.com/sunpath-tracker/backend/internal/loader"
	"github.com/sunpath-tracker/backend/internal/metrics"
	"github.com/sunpath-tracker/backend/internal/models"
	"github.com/sunpath-tracker/backend/internal/playback"
	"github.com/sunpath-tracker/backend/internal/storage"
	"github.com/sunpath-tracker/backend/internal/testutil"
	"go.uber.org/zap"
)

type testServer struct {
	srv      *httptest.Server
	series   *dataset.Series
	settings *playback.Settings
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := config.DefaultConfig()
	cfg.Logging.RequestLogging = false
	log := zap.NewNop()

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	series := dataset.New().Primary()
	settings := playback.NewSettings(models.PlaybackConfig{DelayMillis: 0, AnimationsEnabled: false}, models.DefaultChartStyle())
	loop := eventloop.New(64, log)
	go loop.Run(ctx)

	hub := NewHub(log)
	rec := metrics.New(prometheus.NewRegistry())
	ldr := loader.New(ctx, series, loop,
		loader.WithLogger(log),
		loader.WithMetrics(rec),
		loader.WithStartFunc(hub.LoadStarted),
	)

	e := echo.New()
	SetupMiddleware(e, cfg, log)
	handlers := NewHandlers(&Dependencies{
		Config:   cfg,
		Store:    store,
		Loader:   ldr,
		Settings: settings,
		Series:   series,
		Hub:      hub,
		Metrics:  rec.Handler(),
		Log:      log,
		Version:  "test",
	})
	RegisterRoutes(e, handlers, cfg.Metrics.Path)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, series: series, settings: settings}
}

func (ts *testServer) upload(t *testing.T, name, content string) models.FileInfo {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	part.Write([]byte(content))
	writer.Close()

	resp, err := http.Post(ts.srv.URL+"/api/files/upload", writer.FormDataContentType(), body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var info models.FileInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	return info
}

func (ts *testServer) startLoad(t *testing.T, fileID string) startLoadResponse {
	t.Helper()
	resp, err := http.Post(ts.srv.URL+"/api/load", echo.MIMEApplicationJSON,
		strings.NewReader(`{"fileId":"`+fileID+`"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out startLoadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (ts *testServer) status(t *testing.T) models.LoadState {
	t.Helper()
	resp, err := http.Get(ts.srv.URL + "/api/load/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var state models.LoadState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	return state
}

func TestServer_UploadLoadAndQuery(t *testing.T) {
	ts := newTestServer(t)
	info := ts.upload(t, "day.csv", testutil.SunPathCSV(6)+"bad line\n")
	started := ts.startLoad(t, info.ID)

	require.Eventually(t, func() bool {
		return ts.status(t).Status == models.LoadStatusComplete
	}, 5*time.Second, 10*time.Millisecond)

	state := ts.status(t)
	assert.Equal(t, started.LoadID, state.ID)
	assert.Equal(t, 6, state.Points)
	assert.Equal(t, 1, state.Skipped)
	require.Len(t, state.Errors, 1)
	assert.Equal(t, models.FailureMalformedRow, state.Errors[0].Kind)

	resp, err := http.Get(ts.srv.URL + "/api/series")
	require.NoError(t, err)
	defer resp.Body.Close()
	var series seriesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&series))
	assert.Len(t, series.Points, 6)
	assert.Equal(t, 500.0, series.Bounds.MaxValue)

	metricsResp, err := http.Get(ts.srv.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	assert.Equal(t, http.StatusOK, metricsResp.StatusCode)
}

func TestServer_ErrorResponses(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.srv.URL+"/api/load", echo.MIMEApplicationJSON, strings.NewReader(`{"fileId":"nope"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var apiErr APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, "NOT_FOUND", apiErr.Code)

	health, err := http.Get(ts.srv.URL + "/api/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func readWS(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestServer_WebSocketStream(t *testing.T) {
	ts := newTestServer(t)
	ts.series.Append(models.NewDataPoint(time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC), 999))

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/api/ws/series"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	snap := readWS(t, conn)
	require.Equal(t, MsgTypeSnapshot, snap.Type)
	var payload dataset.SnapshotPayload
	require.NoError(t, json.Unmarshal(snap.Payload, &payload))
	require.Len(t, payload.Points, 1)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgTypePing, ID: "p1"}))
	pong := readWS(t, conn)
	assert.Equal(t, MsgTypePong, pong.Type)
	assert.Equal(t, "p1", pong.ID)

	info := ts.upload(t, "day.csv", testutil.SunPathCSV(3))
	started := ts.startLoad(t, info.ID)

	start := readWS(t, conn)
	require.Equal(t, MsgTypeLoadStart, start.Type)
	assert.Equal(t, started.LoadID, start.ID)

	for i := 0; i < 3; i++ {
		msg := readWS(t, conn)
		require.Equal(t, MsgTypePoint, msg.Type)
		var p PointPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &p))
		assert.Equal(t, i, p.Index)
		assert.Equal(t, float64(i*100), p.Point.Value)
	}

	done := readWS(t, conn)
	require.Equal(t, MsgTypeLoadDone, done.Type)
	var result models.LoadResult
	require.NoError(t, json.Unmarshal(done.Payload, &result))
	assert.Equal(t, models.LoadStatusComplete, result.Status)
	assert.Equal(t, 3, result.Points)
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub(zap.NewNop())
	slow := hub.register()
	require.Equal(t, 1, hub.ClientCount())

	for i := 0; i <= clientSendBuffer; i++ {
		hub.PointAdded("load-1", models.DataPoint{TimestampMillis: int64(i)}, i)
	}

	assert.Equal(t, 0, hub.ClientCount())
	n := 0
	for range slow.send {
		n++
	}
	assert.Equal(t, clientSendBuffer, n)
	hub.unregister(slow)
}
