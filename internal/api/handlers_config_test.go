package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunpath-tracker/backend/internal/models"
	"github.com/sunpath-tracker/backend/internal/playback"
	"go.uber.org/zap"
)

func TestConfigHandler_Playback(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		want     models.PlaybackConfig
		wantCode string
	}{
		{
			name: "delay only",
			body: `{"delayMillis":200}`,
			want: models.PlaybackConfig{DelayMillis: 200, AnimationsEnabled: true},
		},
		{
			name: "clamped high",
			body: `{"delayMillis":9999}`,
			want: models.PlaybackConfig{DelayMillis: models.MaxDelayMillis, AnimationsEnabled: true},
		},
		{
			name: "clamped low",
			body: `{"delayMillis":-5}`,
			want: models.PlaybackConfig{DelayMillis: 0, AnimationsEnabled: true},
		},
		{
			name: "animations off",
			body: `{"animationsEnabled":false}`,
			want: models.PlaybackConfig{DelayMillis: models.DefaultDelayMillis, AnimationsEnabled: false},
		},
		{
			name:     "empty update",
			body:     `{}`,
			wantCode: "VALIDATION_ERROR",
		},
		{
			name:     "wrong type",
			body:     `{"delayMillis":"fast"}`,
			wantCode: "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := playback.Default()
			handler := NewConfigHandler(settings, zap.NewNop())

			c, rec := newJSONContext(http.MethodPut, "/api/config/playback", tt.body)
			err := handler.HandleUpdatePlayback(c)
			if tt.wantCode != "" {
				requireAPIError(t, err, http.StatusBadRequest, tt.wantCode)
				assert.Equal(t, models.DefaultPlaybackConfig(), settings.Playback())
				return
			}
			require.NoError(t, err)

			var got models.PlaybackConfig
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, settings.Playback())
		})
	}
}

func TestConfigHandler_ConcurrentPartialUpdates(t *testing.T) {
	for i := 0; i < 50; i++ {
		settings := playback.Default()
		handler := NewConfigHandler(settings, zap.NewNop())

		var wg sync.WaitGroup
		for _, body := range []string{`{"delayMillis":700}`, `{"animationsEnabled":false}`} {
			wg.Add(1)
			go func(body string) {
				defer wg.Done()
				c, _ := newJSONContext(http.MethodPut, "/api/config/playback", body)
				assert.NoError(t, handler.HandleUpdatePlayback(c))
			}(body)
		}
		wg.Wait()

		require.Equal(t, models.PlaybackConfig{DelayMillis: 700, AnimationsEnabled: false}, settings.Playback())
	}
}

func TestConfigHandler_GetPlayback(t *testing.T) {
	handler := NewConfigHandler(playback.Default(), zap.NewNop())
	c, rec := newJSONContext(http.MethodGet, "/api/config/playback", "")
	require.NoError(t, handler.HandleGetPlayback(c))
	assert.JSONEq(t, `{"delayMillis":50,"animationsEnabled":true}`, rec.Body.String())
}

func TestConfigHandler_ChartStyle(t *testing.T) {
	settings := playback.Default()
	handler := NewConfigHandler(settings, zap.NewNop())

	c, rec := newJSONContext(http.MethodGet, "/api/config/chart", "")
	require.NoError(t, handler.HandleGetChartStyle(c))
	assert.Contains(t, rec.Body.String(), `"seriesColor":"#00FFFF"`)

	body := `{"title":"Equinox","seriesColor":"#FFAA00","backgroundColor":"#101010","legendVisible":false}`
	c, rec = newJSONContext(http.MethodPut, "/api/config/chart", body)
	require.NoError(t, handler.HandleUpdateChartStyle(c))
	assert.Equal(t, "Equinox", settings.Style().Title)
	assert.False(t, settings.Style().LegendVisible)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, _ = newJSONContext(http.MethodPut, "/api/config/chart", `{"title":"x","seriesColor":"orange","backgroundColor":"#000000"}`)
	requireAPIError(t, handler.HandleUpdateChartStyle(c), http.StatusBadRequest, "BAD_REQUEST")
	assert.Equal(t, "Equinox", settings.Style().Title)
}
