// Package playback holds the user-adjustable settings read by the loader and
// the chart renderer.
package playback

import (
	"sync"

	"github.com/sunpath-tracker/backend/internal/models"
)

// Settings is written by the settings collaborator and read by loads. A load
// captures Playback() once when it starts.
type Settings struct {
	mu       sync.RWMutex
	playback models.PlaybackConfig
	style    models.ChartStyle
}

// NewSettings creates a holder with the given initial values. The delay is clamped.
func NewSettings(cfg models.PlaybackConfig, style models.ChartStyle) *Settings {
	return &Settings{playback: cfg.Clamped(), style: style}
}

// Default returns settings with the built-in defaults.
func Default() *Settings {
	return NewSettings(models.DefaultPlaybackConfig(), models.DefaultChartStyle())
}

// Playback returns the current pacing settings.
func (s *Settings) Playback() models.PlaybackConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playback
}

// SetPlayback stores cfg with DelayMillis clamped into [0, 5000] and returns what was stored.
func (s *Settings) SetPlayback(cfg models.PlaybackConfig) models.PlaybackConfig {
	cfg = cfg.Clamped()
	s.mu.Lock()
	s.playback = cfg
	s.mu.Unlock()
	return cfg
}

// SetDelay changes only the delay.
func (s *Settings) SetDelay(ms int) models.PlaybackConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playback.DelayMillis = ms
	s.playback = s.playback.Clamped()
	return s.playback
}

// SetAnimationsEnabled changes only the animation flag.
func (s *Settings) SetAnimationsEnabled(enabled bool) models.PlaybackConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playback.AnimationsEnabled = enabled
	return s.playback
}

// Style returns the chart presentation settings.
func (s *Settings) Style() models.ChartStyle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.style
}

// SetStyle replaces the chart style after validating its colors.
func (s *Settings) SetStyle(style models.ChartStyle) error {
	if err := style.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.style = style
	s.mu.Unlock()
	return nil
}
