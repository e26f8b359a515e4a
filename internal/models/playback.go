package models

import (
	"fmt"
	"regexp"
	"time"
)

const (
	MinDelayMillis     = 0
	MaxDelayMillis     = 5000
	DefaultDelayMillis = 50
)

// PlaybackConfig controls how fast points are revealed during a load.
type PlaybackConfig struct {
	DelayMillis       int  `json:"delayMillis" yaml:"delay_ms"`
	AnimationsEnabled bool `json:"animationsEnabled" yaml:"animations_enabled"`
}

// DefaultPlaybackConfig returns the settings a fresh install starts with.
func DefaultPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{DelayMillis: DefaultDelayMillis, AnimationsEnabled: true}
}

// Clamped returns a copy with DelayMillis forced into [0, 5000].
func (c PlaybackConfig) Clamped() PlaybackConfig {
	if c.DelayMillis < MinDelayMillis {
		c.DelayMillis = MinDelayMillis
	}
	if c.DelayMillis > MaxDelayMillis {
		c.DelayMillis = MaxDelayMillis
	}
	return c
}

// Pace is the pause between two revealed points; zero when animations are off.
func (c PlaybackConfig) Pace() time.Duration {
	if !c.AnimationsEnabled {
		return 0
	}
	return time.Duration(c.Clamped().DelayMillis) * time.Millisecond
}

var hexColorRegex = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ChartStyle holds the presentation settings of the chart.
type ChartStyle struct {
	Title           string `json:"title" yaml:"title"`
	SeriesColor     string `json:"seriesColor" yaml:"series_color"`
	BackgroundColor string `json:"backgroundColor" yaml:"background_color"`
	LegendVisible   bool   `json:"legendVisible" yaml:"legend_visible"`
}

// DefaultChartStyle is cyan on black, legend shown.
func DefaultChartStyle() ChartStyle {
	return ChartStyle{
		Title:           "Sun Path Throughout the Day",
		SeriesColor:     "#00FFFF",
		BackgroundColor: "#000000",
		LegendVisible:   true,
	}
}

// Validate checks that both colors are #RRGGBB.
func (s ChartStyle) Validate() error {
	if !hexColorRegex.MatchString(s.SeriesColor) {
		return fmt.Errorf("invalid series color %q, want #RRGGBB", s.SeriesColor)
	}
	if !hexColorRegex.MatchString(s.BackgroundColor) {
		return fmt.Errorf("invalid background color %q, want #RRGGBB", s.BackgroundColor)
	}
	return nil
}
