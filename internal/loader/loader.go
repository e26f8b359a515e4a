// Package loader streams a sun-path file into the series on a background
// goroutine and reports progress to the UI context at a configurable pace.
package loader

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sunpath-tracker/backend/internal/dataset"
	"github.com/sunpath-tracker/backend/internal/logger"
	"github.com/sunpath-tracker/backend/internal/metrics"
	"github.com/sunpath-tracker/backend/internal/models"
	"github.com/sunpath-tracker/backend/internal/parser"
	"go.uber.org/zap"
)

// DefaultMaxReportedErrors caps the skipped lines kept in LoadState.
const DefaultMaxReportedErrors = 100

// ProgressFunc receives each appended point with its index in the series.
// It runs on the UI context.
type ProgressFunc func(loadID string, p models.DataPoint, index int)

// DoneFunc receives the terminal result of a load. It runs on the UI context,
// after every ProgressFunc call of the same load.
type DoneFunc func(result models.LoadResult)

// StartFunc is told that a load has cleared the series and begun reading.
// It runs on the UI context before any ProgressFunc of the same load.
type StartFunc func(loadID, path string, cfg models.PlaybackConfig)

// Dispatcher schedules callbacks on the UI context, in order.
type Dispatcher interface {
	Post(ctx context.Context, fn func()) bool
}

// Diagnostics receives the lines a load skipped.
type Diagnostics interface {
	LineSkipped(loadID string, perr *models.ParseError)
}

// LogDiagnostics writes skipped lines to a zap logger.
type LogDiagnostics struct {
	Log *zap.Logger
}

func (d LogDiagnostics) LineSkipped(loadID string, perr *models.ParseError) {
	d.Log.Warn("skipping line",
		zap.String("load", logger.ShortID(loadID)),
		zap.Int("line", perr.Line),
		zap.String("kind", string(perr.Kind)),
		zap.String("content", perr.Content),
		zap.String("reason", perr.Reason),
	)
}

// Option configures a Loader.
type Option func(*Loader)

func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) { l.log = log }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(l *Loader) { l.metrics = m }
}

func WithDiagnostics(d Diagnostics) Option {
	return func(l *Loader) { l.diag = d }
}

func WithStartFunc(fn StartFunc) Option {
	return func(l *Loader) { l.onStart = fn }
}

func WithMaxReportedErrors(n int) Option {
	return func(l *Loader) { l.maxErrors = n }
}

// Loader owns the series while a load runs. At most one load is active;
// starting another supersedes it.
type Loader struct {
	mu        sync.Mutex
	base      context.Context
	series    *dataset.Series
	ui        Dispatcher
	diag      Diagnostics
	log       *zap.Logger
	metrics   *metrics.Recorder
	onStart   StartFunc
	maxErrors int
	current   *run
	state     models.LoadState
}

// run is one load. done is closed when its goroutine has stopped touching the series.
type run struct {
	id     string
	path   string
	cfg    models.PlaybackConfig
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a loader that writes into series and reports through ui.
// Cancelling ctx stops any running load.
func New(ctx context.Context, series *dataset.Series, ui Dispatcher, opts ...Option) *Loader {
	l := &Loader{
		base:      ctx,
		series:    series,
		ui:        ui,
		log:       zap.NewNop(),
		maxErrors: DefaultMaxReportedErrors,
		state:     models.LoadState{Status: models.LoadStatusIdle},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.diag == nil {
		l.diag = LogDiagnostics{Log: l.log}
	}
	return l
}

// Load starts reading path in the background and returns the load ID.
// cfg is captured now; later settings changes apply to the next load.
func (l *Loader) Load(path string, cfg models.PlaybackConfig, onProgress ProgressFunc, onDone DoneFunc) string {
	r, prev := l.begin(path, cfg.Clamped())
	go l.runLoad(r, prev, onProgress, onDone)
	return r.id
}

func (l *Loader) begin(path string, cfg models.PlaybackConfig) (*run, *run) {
	ctx, cancel := context.WithCancel(l.base)
	r := &run{
		id:     uuid.New().String(),
		path:   path,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.current
	if prev != nil {
		prev.cancel()
	}
	l.current = r
	l.state = models.LoadState{
		ID:        r.id,
		Path:      path,
		Status:    models.LoadStatusLoading,
		Config:    &cfg,
		StartTime: time.Now().UnixMilli(),
	}
	return r, prev
}

func (l *Loader) runLoad(r *run, prev *run, onProgress ProgressFunc, onDone DoneFunc) {
	// r.ctx stays live after a normal finish so queued callbacks are still
	// delivered; it is cancelled when the load is superseded or cancelled.
	defer close(r.done)

	// Single writer: the superseded load must be off the series before we clear it.
	if prev != nil {
		<-prev.done
	}

	log := l.log.With(zap.String("load", logger.ShortID(r.id)))
	log.Info("starting load",
		zap.String("path", r.path),
		zap.Int("delayMs", r.cfg.DelayMillis),
		zap.Bool("animations", r.cfg.AnimationsEnabled),
	)

	start := time.Now()
	l.metrics.LoadStarted()

	result, cancelled := l.streamSafely(r, log, onProgress)
	elapsed := time.Since(start)

	if cancelled {
		log.Info("load cancelled", zap.Int("points", result.Points), zap.Duration("elapsed", elapsed))
		l.finishState(r, models.LoadStatusCancelled, "load cancelled", elapsed)
		l.metrics.LoadFinished(models.LoadStatusCancelled, elapsed)
		return
	}

	if result.OK() {
		log.Info("load complete",
			zap.Int("points", result.Points),
			zap.Int("skipped", result.Skipped),
			zap.Duration("elapsed", elapsed),
		)
	} else {
		log.Error("load failed", zap.Int("points", result.Points), zap.Error(result.Err))
	}
	l.finishState(r, result.Status, result.Message, elapsed)
	l.metrics.LoadFinished(result.Status, elapsed)

	if onDone != nil {
		l.post(r, func() { onDone(result) })
	}
}

// streamSafely turns a panic in the pipeline into an error result.
func (l *Loader) streamSafely(r *run, log *zap.Logger, onProgress ProgressFunc) (result models.LoadResult, cancelled bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("load panicked", zap.String("panic", fmt.Sprint(rec)))
			result = failed(result, fmt.Errorf("load panicked: %v", rec))
			cancelled = false
		}
	}()
	return l.stream(r, onProgress)
}

func (l *Loader) stream(r *run, onProgress ProgressFunc) (models.LoadResult, bool) {
	result := models.LoadResult{LoadID: r.id, Status: models.LoadStatusComplete}
	if r.ctx.Err() != nil {
		return result, true
	}

	l.series.Clear()
	if l.onStart != nil {
		l.post(r, func() { l.onStart(r.id, r.path, r.cfg) })
	}

	file, err := os.Open(r.path)
	if err != nil {
		return failed(result, fmt.Errorf("opening %s: %w", r.path, err)), false
	}
	defer file.Close()

	pace := r.cfg.Pace()
	sc := parser.NewRecordScanner(file)
	for sc.Next() {
		if r.ctx.Err() != nil {
			return result, true
		}

		rec := sc.Record()
		if rec.Err != nil {
			result.Skipped++
			l.lineSkipped(r, rec.Err)
			continue
		}

		index := l.series.Append(rec.Point)
		result.Points++
		l.metrics.PointLoaded()
		l.updateState(r, func(s *models.LoadState) { s.Points = result.Points })

		if onProgress != nil {
			point := rec.Point
			l.post(r, func() { onProgress(r.id, point, index) })
		}

		if pace > 0 && !sleep(r.ctx, pace) {
			return result, true
		}
	}

	if r.ctx.Err() != nil {
		return result, true
	}
	if err := sc.Err(); err != nil {
		return failed(result, fmt.Errorf("reading %s: %w", r.path, err)), false
	}

	result.Message = fmt.Sprintf("File loaded successfully! %d points, %d lines skipped", result.Points, result.Skipped)
	return result, false
}

// post schedules fn on the UI context. A callback that reaches the UI after its
// load was cancelled is dropped there.
func (l *Loader) post(r *run, fn func()) {
	l.ui.Post(r.ctx, func() {
		if r.ctx.Err() != nil {
			return
		}
		fn()
	})
}

func (l *Loader) lineSkipped(r *run, perr *models.ParseError) {
	l.diag.LineSkipped(r.id, perr)
	l.metrics.LineSkipped(perr.Kind)
	l.updateState(r, func(s *models.LoadState) {
		s.Skipped++
		if len(s.Errors) < l.maxErrors {
			s.Errors = append(s.Errors, *perr)
		}
	})
}

// updateState applies fn if r is still the current load.
func (l *Loader) updateState(r *run, fn func(s *models.LoadState)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current != r {
		return
	}
	fn(&l.state)
}

func (l *Loader) finishState(r *run, status models.LoadStatus, message string, elapsed time.Duration) {
	l.updateState(r, func(s *models.LoadState) {
		s.Status = status
		s.Message = message
		s.EndTime = time.Now().UnixMilli()
		s.ProcessingTimeMs = elapsed.Milliseconds()
	})
}

func failed(result models.LoadResult, err error) models.LoadResult {
	result.Status = models.LoadStatusError
	result.Kind = models.FailureIO
	result.Err = err
	result.Message = "Error loading file: " + err.Error()
	return result
}

// sleep waits for d or until ctx is done. It reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// BulkLoad parses the whole file and installs it with a single ReplaceAll.
// No progress is reported; it supersedes any running load and blocks until done.
func (l *Loader) BulkLoad(path string) models.LoadResult {
	r, prev := l.begin(path, models.PlaybackConfig{})
	defer close(r.done)
	defer r.cancel()
	if prev != nil {
		<-prev.done
	}

	start := time.Now()
	l.metrics.LoadStarted()
	result := models.LoadResult{LoadID: r.id, Status: models.LoadStatusComplete}

	points, parseErrors, err := parser.ParseFile(path)
	for _, perr := range parseErrors {
		result.Skipped++
		l.lineSkipped(r, perr)
	}
	if err != nil {
		// Keep whatever was read before the failure, as a streaming load would.
		result = failed(result, fmt.Errorf("bulk loading %s: %w", path, err))
	} else {
		result.Message = fmt.Sprintf("File loaded successfully! %d points, %d lines skipped", len(points), result.Skipped)
	}
	l.series.ReplaceAll(points)
	result.Points = len(points)

	elapsed := time.Since(start)
	l.updateState(r, func(s *models.LoadState) { s.Points = result.Points })
	l.finishState(r, result.Status, result.Message, elapsed)
	l.metrics.LoadFinished(result.Status, elapsed)
	l.log.Info("bulk load finished",
		zap.String("load", logger.ShortID(r.id)),
		zap.String("path", path),
		zap.Int("points", result.Points),
		zap.Int("skipped", result.Skipped),
		zap.String("status", string(result.Status)),
	)
	return result
}

// State returns a copy of the current load's status.
func (l *Loader) State() models.LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.state
	if l.state.Errors != nil {
		s.Errors = make([]models.ParseError, len(l.state.Errors))
		copy(s.Errors, l.state.Errors)
	}
	if l.state.Config != nil {
		cfg := *l.state.Config
		s.Config = &cfg
	}
	return s
}

// Cancel stops the running load, if any, and reports whether one was running.
// No callbacks of the cancelled load are delivered afterwards.
func (l *Loader) Cancel() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil || l.state.Status != models.LoadStatusLoading {
		return false
	}
	l.current.cancel()
	return true
}

// Wait blocks until the current load's goroutine has exited or ctx is done.
func (l *Loader) Wait(ctx context.Context) error {
	l.mu.Lock()
	r := l.current
	l.mu.Unlock()
	if r == nil {
		return nil
	}

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels the running load and waits for it to stop.
func (l *Loader) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	r := l.current
	l.mu.Unlock()
	if r == nil {
		return nil
	}
	r.cancel()
	return l.Wait(ctx)
}
