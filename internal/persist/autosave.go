package persist

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"

	"github.com/onnwee/regions/internal/region"
)

// DefaultAutoSaveDelay is the quiet period after the last change before a save.
const DefaultAutoSaveDelay = 2 * time.Second

// saveTimeout bounds a background save.
const saveTimeout = 10 * time.Second

// StateSource yields the state to persist.
type StateSource interface {
	State() region.State
}

// AutoSaverOptions configures an AutoSaver.
type AutoSaverOptions struct {
	Prefix  string
	Delay   time.Duration // Default: DefaultAutoSaveDelay
	Logger  *slog.Logger
	Metrics *Metrics
}

// AutoSaver saves state after a quiet period. Every Schedule call restarts
// the timer, so a burst of changes produces one save after the burst ends.
type AutoSaver struct {
	kv      KV
	source  StateSource
	prefix  string
	logger  *slog.Logger
	metrics *Metrics

	debounced func(func())
	dirty     atomic.Bool
	saveMu    sync.Mutex
	lastSaved atomic.Pointer[time.Time]
}

// NewAutoSaver creates an AutoSaver writing source's state to kv.
func NewAutoSaver(kv KV, source StateSource, opts AutoSaverOptions) *AutoSaver {
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultAutoSaveDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoSaver{
		kv:        kv,
		source:    source,
		prefix:    opts.Prefix,
		logger:    logger,
		metrics:   opts.Metrics,
		debounced: debounce.New(delay),
	}
}

// Attach schedules a save after every change committed by e. The returned
// function detaches the saver.
func (a *AutoSaver) Attach(e *region.Engine) (detach func()) {
	return e.Subscribe(func(region.Change) { a.Schedule() })
}

// Schedule marks the state dirty and (re)starts the quiet-period timer.
func (a *AutoSaver) Schedule() {
	a.dirty.Store(true)
	a.debounced(func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := a.saveIfDirty(ctx); err != nil {
			a.logger.Error("autosave failed",
				slog.String("backend", a.kv.Name()),
				slog.String("error", err.Error()),
			)
		}
	})
}

// Flush saves synchronously if there are unsaved changes. Used on shutdown.
func (a *AutoSaver) Flush(ctx context.Context) error {
	return a.saveIfDirty(ctx)
}

// Pending reports whether changes are waiting to be saved.
func (a *AutoSaver) Pending() bool {
	return a.dirty.Load()
}

// LastSaved returns the time of the last successful save.
func (a *AutoSaver) LastSaved() (time.Time, bool) {
	t := a.lastSaved.Load()
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}

func (a *AutoSaver) saveIfDirty(ctx context.Context) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	if !a.dirty.Swap(false) {
		return nil
	}
	start := time.Now()
	err := SaveState(ctx, a.kv, a.prefix, a.source.State())
	if a.metrics != nil {
		a.metrics.ObserveSave(a.kv.Name(), time.Since(start).Seconds(), err)
	}
	if err != nil {
		// Keep the changes pending so the next trigger or Flush retries.
		a.dirty.Store(true)
		return err
	}
	now := time.Now()
	a.lastSaved.Store(&now)
	a.logger.Debug("workspace saved",
		slog.String("backend", a.kv.Name()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// Restore loads persisted state into e. It returns false when nothing was saved.
func Restore(ctx context.Context, kv KV, prefix string, e *region.Engine, metrics *Metrics) (bool, error) {
	st, found, err := LoadState(ctx, kv, prefix)
	outcome := "empty"
	switch {
	case err != nil:
		outcome = "failure"
	case found:
		outcome = "found"
	}
	if metrics != nil {
		metrics.IncLoad(kv.Name(), outcome)
	}
	if err != nil || !found {
		return false, err
	}
	if err := e.Restore(st); err != nil {
		return false, err
	}
	return true, nil
}
