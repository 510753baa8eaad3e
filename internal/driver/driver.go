// Package driver owns the waiting between engine advances: a cancellable
// sleep loop, a stall watchdog, and the pre-flight text sanitizer. The engine
// itself never blocks on the clock beyond its sink emissions.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/qtype/internal/engine"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultWatchdogTimeout = 10 * time.Second

	// Watchdog poll bounds; the actual interval is a quarter of the
	// configured timeout so short windows are detected promptly.
	minWatchdogPoll = 10 * time.Millisecond
	maxWatchdogPoll = time.Second
)

// ErrStalled reports that no typing progress happened within the watchdog
// window and the session was force-stopped.
var ErrStalled = errors.New("driver: no typing progress within watchdog window")

// Options tunes a typing session run.
type Options struct {
	// StartDelay is the countdown before the first keystroke.
	StartDelay time.Duration
	// WatchdogTimeout bounds the time between progress events; zero means
	// DefaultWatchdogTimeout.
	WatchdogTimeout time.Duration
	// OnProgress, when set, is called after every chunk with the current
	// completion percentage.
	OnProgress func(percent int)
}

// Driver repeatedly advances one engine and waits out the returned delays.
// Exactly one Run call may be in flight per driver.
type Driver struct {
	eng    *engine.Engine
	sink   engine.Sink
	logger *zap.Logger
	opts   Options
}

// New binds a driver to an engine and the sink used for key release on stop.
func New(eng *engine.Engine, sink engine.Sink, logger *zap.Logger, opts Options) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.WatchdogTimeout <= 0 {
		opts.WatchdogTimeout = DefaultWatchdogTimeout
	}
	return &Driver{eng: eng, sink: sink, logger: logger, opts: opts}
}

// Run types until the engine is exhausted, the context is cancelled, or the
// watchdog fires. On every exit path any held modifier keys are released.
func (d *Driver) Run(ctx context.Context) error {
	if d.opts.StartDelay > 0 {
		d.logger.Info("Countdown before typing starts",
			zap.Duration("start_delay", d.opts.StartDelay))
		if err := sleepCtx(ctx, d.opts.StartDelay); err != nil {
			return err
		}
	}

	// lastProgress is shared with the watchdog goroutine; it holds
	// UnixNano of the most recent completed advance.
	var lastProgress atomic.Int64
	lastProgress.Store(time.Now().UnixNano())

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()

	stalled := make(chan struct{})
	go d.watchdog(watchCtx, &lastProgress, stalled)

	defer d.releaseKeys()

	for {
		// Advance runs on its own goroutine so a sink blocked in Emit cannot
		// pin Run: cancellation and the watchdog abandon the in-flight
		// advance and still release keys on the way out.
		resCh := make(chan advanceResult, 1)
		go func() {
			delay, done, err := d.eng.Advance()
			resCh <- advanceResult{delay: delay, done: done, err: err}
		}()

		var res advanceResult
		select {
		case <-ctx.Done():
			d.eng.Stop()
			return ctx.Err()
		case <-stalled:
			d.eng.Stop()
			return ErrStalled
		case res = <-resCh:
		}

		if res.err != nil {
			d.eng.Stop()
			return fmt.Errorf("driver: advance failed: %w", res.err)
		}
		lastProgress.Store(time.Now().UnixNano())

		if d.opts.OnProgress != nil {
			d.opts.OnProgress(d.eng.ProgressPercent())
		}
		if res.done {
			d.logger.Info("Typing session completed")
			return nil
		}

		if err := sleepCtx(ctx, res.delay); err != nil {
			d.eng.Stop()
			return err
		}
	}
}

type advanceResult struct {
	delay time.Duration
	done  bool
	err   error
}

// watchdog force-stops a stalled session: when no advance completes within
// the timeout it signals Run, which abandons the in-flight advance.
func (d *Driver) watchdog(ctx context.Context, lastProgress *atomic.Int64, stalled chan<- struct{}) {
	poll := d.opts.WatchdogTimeout / 4
	if poll < minWatchdogPoll {
		poll = minWatchdogPoll
	}
	if poll > maxWatchdogPoll {
		poll = maxWatchdogPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last := time.Unix(0, lastProgress.Load())
			if time.Since(last) > d.opts.WatchdogTimeout {
				d.logger.Warn("Watchdog fired: typing session stalled",
					zap.Duration("timeout", d.opts.WatchdogTimeout))
				close(stalled)
				return
			}
		}
	}
}

func (d *Driver) releaseKeys() {
	if err := d.sink.ReleaseAllKeys(); err != nil {
		d.logger.Warn("Failed to release keys on teardown", zap.Error(err))
	}
}

// sleepCtx waits out d or returns early with the context's error.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
