package engine

import (
	"errors"
	"fmt"
	"time"
	"unicode"
)

// Sink receives the simulated keystrokes. Implementations are expected to
// block in Emit for the declared hold time, which naturally rate-limits the
// engine's caller.
type Sink interface {
	// Emit injects one keystroke held for the given duration.
	Emit(ch rune, hold time.Duration) error
	// EmitBackspace injects a single backspace.
	EmitBackspace() error
	// ReleaseAllKeys releases any modifier keys that might be stuck. It is
	// called on stop and teardown, best effort.
	ReleaseAllKeys() error
}

// State tracks an Engine through its session lifecycle.
type State string

const (
	StateIdle      State = "idle"
	StateReady     State = "ready"
	StateAdvancing State = "advancing"
	StateExhausted State = "exhausted"
	StateStopped   State = "stopped"
)

var (
	// ErrEmptyText rejects a session start with nothing to type.
	ErrEmptyText = errors.New("engine: empty text")
	// ErrNoText is returned when Advance is called before SetText.
	ErrNoText = errors.New("engine: no text set")
)

// Engine converts a text buffer into an ordered sequence of keystroke
// emissions with human-like timing, interleaved with scheduled imperfections.
// It is single-threaded and cooperative: the caller drives it by repeatedly
// calling Advance and waiting out the returned delay.
type Engine struct {
	sink          Sink
	profile       TimingProfile
	delays        DelayRange
	imperfections ImperfectionSettings
	layout        *Layout
	rng           *Rand

	chunker         *Chunker
	dynamics        *Dynamics
	gen             *Imperfections
	wordsSinceBreak int
	state           State

	// sleep separates the short intra-chunk correction pauses from the
	// clock so tests run instantly.
	sleep func(time.Duration)
}

// New constructs an engine bound to one sink and one configuration for the
// lifetime of a typing session. A nil rng gets a wall-clock seeded generator
// so concurrent sessions never share sampler state.
func New(sink Sink, profile TimingProfile, delays DelayRange, imperfections ImperfectionSettings, layoutType LayoutType, rng *Rand) *Engine {
	if rng == nil {
		rng = NewSessionRand()
	}
	return &Engine{
		sink:          sink,
		profile:       profile,
		delays:        delays.Normalize(),
		imperfections: imperfections,
		layout:        LayoutFor(layoutType),
		rng:           rng,
		state:         StateIdle,
		sleep:         time.Sleep,
	}
}

// SetText (re)initializes the session sub-state for a new text buffer. Empty
// text is rejected before any state is created.
func (e *Engine) SetText(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	e.chunker = NewChunker(text)
	e.dynamics = NewDynamics(e.profile, e.delays, e.rng)
	e.gen = NewImperfections(e.imperfections, e.layout, e.rng)
	e.wordsSinceBreak = 0
	e.state = StateReady
	return nil
}

// HasMoreToType reports whether unprocessed text remains.
func (e *Engine) HasMoreToType() bool {
	return e.chunker != nil && e.chunker.HasMore()
}

// ProgressPercent is a pure read of chunker progress.
func (e *Engine) ProgressPercent() int {
	if e.chunker == nil {
		return 0
	}
	return e.chunker.ProgressPercent()
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Stop marks the session terminated by the driver. The text position is
// retained for inspection.
func (e *Engine) Stop() {
	e.state = StateStopped
}

// Reset clears fatigue, burst state, and imperfection counters without
// discarding the bound profile, so a new session's statistics are independent
// of the previous session's length.
func (e *Engine) Reset() {
	if e.dynamics != nil {
		e.dynamics.Reset()
	}
	if e.gen != nil {
		e.gen.Reset()
	}
	e.wordsSinceBreak = 0
}

// Dynamics exposes the timing model for drivers and tests.
func (e *Engine) Dynamics() *Dynamics {
	return e.dynamics
}

// Advance emits the next chunk of keystrokes through the sink and returns
// the delay to wait before the next call. done reports the terminal state:
// once the chunker is exhausted the engine stays terminal.
func (e *Engine) Advance() (next time.Duration, done bool, err error) {
	if e.chunker == nil {
		return 0, true, ErrNoText
	}
	if e.state == StateStopped {
		return 0, true, nil
	}
	if !e.chunker.HasMore() {
		e.state = StateExhausted
		return 0, true, nil
	}
	e.state = StateAdvancing

	chunk := []rune(e.chunker.Next())
	if len(chunk) == 0 {
		e.state = StateExhausted
		return 0, true, nil
	}

	for _, original := range chunk {
		if err := e.emitCharacter(original); err != nil {
			return 0, true, err
		}
		if unicode.IsSpace(original) {
			e.wordsSinceBreak++
		}
		e.dynamics.UpdateState(original)
	}

	last := chunk[len(chunk)-1]
	flags := DelayFlags{
		SentenceEnd:   last == '.' || last == '!' || last == '?',
		Burst:         e.dynamics.ShouldBurst(),
		ThinkingPause: e.dynamics.ShouldThinkingPause(e.wordsSinceBreak),
		SingleChar:    len(chunk) == 1,
	}
	if flags.ThinkingPause {
		e.wordsSinceBreak = 0
	}

	delay := e.dynamics.CalculateDelay(last, flags)
	return time.Duration(delay) * time.Millisecond, false, nil
}

// emitCharacter runs one intended character through the imperfection
// scheduler and performs the emission plus any double or correction
// sub-emissions.
func (e *Engine) emitCharacter(original rune) error {
	result := e.gen.ProcessCharacter(original)

	hold := e.dynamics.GenerateHoldTime(result.Ch)
	if err := e.sink.Emit(result.Ch, time.Duration(hold)*time.Millisecond); err != nil {
		return fmt.Errorf("engine: emit %q: %w", result.Ch, err)
	}

	if result.Double {
		e.sleep(time.Duration(e.rng.Range(10, 40)) * time.Millisecond)
		secondHold := e.dynamics.GenerateHoldTime(result.Ch)
		if err := e.sink.Emit(result.Ch, time.Duration(secondHold)*time.Millisecond); err != nil {
			return fmt.Errorf("engine: emit double %q: %w", result.Ch, err)
		}
	}

	if result.Correct {
		e.sleep(time.Duration(e.rng.Range(60, 160)) * time.Millisecond)
		if err := e.sink.EmitBackspace(); err != nil {
			return fmt.Errorf("engine: emit backspace: %w", err)
		}
		e.sleep(time.Duration(e.rng.Range(40, 90)) * time.Millisecond)
		corrHold := e.dynamics.GenerateHoldTime(original)
		if err := e.sink.Emit(original, time.Duration(corrHold)*time.Millisecond); err != nil {
			return fmt.Errorf("engine: emit correction %q: %w", original, err)
		}
	}

	return nil
}
