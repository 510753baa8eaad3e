package engine

import (
	"sync"
	"time"
)

// mockSink implements Sink and records every emission. It is centralized
// here to be reusable across all tests in the package.
type mockSink struct {
	mu         sync.Mutex
	emissions  []emission
	backspaces int
	releases   int

	// Overrides replace the default recording behavior when set.
	MockEmit          func(ch rune, hold time.Duration) error
	MockEmitBackspace func() error
}

type emission struct {
	ch   rune
	hold time.Duration
}

func newMockSink() *mockSink {
	return &mockSink{}
}

func (m *mockSink) Emit(ch rune, hold time.Duration) error {
	if m.MockEmit != nil {
		return m.MockEmit(ch, hold)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emissions = append(m.emissions, emission{ch: ch, hold: hold})
	return nil
}

func (m *mockSink) EmitBackspace() error {
	if m.MockEmitBackspace != nil {
		return m.MockEmitBackspace()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backspaces++
	return nil
}

func (m *mockSink) ReleaseAllKeys() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
	return nil
}

// typed reconstructs the text as it would appear in the focused field,
// applying backspaces is the caller's business; this is the raw key order.
func (m *mockSink) typed() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]rune, 0, len(m.emissions))
	for _, e := range m.emissions {
		out = append(out, e.ch)
	}
	return string(out)
}

func (m *mockSink) holds() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.emissions))
	for i, e := range m.emissions {
		out[i] = e.hold
	}
	return out
}

func (m *mockSink) backspaceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backspaces
}

// newTestEngine wires an engine with a deterministic seed, a no-op sleeper,
// and all imperfections disabled unless the caller overrides the settings.
func newTestEngine(sink Sink, seed int64) *Engine {
	e := New(sink, ProfileAdvanced(), DelayRange{MinMs: 80, MaxMs: 180}, ImperfectionSettings{}, LayoutUSQwerty, NewRand(seed))
	e.sleep = func(time.Duration) {}
	return e
}

func newTestEngineWith(sink Sink, seed int64, imp ImperfectionSettings) *Engine {
	e := New(sink, ProfileAdvanced(), DelayRange{MinMs: 80, MaxMs: 180}, imp, LayoutUSQwerty, NewRand(seed))
	e.sleep = func(time.Duration) {}
	return e
}
