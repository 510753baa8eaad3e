package driver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/qtype/internal/engine"
)

// recordingSink is a minimal Sink for driver tests.
type recordingSink struct {
	mu         sync.Mutex
	typed      []rune
	backspaces int
	releases   int

	// emitDelay simulates a slow injection backend.
	emitDelay time.Duration
}

func (s *recordingSink) Emit(ch rune, hold time.Duration) error {
	if s.emitDelay > 0 {
		time.Sleep(s.emitDelay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typed = append(s.typed, ch)
	return nil
}

func (s *recordingSink) EmitBackspace() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backspaces++
	return nil
}

func (s *recordingSink) ReleaseAllKeys() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases++
	return nil
}

func (s *recordingSink) releaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

func (s *recordingSink) text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.typed)
}

func newFastEngine(sink engine.Sink, seed int64) *engine.Engine {
	// A tight delay range keeps the test loop quick; the engine clamps at
	// its own floor anyway.
	e := engine.New(sink, engine.ProfileFast(), engine.DelayRange{MinMs: 1, MaxMs: 2},
		engine.ImperfectionSettings{}, engine.LayoutUSQwerty, engine.NewRand(seed))
	return e
}

func TestDriver_RunToCompletion(t *testing.T) {
	sink := &recordingSink{}
	eng := newFastEngine(sink, 1)
	require.NoError(t, eng.SetText("ok go"))

	var progress []int
	d := New(eng, sink, zap.NewNop(), Options{
		OnProgress: func(p int) { progress = append(progress, p) },
	})

	err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ok go", sink.text())
	assert.Equal(t, 1, sink.releaseCount(), "keys released on completion")
	require.NotEmpty(t, progress)
	assert.Equal(t, 100, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
}

func TestDriver_CancelStopsSession(t *testing.T) {
	sink := &recordingSink{}
	eng := engine.New(sink, engine.ProfileSlowTired(), engine.DelayRange{MinMs: 4000, MaxMs: 8000},
		engine.ImperfectionSettings{}, engine.LayoutUSQwerty, engine.NewRand(2))
	require.NoError(t, eng.SetText("a very long text that will not finish quickly at all"))

	ctx, cancel := context.WithCancel(context.Background())
	d := New(eng, sink, zap.NewNop(), Options{})

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not observe cancellation")
	}
	assert.Equal(t, engine.StateStopped, eng.State())
	assert.Equal(t, 1, sink.releaseCount(), "keys released on cancel")
}

func TestDriver_WatchdogFiresOnStall(t *testing.T) {
	// An emit slower than the watchdog window simulates a stuck backend.
	sink := &recordingSink{emitDelay: 400 * time.Millisecond}
	eng := newFastEngine(sink, 3)
	require.NoError(t, eng.SetText("stuck"))

	d := New(eng, sink, zap.NewNop(), Options{WatchdogTimeout: 50 * time.Millisecond})

	err := d.Run(context.Background())
	require.ErrorIs(t, err, ErrStalled)
	assert.Equal(t, engine.StateStopped, eng.State())
	assert.Equal(t, 1, sink.releaseCount(), "keys released after stall")
}

// blockingSink wedges in Emit until released, simulating a backend that
// never returns.
type blockingSink struct {
	recordingSink
	block chan struct{}
}

func (s *blockingSink) Emit(ch rune, hold time.Duration) error {
	<-s.block
	return s.recordingSink.Emit(ch, hold)
}

func TestDriver_WatchdogAbandonsBlockedEmit(t *testing.T) {
	sink := &blockingSink{block: make(chan struct{})}
	t.Cleanup(func() { close(sink.block) })
	eng := newFastEngine(sink, 5)
	require.NoError(t, eng.SetText("wedged"))

	d := New(eng, sink, zap.NewNop(), Options{WatchdogTimeout: 50 * time.Millisecond})

	start := time.Now()
	err := d.Run(context.Background())
	require.ErrorIs(t, err, ErrStalled)
	assert.Less(t, time.Since(start), 500*time.Millisecond,
		"a sub-second watchdog window fires on schedule")
	assert.Equal(t, 1, sink.releaseCount(), "keys released despite the wedged emit")
}

func TestDriver_StartDelayHonorsCancellation(t *testing.T) {
	sink := &recordingSink{}
	eng := newFastEngine(sink, 4)
	require.NoError(t, eng.SetText("never typed"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(eng, sink, zap.NewNop(), Options{StartDelay: time.Hour})
	err := d.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.text())
}

func TestSanitizeText_DropsUnmappedRunes(t *testing.T) {
	clean, skipped := SanitizeText("Hello — World", zap.NewNop())
	assert.Equal(t, "Hello  World", clean)
	assert.Equal(t, 1, skipped, "exactly the em dash is dropped")
}

func TestSanitizeText_KeepsNewlinesAndTabs(t *testing.T) {
	clean, skipped := SanitizeText("a\n\tb", nil)
	assert.Equal(t, "a\n\tb", clean)
	assert.Zero(t, skipped)
}

func TestSanitizeText_AllASCIIUntouched(t *testing.T) {
	const text = "Plain ASCII: 123 [](){} <>?!"
	clean, skipped := SanitizeText(text, nil)
	assert.Equal(t, text, clean)
	assert.Zero(t, skipped)
}
