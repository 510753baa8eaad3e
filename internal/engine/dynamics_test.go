package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDynamics(seed int64) *Dynamics {
	return NewDynamics(ProfileAdvanced(), DelayRange{MinMs: 80, MaxMs: 180}, NewRand(seed))
}

func TestCalculateDelay_AlwaysWithinBounds(t *testing.T) {
	profiles := []TimingProfile{ProfileAdvanced(), ProfileFast(), ProfileSlowTired(), ProfileProfessional()}
	ranges := []DelayRange{{MinMs: 1, MaxMs: 5}, {MinMs: 80, MaxMs: 180}, {MinMs: 500, MaxMs: 7000}}
	chars := []rune{'a', 'Z', '7', ' ', '\n', '.', '!', '?', ','}

	rng := NewRand(1)
	for _, p := range profiles {
		for _, dr := range ranges {
			d := NewDynamics(p, dr, rng)
			for i := 0; i < 500; i++ {
				ch := chars[i%len(chars)]
				flags := DelayFlags{
					SentenceEnd:   i%7 == 0,
					Burst:         i%3 == 0,
					ThinkingPause: i%11 == 0,
					SingleChar:    i%2 == 0,
				}
				delay := d.CalculateDelay(ch, flags)
				require.GreaterOrEqual(t, delay, minDelayMs)
				require.LessOrEqual(t, delay, maxDelayMs)
				d.UpdateState(ch)
			}
		}
	}
}

func TestGenerateHoldTime_AlwaysWithinBounds(t *testing.T) {
	d := newTestDynamics(2)
	for i := 0; i < 2000; i++ {
		hold := d.GenerateHoldTime('a')
		require.GreaterOrEqual(t, hold, minHoldMs)
		require.LessOrEqual(t, hold, maxHoldMs)
	}
}

func TestGenerateHoldTime_UppercaseHeldLonger(t *testing.T) {
	d := newTestDynamics(3)
	const n = 5000
	var lower, upper float64
	for i := 0; i < n; i++ {
		lower += float64(d.GenerateHoldTime('a'))
		upper += float64(d.GenerateHoldTime('A'))
	}
	assert.Greater(t, upper/n, lower/n, "mean uppercase hold should exceed lowercase")
}

func TestDigraphFactor_Ordering(t *testing.T) {
	d := newTestDynamics(4)
	assert.Less(t, d.DigraphFactor('t', 'h'), 1.0)
	assert.Greater(t, d.DigraphFactor('q', 'z'), 1.0)
	assert.Less(t, d.DigraphFactor('t', 'h'), d.DigraphFactor('q', 'z'))
}

func TestDigraphFactor_Classes(t *testing.T) {
	d := newTestDynamics(5)
	assert.Equal(t, 0.75, d.DigraphFactor('h', 'e'))
	assert.Equal(t, 0.75, d.DigraphFactor('H', 'E'))
	assert.Equal(t, 1.4, d.DigraphFactor('z', 'q'))
	assert.Equal(t, 1.4, d.DigraphFactor('p', 'q'))
	// Same hand half, not a common bigram.
	assert.Equal(t, 1.08, d.DigraphFactor('a', 's'))
	assert.Equal(t, 1.08, d.DigraphFactor('j', 'k'))
	// Alternating hands.
	assert.Equal(t, 1.0, d.DigraphFactor('a', 'j'))
	// Outside the letter tables.
	assert.Equal(t, 1.0, d.DigraphFactor('1', '2'))
}

func TestFatigue_RecomputedEveryFifty(t *testing.T) {
	d := newTestDynamics(6)
	require.Equal(t, 1.0, d.FatigueFactor())

	for i := 0; i < 49; i++ {
		d.UpdateState('a')
	}
	assert.Equal(t, 1.0, d.FatigueFactor(), "no recompute before the 50th character")

	d.UpdateState('a')
	assert.InDelta(t, 1.0125, d.FatigueFactor(), 1e-9, "1 + 0.25*min(1, 50/1000)")

	for i := 0; i < 950; i++ {
		d.UpdateState('a')
	}
	assert.InDelta(t, 1.25, d.FatigueFactor(), 1e-9, "saturates at +25%")
}

func TestReset_ClearsFatigueAndBurst(t *testing.T) {
	d := newTestDynamics(7)
	for i := 0; i < 200; i++ {
		d.UpdateState('a')
	}
	require.Greater(t, d.FatigueFactor(), 1.0)

	// Force a burst to be active.
	for i := 0; i < 100 && d.burstRemaining == 0; i++ {
		d.ShouldBurst()
	}

	d.Reset()
	assert.Equal(t, 1.0, d.FatigueFactor())
	assert.Equal(t, 0, d.burstRemaining)
	assert.Equal(t, 0, d.totalChars)
	assert.False(t, d.hasPrev)
}

func TestShouldBurst_ConsumesActiveBurst(t *testing.T) {
	d := NewDynamics(TimingProfile{
		BurstProb: 1.0, BurstMin: 3, BurstMax: 3,
		GammaShape: 2.0, GammaScale: 1.0, NoiseLevel: 0.1,
	}, DelayRange{MinMs: 80, MaxMs: 180}, NewRand(8))

	require.True(t, d.ShouldBurst(), "probability 1 must start a burst")
	require.Equal(t, 3, d.burstRemaining)
	d.ShouldBurst()
	d.ShouldBurst()
	d.ShouldBurst()
	assert.Equal(t, 0, d.burstRemaining)
}

func TestShouldBurst_NeverWithZeroProbability(t *testing.T) {
	d := NewDynamics(TimingProfile{
		BurstProb: 0.0, BurstMin: 2, BurstMax: 6,
		GammaShape: 2.0, GammaScale: 1.0, NoiseLevel: 0.1,
	}, DelayRange{MinMs: 80, MaxMs: 180}, NewRand(9))
	for i := 0; i < 500; i++ {
		require.False(t, d.ShouldBurst())
	}
}

func TestShouldThinkingPause_RequiresEnoughWords(t *testing.T) {
	d := newTestDynamics(10)
	// The threshold is drawn from [8, 15], so 8 or fewer words can never
	// trigger a pause.
	for i := 0; i < 500; i++ {
		require.False(t, d.ShouldThinkingPause(8))
	}
	// With a large word count the 0.3 draw should eventually succeed.
	triggered := false
	for i := 0; i < 500 && !triggered; i++ {
		triggered = d.ShouldThinkingPause(100)
	}
	assert.True(t, triggered)
}

func TestDelayRange_Normalize(t *testing.T) {
	assert.Equal(t, DelayRange{MinMs: 10, MaxMs: 20}, DelayRange{MinMs: 20, MaxMs: 10}.Normalize())
	assert.Equal(t, DelayRange{MinMs: 1, MaxMs: 100}, DelayRange{MinMs: -5, MaxMs: 100}.Normalize())
}
