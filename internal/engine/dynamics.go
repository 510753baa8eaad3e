package engine

import (
	"math"
	"strings"
	"unicode"
)

// Delay pipeline clamps, in milliseconds.
const (
	minDelayMs = 15
	maxDelayMs = 8000
	minHoldMs  = 40
	maxHoldMs  = 180
)

// rhythmStep is the phase advance of the rhythm oscillator per processed
// character, in radians.
const rhythmStep = 0.03

// fastDigraphs are common English bigrams typed noticeably faster than
// baseline.
var fastDigraphs = map[string]bool{
	"th": true, "he": true, "in": true, "er": true, "an": true,
	"re": true, "on": true, "at": true, "en": true, "nd": true,
}

// Hand halves of the QWERTY layout; two keys on the same half are slightly
// slower than an alternating pair.
const (
	leftHandKeys  = "qwertasdfgzxcvb"
	rightHandKeys = "yuiophjklnm"
)

// DelayFlags qualifies a single delay computation.
type DelayFlags struct {
	SentenceEnd   bool
	Burst         bool
	ThinkingPause bool
	// SingleChar marks a one-character chunk; the digraph factor only
	// applies there, since per-character hold times already capture
	// micro-variation inside word chunks.
	SingleChar bool
}

// Dynamics is the stateful delay and hold-time model: a rhythm oscillator, a
// fatigue accumulator, a burst scheduler, and digraph-aware timing.
type Dynamics struct {
	profile TimingProfile
	delays  DelayRange
	rng     *Rand

	prev           rune
	hasPrev        bool
	rhythmPhase    float64
	fatigueFactor  float64
	burstRemaining int
	totalChars     int
}

// NewDynamics builds the model with the rhythm phase seeded uniformly in
// [0, 2*pi).
func NewDynamics(profile TimingProfile, delays DelayRange, rng *Rand) *Dynamics {
	d := &Dynamics{
		profile: profile,
		delays:  delays.Normalize(),
		rng:     rng,
	}
	d.Reset()
	return d
}

// Reset clears all session state: fatigue back to 1.0, burst cleared, rhythm
// re-seeded.
func (d *Dynamics) Reset() {
	d.prev = 0
	d.hasPrev = false
	d.rhythmPhase = d.rng.Uniform() * 2 * math.Pi
	d.fatigueFactor = 1.0
	d.burstRemaining = 0
	d.totalChars = 0
}

// FatigueFactor exposes the current fatigue multiplier.
func (d *Dynamics) FatigueFactor() float64 {
	return d.fatigueFactor
}

// UpdateState records a processed character. Fatigue is recomputed every 50
// characters and saturates at +25% after a thousand characters.
func (d *Dynamics) UpdateState(ch rune) {
	d.prev = ch
	d.hasPrev = true
	d.totalChars++

	if d.totalChars%50 == 0 {
		d.fatigueFactor = 1.0 + 0.25*math.Min(1.0, float64(d.totalChars)/1000.0)
	}
}

// ShouldBurst consumes one unit of an active burst, or probabilistically
// starts a new one.
func (d *Dynamics) ShouldBurst() bool {
	if d.burstRemaining > 0 {
		d.burstRemaining--
		return true
	}
	if d.rng.Uniform() < d.profile.BurstProb {
		d.burstRemaining = d.rng.Range(d.profile.BurstMin, d.profile.BurstMax)
		return true
	}
	return false
}

// ShouldThinkingPause reports whether enough words have passed to warrant a
// cognitive pause.
func (d *Dynamics) ShouldThinkingPause(wordsSinceBreak int) bool {
	return wordsSinceBreak > d.rng.Range(8, 15) && d.rng.Uniform() < 0.3
}

// rhythmicVariation advances the oscillator and maps its sine to a
// [0.85, 1.15] multiplier.
func (d *Dynamics) rhythmicVariation() float64 {
	d.rhythmPhase += rhythmStep
	rhythm := math.Sin(d.rhythmPhase)*0.5 + 0.5
	return 0.85 + rhythm*0.3
}

// DigraphFactor biases timing by physical and linguistic adjacency of an
// ordered character pair.
func (d *Dynamics) DigraphFactor(prev, curr rune) float64 {
	lp := unicode.ToLower(prev)
	lc := unicode.ToLower(curr)

	if fastDigraphs[string([]rune{lp, lc})] {
		return 0.75
	}

	if (lp == 'q' && lc == 'z') || (lp == 'z' && lc == 'q') || (lp == 'p' && lc == 'q') {
		return 1.4
	}

	bothLeft := strings.ContainsRune(leftHandKeys, lp) && strings.ContainsRune(leftHandKeys, lc)
	bothRight := strings.ContainsRune(rightHandKeys, lp) && strings.ContainsRune(rightHandKeys, lc)
	if bothLeft || bothRight {
		return 1.08
	}

	return 1.0
}

// CalculateDelay runs the compound multiplicative delay pipeline for the
// character that ends a chunk and returns whole milliseconds in
// [minDelayMs, maxDelayMs].
func (d *Dynamics) CalculateDelay(ch rune, flags DelayFlags) int {
	span := float64(d.delays.MaxMs - d.delays.MinMs)
	normalized := math.Min(d.rng.Gamma(d.profile.GammaShape, d.profile.GammaScale)/6.0, 1.0)

	delay := float64(d.delays.MinMs) + span*normalized
	delay *= d.rhythmicVariation()

	if unicode.IsDigit(ch) {
		delay *= 1.05
	}
	if unicode.IsSpace(ch) {
		delay *= 1.12
	}
	if ch == '\n' {
		delay *= 1.5
	}
	if ch == '.' || ch == '!' || ch == '?' {
		delay *= 1.4
	}

	if d.hasPrev && flags.SingleChar {
		delay *= d.DigraphFactor(d.prev, ch)
	}

	if flags.SentenceEnd {
		delay += d.rng.Gamma(2.0, 150)
	}
	if flags.ThinkingPause {
		delay += d.rng.Gamma(3.0, 800)
	}

	if d.rng.Uniform() < d.profile.MicroStutterProb {
		delay *= 1.3 + d.rng.Uniform()*0.4
	}

	if flags.Burst {
		delay *= 0.65
	}

	delay *= d.fatigueFactor
	delay *= 1.0 + d.rng.Normal(0, d.profile.NoiseLevel)

	return clampInt(int(delay), minDelayMs, maxDelayMs)
}

// GenerateHoldTime samples how long a key is held, in milliseconds within
// [minHoldMs, maxHoldMs]. Uppercase keys are held longer because of the
// shift coordination.
func (d *Dynamics) GenerateHoldTime(ch rune) int {
	hold := d.rng.Gamma(2.5, 20.0)
	if unicode.IsUpper(ch) {
		hold *= 1.2
	}
	hold *= 0.9 + d.rng.Uniform()*0.2
	return clampInt(int(hold), minHoldMs, maxHoldMs)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
