package engine

import (
	"math"
	"unicode"
)

// neverTrigger disables a counter-based schedule.
const neverTrigger = math.MaxInt

// ImperfectionResult describes what to emit for one intended character.
type ImperfectionResult struct {
	// Ch is the effective character, possibly a neighbor-key substitution.
	Ch rune
	// Double asks for a second emission of Ch after a short pause.
	Double bool
	// Correct asks for a backspace and re-emission of the original
	// character after the typo.
	Correct bool
}

// Imperfections schedules neighbor-key typos, double-key bounces, and
// self-corrections on independent character counters.
type Imperfections struct {
	settings ImperfectionSettings
	layout   *Layout
	rng      *Rand

	sinceTypo    int
	sinceDouble  int
	nextTypoAt   int
	nextDoubleAt int
}

// NewImperfections builds a scheduler with freshly drawn trigger thresholds.
func NewImperfections(settings ImperfectionSettings, layout *Layout, rng *Rand) *Imperfections {
	g := &Imperfections{
		settings: settings,
		layout:   layout,
		rng:      rng,
	}
	g.Reset()
	return g
}

// Reset clears the counters and redraws both trigger thresholds.
func (g *Imperfections) Reset() {
	g.sinceTypo = 0
	g.sinceDouble = 0
	g.scheduleNextTypo()
	g.scheduleNextDouble()
}

func (g *Imperfections) scheduleNextTypo() {
	if g.settings.EnableTypos {
		g.nextTypoAt = g.rng.Range(g.settings.TypoMin, g.settings.TypoMax)
	} else {
		g.nextTypoAt = neverTrigger
	}
}

func (g *Imperfections) scheduleNextDouble() {
	if g.settings.EnableDoubleKeys {
		g.nextDoubleAt = g.rng.Range(g.settings.DoubleMin, g.settings.DoubleMax)
	} else {
		g.nextDoubleAt = neverTrigger
	}
}

// ProcessCharacter advances both counters and decides whether the character
// mutates, doubles, or gets corrected. Typos apply only to letters;
// double-keys never apply to whitespace.
func (g *Imperfections) ProcessCharacter(original rune) ImperfectionResult {
	result := ImperfectionResult{Ch: original}

	g.sinceTypo++
	g.sinceDouble++

	if g.sinceTypo >= g.nextTypoAt && unicode.IsLetter(original) {
		result.Ch = g.layout.NeighborKey(g.rng, original)
		g.sinceTypo = 0
		g.scheduleNextTypo()

		if g.settings.EnableAutoCorrection &&
			g.rng.Range(0, 99) < g.settings.CorrectionProbability {
			result.Correct = true
		}
	}

	if g.sinceDouble >= g.nextDoubleAt && !unicode.IsSpace(original) {
		result.Double = true
		g.sinceDouble = 0
		g.scheduleNextDouble()
	}

	return result
}
