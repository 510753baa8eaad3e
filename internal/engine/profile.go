package engine

// TimingProfile bundles the tunables that shape a session's typing rhythm.
// It is immutable once bound to an Engine.
type TimingProfile struct {
	BaseSpeedFactor  float64
	MicroStutterProb float64
	IdlePauseProb    float64
	BurstProb        float64
	BurstMin         int
	BurstMax         int
	GammaShape       float64
	GammaScale       float64
	NoiseLevel       float64
}

// ProfileAdvanced is the default profile: a competent everyday typist.
func ProfileAdvanced() TimingProfile {
	return TimingProfile{
		BaseSpeedFactor:  1.0,
		MicroStutterProb: 0.1,
		IdlePauseProb:    0.009,
		BurstProb:        0.14,
		BurstMin:         2,
		BurstMax:         6,
		GammaShape:       2.0,
		GammaScale:       1.0,
		NoiseLevel:       0.15,
	}
}

// ProfileFast types quickly with fewer stutters and longer bursts.
func ProfileFast() TimingProfile {
	return TimingProfile{
		BaseSpeedFactor:  0.7,
		MicroStutterProb: 0.06,
		IdlePauseProb:    0.004,
		BurstProb:        0.2,
		BurstMin:         3,
		BurstMax:         8,
		GammaShape:       1.8,
		GammaScale:       0.9,
		NoiseLevel:       0.12,
	}
}

// ProfileSlowTired models a fatigued typist: slow, noisy, frequent pauses.
func ProfileSlowTired() TimingProfile {
	return TimingProfile{
		BaseSpeedFactor:  1.5,
		MicroStutterProb: 0.15,
		IdlePauseProb:    0.025,
		BurstProb:        0.08,
		BurstMin:         2,
		BurstMax:         4,
		GammaShape:       2.5,
		GammaScale:       1.3,
		NoiseLevel:       0.22,
	}
}

// ProfileProfessional models a touch typist: fast, consistent, long bursts.
func ProfileProfessional() TimingProfile {
	return TimingProfile{
		BaseSpeedFactor:  0.75,
		MicroStutterProb: 0.04,
		IdlePauseProb:    0.003,
		BurstProb:        0.25,
		BurstMin:         4,
		BurstMax:         10,
		GammaShape:       1.6,
		GammaScale:       0.85,
		NoiseLevel:       0.08,
	}
}

// ProfileByName resolves a profile preset by its configuration name. The
// second return value reports whether the name was recognized; unknown names
// return the Advanced profile.
func ProfileByName(name string) (TimingProfile, bool) {
	switch name {
	case "advanced", "":
		return ProfileAdvanced(), true
	case "fast":
		return ProfileFast(), true
	case "slow", "tired", "slow_tired":
		return ProfileSlowTired(), true
	case "professional":
		return ProfileProfessional(), true
	default:
		return ProfileAdvanced(), false
	}
}

// DelayRange bounds the base inter-chunk delay in milliseconds.
type DelayRange struct {
	MinMs int
	MaxMs int
}

// Normalize swaps inverted bounds and floors non-positive values so the
// engine never sees an invalid range.
func (d DelayRange) Normalize() DelayRange {
	if d.MinMs <= 0 {
		d.MinMs = 1
	}
	if d.MaxMs <= 0 {
		d.MaxMs = 1
	}
	if d.MinMs > d.MaxMs {
		d.MinMs, d.MaxMs = d.MaxMs, d.MinMs
	}
	return d
}

// ImperfectionSettings controls simulated typos, double-key bounces, and
// self-correction.
type ImperfectionSettings struct {
	EnableTypos bool
	TypoMin     int
	TypoMax     int

	EnableDoubleKeys bool
	DoubleMin        int
	DoubleMax        int

	EnableAutoCorrection bool
	// CorrectionProbability is a percentage (0-100) consulted only
	// immediately after a typo is generated.
	CorrectionProbability int
}

// DefaultImperfections mirrors the stock settings of the reference typer.
func DefaultImperfections() ImperfectionSettings {
	return ImperfectionSettings{
		EnableTypos:           true,
		TypoMin:               300,
		TypoMax:               500,
		EnableDoubleKeys:      true,
		DoubleMin:             250,
		DoubleMax:             400,
		EnableAutoCorrection:  true,
		CorrectionProbability: 15,
	}
}
