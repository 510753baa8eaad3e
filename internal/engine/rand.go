package engine

import (
	"math"
	"math/rand"
	"time"
)

// Rand provides the distribution sampling primitives used by the typing
// models. Every instance owns its source and its Box-Muller spare value, so
// independent sessions never share sampler state and tests can seed it
// deterministically.
type Rand struct {
	src      *rand.Rand
	spare    float64
	hasSpare bool
}

// NewRand returns a generator seeded with the given value.
func NewRand(seed int64) *Rand {
	return &Rand{src: rand.New(rand.NewSource(seed))}
}

// NewSessionRand returns a generator seeded from the wall clock, one per
// typing session.
func NewSessionRand() *Rand {
	return NewRand(time.Now().UnixNano())
}

// Uniform returns a sample in [0, 1).
func (r *Rand) Uniform() float64 {
	return r.src.Float64()
}

// Range returns an integer in [min, max], inclusive of both bounds.
func (r *Rand) Range(min, max int) int {
	if min > max {
		min, max = max, min
	}
	return min + r.src.Intn(max-min+1)
}

// Normal samples a Gaussian via the polar Box-Muller transform. Each pair of
// draws produces two samples; the second is cached on the instance and
// returned by the next call.
func (r *Rand) Normal(mean, stddev float64) float64 {
	if r.hasSpare {
		r.hasSpare = false
		return mean + stddev*r.spare
	}

	var u, v, s float64
	for {
		u = r.src.Float64()*2 - 1
		v = r.src.Float64()*2 - 1
		s = u*u + v*v
		if s < 1 && s != 0 {
			break
		}
	}
	s = math.Sqrt(-2 * math.Log(s) / s)

	r.spare = v * s
	r.hasSpare = true
	return mean + stddev*u*s
}

// Gamma samples from a gamma distribution using the Marsaglia-Tsang rejection
// method. Shapes below 1 are boosted through gamma(1+shape) and scaled back
// by uniform^(1/shape).
func (r *Rand) Gamma(shape, scale float64) float64 {
	if shape < 1 {
		return r.Gamma(1+shape, scale) * math.Pow(r.Uniform(), 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)

	for {
		var x, v float64
		for {
			x = r.Normal(0, 1)
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := r.Uniform()

		if u < 1-0.0331*x*x*x*x {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v * scale
		}
	}
}
