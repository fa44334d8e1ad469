package decision

import (
	"math/rand"
	"sync"
)

// DefaultNoiseAmplitude approximates sensor variance on derived NDVI values.
const DefaultNoiseAmplitude = 0.05

// NoiseSource perturbs derived vegetation readings.
type NoiseSource interface {
	// Next returns a value in [-amplitude, amplitude].
	Next() float64
}

// ZeroNoise disables perturbation.
type ZeroNoise struct{}

func (ZeroNoise) Next() float64 { return 0 }

// SeededNoise draws uniform noise from a seeded generator. It is safe for
// concurrent use.
type SeededNoise struct {
	mu        sync.Mutex
	rng       *rand.Rand
	amplitude float64
}

func NewSeededNoise(seed int64, amplitude float64) *SeededNoise {
	return &SeededNoise{
		rng:       rand.New(rand.NewSource(seed)),
		amplitude: amplitude,
	}
}

func (n *SeededNoise) Next() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return (n.rng.Float64()*2 - 1) * n.amplitude
}
