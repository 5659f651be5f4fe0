package service

import (
	"math"
	"math/rand/v2"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/domain"
)

// Default bounds used when a pump has no configured specs.
const (
	defaultMinPressure = 30.0
	defaultMaxPressure = 100.0
	defaultPowerRating = 15.0
)

// RandomSampleSource fabricates metric samples within domain-appropriate
// ranges, honoring the pump's configured pressure and power bounds. It
// stands in for real sensor ingestion behind domain.SampleSource.
type RandomSampleSource struct {
	rng *rand.Rand
}

// NewRandomSampleSource returns a sample source with its own PRNG stream.
func NewRandomSampleSource() *RandomSampleSource {
	return &RandomSampleSource{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// newSampleSourceWithSeed gives tests a deterministic stream.
func newSampleSourceWithSeed(seed uint64) *RandomSampleSource {
	return &RandomSampleSource{rng: rand.New(rand.NewPCG(seed, seed))}
}

// Sample draws each field uniformly within its range. The pump operates 90%
// of the time.
func (s *RandomSampleSource) Sample(pump *domain.Pump) domain.MetricSample {
	minPressure, maxPressure := defaultMinPressure, defaultMaxPressure
	if pump.MinPressure != nil {
		minPressure = *pump.MinPressure
	}
	if pump.MaxPressure != nil {
		maxPressure = *pump.MaxPressure
	}

	maxPower := defaultPowerRating
	if pump.PowerRating != nil {
		maxPower = *pump.PowerRating
	}

	return domain.MetricSample{
		FlowRate:          s.inRange(50, 200),
		Pressure:          s.inRange(minPressure, maxPressure),
		Temperature:       s.inRange(20, 75),
		PowerConsumption:  s.inRange(5, maxPower),
		CurrentEfficiency: s.inRange(75, 95),
		IsOperating:       s.rng.Float64() > 0.1,
	}
}

// inRange draws a value in [min, max] rounded to two decimals.
func (s *RandomSampleSource) inRange(min, max float64) float64 {
	if max < min {
		max = min
	}
	v := min + s.rng.Float64()*(max-min)
	return math.Round(v*100) / 100
}
