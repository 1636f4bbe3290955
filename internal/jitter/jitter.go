// Package jitter provides the injectable randomness behind quote noise,
// synthetic day changes and the heuristic risk metrics.
package jitter

import (
	"math/rand/v2"
	"sync"

	"github.com/shopspring/decimal"
)

// Source yields floats uniformly distributed in [0, 1).
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Default returns a source backed by the runtime-seeded global generator.
func Default() Source { return globalSource{} }

// Seeded returns a deterministic source for tests and replays.
func Seeded(seed uint64) Source {
	return Locked(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// Locked serializes access to src, which need not be goroutine-safe.
func Locked(src Source) Source {
	if _, ok := src.(*lockedSource); ok {
		return src
	}
	if _, ok := src.(globalSource); ok {
		return src
	}
	return &lockedSource{src: src}
}

type lockedSource struct {
	mu  sync.Mutex
	src Source
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

// Uniform draws from [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// UniformDecimal draws from [lo, hi) and rounds to places.
func UniformDecimal(src Source, lo, hi float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(Uniform(src, lo, hi)).Round(places)
}

// Fixed is a Source that replays values in order, wrapping around.
// An empty Fixed always yields 0.
type Fixed struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewFixed returns a Source replaying values.
func NewFixed(values ...float64) *Fixed {
	return &Fixed{values: values}
}

func (f *Fixed) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.values) == 0 {
		return 0
	}
	v := f.values[f.next%len(f.values)]
	f.next++
	return v
}
