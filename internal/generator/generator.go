// Package generator provides the random choices made during a game.
package generator

import (
	"math/rand"
	"time"
)

// Generator wraps a private random source.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Float64 returns a value in [0, 1).
func (g *Generator) Float64() float64 {
	return g.rnd.Float64()
}

// Intn returns a value in [0, n).
func (g *Generator) Intn(n int) int {
	return g.rnd.Intn(n)
}

// Shuffle returns a reordered copy of items.
func Shuffle[T any](g *Generator, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	g.rnd.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Sample picks up to n distinct items uniformly.
func Sample[T any](g *Generator, items []T, n int) []T {
	if n <= 0 {
		return nil
	}
	out := Shuffle(g, items)
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// SampleWeighted picks up to n distinct items, each draw proportional to weight.
// Items with a non-positive weight are only drawn once the weighted ones run out.
func SampleWeighted[T any](g *Generator, items []T, n int, weight func(T) float64) []T {
	if n <= 0 || len(items) == 0 {
		return nil
	}
	pool := make([]T, len(items))
	copy(pool, items)
	weights := make([]float64, len(pool))
	total := 0.0
	for i, item := range pool {
		w := weight(item)
		if w < 0 {
			w = 0
		}
		weights[i] = w
		total += w
	}

	result := make([]T, 0, min(n, len(pool)))
	for len(result) < n && len(pool) > 0 {
		idx := 0
		if total > 0 {
			r := g.rnd.Float64() * total
			acc := 0.0
			idx = len(pool) - 1
			for j, w := range weights {
				acc += w
				if r < acc {
					idx = j
					break
				}
			}
		} else {
			idx = g.rnd.Intn(len(pool))
		}
		result = append(result, pool[idx])
		total -= weights[idx]
		if total < 1e-12 {
			total = 0
		}
		pool = append(pool[:idx], pool[idx+1:]...)
		weights = append(weights[:idx], weights[idx+1:]...)
	}
	return result
}
