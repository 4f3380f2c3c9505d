package generator

import "testing"

func TestShuffleKeepsInput(t *testing.T) {
	g := NewSeeded(1)
	in := []string{"a", "b", "c", "d", "e"}
	out := Shuffle(g, in)
	if len(out) != len(in) {
		t.Fatalf("expected %d items, got %d", len(in), len(out))
	}
	if in[0] != "a" || in[4] != "e" {
		t.Fatalf("input was modified: %v", in)
	}
	seen := map[string]bool{}
	for _, v := range out {
		seen[v] = true
	}
	for _, v := range in {
		if !seen[v] {
			t.Fatalf("shuffle lost %q: %v", v, out)
		}
	}
}

func TestSampleDistinct(t *testing.T) {
	g := NewSeeded(2)
	in := []int{1, 2, 3, 4, 5, 6}
	out := Sample(g, in, 4)
	if len(out) != 4 {
		t.Fatalf("expected 4 items, got %d", len(out))
	}
	seen := map[int]bool{}
	for _, v := range out {
		if seen[v] {
			t.Fatalf("duplicate %d in %v", v, out)
		}
		seen[v] = true
	}
	if got := Sample(g, in, 10); len(got) != len(in) {
		t.Fatalf("oversized sample should return all items, got %d", len(got))
	}
	if got := Sample(g, in, 0); got != nil {
		t.Fatalf("expected nil for n=0, got %v", got)
	}
}

func TestSampleWeightedPrefersHeavyItems(t *testing.T) {
	g := NewSeeded(3)
	items := []string{"light-1", "light-2", "light-3", "heavy"}
	weight := func(s string) float64 {
		if s == "heavy" {
			return 100
		}
		return 1
	}
	heavyFirst := 0
	for i := 0; i < 200; i++ {
		out := SampleWeighted(g, items, 1, weight)
		if len(out) != 1 {
			t.Fatalf("expected 1 item, got %v", out)
		}
		if out[0] == "heavy" {
			heavyFirst++
		}
	}
	if heavyFirst < 150 {
		t.Fatalf("expected heavy item to dominate, picked %d/200", heavyFirst)
	}
}

func TestSampleWeightedExhaustsZeroWeights(t *testing.T) {
	g := NewSeeded(4)
	items := []string{"a", "b", "c"}
	out := SampleWeighted(g, items, 3, func(string) float64 { return 0 })
	if len(out) != 3 {
		t.Fatalf("expected all items, got %v", out)
	}
	seen := map[string]bool{}
	for _, v := range out {
		if seen[v] {
			t.Fatalf("duplicate %q in %v", v, out)
		}
		seen[v] = true
	}
}

func TestFloat64Range(t *testing.T) {
	g := NewSeeded(5)
	for i := 0; i < 1000; i++ {
		v := g.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("Float64 out of range: %v", v)
		}
	}
}
