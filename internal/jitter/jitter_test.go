package jitter

import (
	"sync"
	"testing"
)

func TestUniform_Bounds(t *testing.T) {
	src := Seeded(42)
	for i := 0; i < 10000; i++ {
		v := Uniform(src, 0.995, 1.02)
		if v < 0.995 || v >= 1.02 {
			t.Fatalf("draw %d out of range: %v", i, v)
		}
	}
}

func TestSeeded_Deterministic(t *testing.T) {
	a, b := Seeded(7), Seeded(7)
	for i := 0; i < 100; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
}

func TestFixed_Replays(t *testing.T) {
	f := NewFixed(0.1, 0.5)
	want := []float64{0.1, 0.5, 0.1, 0.5}
	for i, w := range want {
		if got := f.Float64(); got != w {
			t.Errorf("draw %d: got %v, want %v", i, got, w)
		}
	}
	if got := NewFixed().Float64(); got != 0 {
		t.Errorf("empty Fixed should yield 0, got %v", got)
	}
}

func TestUniformDecimal_Rounds(t *testing.T) {
	got := UniformDecimal(NewFixed(0.5), -2.5, 2.5, 2)
	if !got.IsZero() {
		t.Errorf("expected 0, got %s", got)
	}
	got = UniformDecimal(NewFixed(0.123456), 0, 1, 2)
	if got.String() != "0.12" {
		t.Errorf("expected 0.12, got %s", got)
	}
}

func TestLocked_ConcurrentUse(t *testing.T) {
	src := Seeded(1)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				if v := src.Float64(); v < 0 || v >= 1 {
					t.Errorf("out of range: %v", v)
					return
				}
			}
		}()
	}
	wg.Wait()
}
