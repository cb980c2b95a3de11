package scheduler

import (
	"math"
	"testing"

	"github.com/rosswood/keegan/internal/mood"
)

func TestDensityStaysInRange(t *testing.T) {
	s := New(48000)
	s.SetMood(mood.Recipe{Energy: 0.7, DensityCurve: []float64{0.4, 0.75}})
	for i := 0; i < 1000; i++ {
		d := s.NextDensity(512)
		if d < minDensity || d > maxDensity {
			t.Fatalf("density %v out of range [%v,%v]", d, minDensity, maxDensity)
		}
	}
}

func TestDensityOscillatesAroundBase(t *testing.T) {
	s := New(48000)
	s.SetMood(mood.Recipe{Energy: 0.5, DensityCurve: []float64{0.6}})
	var minSeen, maxSeen float64 = 1, 0
	for i := 0; i < 20000; i++ {
		d := s.NextDensity(256)
		if d < minSeen {
			minSeen = d
		}
		if d > maxSeen {
			maxSeen = d
		}
	}
	if maxSeen-minSeen < 0.01 {
		t.Fatalf("expected oscillation around base density, range was %v", maxSeen-minSeen)
	}
	mid := (minSeen + maxSeen) / 2
	if math.Abs(mid-0.6) > 0.06 {
		t.Fatalf("oscillation midpoint %v, want near base density 0.6", mid)
	}
}

func TestEmptyDensityCurveFallsBackToDefault(t *testing.T) {
	s := New(48000)
	s.SetMood(mood.Recipe{Energy: 0.5})
	if s.baseDensity != defaultDensity {
		t.Fatalf("baseDensity = %v, want default %v", s.baseDensity, defaultDensity)
	}
}

func TestTempoClampedToRange(t *testing.T) {
	s := New(48000)
	s.SetMood(mood.Recipe{Energy: 5.0}) // absurd energy, should clamp tempo
	if s.tempoHz > maxTempoHz {
		t.Fatalf("tempoHz = %v, exceeds max %v", s.tempoHz, maxTempoHz)
	}
	s.SetMood(mood.Recipe{Energy: -5.0})
	if s.tempoHz < minTempoHz {
		t.Fatalf("tempoHz = %v, below min %v", s.tempoHz, minTempoHz)
	}
}

func TestPoolGivesEachMoodItsOwnPhase(t *testing.T) {
	pool := NewPool(48000)
	focus := mood.Recipe{ID: "focus_room", Energy: 0.55, DensityCurve: []float64{0.35, 0.55}}
	rain := mood.Recipe{ID: "rain_cave", Energy: 0.35, DensityCurve: []float64{0.25, 0.4, 0.25}}

	sFocus := pool.For(focus)
	sFocus.NextDensity(4096) // advance focus_room's phase only

	sRain := pool.For(rain)
	if sRain.phase != 0 {
		t.Fatalf("rain_cave scheduler phase = %v, want 0 (unaffected by focus_room ticks)", sRain.phase)
	}

	sFocusAgain := pool.For(focus)
	if sFocusAgain != sFocus {
		t.Fatal("Pool.For should return the same *Scheduler instance for a repeated mood id")
	}
	if sFocusAgain.phase == 0 {
		t.Fatal("focus_room scheduler phase should have persisted across For calls")
	}
}
