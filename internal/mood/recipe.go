// Package mood defines the mood recipe data model, the default mood
// pack, and the gated crossfade state machine that drives the engine.
package mood

import "github.com/rosswood/keegan/internal/stem"

// SynthPreset carries a mood's synth preset fields as configured. The
// engine's procedural sine fallback, used when a mood's stem bank is
// empty or fails to load, does not read them.
type SynthPreset struct {
	Preset         string
	Seed           int64
	PatternDensity float64
}

// Recipe is an immutable mood definition once published into a Pack.
type Recipe struct {
	ID          string
	DisplayName string

	Energy float64
	Tension float64
	Warmth  float64
	Color   float64

	DensityCurve        []float64
	AllowedTransitions  []string
	NarrativeFrequency  float64
	Stems               []stem.Config
	Synth               SynthPreset
}

// AllowsTransition reports whether id may be reached from this recipe.
// An empty AllowedTransitions list means any mood is reachable.
func (r Recipe) AllowsTransition(id string) bool {
	if len(r.AllowedTransitions) == 0 {
		return true
	}
	for _, a := range r.AllowedTransitions {
		if a == id {
			return true
		}
	}
	return false
}

// Pack is an ordered sequence of recipes; mood ids are unique within a pack.
type Pack struct {
	Moods []Recipe
}

// IndexOf returns the index of the recipe with the given id, or -1.
func (p Pack) IndexOf(id string) int {
	for i, m := range p.Moods {
		if m.ID == id {
			return i
		}
	}
	return -1
}
