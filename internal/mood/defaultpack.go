package mood

// DefaultPack returns the four built-in moods used as the testable
// baseline. Values are taken verbatim from the original engine's
// defaultMoodPack so tests and tooling agree on the exact numbers.
func DefaultPack() Pack {
	return Pack{Moods: []Recipe{
		newRecipe("focus_room", "Focus Room", 0.55, 0.35, 0.55, 0.6,
			[]float64{0.35, 0.55}, []string{"rain_cave", "arcade_night"}),
		newRecipe("rain_cave", "Rain Cave", 0.35, 0.25, 0.45, 0.3,
			[]float64{0.25, 0.4, 0.25}, []string{"focus_room", "sleep_ship"}),
		newRecipe("arcade_night", "Arcade Night", 0.7, 0.5, 0.35, 0.8,
			[]float64{0.4, 0.75}, []string{"focus_room", "rain_cave"}),
		newRecipe("sleep_ship", "Sleep Ship", 0.2, 0.2, 0.6, 0.1,
			[]float64{0.15, 0.25, 0.35, 0.2}, []string{"rain_cave"}),
	}}
}

func newRecipe(id, display string, energy, tension, warmth, color float64, density []float64, transitions []string) Recipe {
	return Recipe{
		ID:                 id,
		DisplayName:        display,
		Energy:             energy,
		Tension:            tension,
		Warmth:             warmth,
		Color:              color,
		DensityCurve:       density,
		AllowedTransitions: transitions,
		NarrativeFrequency: 0.05,
		Synth:              SynthPreset{Preset: "default", Seed: 0, PatternDensity: 0.3},
	}
}
