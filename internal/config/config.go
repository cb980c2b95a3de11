// Package config reads the mood-pack JSON file that seeds the engine at
// startup. Resolution order and the "recover locally, log a warning"
// policy both follow the teacher's internal/config loader, repointed at
// mood recipes instead of notification profiles.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/rosswood/keegan/internal/mood"
	"github.com/rosswood/keegan/internal/stem"
)

// ErrConfigNotFound is returned, alongside the default pack, when path
// is non-empty but no file exists there.
var ErrConfigNotFound = errors.New("config: mood config not found")

// ErrConfigInvalid is returned, alongside the default pack, when the
// file at path exists but is malformed JSON or has no usable moods.
var ErrConfigInvalid = errors.New("config: mood config invalid")

// stemEntry mirrors spec.md §6's stems array: {file, role, gain_db, loop, probability}.
type stemEntry struct {
	File        string  `json:"file"`
	Role        string  `json:"role"`
	GainDB      float64 `json:"gain_db"`
	Loop        bool    `json:"loop"`
	Probability float64 `json:"probability"`
}

// synthEntry mirrors spec.md §6's synth object: {preset, seed, pattern_density}.
type synthEntry struct {
	Preset         string  `json:"preset"`
	Seed           int64   `json:"seed"`
	PatternDensity float64 `json:"pattern_density"`
}

// moodEntry mirrors spec.md §6's MoodRecipe JSON shape.
type moodEntry struct {
	ID                 string      `json:"id"`
	DisplayName        string      `json:"display_name"`
	Energy             float64     `json:"energy"`
	Tension            float64     `json:"tension"`
	Warmth             float64     `json:"warmth"`
	Color              float64     `json:"color"`
	DensityCurve       []float64   `json:"density_curve"`
	AllowedTransitions []string    `json:"allowed_transitions"`
	NarrativeFrequency float64     `json:"narrative_frequency"`
	Stems              []stemEntry `json:"stems"`
	Synth              synthEntry  `json:"synth"`
}

// moodFile is the top-level `{"moods": [...]}` object from spec.md §6.
type moodFile struct {
	Moods []moodEntry `json:"moods"`
}

// LoadMoodPack reads a mood-pack JSON file from path. An empty path, a
// missing file, malformed JSON, or a file with no usable mood entries
// all fall back to mood.DefaultPack(); every case but the empty path is
// logged as a warning rather than surfaced as a fatal error — spec.md §7's ConfigNotFound/ConfigInvalid
// policy is "recover locally, keep running". The returned error is nil
// on success (including the empty-path case, which isn't a config
// failure) and wraps ErrConfigNotFound/ErrConfigInvalid otherwise, so a
// caller that wants to distinguish "using defaults on purpose" from
// "using defaults because the config was bad" can with errors.Is.
func LoadMoodPack(path string, logger *slog.Logger) (mood.Pack, error) {
	logger = orDiscard(logger)
	if path == "" {
		return mood.DefaultPack(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("config: mood pack not found, using default pack", "path", path)
			return mood.DefaultPack(), fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		logger.Warn("config: mood pack unreadable, using default pack", "path", path, "err", err)
		return mood.DefaultPack(), fmt.Errorf("%w: %s: %v", ErrConfigInvalid, path, err)
	}

	var file moodFile
	if err := json.Unmarshal(data, &file); err != nil {
		logger.Warn("config: mood pack invalid JSON, using default pack", "path", path, "err", err)
		return mood.DefaultPack(), fmt.Errorf("%w: %s: %v", ErrConfigInvalid, path, err)
	}
	if len(file.Moods) == 0 {
		logger.Warn("config: mood pack has no moods, using default pack", "path", path)
		return mood.DefaultPack(), fmt.Errorf("%w: %s: no moods", ErrConfigInvalid, path)
	}

	moods := make([]mood.Recipe, 0, len(file.Moods))
	for _, e := range file.Moods {
		if e.ID == "" {
			logger.Warn("config: mood entry missing id, skipping")
			continue
		}
		stems := make([]stem.Config, 0, len(e.Stems))
		for _, s := range e.Stems {
			if s.File == "" {
				continue
			}
			stems = append(stems, stem.Config{
				File:        s.File,
				Role:        s.Role,
				GainDB:      s.GainDB,
				Loop:        s.Loop,
				Probability: s.Probability,
			})
		}
		moods = append(moods, mood.Recipe{
			ID:                 e.ID,
			DisplayName:        e.DisplayName,
			Energy:             clamp01(e.Energy),
			Tension:            clamp01(e.Tension),
			Warmth:             clamp01(e.Warmth),
			Color:              clamp01(e.Color),
			DensityCurve:       e.DensityCurve,
			AllowedTransitions: e.AllowedTransitions,
			NarrativeFrequency: e.NarrativeFrequency,
			Stems:              stems,
			Synth: mood.SynthPreset{
				Preset:         e.Synth.Preset,
				Seed:           e.Synth.Seed,
				PatternDensity: e.Synth.PatternDensity,
			},
		})
	}
	if len(moods) == 0 {
		logger.Warn("config: mood pack had no valid entries, using default pack", "path", path)
		return mood.DefaultPack(), fmt.Errorf("%w: %s: no valid mood entries", ErrConfigInvalid, path)
	}
	return mood.Pack{Moods: moods}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
