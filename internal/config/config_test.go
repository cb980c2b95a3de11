package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rosswood/keegan/internal/mood"
)

func TestLoadMoodPackEmptyPathReturnsDefault(t *testing.T) {
	pack, err := LoadMoodPack("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pack.Moods) != len(mood.DefaultPack().Moods) {
		t.Fatalf("got %d moods, want default pack's %d", len(pack.Moods), len(mood.DefaultPack().Moods))
	}
}

func TestLoadMoodPackMissingFileReturnsDefault(t *testing.T) {
	pack, err := LoadMoodPack(filepath.Join(t.TempDir(), "does-not-exist.json"), nil)
	if pack.IndexOf("focus_room") < 0 {
		t.Fatal("expected fallback to default pack")
	}
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("err = %v, want wrapped ErrConfigNotFound", err)
	}
}

func TestLoadMoodPackInvalidJSONReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moods.json")
	writeFile(t, path, `{not valid json`)

	pack, err := LoadMoodPack(path, nil)
	if pack.IndexOf("focus_room") < 0 {
		t.Fatal("expected fallback to default pack on invalid JSON")
	}
	if !errors.Is(err, ErrConfigInvalid) {
		t.Errorf("err = %v, want wrapped ErrConfigInvalid", err)
	}
}

func TestLoadMoodPackEmptyMoodsReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moods.json")
	writeFile(t, path, `{"moods": []}`)

	pack, err := LoadMoodPack(path, nil)
	if pack.IndexOf("focus_room") < 0 {
		t.Fatal("expected fallback to default pack on empty moods array")
	}
	if !errors.Is(err, ErrConfigInvalid) {
		t.Errorf("err = %v, want wrapped ErrConfigInvalid", err)
	}
}

func TestLoadMoodPackDecodesFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moods.json")
	writeFile(t, path, `{
		"moods": [
			{
				"id": "storm_deck",
				"display_name": "Storm Deck",
				"energy": 0.8,
				"tension": 0.6,
				"warmth": 0.2,
				"color": 0.9,
				"density_curve": [0.3, 0.6, 0.9],
				"allowed_transitions": ["focus_room"],
				"narrative_frequency": 0.1,
				"stems": [
					{"file": "rain.wav", "role": "bed", "gain_db": -6, "loop": true, "probability": 1.0}
				],
				"synth": {"preset": "default", "seed": 7, "pattern_density": 0.5}
			}
		]
	}`)

	pack, err := LoadMoodPack(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idx := pack.IndexOf("storm_deck")
	if idx < 0 {
		t.Fatal("storm_deck not found in decoded pack")
	}
	r := pack.Moods[idx]
	if r.DisplayName != "Storm Deck" {
		t.Errorf("DisplayName = %q, want Storm Deck", r.DisplayName)
	}
	if r.Energy != 0.8 || r.Tension != 0.6 {
		t.Errorf("Energy/Tension = %v/%v, want 0.8/0.6", r.Energy, r.Tension)
	}
	if len(r.DensityCurve) != 3 {
		t.Fatalf("len(DensityCurve) = %d, want 3", len(r.DensityCurve))
	}
	if len(r.AllowedTransitions) != 1 || r.AllowedTransitions[0] != "focus_room" {
		t.Errorf("AllowedTransitions = %v", r.AllowedTransitions)
	}
	if len(r.Stems) != 1 || r.Stems[0].File != "rain.wav" || r.Stems[0].GainDB != -6 {
		t.Errorf("Stems = %+v", r.Stems)
	}
	if r.Synth.Preset != "default" || r.Synth.Seed != 7 {
		t.Errorf("Synth = %+v", r.Synth)
	}
}

func TestLoadMoodPackClampsNumericFieldsToUnitRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moods.json")
	writeFile(t, path, `{
		"moods": [
			{"id": "overdriven", "energy": 1.5, "tension": -0.3, "warmth": 0.5, "color": 2.0}
		]
	}`)

	pack, _ := LoadMoodPack(path, nil)
	r := pack.Moods[pack.IndexOf("overdriven")]
	if r.Energy != 1.0 {
		t.Errorf("Energy = %v, want clamped to 1.0", r.Energy)
	}
	if r.Tension != 0.0 {
		t.Errorf("Tension = %v, want clamped to 0.0", r.Tension)
	}
	if r.Color != 1.0 {
		t.Errorf("Color = %v, want clamped to 1.0", r.Color)
	}
}

func TestLoadMoodPackSkipsEntriesMissingID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moods.json")
	writeFile(t, path, `{
		"moods": [
			{"display_name": "No ID"},
			{"id": "has_id", "display_name": "Has ID"}
		]
	}`)

	pack, _ := LoadMoodPack(path, nil)
	if len(pack.Moods) != 1 {
		t.Fatalf("len(Moods) = %d, want 1 (entry without id skipped)", len(pack.Moods))
	}
	if pack.Moods[0].ID != "has_id" {
		t.Errorf("Moods[0].ID = %q, want has_id", pack.Moods[0].ID)
	}
}

func TestLoadMoodPackSkipsStemsMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "moods.json")
	writeFile(t, path, `{
		"moods": [
			{"id": "m", "stems": [{"role": "no-file"}, {"file": "ok.wav", "role": "bed"}]}
		]
	}`)

	pack, _ := LoadMoodPack(path, nil)
	r := pack.Moods[pack.IndexOf("m")]
	if len(r.Stems) != 1 || r.Stems[0].File != "ok.wav" {
		t.Errorf("Stems = %+v, want only ok.wav", r.Stems)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing test fixture: %v", err)
	}
}
