package story

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/rosswood/keegan/internal/stem"
)

// entry mirrors one element of the stories JSON array: {id, text, audio_file, mood}.
type entry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	AudioFile string `json:"audio_file"`
	Mood      string `json:"mood"`
}

// LoadFromFile parses a JSON array of story entries at path, loads each
// entry's audio file relative to audioDir, and populates the bank. A
// missing file is not fatal: it's logged and the bank is left empty.
// Entries whose audio fails to decode are skipped with a warning, same
// as a malformed stem in a mood's stem bank.
func LoadFromFile(b *Bank, path, audioDir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("story: config not found", "path", path, "err", err)
		return nil
	}

	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("story: invalid JSON in %s: %w", path, err)
	}

	loaded := 0
	for _, e := range entries {
		if e.Text == "" || e.AudioFile == "" {
			continue
		}
		full := e.AudioFile
		if audioDir != "" {
			full = audioDir + string(os.PathSeparator) + e.AudioFile
		}
		audio, err := stem.Load(full, 0, false)
		if err != nil {
			logger.Warn("story: failed to load audio", "id", e.ID, "file", full, "err", err)
			continue
		}
		b.AddStory(e.ID, e.Text, e.AudioFile, e.Mood, audio)
		loaded++
	}

	logger.Info("story: loaded stories", "count", loaded)
	return nil
}
