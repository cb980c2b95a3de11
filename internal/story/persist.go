package story

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

// History durably records each story's last-played timestamp across
// process restarts, so a cooldown isn't reset just because vibed was
// restarted. It is optional: a Bank works fine with no History
// attached (lastPlayedSec simply starts at the "never played"
// sentinel every run, same as the teacher's in-memory-only behavior).
type History struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenHistory opens (creating if needed) a SQLite-backed play-history
// store at path. Grounded on internal/eventlog/sqlitestore.go's
// open-and-migrate idiom, narrowed to the one table this store needs.
func OpenHistory(path string, logger *slog.Logger) (*History, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("story: opening history db: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS story_plays (
	id TEXT PRIMARY KEY,
	last_played_sec REAL NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("story: migrating history db: %w", err)
	}
	return &History{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (h *History) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

// LoadInto seeds bank with every persisted play timestamp, then wires
// itself as the bank's OnPlayed hook so future plays are persisted too.
func (h *History) LoadInto(b *Bank) {
	if h == nil || b == nil {
		return
	}
	rows, err := h.db.Query(`SELECT id, last_played_sec FROM story_plays`)
	if err != nil {
		h.logger.Warn("story: reading history", "err", err)
	} else {
		defer rows.Close()
		for rows.Next() {
			var id string
			var sec float64
			if err := rows.Scan(&id, &sec); err != nil {
				continue
			}
			b.SeedPlayed(id, sec)
		}
	}
	b.SetOnPlayed(h.record)
}

func (h *History) record(id string, atUnixSec float64) {
	const upsert = `
INSERT INTO story_plays (id, last_played_sec) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET last_played_sec = excluded.last_played_sec;`
	if _, err := h.db.Exec(upsert, id, atUnixSec); err != nil {
		h.logger.Warn("story: recording play", "id", id, "err", err)
	}
}
