// Package heuristics maps observable signals about what the user is
// doing — the foreground process name and input idle time — onto mood
// bias and an activity scalar the engine folds into its DSP setpoints.
package heuristics

import (
	"log/slog"
	"regexp"
)

// Bias is the mood nudge produced by a matched rule.
type Bias struct {
	MoodID     string
	EnergyBias float64
}

// DefaultBias is returned when no rule matches the active process.
var DefaultBias = Bias{MoodID: "focus_room", EnergyBias: 0.0}

type rule struct {
	pattern    *regexp.Regexp
	moodID     string
	energyBias float64
}

// AppHeuristics holds an ordered list of process-name rules. The first
// matching rule wins; insertion order is authoritative.
type AppHeuristics struct {
	rules  []rule
	active string
	bias   Bias
	logger *slog.Logger
}

// New returns an AppHeuristics with no rules and DefaultBias current.
func New(logger *slog.Logger) *AppHeuristics {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppHeuristics{bias: DefaultBias, logger: logger}
}

// WithDefaults returns an AppHeuristics preloaded with the built-in
// rule table (transcribed from the reference desktop-mood engine).
func WithDefaults(logger *slog.Logger) *AppHeuristics {
	h := New(logger)
	h.AddRule("code|devenv|idea", "focus_room", -0.05)
	h.AddRule("notepad|word|excel|chrome", "focus_room", 0.0)
	h.AddRule("unreal|unity|game|steam", "arcade_night", 0.15)
	h.AddRule("vlc|spotify|netflix|video", "sleep_ship", -0.1)
	h.AddRule("zoom|teams|meet", "rain_cave", -0.05)
	return h
}

// AddRule compiles pattern case-insensitively and appends a rule. A
// malformed pattern is logged as a warning and skipped rather than
// treated as fatal.
func (h *AppHeuristics) AddRule(pattern, moodID string, energyBias float64) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		h.logger.Warn("heuristics: skipping malformed rule", "pattern", pattern, "err", err)
		return
	}
	h.rules = append(h.rules, rule{pattern: re, moodID: moodID, energyBias: energyBias})
}

// SetActiveProcess records the observed foreground process name and
// recomputes CurrentBias against the rule table.
func (h *AppHeuristics) SetActiveProcess(name string) {
	h.active = name
	for _, r := range h.rules {
		if r.pattern.MatchString(name) {
			h.bias = Bias{MoodID: r.moodID, EnergyBias: r.energyBias}
			return
		}
	}
	h.bias = DefaultBias
}

// ActiveProcess returns the most recently observed process name.
func (h *AppHeuristics) ActiveProcess() string { return h.active }

// CurrentBias returns the bias selected by the last SetActiveProcess call.
func (h *AppHeuristics) CurrentBias() Bias { return h.bias }

// RuleCount reports how many rules loaded successfully, mostly for tests.
func (h *AppHeuristics) RuleCount() int { return len(h.rules) }
