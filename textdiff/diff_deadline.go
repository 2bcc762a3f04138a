package textdiff

import "time"

// DiffDeadline finds the differences between two texts using an explicit
// deadline instead of the config's DiffTimeout. A zero deadline means no
// time budget (run to completion). The half-match speedup still follows
// DiffTimeout: it is skipped when DiffTimeout<=0, whatever the deadline.
func (config *Config) DiffDeadline(text1, text2 string, checklines bool, deadline time.Time) []Diff {
	return config.diffRunes([]rune(text1), []rune(text2), checklines, deadline)
}
