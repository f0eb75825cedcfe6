package player

import "strings"

// NoLine is the line index reported when no current line can be derived,
// i.e. the duration is unknown or the text has no lines.
const NoLine = -1

// SplitLines splits an affirmation or story script into its spoken lines.
// Lines are delimited by periods; surrounding whitespace is trimmed and
// empty segments are dropped.
func SplitLines(text string) []string {
	parts := strings.Split(text, ".")
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		lines = append(lines, p)
	}
	return lines
}

// LineIndex derives which line of text is current at the given playback
// position. The mapping is an even time-partition across all lines — no
// per-line timing data exists, so the index is a best-effort approximation,
// not an exact alignment with the audio.
//
// The result is deterministic for identical inputs. NoLine is returned when
// duration is zero or the text has no lines.
func LineIndex(text string, position, duration float64) int {
	if duration <= 0 {
		return NoLine
	}
	lines := SplitLines(text)
	if len(lines) == 0 {
		return NoLine
	}

	idx := int(position / duration * float64(len(lines)))
	if idx < 0 {
		idx = 0
	}
	if idx > len(lines)-1 {
		idx = len(lines) - 1
	}
	return idx
}
