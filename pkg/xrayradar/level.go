// level.go defines event severity levels and their ordering.

package xrayradar

import (
	"fmt"
	"strings"
)

// Level indicates the severity of an event. Levels are ordered
// debug < info < warning < error < fatal.
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelFatal   Level = "fatal"
)

func (l Level) rank() int {
	switch l {
	case LevelDebug:
		return 0
	case LevelInfo:
		return 1
	case LevelWarning:
		return 2
	case LevelError:
		return 3
	case LevelFatal:
		return 4
	}
	return -1
}

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	return l.rank() >= 0
}

// AtLeast reports whether l is at or above min. An empty min matches every level.
func (l Level) AtLeast(min Level) bool {
	if min == "" {
		return true
	}
	return l.rank() >= min.rank()
}

// normalizeLevel maps l onto the known levels, accepting the aliases
// ParseLevel accepts. Unknown or empty input yields fallback.
func normalizeLevel(l, fallback Level) Level {
	if l.Valid() {
		return l
	}
	if parsed, err := ParseLevel(string(l)); err == nil {
		return parsed
	}
	return fallback
}

// ParseLevel converts a level name to a Level. Matching is case-insensitive;
// "warn" maps to warning and "critical" to fatal.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "fatal", "critical":
		return LevelFatal, nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}
