package common

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Every temporal field written to the graph is an RFC3339 string with
// millisecond precision and a trailing Z. Downstream consumers parse these as
// date-times; a raw epoch integer breaks them, so epoch values observed
// anywhere must be normalized before writing.

const isoMillis = "2006-01-02T15:04:05.000Z"

var isoPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d{3})?Z$`)

// NowISO returns the current UTC time in the canonical wire format.
func NowISO() string {
	return time.Now().UTC().Format(isoMillis)
}

// FormatISO renders t in the canonical wire format.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

// FromEpochMillis converts a millisecond epoch value to the canonical wire
// format.
func FromEpochMillis(epochMS int64) string {
	return time.UnixMilli(epochMS).UTC().Format(isoMillis)
}

// IsISO reports whether value already matches the canonical wire format.
func IsISO(value string) bool {
	return isoPattern.MatchString(value)
}

// NormalizeTimestamp coerces a temporal property read back from the graph
// into the canonical wire format. The second return value reports whether the
// value needed changing, so remediation passes can count pending updates and
// confirm convergence to zero. Running it on already-correct data is a no-op.
func NormalizeTimestamp(value interface{}) (string, bool, error) {
	switch v := value.(type) {
	case nil:
		return "", false, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if IsISO(trimmed) {
			return trimmed, false, nil
		}
		if ms, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return FromEpochMillis(ms), true, nil
		}
		if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
			return FormatISO(t), trimmed != FormatISO(t), nil
		}
		return "", false, fmt.Errorf("unrecognized timestamp %q", v)
	case int64:
		return FromEpochMillis(v), true, nil
	case int:
		return FromEpochMillis(int64(v)), true, nil
	case float64:
		return FromEpochMillis(int64(v)), true, nil
	case time.Time:
		return FormatISO(v), true, nil
	default:
		return "", false, fmt.Errorf("unsupported timestamp type %T", value)
	}
}
