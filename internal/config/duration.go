package config

import (
	"fmt"
	"strings"
	"time"
)

// DurationOrDefault parses value, or defaultValue when value is blank.
// Durations are never negative.
func DurationOrDefault(value string, defaultValue string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		raw = strings.TrimSpace(defaultValue)
	}
	if raw == "" {
		return 0, fmt.Errorf("duration value is empty")
	}

	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	case d < 0:
		return 0, fmt.Errorf("duration %q is negative", raw)
	}
	return d, nil
}

// DurationField names one configured duration and where its parsed value goes.
type DurationField struct {
	Name    string
	Value   string
	Default string
	Into    *time.Duration
}

// ParseDurations fills every field, stopping at the first bad value.
func ParseDurations(fields ...DurationField) error {
	for _, f := range fields {
		d, err := DurationOrDefault(f.Value, f.Default)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		*f.Into = d
	}
	return nil
}
