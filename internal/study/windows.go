package study

import (
	"fmt"
	"strconv"
	"strings"

	"EventLens/internal/model"
)

// DefaultWindows are used when a request names none.
func DefaultWindows() []model.EventWindow {
	return []model.EventWindow{{Start: -5, End: 5}, {Start: -1, End: 1}, {Start: 0, End: 1}}
}

// ParseWindows parses a comma-separated list of "start:end" offset pairs,
// e.g. "-1:1,0:1". An empty string yields DefaultWindows.
func ParseWindows(s string) ([]model.EventWindow, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultWindows(), nil
	}
	var windows []model.EventWindow
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		a, b, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid window %q: expected start:end", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			return nil, fmt.Errorf("invalid window %q: %w", part, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(b))
		if err != nil {
			return nil, fmt.Errorf("invalid window %q: %w", part, err)
		}
		windows = append(windows, model.EventWindow{Start: start, End: end})
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("no windows in %q", s)
	}
	return windows, nil
}

// FormatWindows renders windows back into ParseWindows syntax.
func FormatWindows(windows []model.EventWindow) string {
	parts := make([]string, len(windows))
	for i, w := range windows {
		parts[i] = fmt.Sprintf("%d:%d", w.Start, w.End)
	}
	return strings.Join(parts, ",")
}
