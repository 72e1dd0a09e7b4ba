package scrape

import (
	"strconv"
	"strings"
)

// MetricSelector binds one canonical metric field to the place it lives
// in a platform's public profile markup.
type MetricSelector struct {
	// Field is the canonical metric name (metrics.Field*).
	Field string
	// Selector is a CSS selector locating the element.
	Selector string
	// Attr is the attribute holding the value; empty means element text.
	Attr string
}

// HTTPAdapterConfig describes one platform's public profile layout.
type HTTPAdapterConfig struct {
	Platform string
	// ProfileURLTemplate receives the handle via fmt.Sprintf.
	ProfileURLTemplate string
	UserAgent          string
	Selectors          []MetricSelector
}

// ParseCount parses a human-formatted counter such as "12,345", "1.2K",
// "3.4M" or "2B" into its numeric value.
func ParseCount(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		multiplier = 1e3
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		multiplier = 1e6
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "B"), strings.HasSuffix(s, "b"):
		multiplier = 1e9
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return value * multiplier, true
}
