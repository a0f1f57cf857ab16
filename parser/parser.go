// Package parser converts textual swim data into typed values.
package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	digitsPattern     = regexp.MustCompile(`\d+`)
	recordTextPattern = regexp.MustCompile(`(?i)national record`)
	genderTextPattern = regexp.MustCompile(`(?i)boys|girls`)
	unitTextPattern   = regexp.MustCompile(`(?i)\s+(yard|yd|meter|metre|m)\s+`)
)

// EventDetails describes a parsed event name.
type EventDetails struct {
	Distance int
	Stroke   string
	IsRelay  bool
}

// ParseSwimTime converts "M:SS.ss" or "SS.ss" into seconds.
func ParseSwimTime(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty time")
	}

	var seconds float64
	if strings.Contains(raw, ":") {
		parts := strings.SplitN(raw, ":", 2)
		minutes, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return 0, fmt.Errorf("parse minutes in %q: %w", raw, err)
		}
		secs, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return 0, fmt.Errorf("parse seconds in %q: %w", raw, err)
		}
		if minutes < 0 || secs < 0 {
			return 0, fmt.Errorf("negative component in %q", raw)
		}
		seconds = minutes*60 + secs
	} else {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("parse time %q: %w", raw, err)
		}
		seconds = parsed
	}

	if seconds <= 0 || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return 0, fmt.Errorf("time %q is not a positive finite duration", raw)
	}
	return seconds, nil
}

// FormatSwimTime renders seconds in the canonical clock form.
func FormatSwimTime(seconds float64) string {
	if seconds >= 60 {
		minutes := int(seconds) / 60
		return fmt.Sprintf("%d:%05.2f", minutes, seconds-float64(minutes*60))
	}
	return fmt.Sprintf("%.2f", seconds)
}

// CleanEventName standardizes common variants of event names.
func CleanEventName(name string) string {
	name = recordTextPattern.ReplaceAllString(name, "")
	name = genderTextPattern.ReplaceAllString(name, "")
	name = unitTextPattern.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)

	canonical := []struct {
		match string
		name  string
	}{
		{"50 freestyle", "50 Freestyle"},
		{"50 free", "50 Freestyle"},
		{"100 freestyle", "100 Freestyle"},
		{"100 free", "100 Freestyle"},
		{"200 freestyle relay", "200 Freestyle Relay"},
		{"200 free relay", "200 Freestyle Relay"},
		{"200 freestyle", "200 Freestyle"},
		{"200 free", "200 Freestyle"},
		{"400 freestyle relay", "400 Freestyle Relay"},
		{"400 free relay", "400 Freestyle Relay"},
		{"500 freestyle", "500 Freestyle"},
		{"500 free", "500 Freestyle"},
		{"100 butterfly", "100 Butterfly"},
		{"100 fly", "100 Butterfly"},
		{"100 backstroke", "100 Backstroke"},
		{"100 back", "100 Backstroke"},
		{"100 breaststroke", "100 Breaststroke"},
		{"100 breast", "100 Breaststroke"},
		{"200 individual medley", "200 Individual Medley"},
		{"200 im", "200 Individual Medley"},
		{"200 medley relay", "200 Medley Relay"},
	}

	lower := strings.ToLower(name)
	for _, entry := range canonical {
		if strings.Contains(lower, entry.match) {
			return entry.name
		}
	}
	return name
}

// ParseEventName extracts distance, stroke, and relay flag from an event name.
func ParseEventName(name string) EventDetails {
	details := EventDetails{Stroke: "Unknown"}
	lower := strings.ToLower(name)

	if strings.Contains(lower, "relay") {
		details.IsRelay = true
	}
	if match := digitsPattern.FindString(name); match != "" {
		if distance, err := strconv.Atoi(match); err == nil {
			details.Distance = distance
		}
	}

	switch {
	case strings.Contains(lower, "medley relay"):
		details.Stroke = "Medley Relay"
	case strings.Contains(lower, "individual medley") || strings.HasSuffix(lower, " im"):
		details.Stroke = "Individual Medley"
	case strings.Contains(lower, "free"):
		details.Stroke = "Freestyle"
	case strings.Contains(lower, "back"):
		details.Stroke = "Backstroke"
	case strings.Contains(lower, "breast"):
		details.Stroke = "Breaststroke"
	case strings.Contains(lower, "butterfly") || strings.Contains(lower, "fly"):
		details.Stroke = "Butterfly"
	}

	return details
}

// ParseAge converts an age cell to an integer, tolerating stray text.
func ParseAge(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if match := digitsPattern.FindString(raw); match != "" {
		if age, err := strconv.Atoi(match); err == nil && age > 0 && age < 120 {
			return age
		}
	}
	return 0
}

// ParseMeetDate normalizes the date formats seen across sources to ISO.
func ParseMeetDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	layouts := []string{
		"2006-01-02",
		"01/02/2006",
		"1/2/2006",
		"Jan 2, 2006",
		"January 2, 2006",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return ""
}
