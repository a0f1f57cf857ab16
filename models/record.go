// Package models defines data structures shared across the scraper.
package models

import "time"

// Field keys adapters are expected to use when populating a RawRow.
const (
	FieldName   = "name"
	FieldAge    = "age"
	FieldTeam   = "team"
	FieldEvent  = "event"
	FieldTime   = "time"
	FieldMeet   = "meet"
	FieldDate   = "date"
	FieldCourse = "course"
)

// RawRow is one unvalidated result row as extracted by a source adapter.
type RawRow struct {
	Fields    map[string]string `json:"fields"`
	SourceURL string            `json:"source_url"`
}

// Get returns the named field or an empty string.
func (r RawRow) Get(key string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[key]
}

// Record is the validated, source-independent swim result.
type Record struct {
	SwimmerName   string    `csv:"swimmer_name" json:"swimmer_name"`
	Age           int       `csv:"age" json:"age"`
	Team          string    `csv:"team" json:"team"`
	EventName     string    `csv:"event" json:"event"`
	Distance      int       `csv:"distance" json:"distance"`
	Stroke        string    `csv:"stroke" json:"stroke"`
	Course        string    `csv:"course" json:"course"`
	IsRelay       bool      `csv:"is_relay" json:"is_relay"`
	TimeSeconds   float64   `csv:"time_seconds" json:"time_seconds"`
	TimeFormatted string    `csv:"time_formatted" json:"time_formatted"`
	MeetName      string    `csv:"meet_name" json:"meet_name"`
	MeetDate      string    `csv:"meet_date" json:"meet_date"`
	Source        string    `csv:"source" json:"source"`
	SourceURL     string    `csv:"source_url" json:"source_url"`
	ScrapedAt     time.Time `csv:"scraped_at" json:"scraped_at"`
}

// Target is one logical search within a source run, e.g. one state.
type Target struct {
	Name         string
	Params       map[string]string
	MaxPages     int
	RecordTarget int
}

// TargetResult summarises the outcome of one target's pagination walk.
type TargetResult struct {
	Target  string
	Records int
	Pages   int
	State   string
	Err     string
}

// Summary is the overall result of one orchestrator run.
type Summary struct {
	Source           string
	StartTime        time.Time
	EndTime          time.Time
	TargetsAttempted int
	TargetsSucceeded int
	ErrorCount       int
	TotalRecords     int
	Targets          []TargetResult
}

// RecordsByTarget returns per-target record counts keyed by target name.
func (s *Summary) RecordsByTarget() map[string]int {
	out := make(map[string]int, len(s.Targets))
	for _, t := range s.Targets {
		out[t.Target] = t.Records
	}
	return out
}
