package scraper

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/swimdata/go-scrape-swim/models"
	"github.com/swimdata/go-scrape-swim/parser"
)

// Normalize validates one raw row and converts it into a record. A row
// needs a swimmer name and a parseable time; everything else degrades to
// an empty or zero value rather than failing the row.
func Normalize(row models.RawRow, source string) (*models.Record, error) {
	name := strings.TrimSpace(row.Get(models.FieldName))
	if name == "" {
		return nil, fmt.Errorf("missing swimmer name")
	}

	seconds, err := parser.ParseSwimTime(row.Get(models.FieldTime))
	if err != nil {
		return nil, fmt.Errorf("bad time: %w", err)
	}

	event := parser.CleanEventName(row.Get(models.FieldEvent))
	details := parser.ParseEventName(event)

	return &models.Record{
		SwimmerName:   name,
		Age:           parser.ParseAge(row.Get(models.FieldAge)),
		Team:          strings.TrimSpace(row.Get(models.FieldTeam)),
		EventName:     event,
		Distance:      details.Distance,
		Stroke:        details.Stroke,
		Course:        strings.TrimSpace(row.Get(models.FieldCourse)),
		IsRelay:       details.IsRelay,
		TimeSeconds:   seconds,
		TimeFormatted: parser.FormatSwimTime(seconds),
		MeetName:      strings.TrimSpace(row.Get(models.FieldMeet)),
		MeetDate:      parser.ParseMeetDate(row.Get(models.FieldDate)),
		Source:        source,
		SourceURL:     row.SourceURL,
		ScrapedAt:     time.Now().UTC(),
	}, nil
}

// NormalizeAll converts a row batch, skipping rows that fail validation.
// Skips are logged and counted; a bad row never aborts the batch.
func NormalizeAll(rows []models.RawRow, source string, metrics *Metrics) []*models.Record {
	records := make([]*models.Record, 0, len(rows))
	for i, row := range rows {
		record, err := Normalize(row, source)
		if err != nil {
			slog.Warn("skipping row",
				slog.Int("row", i),
				slog.String("source", source),
				slog.String("reason", err.Error()))
			metrics.IncSkipped(skipReason(err))
			continue
		}
		metrics.IncNormalized()
		records = append(records, record)
	}
	return records
}

func skipReason(err error) string {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "bad time"):
		return "bad_time"
	case strings.HasPrefix(msg, "missing swimmer name"):
		return "missing_name"
	default:
		return "other"
	}
}
