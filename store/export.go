package store

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/swimdata/go-scrape-swim/models"
)

var csvHeader = []string{
	"swimmer_name", "age", "team", "event", "distance", "stroke", "course",
	"is_relay", "time_seconds", "time_formatted", "meet_name", "meet_date",
	"source", "source_url", "scraped_at",
}

// CSVStore writes records to a CSV file.
type CSVStore struct {
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVStore creates the output file and writes the header row.
func NewCSVStore(filename string) (*CSVStore, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVStore{file: f, writer: writer}, nil
}

// Save appends records to the CSV output.
func (cs *CSVStore) Save(ctx context.Context, records []*models.Record) (int, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for _, record := range records {
		row := []string{
			record.SwimmerName,
			strconv.Itoa(record.Age),
			record.Team,
			record.EventName,
			strconv.Itoa(record.Distance),
			record.Stroke,
			record.Course,
			strconv.FormatBool(record.IsRelay),
			strconv.FormatFloat(record.TimeSeconds, 'f', 2, 64),
			record.TimeFormatted,
			record.MeetName,
			record.MeetDate,
			record.Source,
			record.SourceURL,
			record.ScrapedAt.UTC().Format(time.RFC3339),
		}
		if err := cs.writer.Write(row); err != nil {
			return 0, fmt.Errorf("write csv record: %w", err)
		}
	}
	cs.writer.Flush()
	if err := cs.writer.Error(); err != nil {
		return 0, fmt.Errorf("flush csv records: %w", err)
	}
	return len(records), nil
}

// Close flushes and closes the file handle.
func (cs *CSVStore) Close() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.writer.Flush()
	if err := cs.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cs.file.Close()
}

// JSONStore writes newline-delimited JSON records.
type JSONStore struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONStore creates the output file.
func NewJSONStore(filename string) (*JSONStore, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	writer := bufio.NewWriter(f)
	return &JSONStore{
		file:    f,
		writer:  writer,
		encoder: json.NewEncoder(writer),
	}, nil
}

// Save appends records as JSON lines.
func (js *JSONStore) Save(ctx context.Context, records []*models.Record) (int, error) {
	js.mu.Lock()
	defer js.mu.Unlock()

	for _, record := range records {
		if err := js.encoder.Encode(record); err != nil {
			return 0, fmt.Errorf("encode json record: %w", err)
		}
	}
	if err := js.writer.Flush(); err != nil {
		return 0, fmt.Errorf("flush json records: %w", err)
	}
	return len(records), nil
}

// Close flushes and closes the file handle.
func (js *JSONStore) Close() error {
	js.mu.Lock()
	defer js.mu.Unlock()

	if err := js.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return js.file.Close()
}

// DualStore writes each batch to CSV and JSON outputs.
type DualStore struct {
	csv  *CSVStore
	json *JSONStore
	mu   sync.Mutex
}

// NewDualStore creates both output files.
func NewDualStore(csvFilename, jsonFilename string) (*DualStore, error) {
	csvStore, err := NewCSVStore(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("create csv store: %w", err)
	}
	jsonStore, err := NewJSONStore(jsonFilename)
	if err != nil {
		csvStore.Close()
		return nil, fmt.Errorf("create json store: %w", err)
	}
	return &DualStore{csv: csvStore, json: jsonStore}, nil
}

// Save writes the batch to both outputs.
func (ds *DualStore) Save(ctx context.Context, records []*models.Record) (int, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if _, err := ds.csv.Save(ctx, records); err != nil {
		return 0, fmt.Errorf("csv save: %w", err)
	}
	if _, err := ds.json.Save(ctx, records); err != nil {
		return 0, fmt.Errorf("json save: %w", err)
	}
	return len(records), nil
}

// Close closes both outputs, reporting the first failure.
func (ds *DualStore) Close() error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	csvErr := ds.csv.Close()
	jsonErr := ds.json.Close()
	if csvErr != nil {
		return fmt.Errorf("csv close: %w", csvErr)
	}
	if jsonErr != nil {
		return fmt.Errorf("json close: %w", jsonErr)
	}
	return nil
}
