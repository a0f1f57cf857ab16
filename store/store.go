// Package store persists normalized swim records. SQLite is the primary
// sink; CSV and JSON exports cover downstream tooling that reads files.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/swimdata/go-scrape-swim/config"
	"github.com/swimdata/go-scrape-swim/models"
)

// Store is a sink for record batches. Save reports how many records were
// newly persisted, which for deduplicating sinks can be fewer than offered.
type Store interface {
	Save(ctx context.Context, records []*models.Record) (int, error)
	Close() error
}

// Open builds the sink named by cfg.OutputFormat.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.OutputFormat {
	case "sqlite":
		return NewSQLiteStore(cfg.OutputFile)
	case "csv":
		return NewCSVStore(cfg.OutputFile)
	case "json":
		return NewJSONStore(cfg.OutputFile)
	case "dual":
		base := strings.TrimSuffix(cfg.OutputFile, filepath.Ext(cfg.OutputFile))
		return NewDualStore(base+".csv", base+".json")
	default:
		return nil, fmt.Errorf("unknown output format %q", cfg.OutputFormat)
	}
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}
