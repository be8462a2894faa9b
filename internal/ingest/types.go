package ingest

import (
	"context"
	"io"
	"time"

	"github.com/lucasmv/licita-radar/internal/models"
)

// FetchedDocument represents the raw result of a fetch operation.
type FetchedDocument struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
	FetchedAt   time.Time
	Headers     map[string][]string
}

// Fetcher retrieves raw content from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedDocument, error)
}

// Batch bundles everything one source run produced. Procurement feeds
// mix open notices and signed contracts, so both come back together.
type Batch struct {
	Opportunities []models.Opportunity
	Contracts     []models.Contract
	Skipped       int
}

// SourceStats summarizes one ingestion run for a source.
type SourceStats struct {
	SourceID      string        `json:"source_id"`
	Found         int           `json:"found"`
	Added         int           `json:"added"`
	Duplicates    int           `json:"duplicates"`
	Skipped       int           `json:"skipped"`
	Errors        int           `json:"errors"`
	Duration      time.Duration `json:"-"`
	DurationHuman string        `json:"duration"`
}
