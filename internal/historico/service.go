package historico

import (
	"context"
	"log"
	"time"

	"github.com/lucasmv/licita-radar/internal/classify"
	"github.com/lucasmv/licita-radar/internal/models"
)

// chunkSize bounds how many records are prepared in memory per pass.
// Implementation detail, not an observable contract.
const chunkSize = 50

// ContractStore is the persistence surface the service needs. The insert
// must be atomic per record (insert-if-absent), so concurrent ingestions
// of overlapping batches cannot double-insert. Implemented by db.Store.
type ContractStore interface {
	InsertContractIfAbsent(ctx context.Context, c models.Contract) (bool, error)
	ContractStats(ctx context.Context) (total int, periodStart, periodEnd time.Time, err error)
	ListContractsByArea(ctx context.Context, area string) ([]models.Contract, error)
	UpdateContractArea(ctx context.Context, id, area string) error
}

// Embedder optionally attaches a vector embedding to each contract for
// similarity lookups. Always best-effort.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// IngestStats reports the outcome of one ingestion batch. Failures are
// counted, never raised: already-committed records stay committed.
type IngestStats struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"` // malformed records
	Failed     int `json:"failed"`  // per-record store errors
}

// Stats summarizes the accumulated store.
type Stats struct {
	TotalContracts int        `json:"total_contracts"`
	PeriodStart    *time.Time `json:"period_start,omitempty"`
	PeriodEnd      *time.Time `json:"period_end,omitempty"`
}

// Service merges newly fetched contract records into the accumulating
// historical store, deduplicating by contract ID.
type Service struct {
	store    ContractStore
	embedder Embedder
}

func NewService(store ContractStore, embedder Embedder) *Service {
	return &Service{store: store, embedder: embedder}
}

// Ingest classifies and stores a batch of contracts. A record is added
// only when no stored record shares its ID; duplicates inside the batch
// or across calls are silently dropped. A record whose write fails is
// counted and skipped without aborting the rest. The returned error is
// non-nil only when the context is cancelled mid-batch.
func (s *Service) Ingest(ctx context.Context, records []models.Contract) (IngestStats, error) {
	stats := IngestStats{}

	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}

		for _, record := range records[start:end] {
			if err := ctx.Err(); err != nil {
				return stats, err
			}

			prepared, ok := s.prepare(ctx, record)
			if !ok {
				stats.Skipped++
				continue
			}

			inserted, err := s.store.InsertContractIfAbsent(ctx, prepared)
			switch {
			case err != nil:
				log.Printf("[historico] insert failed for %s: %v", prepared.ID, err)
				stats.Failed++
			case inserted:
				stats.Added++
			default:
				stats.Duplicates++
			}
		}
	}

	return stats, nil
}

// prepare validates identity fields and derives the classification
// fields. Malformed records (no ID, no supplier tax id, negative value)
// are rejected.
func (s *Service) prepare(ctx context.Context, c models.Contract) (models.Contract, bool) {
	if c.ID == "" || c.SupplierTaxID == "" {
		return c, false
	}
	if c.ContractedValue < 0 {
		return c, false
	}

	if c.OperatingArea == "" {
		c.OperatingArea = classify.Area(c.ObjectDescription)
	}
	if len(c.Keywords) == 0 {
		c.Keywords = classify.Keywords(c.ObjectDescription)
	}

	if s.embedder != nil && len(c.Embedding) == 0 {
		vec, err := s.embedder.GenerateEmbedding(ctx, c.ObjectDescription)
		if err != nil {
			log.Printf("[historico] embedding skipped for %s: %v", c.ID, err)
		} else {
			c.Embedding = vec
		}
	}

	return c, true
}

// Stats reflects the stored record set at the time of the call.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	total, start, end, err := s.store.ContractStats(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{TotalContracts: total}
	if total > 0 {
		stats.PeriodStart = &start
		stats.PeriodEnd = &end
	}
	return stats, nil
}

// Recategorize reruns the weighted classification variant over stored
// records still carrying the default area, rewriting only OperatingArea.
// Returns how many records changed.
func (s *Service) Recategorize(ctx context.Context) (int, error) {
	contracts, err := s.store.ListContractsByArea(ctx, classify.DefaultArea)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, c := range contracts {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		area := classify.Reclassify(c.OperatingArea, c.ObjectDescription)
		if area == c.OperatingArea {
			continue
		}
		if err := s.store.UpdateContractArea(ctx, c.ID, area); err != nil {
			log.Printf("[historico] recategorize failed for %s: %v", c.ID, err)
			continue
		}
		updated++
	}
	return updated, nil
}
