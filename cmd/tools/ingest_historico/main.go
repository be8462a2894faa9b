// Backfills the historical contract base from the PNCP contracts API.
// Usage:
//
//	ingest_historico -days 30
//	ingest_historico -from 2023-01-01 -to 2023-06-30
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lucasmv/licita-radar/internal/ai"
	"github.com/lucasmv/licita-radar/internal/db"
	"github.com/lucasmv/licita-radar/internal/historico"
	"github.com/lucasmv/licita-radar/internal/ingest"
)

func main() {
	days := flag.Int("days", 30, "how many days back to fetch")
	fromStr := flag.String("from", "", "window start (YYYY-MM-DD), overrides -days")
	toStr := flag.String("to", "", "window end (YYYY-MM-DD), default today")
	sourceID := flag.String("source", "pncp_contratos", "registry source to run")
	flag.Parse()

	to := time.Now()
	from := to.AddDate(0, 0, -*days)
	if *fromStr != "" {
		t, err := time.Parse("2006-01-02", *fromStr)
		if err != nil {
			log.Fatalf("invalid -from: %v", err)
		}
		from = t
	}
	if *toStr != "" {
		t, err := time.Parse("2006-01-02", *toStr)
		if err != nil {
			log.Fatalf("invalid -to: %v", err)
		}
		to = t
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	store := db.NewStore(pool)
	aiClient := ai.NewOllamaClient(os.Getenv("OLLAMA_HOST"), "", "")
	service := historico.NewService(store, aiClient)

	registry, err := ingest.LoadRegistry(os.Getenv("SOURCES_FILE"))
	if err != nil {
		log.Fatalf("Failed to load source registry: %v", err)
	}

	pipeline := ingest.NewPipeline(registry, nil, nil, service, store)
	pipeline.Window = to.Sub(from)

	log.Printf("Ingesting %s from %s to %s...", *sourceID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	stats, err := pipeline.RunSource(ctx, *sourceID)
	if err != nil {
		log.Printf("Run finished with error: %v", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Source", "Found", "Added", "Duplicates", "Skipped", "Errors", "Duration"})
	if stats != nil {
		t.AppendRow(table.Row{stats.SourceID, stats.Found, stats.Added, stats.Duplicates, stats.Skipped, stats.Errors, stats.DurationHuman})
	}
	t.Render()

	base, err := service.Stats(ctx)
	if err != nil {
		log.Fatalf("Failed to read base stats: %v", err)
	}
	log.Printf("Historical base now holds %d contracts", base.TotalContracts)
	if base.PeriodStart != nil && base.PeriodEnd != nil {
		log.Printf("Coverage: %s to %s", base.PeriodStart.Format("2006-01-02"), base.PeriodEnd.Format("2006-01-02"))
	}
}
