// Prints the daily opportunity digest for a company profile.
// Usage:
//
//	digest -profile profile.json [-days 2] [-threshold 60] [-limit 10]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/lucasmv/licita-radar/internal/ingest"
	"github.com/lucasmv/licita-radar/internal/match"
	"github.com/lucasmv/licita-radar/internal/models"
)

func main() {
	profilePath := flag.String("profile", "profile.json", "company profile JSON file")
	days := flag.Int("days", 2, "how many days of publications to consider")
	threshold := flag.Int("threshold", match.DefaultThreshold, "minimum match percentage")
	limit := flag.Int("limit", match.DefaultLimit, "maximum entries in the digest")
	uf := flag.String("uf", "", "restrict fetch to one state")
	flag.Parse()

	data, err := os.ReadFile(*profilePath)
	if err != nil {
		log.Fatalf("Failed to read profile: %v", err)
	}
	var profile models.CompanyProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		log.Fatalf("Invalid profile JSON: %v", err)
	}

	registry, err := ingest.LoadRegistry(os.Getenv("SOURCES_FILE"))
	if err != nil {
		log.Fatalf("Failed to load source registry: %v", err)
	}
	src, err := registry.Lookup("pncp_editais")
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fetcher := ingest.NewRateLimitedFetcher(src.Fetch)
	source := ingest.NewPNCPSource(fetcher, src.BaseURL)

	to := time.Now()
	from := to.AddDate(0, 0, -*days)
	batch, err := source.FetchEditais(ctx, from, to, *uf)
	if err != nil {
		log.Printf("Fetch finished with error: %v", err)
	}
	if batch == nil || len(batch.Opportunities) == 0 {
		log.Fatal("No notices published in the window")
	}
	log.Printf("Considering %d notices (%d skipped)", len(batch.Opportunities), batch.Skipped)

	ranked := match.Digest(profile, batch.Opportunities, *threshold, *limit)
	if len(ranked) == 0 {
		log.Printf("No notice scored %d%% or more for %s", *threshold, profile.Name)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Match", "UF", "Modalidade", "Objeto", "Valor Estimado"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, r := range ranked {
		value := "-"
		if r.Opportunity.EstimatedValue != nil {
			value = fmt.Sprintf("R$ %.2f", *r.Opportunity.EstimatedValue)
		}
		t.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("%d%%", r.Match.Percentage),
			r.Opportunity.State,
			models.ModalityName(r.Opportunity.Modality),
			r.Opportunity.ObjectDescription,
			value,
		})
	}
	t.Render()
}
