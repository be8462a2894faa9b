package ingest

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/lucasmv/licita-radar/internal/classify"
	"github.com/lucasmv/licita-radar/internal/historico"
	"github.com/lucasmv/licita-radar/internal/models"
)

// NoticeSink receives the open notices a source run produced.
type NoticeSink interface {
	StoreNotices(sourceID string, notices []models.Opportunity)
}

// ContractSink feeds signed contracts into the historical store.
type ContractSink interface {
	Ingest(ctx context.Context, contracts []models.Contract) (historico.IngestStats, error)
}

// RunRecorder keeps ingestion bookkeeping.
type RunRecorder interface {
	CreateIngestRun(ctx context.Context, sourceID string) (uuid.UUID, error)
	FinishIngestRun(ctx context.Context, runID uuid.UUID, status string, found, added, duplicates, errCount int, duration time.Duration) error
}

// Pipeline drives one source end to end: fetch, parse, classify, sink.
type Pipeline struct {
	Registry  *Registry
	Fetcher   Fetcher
	Notices   NoticeSink
	Contracts ContractSink
	Runs      RunRecorder
	// HTMLFetcher overrides the fetcher for html_portal sources. When
	// nil, portals get a CollyFetcher.
	HTMLFetcher Fetcher
	// Window is how far back incremental runs look. Default 24h.
	Window time.Duration
}

func NewPipeline(registry *Registry, fetcher Fetcher, notices NoticeSink, contracts ContractSink, runs RunRecorder) *Pipeline {
	if fetcher == nil {
		fetcher = NewRateLimitedFetcher(FetchConfig{
			TimeoutSeconds: 30,
			MaxRetries:     3,
			RateLimitRPS:   2.0,
			AcceptLanguage: "pt-BR,pt;q=0.9",
		})
	}
	return &Pipeline{
		Registry:  registry,
		Fetcher:   fetcher,
		Notices:   notices,
		Contracts: contracts,
		Runs:      runs,
		Window:    24 * time.Hour,
	}
}

// RunSource executes one ingestion pass for the source with the given ID.
func (p *Pipeline) RunSource(ctx context.Context, sourceID string) (*SourceStats, error) {
	src, err := p.Registry.Lookup(sourceID)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	var runID uuid.UUID
	if p.Runs != nil {
		if runID, err = p.Runs.CreateIngestRun(ctx, sourceID); err != nil {
			log.Printf("ingest: could not record run for %s: %v", sourceID, err)
		}
	}

	stats, runErr := p.runStrategy(ctx, src)
	if stats == nil {
		stats = &SourceStats{SourceID: sourceID}
	}
	stats.SourceID = sourceID
	stats.Duration = time.Since(started)
	stats.DurationHuman = stats.Duration.Round(time.Millisecond).String()

	if p.Runs != nil && runID != uuid.Nil {
		status := "completed"
		if runErr != nil {
			status = "failed"
		}
		if err := p.Runs.FinishIngestRun(ctx, runID, status, stats.Found, stats.Added, stats.Duplicates, stats.Errors, stats.Duration); err != nil {
			log.Printf("ingest: could not close run %s: %v", runID, err)
		}
	}

	return stats, runErr
}

func (p *Pipeline) runStrategy(ctx context.Context, src SourceConfig) (*SourceStats, error) {
	window := p.Window
	if window <= 0 {
		window = 24 * time.Hour
	}
	to := time.Now()
	from := to.Add(-window)

	// Per-source fetch settings from the registry override the domain
	// defaults, so one slow portal does not dictate the global pace.
	if rl, ok := p.Fetcher.(*RateLimitedFetcher); ok && src.Fetch != (FetchConfig{}) {
		if domain, err := getDomain(src.BaseURL); err == nil && domain != "" {
			rl.SetDomainConfig(domain, src.Fetch)
		}
	}

	switch src.Strategy {
	case "api_pncp":
		source := NewPNCPSource(p.Fetcher, src.BaseURL)
		stats := &SourceStats{}
		ufs := src.States
		if len(ufs) == 0 {
			ufs = []string{""}
		}
		for _, uf := range ufs {
			batch, err := source.FetchEditais(ctx, from, to, uf)
			if batch != nil {
				stats.Found += len(batch.Opportunities)
				stats.Skipped += batch.Skipped
				if len(batch.Opportunities) > 0 {
					stats.Errors += enrichNotices(ctx, p.Fetcher, batch.Opportunities)
					if p.Notices != nil {
						p.Notices.StoreNotices(src.ID, batch.Opportunities)
						stats.Added += len(batch.Opportunities)
					}
				}
			}
			if err != nil {
				stats.Errors++
				return stats, err
			}
		}
		return stats, nil

	case "api_pncp_contratos":
		source := NewPNCPSource(p.Fetcher, src.BaseURL)
		batch, err := source.FetchContratos(ctx, from, to)
		stats := &SourceStats{}
		if batch != nil {
			stats.Found = len(batch.Contracts)
			stats.Skipped = batch.Skipped
		}
		if err != nil {
			stats.Errors++
			return stats, err
		}
		if p.Contracts != nil && len(batch.Contracts) > 0 {
			ingest, err := p.Contracts.Ingest(ctx, batch.Contracts)
			stats.Added = ingest.Added
			stats.Duplicates = ingest.Duplicates
			stats.Skipped += ingest.Skipped
			stats.Errors += ingest.Failed
			if err != nil {
				return stats, err
			}
		}
		return stats, nil

	case "html_portal":
		return p.runHTMLPortal(ctx, src)

	default:
		return nil, fmt.Errorf("unknown strategy %q for source %s", src.Strategy, src.ID)
	}
}

// runHTMLPortal scrapes a state portal listing page with the configured
// CSS selectors. Detail pages are not followed; listings already carry
// everything the digest needs.
func (p *Pipeline) runHTMLPortal(ctx context.Context, src SourceConfig) (*SourceStats, error) {
	stats := &SourceStats{}
	fetcher := p.HTMLFetcher
	if fetcher == nil {
		if c, ok := p.Fetcher.(*CollyFetcher); ok {
			fetcher = c
		} else {
			fetcher = NewCollyFetcher()
		}
	}

	var notices []models.Opportunity
	for _, res := range FetchInWaves(ctx, fetcher, src.Seeds) {
		if res.Err != nil {
			stats.Errors++
			log.Printf("ingest: portal fetch failed for %s: %v", res.URL, res.Err)
			continue
		}

		pageNotices, skipped, err := parsePortalListing(res.Doc.Body, src, res.URL)
		res.Doc.Body.Close()
		if err != nil {
			stats.Errors++
			continue
		}
		stats.Skipped += skipped
		notices = append(notices, pageNotices...)
	}

	stats.Found = len(notices)
	if len(notices) > 0 {
		stats.Errors += enrichNotices(ctx, fetcher, notices)
		if p.Notices != nil {
			p.Notices.StoreNotices(src.ID, notices)
			stats.Added = len(notices)
		}
	}
	return stats, nil
}

func parsePortalListing(r io.Reader, src SourceConfig, pageURL string) ([]models.Opportunity, int, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, 0, fmt.Errorf("parse listing: %w", err)
	}

	var notices []models.Opportunity
	skipped := 0
	state := ""
	if len(src.States) > 0 {
		state = src.States[0]
	}

	doc.Find(src.Selectors.Container).Each(func(i int, sel *goquery.Selection) {
		title := cleanText(sel.Find(src.Selectors.Title).Text())
		if title == "" {
			skipped++
			return
		}

		link, _ := sel.Find(src.Selectors.Link).Attr("href")
		if link == "" {
			link = pageURL
		}

		opp := models.Opportunity{
			ID:                fmt.Sprintf("%s-%s", src.ID, shortHash(link+title)),
			Org:               cleanText(sel.Find(src.Selectors.Org).Text()),
			State:             state,
			ObjectDescription: SanitizeDescription(title),
			Status:            "aberta",
			DocumentLink:      link,
			Source:            src.ID,
		}

		if rawDate := cleanText(sel.Find(src.Selectors.Date).Text()); rawDate != "" {
			if t, err := parseBRDate(rawDate); err == nil {
				opp.PublicationDate = t
			}
		}

		result := classify.Classify(opp.ObjectDescription)
		opp.OperatingArea = result.Area
		opp.Categories = result.Tags

		notices = append(notices, opp)
	})

	return notices, skipped, nil
}

func shortHash(s string) string {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return fmt.Sprintf("%08x", h)
}

// enrichNotices downloads the linked documents of notices that are
// missing an estimated value or opening date, in bounded waves, and
// fills in whatever facts the documents carry. Failures are logged and
// counted, never fatal: a notice without a readable edital still goes
// to the sink as-is.
func enrichNotices(ctx context.Context, fetcher Fetcher, notices []models.Opportunity) int {
	var urls []string
	var idx []int
	for i := range notices {
		opp := &notices[i]
		if opp.DocumentLink == "" {
			continue
		}
		if opp.EstimatedValue != nil && opp.OpeningDate != nil {
			continue
		}
		urls = append(urls, opp.DocumentLink)
		idx = append(idx, i)
	}
	if len(urls) == 0 {
		return 0
	}

	errCount := 0
	for j, res := range FetchInWaves(ctx, fetcher, urls) {
		if res.Err != nil {
			errCount++
			log.Printf("ingest: document fetch failed for %s: %v", res.URL, res.Err)
			continue
		}
		if err := applyDocumentFacts(&notices[idx[j]], res.Doc); err != nil {
			errCount++
			log.Printf("ingest: document enrichment failed for %s: %v", res.URL, err)
		}
	}
	return errCount
}

// applyDocumentFacts reads a fetched edital document and, when it is a
// PDF, fills in the estimated value and opening date the listing did
// not carry.
func applyDocumentFacts(opp *models.Opportunity, doc *FetchedDocument) error {
	defer doc.Body.Close()

	body, err := io.ReadAll(io.LimitReader(doc.Body, 20*1024*1024))
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	if !IsPDF(doc.ContentType, body) {
		if strings.Contains(strings.ToLower(doc.ContentType), "text/html") {
			text := HTMLToText(string(body))
			if opp.ObjectDescription == "" {
				opp.ObjectDescription = TruncateText(text, 2000)
			}
			mergeDocumentTags(opp, text)
		}
		return nil
	}

	facts, err := ExtractEditalFacts(body)
	if err != nil {
		return fmt.Errorf("extract pdf facts: %w", err)
	}

	if opp.EstimatedValue == nil && facts.EstimatedValue != nil {
		opp.EstimatedValue = facts.EstimatedValue
	}
	if opp.OpeningDate == nil && facts.OpeningDate != nil {
		opp.OpeningDate = facts.OpeningDate
	}
	mergeDocumentTags(opp, facts.Text)
	return nil
}

// mergeDocumentTags classifies the full document text, which carries
// vocabulary the listing title usually lacks, and folds any new tags
// into the notice.
func mergeDocumentTags(opp *models.Opportunity, text string) {
	if text == "" {
		return
	}
	result := classify.Classify(TruncateText(text, 4000))
	opp.Categories = mergeUniqueFold(opp.Categories, result.Tags)
}
