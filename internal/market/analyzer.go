package market

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/lucasmv/licita-radar/internal/ai"
	"github.com/lucasmv/licita-radar/internal/classify"
	"github.com/lucasmv/licita-radar/internal/models"
)

// topSupplierCount caps the supplier ranking; concentrationTop is the
// slice of that ranking used for the market-concentration ratio.
const (
	topSupplierCount     = 10
	concentrationTop     = 5
	enrichmentTimeout    = 8 * time.Second
	vectorSearchTimeout  = 5 * time.Second
	vectorCandidateLimit = 20
)

// ContractLister reads stored historical contracts, optionally narrowed
// by state and contracting-organization tax id. Implemented by db.Store.
type ContractLister interface {
	ListContracts(ctx context.Context, state, orgTaxID string) ([]models.Contract, error)
}

// Enricher appends free-text insight to a finished analysis. Strictly
// best-effort: failures are logged and swallowed, never surfaced.
type Enricher interface {
	EnrichAnalysis(ctx context.Context, objectDescription string, analysis models.MarketAnalysis) (insights, recommendations []string, err error)
}

// EmbeddingSearcher ranks stored contracts by embedding distance.
// Implemented by db.Store.
type EmbeddingSearcher interface {
	SimilarContracts(ctx context.Context, embedding []float32, limit int) ([]models.Contract, error)
}

// Embedder turns the query object into a vector for the widening pass.
// Implemented by ai.OllamaClient.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Query narrows the market analysis. Only ObjectDescription is required.
type Query struct {
	ObjectDescription string
	State             string
	OrgTaxID          string
	EstimatedValue    *float64
	// Opportunities, when provided, are counted against the same
	// similarity criteria to size the current open market.
	Opportunities []models.Opportunity
}

// Analyzer derives price-distribution statistics and supplier
// concentration from historical contracts similar to a query object.
type Analyzer struct {
	Source   ContractLister
	Enricher Enricher
	// Search and Embedder, when both set, widen the keyword-matched
	// candidates with vector-similar contracts. Strictly best-effort.
	Search   EmbeddingSearcher
	Embedder Embedder
}

func NewAnalyzer(source ContractLister, enricher Enricher) *Analyzer {
	return &Analyzer{Source: source, Enricher: enricher}
}

// Analyze returns the market picture for the query, or (nil, nil) when no
// stored contract is similar enough — callers treat nil as "insufficient
// data", not as an error.
func (a *Analyzer) Analyze(ctx context.Context, query Query) (*models.MarketAnalysis, error) {
	area := classify.Area(query.ObjectDescription)
	keywords := classify.Keywords(query.ObjectDescription)

	contracts, err := a.Source.ListContracts(ctx, query.State, query.OrgTaxID)
	if err != nil {
		return nil, fmt.Errorf("listing contracts: %w", err)
	}

	matched := make([]models.Contract, 0, len(contracts))
	for _, c := range contracts {
		if similar(area, keywords, c.OperatingArea, c.Keywords) {
			matched = append(matched, c)
		}
	}
	matched = a.widenWithEmbeddings(ctx, query, matched)
	if len(matched) == 0 {
		return nil, nil
	}

	analysis := models.MarketAnalysis{
		AnalyzedContractCount: len(matched),
		AnalysisPeriod:        period(matched),
		PriceRange:            priceRange(matched),
		TopSuppliers:          topSuppliers(matched),
		MarketConcentration:   concentration(matched),
	}

	for _, opp := range query.Opportunities {
		oppArea := opp.OperatingArea
		if oppArea == "" {
			oppArea = classify.Area(opp.ObjectDescription)
		}
		if similar(area, keywords, oppArea, classify.Keywords(opp.ObjectDescription)) {
			analysis.AnalyzedOpportunityCount++
		}
	}

	analysis.Insights, analysis.Recommendations = deterministicFindings(analysis, query)
	a.applyEnrichment(ctx, query.ObjectDescription, &analysis)

	return &analysis, nil
}

// widenWithEmbeddings adds vector-similar contracts the keyword pass
// missed. Contracts outside the query's state or organization filter are
// discarded, and any failure leaves the keyword-matched set untouched.
func (a *Analyzer) widenWithEmbeddings(ctx context.Context, query Query, matched []models.Contract) []models.Contract {
	if a.Search == nil || a.Embedder == nil {
		return matched
	}

	searchCtx, cancel := context.WithTimeout(ctx, vectorSearchTimeout)
	defer cancel()

	vec, err := a.Embedder.GenerateEmbedding(searchCtx, query.ObjectDescription)
	if err != nil {
		log.Printf("[market] vector widening skipped: %v", err)
		return matched
	}
	candidates, err := a.Search.SimilarContracts(searchCtx, vec, vectorCandidateLimit)
	if err != nil {
		log.Printf("[market] vector widening skipped: %v", err)
		return matched
	}

	seen := make(map[string]bool, len(matched))
	for _, c := range matched {
		seen[c.ID] = true
	}
	for _, c := range candidates {
		if seen[c.ID] {
			continue
		}
		if query.State != "" && c.State != query.State {
			continue
		}
		if query.OrgTaxID != "" && c.OrgTaxID != query.OrgTaxID {
			continue
		}
		seen[c.ID] = true
		matched = append(matched, c)
	}
	return matched
}

// similar accepts a contract that shares the query's classified area (when
// the query classified at all) or at least one extracted keyword.
func similar(queryArea string, queryKeywords []string, area string, keywords []string) bool {
	if queryArea != classify.DefaultArea && queryArea == area {
		return true
	}
	return classify.KeywordOverlap(queryKeywords, keywords) >= 1
}

func period(contracts []models.Contract) models.AnalysisPeriod {
	p := models.AnalysisPeriod{Start: contracts[0].PublicationDate, End: contracts[0].PublicationDate}
	for _, c := range contracts[1:] {
		if c.PublicationDate.Before(p.Start) {
			p.Start = c.PublicationDate
		}
		if c.PublicationDate.After(p.End) {
			p.End = c.PublicationDate
		}
	}
	return p
}

func priceRange(contracts []models.Contract) models.PriceRange {
	values := make([]float64, 0, len(contracts))
	sum := 0.0
	for _, c := range contracts {
		values = append(values, c.ContractedValue)
		sum += c.ContractedValue
	}
	sort.Float64s(values)

	pr := models.PriceRange{
		Min:  values[0],
		Max:  values[len(values)-1],
		Mean: sum / float64(len(values)),
	}

	mid := len(values) / 2
	if len(values)%2 == 0 {
		pr.Median = (values[mid-1] + values[mid]) / 2
	} else {
		pr.Median = values[mid]
	}
	return pr
}

func topSuppliers(contracts []models.Contract) []models.SupplierStats {
	byTaxID := map[string]*models.SupplierStats{}
	order := []string{}
	for _, c := range contracts {
		s, ok := byTaxID[c.SupplierTaxID]
		if !ok {
			s = &models.SupplierStats{TaxID: c.SupplierTaxID, Name: c.SupplierName}
			byTaxID[c.SupplierTaxID] = s
			order = append(order, c.SupplierTaxID)
		}
		s.ContractCount++
		s.TotalValue += c.ContractedValue
		s.OperatingAreas = appendUnique(s.OperatingAreas, c.OperatingArea)
		s.States = appendUnique(s.States, c.State)
	}

	ranked := make([]models.SupplierStats, 0, len(order))
	for _, taxID := range order {
		ranked = append(ranked, *byTaxID[taxID])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalValue > ranked[j].TotalValue
	})

	if len(ranked) > topSupplierCount {
		ranked = ranked[:topSupplierCount]
	}
	return ranked
}

// concentration is the share of total contracted value held by the top
// five suppliers, in percent. Zero-value sets yield zero.
func concentration(contracts []models.Contract) float64 {
	suppliers := topSuppliers(contracts)

	total := 0.0
	for _, c := range contracts {
		total += c.ContractedValue
	}
	if total == 0 {
		return 0
	}

	top := 0.0
	for i, s := range suppliers {
		if i >= concentrationTop {
			break
		}
		top += s.TotalValue
	}
	return 100 * top / total
}

func deterministicFindings(analysis models.MarketAnalysis, query Query) (insights, recommendations []string) {
	insights = append(insights, fmt.Sprintf(
		"Foram analisados %d contratos similares entre %s e %s.",
		analysis.AnalyzedContractCount,
		analysis.AnalysisPeriod.Start.Format("01/2006"),
		analysis.AnalysisPeriod.End.Format("01/2006")))

	switch {
	case analysis.MarketConcentration >= 80:
		insights = append(insights, "Mercado altamente concentrado: os cinco maiores fornecedores respondem pela quase totalidade do valor contratado.")
		recommendations = append(recommendations, "Avalie consórcios ou subcontratação para disputar com os fornecedores dominantes.")
	case analysis.MarketConcentration >= 50:
		insights = append(insights, fmt.Sprintf("Os cinco maiores fornecedores concentram %.0f%% do valor contratado.", analysis.MarketConcentration))
	default:
		insights = append(insights, "Mercado pulverizado, sem fornecedor dominante no período analisado.")
		recommendations = append(recommendations, "Mercado aberto a novos entrantes; preços competitivos tendem a decidir a disputa.")
	}

	if query.EstimatedValue != nil {
		value := *query.EstimatedValue
		switch {
		case value > analysis.PriceRange.Median*1.5 && analysis.PriceRange.Median > 0:
			insights = append(insights, "O valor estimado está bem acima da mediana histórica para objetos similares.")
			recommendations = append(recommendations, "Há margem para proposta agressiva abaixo do valor estimado.")
		case value < analysis.PriceRange.Median*0.5:
			insights = append(insights, "O valor estimado está abaixo da metade da mediana histórica; verifique a exequibilidade.")
		}
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, fmt.Sprintf(
			"Referência de preço: mediana histórica de R$ %.2f para contratos similares.", analysis.PriceRange.Median))
	}
	return insights, recommendations
}

// applyEnrichment merges LLM-generated findings into the analysis. Any
// failure (breaker open, timeout, malformed response) leaves the
// deterministic result untouched.
func (a *Analyzer) applyEnrichment(ctx context.Context, objectDescription string, analysis *models.MarketAnalysis) {
	if a.Enricher == nil {
		return
	}

	enrichCtx, cancel := context.WithTimeout(ctx, enrichmentTimeout)
	defer cancel()

	insights, recommendations, err := a.Enricher.EnrichAnalysis(enrichCtx, objectDescription, *analysis)
	if err != nil {
		if ai.IsCircuitOpen(err) {
			log.Printf("[market] enrichment paused, breaker open")
		} else {
			log.Printf("[market] enrichment skipped: %v", err)
		}
		return
	}
	analysis.Insights = append(analysis.Insights, insights...)
	analysis.Recommendations = append(analysis.Recommendations, recommendations...)
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
