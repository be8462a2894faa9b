package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lucasmv/licita-radar/internal/models"
	"github.com/sony/gobreaker/v2"
)

// enrichment is the JSON shape the model is asked to produce.
type enrichment struct {
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
}

// MarketEnricher asks a local model for qualitative reads on top of the
// deterministic market numbers. A circuit breaker keeps a flaky Ollama
// from stalling every analysis request.
type MarketEnricher struct {
	client  *OllamaClient
	breaker *gobreaker.CircuitBreaker[string]
}

func NewMarketEnricher(client *OllamaClient) *MarketEnricher {
	settings := gobreaker.Settings{
		Name:        "market-enrichment",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("ai: breaker %s %s -> %s", name, from.String(), to.String())
		},
	}

	return &MarketEnricher{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

// EnrichAnalysis implements market.Enricher.
func (e *MarketEnricher) EnrichAnalysis(ctx context.Context, objectDescription string, analysis models.MarketAnalysis) ([]string, []string, error) {
	prompt := buildEnrichmentPrompt(objectDescription, analysis)

	raw, err := e.breaker.Execute(func() (string, error) {
		return e.client.GenerateCompletion(ctx, prompt, true)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("enrichment call failed: %w", err)
	}

	var parsed enrichment
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, nil, fmt.Errorf("enrichment response is not valid JSON: %w", err)
	}

	return parsed.Insights, parsed.Recommendations, nil
}

func buildEnrichmentPrompt(objectDescription string, analysis models.MarketAnalysis) string {
	var b strings.Builder

	b.WriteString("Você é um analista de licitações públicas brasileiras.\n")
	b.WriteString("Com base nos números abaixo, escreva observações e recomendações curtas para uma empresa que pretende concorrer.\n\n")

	fmt.Fprintf(&b, "Objeto: %s\n", objectDescription)
	fmt.Fprintf(&b, "Contratos analisados: %d\n", analysis.AnalyzedContractCount)
	fmt.Fprintf(&b, "Valor médio: R$ %.2f\n", analysis.PriceRange.Mean)
	fmt.Fprintf(&b, "Valor mediano: R$ %.2f\n", analysis.PriceRange.Median)
	fmt.Fprintf(&b, "Concentração dos 5 maiores fornecedores: %.1f%%\n", analysis.MarketConcentration)

	for i, s := range analysis.TopSuppliers {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "Fornecedor %d: %s (R$ %.2f em %d contratos)\n", i+1, s.Name, s.TotalValue, s.ContractCount)
	}

	b.WriteString("\nResponda apenas com JSON no formato {\"insights\": [...], \"recommendations\": [...]}.\n")
	b.WriteString("No máximo 3 itens em cada lista, em português.\n")

	return b.String()
}

// IsCircuitOpen reports whether the error came from an open breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
