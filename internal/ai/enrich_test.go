package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lucasmv/licita-radar/internal/models"
)

func ollamaStub(t *testing.T, response string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"response": response,
			"done":     true,
		})
	}))
}

func sampleAnalysis() models.MarketAnalysis {
	return models.MarketAnalysis{
		AnalyzedContractCount: 12,
		PriceRange:            models.PriceRange{Mean: 100000, Median: 90000},
		MarketConcentration:   64.5,
		TopSuppliers: []models.SupplierStats{
			{Name: "Fornecedor A", TotalValue: 500000, ContractCount: 4},
		},
	}
}

func TestEnrichAnalysis(t *testing.T) {
	server := ollamaStub(t, `{"insights":["mercado concentrado"],"recommendations":["revisar preço"]}`, http.StatusOK)
	defer server.Close()

	enricher := NewMarketEnricher(NewOllamaClient(server.URL, "", ""))

	insights, recommendations, err := enricher.EnrichAnalysis(context.Background(), "serviços de limpeza", sampleAnalysis())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(insights) != 1 || insights[0] != "mercado concentrado" {
		t.Errorf("wrong insights: %v", insights)
	}
	if len(recommendations) != 1 {
		t.Errorf("wrong recommendations: %v", recommendations)
	}
}

func TestEnrichAnalysis_InvalidJSON(t *testing.T) {
	server := ollamaStub(t, `não é json`, http.StatusOK)
	defer server.Close()

	enricher := NewMarketEnricher(NewOllamaClient(server.URL, "", ""))

	if _, _, err := enricher.EnrichAnalysis(context.Background(), "obra", sampleAnalysis()); err == nil {
		t.Fatal("expected error for non-JSON response")
	}
}

func TestEnrichAnalysis_BreakerOpensAfterFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	enricher := NewMarketEnricher(NewOllamaClient(server.URL, "", ""))

	for i := 0; i < 3; i++ {
		if _, _, err := enricher.EnrichAnalysis(context.Background(), "obra", sampleAnalysis()); err == nil {
			t.Fatalf("call %d should fail", i)
		}
	}

	_, _, err := enricher.EnrichAnalysis(context.Background(), "obra", sampleAnalysis())
	if err == nil {
		t.Fatal("expected error once breaker is open")
	}
	if !IsCircuitOpen(err) && !strings.Contains(err.Error(), "open") {
		t.Errorf("expected open-circuit error, got %v", err)
	}
}

func TestBuildEnrichmentPrompt(t *testing.T) {
	prompt := buildEnrichmentPrompt("serviços de vigilância", sampleAnalysis())

	for _, token := range []string{"serviços de vigilância", "Contratos analisados: 12", "64.5%", "Fornecedor A", "insights"} {
		if !strings.Contains(prompt, token) {
			t.Errorf("prompt missing %q", token)
		}
	}
}
