package ingest

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"
)

// stubFetcher serves canned bodies keyed by nothing: every URL gets the
// next body in the queue.
type stubFetcher struct {
	bodies []string
	calls  int
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (*FetchedDocument, error) {
	body := "{}"
	if f.calls < len(f.bodies) {
		body = f.bodies[f.calls]
	}
	f.calls++
	return &FetchedDocument{
		URL:         url,
		StatusCode:  200,
		ContentType: "application/json",
		Body:        io.NopCloser(bytes.NewReader([]byte(body))),
		FetchedAt:   time.Now(),
	}, nil
}

const editaisPage = `{
	"data": [
		{
			"numeroControlePNCP": "11222333000144-1-000042/2024",
			"orgaoEntidade": {"cnpj": "11222333000144", "razaoSocial": "Prefeitura de Campinas"},
			"unidadeOrgao": {"ufSigla": "SP", "municipioNome": "Campinas"},
			"objetoCompra": "Contratação de empresa para desenvolvimento de sistema de gestão escolar",
			"modalidadeId": 6,
			"situacaoCompraNome": "Divulgada no PNCP",
			"dataPublicacaoPncp": "2024-03-10T09:00:00",
			"dataAberturaProposta": "2024-03-25T10:00:00",
			"valorTotalEstimado": 350000.00,
			"linkSistemaOrigem": "https://portal.example/editais/42"
		},
		{
			"numeroControlePNCP": "",
			"objetoCompra": "registro sem numero de controle"
		},
		{
			"numeroControlePNCP": "99888777000166-1-000007/2024",
			"orgaoEntidade": {"cnpj": "99888777000166", "razaoSocial": "Governo do Estado"},
			"unidadeOrgao": {"ufSigla": "RJ", "municipioNome": "Rio de Janeiro"},
			"objetoCompra": "   ",
			"modalidadeId": 8
		}
	],
	"totalRegistros": 3,
	"totalPaginas": 1,
	"numeroPagina": 1,
	"paginasRestantes": 0
}`

func TestFetchEditais(t *testing.T) {
	fetcher := &stubFetcher{bodies: []string{editaisPage}}
	source := NewPNCPSource(fetcher, "https://pncp.example/api")

	batch, err := source.FetchEditais(context.Background(), time.Now().Add(-24*time.Hour), time.Now(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(batch.Opportunities) != 1 {
		t.Fatalf("expected 1 valid notice, got %d", len(batch.Opportunities))
	}
	if batch.Skipped != 2 {
		t.Fatalf("expected 2 skipped records, got %d", batch.Skipped)
	}

	opp := batch.Opportunities[0]
	if opp.ID != "11222333000144-1-000042/2024" {
		t.Errorf("wrong ID: %s", opp.ID)
	}
	if opp.State != "SP" || opp.Municipality != "Campinas" {
		t.Errorf("wrong location: %s/%s", opp.State, opp.Municipality)
	}
	if opp.Modality != 6 {
		t.Errorf("wrong modality: %d", opp.Modality)
	}
	if opp.EstimatedValue == nil || *opp.EstimatedValue != 350000.00 {
		t.Errorf("wrong estimated value: %v", opp.EstimatedValue)
	}
	if opp.OperatingArea != "Tecnologia da Informação" {
		t.Errorf("object should classify as TI, got %s", opp.OperatingArea)
	}
	if opp.OpeningDate == nil || opp.OpeningDate.Day() != 25 {
		t.Errorf("opening date not parsed: %v", opp.OpeningDate)
	}
}

const contratosPage = `{
	"data": [
		{
			"orgaoEntidade": {"cnpj": "11222333000144", "razaoSocial": "Prefeitura de Campinas"},
			"unidadeOrgao": {"ufSigla": "SP", "municipioNome": "Campinas"},
			"anoContrato": 2023,
			"sequencialContrato": 15,
			"objetoContrato": "Fornecimento de merenda escolar",
			"niFornecedor": "55666777000188",
			"nomeRazaoSocialFornecedor": "Alimentos Bons Ltda",
			"valorGlobal": 120000.50,
			"dataAssinatura": "2023-06-01",
			"dataPublicacaoPncp": "2023-06-05T08:30:00",
			"tipoContrato": {"nome": "Contrato"}
		},
		{
			"orgaoEntidade": {"cnpj": "11222333000144"},
			"anoContrato": 2023,
			"sequencialContrato": 16,
			"objetoContrato": "Registro sem fornecedor",
			"niFornecedor": ""
		}
	],
	"paginasRestantes": 0
}`

func TestFetchContratos(t *testing.T) {
	fetcher := &stubFetcher{bodies: []string{contratosPage}}
	source := NewPNCPSource(fetcher, "https://pncp.example/api")

	batch, err := source.FetchContratos(context.Background(), time.Now().Add(-24*time.Hour), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(batch.Contracts) != 1 {
		t.Fatalf("expected 1 valid contract, got %d", len(batch.Contracts))
	}
	if batch.Skipped != 1 {
		t.Fatalf("expected 1 skipped record, got %d", batch.Skipped)
	}

	c := batch.Contracts[0]
	if c.ID != "11222333000144-2023-15" {
		t.Errorf("identity must be orgTaxId-year-sequence, got %s", c.ID)
	}
	if c.SupplierName != "Alimentos Bons Ltda" {
		t.Errorf("wrong supplier: %s", c.SupplierName)
	}
	if c.ContractedValue != 120000.50 {
		t.Errorf("wrong value: %f", c.ContractedValue)
	}
	if c.ContractType != "Contrato" {
		t.Errorf("wrong contract type: %s", c.ContractType)
	}
	if c.SigningDate.IsZero() || c.PublicationDate.IsZero() {
		t.Errorf("dates not parsed: %v / %v", c.SigningDate, c.PublicationDate)
	}
}

func TestParsePNCPDate(t *testing.T) {
	tests := []struct {
		raw     string
		wantDay int
		wantErr bool
	}{
		{"2024-03-10T09:00:00", 10, false},
		{"2024-03-10", 10, false},
		{"10/03/2024", 10, false},
		{"", 0, true},
		{"ontem", 0, true},
	}

	for _, tt := range tests {
		got, err := parsePNCPDate(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parsePNCPDate(%q): expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("parsePNCPDate(%q): %v", tt.raw, err)
			continue
		}
		if got.Day() != tt.wantDay {
			t.Errorf("parsePNCPDate(%q): got day %d, want %d", tt.raw, got.Day(), tt.wantDay)
		}
	}
}
