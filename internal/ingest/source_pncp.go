package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/lucasmv/licita-radar/internal/classify"
	"github.com/lucasmv/licita-radar/internal/models"
)

const pncpPageSize = 50

// PNCPSource reads notices and contracts from the Portal Nacional de
// Contratações Públicas consulta API.
type PNCPSource struct {
	Fetcher Fetcher
	BaseURL string
	// MaxPages caps pagination per run, 0 = fetch everything.
	MaxPages int
}

func NewPNCPSource(fetcher Fetcher, baseURL string) *PNCPSource {
	if fetcher == nil {
		fetcher = NewRateLimitedFetcher(FetchConfig{RateLimitRPS: 2.0})
	}
	return &PNCPSource{Fetcher: fetcher, BaseURL: baseURL, MaxPages: 10}
}

// pncpOrgao is the contracting body block shared by both endpoints.
type pncpOrgao struct {
	CNPJ        string `json:"cnpj"`
	RazaoSocial string `json:"razaoSocial"`
}

type pncpUnidade struct {
	UFSigla       string `json:"ufSigla"`
	MunicipioNome string `json:"municipioNome"`
}

// pncpEdital mirrors one record of /contratacoes/publicacao.
type pncpEdital struct {
	NumeroControle       string      `json:"numeroControlePNCP"`
	OrgaoEntidade        pncpOrgao   `json:"orgaoEntidade"`
	UnidadeOrgao         pncpUnidade `json:"unidadeOrgao"`
	ObjetoCompra         string      `json:"objetoCompra"`
	ModalidadeID         int         `json:"modalidadeId"`
	SituacaoCompraNome   string      `json:"situacaoCompraNome"`
	DataPublicacaoPncp   string      `json:"dataPublicacaoPncp"`
	DataAberturaProposta string      `json:"dataAberturaProposta"`
	ValorTotalEstimado   *float64    `json:"valorTotalEstimado"`
	LinkSistemaOrigem    string      `json:"linkSistemaOrigem"`
}

// pncpContrato mirrors one record of /contratos.
type pncpContrato struct {
	OrgaoEntidade      pncpOrgao   `json:"orgaoEntidade"`
	UnidadeOrgao       pncpUnidade `json:"unidadeOrgao"`
	AnoContrato        int         `json:"anoContrato"`
	SequencialContrato int         `json:"sequencialContrato"`
	ObjetoContrato     string      `json:"objetoContrato"`
	NIFornecedor       string      `json:"niFornecedor"`
	NomeFornecedor     string      `json:"nomeRazaoSocialFornecedor"`
	ValorGlobal        float64     `json:"valorGlobal"`
	DataAssinatura     string      `json:"dataAssinatura"`
	DataPublicacao     string      `json:"dataPublicacaoPncp"`
	TipoContrato       struct {
		Nome string `json:"nome"`
	} `json:"tipoContrato"`
}

type pncpPage[T any] struct {
	Data             []T  `json:"data"`
	TotalRegistros   int  `json:"totalRegistros"`
	TotalPaginas     int  `json:"totalPaginas"`
	NumeroPagina     int  `json:"numeroPagina"`
	PaginasRestantes int  `json:"paginasRestantes"`
	Empty            bool `json:"empty"`
}

// FetchEditais pulls published notices for a date window, converting
// each record into a canonical Opportunity. Malformed records are
// skipped and counted, never aborting the page.
func (s *PNCPSource) FetchEditais(ctx context.Context, from, to time.Time, uf string) (*Batch, error) {
	batch := &Batch{}

	page := 1
	for {
		if s.MaxPages > 0 && page > s.MaxPages {
			break
		}

		params := url.Values{}
		params.Set("dataInicial", from.Format("20060102"))
		params.Set("dataFinal", to.Format("20060102"))
		params.Set("pagina", fmt.Sprintf("%d", page))
		params.Set("tamanhoPagina", fmt.Sprintf("%d", pncpPageSize))
		if uf != "" {
			params.Set("uf", uf)
		}

		var resp pncpPage[pncpEdital]
		if err := s.getJSON(ctx, s.BaseURL+"?"+params.Encode(), &resp); err != nil {
			return batch, fmt.Errorf("pncp editais page %d: %w", page, err)
		}

		for _, rec := range resp.Data {
			opp, ok := editalToOpportunity(rec)
			if !ok {
				batch.Skipped++
				continue
			}
			batch.Opportunities = append(batch.Opportunities, opp)
		}

		if resp.PaginasRestantes <= 0 || len(resp.Data) == 0 {
			break
		}
		page++
	}

	return batch, nil
}

// FetchContratos pulls signed contracts for a date window, feeding the
// historical store.
func (s *PNCPSource) FetchContratos(ctx context.Context, from, to time.Time) (*Batch, error) {
	batch := &Batch{}

	page := 1
	for {
		if s.MaxPages > 0 && page > s.MaxPages {
			break
		}

		params := url.Values{}
		params.Set("dataInicial", from.Format("20060102"))
		params.Set("dataFinal", to.Format("20060102"))
		params.Set("pagina", fmt.Sprintf("%d", page))
		params.Set("tamanhoPagina", fmt.Sprintf("%d", pncpPageSize))

		var resp pncpPage[pncpContrato]
		if err := s.getJSON(ctx, s.BaseURL+"?"+params.Encode(), &resp); err != nil {
			return batch, fmt.Errorf("pncp contratos page %d: %w", page, err)
		}

		for _, rec := range resp.Data {
			contract, ok := contratoToContract(rec)
			if !ok {
				batch.Skipped++
				continue
			}
			batch.Contracts = append(batch.Contracts, contract)
		}

		if resp.PaginasRestantes <= 0 || len(resp.Data) == 0 {
			break
		}
		page++
	}

	return batch, nil
}

func (s *PNCPSource) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	doc, err := s.Fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return err
	}
	defer doc.Body.Close()

	body, err := io.ReadAll(doc.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func editalToOpportunity(rec pncpEdital) (models.Opportunity, bool) {
	if rec.NumeroControle == "" || strings.TrimSpace(rec.ObjetoCompra) == "" {
		return models.Opportunity{}, false
	}

	opp := models.Opportunity{
		ID:                rec.NumeroControle,
		Org:               cleanText(rec.OrgaoEntidade.RazaoSocial),
		OrgTaxID:          rec.OrgaoEntidade.CNPJ,
		State:             rec.UnidadeOrgao.UFSigla,
		Municipality:      cleanText(rec.UnidadeOrgao.MunicipioNome),
		ObjectDescription: cleanText(rec.ObjetoCompra),
		Modality:          rec.ModalidadeID,
		Status:            strings.ToLower(cleanText(rec.SituacaoCompraNome)),
		DocumentLink:      rec.LinkSistemaOrigem,
		Source:            "pncp",
		EstimatedValue:    rec.ValorTotalEstimado,
	}

	if t, err := parsePNCPDate(rec.DataPublicacaoPncp); err == nil {
		opp.PublicationDate = t
	} else {
		log.Printf("pncp: unparseable publication date %q for %s", rec.DataPublicacaoPncp, rec.NumeroControle)
	}
	if t, err := parsePNCPDate(rec.DataAberturaProposta); err == nil {
		opp.OpeningDate = &t
	}

	result := classify.Classify(opp.ObjectDescription)
	opp.OperatingArea = result.Area
	opp.Categories = result.Tags

	return opp, true
}

func contratoToContract(rec pncpContrato) (models.Contract, bool) {
	if rec.OrgaoEntidade.CNPJ == "" || rec.AnoContrato == 0 || rec.SequencialContrato == 0 {
		return models.Contract{}, false
	}
	if rec.NIFornecedor == "" || rec.ValorGlobal < 0 {
		return models.Contract{}, false
	}

	c := models.Contract{
		ID:                fmt.Sprintf("%s-%d-%d", rec.OrgaoEntidade.CNPJ, rec.AnoContrato, rec.SequencialContrato),
		OrgTaxID:          rec.OrgaoEntidade.CNPJ,
		Org:               cleanText(rec.OrgaoEntidade.RazaoSocial),
		State:             rec.UnidadeOrgao.UFSigla,
		Municipality:      cleanText(rec.UnidadeOrgao.MunicipioNome),
		ObjectDescription: cleanText(rec.ObjetoContrato),
		SupplierTaxID:     rec.NIFornecedor,
		SupplierName:      cleanText(rec.NomeFornecedor),
		ContractedValue:   rec.ValorGlobal,
		ContractType:      cleanText(rec.TipoContrato.Nome),
	}

	if t, err := parsePNCPDate(rec.DataAssinatura); err == nil {
		c.SigningDate = t
	}
	if t, err := parsePNCPDate(rec.DataPublicacao); err == nil {
		c.PublicationDate = t
	}

	return c, true
}

// parsePNCPDate accepts the timestamp variants the portal emits.
func parsePNCPDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	layouts := []string{
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006-01-02",
		"02/01/2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", raw)
}
