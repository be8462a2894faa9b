package models

import "time"

// CompanySize classifies the bidder by legal size bracket.
type CompanySize string

const (
	SizeMicro  CompanySize = "micro"
	SizeSmall  CompanySize = "pequena"
	SizeMedium CompanySize = "media"
	SizeLarge  CompanySize = "grande"
)

// CompanyProfile is the buyer-defined profile that opportunities are
// matched against. It is read-only to the matching core; the profile
// editor lives outside this repository.
type CompanyProfile struct {
	Name                string      `json:"name"`
	TaxID               string      `json:"tax_id,omitempty"`
	OperatingAreas      []string    `json:"operating_areas"`
	Capabilities        []string    `json:"capabilities"`
	Certifications      []string    `json:"certifications,omitempty"`
	OperatingStates     []string    `json:"operating_states"` // empty = all states
	Size                CompanySize `json:"size,omitempty"`
	MinValue            *float64    `json:"min_value,omitempty"`
	MaxValue            *float64    `json:"max_value,omitempty"`
	PreferredModalities []int       `json:"preferred_modalities"` // empty = all modalities
}

// Opportunity is one open procurement notice. Identity is
// "{orgCode}-{year}-{sequence}" as published by the source system.
// Records are classified at ingestion time and never mutated afterwards.
type Opportunity struct {
	ID                string     `json:"id"`
	Org               string     `json:"org"`
	OrgTaxID          string     `json:"org_tax_id"`
	State             string     `json:"state"`
	Municipality      string     `json:"municipality,omitempty"`
	ObjectDescription string     `json:"object_description"`
	Modality          int        `json:"modality"`
	PublicationDate   time.Time  `json:"publication_date"`
	OpeningDate       *time.Time `json:"opening_date,omitempty"`
	EstimatedValue    *float64   `json:"estimated_value,omitempty"`
	Status            string     `json:"status,omitempty"`
	DocumentLink      string     `json:"document_link,omitempty"`
	Source            string     `json:"source"`
	OperatingArea     string     `json:"operating_area"` // derived
	Categories        []string   `json:"categories"`     // derived
}

// Contract is a historical, already-awarded procurement record.
// Identity is "{orgTaxId}-{year}-{sequence}" and is the de-duplication
// key: a contract already stored under its ID is never re-inserted.
type Contract struct {
	ID                string    `json:"id"`
	OrgTaxID          string    `json:"org_tax_id"`
	Org               string    `json:"org"`
	State             string    `json:"state"`
	Municipality      string    `json:"municipality,omitempty"`
	ObjectDescription string    `json:"object_description"`
	SupplierTaxID     string    `json:"supplier_tax_id"`
	SupplierName      string    `json:"supplier_name"`
	ContractedValue   float64   `json:"contracted_value"`
	SigningDate       time.Time `json:"signing_date"`
	PublicationDate   time.Time `json:"publication_date"`
	ContractType      string    `json:"contract_type,omitempty"`
	OperatingArea     string    `json:"operating_area"` // derived
	Keywords          []string  `json:"keywords"`       // derived, at most 10
	Embedding         []float32 `json:"-"`
}

// MatchFactors holds the five sub-scores, each in [0,1].
type MatchFactors struct {
	Area         float64 `json:"area"`
	State        float64 `json:"state"`
	Value        float64 `json:"value"`
	Capabilities float64 `json:"capabilities"`
	Modality     float64 `json:"modality"`
}

// MatchResult is the compatibility verdict for one (opportunity, profile)
// pair. Computed fresh on every call and never persisted by the core.
type MatchResult struct {
	Percentage int          `json:"percentage"` // [0,100]
	Factors    MatchFactors `json:"factors"`
	Highlights []string     `json:"highlights"`
}

// RankedOpportunity pairs a notice with its match for the digest feed.
type RankedOpportunity struct {
	Opportunity Opportunity `json:"opportunity"`
	Match       MatchResult `json:"match"`
}

// SupplierStats aggregates one supplier's share of a matched contract set.
type SupplierStats struct {
	TaxID          string   `json:"tax_id"`
	Name           string   `json:"name"`
	ContractCount  int      `json:"contract_count"`
	TotalValue     float64  `json:"total_value"`
	OperatingAreas []string `json:"operating_areas"`
	States         []string `json:"states"`
}

// PriceRange summarizes the contracted-value distribution of a matched set.
type PriceRange struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// AnalysisPeriod is the publication-date span of the matched contracts.
type AnalysisPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MarketAnalysis is the deterministic statistical picture of the market
// for a given object description. Insights and recommendations may be
// extended by a best-effort LLM enrichment step; the statistics never
// depend on it.
type MarketAnalysis struct {
	AnalyzedContractCount    int             `json:"analyzed_contract_count"`
	AnalyzedOpportunityCount int             `json:"analyzed_opportunity_count"`
	AnalysisPeriod           AnalysisPeriod  `json:"analysis_period"`
	PriceRange               PriceRange      `json:"price_range"`
	TopSuppliers             []SupplierStats `json:"top_suppliers"`
	MarketConcentration      float64         `json:"market_concentration"` // [0,100], top-5 share
	Insights                 []string        `json:"insights"`
	Recommendations          []string        `json:"recommendations"`
}

// ModalityNames maps the legally defined procurement procedure codes to
// their display names (codes follow the PNCP convention).
var ModalityNames = map[int]string{
	1:  "Leilão Eletrônico",
	2:  "Diálogo Competitivo",
	3:  "Concurso",
	4:  "Concorrência Eletrônica",
	5:  "Concorrência Presencial",
	6:  "Pregão Eletrônico",
	7:  "Pregão Presencial",
	8:  "Dispensa de Licitação",
	9:  "Inexigibilidade",
	10: "Manifestação de Interesse",
	11: "Pré-qualificação",
	12: "Credenciamento",
	13: "Leilão Presencial",
	14: "Chamamento Público",
	15: "Registro de Preços",
}

// ModalityName returns the display name for a modality code, or a
// generic label when the code is unknown.
func ModalityName(code int) string {
	if name, ok := ModalityNames[code]; ok {
		return name
	}
	return "Modalidade Desconhecida"
}
