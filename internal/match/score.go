package match

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/lucasmv/licita-radar/internal/classify"
	"github.com/lucasmv/licita-radar/internal/models"
)

// Factor weights. Capabilities dominate, area and state are close
// seconds, value and modality trail. The exact constants are tunable but
// must keep that ordering and sum to 1.
const (
	weightCapabilities = 0.42
	weightArea         = 0.20
	weightState        = 0.16
	weightValue        = 0.14
	weightModality     = 0.08
)

// Partial-credit constants. None of them is zero: no single factor can
// eliminate an opportunity on its own.
const (
	creditRelatedArea    = 0.5
	creditUnrelatedArea  = 0.15
	creditOtherState     = 0.3
	creditNearValue      = 0.6
	creditBelowMinValue  = 0.5
	creditFarValue       = 0.2
	creditOtherModality  = 0.4
	capabilityPartialHit = 0.5
)

func init() {
	sum := weightCapabilities + weightArea + weightState + weightValue + weightModality
	if math.Abs(sum-1.0) > 1e-9 {
		panic(fmt.Sprintf("match: factor weights sum to %v, want 1.0", sum))
	}
}

// relatedAreas grants partial area credit across sectors that commonly
// share suppliers.
var relatedAreas = map[string][]string{
	"Tecnologia da Informação":  {"Comunicação e Marketing", "Energia"},
	"Engenharia e Obras":        {"Energia", "Meio Ambiente"},
	"Saúde":                     {"Alimentação"},
	"Educação":                  {"Alimentação", "Recursos Humanos"},
	"Alimentação":               {"Saúde", "Educação", "Agronegócio"},
	"Veículos e Transporte":     {"Engenharia e Obras"},
	"Limpeza e Conservação":     {"Meio Ambiente", "Segurança"},
	"Segurança":                 {"Limpeza e Conservação", "Tecnologia da Informação"},
	"Mobiliário e Equipamentos": {"Tecnologia da Informação"},
	"Agronegócio":               {"Alimentação", "Meio Ambiente"},
	"Meio Ambiente":             {"Engenharia e Obras", "Agronegócio"},
	"Energia":                   {"Engenharia e Obras", "Tecnologia da Informação"},
}

// capabilitySynonyms lets a declared capability match a description that
// phrases the same service differently. Keys and values are normalized.
var capabilitySynonyms = map[string][]string{
	"desenvolvimento de software": {"desenvolvimento de sistema", "fabrica de software", "sistema de informacao"},
	"desenvolvimento de sistema":  {"desenvolvimento de software", "sistema de informacao"},
	"suporte tecnico":             {"help desk", "service desk", "atendimento tecnico"},
	"limpeza predial":             {"limpeza e conservacao", "higienizacao"},
	"vigilancia armada":           {"seguranca patrimonial", "vigilancia patrimonial"},
	"construcao civil":            {"obra civil", "edificacao", "reforma predial"},
	"locacao de veiculos":         {"aluguel de veiculos", "frota"},
	"consultoria ambiental":       {"licenciamento ambiental", "estudo ambiental"},
}

// Score computes the weighted compatibility between one opportunity and a
// company profile. It is pure and total: well-formed input never panics,
// the result is deterministic, and the percentage always lands in
// [0,100]. Each factor contributes independently, so raising any
// sub-score can only raise the percentage.
func Score(opp models.Opportunity, profile models.CompanyProfile) models.MatchResult {
	factors := models.MatchFactors{
		Area:         scoreArea(opp, profile),
		State:        scoreState(opp, profile),
		Value:        scoreValue(opp, profile),
		Capabilities: scoreCapabilities(opp, profile),
		Modality:     scoreModality(opp, profile),
	}

	total := weightCapabilities*factors.Capabilities +
		weightArea*factors.Area +
		weightState*factors.State +
		weightValue*factors.Value +
		weightModality*factors.Modality

	percentage := int(math.Round(total * 100))
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	return models.MatchResult{
		Percentage: percentage,
		Factors:    factors,
		Highlights: buildHighlights(factors),
	}
}

func scoreArea(opp models.Opportunity, profile models.CompanyProfile) float64 {
	area := opp.OperatingArea
	if area == "" {
		area = classify.Area(opp.ObjectDescription)
	}
	if len(profile.OperatingAreas) == 0 {
		return 0
	}

	for _, declared := range profile.OperatingAreas {
		if strings.EqualFold(declared, area) {
			return 1.0
		}
	}
	for _, declared := range profile.OperatingAreas {
		for _, related := range relatedAreas[declared] {
			if strings.EqualFold(related, area) {
				return creditRelatedArea
			}
		}
	}
	return creditUnrelatedArea
}

func scoreState(opp models.Opportunity, profile models.CompanyProfile) float64 {
	// Empty set means the company operates nationwide.
	if len(profile.OperatingStates) == 0 {
		return 1.0
	}
	for _, uf := range profile.OperatingStates {
		if strings.EqualFold(uf, opp.State) {
			return 1.0
		}
	}
	return creditOtherState
}

func scoreValue(opp models.Opportunity, profile models.CompanyProfile) float64 {
	if opp.EstimatedValue == nil {
		return 1.0
	}
	value := *opp.EstimatedValue

	if profile.MinValue != nil && value < *profile.MinValue {
		return creditBelowMinValue
	}
	if profile.MaxValue != nil && value > *profile.MaxValue {
		if value <= 2*(*profile.MaxValue) {
			return creditNearValue
		}
		return creditFarValue
	}
	return 1.0
}

func scoreCapabilities(opp models.Opportunity, profile models.CompanyProfile) float64 {
	if len(profile.Capabilities) == 0 {
		return 0
	}

	description := classify.Normalize(opp.ObjectDescription)
	if description == "" {
		return 0
	}

	total := 0.0
	for _, capability := range profile.Capabilities {
		total += capabilityCredit(description, capability)
	}
	return total / float64(len(profile.Capabilities))
}

// capabilityCredit returns 1 for a direct or synonym hit, half credit
// when at least half of a multi-word capability's tokens appear, and 0
// otherwise.
func capabilityCredit(description, capability string) float64 {
	phrase := classify.Normalize(capability)
	if phrase == "" {
		return 0
	}

	if strings.Contains(description, phrase) {
		return 1.0
	}
	for _, synonym := range capabilitySynonyms[phrase] {
		if strings.Contains(description, synonym) {
			return 1.0
		}
	}

	words := strings.Fields(phrase)
	if len(words) < 2 {
		return 0
	}
	hits := 0
	for _, word := range words {
		if len(word) > 2 && strings.Contains(description, word) {
			hits++
		}
	}
	if hits*2 >= len(words) {
		return capabilityPartialHit
	}
	return 0
}

func scoreModality(opp models.Opportunity, profile models.CompanyProfile) float64 {
	// No declared preference means every modality is acceptable.
	if len(profile.PreferredModalities) == 0 {
		return 1.0
	}
	for _, code := range profile.PreferredModalities {
		if code == opp.Modality {
			return 1.0
		}
	}
	return creditOtherModality
}

type contribution struct {
	label string
	value float64
	score float64
}

// buildHighlights lists the 2-4 strongest contributing factors, strongest
// first, as reader-facing Portuguese phrases.
func buildHighlights(factors models.MatchFactors) []string {
	contributions := []contribution{
		{"Capacidades da empresa aderentes ao objeto", weightCapabilities * factors.Capabilities, factors.Capabilities},
		{"Área de atuação compatível", weightArea * factors.Area, factors.Area},
		{"Estado dentro da área de cobertura", weightState * factors.State, factors.State},
		{"Valor estimado dentro da faixa de interesse", weightValue * factors.Value, factors.Value},
		{"Modalidade preferida pela empresa", weightModality * factors.Modality, factors.Modality},
	}

	sort.SliceStable(contributions, func(i, j int) bool {
		return contributions[i].value > contributions[j].value
	})

	highlights := make([]string, 0, 4)
	for _, c := range contributions {
		if len(highlights) >= 4 {
			break
		}
		// Weak factors only pad the list up to the two-entry minimum.
		if c.score < 0.5 && len(highlights) >= 2 {
			break
		}
		highlights = append(highlights, c.label)
	}
	return highlights
}
