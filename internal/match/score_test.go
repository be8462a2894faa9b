package match

import (
	"reflect"
	"testing"

	"github.com/lucasmv/licita-radar/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func itProfile() models.CompanyProfile {
	return models.CompanyProfile{
		Name:                "Acme Sistemas",
		OperatingAreas:      []string{"Tecnologia da Informação"},
		Capabilities:        []string{"desenvolvimento de software"},
		OperatingStates:     nil,
		PreferredModalities: nil,
	}
}

func itOpportunity() models.Opportunity {
	return models.Opportunity{
		ID:                "123456-2026-1",
		Org:               "Prefeitura de Campinas",
		State:             "SP",
		ObjectDescription: "Contratação de empresa para desenvolvimento de sistema de informação",
		Modality:          6,
	}
}

func TestScoreStrongMatch(t *testing.T) {
	result := Score(itOpportunity(), itProfile())

	if result.Percentage < 80 {
		t.Errorf("expected percentage >= 80, got %d", result.Percentage)
	}
	if len(result.Highlights) < 2 {
		t.Fatalf("expected at least 2 highlights, got %v", result.Highlights)
	}
	if result.Highlights[0] != "Capacidades da empresa aderentes ao objeto" {
		t.Errorf("expected capabilities to lead the highlights, got %v", result.Highlights)
	}
}

func TestScoreEmptyProfileIsLowButBounded(t *testing.T) {
	result := Score(itOpportunity(), models.CompanyProfile{Name: "Vazia"})

	if result.Percentage >= 40 {
		t.Errorf("expected a low percentage for an empty profile, got %d", result.Percentage)
	}
	if result.Percentage < 0 {
		t.Errorf("percentage must never be negative, got %d", result.Percentage)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	first := Score(itOpportunity(), itProfile())
	second := Score(itOpportunity(), itProfile())
	if !reflect.DeepEqual(first, second) {
		t.Errorf("score is not deterministic: %+v vs %+v", first, second)
	}
}

func TestScoreBounded(t *testing.T) {
	opps := []models.Opportunity{
		{},
		itOpportunity(),
		{ObjectDescription: "Obra de pavimentação", State: "AC", Modality: 4, EstimatedValue: floatPtr(9_000_000)},
	}
	profiles := []models.CompanyProfile{
		{},
		itProfile(),
		{
			OperatingAreas:      []string{"Saúde"},
			Capabilities:        []string{"vigilancia armada", "limpeza predial"},
			OperatingStates:     []string{"RJ"},
			MinValue:            floatPtr(100_000),
			MaxValue:            floatPtr(500_000),
			PreferredModalities: []int{6},
		},
	}

	for _, opp := range opps {
		for _, profile := range profiles {
			result := Score(opp, profile)
			if result.Percentage < 0 || result.Percentage > 100 {
				t.Errorf("percentage out of bounds: %d", result.Percentage)
			}
			for _, f := range []float64{result.Factors.Area, result.Factors.State, result.Factors.Value, result.Factors.Capabilities, result.Factors.Modality} {
				if f < 0 || f > 1 {
					t.Errorf("factor out of bounds: %v", result.Factors)
				}
			}
		}
	}
}

// Raising any single factor while the others stay fixed must never lower
// the final percentage.
func TestScoreMonotonic(t *testing.T) {
	base := models.Opportunity{
		ID:                "1-2026-1",
		State:             "MG",
		ObjectDescription: "Aquisição de gêneros alimentícios",
		Modality:          4,
		EstimatedValue:    floatPtr(5_000_000),
	}
	profile := models.CompanyProfile{
		OperatingAreas:      []string{"Tecnologia da Informação"},
		Capabilities:        []string{"suporte tecnico"},
		OperatingStates:     []string{"SP"},
		MinValue:            floatPtr(10_000),
		MaxValue:            floatPtr(200_000),
		PreferredModalities: []int{6},
	}
	baseline := Score(base, profile).Percentage

	improvements := []struct {
		name string
		opp  models.Opportunity
	}{
		{"better state", func() models.Opportunity { o := base; o.State = "SP"; return o }()},
		{"better modality", func() models.Opportunity { o := base; o.Modality = 6; return o }()},
		{"value in range", func() models.Opportunity { o := base; o.EstimatedValue = floatPtr(100_000); return o }()},
		{"matching area and capability", func() models.Opportunity {
			o := base
			o.ObjectDescription = "Contratação de suporte técnico de informática"
			return o
		}()},
	}

	for _, tt := range improvements {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.opp, profile).Percentage
			if got < baseline {
				t.Errorf("improving one factor lowered the score: baseline %d, got %d", baseline, got)
			}
		})
	}
}

func TestScoreValueFactor(t *testing.T) {
	profile := models.CompanyProfile{
		MinValue: floatPtr(100_000),
		MaxValue: floatPtr(1_000_000),
	}

	tests := []struct {
		name     string
		value    *float64
		expected float64
	}{
		{"absent value is full credit", nil, 1.0},
		{"inside range is full credit", floatPtr(500_000), 1.0},
		{"up to double the max keeps partial credit", floatPtr(1_800_000), creditNearValue},
		{"far above the max keeps a floor", floatPtr(5_000_000), creditFarValue},
		{"below the minimum keeps partial credit", floatPtr(50_000), creditBelowMinValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := models.Opportunity{EstimatedValue: tt.value}
			if got := scoreValue(opp, profile); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestScoreAreaRelated(t *testing.T) {
	profile := models.CompanyProfile{OperatingAreas: []string{"Engenharia e Obras"}}

	related := models.Opportunity{OperatingArea: "Energia"}
	if got := scoreArea(related, profile); got != creditRelatedArea {
		t.Errorf("expected related-area credit %v, got %v", creditRelatedArea, got)
	}

	unrelated := models.Opportunity{OperatingArea: "Saúde"}
	if got := scoreArea(unrelated, profile); got != creditUnrelatedArea {
		t.Errorf("expected unrelated-area floor %v, got %v", creditUnrelatedArea, got)
	}
}

func TestScoreHighlightsCount(t *testing.T) {
	result := Score(itOpportunity(), itProfile())
	if len(result.Highlights) < 2 || len(result.Highlights) > 4 {
		t.Errorf("expected 2-4 highlights, got %d: %v", len(result.Highlights), result.Highlights)
	}
}
