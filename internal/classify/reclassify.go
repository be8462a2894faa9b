package classify

import "strings"

// WeightedTerm is one scored keyword of a reclassification candidate.
type WeightedTerm struct {
	Term   string
	Weight int
}

// ScoredCategory is a candidate in the weighted reclassification pass
// applied to records that fell through to the default area. Exclusion
// terms disqualify the category outright; otherwise the score is the sum
// of the weights of all matching terms and must reach MinScore.
type ScoredCategory struct {
	Area       string
	Terms      []WeightedTerm
	Exclusions []string
	MinScore   int
}

// scoredCategories refines "Outros" records where the plain dictionary is
// too coarse. Order matters only for breaking score ties (first seen wins).
var scoredCategories = []ScoredCategory{
	{
		Area: "Tecnologia da Informação",
		Terms: []WeightedTerm{
			{"digital", 2}, {"eletronico", 1}, {"automacao", 3},
			{"telefonia", 2}, {"telecomunicac", 3}, {"modernizacao", 1},
			{"processamento de dados", 3},
		},
		Exclusions: []string{"urna eletronica", "ponto eletronico"},
		MinScore:   3,
	},
	{
		Area: "Engenharia e Obras",
		Terms: []WeightedTerm{
			{"projeto basico", 2}, {"projeto executivo", 2}, {"laudo tecnico", 2},
			{"topografi", 3}, {"sondagem", 3}, {"fiscalizacao de obra", 3},
		},
		MinScore: 3,
	},
	{
		Area: "Saúde",
		Terms: []WeightedTerm{
			{"clinic", 2}, {"terapeutic", 2}, {"vacina", 3}, {"exame", 2},
			{"protese", 3}, {"fisioterapi", 3},
		},
		Exclusions: []string{"saude e seguranca do trabalho"},
		MinScore:   3,
	},
	{
		Area: "Meio Ambiente",
		Terms: []WeightedTerm{
			{"sustentav", 2}, {"poda", 2}, {"compostagem", 3},
			{"monitoramento hidrico", 3}, {"fauna", 2}, {"flora", 2},
		},
		MinScore: 3,
	},
	{
		Area: "Energia",
		Terms: []WeightedTerm{
			{"kwh", 3}, {"rede eletrica", 2}, {"luminaria", 2},
			{"painel solar", 3}, {"transformador", 2},
		},
		MinScore: 3,
	},
}

// Reclassify applies the weighted-scoring variant to a record currently
// assigned the default area. It returns the refined area, or the original
// one when no candidate qualifies. Records already classified are
// returned unchanged.
func Reclassify(currentArea, text string) string {
	if currentArea != DefaultArea {
		return currentArea
	}

	normalized := Normalize(text)
	if normalized == "" {
		return currentArea
	}

	bestArea := ""
	bestScore := 0
	for _, candidate := range scoredCategories {
		if containsAny(normalized, candidate.Exclusions) {
			continue
		}

		score := 0
		for _, term := range candidate.Terms {
			if strings.Contains(normalized, term.Term) {
				score += term.Weight
			}
		}

		// Strictly-greater keeps first-seen order on ties.
		if score >= candidate.MinScore && score > bestScore {
			bestArea = candidate.Area
			bestScore = score
		}
	}

	if bestArea == "" {
		return currentArea
	}
	return bestArea
}
