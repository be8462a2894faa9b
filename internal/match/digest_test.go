package match

import (
	"fmt"
	"testing"

	"github.com/lucasmv/licita-radar/internal/models"
)

func TestDigestFiltersAndRanks(t *testing.T) {
	profile := itProfile()

	strong := itOpportunity()
	weak := models.Opportunity{
		ID:                "999-2026-4",
		State:             "SP",
		ObjectDescription: "Aquisição de gêneros alimentícios para merenda",
		Modality:          4,
	}
	medium := models.Opportunity{
		ID:                "555-2026-2",
		State:             "SP",
		ObjectDescription: "Suporte técnico de informática e manutenção de sistema",
		Modality:          6,
	}

	ranked := Digest(profile, []models.Opportunity{weak, medium, strong}, 0, 0)

	if len(ranked) == 0 {
		t.Fatal("expected at least one ranked opportunity")
	}
	if ranked[0].Opportunity.ID != strong.ID {
		t.Errorf("expected strongest match first, got %s", ranked[0].Opportunity.ID)
	}
	for _, r := range ranked {
		if r.Match.Percentage < DefaultThreshold {
			t.Errorf("digest includes %s below threshold: %d", r.Opportunity.ID, r.Match.Percentage)
		}
		if r.Opportunity.ID == weak.ID {
			t.Errorf("weak match should have been filtered out")
		}
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Match.Percentage > ranked[i-1].Match.Percentage {
			t.Errorf("digest not sorted descending at %d", i)
		}
	}
}

func TestDigestStableTieBreak(t *testing.T) {
	profile := itProfile()

	// Identical notices score identically; input order must survive.
	batch := make([]models.Opportunity, 5)
	for i := range batch {
		opp := itOpportunity()
		opp.ID = fmt.Sprintf("777-2026-%d", i+1)
		batch[i] = opp
	}

	ranked := Digest(profile, batch, 0, 0)
	if len(ranked) != len(batch) {
		t.Fatalf("expected %d entries, got %d", len(batch), len(ranked))
	}
	for i, r := range ranked {
		if r.Opportunity.ID != batch[i].ID {
			t.Errorf("tie order broken at %d: got %s, want %s", i, r.Opportunity.ID, batch[i].ID)
		}
	}
}

func TestDigestLimit(t *testing.T) {
	profile := itProfile()

	batch := make([]models.Opportunity, 15)
	for i := range batch {
		opp := itOpportunity()
		opp.ID = fmt.Sprintf("888-2026-%d", i+1)
		batch[i] = opp
	}

	ranked := Digest(profile, batch, 0, 0)
	if len(ranked) != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, len(ranked))
	}

	ranked = Digest(profile, batch, 0, 3)
	if len(ranked) != 3 {
		t.Errorf("expected explicit limit 3, got %d", len(ranked))
	}
}

func TestDigestEmptyBatch(t *testing.T) {
	ranked := Digest(itProfile(), nil, 0, 0)
	if len(ranked) != 0 {
		t.Errorf("expected empty digest, got %d entries", len(ranked))
	}
}
