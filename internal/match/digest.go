package match

import (
	"sort"

	"github.com/lucasmv/licita-radar/internal/models"
)

const (
	// DefaultThreshold is the minimum percentage for a notice to make the
	// digest feed.
	DefaultThreshold = 60
	// DefaultLimit caps the digest at the top ten notices.
	DefaultLimit = 10
)

// Digest scores a batch of freshly fetched opportunities against a
// profile and returns the ranked shortlist: percentage >= threshold,
// descending by percentage, truncated to limit. The sort is stable, so
// ties keep the batch's original relative order. Pure composition over
// Score — no I/O.
func Digest(profile models.CompanyProfile, opps []models.Opportunity, threshold, limit int) []models.RankedOpportunity {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	ranked := make([]models.RankedOpportunity, 0, len(opps))
	for _, opp := range opps {
		result := Score(opp, profile)
		if result.Percentage >= threshold {
			ranked = append(ranked, models.RankedOpportunity{Opportunity: opp, Match: result})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Match.Percentage > ranked[j].Match.Percentage
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
