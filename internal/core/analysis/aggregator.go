package analysis

import (
	"sort"
	"strings"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

// DefaultTopK is the number of reactions kept when no limit is configured.
const DefaultTopK = 10

// CaseReactionSets groups the distinct reaction terms of each case id.
// Sets are ordered by first appearance of the id, and records sharing an id
// are merged. Repeated terms within a case count once.
func CaseReactionSets(records []domain.CaseRecord) []domain.CaseReactionSet {
	sets := make([]domain.CaseReactionSet, 0, len(records))
	index := make(map[string]int, len(records))
	seen := make(map[string]map[string]struct{}, len(records))

	for _, c := range records {
		i, ok := index[c.PrimaryID]
		if !ok {
			i = len(sets)
			index[c.PrimaryID] = i
			seen[c.PrimaryID] = make(map[string]struct{})
			sets = append(sets, domain.CaseReactionSet{PrimaryID: c.PrimaryID, Terms: []string{}})
		}
		terms := seen[c.PrimaryID]
		for _, r := range c.Reactions {
			term := strings.TrimSpace(r.Term)
			if term == "" {
				continue
			}
			if _, dup := terms[term]; dup {
				continue
			}
			terms[term] = struct{}{}
			sets[i].Terms = append(sets[i].Terms, term)
		}
	}
	return sets
}

// Proportionalize converts reaction sets into the fraction of case ids that
// exhibit each reaction. Results follow the first appearance of each term
// across the input. Empty input gives an empty result.
func Proportionalize(sets []domain.CaseReactionSet) []domain.ReactionFrequency {
	freqs := make([]domain.ReactionFrequency, 0)

	ids := make(map[string]struct{}, len(sets))
	for _, s := range sets {
		ids[s.PrimaryID] = struct{}{}
	}
	if len(ids) == 0 {
		return freqs
	}

	// Count case ids, not mentions, so an id split across sets counts once.
	index := make(map[string]int)
	counted := make(map[string]map[string]struct{})
	for _, s := range sets {
		for _, term := range s.Terms {
			i, ok := index[term]
			if !ok {
				i = len(freqs)
				index[term] = i
				counted[term] = make(map[string]struct{})
				freqs = append(freqs, domain.ReactionFrequency{Term: term})
			}
			if _, done := counted[term][s.PrimaryID]; done {
				continue
			}
			counted[term][s.PrimaryID] = struct{}{}
			freqs[i].Cases++
		}
	}

	total := float64(len(ids))
	for i := range freqs {
		freqs[i].Fraction = float64(freqs[i].Cases) / total
	}
	return freqs
}

// TopK returns the k most frequent reactions, highest fraction first.
// Equal fractions keep their input order. The input is not modified.
func TopK(freqs []domain.ReactionFrequency, k int) []domain.ReactionFrequency {
	if k <= 0 {
		return []domain.ReactionFrequency{}
	}
	sorted := make([]domain.ReactionFrequency, len(freqs))
	copy(sorted, freqs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Fraction > sorted[j].Fraction
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

// TopReactions runs the aggregation pipeline over a selected subset.
func TopReactions(records []domain.CaseRecord, k int) []domain.ReactionFrequency {
	return TopK(Proportionalize(CaseReactionSets(records)), k)
}
