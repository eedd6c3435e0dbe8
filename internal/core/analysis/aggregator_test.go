package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

func TestCaseReactionSets(t *testing.T) {
	records := []domain.CaseRecord{
		newCase("1", withReactions("Nausea", "Nausea", "Headache")),
		newCase("2", withReactions("Nausea")),
		newCase("1", withReactions("Vomiting", "Headache")),
	}

	sets := CaseReactionSets(records)
	require.Len(t, sets, 2)
	assert.Equal(t, "1", sets[0].PrimaryID)
	assert.Equal(t, []string{"Nausea", "Headache", "Vomiting"}, sets[0].Terms)
	assert.Equal(t, []string{"Nausea"}, sets[1].Terms)
}

func TestProportionalize(t *testing.T) {
	records := []domain.CaseRecord{
		newCase("1", withReactions("nausea", "nausea", "headache")),
		newCase("2", withReactions("nausea")),
	}

	freqs := Proportionalize(CaseReactionSets(records))
	require.Len(t, freqs, 2)

	assert.Equal(t, "nausea", freqs[0].Term)
	assert.Equal(t, 2, freqs[0].Cases)
	assert.InDelta(t, 1.0, freqs[0].Fraction, 1e-12)

	assert.Equal(t, "headache", freqs[1].Term)
	assert.Equal(t, 1, freqs[1].Cases)
	assert.InDelta(t, 0.5, freqs[1].Fraction, 1e-12)
}

func TestProportionalize_CountsCasesWithoutReactions(t *testing.T) {
	records := []domain.CaseRecord{
		newCase("1", withReactions("rash")),
		newCase("2"),
		newCase("3"),
		newCase("4"),
	}

	freqs := Proportionalize(CaseReactionSets(records))
	require.Len(t, freqs, 1)
	assert.InDelta(t, 0.25, freqs[0].Fraction, 1e-12)
}

func TestProportionalize_Empty(t *testing.T) {
	assert.Empty(t, Proportionalize(nil))
	assert.Empty(t, Proportionalize(CaseReactionSets(nil)))
}

func TestProportionalize_FractionsInUnitRange(t *testing.T) {
	records := []domain.CaseRecord{
		newCase("1", withReactions("a", "b", "c")),
		newCase("2", withReactions("b", "b")),
		newCase("3", withReactions("c")),
	}
	for _, f := range Proportionalize(CaseReactionSets(records)) {
		assert.GreaterOrEqual(t, f.Fraction, 0.0)
		assert.LessOrEqual(t, f.Fraction, 1.0)
	}
}

func TestTopK(t *testing.T) {
	freqs := []domain.ReactionFrequency{
		{Term: "a", Fraction: 0.4},
		{Term: "b", Fraction: 0.9},
		{Term: "c", Fraction: 0.9},
	}

	t.Run("ties keep input order", func(t *testing.T) {
		got := TopK(freqs, 1)
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].Term)
		assert.Equal(t, 0.9, got[0].Fraction)
	})

	t.Run("full ordering", func(t *testing.T) {
		got := TopK(freqs, 10)
		assert.Equal(t, []string{"b", "c", "a"}, []string{got[0].Term, got[1].Term, got[2].Term})
	})

	t.Run("input untouched", func(t *testing.T) {
		_ = TopK(freqs, 2)
		assert.Equal(t, "a", freqs[0].Term)
	})

	t.Run("non-positive k", func(t *testing.T) {
		assert.Empty(t, TopK(freqs, 0))
	})
}

func TestTopReactions(t *testing.T) {
	records := []domain.CaseRecord{
		newCase("1", withReactions("Nausea", "Diarrhoea")),
		newCase("2", withReactions("Nausea")),
		newCase("3", withReactions("Vomiting", "Diarrhoea")),
		newCase("4", withReactions("Nausea")),
	}

	got := TopReactions(records, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "Nausea", got[0].Term)
	assert.InDelta(t, 0.75, got[0].Fraction, 1e-12)
	assert.Equal(t, "Diarrhoea", got[1].Term)
	assert.InDelta(t, 0.5, got[1].Fraction, 1e-12)
}
