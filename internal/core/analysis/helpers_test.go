package analysis

import "github.com/custodia-labs/faersight/internal/core/domain"

type caseOpt func(*domain.CaseRecord)

func withAge(v float64, unit domain.AgeUnit) caseOpt {
	return func(c *domain.CaseRecord) {
		c.Demographics.Age = domain.Some(v)
		c.Demographics.AgeUnit = unit
	}
}

func withWeight(v float64, unit domain.WeightUnit) caseOpt {
	return func(c *domain.CaseRecord) {
		c.Demographics.Weight = domain.Some(v)
		c.Demographics.WeightUnit = unit
	}
}

func withSex(s domain.Sex) caseOpt {
	return func(c *domain.CaseRecord) { c.Demographics.Sex = s }
}

func withDrugs(names ...string) caseOpt {
	return func(c *domain.CaseRecord) {
		for _, n := range names {
			c.Drugs = append(c.Drugs, domain.Drug{Name: n, Role: domain.DrugRolePrimarySuspect})
		}
	}
}

func withReactions(terms ...string) caseOpt {
	return func(c *domain.CaseRecord) {
		for _, t := range terms {
			c.Reactions = append(c.Reactions, domain.Reaction{Term: t})
		}
	}
}

func newCase(id string, opts ...caseOpt) domain.CaseRecord {
	c := domain.CaseRecord{PrimaryID: id}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func ids(records []domain.CaseRecord) []string {
	out := make([]string, 0, len(records))
	for _, c := range records {
		out = append(out, c.PrimaryID)
	}
	return out
}
