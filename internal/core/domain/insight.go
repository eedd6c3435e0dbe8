package domain

// InsightReport is the final output of the narrative pipeline.
type InsightReport struct {
	SessionID string `json:"session_id"`
	Drug      string `json:"drug"`

	// Insights is the literature-grounded narrative.
	Insights string `json:"insights"`

	// Summary is the narrative over the most similar FDA cases.
	Summary string `json:"summary"`

	Papers   []LiteratureRecord `json:"pubmed_papers"`
	FDACases int                `json:"fda_cases"`
}
