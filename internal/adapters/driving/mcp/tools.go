package mcp

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

const (
	defaultPassages   = 3
	defaultMaxResults = 20
)

// PatientInput describes the patient a request is made for.
type PatientInput struct {
	Age         *float64 `json:"age,omitempty" jsonschema:"age in years"`
	Sex         string   `json:"sex,omitempty" jsonschema:"M or F"`
	Weight      *float64 `json:"weight,omitempty" jsonschema:"weight in kilograms"`
	Conditions  []string `json:"conditions,omitempty" jsonschema:"existing conditions"`
	Medications []string `json:"medications,omitempty" jsonschema:"current medications"`
}

func (p PatientInput) profile() domain.PatientProfile {
	return domain.PatientProfile{
		Age:         optionalMeasure(p.Age),
		Sex:         domain.ParseSex(p.Sex),
		Weight:      optionalMeasure(p.Weight),
		Conditions:  p.Conditions,
		Medications: p.Medications,
	}
}

func optionalMeasure(v *float64) domain.Measure {
	if v == nil || math.IsNaN(*v) {
		return domain.Absent()
	}
	return domain.Some(*v)
}

// StatsInput is the input schema for the dataset_stats tool.
type StatsInput struct{}

// StatsOutput summarises the loaded dataset.
type StatsOutput struct {
	Quarter       string `json:"quarter,omitempty"`
	Cases         int    `json:"cases"`
	WithAge       int    `json:"with_age"`
	WithWeight    int    `json:"with_weight"`
	WithSex       int    `json:"with_sex"`
	DistinctDrugs int    `json:"distinct_drugs"`
	DistinctTerms int    `json:"distinct_reactions"`
}

// TopReactionsInput is the input schema for the top_reactions tool.
type TopReactionsInput struct {
	AgeMin      *float64 `json:"age_min,omitempty" jsonschema:"minimum age in years, inclusive"`
	AgeMax      *float64 `json:"age_max,omitempty" jsonschema:"maximum age in years, exclusive"`
	WeightMin   *float64 `json:"weight_min,omitempty" jsonschema:"minimum weight in kg, inclusive"`
	WeightMax   *float64 `json:"weight_max,omitempty" jsonschema:"maximum weight in kg, exclusive"`
	Sex         string   `json:"sex,omitempty" jsonschema:"M or F"`
	Drug        string   `json:"drug,omitempty" jsonschema:"drug name"`
	Medications []string `json:"medications,omitempty" jsonschema:"match cases listing any of these drugs"`
	K           int      `json:"k,omitempty" jsonschema:"number of reactions (default from settings)"`
}

// ReactionOutput is one ranked reaction.
type ReactionOutput struct {
	Term     string  `json:"term"`
	Cases    int     `json:"cases"`
	Fraction float64 `json:"fraction"`
}

// ReactionsOutput is the output schema for the top_reactions tool.
type ReactionsOutput struct {
	Reactions []ReactionOutput `json:"reactions"`
}

// ProfileInput is the input schema for the reaction_profile tool.
type ProfileInput struct {
	Drug    string       `json:"drug" jsonschema:"drug name"`
	Patient PatientInput `json:"patient"`
}

// ProfileOutput is the output schema for the reaction_profile tool.
// Absent patient dimensions leave the bucket empty and the list null.
type ProfileOutput struct {
	AgeBucket    string           `json:"age_bucket,omitempty"`
	ByAge        []ReactionOutput `json:"by_age"`
	WeightBucket string           `json:"weight_bucket,omitempty"`
	ByWeight     []ReactionOutput `json:"by_weight"`
	BySex        []ReactionOutput `json:"by_sex"`
}

// SimilarInput is the input schema for the similar_cases tool.
type SimilarInput struct {
	Patient PatientInput `json:"patient"`
}

// CaseOutput is one similar case.
type CaseOutput struct {
	PrimaryID string   `json:"primary_id"`
	Score     float64  `json:"score"`
	AgeYears  *float64 `json:"age_years,omitempty"`
	WeightKG  *float64 `json:"weight_kg,omitempty"`
	Sex       string   `json:"sex"`
	Drugs     []string `json:"drugs"`
	Reactions []string `json:"reactions"`
	Outcomes  []string `json:"outcomes,omitempty"`
}

// SimilarOutput is the output schema for the similar_cases tool.
type SimilarOutput struct {
	Cases []CaseOutput `json:"cases"`
	Count int          `json:"count"`
}

// LiteratureInput is the input schema for the rank_literature tool.
type LiteratureInput struct {
	Drug       string `json:"drug" jsonschema:"drug to search PubMed for"`
	Query      string `json:"query" jsonschema:"clinical question to rank passages against"`
	Passages   int    `json:"passages,omitempty" jsonschema:"number of passages to return (default 3)"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"articles to fetch (default 20)"`
}

// PassageOutput is one ranked passage.
type PassageOutput struct {
	PMID     string `json:"pmid"`
	Title    string `json:"title"`
	Journal  string `json:"journal,omitempty"`
	Year     string `json:"year,omitempty"`
	Abstract string `json:"abstract"`
}

// LiteratureOutput is the output schema for the rank_literature tool.
type LiteratureOutput struct {
	Passages []PassageOutput `json:"passages"`
	Articles int             `json:"articles"`
}

// InsightInput is the input schema for the generate_insight tool.
type InsightInput struct {
	Drug      string       `json:"drug" jsonschema:"drug the narrative is about"`
	Patient   PatientInput `json:"patient"`
	SessionID string       `json:"session_id,omitempty" jsonschema:"progress session id chosen by the client so insight_progress can be polled while the run is going; a random one is created when empty"`
}

// ProgressInput is the input schema for the insight_progress tool.
type ProgressInput struct {
	SessionID string `json:"session_id" jsonschema:"session id passed to or returned by generate_insight"`
}

// ProgressOutput is the output schema for the insight_progress tool.
type ProgressOutput struct {
	SessionID string `json:"session_id"`
	Percent   int    `json:"progress"`
	Status    string `json:"status"`
	Details   string `json:"details,omitempty"`
	Complete  bool   `json:"isComplete"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	addTool(s, "dataset_stats", "Summarise the loaded FAERS dataset", s.handleStats)
	addTool(s, "top_reactions",
		"Rank the most frequent adverse reactions among cases matching demographic and drug criteria",
		s.handleTopReactions)
	addTool(s, "reaction_profile",
		"Top reactions for a drug within the patient's age bucket, weight bucket and sex",
		s.handleReactionProfile)
	addTool(s, "similar_cases", "Find the FAERS reports most similar to a patient", s.handleSimilarCases)

	if s.ports.Retrieval != nil {
		addTool(s, "rank_literature",
			"Search PubMed for a drug and return the abstracts most relevant to a question",
			s.handleRankLiterature)
	}
	if s.ports.Insight != nil {
		addTool(s, "generate_insight",
			"Write a literature-grounded safety narrative for a drug and patient",
			s.handleGenerateInsight)
	}
	if s.ports.Progress != nil {
		addTool(s, "insight_progress", "Report the progress of an insight session", s.handleInsightProgress)
	}
}

func addTool[In, Out any](s *Server, name, description string, h mcp.ToolHandlerFor[In, Out]) {
	mcp.AddTool(s.server, &mcp.Tool{Name: name, Description: description}, h)
	s.tools = append(s.tools, name)
}

func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.ports.Analysis.Stats(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}
	return nil, StatsOutput{
		Quarter:       stats.Quarter,
		Cases:         stats.Cases,
		WithAge:       stats.WithAge,
		WithWeight:    stats.WithWeight,
		WithSex:       stats.WithSex,
		DistinctDrugs: stats.DistinctDrugs,
		DistinctTerms: stats.DistinctTerms,
	}, nil
}

func (s *Server) handleTopReactions(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TopReactionsInput,
) (*mcp.CallToolResult, ReactionsOutput, error) {
	criteria, err := input.criteria()
	if err != nil {
		return nil, ReactionsOutput{}, err
	}
	freqs, err := s.ports.Analysis.TopReactions(ctx, criteria, input.K)
	if err != nil {
		return nil, ReactionsOutput{}, err
	}
	return nil, ReactionsOutput{Reactions: reactionOutputs(freqs)}, nil
}

func (in TopReactionsInput) criteria() (domain.SelectionCriteria, error) {
	var c domain.SelectionCriteria
	var err error
	if c.Age, err = interval("age", in.AgeMin, in.AgeMax); err != nil {
		return c, err
	}
	if c.Weight, err = interval("weight", in.WeightMin, in.WeightMax); err != nil {
		return c, err
	}
	c.Sex = domain.ParseSex(in.Sex)
	c.Drug = strings.TrimSpace(in.Drug)
	c.Medications = in.Medications
	return c, nil
}

// interval builds [lo, hi). A nil bound is open.
func interval(name string, lo, hi *float64) (*domain.Interval, error) {
	if lo == nil && hi == nil {
		return nil, nil
	}
	iv := &domain.Interval{Start: 0, End: math.Inf(1)}
	if lo != nil {
		iv.Start = *lo
	}
	if hi != nil {
		iv.End = *hi
	}
	if !(iv.End > iv.Start) {
		return nil, fmt.Errorf("%w: empty %s range %s", domain.ErrInvalidInput, name, iv)
	}
	return iv, nil
}

func (s *Server) handleReactionProfile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ProfileInput,
) (*mcp.CallToolResult, ProfileOutput, error) {
	profile, err := s.ports.Analysis.ReactionProfile(ctx, input.Drug, input.Patient.profile())
	if err != nil {
		return nil, ProfileOutput{}, err
	}

	out := ProfileOutput{
		ByAge:    reactionOutputs(profile.ByAge),
		ByWeight: reactionOutputs(profile.ByWeight),
		BySex:    reactionOutputs(profile.BySex),
	}
	if profile.AgeBucket != nil {
		out.AgeBucket = profile.AgeBucket.String()
	}
	if profile.WeightBucket != nil {
		out.WeightBucket = profile.WeightBucket.String()
	}
	return nil, out, nil
}

func (s *Server) handleSimilarCases(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SimilarInput,
) (*mcp.CallToolResult, SimilarOutput, error) {
	scored, err := s.ports.Analysis.SimilarCases(ctx, input.Patient.profile())
	if err != nil {
		return nil, SimilarOutput{}, err
	}

	out := SimilarOutput{Cases: make([]CaseOutput, 0, len(scored)), Count: len(scored)}
	for i := range scored {
		c := &scored[i].Case
		norm, err := c.Demographics.Normalize()
		if err != nil {
			return nil, SimilarOutput{}, err
		}
		co := CaseOutput{
			PrimaryID: c.PrimaryID,
			Score:     scored[i].Score.Total,
			AgeYears:  measurePtr(norm.AgeYears),
			WeightKG:  measurePtr(norm.WeightKG),
			Sex:       norm.Sex.Description(),
			Drugs:     c.DrugNames(),
			Reactions: c.ReactionTerms(),
		}
		for _, o := range c.Outcomes {
			co.Outcomes = append(co.Outcomes, o.Description())
		}
		out.Cases = append(out.Cases, co)
	}
	return nil, out, nil
}

func (s *Server) handleRankLiterature(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LiteratureInput,
) (*mcp.CallToolResult, LiteratureOutput, error) {
	maxResults := input.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	n := input.Passages
	if n <= 0 {
		n = defaultPassages
	}

	passages, err := s.ports.Retrieval.BuildKnowledgeBase(ctx, input.Drug, maxResults)
	if err != nil {
		return nil, LiteratureOutput{}, err
	}
	relevant, err := s.ports.Retrieval.RelevantPassages(ctx, input.Query, passages, n)
	if err != nil {
		return nil, LiteratureOutput{}, err
	}

	out := LiteratureOutput{Passages: make([]PassageOutput, len(relevant)), Articles: len(passages)}
	for i := range relevant {
		rec := relevant[i].Record
		out.Passages[i] = PassageOutput{
			PMID:     rec.PMID,
			Title:    rec.Title,
			Journal:  rec.Journal,
			Year:     rec.Year,
			Abstract: rec.Abstract,
		}
	}
	return nil, out, nil
}

func (s *Server) handleGenerateInsight(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input InsightInput,
) (*mcp.CallToolResult, domain.InsightReport, error) {
	report, err := s.ports.Insight.Generate(ctx, input.SessionID, input.Drug, input.Patient.profile())
	if err != nil {
		return nil, domain.InsightReport{}, err
	}
	return nil, *report, nil
}

func (s *Server) handleInsightProgress(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ProgressInput,
) (*mcp.CallToolResult, ProgressOutput, error) {
	p, err := s.ports.Progress.Get(ctx, input.SessionID)
	if err != nil {
		return nil, ProgressOutput{}, err
	}
	return nil, ProgressOutput{
		SessionID: p.SessionID,
		Percent:   p.Percent,
		Status:    p.Status,
		Details:   p.Details,
		Complete:  p.Complete,
	}, nil
}

func reactionOutputs(freqs []domain.ReactionFrequency) []ReactionOutput {
	if freqs == nil {
		return nil
	}
	out := make([]ReactionOutput, len(freqs))
	for i, f := range freqs {
		out[i] = ReactionOutput{Term: f.Term, Cases: f.Cases, Fraction: f.Fraction}
	}
	return out
}

func measurePtr(m domain.Measure) *float64 {
	if !m.Valid {
		return nil
	}
	v := m.Value
	return &v
}
