package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/faersight/internal/core/analysis"
	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
	"github.com/custodia-labs/faersight/internal/core/ports/driving"
	"github.com/custodia-labs/faersight/internal/logger"
)

// Ensure InsightService implements the interfaces.
var (
	_ driving.InsightService  = (*InsightService)(nil)
	_ driven.PromptStoreAware = (*InsightService)(nil)
)

// Pipeline checkpoints.
const (
	progressKnowledgeBase = 15
	progressSimilarity    = 40
	progressQueries       = 60
	progressSummarising   = 80
	progressGenerating    = 90
	progressFinalReport   = 95

	StatusFailed = "Failed"
)

const defaultCaseSummaryPrompt = `You are a medical research assistant. You need to provide a clear and concise summary of the risk profile for the following patient.
%s
You will be provided with a list of the closest cases reported in the FDA Adverse Event database. Similarity was computed from age, weight, sex and current medications.
Summarise the adverse effect risk profile: which reactions are most common and which drugs or combinations cause them, according to the drug roles. Report the possible outcomes if available.
The goal is a risk assessment for the patient if they start taking %s.
An empty drug_role object means none of the patient's drugs is directly related to the reactions of that case.
Write one concise paragraph that is easy for the patient to understand and states that the cases are similar to their demographic and medications.`

const defaultInsightsPrompt = `You are a clinical research assistant. Using only the patient information and the clinical trial excerpts provided, describe the expected benefits, risks, dosing considerations, interactions and monitoring needs for this patient. Cite the evidence you rely on and say when evidence is missing.`

// InsightService runs the narrative pipeline: literature knowledge base,
// similar-case summary, literature-grounded insights.
type InsightService struct {
	analysis  driving.AnalysisService
	retrieval driving.RetrievalService
	llm       driven.LLMService
	progress  driving.ProgressService
	prompts   driven.PromptStore
	retry     *RetryPolicy

	temperature float64
	literature  domain.LiteratureSettings
}

// NewInsightService creates an insight service.
// The retrieval parameter is optional; without it insights use no literature.
func NewInsightService(
	analysisService driving.AnalysisService,
	retrieval driving.RetrievalService,
	llm driven.LLMService,
	progress driving.ProgressService,
	settings domain.AppSettings,
) *InsightService {
	lit := settings.Literature
	defaults := domain.DefaultAppSettings().Literature
	if lit.MaxResults <= 0 {
		lit.MaxResults = defaults.MaxResults
	}
	if lit.PassagesPerQuery <= 0 {
		lit.PassagesPerQuery = defaults.PassagesPerQuery
	}
	return &InsightService{
		analysis:    analysisService,
		retrieval:   retrieval,
		llm:         llm,
		progress:    progress,
		retry:       NewRetryPolicy(settings.Retry),
		temperature: settings.LLM.Temperature,
		literature:  lit,
	}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *InsightService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Generate runs the full pipeline, reporting progress under sessionID.
func (s *InsightService) Generate(
	ctx context.Context, sessionID, drug string, patient domain.PatientProfile,
) (*domain.InsightReport, error) {
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	drug = strings.TrimSpace(drug)
	if drug == "" {
		return nil, fmt.Errorf("%w: empty drug name", domain.ErrInvalidInput)
	}

	sessionID, err := s.openSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	report, err := s.run(ctx, sessionID, drug, patient)
	if err != nil {
		s.markFailed(context.WithoutCancel(ctx), sessionID, err)
		return nil, err
	}
	return report, nil
}

// openSession returns the session to report under. An empty id gets a new
// session; an unknown or finished one is (re)started under the same id.
func (s *InsightService) openSession(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		id, err := s.progress.Start(ctx)
		if err != nil {
			return "", fmt.Errorf("start session: %w", err)
		}
		return id, nil
	}
	current, err := s.progress.Get(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return "", err
	case !current.Complete && current.Status != StatusFailed:
		return sessionID, nil
	}
	if err := s.progress.StartWithID(ctx, sessionID); err != nil {
		return "", err
	}
	return sessionID, nil
}

// markFailed records the failure at the last reached percentage.
func (s *InsightService) markFailed(ctx context.Context, sessionID string, cause error) {
	percent := 0
	if p, err := s.progress.Get(ctx, sessionID); err == nil {
		percent = p.Percent
	}
	if err := s.progress.Update(ctx, sessionID, percent, StatusFailed, cause.Error()); err != nil {
		logger.Warn("Failed to record failure for session %s: %v", sessionID, err)
	}
}

func (s *InsightService) run(
	ctx context.Context, sessionID, drug string, patient domain.PatientProfile,
) (*domain.InsightReport, error) {
	logger.Info("Generating insights for %s (session %s)", drug, sessionID)

	if err := s.progress.Update(ctx, sessionID, progressKnowledgeBase, "Creating medical knowledge base", ""); err != nil {
		return nil, err
	}
	knowledgeBase, err := s.knowledgeBase(ctx, drug)
	if err != nil {
		return nil, err
	}

	if err := s.progress.Update(ctx, sessionID, progressSimilarity,
		"Building similarity graph", "Filtering for cases similar to you"); err != nil {
		return nil, err
	}
	similar, err := s.analysis.SimilarCases(ctx, patient)
	if err != nil {
		return nil, fmt.Errorf("similar cases: %w", err)
	}
	summary, err := s.summariseCases(ctx, drug, patient, similar)
	if err != nil {
		return nil, err
	}

	if err := s.progress.Update(ctx, sessionID, progressQueries,
		"Querying knowledge base", "Retrieving and analysing clinical trials"); err != nil {
		return nil, err
	}
	studies, err := s.relevantStudies(ctx, ClinicalQueries(drug, patient), knowledgeBase)
	if err != nil {
		return nil, err
	}

	if err := s.progress.Update(ctx, sessionID, progressSummarising,
		"Summarising findings and computing statistics", ""); err != nil {
		return nil, err
	}
	fullContext := patient.Context() + "\nRelevant Clinical Trial Information:\n" + strings.Join(studies, "\n\n")

	if err := s.progress.Update(ctx, sessionID, progressGenerating,
		"Summarising findings and computing statistics", ""); err != nil {
		return nil, err
	}
	insights, err := s.chat(ctx, s.loadPrompt(driven.PromptInsights, defaultInsightsPrompt), fullContext)
	if err != nil {
		return nil, fmt.Errorf("generate insights: %w", err)
	}

	if err := s.progress.Update(ctx, sessionID, progressFinalReport, "Preparing final report", ""); err != nil {
		return nil, err
	}
	papers := make([]domain.LiteratureRecord, len(knowledgeBase))
	for i, p := range knowledgeBase {
		papers[i] = p.Record
	}
	report := &domain.InsightReport{
		SessionID: sessionID,
		Drug:      drug,
		Insights:  insights,
		Summary:   summary,
		Papers:    papers,
		FDACases:  len(similar),
	}

	if err := s.progress.Complete(ctx, sessionID); err != nil {
		return nil, err
	}
	logger.Info("Insights ready for %s: %d papers, %d similar cases", drug, len(papers), len(similar))
	return report, nil
}

// knowledgeBase builds the literature passages. Provider failures degrade to
// an empty knowledge base; cancellation does not.
func (s *InsightService) knowledgeBase(ctx context.Context, drug string) ([]domain.Passage, error) {
	if s.retrieval == nil {
		logger.Warn("Literature retrieval not configured, insights will use no studies")
		return nil, nil
	}
	passages, err := s.retrieval.BuildKnowledgeBase(ctx, drug, s.literature.MaxResults)
	if err != nil {
		if isContextError(err) {
			return nil, err
		}
		logger.Warn("Knowledge base unavailable for %s: %v", drug, err)
		return nil, nil
	}
	return passages, nil
}

// relevantStudies collects the best passages of every query, dropping
// duplicates while keeping first-seen order.
func (s *InsightService) relevantStudies(
	ctx context.Context, queries []string, knowledgeBase []domain.Passage,
) ([]string, error) {
	if len(knowledgeBase) == 0 {
		return []string{}, nil
	}
	seen := make(map[string]struct{})
	studies := make([]string, 0, len(queries)*s.literature.PassagesPerQuery)
	for _, q := range queries {
		passages, err := s.retrieval.RelevantPassages(ctx, q, knowledgeBase, s.literature.PassagesPerQuery)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", q, err)
		}
		for _, p := range passages {
			if _, dup := seen[p.Text]; dup {
				continue
			}
			seen[p.Text] = struct{}{}
			studies = append(studies, p.Text)
		}
	}
	logger.Debug("%d distinct passages from %d queries", len(studies), len(queries))
	return studies, nil
}

func (s *InsightService) summariseCases(
	ctx context.Context, drug string, patient domain.PatientProfile, similar []domain.ScoredCase,
) (string, error) {
	formatted, err := FormatCases(drug, patient, similar)
	if err != nil {
		return "", err
	}
	system := fmt.Sprintf(s.loadPrompt(driven.PromptCaseSummary, defaultCaseSummaryPrompt), patient.Context(), drug)
	summary, err := s.chat(ctx, system, formatted)
	if err != nil {
		return "", fmt.Errorf("summarise cases: %w", err)
	}
	return summary, nil
}

// chat sends one system and one user message under the retry policy.
func (s *InsightService) chat(ctx context.Context, system, user string) (string, error) {
	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: system},
		{Role: driven.RoleUser, Content: user},
	}
	return Retry(ctx, s.retry, "llm/"+s.llm.ModelName(), func(ctx context.Context) (string, error) {
		return s.llm.Chat(ctx, messages, driven.ChatOptions{Temperature: s.temperature})
	})
}

func (s *InsightService) loadPrompt(name, fallback string) string {
	if s.prompts == nil {
		return fallback
	}
	prompt, err := s.prompts.Load(name)
	if err != nil || strings.TrimSpace(prompt) == "" {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Prompt %s unavailable, using default: %v", name, err)
		}
		return fallback
	}
	return prompt
}

// ClinicalQueries returns the literature queries asked for a drug and patient.
func ClinicalQueries(drug string, patient domain.PatientProfile) []string {
	group := patient.AgeGroup()
	conditions := strings.Join(patient.Conditions, " ")

	queries := []string{
		fmt.Sprintf("%s clinical trial safety efficacy %s", drug, patient.Age),
		fmt.Sprintf("%s dosage administration %s KG %s", drug, patient.Weight, group),
	}
	for _, c := range patient.Conditions {
		queries = append(queries, fmt.Sprintf("%s %s interaction management", drug, c))
	}
	for _, m := range patient.Medications {
		queries = append(queries, fmt.Sprintf("%s %s drug interaction", drug, m))
	}
	return append(queries,
		fmt.Sprintf("%s %s specific considerations %s", drug, strings.ToLower(patient.Sex.Description()), group),
		fmt.Sprintf("%s monitoring requirements adverse effects %s", drug, conditions),
		fmt.Sprintf("%s long term safety outcomes %s", drug, group),
		fmt.Sprintf("%s quality of life patient outcomes adherence", drug),
		fmt.Sprintf("%s contraindications warnings precautions %s", drug, conditions),
		fmt.Sprintf("%s pharmacokinetics absorption metabolism %s KG %s", drug, patient.Weight, group),
	)
}

// formattedCase is the per-case object handed to the LLM.
type formattedCase struct {
	DrugRole  map[string]string `json:"drug_role"`
	Reactions []string          `json:"reactions"`
	Outcomes  []string          `json:"outcomes"`
}

// FormatCases renders similar cases as JSON objects separated by blank
// lines. Only drugs the patient takes or wants to start are kept; with no
// current medications only the target drug as primary suspect is kept.
func FormatCases(drug string, patient domain.PatientProfile, cases []domain.ScoredCase) (string, error) {
	target := analysis.FoldName(drug)
	meds := make(map[string]struct{}, len(patient.Medications))
	for _, m := range patient.Medications {
		meds[analysis.FoldName(m)] = struct{}{}
	}

	blocks := make([]string, 0, len(cases))
	for _, sc := range cases {
		fc := formattedCase{
			DrugRole:  make(map[string]string),
			Reactions: sc.Case.ReactionTerms(),
			Outcomes:  make([]string, 0, len(sc.Case.Outcomes)),
		}
		for _, d := range sc.Case.Drugs {
			name := analysis.FoldName(d.Name)
			if name == "" {
				continue
			}
			if len(meds) == 0 {
				if name == target && d.Role == domain.DrugRolePrimarySuspect {
					fc.DrugRole[name] = d.Role.Description()
				}
				continue
			}
			_, taking := meds[name]
			if (taking || name == target) && d.Role.IsSuspect() {
				fc.DrugRole[name] = d.Role.Description()
			}
		}
		for _, o := range sc.Case.Outcomes {
			fc.Outcomes = append(fc.Outcomes, o.Description())
		}

		data, err := json.Marshal(fc)
		if err != nil {
			return "", fmt.Errorf("format case %s: %w", sc.Case.PrimaryID, err)
		}
		blocks = append(blocks, string(data))
	}
	return strings.Join(blocks, "\n\n"), nil
}
