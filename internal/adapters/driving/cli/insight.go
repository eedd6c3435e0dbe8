package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

var (
	errRetrievalUnavailable = fmt.Errorf("%w: run 'faersight settings embedding'", domain.ErrEmbeddingUnavailable)
	errInsightUnavailable   = fmt.Errorf("%w: run 'faersight settings wizard'", domain.ErrLLMUnavailable)
)

// progressInterval is how often insight polls the session.
var progressInterval = 500 * time.Millisecond

var (
	literaturePassages int
	literatureMax      int
	insightFlags       patientFlags
	insightJSON        bool
)

var literatureCmd = &cobra.Command{
	Use:   "literature <drug> <query>",
	Short: "Rank PubMed passages about a drug against a question",
	Long: `Search PubMed for the drug, embed every abstract through the embedding
cache and print the passages most similar to the query.`,
	Args: cobra.ExactArgs(2),
	RunE: runLiterature,
}

var insightCmd = &cobra.Command{
	Use:   "insight <drug>",
	Short: "Write a literature-grounded safety narrative for a patient",
	Long: `Run the full insight pipeline: build the PubMed knowledge base, find similar
FDA reports, retrieve the passages relevant to the patient and ask the LLM for
a narrative. Progress is reported on stderr.`,
	Args: cobra.ExactArgs(1),
	RunE: runInsight,
}

func init() {
	literatureCmd.Flags().IntVarP(&literaturePassages, "passages", "n", 3, "number of passages to print")
	literatureCmd.Flags().IntVar(&literatureMax, "max", 20, "maximum articles to fetch")

	insightFlags.register(insightCmd)
	insightCmd.Flags().BoolVar(&insightJSON, "json", false, "output the report as JSON")

	rootCmd.AddCommand(literatureCmd, insightCmd)
}

func runLiterature(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errRetrievalUnavailable
	}
	drug, query := args[0], args[1]

	passages, err := retrievalService.BuildKnowledgeBase(cmd.Context(), drug, literatureMax)
	if err != nil {
		return fmt.Errorf("knowledge base failed: %w", err)
	}
	if len(passages) == 0 {
		cmd.Printf("No PubMed articles found for %s.\n", drug)
		return nil
	}

	relevant, err := retrievalService.RelevantPassages(cmd.Context(), query, passages, literaturePassages)
	if err != nil {
		return fmt.Errorf("ranking failed: %w", err)
	}

	cmd.Println(heading(fmt.Sprintf("Literature: %s (%d articles)", drug, len(passages))))
	for i := range relevant {
		rec := relevant[i].Record
		cmd.Printf("[%d] %s\n", i+1, rec.Title)
		cmd.Println(muted(fmt.Sprintf("    PMID %s, %s %s", rec.PMID, rec.Journal, rec.Year)))
		if rec.Abstract != "" {
			cmd.Printf("    %s\n", snippet(rec.Abstract, 300))
		}
		cmd.Println()
	}
	return nil
}

func runInsight(cmd *cobra.Command, args []string) error {
	if insightService == nil || progressService == nil {
		return errInsightUnavailable
	}
	patient, err := insightFlags.profile()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	sessionID, err := progressService.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		watchProgress(cmd, sessionID, done)
	}()

	report, err := insightService.Generate(ctx, sessionID, args[0], patient)
	close(done)
	<-stopped
	if err != nil {
		return fmt.Errorf("insight generation failed: %w", err)
	}

	if insightJSON {
		return printJSON(cmd, report)
	}
	printInsight(cmd, report)
	return nil
}

// watchProgress prints each status change to stderr until done is closed.
func watchProgress(cmd *cobra.Command, sessionID string, done <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	var last string
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p, err := progressService.Get(cmd.Context(), sessionID)
			if err != nil {
				continue
			}
			line := fmt.Sprintf("[%3d%%] %s", p.Percent, p.Status)
			if line != last {
				fmt.Fprintln(cmd.ErrOrStderr(), muted(line))
				last = line
			}
		}
	}
}

func printInsight(cmd *cobra.Command, report *domain.InsightReport) {
	cmd.Println(heading("Insights: " + report.Drug))
	cmd.Println(report.Insights)
	cmd.Println()

	cmd.Println(heading(fmt.Sprintf("Similar FDA Reports (%d)", report.FDACases)))
	cmd.Println(report.Summary)
	cmd.Println()

	if len(report.Papers) > 0 {
		cmd.Println(heading("References"))
		for i, p := range report.Papers {
			cmd.Printf("  [%d] %s (%s %s) PMID %s\n", i+1, p.Title, p.Journal, p.Year, p.PMID)
		}
	}
	cmd.Println(muted("Session " + report.SessionID))
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
