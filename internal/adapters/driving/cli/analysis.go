package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

var (
	selectFlags    criteriaFlags
	selectLimit    int
	selectJSON     bool
	reactionsFlags criteriaFlags
	reactionsTopK  int
	reactionsJSON  bool
	profileFlags   patientFlags
	similarFlags   patientFlags
	similarJSON    bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the loaded dataset",
	RunE:  runStats,
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "List cases matching demographic and medication criteria",
	Long: `Select cases whose normalised age, weight, sex and medications match every
given criterion. Ranges are half-open: --age-min is inclusive, --age-max is not.
Cases with no recorded value never match a numeric range.`,
	Args: cobra.NoArgs,
	RunE: runSelect,
}

var reactionsCmd = &cobra.Command{
	Use:   "reactions",
	Short: "Rank the most frequent reactions among selected cases",
	Long: `Rank reactions by the share of distinct cases reporting them.
Takes the same criteria as select.`,
	Args: cobra.NoArgs,
	RunE: runReactions,
}

var profileCmd = &cobra.Command{
	Use:   "profile <drug>",
	Short: "Show reactions for the patient's age, weight and sex groups",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfile,
}

var similarCmd = &cobra.Command{
	Use:   "similar",
	Short: "Find the reports most similar to a patient",
	Args:  cobra.NoArgs,
	RunE:  runSimilar,
}

func init() {
	selectFlags.register(selectCmd)
	selectCmd.Flags().IntVarP(&selectLimit, "limit", "n", 20, "maximum number of cases to print")
	selectCmd.Flags().BoolVar(&selectJSON, "json", false, "output cases as JSON")

	reactionsFlags.register(reactionsCmd)
	reactionsCmd.Flags().IntVarP(&reactionsTopK, "top", "k", 0, "number of reactions (0 uses the configured default)")
	reactionsCmd.Flags().BoolVar(&reactionsJSON, "json", false, "output reactions as JSON")

	profileFlags.register(profileCmd)

	similarFlags.register(similarCmd)
	similarCmd.Flags().BoolVar(&similarJSON, "json", false, "output cases as JSON")

	rootCmd.AddCommand(statsCmd, selectCmd, reactionsCmd, profileCmd, similarCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if analysisService == nil {
		return errAnalysisUnavailable
	}
	stats, err := analysisService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}

	cmd.Println(heading("Dataset"))
	if stats.Quarter != "" {
		cmd.Printf("  Quarter: %s\n", stats.Quarter)
	}
	cmd.Printf("  Cases: %d\n", stats.Cases)
	cmd.Printf("  With age: %d\n", stats.WithAge)
	cmd.Printf("  With weight: %d\n", stats.WithWeight)
	cmd.Printf("  With sex: %d\n", stats.WithSex)
	cmd.Printf("  Distinct drugs: %d\n", stats.DistinctDrugs)
	cmd.Printf("  Distinct reactions: %d\n", stats.DistinctTerms)
	return nil
}

func runSelect(cmd *cobra.Command, _ []string) error {
	if analysisService == nil {
		return errAnalysisUnavailable
	}
	criteria, err := selectFlags.criteria()
	if err != nil {
		return err
	}
	cases, err := analysisService.Select(cmd.Context(), criteria)
	if err != nil {
		return fmt.Errorf("selection failed: %w", err)
	}

	if selectJSON {
		return printJSON(cmd, cases)
	}
	if len(cases) == 0 {
		cmd.Println("No matching cases.")
		return nil
	}

	cmd.Printf("%d matching cases\n\n", len(cases))
	shown := cases
	if selectLimit > 0 && len(shown) > selectLimit {
		shown = shown[:selectLimit]
	}
	for i := range shown {
		printCase(cmd, &shown[i])
	}
	if len(shown) < len(cases) {
		cmd.Println(muted(fmt.Sprintf("... %d more (use --limit or --json)", len(cases)-len(shown))))
	}
	return nil
}

func runReactions(cmd *cobra.Command, _ []string) error {
	if analysisService == nil {
		return errAnalysisUnavailable
	}
	criteria, err := reactionsFlags.criteria()
	if err != nil {
		return err
	}
	freqs, err := analysisService.TopReactions(cmd.Context(), criteria, reactionsTopK)
	if err != nil {
		return fmt.Errorf("ranking failed: %w", err)
	}

	if reactionsJSON {
		return printJSON(cmd, freqs)
	}
	if len(freqs) == 0 {
		cmd.Println("No reactions found.")
		return nil
	}
	cmd.Println(heading("Top Reactions"))
	printFrequencies(cmd, freqs)
	return nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	if analysisService == nil {
		return errAnalysisUnavailable
	}
	patient, err := profileFlags.profile()
	if err != nil {
		return err
	}
	profile, err := analysisService.ReactionProfile(cmd.Context(), args[0], patient)
	if err != nil {
		return fmt.Errorf("profile failed: %w", err)
	}

	cmd.Println(heading("Reaction Profile: " + args[0]))
	printProfileSection(cmd, "Age", profile.AgeBucket, profile.ByAge, patient.Age.Valid)
	printProfileSection(cmd, "Weight", profile.WeightBucket, profile.ByWeight, patient.Weight.Valid)
	printProfileSection(cmd, "Sex "+patient.Sex.Description(), nil, profile.BySex, true)
	return nil
}

func runSimilar(cmd *cobra.Command, _ []string) error {
	if analysisService == nil {
		return errAnalysisUnavailable
	}
	patient, err := similarFlags.profile()
	if err != nil {
		return err
	}
	scored, err := analysisService.SimilarCases(cmd.Context(), patient)
	if err != nil {
		return fmt.Errorf("similarity ranking failed: %w", err)
	}

	if similarJSON {
		return printJSON(cmd, scored)
	}
	if len(scored) == 0 {
		cmd.Println("No similar cases above the threshold.")
		return nil
	}
	cmd.Println(heading("Similar Cases"))
	for i := range scored {
		s := scored[i].Score
		cmd.Printf("[%d] score %.2f (age %.2f, weight %.2f, sex %.0f, meds %.2f)\n",
			i+1, s.Total, s.Age, s.Weight, s.Sex, s.Medication)
		printCase(cmd, &scored[i].Case)
	}
	return nil
}

func printProfileSection(cmd *cobra.Command, label string, bucket *domain.Interval,
	freqs []domain.ReactionFrequency, present bool) {
	title := label
	if bucket != nil {
		title += " " + bucket.String()
	}
	cmd.Println()
	cmd.Println("[" + title + "]")
	switch {
	case !present:
		cmd.Println(muted("  not provided"))
	case len(freqs) == 0:
		cmd.Println(muted("  no matching reports"))
	default:
		printFrequencies(cmd, freqs)
	}
}

func printFrequencies(cmd *cobra.Command, freqs []domain.ReactionFrequency) {
	for i, f := range freqs {
		cmd.Printf("  %2d. %-40s %5d cases  %5.1f%%\n", i+1, f.Term, f.Cases, f.Fraction*100)
	}
}

func printCase(cmd *cobra.Command, c *domain.CaseRecord) {
	norm, err := c.Demographics.Normalize()
	if err != nil {
		cmd.Printf("  %s: %v\n\n", c.PrimaryID, err)
		return
	}
	cmd.Printf("  Case %s: age %s, weight %s kg, sex %s\n",
		c.PrimaryID, norm.AgeYears, norm.WeightKG, norm.Sex.Description())
	cmd.Printf("    Drugs: %s\n", strings.Join(c.DrugNames(), ", "))
	cmd.Printf("    Reactions: %s\n", strings.Join(c.ReactionTerms(), ", "))
	if len(c.Outcomes) > 0 {
		outcomes := make([]string, len(c.Outcomes))
		for i, o := range c.Outcomes {
			outcomes[i] = o.Description()
		}
		cmd.Printf("    Outcomes: %s\n", strings.Join(outcomes, ", "))
	}
	cmd.Println()
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
