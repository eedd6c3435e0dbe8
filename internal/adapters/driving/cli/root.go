// Package cli is the cobra command-line adapter. Commands talk to the core
// only through the driving ports held in the package-level service vars.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/faersight/internal/core/ports/driving"
	"github.com/custodia-labs/faersight/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Services holds the driving ports the commands use. Retrieval, Insight and
// Progress are nil when no AI provider is configured.
type Services struct {
	Settings  driving.SettingsService
	Analysis  driving.AnalysisService
	Retrieval driving.RetrievalService
	Insight   driving.InsightService
	Progress  driving.ProgressService
	Export    driving.ExportService
}

// Options are the global flag values passed to the Bootstrapper.
type Options struct {
	Verbose     bool
	DatasetPath string

	// ValidateProviders asks for AI providers to be pinged before use.
	ValidateProviders bool
}

// Bootstrapper builds the services for one invocation. The returned cleanup
// releases adapters and may be nil.
type Bootstrapper func(ctx context.Context, opts Options) (*Services, func(), error)

var (
	settingsService  driving.SettingsService
	analysisService  driving.AnalysisService
	retrievalService driving.RetrievalService
	insightService   driving.InsightService
	progressService  driving.ProgressService
	exportService    driving.ExportService

	bootstrap Bootstrapper
	cleanup   func()
)

var (
	verboseFlag bool
	datasetFlag string
)

var rootCmd = &cobra.Command{
	Use:   "faersight",
	Short: "Explore FDA adverse event reports for a drug and a patient",
	Long: `faersight analyses FAERS adverse-event reports.

It selects cases by demographics and medication, ranks the most frequent
reactions, finds the reports most similar to a patient and, with an AI
provider configured, grounds a narrative in PubMed literature.`,
	SilenceUsage:      true,
	PersistentPreRunE: runBootstrap,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "print debug logs")
	rootCmd.PersistentFlags().StringVar(&datasetFlag, "dataset", "", "path to the FAERS JSON export (overrides settings)")
}

// SetBootstrapper installs the service factory used before each command.
func SetBootstrapper(b Bootstrapper) {
	bootstrap = b
}

// SetServices installs services directly, bypassing the Bootstrapper.
func SetServices(s *Services) {
	settingsService = s.Settings
	analysisService = s.Analysis
	retrievalService = s.Retrieval
	insightService = s.Insight
	progressService = s.Progress
	exportService = s.Export
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer func() {
		if cleanup != nil {
			cleanup()
			cleanup = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verboseFlag)
	if bootstrap == nil || cmd == versionCmd {
		return nil
	}

	svc, done, err := bootstrap(cmd.Context(), Options{
		Verbose:           verboseFlag,
		DatasetPath:       datasetFlag,
		ValidateProviders: cmd == mcpServeCmd,
	})
	if err != nil {
		return err
	}
	SetServices(svc)
	cleanup = done
	return nil
}

var (
	errAnalysisUnavailable = errors.New("analysis service not configured")
	errSettingsUnavailable = errors.New("settings service not configured")
)
