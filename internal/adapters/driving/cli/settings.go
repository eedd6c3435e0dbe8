package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the dataset, AI providers and the embedding cache.

Use subcommands to configure specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure all settings step by step.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used to rank literature passages.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider that writes insight narratives.`,
	RunE:  runSettingsLLM,
}

var settingsCacheCmd = &cobra.Command{
	Use:   "cache [sqlite|redis|memory]",
	Short: "Select the embedding cache backend",
	Long: `Select where embeddings are persisted.

Available backends:
  sqlite - Local file under ~/.faersight/data (default)
  redis  - Shared Redis hash, one per embedding model
  memory - Process lifetime only`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSettingsCache,
}

var settingsDatasetCmd = &cobra.Command{
	Use:   "dataset <path>",
	Short: "Set the FAERS dataset path",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsDataset,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsCacheCmd)
	settingsCmd.AddCommand(settingsDatasetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsUnavailable
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(heading("Current Settings"))
	cmd.Println()

	cmd.Println("[Dataset]")
	if settings.Dataset.Path != "" {
		cmd.Printf("  Path: %s\n", settings.Dataset.Path)
	} else {
		cmd.Println("  Path: (not set)")
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[LLM]")
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())
	cmd.Printf("  Temperature: %g\n", settings.LLM.Temperature)
	cmd.Println()

	cmd.Println("[Cache]")
	cmd.Printf("  Backend: %s\n", settings.Cache.Backend)
	switch settings.Cache.Backend {
	case domain.CacheBackendRedis:
		cmd.Printf("  Address: %s (db %d)\n", settings.Cache.RedisAddr, settings.Cache.RedisDB)
	case domain.CacheBackendSQLite, "":
		if settings.Cache.Dir != "" {
			cmd.Printf("  Directory: %s\n", settings.Cache.Dir)
		}
	}
	cmd.Println()

	cmd.Println("[Analysis]")
	cmd.Printf("  Top reactions: %d\n", settings.Analysis.TopK)
	cmd.Printf("  Bucket width: %g\n", settings.Analysis.BucketWidth)
	cmd.Printf("  Similarity threshold: %g\n", settings.Analysis.SimilarityThreshold)
	cmd.Printf("  Similar cases: %d\n", settings.Analysis.SimilarLimit)
	cmd.Println()

	cmd.Println("[Literature]")
	cmd.Printf("  Endpoint: %s\n", settings.Literature.BaseURL)
	cmd.Printf("  Articles per drug: %d\n", settings.Literature.MaxResults)
	if settings.Literature.Email != "" {
		cmd.Printf("  Contact email: %s\n", settings.Literature.Email)
	}
	if settings.Literature.APIKey != "" {
		cmd.Printf("  NCBI API Key: %s\n", maskAPIKey(settings.Literature.APIKey))
	} else {
		cmd.Println("  NCBI API Key: (not set, keyless rate limit)")
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Println(warn(fmt.Sprintf("Warning: %v", err)))
		cmd.Println("Run 'faersight settings wizard' to fix configuration issues.")
	} else {
		cmd.Println(success("Configuration is valid."))
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() && baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Println("  API Key: (not set)")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsUnavailable
	}

	cmd.Println(heading("faersight Settings Wizard"))
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Dataset")
	cmd.Println("---------------")
	current, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	cmd.Printf("Path to FAERS JSON export [%s]: ", current.Dataset.Path)
	if path := readLine(reader); path != "" {
		if err := settingsService.SetDatasetPath(path); err != nil {
			return fmt.Errorf("failed to set dataset path: %w", err)
		}
	}
	cmd.Println()

	cmd.Println("Step 2: Embedding Provider")
	cmd.Println("--------------------------")
	cmd.Print("Configure literature ranking? [Y/n]: ")
	if answerYes(readLine(reader), true) {
		if err := configureEmbeddingProvider(cmd, reader); err != nil {
			return err
		}
	}

	cmd.Println("Step 3: LLM Provider")
	cmd.Println("--------------------")
	cmd.Print("Configure insight narratives? [Y/n]: ")
	if answerYes(readLine(reader), true) {
		if err := configureLLMProvider(cmd, reader); err != nil {
			return err
		}
	}

	cmd.Println("Step 4: Embedding Cache")
	cmd.Println("-----------------------")
	if err := configureCacheBackend(cmd, reader); err != nil {
		return err
	}

	cmd.Println(heading("Configuration Complete!"))
	if err := settingsService.Validate(); err != nil {
		cmd.Println(warn(fmt.Sprintf("Warning: %v", err)))
	} else {
		cmd.Println(success("All settings are valid and saved."))
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsUnavailable
	}
	return configureEmbeddingProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errSettingsUnavailable
	}
	return configureLLMProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func runSettingsCache(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errSettingsUnavailable
	}
	if len(args) == 0 {
		return configureCacheBackend(cmd, bufio.NewReader(cmd.InOrStdin()))
	}

	backend := domain.CacheBackend(strings.ToLower(args[0]))
	if err := settingsService.SetCacheBackend(backend); err != nil {
		return fmt.Errorf("failed to set cache backend: %w", err)
	}
	cmd.Printf("Embedding cache backend set to: %s\n", backend)
	return nil
}

func runSettingsDataset(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errSettingsUnavailable
	}
	if err := settingsService.SetDatasetPath(args[0]); err != nil {
		return fmt.Errorf("failed to set dataset path: %w", err)
	}
	cmd.Printf("Dataset path set to: %s\n", args[0])
	return nil
}

// providerRole describes one of the two provider slots the wizard fills.
type providerRole struct {
	name      string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	set       func(domain.AIProvider, string, string) error
	validate  func() error
}

func embeddingRole() providerRole {
	return providerRole{
		name:      "Embedding",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		set:       settingsService.SetEmbeddingProvider,
		validate:  settingsService.ValidateEmbeddingConfig,
	}
}

func llmRole() providerRole {
	return providerRole{
		name:      "LLM",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		set:       settingsService.SetLLMProvider,
		validate:  settingsService.ValidateLLMConfig,
	}
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	return configureProvider(cmd, reader, embeddingRole())
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	return configureProvider(cmd, reader, llmRole())
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, role providerRole) error {
	cmd.Printf("Select %s Provider\n", role.name)
	for i, p := range role.providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	provider := role.providers[parseChoice(readLine(reader), len(role.providers), 1)-1]

	model := role.models[provider]
	cmd.Printf("Enter model name [%s]: ", model)
	if typed := readLine(reader); typed != "" {
		model = typed
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readSecret(reader)
		cmd.Println()
		if apiKey == "" {
			return fmt.Errorf("%s: API key is required for %s", role.name, provider)
		}
	}

	if err := role.set(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", role.name, err)
	}

	cmd.Print("Validating configuration... ")
	if err := role.validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", role.name, err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n\n", role.name, provider.Description(), model)
	return nil
}

func configureCacheBackend(cmd *cobra.Command, reader *bufio.Reader) error {
	backends := []domain.CacheBackend{
		domain.CacheBackendSQLite,
		domain.CacheBackendRedis,
		domain.CacheBackendMemory,
	}
	cmd.Println("Select Cache Backend")
	for i, b := range backends {
		cmd.Printf("  %d. %s\n", i+1, b)
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(backends), 1)
	selected := backends[idx-1]

	if err := settingsService.SetCacheBackend(selected); err != nil {
		return fmt.Errorf("failed to set cache backend: %w", err)
	}
	cmd.Printf("Embedding cache backend set to: %s\n\n", selected)
	return nil
}

func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

func answerYes(input string, defaultVal bool) bool {
	switch strings.ToLower(input) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return defaultVal
	}
}

// readSecret reads without echo when stdin is a terminal.
func readSecret(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
