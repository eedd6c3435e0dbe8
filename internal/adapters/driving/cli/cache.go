package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the embedding cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show embedding cache statistics",
	RunE:  runCacheStats,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return errRetrievalUnavailable
	}
	stats, err := retrievalService.CacheStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}

	cmd.Println(heading("Embedding Cache"))
	cmd.Printf("  Model: %s\n", stats.Model)
	cmd.Printf("  Entries: %d\n", stats.Entries)
	cmd.Printf("  Hits: %d\n", stats.Hits)
	cmd.Printf("  Misses: %d\n", stats.Misses)
	return nil
}
