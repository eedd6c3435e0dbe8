package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errExportUnavailable = errors.New("export service not configured")

var exportFlags patientFlags

var exportCmd = &cobra.Command{
	Use:   "export <drug> <path>",
	Short: "Write the analysis report to an XLSX workbook",
	Long: `Export dataset stats, the reaction profile, overall top reactions and the
most similar cases to a spreadsheet. ".xlsx" is appended when missing.`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

func init() {
	exportFlags.register(exportCmd)
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportService == nil {
		return errExportUnavailable
	}
	patient, err := exportFlags.profile()
	if err != nil {
		return err
	}
	path, err := exportService.Export(cmd.Context(), args[0], patient, args[1])
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	cmd.Println(success("Report written to " + path))
	return nil
}
