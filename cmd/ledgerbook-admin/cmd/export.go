package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"ledgerbook/internal/core"
	"ledgerbook/internal/export"
	"ledgerbook/internal/ledger"
)

var (
	outputDir string
	asPDF     bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write month or party reports to files",
	Long: `Write the same files the export endpoints serve, without the server.

Example:
  ledgerbook-admin export month 2024-01
  ledgerbook-admin export month 2024-01 --pdf -o ./out
  ledgerbook-admin export party 7`,
}

var exportMonthCmd = &cobra.Command{
	Use:   "month <YYYY-MM>",
	Short: "Export a month report as a workbook, or a PDF with --pdf",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		month := args[0]
		if err := core.ValidateMonth(month); err != nil {
			return err
		}

		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		report, err := ledger.NewService(repo, nil).MonthlyReport(cmd.Context(), month)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		name := export.MonthWorkbookFilename(month)
		if asPDF {
			name = export.MonthPDFFilename(month)
			err = export.WriteMonthPDF(&buf, report)
		} else {
			err = export.WriteMonthWorkbook(&buf, report)
		}
		if err != nil {
			return err
		}

		path, err := writeExport(name, buf.Bytes())
		if err != nil {
			return err
		}
		logger.Info("Month exported", "month", month, "rows", len(report.Rows), "path", path)
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var exportPartyCmd = &cobra.Command{
	Use:   "party <id>",
	Short: "Export a party statement as a workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("%w: invalid party id %q", core.ErrInvalidInput, args[0])
		}

		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		statement, err := ledger.NewService(repo, nil).PartyStatement(cmd.Context(), id)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := export.WritePartyWorkbook(&buf, statement); err != nil {
			return err
		}
		path, err := writeExport(export.PartyWorkbookFilename(statement.Party.Name), buf.Bytes())
		if err != nil {
			return err
		}
		logger.Info("Party exported", "party_id", id, "entries", len(statement.Entries), "path", path)
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func writeExport(name string, content []byte) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(outputDir, filepath.Base(name))
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func init() {
	exportCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", ".", "output directory")
	exportMonthCmd.Flags().BoolVar(&asPDF, "pdf", false, "write a printable PDF instead of a workbook")

	exportCmd.AddCommand(exportMonthCmd)
	exportCmd.AddCommand(exportPartyCmd)
}
