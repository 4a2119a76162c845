package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"payrecon/internal/config"
	"payrecon/internal/logger"
	"payrecon/internal/moysklad"
	"payrecon/internal/reconciliation"
	"payrecon/internal/sheets"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one payment→invoice reconciliation batch",
	Long: `Run one reconciliation batch against МойСклад.

The command fetches all unattached incoming payments and the current sales
invoice snapshot, matches each payment to at most one unpaid invoice, and
pushes the attachment updates back. A run either fully succeeds or fails
before any remote mutation; retry failed runs at the batch level.

Required environment variables:
  MOYSKLAD_TOKEN            - МойСклад API access token
  ATTACHMENT_ATTRIBUTE_NAME - paymentin attribute marking attached payments`,
	Example: `  # Full reconciliation run
  payrecon reconcile

  # Compute matches without touching the accounting system
  payrecon reconcile --dry-run

  # Also append the run report to a Google Sheet
  payrecon reconcile --report-sheet-url "https://docs.google.com/spreadsheets/d/..."`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().Bool("dry-run", false, "Compute matches but don't send updates")
	reconcileCmd.Flags().String("report-sheet-url", "", "Google Sheets URL to append the run report to (default: REPORT_SHEET_URL)")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("reconcile")

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	reportSheetURL, _ := cmd.Flags().GetString("report-sheet-url")
	if reportSheetURL == "" {
		reportSheetURL = os.Getenv("REPORT_SHEET_URL")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration is incomplete: %w", err)
	}

	log.Info().
		Bool("dry_run", dryRun).
		Str("base_url", cfg.MoySkladBaseURL).
		Str("attribute", cfg.AttachmentAttributeName).
		Msg("Starting reconciliation")

	ctx := context.Background()

	client, err := moysklad.NewClient(moysklad.Config{
		BaseURL: cfg.MoySkladBaseURL,
		Token:   cfg.MoySkladToken,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize МойСклад client: %w", err)
	}

	attribute, err := client.FetchAttributeDescriptor(ctx, cfg.AttachmentAttributeName)
	if err != nil {
		return fmt.Errorf("failed to resolve attachment attribute: %w", err)
	}

	var sender reconciliation.Sender = client
	if dryRun {
		sender = reconciliation.NewDryRunSender()
	}

	engine := reconciliation.NewEngine(client.PaymentSource(attribute), client, sender, attribute)

	result, err := engine.Run(ctx)
	if err != nil {
		return fmt.Errorf("reconciliation run failed: %w", err)
	}

	log.Info().
		Str("run_id", result.RunID).
		Int("payments", result.Payments).
		Int("matched", result.Matched).
		Int("skipped_ineligible", result.SkippedIneligible).
		Int("skipped_no_match", result.SkippedNoMatch).
		Int("skipped_capacity", result.SkippedCapacity).
		Msg("Reconciliation completed")

	if reportSheetURL != "" && !dryRun {
		if err := exportReport(ctx, reportSheetURL, result); err != nil {
			// Report export is best effort; the updates are already sent.
			log.Error().Err(err).Msg("Failed to export run report")
		}
	}

	return nil
}

// exportReport appends the run report to the configured Google Sheet.
func exportReport(ctx context.Context, sheetURL string, result *reconciliation.RunResult) error {
	const op = "exportReport"

	service, err := sheets.NewService(ctx, sheetURL)
	if err != nil {
		return fmt.Errorf("%s: failed to initialize Google Sheets service: %w", op, err)
	}

	if err := service.WriteRunReport(ctx, result); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
