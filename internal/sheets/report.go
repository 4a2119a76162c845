// Package sheets exports reconciliation run reports to Google Sheets.
package sheets

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"payrecon/internal/logger"
	"payrecon/internal/reconciliation"
)

// ReportSheetName is the tab the run report is appended to.
const ReportSheetName = "Reconciliation"

// Service handles Google Sheets operations
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
}

// NewService creates a new Google Sheets service for the given sheet URL.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS (file path) or
// GOOGLE_CREDENTIALS (inline JSON).
func NewService(ctx context.Context, sheetURL string) (*Service, error) {
	const op = "NewService"

	log := logger.WithComponent("sheets")

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}

	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	var creds []byte
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set", op)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	client := config.Client(ctx)
	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		log:           log,
	}, nil
}

// extractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL
func extractSpreadsheetID(url string) (string, error) {
	re := regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	matches := re.FindStringSubmatch(url)

	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL format")
	}

	return matches[1], nil
}

// WriteRunReport appends one row per matched payment plus a summary row to
// the report sheet.
func (s *Service) WriteRunReport(ctx context.Context, result *reconciliation.RunResult) error {
	const op = "WriteRunReport"

	s.log.Info().
		Str("run_id", result.RunID).
		Int("matches", len(result.Matches)).
		Msg("Writing run report to Google Sheet")

	processedAt := time.Now().Format("02.01.2006 15:04:05")

	var values [][]interface{}
	for _, match := range result.Matches {
		values = append(values, []interface{}{
			processedAt,
			result.RunID,
			match.Payment.ID,
			match.Invoice.Name,
			match.Invoice.ID,
			float64(match.Payment.Sum) / 100,
			match.Score,
		})
	}
	values = append(values, []interface{}{
		processedAt,
		result.RunID,
		fmt.Sprintf("итог: %d из %d", result.Matched, result.Payments),
		"",
		"",
		"",
		"",
	})

	valueRange := &sheets.ValueRange{
		Values: values,
	}

	_, err := s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		ReportSheetName+"!A:G",
		valueRange,
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()

	if err != nil {
		return fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	s.log.Info().
		Int("rows_written", len(values)).
		Msg("Successfully wrote run report to Google Sheet")

	return nil
}
