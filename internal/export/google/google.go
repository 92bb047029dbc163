// Package google appends budget-alert report rows to a Google spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	ports "financebot/internal/export"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportSheet   string
}

var _ ports.ReportAppender = (*Client)(nil)

// New creates a Sheets client using service-account credentials. Either
// credentialsJSON or credentialsFile must be set.
func New(ctx context.Context, spreadsheetID, reportSheet, credentialsFile, credentialsJSON string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if strings.TrimSpace(reportSheet) == "" {
		return nil, errors.New("missing report sheet name")
	}

	svc, err := newSheetsService(ctx, credentialsFile, credentialsJSON)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportSheet:   reportSheet,
	}, nil
}

func newSheetsService(ctx context.Context, credentialsFile, credentialsJSON string) (*gsheet.Service, error) {
	var credentials []byte
	switch {
	case strings.TrimSpace(credentialsJSON) != "":
		credentials = []byte(credentialsJSON)
	case strings.TrimSpace(credentialsFile) != "":
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		credentials = data
	default:
		return nil, errors.New("missing service account credentials")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// AppendReport writes one alert row at the bottom of the report sheet and
// returns its A1 reference.
func (c *Client) AppendReport(ctx context.Context, row ports.ReportRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", c.reportSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", c.reportSheet, err)
	}
	nextRow := len(resp.Values) + 1

	dataRange := fmt.Sprintf("%s!A%d:I%d", c.reportSheet, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{{
		row.Timestamp.UTC().Format(time.RFC3339),
		row.UserID,
		row.Category,
		float64(row.BudgetedCents) / 100.0,
		float64(row.SpentCents) / 100.0,
		float64(row.RemainingCents) / 100.0,
		row.StartDate,
		row.EndDate,
		row.Reason,
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", dataRange, err)
	}

	slog.InfoContext(ctx, "Appended budget report row",
		"user_id", row.UserID,
		"category", row.Category,
		"reason", row.Reason,
		"row_ref", dataRange)

	return dataRange, nil
}
