// Package google mirrors subscriptions to a Google Sheets spreadsheet
// using a service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"subtrack/internal/core"
	"subtrack/internal/export"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ export.BackupWriter = (*Client)(nil)

// New creates a Sheets-backed writer. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func New(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing backup spreadsheet ID")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Subscriptions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Upsert writes one subscription row keyed by its ID in column A. An
// existing row with the same ID is overwritten in place, so replays of
// the same sync message stay idempotent.
func (c *Client) Upsert(ctx context.Context, s core.Subscription) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	row, found, err := c.findRow(ctx, s.ID)
	if err != nil {
		return "", err
	}
	if !found {
		ids, err := c.readIDs(ctx)
		if err != nil {
			return "", err
		}
		row = len(ids) + 1
	}

	next := ""
	if !s.NextBillingDate.IsEmpty() {
		next = s.NextBillingDate.Format("2006-01-02")
	}

	rng := fmt.Sprintf("%s!A%d:M%d", c.sheetName, row, row)
	vr := &gsheet.ValueRange{Values: [][]any{{
		s.ID, s.UserID, s.Name, s.Description, s.Price.String(), s.Currency,
		string(s.Cycle), s.StartDate.Format("2006-01-02"), next,
		s.Category, s.Website, s.Logo, string(s.Status),
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write row %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Mirrored subscription to spreadsheet",
		"subscription_id", s.ID,
		"row", row,
		"updated", found)
	return rng, nil
}

// Delete clears the row holding the given ID. A missing row is not an
// error: the deletion may already have been mirrored.
func (c *Client) Delete(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row, found, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:M%d", c.sheetName, row, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear row %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Removed subscription from spreadsheet",
		"subscription_id", id,
		"row", row)
	return nil
}

// findRow returns the 1-based row holding id in column A.
func (c *Client) findRow(ctx context.Context, id string) (int, bool, error) {
	ids, err := c.readIDs(ctx)
	if err != nil {
		return 0, false, err
	}
	for i, v := range ids {
		if v == id {
			return i + 1, true, nil
		}
	}
	return 0, false, nil
}

func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			out = append(out, "")
			continue
		}
		out = append(out, strings.TrimSpace(fmt.Sprint(row[0])))
	}
	return out, nil
}
