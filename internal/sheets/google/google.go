package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"budgettracker/internal/core"
	ports "budgettracker/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is used when no sheet name is configured.
const DefaultSheetName = "Transactions"

// lastColumn is the column of the last Header field.
const lastColumn = "J"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

var _ ports.Exporter = (*Client)(nil)

type Options struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
	// Endpoint overrides the API base URL and disables authentication.
	Endpoint string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(opts.SheetName)
	if sheet == "" {
		sheet = DefaultSheetName
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: opts.SpreadsheetID, sheet: sheet}, nil
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	if opts.Endpoint != "" {
		return gsheet.NewService(ctx, goption.WithEndpoint(opts.Endpoint), goption.WithoutAuthentication())
	}

	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(opts.CredentialsJSON)
	case strings.TrimSpace(opts.CredentialsFile) != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", opts.CredentialsFile)
		var err error
		credentialsJSON, err = os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Upsert overwrites the transaction's row, or appends one when the id is not
// in the sheet yet.
func (c *Client) Upsert(ctx context.Context, r ports.Row) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{r.Values()}}

	if row := findRow(ids, r.TransactionID); row > 0 {
		rng := fmt.Sprintf("%s!A%d:%s%d", c.sheet, row, lastColumn, row)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		return nil
	}

	if len(ids) == 0 {
		vr.Values = append([][]any{headerValues()}, vr.Values...)
	}
	rng := fmt.Sprintf("%s!A:%s", c.sheet, lastColumn)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.sheet, err)
	}
	return nil
}

// Remove blanks the transaction's row.
func (c *Client) Remove(ctx context.Context, transactionID int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	row := findRow(ids, transactionID)
	if row == 0 {
		slog.DebugContext(ctx, "Transaction not in sheet, nothing to remove", "transaction_id", transactionID)
		return nil
	}
	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheet, row, lastColumn, row)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) ListRows(ctx context.Context) ([]ports.Row, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:%s", c.sheet, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	var out []ports.Row
	for _, raw := range resp.Values {
		if r, ok := parseRow(toStrings(raw)); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return ids, nil
}

// findRow returns the 1-based sheet row holding id, or 0.
func findRow(ids []string, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, v := range ids {
		if v == want {
			return i + 1
		}
	}
	return 0
}

// parseRow reads a sheet row back. Header, blank and malformed rows are
// skipped.
func parseRow(cols []string) (ports.Row, bool) {
	if len(cols) < 7 {
		return ports.Row{}, false
	}
	id, err := strconv.ParseInt(cols[0], 10, 64)
	if err != nil {
		return ports.Row{}, false
	}
	date, err := core.ParseDate(cols[1])
	if err != nil {
		return ports.Row{}, false
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(cols[6], ",", "."))
	if err != nil {
		return ports.Row{}, false
	}
	r := ports.Row{
		TransactionID: id,
		Date:          date,
		Account:       cols[2],
		Category:      cols[3],
		Budget:        cols[4],
		Type:          core.TransactionType(cols[5]),
		Amount:        amount,
		Currency:      safeGet(cols, 7),
		Description:   safeGet(cols, 8),
	}
	r.Version, _ = strconv.ParseInt(safeGet(cols, 9), 10, 64)
	return r, true
}

func headerValues() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
