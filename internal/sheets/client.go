package sheets

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const valueInputUserEntered = "USER_ENTERED"

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
}

type Client struct {
	values        *sheetsapi.SpreadsheetsValuesService
	spreadsheetID string
	sheet         string
}

// New builds a Sheets v4 client. Without explicit options it authenticates
// with the service-account JSON in cfg.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is required")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = DefaultSheetName
	}

	if len(opts) == 0 {
		opts = []option.ClientOption{
			option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
			option.WithScopes(sheetsapi.SpreadsheetsScope),
		}
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: new service: %w", err)
	}

	return &Client{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: cfg.SpreadsheetID,
		sheet:         cfg.SheetName,
	}, nil
}

// AppendRow adds one registration row. No dedup: a second call for the same
// uid appends a second row.
func (c *Client) AppendRow(ctx context.Context, row Row) error {
	vr := &sheetsapi.ValueRange{Values: [][]any{row.values()}}

	_, err := c.values.Append(c.spreadsheetID, c.a1("A:G"), vr).
		ValueInputOption(valueInputUserEntered).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append row: %w", err)
	}
	return nil
}

// UpdateCheckinCell writes timestamp into column G of the first row whose
// column A equals uid. It never creates a row.
func (c *Client) UpdateCheckinCell(ctx context.Context, uid, timestamp string) error {
	row, err := c.findRow(ctx, uid)
	if err != nil {
		return err
	}

	vr := &sheetsapi.ValueRange{Values: [][]any{{timestamp}}}

	_, err = c.values.Update(c.spreadsheetID, c.a1("G"+strconv.Itoa(row)), vr).
		ValueInputOption(valueInputUserEntered).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: update check-in cell: %w", err)
	}
	return nil
}

// findRow scans column A top to bottom. The returned index is 1-based and
// counts the header row, matching A1 notation.
func (c *Client) findRow(ctx context.Context, uid string) (int, error) {
	resp, err := c.values.Get(c.spreadsheetID, c.a1("A:A")).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("sheets: read uid column: %w", err)
	}

	for i, r := range resp.Values {
		if len(r) == 0 {
			continue
		}
		if cell, ok := r[0].(string); ok && cell == uid {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrRowNotFound, uid)
}

var bareSheetName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// a1 prefixes rng with the sheet name, quoting any name that A1 notation
// would misread, such as "2024" or "Reg-2024".
func (c *Client) a1(rng string) string {
	return quoteSheetName(c.sheet) + "!" + rng
}

func quoteSheetName(name string) string {
	if bareSheetName.MatchString(name) {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
