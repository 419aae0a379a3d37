// Package sheets mirrors registrations and check-ins into a Google Sheets
// spreadsheet. Rows are keyed by the user id in column A; column G holds the
// latest check-in timestamp.
package sheets

import (
	"context"
	"errors"
)

var (
	ErrRowNotFound       = errors.New("sheets: no row for uid")
	ErrMirrorUnavailable = errors.New("sheets: mirror not configured")
	ErrCircuitOpen       = errors.New("sheets: circuit breaker open")
)

const DefaultSheetName = "Registrazioni"

// Row is one registration as it appears in the sheet, columns A to F.
type Row struct {
	UID       string
	FirstName string
	LastName  string
	Email     string
	School    string
	DOB       string
}

func (r Row) values() []any {
	return []any{r.UID, r.FirstName, r.LastName, r.Email, r.School, r.DOB, ""}
}

type Mirror interface {
	AppendRow(ctx context.Context, row Row) error
	UpdateCheckinCell(ctx context.Context, uid, timestamp string) error
}

// Disabled is used when no spreadsheet credentials are configured.
type Disabled struct{}

func (Disabled) AppendRow(context.Context, Row) error { return ErrMirrorUnavailable }

func (Disabled) UpdateCheckinCell(context.Context, string, string) error {
	return ErrMirrorUnavailable
}
