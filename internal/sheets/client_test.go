package sheets_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/jumpin/internal/sheets"
	"github.com/geocoder89/jumpin/internal/sheets/sheetstest"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*sheets.Client, *sheetstest.Server) {
	t.Helper()

	fake := sheetstest.NewServer(t, "sheet-123", sheets.DefaultSheetName)
	c, err := sheets.New(context.Background(), sheets.Config{
		SpreadsheetID: fake.SpreadsheetID,
		SheetName:     fake.Sheet,
	}, fake.Options()...)
	require.NoError(t, err)
	return c, fake
}

func TestClient_AppendThenUpdate(t *testing.T) {
	c, fake := newClient(t)
	ctx := context.Background()

	require.NoError(t, c.AppendRow(ctx, sheets.Row{
		UID: "u-1", FirstName: "Anna", LastName: "Bianchi", Email: "anna@example.com",
		School: "Liceo Scientifico A. Einstein", DOB: "2007-03-14",
	}))

	rows := fake.Rows()
	require.Len(t, rows, 2)
	require.Equal(t, []string{"u-1", "Anna", "Bianchi", "anna@example.com", "Liceo Scientifico A. Einstein", "2007-03-14", ""}, rows[1])

	require.NoError(t, c.UpdateCheckinCell(ctx, "u-1", "2024-05-01T10:00:00Z"))
	require.Equal(t, "2024-05-01T10:00:00Z", fake.Rows()[1][6])
}

func TestClient_UpdateFirstMatchWins(t *testing.T) {
	c, fake := newClient(t)
	ctx := context.Background()

	row := sheets.Row{UID: "dup", FirstName: "A", LastName: "B", Email: "a@b.c", School: "S", DOB: "2000-01-01"}
	require.NoError(t, c.AppendRow(ctx, row))
	require.NoError(t, c.AppendRow(ctx, row))

	require.NoError(t, c.UpdateCheckinCell(ctx, "dup", "2024-05-01T10:00:00Z"))

	rows := fake.Rows()
	require.Equal(t, "2024-05-01T10:00:00Z", rows[1][6])
	require.Equal(t, "", rows[2][6])
}

func TestClient_UpdateMissingUIDNeverCreatesRow(t *testing.T) {
	c, fake := newClient(t)

	err := c.UpdateCheckinCell(context.Background(), "ghost", "2024-05-01T10:00:00Z")
	require.ErrorIs(t, err, sheets.ErrRowNotFound)
	require.Len(t, fake.Rows(), 1)
}

func TestClient_AppendTransportFailure(t *testing.T) {
	c, fake := newClient(t)
	fake.FailAppend(true)

	err := c.AppendRow(context.Background(), sheets.Row{UID: "u"})
	require.Error(t, err)
	require.False(t, errors.Is(err, sheets.ErrRowNotFound))
	require.Len(t, fake.Rows(), 1)
}

func TestDisabled(t *testing.T) {
	var m sheets.Mirror = sheets.Disabled{}
	require.ErrorIs(t, m.AppendRow(context.Background(), sheets.Row{}), sheets.ErrMirrorUnavailable)
	require.ErrorIs(t, m.UpdateCheckinCell(context.Background(), "u", time.Now().String()), sheets.ErrMirrorUnavailable)
}

func TestClient_QuotesSheetNamesA1WouldMisread(t *testing.T) {
	for _, name := range []string{"Registrazioni", "Reg_2024", "Reg-2024", "2024", "Foglio 1", "Anna's sheet", "Check!ins"} {
		t.Run(name, func(t *testing.T) {
			fake := sheetstest.NewServer(t, "sheet-q", name)
			c, err := sheets.New(context.Background(), sheets.Config{
				SpreadsheetID: fake.SpreadsheetID,
				SheetName:     name,
			}, fake.Options()...)
			require.NoError(t, err)

			ctx := context.Background()
			require.NoError(t, c.AppendRow(ctx, sheets.Row{UID: "u-q", FirstName: "A", LastName: "B", Email: "a@b.it", School: "S", DOB: "2000-01-01"}))
			require.NoError(t, c.UpdateCheckinCell(ctx, "u-q", "2024-05-01T10:00:00Z"))
			require.Equal(t, "2024-05-01T10:00:00Z", fake.Rows()[1][6])
		})
	}
}
