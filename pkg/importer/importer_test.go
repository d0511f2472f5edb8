package importer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
	"go.uber.org/goleak"

	"vendorbook-api/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func strPtr(s string) *string {
	return &s
}

// workbook builds an xlsx file with one sheet per entry in sheets.
func workbook(t *testing.T, sheets map[string][][]string) []byte {
	t.Helper()
	file := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := file.AddSheet(name)
		require.NoError(t, err)
		for _, cells := range rows {
			row := sheet.AddRow()
			for _, c := range cells {
				row.AddCell().SetString(c)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, file.Write(&buf))
	return buf.Bytes()
}

func TestLoadMapping_Default(t *testing.T) {
	m, err := LoadMapping("")
	require.NoError(t, err)

	assert.Equal(t, 1, m.Version)
	assert.Contains(t, m.Columns[FieldName], "Name")
	assert.Contains(t, m.Columns[FieldContactEmail], "Email")
}

func TestLoadMapping_File(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, "ok.yaml")
		require.NoError(t, os.WriteFile(path, []byte("version: 2\ncolumns:\n  name: [\"Supplier\"]\n"), 0o600))

		m, err := LoadMapping(path)
		require.NoError(t, err)
		assert.Equal(t, 2, m.Version)
		assert.Equal(t, []string{"Supplier"}, m.Columns[FieldName])
	})

	t.Run("missing name aliases", func(t *testing.T) {
		path := filepath.Join(dir, "noname.yaml")
		require.NoError(t, os.WriteFile(path, []byte("columns:\n  address: [\"Addr\"]\n"), 0o600))

		_, err := LoadMapping(path)
		assert.Error(t, err)
	})

	t.Run("unknown field", func(t *testing.T) {
		path := filepath.Join(dir, "unknown.yaml")
		require.NoError(t, os.WriteFile(path, []byte("columns:\n  name: [\"Name\"]\n  fax: [\"Fax\"]\n"), 0o600))

		_, err := LoadMapping(path)
		assert.ErrorContains(t, err, "fax")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadMapping(filepath.Join(dir, "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestParseWorkbook(t *testing.T) {
	mapping, err := LoadMapping("")
	require.NoError(t, err)

	data := workbook(t, map[string][][]string{
		"Suppliers": {
			{"Vendor Name", "E-mail", "Telephone", "Notes"},
			{"Acme", "a@acme.com", "555-0100", "ignored"},
			{"", "", "", ""},
			{"", "orphan@example.com", "", ""},
			{"  Globex  ", "", "", ""},
		},
	})

	records, sheets, err := ParseWorkbook(data, mapping)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, sheets, 1)

	assert.Equal(t, "Acme", records[0].Vendor.Name)
	assert.Equal(t, strPtr("a@acme.com"), records[0].Vendor.ContactEmail)
	assert.Equal(t, strPtr("555-0100"), records[0].Vendor.PhoneNumber)
	assert.Nil(t, records[0].Vendor.Address)
	assert.Equal(t, 2, records[0].Row)

	assert.Equal(t, "Globex", records[1].Vendor.Name)
	assert.Nil(t, records[1].Vendor.ContactEmail)

	sum := sheets[0]
	assert.Equal(t, "Suppliers", sum.Name)
	assert.Equal(t, 1, sum.Errors)
	require.Len(t, sum.Samples, 1)
	assert.Equal(t, 4, sum.Samples[0].Row)
	assert.Equal(t, "name is required", sum.Samples[0].Message)
}

func TestParseWorkbook_SheetFilter(t *testing.T) {
	mapping := &MappingConfig{
		Sheets:  []string{"vendors"},
		Columns: map[string][]string{FieldName: {"Name"}},
	}
	data := workbook(t, map[string][][]string{
		"Vendors": {{"Name"}, {"Acme"}},
		"Other":   {{"Name"}, {"Skipped Co"}},
	})

	records, sheets, err := ParseWorkbook(data, mapping)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Acme", records[0].Vendor.Name)
	require.Len(t, sheets, 1)
	assert.Equal(t, "Vendors", sheets[0].Name)
}

func TestParseWorkbook_NoNameColumn(t *testing.T) {
	mapping, err := LoadMapping("")
	require.NoError(t, err)

	data := workbook(t, map[string][][]string{
		"Vendors": {{"Email"}, {"a@acme.com"}},
	})

	_, _, err = ParseWorkbook(data, mapping)
	assert.ErrorContains(t, err, "no name column")
}

func TestParseWorkbook_NotXLSX(t *testing.T) {
	mapping, err := LoadMapping("")
	require.NoError(t, err)

	_, _, err = ParseWorkbook([]byte("not a workbook"), mapping)
	assert.Error(t, err)
}

func TestExportVendors_RoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	vendors := []models.Vendor{
		{ID: 2, Name: "Globex", Address: strPtr("1 Main St"), DateCreated: &created},
		{ID: 1, Name: "Acme", ContactEmail: strPtr("a@acme.com"), PhoneNumber: strPtr("555-0100")},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportVendors(&buf, vendors))

	mapping, err := LoadMapping("")
	require.NoError(t, err)
	records, sheets, err := ParseWorkbook(buf.Bytes(), mapping)
	require.NoError(t, err)

	require.Len(t, sheets, 1)
	assert.Equal(t, ExportSheet, sheets[0].Name)
	assert.Zero(t, sheets[0].Errors)

	require.Len(t, records, 2)
	assert.Equal(t, "Globex", records[0].Vendor.Name)
	assert.Equal(t, strPtr("1 Main St"), records[0].Vendor.Address)
	assert.Nil(t, records[0].Vendor.ContactEmail)
	assert.Equal(t, "Acme", records[1].Vendor.Name)
	assert.Equal(t, strPtr("a@acme.com"), records[1].Vendor.ContactEmail)
	assert.Equal(t, strPtr("555-0100"), records[1].Vendor.PhoneNumber)
}

func TestImportSummaryTally(t *testing.T) {
	s := ImportSummary{Sheets: []SheetSummary{
		{Inserted: 2, Updated: 1, Skipped: 1},
		{Inserted: 1, Errors: 3},
	}}
	s.tally()

	assert.Equal(t, 3, s.Inserted)
	assert.Equal(t, 1, s.Updated)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 3, s.Errors)
}

func TestSheetSummaryCapsSamples(t *testing.T) {
	var s SheetSummary
	for i := 0; i < maxSamples+5; i++ {
		s.addError(RowError{Row: i})
	}
	assert.Equal(t, maxSamples+5, s.Errors)
	assert.Len(t, s.Samples, maxSamples)
}

func TestImportVendors_InputErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("not a workbook", func(t *testing.T) {
		_, err := ImportVendors(ctx, nil, bytes.NewReader([]byte("plain text")), ImportOptions{})

		var inErr *InputError
		require.ErrorAs(t, err, &inErr)
		assert.Contains(t, inErr.Error(), "open workbook")
	})

	t.Run("too many row errors", func(t *testing.T) {
		data := workbook(t, map[string][][]string{
			"Vendors": {{"Name", "Email"}, {"", "a@example.com"}, {"", "b@example.com"}},
		})

		summary, err := ImportVendors(ctx, nil, bytes.NewReader(data), ImportOptions{MaxErrors: 1})

		var inErr *InputError
		require.ErrorAs(t, err, &inErr)
		assert.Contains(t, inErr.Error(), "too many errors (2)")
		assert.Equal(t, 2, summary.Errors)
		assert.NotEmpty(t, summary.RunID)
	})

	t.Run("missing mapping file", func(t *testing.T) {
		_, err := ImportVendors(ctx, nil, bytes.NewReader(nil), ImportOptions{MappingPath: filepath.Join(t.TempDir(), "none.yaml")})

		var inErr *InputError
		require.ErrorAs(t, err, &inErr)
	})
}

func TestSaveFailure(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23502", Message: `null value in column "name" violates not-null constraint`}

	msg := saveFailure(pgErr)
	assert.Equal(t, "could not save vendor (SQLSTATE 23502)", msg)
	assert.NotContains(t, msg, "column")

	assert.Equal(t, "could not save vendor", saveFailure(errors.New("conn closed")))
}
