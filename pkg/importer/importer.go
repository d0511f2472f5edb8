package importer

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/tealeg/xlsx/v3"
	"gopkg.in/yaml.v3"

	"vendorbook-api/internal/models"
	"vendorbook-api/internal/store"
)

//go:embed mapping/vendors.yaml
var defaultMapping []byte

// Vendor fields a mapping can target.
const (
	FieldName         = "name"
	FieldContactEmail = "contact_email"
	FieldPhoneNumber  = "phone_number"
	FieldAddress      = "address"
)

// ImportOptions defines the configuration for a spreadsheet import.
type ImportOptions struct {
	MappingPath string // empty uses the embedded mapping
	DryRun      bool
	MaxErrors   int // default 50
}

// RowError describes a row that could not be imported.
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// SheetSummary contains the import statistics for a single sheet.
type SheetSummary struct {
	Name     string     `json:"name"`
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
	Samples  []RowError `json:"error_samples,omitempty"`
}

// ImportSummary contains the overall import statistics.
type ImportSummary struct {
	RunID    string         `json:"run_id"`
	Inserted int            `json:"inserted"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
	Sheets   []SheetSummary `json:"sheets"`
	DryRun   bool           `json:"dry_run"`
}

// MappingConfig maps spreadsheet headers to vendor fields.
type MappingConfig struct {
	Version int                 `yaml:"version"`
	Sheets  []string            `yaml:"sheets"`
	Columns map[string][]string `yaml:"columns"`
}

// Record is one vendor parsed from a sheet row.
type Record struct {
	Sheet  string
	Row    int
	Vendor models.VendorInput
}

// Beginner starts a transaction. *pgxpool.Pool satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

const maxSamples = 10

// InputError reports a problem with the workbook or the mapping, as opposed
// to a database failure. Its message is safe to show to the uploader.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return e.Err.Error() }

func (e *InputError) Unwrap() error { return e.Err }

var errEmptySheet = errors.New("empty sheet")

// LoadMapping reads a mapping file, or the embedded default when path is empty.
func LoadMapping(path string) (*MappingConfig, error) {
	data := defaultMapping
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read mapping")
		}
		data = b
	}

	var m MappingConfig
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "parse mapping")
	}
	if len(m.Columns[FieldName]) == 0 {
		return nil, errors.New("mapping must define aliases for name")
	}
	for field := range m.Columns {
		switch field {
		case FieldName, FieldContactEmail, FieldPhoneNumber, FieldAddress:
		default:
			return nil, fmt.Errorf("mapping: unknown vendor field %q", field)
		}
	}
	return &m, nil
}

// ImportVendors reads an xlsx workbook and upserts its rows into the vendors
// table inside one transaction. Rows match existing vendors by name,
// case-insensitively. A dry run rolls the transaction back.
func ImportVendors(ctx context.Context, db Beginner, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	summary := ImportSummary{
		RunID:  uuid.NewString(),
		DryRun: opts.DryRun,
		Sheets: []SheetSummary{},
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = 50
	}

	mapping, err := LoadMapping(opts.MappingPath)
	if err != nil {
		return summary, &InputError{Err: errors.Wrap(err, "load mapping")}
	}

	// xlsx needs random access, so the upload is buffered whole.
	data, err := io.ReadAll(r)
	if err != nil {
		return summary, &InputError{Err: errors.Wrap(err, "read workbook")}
	}

	records, sheets, err := ParseWorkbook(data, mapping)
	if err != nil {
		return summary, &InputError{Err: err}
	}
	summary.Sheets = sheets
	summary.tally()
	if summary.Errors > opts.MaxErrors {
		return summary, &InputError{Err: fmt.Errorf("too many errors (%d), stopping import", summary.Errors)}
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return summary, errors.Wrap(err, "begin import")
	}
	defer tx.Rollback(ctx)

	index := make(map[string]int, len(summary.Sheets))
	for i, sh := range summary.Sheets {
		index[sh.Name] = i
	}

	for _, rec := range records {
		sh := &summary.Sheets[index[rec.Sheet]]
		inserted, err := upsertVendor(ctx, tx, rec.Vendor)
		if err != nil {
			sh.addError(RowError{Sheet: rec.Sheet, Row: rec.Row, Message: saveFailure(err)})
			summary.tally()
			if summary.Errors > opts.MaxErrors {
				return summary, &InputError{Err: fmt.Errorf("too many errors (%d), stopping import", summary.Errors)}
			}
			continue
		}
		if inserted {
			sh.Inserted++
		} else {
			sh.Updated++
		}
	}
	summary.tally()

	if opts.DryRun {
		return summary, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return summary, errors.Wrap(err, "commit import")
	}
	return summary, nil
}

// ParseWorkbook extracts vendor records from every mapped sheet. Rows without
// any value are skipped; rows without a name are reported as errors.
func ParseWorkbook(data []byte, mapping *MappingConfig) ([]Record, []SheetSummary, error) {
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open workbook")
	}

	wanted := make(map[string]bool, len(mapping.Sheets))
	for _, name := range mapping.Sheets {
		wanted[strings.ToLower(name)] = true
	}

	var (
		records []Record
		sheets  = []SheetSummary{}
	)
	for _, sheet := range file.Sheets {
		if len(wanted) > 0 && !wanted[strings.ToLower(sheet.Name)] {
			continue
		}
		recs, sum, err := parseSheet(sheet, mapping)
		if errors.Is(err, errEmptySheet) {
			continue
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "sheet %s", sheet.Name)
		}
		records = append(records, recs...)
		sheets = append(sheets, sum)
	}
	return records, sheets, nil
}

func parseSheet(sheet *xlsx.Sheet, mapping *MappingConfig) ([]Record, SheetSummary, error) {
	summary := SheetSummary{Name: sheet.Name}
	aliases := aliasIndex(mapping)

	var (
		records []Record
		columns = map[int]string{}
		seen    int
	)
	err := sheet.ForEachRow(func(row *xlsx.Row) error {
		seen++
		values := map[int]string{}
		err := row.ForEachCell(func(cell *xlsx.Cell) error {
			if v := strings.TrimSpace(cell.String()); v != "" {
				x, _ := cell.GetCoordinates()
				values[x] = v
			}
			return nil
		})
		if err != nil {
			return err
		}

		rowNum := row.GetCoordinate() + 1
		if rowNum == 1 {
			for x, header := range values {
				if field, ok := aliases[strings.ToLower(header)]; ok {
					columns[x] = field
				}
			}
			return nil
		}

		if len(values) == 0 {
			summary.Skipped++
			return nil
		}

		var in models.VendorInput
		for x, v := range values {
			value := v
			switch columns[x] {
			case FieldName:
				in.Name = value
			case FieldContactEmail:
				in.ContactEmail = &value
			case FieldPhoneNumber:
				in.PhoneNumber = &value
			case FieldAddress:
				in.Address = &value
			}
		}
		if in.Name == "" {
			summary.addError(RowError{Sheet: sheet.Name, Row: rowNum, Message: "name is required"})
			return nil
		}
		records = append(records, Record{Sheet: sheet.Name, Row: rowNum, Vendor: in})
		return nil
	})
	if err != nil {
		return nil, summary, err
	}

	if seen == 0 {
		return nil, summary, errEmptySheet
	}
	if !hasField(columns, FieldName) {
		return nil, summary, errors.New("no name column in header row")
	}
	return records, summary, nil
}

// upsertVendor writes one vendor inside a savepoint so a failed row does not
// abort the surrounding transaction. It reports whether a row was inserted.
func upsertVendor(ctx context.Context, tx pgx.Tx, in models.VendorInput) (bool, error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer sp.Rollback(ctx)

	var id int64
	err = sp.QueryRow(ctx,
		`SELECT id FROM vendors WHERE lower(name) = lower($1) ORDER BY id LIMIT 1`,
		in.Name).Scan(&id)
	inserted := false
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = sp.Exec(ctx, `
			INSERT INTO vendors (name, contact_email, phone_number, address)
			VALUES ($1, $2, $3, $4)`,
			in.Name, in.ContactEmail, in.PhoneNumber, in.Address)
		inserted = true
	case err == nil:
		_, err = sp.Exec(ctx, `
			UPDATE vendors
			SET name = $1, contact_email = $2, phone_number = $3, address = $4
			WHERE id = $5`,
			in.Name, in.ContactEmail, in.PhoneNumber, in.Address, id)
	}
	if err != nil {
		return false, err
	}
	return inserted, sp.Commit(ctx)
}

// saveFailure describes a failed row write without the server's message text.
func saveFailure(err error) string {
	if code := store.SQLState(err); code != "" {
		return "could not save vendor (SQLSTATE " + code + ")"
	}
	return "could not save vendor"
}

func aliasIndex(m *MappingConfig) map[string]string {
	idx := make(map[string]string)
	for field, aliases := range m.Columns {
		idx[strings.ToLower(field)] = field
		for _, a := range aliases {
			idx[strings.ToLower(strings.TrimSpace(a))] = field
		}
	}
	return idx
}

func hasField(columns map[int]string, field string) bool {
	for _, f := range columns {
		if f == field {
			return true
		}
	}
	return false
}

func (s *SheetSummary) addError(e RowError) {
	s.Errors++
	if len(s.Samples) < maxSamples {
		s.Samples = append(s.Samples, e)
	}
}

func (s *ImportSummary) tally() {
	s.Inserted, s.Updated, s.Skipped, s.Errors = 0, 0, 0, 0
	for _, sh := range s.Sheets {
		s.Inserted += sh.Inserted
		s.Updated += sh.Updated
		s.Skipped += sh.Skipped
		s.Errors += sh.Errors
	}
}
