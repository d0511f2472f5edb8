package importer

import (
	"io"

	"github.com/pkg/errors"
	"github.com/tealeg/xlsx/v3"

	"vendorbook-api/internal/models"
)

// ExportSheet is the name of the sheet written by ExportVendors.
const ExportSheet = "Vendors"

var exportHeaders = []string{"Name", "Contact Email", "Phone Number", "Address", "Date Created"}

// ExportVendors writes vendors as a single-sheet xlsx workbook whose headers
// match the default import mapping.
func ExportVendors(w io.Writer, vendors []models.Vendor) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(ExportSheet)
	if err != nil {
		return errors.Wrap(err, "add sheet")
	}

	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetString(h)
	}

	for _, v := range vendors {
		row := sheet.AddRow()
		row.AddCell().SetString(v.Name)
		row.AddCell().SetString(deref(v.ContactEmail))
		row.AddCell().SetString(deref(v.PhoneNumber))
		row.AddCell().SetString(deref(v.Address))
		created := row.AddCell()
		if v.DateCreated != nil {
			created.SetDateTime(*v.DateCreated)
		}
	}

	if err := file.Write(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
