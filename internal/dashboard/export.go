package dashboard

import (
	"fmt"
	"io"

	"github.com/juju/errors"
	"github.com/xuri/excelize/v2"

	"refractory-tracker/internal/models"
	"refractory-tracker/internal/reconcile"
)

const reportSheet = "Requirements"

var reportHeaders = []string{
	"PO Number", "Area of Application", "Delivery Date", "Priority", "Status",
	"Material", "Unit", "Required", "Supplied", "Remaining", "Progress %", "Notes",
}

var reportWidths = []float64{16, 28, 14, 10, 12, 36, 8, 10, 10, 10, 11, 40}

// RequirementsReport builds a workbook with one row per requirement item.
// A requirement without items still gets a row.
func RequirementsReport(reqs []models.Requirement) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		f.Close()
		return nil, errors.Trace(err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	if err != nil {
		f.Close()
		return nil, errors.Trace(err)
	}
	for i, h := range reportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s1", col)
		f.SetCellValue(reportSheet, cell, h)
		f.SetCellStyle(reportSheet, cell, cell, headerStyle)
		f.SetColWidth(reportSheet, col, col, reportWidths[i])
	}

	row := 2
	for _, r := range reqs {
		lead := []any{r.PONumber, r.AreaOfApplication, r.DeliveryDate.String(), string(r.Priority), string(r.Status)}
		if len(r.SelectedItems) == 0 {
			values := append(append([]any(nil), lead...), "", "", 0, 0, 0, 0.0, r.Notes)
			if err := f.SetSheetRow(reportSheet, fmt.Sprintf("A%d", row), &values); err != nil {
				f.Close()
				return nil, errors.Trace(err)
			}
			row++
			continue
		}
		for _, item := range r.SelectedItems {
			progress := percent(item.QuantitySupplied, item.QuantityRequired).InexactFloat64()
			values := append(append([]any(nil), lead...),
				item.MaterialName,
				string(item.Unit),
				item.QuantityRequired,
				item.QuantitySupplied,
				reconcile.RemainingQuantity(item),
				progress,
				r.Notes,
			)
			if err := f.SetSheetRow(reportSheet, fmt.Sprintf("A%d", row), &values); err != nil {
				f.Close()
				return nil, errors.Trace(err)
			}
			row++
		}
	}
	return f, nil
}

// WriteRequirementsReport writes the report workbook to w.
func WriteRequirementsReport(w io.Writer, reqs []models.Requirement) error {
	f, err := RequirementsReport(reqs)
	if err != nil {
		return errors.Trace(err)
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return errors.Annotate(err, "writing requirements report")
	}
	return nil
}
