package purchasing

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/errors"
	"github.com/xuri/excelize/v2"

	"refractory-tracker/internal/models"
)

// SkippedRow is a spreadsheet row that could not become a PO item.
type SkippedRow struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type ImportResult struct {
	Items   []models.POItem `json:"items"`
	Skipped []SkippedRow    `json:"skipped"`
}

// ParsePOItems reads PO items from the first sheet of an .xlsx workbook.
// Columns are material name, quantity and unit; a first row whose first
// cell mentions "material" is taken as a header. Balances start at the
// ordered quantity.
func ParsePOItems(r io.Reader) (ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, errors.NotValidf("excel file: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{}, errors.NotValidf("workbook without sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return ImportResult{}, errors.Annotatef(err, "reading sheet %q", sheets[0])
	}

	res := ImportResult{Items: []models.POItem{}, Skipped: []SkippedRow{}}
	start := 0
	if len(rows) > 0 && len(rows[0]) > 0 && strings.Contains(strings.ToUpper(rows[0][0]), "MATERIAL") {
		start = 1
	}
	seen := make(map[string]bool)
	for i := start; i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1
		cell := func(k int) string {
			if k < len(row) {
				return strings.TrimSpace(row[k])
			}
			return ""
		}

		name := cell(0)
		if name == "" {
			continue
		}
		skip := func(format string, args ...any) {
			res.Skipped = append(res.Skipped, SkippedRow{Row: rowNum, Reason: fmt.Sprintf(format, args...)})
		}
		if seen[name] {
			skip("duplicate material %q", name)
			continue
		}
		qty, err := strconv.ParseFloat(strings.ReplaceAll(cell(1), ",", ""), 64)
		if err != nil || qty <= 0 || qty != math.Trunc(qty) || qty > math.MaxInt32 {
			skip("quantity %q is not a positive whole number", cell(1))
			continue
		}
		unit := models.Unit(strings.ToLower(cell(2)))
		if unit == "" {
			unit = models.UnitPcs
		}
		if !unit.Valid() {
			skip("unit %q is not one of pcs, kgs, set", cell(2))
			continue
		}

		seen[name] = true
		res.Items = append(res.Items, models.POItem{
			MaterialName: name,
			Quantity:     int(qty),
			BalanceQty:   int(qty),
			Unit:         unit,
		})
	}
	if len(res.Items) == 0 && len(res.Skipped) == 0 {
		return ImportResult{}, errors.NotValidf("excel file without items")
	}
	return res, nil
}

// POST /api/purchase-orders/import-items (multipart, field "file")
// Parses the items only; the client submits them with the PO.
func ImportItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "missing file: "+err.Error())
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "only .xlsx files can be imported")
		}
		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not open upload: "+err.Error())
		}
		defer file.Close()

		res, err := ParsePOItems(file)
		if err != nil {
			return err
		}
		logger.Debugf("imported %d items, skipped %d rows from %s", len(res.Items), len(res.Skipped), fileHeader.Filename)
		return c.JSON(res)
	}
}
