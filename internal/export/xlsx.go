// Package export renders transactions as downloadable spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"budgettracker/internal/sheets"
)

const (
	SheetName   = "Transactions"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var columnWidths = []float64{8, 12, 20, 20, 20, 10, 12, 10, 40, 8}

// WriteXLSX writes rows, preceded by sheets.Header, as a single-sheet
// workbook.
func WriteXLSX(w io.Writer, rows []sheets.Row) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	header := make([]any, len(sheets.Header))
	for i, h := range sheets.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("amount style: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			r.TransactionID,
			r.Date.String(),
			r.Account,
			r.Category,
			r.Budget,
			string(r.Type),
			r.Amount.InexactFloat64(),
			r.Currency,
			r.Description,
			r.Version,
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if len(rows) > 0 {
		last := fmt.Sprintf("G%d", len(rows)+1)
		if err := f.SetCellStyle(SheetName, "G2", last, amountStyle); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
