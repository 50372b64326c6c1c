// Package report exports ledger query results as spreadsheets.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pratik-mahalle/gw2ledger/pkg/client"
)

const (
	valuationSheet  = "Valuation"
	completionSheet = "Completion"
)

func newWorkbook(sheet string, headers []string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			f.Close()
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// WriteValuation writes one row per valued stack followed by a total row.
// Unpriced ids are listed below the total.
func WriteValuation(w io.Writer, v *client.Valuation, generatedAt time.Time) error {
	f, err := newWorkbook(valuationSheet, []string{"Item ID", "Name", "Count", "Unit price", "Value"})
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	defer f.Close()

	row := 2
	for _, s := range v.Stacks {
		if err := setRow(f, valuationSheet, row, s.ID, s.Name, s.Count, s.UnitPrice, s.Value); err != nil {
			return err
		}
		row++
	}
	if err := setRow(f, valuationSheet, row, "Total", "", "", "", v.Total); err != nil {
		return err
	}
	row += 2
	for _, id := range v.Unpriced {
		if err := setRow(f, valuationSheet, row, id, "unpriced"); err != nil {
			return err
		}
		row++
	}
	if err := setRow(f, valuationSheet, row+1, "Generated", generatedAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	_ = f.SetColWidth(valuationSheet, "B", "B", 40)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteCompletion writes one row per ingredient followed by the overall ratio
func WriteCompletion(w io.Writer, c *client.Completion) error {
	f, err := newWorkbook(completionSheet, []string{"Item ID", "Name", "Required", "Owned", "Satisfied"})
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	defer f.Close()

	row := 2
	for _, ing := range c.Ingredients {
		if err := setRow(f, completionSheet, row, ing.ItemID, ing.Name, ing.Required, ing.Owned, ing.Satisfied); err != nil {
			return err
		}
		row++
	}
	if err := setRow(f, completionSheet, row, "Total", "", c.Required, "", c.Satisfied); err != nil {
		return err
	}
	if err := setRow(f, completionSheet, row+1, "Percent", "", "", "", c.Percent); err != nil {
		return err
	}
	_ = f.SetColWidth(completionSheet, "B", "B", 40)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
