// Package export renders item listings as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"

	"github.com/erazemk/achados/internal/i18n"
	"github.com/erazemk/achados/internal/model"
)

// ContentType is the MIME type of the XLSX output.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// dateLayout is used for the found/lost date column. Dates are shown in loc.
const dateLayout = "2006-01-02 15:04"

var columns = []struct {
	key   string
	width float64
}{
	{i18n.KeyExportName, 30},
	{i18n.KeyExportDescription, 45},
	{i18n.KeyExportCategory, 20},
	{i18n.KeyExportLocation, 20},
	{i18n.KeyExportStatus, 12},
	{i18n.KeyExportDate, 20},
	{i18n.KeyExportReporter, 18},
}

// Items writes items as a single-sheet workbook with localized headers.
func Items(w io.Writer, items []model.Item, tag language.Tag, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := i18n.Translate(tag, i18n.KeyExportSheet)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for i, c := range columns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, col+"1", i18n.Translate(tag, c.key)); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		if err := f.SetColWidth(sheet, col, col, c.width); err != nil {
			return fmt.Errorf("sizing column: %w", err)
		}
	}
	last, _ := excelize.ColumnNumberToName(len(columns))
	if err := f.SetCellStyle(sheet, "A1", last+"1", header); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, item := range items {
		row := i + 2
		date := ""
		if item.FoundLostDate != nil {
			date = item.FoundLostDate.In(loc).Format(dateLayout)
		}
		values := []any{
			item.Name,
			item.Description,
			item.CategoryName,
			item.LocationName,
			statusLabel(tag, item.Status),
			date,
			item.Username,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", row, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func statusLabel(tag language.Tag, status string) string {
	switch status {
	case model.ItemStatusFound:
		return i18n.Translate(tag, i18n.KeyStatusFound)
	case model.ItemStatusLost:
		return i18n.Translate(tag, i18n.KeyStatusLost)
	default:
		return status
	}
}
