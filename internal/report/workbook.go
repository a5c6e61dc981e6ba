package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "salesight/internal/errors"
)

// chartsSheet collects every image section; chart anchors step down the
// sheet so charts never overlap.
const (
	chartsSheet    = "Charts"
	chartRowStride = 34
)

// WorkbookWriter serializes an artifact to an xlsx workbook: one sheet per
// table section, all chart images on a single charts sheet.
type WorkbookWriter struct{}

func NewWorkbookWriter() *WorkbookWriter {
	return &WorkbookWriter{}
}

func (w *WorkbookWriter) Write(artifact *Artifact, out io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return apperrors.NewStorageError("create header style", err)
	}

	first := true
	chartRow := 1
	for _, section := range artifact.Sections {
		switch section.Kind {
		case KindTable:
			name := sheetName(section.Name)
			if first {
				if err := f.SetSheetName("Sheet1", name); err != nil {
					return apperrors.NewStorageError("rename sheet", err)
				}
				first = false
			} else if _, err := f.NewSheet(name); err != nil {
				return apperrors.NewStorageError("create sheet", err)
			}
			if err := writeTable(f, name, section.Table, headerStyle); err != nil {
				return err
			}
		case KindImage:
			if err := ensureChartsSheet(f, &first); err != nil {
				return err
			}
			anchor, err := excelize.CoordinatesToCellName(1, chartRow)
			if err != nil {
				return apperrors.NewStorageError("compute chart anchor", err)
			}
			pic := &excelize.Picture{
				Extension: ".png",
				File:      section.Image,
				Format:    &excelize.GraphicOptions{ScaleX: 0.75, ScaleY: 0.75},
			}
			if err := f.AddPictureFromBytes(chartsSheet, anchor, pic); err != nil {
				return apperrors.NewStorageError(fmt.Sprintf("embed chart %q", section.Name), err)
			}
			chartRow += chartRowStride
		}
	}

	if first {
		// Artifact had no sections; keep the default empty sheet so the
		// workbook is still openable.
		if err := f.SetSheetName("Sheet1", sheetName(artifact.Title)); err != nil {
			return apperrors.NewStorageError("rename sheet", err)
		}
	}

	f.SetActiveSheet(0)

	if _, err := f.WriteTo(out); err != nil {
		return apperrors.NewStorageError("write workbook", err)
	}
	return nil
}

func ensureChartsSheet(f *excelize.File, first *bool) error {
	if idx, err := f.GetSheetIndex(chartsSheet); err == nil && idx >= 0 {
		return nil
	}
	if *first {
		if err := f.SetSheetName("Sheet1", chartsSheet); err != nil {
			return apperrors.NewStorageError("rename sheet", err)
		}
		*first = false
		return nil
	}
	if _, err := f.NewSheet(chartsSheet); err != nil {
		return apperrors.NewStorageError("create charts sheet", err)
	}
	return nil
}

func writeTable(f *excelize.File, sheet string, t *Table, headerStyle int) error {
	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return apperrors.NewStorageError("write header row", err)
	}

	if len(t.Columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(t.Columns), 1)
		if err != nil {
			return apperrors.NewStorageError("compute header range", err)
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return apperrors.NewStorageError("style header row", err)
		}

		lastCol, err := excelize.ColumnNumberToName(len(t.Columns))
		if err != nil {
			return apperrors.NewStorageError("compute column range", err)
		}
		if err := f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
			return apperrors.NewStorageError("set column widths", err)
		}
	}

	for i, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		anchor, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apperrors.NewStorageError("compute row anchor", err)
		}
		if err := f.SetSheetRow(sheet, anchor, &cells); err != nil {
			return apperrors.NewStorageError("write data row", err)
		}
	}
	return nil
}

// sheetName clamps a section name to Excel's 31-character sheet-name limit
// and strips the characters Excel forbids.
func sheetName(name string) string {
	replacer := strings.NewReplacer(":", "", "\\", "", "/", "", "?", "", "*", "", "[", "", "]", "", "'", "")
	cleaned := replacer.Replace(name)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		cleaned = "Report"
	}
	if len(cleaned) > 31 {
		cleaned = cleaned[:31]
	}
	return cleaned
}
