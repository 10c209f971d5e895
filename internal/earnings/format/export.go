package format

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/smallbiznis/royalty/internal/earnings/domain"
	"github.com/xuri/excelize/v2"
)

const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheetName = "Sheet1"
)

var (
	lessonHeader    = []string{"Music Lab", "Sales", "Gross Revenue", "Platform Fee", "Net Earnings"}
	sequencerHeader = []string{"Song Title", "Sales", "Gross Revenue", "Platform Fee", "Net Earnings"}
)

// ExportFilename names a download as <stream>-earnings-<UTC ISO timestamp>.<ext>.
func ExportFilename(stream domain.Stream, ext string, now time.Time) string {
	return fmt.Sprintf("%s-earnings-%s.%s", stream, now.UTC().Format("2006-01-02T15:04:05.000Z07:00"), ext)
}

func LessonRows(groups []domain.LessonGroup) [][]string {
	rows := make([][]string, 0, len(groups)+1)
	rows = append(rows, lessonHeader)
	for _, g := range groups {
		rows = append(rows, []string{g.Title, itoa(g.SaleCount), itoa(g.GrossRevenue), itoa(g.PlatformFee), itoa(g.NetEarnings)})
	}
	return rows
}

func SequencerRows(groups []domain.SequencerGroup) [][]string {
	rows := make([][]string, 0, len(groups)+1)
	rows = append(rows, sequencerHeader)
	for _, g := range groups {
		rows = append(rows, []string{g.SongTitle, itoa(g.SaleCount), itoa(g.GrossRevenue), itoa(g.PlatformFee), itoa(g.NetEarnings)})
	}
	return rows
}

// WriteLessonCSV writes the per-lesson rows with standard CSV quoting.
func WriteLessonCSV(w io.Writer, groups []domain.LessonGroup) error {
	return writeCSV(w, LessonRows(groups))
}

// WriteSequencerCSV writes the per-file rows with standard CSV quoting.
func WriteSequencerCSV(w io.Writer, groups []domain.SequencerGroup) error {
	return writeCSV(w, SequencerRows(groups))
}

// WriteLessonXLSX writes the per-lesson rows as a single-sheet workbook.
func WriteLessonXLSX(w io.Writer, groups []domain.LessonGroup) error {
	return writeXLSX(w, LessonRows(groups))
}

// WriteSequencerXLSX writes the per-file rows as a single-sheet workbook.
func WriteSequencerXLSX(w io.Writer, groups []domain.SequencerGroup) error {
	return writeXLSX(w, SequencerRows(groups))
}

// Render serializes rows in the requested format.
func Render(format domain.ExportFormat, rows [][]string) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case domain.ExportCSV:
		if err := writeCSV(&buf, rows); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), ContentTypeCSV, nil
	case domain.ExportXLSX:
		if err := writeXLSX(&buf, rows); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), ContentTypeXLSX, nil
	default:
		return nil, "", domain.ErrInvalidFormat
	}
}

func writeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			var cellValue interface{} = value
			if r > 0 && c > 0 {
				if n, err := strconv.ParseInt(value, 10, 64); err == nil {
					cellValue = n
				}
			}
			if err := f.SetCellValue(sheetName, cell, cellValue); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}
	if err := f.SetColWidth(sheetName, "A", "A", 32); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
