package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Attendance"

// renderCSV quotes every field and joins rows with newlines. Quotes inside a
// field are written as they are; downstream spreadsheets rely on this exact
// shape.
func renderCSV(lines [][]string) []byte {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, field := range line {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(field)
			b.WriteByte('"')
		}
	}
	return []byte(b.String())
}

func renderXLSX(lines [][]string) ([]byte, error) {
	const op = "export.renderXLSX"

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i, line := range lines {
		if len(line) == 0 {
			continue
		}

		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		row := make([]any, len(line))
		for j, v := range line {
			row[j] = v
		}

		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := f.SetColWidth(sheetName, "A", "I", 18); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return buf.Bytes(), nil
}
