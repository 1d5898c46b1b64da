package parser

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

const columnSeparator = "  "

func parseXLSX(data []byte) (string, error) {
	rows, err := readExcelize(data)
	if err != nil {
		log.Warn().Err(err).Msg("excelize could not read workbook, retrying with tealeg/xlsx")
		rows, err = readTealeg(data)
		if err != nil {
			return "", fmt.Errorf("failed to open xlsx: %w", err)
		}
	}
	return renderTable(rows), nil
}

// readExcelize returns the cells of the first sheet.
func readExcelize(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	return f.GetRows(sheets[0])
}

func readTealeg(data []byte) ([][]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, err
	}
	if len(f.Sheets) == 0 {
		return nil, nil
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, len(row.Cells))
		for _, cell := range row.Cells {
			cells = append(cells, cell.String())
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func parseXLS(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to read xls: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return "", fmt.Errorf("failed to open xls: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return "", nil
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		// Col formats numbers under any custom number format (index >= 164) as
		// RFC 3339 dates, so such cells can read like 1899-12-31T00:00:00Z. The
		// cell map and formats are unexported, so this cannot be corrected here.
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	return renderTable(rows), nil
}

// renderTable prints rows as a plain-text table: the first row is the
// header, every cell is right-aligned to its column width and columns are
// separated by two spaces. Blank rows after the header are dropped.
func renderTable(rows [][]string) string {
	rows = trimBlankRows(rows)
	if len(rows) == 0 {
		return ""
	}

	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}

	header := make([]string, cols)
	copy(header, rows[0])
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			header[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}
	table := append([][]string{header}, rows[1:]...)

	widths := make([]int, cols)
	for _, row := range table {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	lines := make([]string, 0, len(table))
	for _, row := range table {
		cells := make([]string, cols)
		for i := 0; i < cols; i++ {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)) + cell
		}
		lines = append(lines, strings.Join(cells, columnSeparator))
	}
	return strings.Join(lines, "\n")
}

func trimBlankRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		blank := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, row)
		}
	}
	return out
}
