package core

import (
	"bytes"

	"github.com/xuri/excelize/v2"
)

// zipMagic prefixes every OOXML workbook.
var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// isWorkbook reports whether data looks like an .xlsx file.
func isWorkbook(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// readWorkbook returns the rows of the first sheet of an .xlsx workbook.
// Cells are the formatted strings Excel would display.
func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Reason: "unreadable workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Reason: "workbook has no sheets"}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Reason: "read sheet " + sheets[0], Err: err}
	}
	return rows, nil
}
