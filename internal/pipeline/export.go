package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"fscner/internal"
)

// FormatCSVCell renders a cell the way the CSV consumers expect: lists as
// Python list literals (['a', 'b']), scalars verbatim.
func FormatCSVCell(c internal.Cell) string {
	if !c.IsList {
		return c.Value
	}
	parts := make([]string, 0, len(c.List))
	for _, v := range c.List {
		parts = append(parts, pyQuote(v))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// pyQuote mimics Python's repr() for str.
func pyQuote(s string) string {
	quote := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	var b strings.Builder
	b.WriteRune(quote)
	for _, r := range s {
		switch {
		case r == quote || r == '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		case !unicode.IsPrint(r) && r != ' ':
			switch {
			case r <= 0xff:
				fmt.Fprintf(&b, `\x%02x`, r)
			case r <= 0xffff:
				fmt.Fprintf(&b, `\u%04x`, r)
			default:
				fmt.Fprintf(&b, `\U%08x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune(quote)
	return b.String()
}

// WriteCSV writes the header and one line per company.
func WriteCSV(w io.Writer, companies []internal.Company) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(internal.Columns); err != nil {
		return err
	}
	record := make([]string, len(internal.Columns))
	for _, c := range companies {
		for i, cell := range c.Cells() {
			record[i] = FormatCSVCell(cell)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes companies to outputPath, creating parent directories.
func WriteCSVFile(companies []internal.Company, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, companies); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	return f.Close()
}

func formatXLSXCell(c internal.Cell) string {
	if !c.IsList {
		return c.Value
	}
	return strings.Join(c.List, "; ")
}

// ExportCompaniesToXLSX writes companies to a single-sheet workbook.
func ExportCompaniesToXLSX(companies []internal.Company, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, h := range internal.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, company := range companies {
		r := i + 2
		for col, c := range company.Cells() {
			cell, _ := excelize.CoordinatesToCellName(col+1, r)
			_ = f.SetCellStr(sheet, cell, formatXLSXCell(c))
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 40)
	_ = f.SetColWidth(sheet, "B", "H", 28)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
