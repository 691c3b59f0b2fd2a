package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"fscner/internal"
)

// PrintPreview renders the first n companies as a table.
func PrintPreview(w io.Writer, companies []internal.Company, n int) {
	if n <= 0 || len(companies) == 0 {
		return
	}
	if n > len(companies) {
		n = len(companies)
	}

	fmt.Fprintf(w, "%s Result ready %s\n", strings.Repeat("-", 14), strings.Repeat("-", 14))

	table := tablewriter.NewWriter(w)
	table.SetHeader(append([]string{"#"}, internal.Columns...))
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	for i, c := range companies[:n] {
		row := []string{fmt.Sprint(i)}
		for _, cell := range c.Cells() {
			row = append(row, FormatCSVCell(cell))
		}
		table.Append(row)
	}
	table.Render()
}
