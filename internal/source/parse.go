package source

import (
	"bytes"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"fscner/internal/util"
)

// ParseRows dispatches blob to the parser for format.
func ParseRows(format Format, blob []byte) ([]string, error) {
	switch format {
	case FormatHTML:
		return parseHTMLRows(bytes.NewReader(blob))
	case FormatMHTML:
		return parseMHTMLRows(blob)
	case FormatPDF:
		return parsePDFRows(blob)
	case FormatXLSX:
		return parseXLSXRows(blob)
	case FormatText:
		return util.SplitLines(string(blob)), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// parseHTMLRows skips the first <tr> of the document (the table header) and
// joins the <td> texts of every following row.
func parseHTMLRows(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	rows := doc.Find("tr")
	out := make([]string, 0, rows.Length())
	if rows.Length() < 2 {
		return out, nil
	}
	rows.Slice(1, rows.Length()).Each(func(_ int, tr *goquery.Selection) {
		cells := []string{}
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, td.Text())
		})
		if row, ok := util.JoinCells(cells); ok {
			out = append(out, row)
		}
	})
	return out, nil
}

// parseMHTMLRows reads a browser "save as single file" archive.
func parseMHTMLRows(blob []byte) ([]string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	if env.HTML != "" {
		return parseHTMLRows(bytes.NewReader([]byte(env.HTML)))
	}
	for _, parts := range [][]*enmime.Part{env.Inlines, env.OtherParts} {
		for _, part := range parts {
			if part.ContentType == "text/html" {
				return parseHTMLRows(bytes.NewReader(part.Content))
			}
		}
	}
	return util.SplitLines(env.Text), nil
}

func parsePDFRows(blob []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return nil, err
	}

	out := []string{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		out = append(out, util.SplitLines(text)...)
	}
	return out, nil
}

// parseXLSXRows reads the first sheet of an exported registry, skipping its
// header row.
func parseXLSXRows(blob []byte) ([]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for i, cells := range rows {
		if i == 0 {
			continue
		}
		if row, ok := util.JoinCells(cells); ok {
			out = append(out, row)
		}
	}
	return out, nil
}
