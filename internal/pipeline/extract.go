package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	"toolcost/internal"
	"toolcost/internal/util"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText turns a file's bytes into text. Excel on Chinese Windows saves
// CSV as GBK, so anything that is not valid UTF-8 is decoded as GBK.
func DecodeText(blob []byte) string {
	blob = bytes.TrimPrefix(blob, utf8BOM)
	if utf8.Valid(blob) {
		return string(blob)
	}
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(blob), simplifiedchinese.GBK.NewDecoder()))
	if err != nil {
		return string(blob)
	}
	return string(decoded)
}

// IsSupportedQuotation reports whether ExtractDocumentText can read filename.
func IsSupportedQuotation(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt", ".xlsx", ".pdf", ".html", ".htm":
		return true
	}
	return false
}

// ExtractDocumentText returns quotation text in the CSV line format that
// ParseDocument reads, whatever the file type it arrived in.
func ExtractDocumentText(filename string, blob []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return DecodeText(blob), nil
	case ".xlsx":
		return xlsxText(blob)
	case ".pdf":
		return pdfText(blob)
	case ".html", ".htm":
		return htmlTableText(string(blob))
	default:
		return "", fmt.Errorf("unsupported quotation format: %s", filename)
	}
}

func xlsxText(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			if line := joinCells(row); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

func pdfText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var lines []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// htmlTableText reads quotation tables pasted into a mail body. A row whose
// first cell starts with "#" is a module header.
func htmlTableText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	var lines []string
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, util.NormalizeSpaces(cell.Text()))
		})
		if len(cells) > 0 && strings.HasPrefix(cells[0], "#") {
			lines = append(lines, cells[0])
			return
		}
		if line := joinCells(cells); line != "" {
			lines = append(lines, line)
		}
	})
	return strings.Join(lines, "\n"), nil
}

// HasHTMLTable reports whether a mail body carries at least one table row.
func HasHTMLTable(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find("table tr").Length() > 0
}

// joinCells rebuilds a CSV line, quoting cells that contain commas so
// SplitLine keeps them whole. Trailing empty cells are dropped, except that
// component rows are padded back to their six columns.
func joinCells(cells []string) string {
	end := len(cells)
	for end > 0 && strings.TrimSpace(cells[end-1]) == "" {
		end--
	}
	if end == 0 {
		return ""
	}
	width := end
	if IsComponentName(strings.TrimSpace(cells[0])) && width < len(ComponentProperties)+1 {
		width = len(ComponentProperties) + 1
	}
	out := make([]string, width)
	for i, c := range cells[:end] {
		c = strings.TrimSpace(strings.ReplaceAll(c, `"`, ""))
		if strings.Contains(c, ",") {
			c = `"` + c + `"`
		}
		out[i] = c
	}
	return strings.Join(out, ",")
}

// MailQuotation is one quotation document found in a mail message.
type MailQuotation struct {
	Source   internal.ItemSource
	Filename string
	Text     string
}

// ExtractQuotationsFromEmailRaw reads a raw RFC 822 message and returns the
// subject plus every supported attachment decoded to quotation text. An HTML
// body that carries a table counts as one more quotation.
func ExtractQuotationsFromEmailRaw(raw []byte) (string, []MailQuotation, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return "", nil, err
	}

	var out []MailQuotation
	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" || !IsSupportedQuotation(filename) {
			continue
		}
		text, err := ExtractDocumentText(filename, att.Content)
		if err != nil {
			continue
		}
		out = append(out, MailQuotation{Source: internal.SourceEmailAttch, Filename: filename, Text: text})
	}

	if env.HTML != "" && HasHTMLTable(env.HTML) {
		text, err := htmlTableText(env.HTML)
		if err == nil && strings.TrimSpace(text) != "" {
			out = append(out, MailQuotation{Source: internal.SourceEmailHTML, Filename: "body.html", Text: text})
		}
	}

	return env.GetHeader("Subject"), out, nil
}
