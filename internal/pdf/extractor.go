package pdf

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"amharic-translator/internal/logger"
)

// Extractor reads an input PDF and produces the page-ordered sequence
// of text blocks the rest of the pipeline consumes.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Inspect returns basic information about the document: page count,
// per-page dimensions, and whether extractable text exists. Malformed
// or encrypted input fails with ErrDocumentUnreadable.
func (e *Extractor) Inspect(path string) (*PDFInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, NewPDFError(ErrDocumentUnreadable, "cannot access input file", err)
	}
	if fileInfo.IsDir() {
		return nil, NewPDFError(ErrDocumentUnreadable, "input path is a directory", nil)
	}

	// pdfcpu rejects encrypted files without a password and malformed
	// files alike; both map to the same error kind for the user.
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, NewPDFError(ErrDocumentUnreadable, "not a readable PDF (malformed or encrypted)", err)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		return nil, NewPDFError(ErrDocumentUnreadable, "cannot determine page dimensions", err)
	}

	pageDims := make([]PageDim, len(dims))
	for i, d := range dims {
		pageDims[i] = PageDim{Width: d.Width, Height: d.Height}
	}

	return &PDFInfo{
		FilePath:  path,
		FileName:  filepath.Base(path),
		PageCount: ctx.PageCount,
		FileSize:  fileInfo.Size(),
		PageDims:  pageDims,
		HasText:   e.hasText(path),
	}, nil
}

// hasText reports whether the first few pages yield any extractable text.
func (e *Extractor) hasText(path string) bool {
	f, r, err := pdf.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	pagesToCheck := 3
	if r.NumPage() < pagesToCheck {
		pagesToCheck = r.NumPage()
	}

	for pageNum := 1; pageNum <= pagesToCheck; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, c := range content {
			if !unicode.IsSpace(c) {
				return true
			}
		}
	}
	return false
}

// ExtractText walks the document and returns one TextBlock per text
// row, ordered page-major, top-to-bottom, then left-to-right. Non-text
// content is skipped silently; a document with no text yields an empty
// slice and no error.
func (e *Extractor) ExtractText(path string) ([]TextBlock, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, NewPDFError(ErrDocumentUnreadable, "cannot open PDF for extraction", err)
	}
	defer f.Close()

	var blocks []TextBlock

	totalPages := r.NumPage()
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		if page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			// A page that cannot be parsed is skipped, not fatal.
			logger.Warn("failed to extract page text",
				logger.Int("page", pageNum), logger.Err(err))
			continue
		}

		for _, row := range rows {
			if block, ok := mergeRow(pageNum, row); ok {
				blocks = append(blocks, block)
			}
		}
	}

	sortBlocks(blocks)

	logger.Info("text extraction complete",
		logger.String("file", filepath.Base(path)),
		logger.Int("pages", totalPages),
		logger.Int("blocks", len(blocks)))

	return blocks, nil
}

// mergeRow combines the fragments of one text row into a single block,
// tracking position bounds and average font size.
func mergeRow(pageNum int, row *pdf.Row) (TextBlock, bool) {
	var sb strings.Builder
	var minX, maxX, minY float64
	var totalFontSize float64
	var fontName string
	count := 0

	for _, t := range row.Content {
		if t.S == "" || isOperatorCode(t.S) {
			continue
		}
		sb.WriteString(t.S)

		if count == 0 {
			minX, maxX, minY = t.X, t.X, t.Y
			fontName = t.Font
		} else {
			if t.X < minX {
				minX = t.X
			}
			if t.X > maxX {
				maxX = t.X
			}
			if t.Y < minY {
				minY = t.Y
			}
		}
		totalFontSize += t.FontSize
		count++
	}

	text := strings.TrimSpace(sb.String())
	if text == "" || count == 0 {
		return TextBlock{}, false
	}
	if isOperatorCode(text) || hasExcessiveNonPrintable(text) {
		return TextBlock{}, false
	}

	fontSize := totalFontSize / float64(count)
	if fontSize <= 0 {
		fontSize = 10.0
	}

	// Width from observed X extent where available, otherwise estimated
	// from text length and an average glyph width.
	width := float64(len(text)) * fontSize * 0.5
	if maxX > minX {
		if actual := maxX - minX + fontSize; actual > width {
			width = actual
		}
	}

	return TextBlock{
		Page:     pageNum,
		Text:     text,
		X:        minX,
		Y:        minY,
		Width:    width,
		Height:   fontSize * 1.2,
		FontSize: fontSize,
		FontName: fontName,
	}, true
}

// sortBlocks orders blocks page-major, top-to-bottom (descending Y in
// PDF coordinates), then left-to-right, with a tolerance so fragments
// of one visual line keep their reading order.
func sortBlocks(blocks []TextBlock) {
	const yTolerance = 5.0
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].Page != blocks[j].Page {
			return blocks[i].Page < blocks[j].Page
		}
		dy := blocks[i].Y - blocks[j].Y
		if dy < yTolerance && dy > -yTolerance {
			return blocks[i].X < blocks[j].X
		}
		return blocks[i].Y > blocks[j].Y
	})
}

// isOperatorCode filters PDF/PostScript operator text that some
// documents leak into the content stream.
func isOperatorCode(text string) bool {
	if text == "" {
		return false
	}

	lower := strings.ToLower(text)
	if strings.Contains(lower, "null def") {
		return true
	}
	if strings.Contains(text, "@stx") || strings.Contains(text, "@etx") {
		return true
	}
	if (strings.Contains(text, " def ") || strings.HasSuffix(text, " def")) &&
		strings.Contains(text, "/") {
		return true
	}

	psOperators := []string{
		"currentpoint", "gsave", "grestore", "newpath", "closepath",
		"setrgbcolor", "setgray", "setlinewidth", "showpage",
		"moveto", "lineto", "curveto",
	}
	for _, op := range psOperators {
		if strings.Contains(lower, op) {
			return true
		}
	}

	// Several /Name tokens in a row indicate operator code, not prose.
	if !strings.Contains(lower, "http") {
		slashNames := 0
		for _, word := range strings.Fields(text) {
			if len(word) > 1 && word[0] == '/' {
				slashNames++
			}
		}
		if slashNames >= 3 {
			return true
		}
	}

	return false
}

// hasExcessiveNonPrintable reports whether more than 10% of the text is
// control characters, which marks a block as binary garbage.
func hasExcessiveNonPrintable(text string) bool {
	if text == "" {
		return false
	}

	nonPrintable := 0
	total := 0
	for _, r := range text {
		total++
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			nonPrintable++
		}
		if r >= 0x7F && r <= 0x9F {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(total) > 0.1
}
