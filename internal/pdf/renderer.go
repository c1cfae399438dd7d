package pdf

import (
	"github.com/jung-kurt/gofpdf"

	"amharic-translator/internal/fonts"
	"amharic-translator/internal/logger"
)

// A4 page size in points, used when a page dimension is missing.
const (
	defaultPageWidth  = 595.28
	defaultPageHeight = 841.89
)

// Renderer writes translated blocks onto a new PDF canvas, matching
// the source geometry page by page.
type Renderer struct {
	font fonts.Font

	// ShrinkStep is the fixed decrement applied to the font size while
	// searching for a size that fits the source bounding box.
	ShrinkStep float64
	// MinFontSize is the smallest size tried before accepting vertical
	// overflow.
	MinFontSize float64
	// LineSpacing is the line height as a multiple of the font size.
	LineSpacing float64
}

// NewRenderer creates a Renderer using the given font. A font with an
// empty path falls back to the built-in Helvetica, which covers only
// Latin text and exists for testing.
func NewRenderer(font fonts.Font) *Renderer {
	return &Renderer{
		font:        font,
		ShrinkStep:  0.5,
		MinFontSize: 6.0,
		LineSpacing: 1.2,
	}
}

// Render produces the output document at outputPath: one page per
// source page with identical dimensions, each translated block placed
// at its source position. Returns the number of blocks that overflowed
// their box even at the minimum font size.
func (r *Renderer) Render(info *PDFInfo, blocks []TranslatedBlock, outputPath string) (int, error) {
	doc := gofpdf.New("P", "pt", "A4", "")
	doc.SetAutoPageBreak(false, 0)

	family := r.font.Family
	if r.font.Path != "" {
		doc.AddUTF8Font(family, "", r.font.Path)
	} else if family == "" {
		family = "Helvetica"
	}
	doc.SetTextColor(0, 0, 0)

	byPage := make(map[int][]TranslatedBlock, info.PageCount)
	for _, b := range blocks {
		byPage[b.Page] = append(byPage[b.Page], b)
	}

	overflowed := 0
	for pageNum := 1; pageNum <= info.PageCount; pageNum++ {
		w, h := defaultPageWidth, defaultPageHeight
		if pageNum-1 < len(info.PageDims) {
			if d := info.PageDims[pageNum-1]; d.Width > 0 && d.Height > 0 {
				w, h = d.Width, d.Height
			}
		}
		doc.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h})

		for _, block := range byPage[pageNum] {
			if r.renderBlock(doc, family, block, h) {
				overflowed++
			}
		}
	}

	if doc.Err() {
		return overflowed, NewPDFError(ErrRenderFailed, "failed to build output document", doc.Error())
	}
	if err := doc.OutputFileAndClose(outputPath); err != nil {
		return overflowed, NewPDFError(ErrRenderFailed, "failed to write output document", err)
	}

	logger.Info("rendered translated document",
		logger.String("output", outputPath),
		logger.Int("pages", info.PageCount),
		logger.Int("blocks", len(blocks)),
		logger.Int("overflowed", overflowed))

	return overflowed, nil
}

// renderBlock fits the translated text into the block's bounding box,
// shrinking the font in fixed steps. If even the minimum size does not
// fit, the text is rendered anyway and runs below the box; translation
// completeness wins over strict layout fidelity. Reports overflow.
func (r *Renderer) renderBlock(doc *gofpdf.Fpdf, family string, block TranslatedBlock, pageHeight float64) bool {
	text := block.TranslatedText
	if text == "" {
		return false
	}

	size := block.FontSize
	if size <= 0 {
		size = 10.0
	}
	boxWidth := block.Width
	if boxWidth <= 0 {
		boxWidth = defaultPageWidth - block.X
	}
	boxHeight := block.Height
	if boxHeight <= 0 {
		boxHeight = size * r.LineSpacing
	}

	var lines []string
	fits := false
	for ; size >= r.MinFontSize; size -= r.ShrinkStep {
		doc.SetFont(family, "", size)
		lines = doc.SplitText(text, boxWidth)
		if float64(len(lines))*size*r.LineSpacing <= boxHeight+0.1 {
			fits = true
			break
		}
	}
	if !fits {
		size = r.MinFontSize
		doc.SetFont(family, "", size)
		lines = doc.SplitText(text, boxWidth)
		logger.Warn("layout overflow, extending below bounding box",
			logger.Int("page", block.Page),
			logger.Int("lines", len(lines)),
			logger.Float64("fontSize", size))
	}

	// Extraction coordinates are bottom-left origin with Y at the first
	// baseline; gofpdf places text baselines from the top.
	yTop := pageHeight - block.Y
	for i, line := range lines {
		doc.Text(block.X, yTop+float64(i)*size*r.LineSpacing, line)
	}

	return !fits
}
