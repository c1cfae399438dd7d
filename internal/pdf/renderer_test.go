package pdf

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"amharic-translator/internal/fonts"
)

// testRenderer uses the built-in Helvetica so no Ethiopic font install
// is needed to exercise geometry and fitting.
func testRenderer() *Renderer {
	return NewRenderer(fonts.Font{})
}

func TestRenderPreservesPageGeometry(t *testing.T) {
	info := &PDFInfo{
		PageCount: 3,
		PageDims: []PageDim{
			{Width: 300, Height: 400},
			{Width: 500, Height: 600},
			{Width: 595.28, Height: 841.89},
		},
	}
	out := filepath.Join(t.TempDir(), "out.pdf")

	overflowed, err := testRenderer().Render(info, nil, out)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if overflowed != 0 {
		t.Errorf("overflowed = %d, want 0", overflowed)
	}

	ctx, err := api.ReadContextFile(out)
	if err != nil {
		t.Fatalf("ReadContextFile: %v", err)
	}
	if ctx.PageCount != info.PageCount {
		t.Fatalf("page count = %d, want %d", ctx.PageCount, info.PageCount)
	}

	dims, err := ctx.PageDims()
	if err != nil {
		t.Fatalf("PageDims: %v", err)
	}
	for i, want := range info.PageDims {
		if math.Abs(dims[i].Width-want.Width) > 0.5 || math.Abs(dims[i].Height-want.Height) > 0.5 {
			t.Errorf("page %d dims = %.2fx%.2f, want %.2fx%.2f",
				i+1, dims[i].Width, dims[i].Height, want.Width, want.Height)
		}
	}
}

func TestRenderProducesValidPDF(t *testing.T) {
	info := &PDFInfo{
		PageCount: 1,
		PageDims:  []PageDim{{Width: 595.28, Height: 841.89}},
	}
	blocks := []TranslatedBlock{
		{
			TextBlock:      TextBlock{Page: 1, X: 72, Y: 720, Width: 400, Height: 14, FontSize: 12},
			TranslatedText: "first line of output",
		},
		{
			TextBlock:      TextBlock{Page: 1, X: 72, Y: 690, Width: 400, Height: 14, FontSize: 12},
			TranslatedText: "second line of output",
		},
	}
	out := filepath.Join(t.TempDir(), "out.pdf")

	if _, err := testRenderer().Render(info, blocks, out); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if err := api.ValidateFile(out, nil); err != nil {
		t.Errorf("output failed validation: %v", err)
	}
}

func TestRenderShrinksToFit(t *testing.T) {
	// A long text in a narrow single-line box must shrink rather than
	// overflow: at 12pt it wraps to several lines, at smaller sizes
	// fewer.
	info := &PDFInfo{
		PageCount: 1,
		PageDims:  []PageDim{{Width: 595.28, Height: 841.89}},
	}
	blocks := []TranslatedBlock{
		{
			TextBlock: TextBlock{
				Page: 1, X: 72, Y: 720,
				Width: 220, Height: 30, FontSize: 12,
			},
			TranslatedText: "a fairly long sentence that cannot sit on one line at full size",
		},
	}
	out := filepath.Join(t.TempDir(), "out.pdf")

	overflowed, err := testRenderer().Render(info, blocks, out)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if overflowed != 0 {
		t.Errorf("text should fit after shrinking, overflowed = %d", overflowed)
	}
}

func TestRenderReportsOverflow(t *testing.T) {
	// A box far too small for the text even at the minimum size.
	info := &PDFInfo{
		PageCount: 1,
		PageDims:  []PageDim{{Width: 595.28, Height: 841.89}},
	}
	long := ""
	for i := 0; i < 40; i++ {
		long += "overflowing words keep coming "
	}
	blocks := []TranslatedBlock{
		{
			TextBlock:      TextBlock{Page: 1, X: 72, Y: 720, Width: 80, Height: 10, FontSize: 12},
			TranslatedText: long,
		},
	}
	out := filepath.Join(t.TempDir(), "out.pdf")

	overflowed, err := testRenderer().Render(info, blocks, out)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if overflowed != 1 {
		t.Errorf("overflowed = %d, want 1", overflowed)
	}
	// The document is still valid; the text just runs below the box.
	if err := api.ValidateFile(out, nil); err != nil {
		t.Errorf("output failed validation: %v", err)
	}
}

func TestRenderSkipsEmptyTranslations(t *testing.T) {
	info := &PDFInfo{
		PageCount: 1,
		PageDims:  []PageDim{{Width: 595.28, Height: 841.89}},
	}
	blocks := []TranslatedBlock{
		{
			TextBlock:      TextBlock{Page: 1, X: 72, Y: 720, Width: 400, Height: 14, FontSize: 12},
			TranslatedText: "",
		},
	}
	out := filepath.Join(t.TempDir(), "out.pdf")

	overflowed, err := testRenderer().Render(info, blocks, out)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if overflowed != 0 {
		t.Errorf("empty translation counted as overflow")
	}
}
