package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"amharic-translator/internal/fonts"
	"amharic-translator/internal/logger"
	"amharic-translator/internal/translate"
)

// Progress checkpoints for each phase, out of 100.
const (
	progressExtractStart   = 0
	progressExtractDone    = 10
	progressTranslateDone  = 85
	progressRenderDone     = 95
	progressFinalizeDone   = 100
	translateProgressRange = progressTranslateDone - progressExtractDone
)

// FontResolver locates the Ethiopic font used for rendering. It is a
// field on the Pipeline so tests can substitute a stub.
type FontResolver func() (fonts.Font, error)

// Pipeline runs a document through extraction, translation, and
// rendering. One Pipeline handles one run at a time; its Status method
// is safe to call concurrently while Run is in flight.
type Pipeline struct {
	extractor *Extractor
	batcher   *translate.Batcher

	// ResolveFont finds the rendering font; defaults to the system
	// search but can be replaced before Run.
	ResolveFont FontResolver

	// WorkDirectory is the parent for per-run temp directories. Empty
	// means the OS temp dir.
	WorkDirectory string

	mu     sync.Mutex
	status Status
}

// NewPipeline creates a Pipeline using the given translation backend.
func NewPipeline(translator translate.Translator, charBudget, maxRetries int, fontPath string) *Pipeline {
	return &Pipeline{
		extractor: NewExtractor(),
		batcher:   translate.NewBatcher(translator, charBudget, maxRetries),
		ResolveFont: func() (fonts.Font, error) {
			return fonts.Resolve(fontPath)
		},
		status: Status{Phase: PhaseIdle},
	}
}

// Status returns a snapshot of the current run's progress.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Pipeline) setStatus(phase Phase, progress int, message string) {
	p.mu.Lock()
	p.status.Phase = phase
	p.status.Progress = progress
	p.status.Message = message
	p.status.Error = ""
	p.mu.Unlock()
}

func (p *Pipeline) setBlocks(completed, total int) {
	p.mu.Lock()
	p.status.CompletedBlocks = completed
	p.status.TotalBlocks = total
	p.mu.Unlock()
}

// fail records a terminal failure and returns the error as a *PDFError
// with the given code, unless it already carries one.
func (p *Pipeline) fail(code ErrorCode, err error) error {
	var pdfErr *PDFError
	if !errors.As(err, &pdfErr) {
		pdfErr = NewPDFError(code, err.Error(), err)
	}

	p.mu.Lock()
	p.status.Phase = PhaseFailed
	p.status.Message = pdfErr.Message
	p.status.Error = string(pdfErr.Code) + ": " + pdfErr.Error()
	p.mu.Unlock()

	logger.Error("pipeline failed", pdfErr, logger.String("code", string(pdfErr.Code)))
	return pdfErr
}

// Run translates the document at inputPath and writes the result to
// outputPath. The output file appears only on success; intermediate
// artifacts live in a per-run temp directory that is always removed.
func (p *Pipeline) Run(ctx context.Context, inputPath, outputPath string) (*Result, error) {
	p.setBlocks(0, 0)
	p.setStatus(PhaseExtracting, progressExtractStart, "reading document")

	info, err := p.extractor.Inspect(inputPath)
	if err != nil {
		return nil, p.fail(ErrDocumentUnreadable, err)
	}
	logger.Info("document accepted",
		logger.String("file", info.FileName),
		logger.Int("pages", info.PageCount),
		logger.Int64("bytes", info.FileSize))

	blocks, err := p.extractor.ExtractText(inputPath)
	if err != nil {
		return nil, p.fail(ErrDocumentUnreadable, err)
	}
	p.setBlocks(0, len(blocks))
	p.setStatus(PhaseExtracting, progressExtractDone,
		fmt.Sprintf("extracted %d text blocks", len(blocks)))

	// Resolve the font before spending time on translation; a missing
	// font fails the run regardless of the model's output.
	font, err := p.ResolveFont()
	if err != nil {
		return nil, p.fail(ErrFontUnavailable,
			NewPDFError(ErrFontUnavailable, "no Amharic-capable font available", err))
	}

	translated, err := p.translateBlocks(ctx, blocks)
	if err != nil {
		return nil, p.fail(ErrTranslationFailed, err)
	}
	p.setStatus(PhaseRendering, progressTranslateDone, "rendering translated document")

	tmpDir, err := os.MkdirTemp(p.WorkDirectory, "amtrans-*")
	if err != nil {
		return nil, p.fail(ErrRenderFailed, err)
	}
	defer os.RemoveAll(tmpDir)

	tmpOut := filepath.Join(tmpDir, "translated.pdf")
	overflowed, err := NewRenderer(font).Render(info, translated, tmpOut)
	if err != nil {
		return nil, p.fail(ErrRenderFailed, err)
	}
	p.setStatus(PhaseRendering, progressRenderDone, "verifying output")

	result, err := p.finalize(info, tmpOut, outputPath)
	if err != nil {
		return nil, p.fail(ErrRenderFailed, err)
	}
	result.TotalBlocks = len(blocks)
	result.OverflowBlocks = overflowed

	p.setStatus(PhaseDone, progressFinalizeDone, "translation complete")
	logger.Info("pipeline complete",
		logger.String("output", outputPath),
		logger.Int("blocks", result.TotalBlocks),
		logger.Int("overflowed", result.OverflowBlocks))
	return result, nil
}

// translateBlocks sends cleaned block text through the batcher and
// pairs each block with its translation.
func (p *Pipeline) translateBlocks(ctx context.Context, blocks []TextBlock) ([]TranslatedBlock, error) {
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = translate.CleanText(b.Text)
	}

	p.setStatus(PhaseTranslating, progressExtractDone, "translating")
	translations, err := p.batcher.TranslateAll(ctx, texts,
		func(completed, total int, message string) {
			progress := progressExtractDone
			if total > 0 {
				progress += translateProgressRange * completed / total
			}
			p.setBlocks(completed, total)
			p.setStatus(PhaseTranslating, progress, message)
		})
	if err != nil {
		return nil, err
	}

	out := make([]TranslatedBlock, len(blocks))
	for i, b := range blocks {
		out[i] = TranslatedBlock{TextBlock: b, TranslatedText: translations[i]}
	}
	return out, nil
}

// finalize validates the rendered document, checks its geometry against
// the source, and moves it into place.
func (p *Pipeline) finalize(info *PDFInfo, tmpOut, outputPath string) (*Result, error) {
	if err := api.ValidateFile(tmpOut, nil); err != nil {
		return nil, NewPDFError(ErrRenderFailed, "rendered document failed validation", err)
	}

	outCtx, err := api.ReadContextFile(tmpOut)
	if err != nil {
		return nil, NewPDFError(ErrRenderFailed, "cannot read rendered document", err)
	}
	pagesMatch := outCtx.PageCount == info.PageCount
	if !pagesMatch {
		logger.Warn("page count mismatch",
			logger.Int("source", info.PageCount),
			logger.Int("output", outCtx.PageCount))
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, NewPDFError(ErrRenderFailed, "cannot create output directory", err)
		}
	}
	if err := moveFile(tmpOut, outputPath); err != nil {
		return nil, NewPDFError(ErrRenderFailed, "cannot move output into place", err)
	}

	return &Result{
		InputPath:       info.FilePath,
		OutputPath:      outputPath,
		PageCount:       outCtx.PageCount,
		PageCountsMatch: pagesMatch,
	}, nil
}

// moveFile renames src to dst, copying across filesystems when rename
// is not possible.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
