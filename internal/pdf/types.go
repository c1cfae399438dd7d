// Package pdf implements the document translation pipeline: text
// extraction, layout reconstruction, and orchestration of the stages
// in between.
package pdf

// PDFInfo describes an input document.
type PDFInfo struct {
	FilePath  string    `json:"file_path"`
	FileName  string    `json:"file_name"`
	PageCount int       `json:"page_count"`
	FileSize  int64     `json:"file_size"`
	PageDims  []PageDim `json:"page_dims"`
	HasText   bool      `json:"has_text"`
}

// PageDim is a page size in PDF points.
type PageDim struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TextBlock is a unit of extracted text with position and size metadata.
// Coordinates are PDF points with the origin at the bottom-left of the
// page; Y is the baseline of the block's first line.
type TextBlock struct {
	Page     int     `json:"page"`
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	FontSize float64 `json:"font_size"`
	FontName string  `json:"font_name"`
}

// TranslatedBlock pairs a TextBlock with its Amharic rendering.
type TranslatedBlock struct {
	TextBlock
	TranslatedText string `json:"translated_text"`
}

// Phase is a stage of the translation pipeline.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseExtracting  Phase = "extracting"
	PhaseTranslating Phase = "translating"
	PhaseRendering   Phase = "rendering"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

// IsTerminal reports whether the phase ends a run.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Status is a snapshot of pipeline progress for a single run.
type Status struct {
	Phase           Phase  `json:"phase"`
	Progress        int    `json:"progress"`
	Message         string `json:"message"`
	TotalBlocks     int    `json:"total_blocks"`
	CompletedBlocks int    `json:"completed_blocks"`
	Error           string `json:"error,omitempty"`
}

// Result summarizes a completed run.
type Result struct {
	InputPath       string `json:"input_path"`
	OutputPath      string `json:"output_path"`
	PageCount       int    `json:"page_count"`
	TotalBlocks     int    `json:"total_blocks"`
	OverflowBlocks  int    `json:"overflow_blocks"`
	PageCountsMatch bool   `json:"page_counts_match"`
}

// ErrorCode classifies pipeline errors.
type ErrorCode string

const (
	// ErrDocumentUnreadable covers malformed, missing, and encrypted input.
	ErrDocumentUnreadable ErrorCode = "DOCUMENT_UNREADABLE"
	// ErrFontUnavailable means no Ethiopic-capable font could be resolved.
	ErrFontUnavailable ErrorCode = "FONT_UNAVAILABLE"
	// ErrTranslationFailed means the model backend failed after retries.
	ErrTranslationFailed ErrorCode = "TRANSLATION_FAILED"
	// ErrRenderFailed means the output document could not be written.
	ErrRenderFailed ErrorCode = "RENDER_FAILED"
)

// PDFError is a pipeline error with a stable code for the UI.
type PDFError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for PDFError
func (e *PDFError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error
func (e *PDFError) Unwrap() error {
	return e.Cause
}

// NewPDFError creates a new PDFError with the given code, message, and optional cause
func NewPDFError(code ErrorCode, message string, cause error) *PDFError {
	return &PDFError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}
