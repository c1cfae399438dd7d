// Package types defines core data types and enums shared across the
// Amharic translator application.
package types

// Config holds the application configuration.
type Config struct {
	// ListenAddr is the address the web server binds to, e.g. ":8080".
	ListenAddr string `json:"listen_addr"`
	// WorkDirectory is the root for per-run temporary directories.
	// Empty means the OS temp dir.
	WorkDirectory string `json:"work_directory"`
	// FontPath is an explicit path to an Ethiopic-capable TTF file.
	// Empty means the resolver searches bundled and system locations.
	FontPath string `json:"font_path"`

	// Backend selects the translation backend: "nllb" or "openai".
	Backend string `json:"backend"`
	// SourceLanguage and TargetLanguage are BCP-47 tags ("en", "am").
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`

	// NLLBBaseURL is the base URL of the NLLB inference server.
	NLLBBaseURL string `json:"nllb_base_url"`

	// OpenAI-compatible backend settings.
	OpenAIAPIKey  string `json:"openai_api_key"`
	OpenAIBaseURL string `json:"openai_base_url"`
	OpenAIModel   string `json:"openai_model"`

	// BatchCharBudget caps the number of characters grouped into one
	// model call.
	BatchCharBudget int `json:"batch_char_budget"`
	// MaxRetries bounds translation attempts per batch.
	MaxRetries int `json:"max_retries"`
	// RequestTimeoutSec is the per-call timeout for the model backend.
	RequestTimeoutSec int `json:"request_timeout_sec"`

	// MaxUploadBytes limits the size of an uploaded PDF.
	MaxUploadBytes int64 `json:"max_upload_bytes"`
	// JobTTLMinutes is how long finished jobs and their files are kept.
	JobTTLMinutes int `json:"job_ttl_minutes"`

	LogFilePath string `json:"log_file_path"`
	LogLevel    string `json:"log_level"`
}

// ErrorCode classifies application-level errors.
type ErrorCode string

const (
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrConfig       ErrorCode = "CONFIG_ERROR"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
	ErrNetwork      ErrorCode = "NETWORK_ERROR"
	ErrAPICall      ErrorCode = "API_CALL_ERROR"
	ErrAPIRateLimit ErrorCode = "API_RATE_LIMIT"
)

// AppError is an application error with a stable code for the UI.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying extra detail text
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}
