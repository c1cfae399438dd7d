package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"amharic-translator/internal/logger"
	"amharic-translator/internal/pdf"
	"amharic-translator/internal/translate"
	"amharic-translator/internal/types"
)

//go:embed static
var staticFiles embed.FS

// NewTranslatorFunc builds the translation backend for a run. It is a
// field on Server so tests can inject a stub.
type NewTranslatorFunc func(ctx context.Context) (translate.Translator, error)

// NewPipelineFunc builds the pipeline for one job.
type NewPipelineFunc func(translator translate.Translator) *pdf.Pipeline

// Server is the HTTP front end over the translation pipeline.
type Server struct {
	cfg  *types.Config
	jobs *Store

	// NewTranslator builds the model backend; defaults to the one
	// selected in the configuration.
	NewTranslator NewTranslatorFunc
	// NewPipeline builds a per-job pipeline from the configuration.
	NewPipeline NewPipelineFunc

	router chi.Router
	http   *http.Server
	stop   chan struct{}
}

// New creates a Server for the given configuration.
func New(cfg *types.Config) *Server {
	s := &Server{
		cfg:  cfg,
		jobs: NewStore(time.Duration(cfg.JobTTLMinutes) * time.Minute),
		stop: make(chan struct{}),
	}
	s.NewTranslator = func(ctx context.Context) (translate.Translator, error) {
		return BuildTranslator(ctx, cfg)
	}
	s.NewPipeline = func(translator translate.Translator) *pdf.Pipeline {
		p := pdf.NewPipeline(translator, cfg.BatchCharBudget, cfg.MaxRetries, cfg.FontPath)
		p.WorkDirectory = cfg.WorkDirectory
		return p
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.FileServer(http.FS(staticFiles)))
	r.Get("/api/health", s.handleHealth)
	r.Post("/api/translate", s.handleUpload)
	r.Get("/api/jobs/{id}", s.handleJobStatus)
	r.Get("/api/jobs/{id}/download", s.handleDownload)
	r.Post("/api/translate/text", s.handleTranslateText)

	s.router = r
	return s
}

// BuildTranslator constructs the backend named by the configuration.
func BuildTranslator(ctx context.Context, cfg *types.Config) (translate.Translator, error) {
	timeout := time.Duration(cfg.RequestTimeoutSec) * time.Second
	switch cfg.Backend {
	case "openai":
		return translate.NewChatTranslator(ctx, cfg)
	case "nllb", "":
		return translate.NewNLLBClient(cfg.NLLBBaseURL, cfg.SourceLanguage, cfg.TargetLanguage, timeout)
	default:
		return nil, types.NewAppErrorWithDetails(types.ErrConfig,
			"unknown translation backend", cfg.Backend, nil)
	}
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the server until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.jobs.StartSweeper(s.stop)
	s.http = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("web server listening", logger.String("addr", s.cfg.ListenAddr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server and the job sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stop)
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := fs.ReadFile(staticFiles, "static/index.html")
	if err != nil {
		http.Error(w, "missing UI assets", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload accepts a multipart PDF upload, starts a pipeline run in
// the background, and returns the job ID for polling.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "INVALID_INPUT",
			fmt.Sprintf("upload too large or malformed (limit %d bytes)", s.cfg.MaxUploadBytes))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "missing file field")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "only PDF files are accepted")
		return
	}

	uploadDir := s.uploadDir()
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "cannot prepare upload directory")
		return
	}

	translator, err := s.NewTranslator(r.Context())
	if err != nil {
		logger.Error("cannot build translation backend", err)
		writeError(w, http.StatusInternalServerError, "CONFIG_ERROR", err.Error())
		return
	}

	pipeline := s.NewPipeline(translator)
	job := s.jobs.Create(header.Filename, "", "", pipeline)
	job.InputPath = filepath.Join(uploadDir, job.ID+".pdf")
	job.OutputPath = filepath.Join(uploadDir, job.ID+".am.pdf")

	dst, err := os.Create(job.InputPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "cannot store upload")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(job.InputPath)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "cannot store upload")
		return
	}
	dst.Close()

	logger.Info("upload accepted",
		logger.String("jobID", job.ID),
		logger.String("file", header.Filename),
		logger.Int64("bytes", header.Size))

	go func() {
		result, err := pipeline.Run(context.Background(), job.InputPath, job.OutputPath)
		if err != nil {
			logger.Error("job failed", err, logger.String("jobID", job.ID))
			job.finish(nil)
			return
		}
		job.finish(result)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

type jobStatusResponse struct {
	JobID    string      `json:"job_id"`
	FileName string      `json:"file_name"`
	Status   pdf.Status  `json:"status"`
	Result   *pdf.Result `json:"result,omitempty"`
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no such job")
		return
	}

	writeJSON(w, http.StatusOK, jobStatusResponse{
		JobID:    job.ID,
		FileName: job.FileName,
		Status:   job.Status(),
		Result:   job.Result(),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no such job")
		return
	}
	if job.Status().Phase != pdf.PhaseDone {
		writeError(w, http.StatusConflict, "NOT_READY", "translation is not finished")
		return
	}

	name := strings.TrimSuffix(job.FileName, filepath.Ext(job.FileName)) + ".am.pdf"
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, job.OutputPath)
}

type textRequest struct {
	Text string `json:"text"`
}

type textResponse struct {
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

// handleTranslateText translates a plain text snippet without a
// document, for quick checks from the UI.
func (s *Server) handleTranslateText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "malformed request body")
		return
	}
	text := translate.CleanText(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "text is empty")
		return
	}

	translator, err := s.NewTranslator(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "CONFIG_ERROR", err.Error())
		return
	}

	batcher := translate.NewBatcher(translator, s.cfg.BatchCharBudget, s.cfg.MaxRetries)
	out, err := batcher.TranslateAll(r.Context(), []string{text}, nil)
	if err != nil {
		logger.Error("text translation failed", err)
		writeError(w, http.StatusBadGateway, "TRANSLATION_FAILED", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, textResponse{Text: req.Text, Translation: out[0]})
}

func (s *Server) uploadDir() string {
	base := s.cfg.WorkDirectory
	if base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "amharic-translator", "uploads")
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// requestLogger writes one line per request through the app logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Int64("durationMs", time.Since(start).Milliseconds()))
	})
}
