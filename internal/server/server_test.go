package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"

	"amharic-translator/internal/fonts"
	"amharic-translator/internal/pdf"
	"amharic-translator/internal/translate"
	"amharic-translator/internal/types"
)

type stubTranslator struct{}

func (stubTranslator) Name() string { return "stub" }

func (stubTranslator) Translate(_ context.Context, texts []string) ([]string, error) {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = "AM " + t
	}
	return out, nil
}

func testConfig(t *testing.T) *types.Config {
	t.Helper()
	return &types.Config{
		ListenAddr:      ":0",
		WorkDirectory:   t.TempDir(),
		Backend:         "nllb",
		SourceLanguage:  "en",
		TargetLanguage:  "am",
		BatchCharBudget: 4000,
		MaxRetries:      1,
		MaxUploadBytes:  10 << 20,
		JobTTLMinutes:   60,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := testConfig(t)
	s := New(cfg)
	s.NewTranslator = func(context.Context) (translate.Translator, error) {
		return stubTranslator{}, nil
	}
	s.NewPipeline = func(tr translate.Translator) *pdf.Pipeline {
		p := pdf.NewPipeline(tr, cfg.BatchCharBudget, cfg.MaxRetries, "")
		p.WorkDirectory = cfg.WorkDirectory
		p.ResolveFont = func() (fonts.Font, error) { return fonts.Font{}, nil }
		return p
	}
	return s
}

func fixturePDFBytes(t *testing.T) []byte {
	t.Helper()
	doc := gofpdf.New("P", "pt", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	doc.Text(72, 100, "Hello from the fixture document.")
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("building fixture: %v", err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, fileName string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/translate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestIndexServed(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Amharic") {
		t.Error("index page missing expected content")
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, uploadRequest(t, "notes.txt", []byte("plain text")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("other", "value")
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/translate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadAndPollToCompletion(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, uploadRequest(t, "doc.pdf", fixturePDFBytes(t)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}

	var accepted struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decoding upload response: %v", err)
	}
	if accepted.JobID == "" {
		t.Fatal("empty job_id")
	}

	// The run happens in the background with a local stub, so it
	// finishes quickly; poll with a deadline.
	deadline := time.Now().Add(15 * time.Second)
	var status jobStatusResponse
	for {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec,
			httptest.NewRequest(http.MethodGet, "/api/jobs/"+accepted.JobID, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("poll status = %d", rec.Code)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("decoding poll response: %v", err)
		}
		if status.Status.Phase.IsTerminal() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not finish: %+v", status)
		}
		time.Sleep(50 * time.Millisecond)
	}

	if status.Status.Phase != pdf.PhaseDone {
		t.Fatalf("phase = %s, error = %s", status.Status.Phase, status.Status.Error)
	}
	if status.Result == nil || status.Result.PageCount != 1 {
		t.Errorf("unexpected result: %+v", status.Result)
	}

	// Download only works once done.
	dl := httptest.NewRecorder()
	s.Handler().ServeHTTP(dl,
		httptest.NewRequest(http.MethodGet, "/api/jobs/"+accepted.JobID+"/download", nil))
	if dl.Code != http.StatusOK {
		t.Fatalf("download status = %d", dl.Code)
	}
	if ct := dl.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(dl.Header().Get("Content-Disposition"), "doc.am.pdf") {
		t.Errorf("Content-Disposition = %q", dl.Header().Get("Content-Disposition"))
	}
	if !bytes.HasPrefix(dl.Body.Bytes(), []byte("%PDF")) {
		t.Error("download is not a PDF")
	}
}

func TestJobStatusUnknownID(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/jobs/no-such-job", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDownloadBeforeDone(t *testing.T) {
	s := newTestServer(t)
	job := s.jobs.Create("doc.pdf", "", "",
		pdf.NewPipeline(stubTranslator{}, 4000, 1, ""))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID+"/download", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestTranslateText(t *testing.T) {
	s := newTestServer(t)

	body := strings.NewReader(`{"text":"  hello   world  "}`)
	req := httptest.NewRequest(http.MethodPost, "/api/translate/text", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp textResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Translation != "AM hello world" {
		t.Errorf("translation = %q", resp.Translation)
	}
}

func TestTranslateTextRejectsEmpty(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/translate/text",
		strings.NewReader(`{"text":"   "}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStoreSweepRemovesExpired(t *testing.T) {
	store := NewStore(time.Millisecond)
	p := pdf.NewPipeline(stubTranslator{}, 4000, 1, "")
	job := store.Create("doc.pdf", "", "", p)

	// Not terminal yet: never swept.
	if n := store.Sweep(); n != 0 {
		t.Errorf("swept %d running jobs", n)
	}

	// Drive the pipeline to a terminal state via a failed run.
	p.Run(context.Background(), "/nonexistent/input.pdf", "/nonexistent/out.pdf")
	job.finish(nil)

	time.Sleep(5 * time.Millisecond)
	if n := store.Sweep(); n != 1 {
		t.Errorf("swept %d jobs, want 1", n)
	}
	if _, ok := store.Get(job.ID); ok {
		t.Error("expired job still retrievable")
	}
}
