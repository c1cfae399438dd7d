package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"amharic-translator/internal/logger"
	"amharic-translator/internal/types"
)

// NLLBClient talks to an NLLB inference server over HTTP. The server
// wraps the pretrained model and exposes a single /translate endpoint
// taking a list of texts with source and target language codes.
type NLLBClient struct {
	baseURL    string
	sourceCode string
	targetCode string
	client     *http.Client
}

// NewNLLBClient creates a client for the server at baseURL, mapping the
// given BCP-47 source and target tags to NLLB codes.
func NewNLLBClient(baseURL, sourceTag, targetTag string, timeout time.Duration) (*NLLBClient, error) {
	src, err := NLLBCode(sourceTag)
	if err != nil {
		return nil, types.NewAppError(types.ErrConfig, "invalid source language", err)
	}
	dst, err := NLLBCode(targetTag)
	if err != nil {
		return nil, types.NewAppError(types.ErrConfig, "invalid target language", err)
	}
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	return &NLLBClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		sourceCode: src,
		targetCode: dst,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

// Name identifies the backend in status messages and logs.
func (c *NLLBClient) Name() string { return "nllb" }

type nllbRequest struct {
	Texts  []string `json:"texts"`
	Source string   `json:"source"`
	Target string   `json:"target"`
}

type nllbResponse struct {
	Translations []string `json:"translations"`
	Error        string   `json:"error,omitempty"`
}

// Translate sends texts to the inference server. Segments longer than
// the model limit are split on word boundaries, translated separately,
// and rejoined, so callers always get one output per input.
func (c *NLLBClient) Translate(ctx context.Context, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// Flatten into model-sized segments, remembering how many segments
	// each input produced.
	var segments []string
	counts := make([]int, len(texts))
	for i, text := range texts {
		parts := SplitText(text, ModelMaxChars)
		counts[i] = len(parts)
		segments = append(segments, parts...)
	}

	translated, err := c.call(ctx, segments)
	if err != nil {
		return nil, err
	}
	if len(translated) != len(segments) {
		return nil, types.NewAppErrorWithDetails(types.ErrAPICall,
			"translation count mismatch",
			fmt.Sprintf("sent %d segments, got %d translations", len(segments), len(translated)), nil)
	}

	out := make([]string, len(texts))
	pos := 0
	for i, n := range counts {
		out[i] = strings.Join(translated[pos:pos+n], " ")
		pos += n
	}
	return out, nil
}

func (c *NLLBClient) call(ctx context.Context, segments []string) ([]string, error) {
	if len(segments) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(nllbRequest{
		Texts:  segments,
		Source: c.sourceCode,
		Target: c.targetCode,
	})
	if err != nil {
		return nil, types.NewAppError(types.ErrInternal, "failed to marshal translation request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return nil, types.NewAppError(types.ErrInternal, "failed to create translation request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("calling NLLB server",
		logger.String("url", c.baseURL),
		logger.Int("segments", len(segments)))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrNetwork, "translation server unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewAppError(types.ErrNetwork, "failed to read translation response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpStatusError(resp.StatusCode, respBody)
	}

	var parsed nllbResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, types.NewAppError(types.ErrAPICall, "malformed translation response", err)
	}
	if parsed.Error != "" {
		return nil, types.NewAppErrorWithDetails(types.ErrAPICall, "translation server error", parsed.Error, nil)
	}

	return parsed.Translations, nil
}

// httpStatusError maps an HTTP failure to an AppError whose code drives
// the retry decision.
func httpStatusError(statusCode int, body []byte) error {
	detail := strings.TrimSpace(string(body))
	if len(detail) > 200 {
		detail = detail[:200]
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return types.NewAppErrorWithDetails(types.ErrAPIRateLimit, "translation server rate limited", detail, nil)
	case statusCode >= 500:
		return types.NewAppErrorWithDetails(types.ErrAPICall,
			"translation server error",
			fmt.Sprintf("status %d: %s", statusCode, detail), nil)
	default:
		return types.NewAppErrorWithDetails(types.ErrAPICall,
			"translation request rejected",
			fmt.Sprintf("status %d: %s", statusCode, detail), nil)
	}
}

// IsRetryable reports whether err is transient: a network failure, a
// rate limit, or a server-side (5xx) error.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case types.ErrNetwork, types.ErrAPIRateLimit:
			return true
		case types.ErrAPICall:
			return strings.Contains(appErr.Details, "status 5")
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
