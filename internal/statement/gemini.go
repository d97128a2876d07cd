package statement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// CompletionRequest is the single-shot request to the language model.
type CompletionRequest struct {
	System          string
	User            string
	Temperature     float64
	MaxOutputTokens int
}

// Completer is the pluggable LLM boundary: one synchronous call returning one
// text completion. Tests substitute a deterministic fake.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// GeminiClient calls the Gemini generateContent REST endpoint directly. The
// base URL is overridable so tests can point it at a local server.
type GeminiClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
	baseURL    string
}

// NewGeminiClient creates a Gemini-backed Completer. The timeout bounds the
// whole HTTP exchange; a slow provider surfaces as LLM_UNAVAILABLE rather than
// hanging the upload request.
func NewGeminiClient(apiKey, model string, timeout time.Duration) *GeminiClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultGeminiBaseURL,
	}
}

// Complete sends the prompt and returns the raw completion text. Conformance
// of the text to the requested JSON shape is best-effort; repairing it is the
// sanitizer's job.
func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if c.apiKey == "" {
		return "", &PipelineError{
			Code:    ErrCodeLLMUnavailable,
			Message: "Gemini API key not configured",
		}
	}

	body := map[string]interface{}{
		"systemInstruction": map[string]interface{}{
			"parts": []map[string]string{{"text": req.System}},
		},
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]interface{}{
					{"text": req.User},
				},
			},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     req.Temperature,
			"maxOutputTokens": req.MaxOutputTokens,
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyHTTPError(resp.StatusCode, string(respBody))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return "", &PipelineError{
			Code:    ErrCodeLLMUnavailable,
			Message: "malformed Gemini envelope",
			Cause:   err,
		}
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", &PipelineError{
			Code:    ErrCodeLLMUnavailable,
			Message: "empty completion from Gemini",
		}
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

// classifyTransportError converts network-level failures, distinguishing
// timeouts so callers can report "try again later" rather than "bad file".
func classifyTransportError(err error) *PipelineError {
	msg := "Gemini API request failed"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "Gemini API request timed out"
	}
	return &PipelineError{
		Code:      ErrCodeLLMUnavailable,
		Message:   msg,
		Retryable: true,
		Cause:     err,
	}
}

func classifyHTTPError(statusCode int, body string) *PipelineError {
	if statusCode == http.StatusTooManyRequests {
		return &PipelineError{
			Code:      ErrCodeLLMRateLimited,
			Message:   "Gemini API rate limited",
			Retryable: true,
		}
	}
	return &PipelineError{
		Code:      ErrCodeLLMUnavailable,
		Message:   fmt.Sprintf("Gemini API error (HTTP %d): %s", statusCode, body),
		Retryable: statusCode >= 500,
	}
}
