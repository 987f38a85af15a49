// Package gemini is a minimal client for the Gemini generateContent API,
// covering only what the chat flow needs: streamed generation with text and
// inline-image chunks.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

func TextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{{Text: text}}}
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generationConfig struct {
	Temperature        float64  `json:"temperature"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type tool struct {
	URLContext   *struct{} `json:"urlContext,omitempty"`
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type generateRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
	Tools            []tool           `json:"tools,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type streamResponse struct {
	Candidates []struct {
		Content struct {
			Parts []Part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

// Chunk is one element of a streamed response: a text delta, inline image
// data (base64), or both.
type Chunk struct {
	Text      string
	ImageMIME string
	ImageData string
}

func (c Chunk) HasImage() bool {
	return c.ImageData != "" && c.ImageMIME != ""
}

// Client calls the Gemini API on behalf of one credential. It is
// constructed explicitly and passed to whoever needs it; there is no
// package-level handle.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL: defaultBaseURL,
		APIKey:  apiKey,
		// No client timeout: streams are open-ended and bounded by ctx.
		HTTP: &http.Client{},
	}
}

// buildRequest assembles the per-call configuration: permissive safety
// thresholds for every harm category, image+text modalities for the image
// model, and the auxiliary tool set for everything else.
func buildRequest(model string, contents []Content) generateRequest {
	req := generateRequest{
		Contents:         contents,
		GenerationConfig: generationConfig{Temperature: 0.1},
		SafetySettings: []safetySetting{
			{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_NONE"},
			{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"},
			{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_NONE"},
			{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_NONE"},
		},
	}
	if model == ImageGenerationModel {
		req.GenerationConfig.ResponseModalities = []string{"IMAGE", "TEXT"}
	} else {
		req.Tools = []tool{
			{URLContext: &struct{}{}},
			{GoogleSearch: &struct{}{}},
		}
	}
	return req
}

// StreamGenerateContent dispatches a generation request and streams the
// response chunk by chunk. The chunk channel closes on stream exhaustion;
// a failure is delivered on the error channel and ends the stream.
func (c *Client) StreamGenerateContent(ctx context.Context, model string, contents []Content) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		if strings.TrimSpace(c.APIKey) == "" {
			errs <- errors.New("gemini: api key is required")
			return
		}
		if strings.TrimSpace(model) == "" {
			errs <- errors.New("gemini: model is required")
			return
		}

		body, err := json.Marshal(buildRequest(model, contents))
		if err != nil {
			errs <- err
			return
		}

		url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse",
			strings.TrimRight(c.BaseURL, "/"), model)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			errs <- err
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.APIKey)

		resp, err := c.HTTP.Do(req)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
			msg := decodeErrorBody(raw)
			if msg == "" {
				msg = fmt.Sprintf("status %d", resp.StatusCode)
			}
			errs <- fmt.Errorf("gemini: %s", msg)
			return
		}

		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

			var decoded streamResponse
			if err := json.Unmarshal([]byte(data), &decoded); err != nil {
				errs <- fmt.Errorf("gemini: decode stream chunk: %w", err)
				return
			}
			if decoded.Error != nil && decoded.Error.Message != "" {
				errs <- errors.New("gemini: " + decoded.Error.Message)
				return
			}
			chunk, ok := chunkFromResponse(decoded)
			if !ok {
				continue
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
		}

		if err := sc.Err(); err != nil {
			errs <- err
		}
	}()

	return chunks, errs
}

func chunkFromResponse(resp streamResponse) (Chunk, bool) {
	if len(resp.Candidates) == 0 {
		return Chunk{}, false
	}
	var chunk Chunk
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			chunk.ImageMIME = part.InlineData.MimeType
			chunk.ImageData = part.InlineData.Data
			continue
		}
		chunk.Text += part.Text
	}
	if chunk.Text == "" && !chunk.HasImage() {
		return Chunk{}, false
	}
	return chunk, true
}

func decodeErrorBody(raw []byte) string {
	var wrapped struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Error != nil && wrapped.Error.Message != "" {
		return wrapped.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
