// Package docext calls the external discharge-document extractor. The
// extractor is opaque to this system: a file goes in, a structured intake
// record and a confidence score come out.
package docext

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/carebridge/carebridge/pkg/fault"
	"github.com/carebridge/carebridge/pkg/models"
)

// Extraction is the extractor's response.
type Extraction struct {
	Intake     models.Intake `json:"intake"`
	Confidence float64       `json:"confidence"`
}

// Client is the HTTP client for the document extractor.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a document extractor client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Extract uploads a discharge document and returns the structured record.
func (c *Client) Extract(ctx context.Context, filename string, file io.Reader, docType string) (*Extraction, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy document: %w", err)
	}
	if err := writer.WriteField("doc_type", docType); err != nil {
		return nil, fmt.Errorf("write doc_type field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", &body)
	if err != nil {
		return nil, fmt.Errorf("create extract request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fault.NewUpstreamError("docext", "extract "+filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fault.NewUpstreamError("docext",
			fmt.Sprintf("extract returned HTTP %d", resp.StatusCode), nil)
	}

	var extraction Extraction
	if err := json.NewDecoder(resp.Body).Decode(&extraction); err != nil {
		return nil, fault.NewUpstreamError("docext", "decode extraction", err)
	}
	return &extraction, nil
}
