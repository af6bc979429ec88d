// Package voice places outbound shelter-availability calls through the
// external voice provider and reconstructs their transcripts.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/carebridge/carebridge/pkg/fault"
)

// quotaMarker identifies the provider's daily-limit rejection body.
const quotaMarker = "Daily Outbound Call Limit"

// Client is the HTTP client for the voice provider's call API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a voice provider client.
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

// CreateCallRequest is the provider's outbound call body.
type CreateCallRequest struct {
	PhoneNumberID      string   `json:"phoneNumberId"`
	Customer           Customer `json:"customer"`
	AssistantID        string   `json:"assistantId"`
	Name               string   `json:"name"`
	MaxDurationSeconds int      `json:"maxDurationSeconds"`
}

// Customer identifies the dialed party.
type Customer struct {
	Number string `json:"number"`
}

// TranscriptMessage is one role/message pair of the definitive transcript.
type TranscriptMessage struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// Artifact carries the provider's post-call artifacts.
type Artifact struct {
	Transcript []TranscriptMessage `json:"transcript"`
}

// Call is the provider's call resource.
type Call struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	EndedReason string    `json:"endedReason,omitempty"`
	Transcript  string    `json:"transcript,omitempty"`
	Artifact    *Artifact `json:"artifact,omitempty"`
}

// Terminal reports whether the call has reached a terminal provider status.
func (c *Call) Terminal() bool {
	return c.Status == "ended" || c.Status == "failed"
}

// CreateCall starts an outbound call and returns the provider's call
// resource. A daily-quota rejection surfaces as fault.QuotaExceededError.
func (c *Client) CreateCall(ctx context.Context, req CreateCallRequest) (*Call, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode call request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create call request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fault.NewUpstreamError("voice", "create call", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.NewUpstreamError("voice", "read create response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if strings.Contains(string(respBody), quotaMarker) {
			return nil, &fault.QuotaExceededError{Upstream: "voice"}
		}
		return nil, fault.NewUpstreamError("voice",
			fmt.Sprintf("create call returned HTTP %d", resp.StatusCode), nil)
	}

	var call Call
	if err := json.Unmarshal(respBody, &call); err != nil {
		return nil, fault.NewUpstreamError("voice", "decode call resource", err)
	}
	return &call, nil
}

// GetCall fetches the current call resource.
func (c *Client) GetCall(ctx context.Context, id string) (*Call, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/call/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("create get-call request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fault.NewUpstreamError("voice", "get call", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fault.NewUpstreamError("voice",
			fmt.Sprintf("get call returned HTTP %d", resp.StatusCode), nil)
	}

	var call Call
	if err := json.NewDecoder(resp.Body).Decode(&call); err != nil {
		return nil, fault.NewUpstreamError("voice", "decode call resource", err)
	}
	return &call, nil
}
