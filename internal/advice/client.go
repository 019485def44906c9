// Package advice talks to the external summary/advice service.
package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"budgettracker/internal/core"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 2 * time.Minute

	summarizePath = "/api/summarize"
	advicePath    = "/api/advice"
	healthPath    = "/health"

	maxErrorBody = 512
)

type ExpenseItem struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type SummaryRequest struct {
	Expenses []ExpenseItem `json:"expenses"`
	Budget   float64       `json:"budget"`
}

type SummaryResponse struct {
	Summary      string  `json:"summary"`
	TotalAmount  float64 `json:"totalAmount"`
	ExpenseCount int     `json:"expenseCount"`
}

type AdviceRequest struct {
	Question string        `json:"question"`
	Expenses []ExpenseItem `json:"expenses"`
	Budget   float64       `json:"budget"`
}

type AdviceResponse struct {
	Advice   string `json:"advice"`
	Question string `json:"question"`
}

// Client is safe for concurrent use. Every failure, including timeouts and
// non-2xx answers, matches core.ErrServiceUnavailable.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Summarize(ctx context.Context, req SummaryRequest) (*SummaryResponse, error) {
	var out SummaryResponse
	if err := c.post(ctx, summarizePath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Advise(ctx context.Context, req AdviceRequest) (*AdviceResponse, error) {
	var out AdviceResponse
	if err := c.post(ctx, advicePath, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Available reports whether the health endpoint answers 2xx.
func (c *Client) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", core.ErrServiceUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s returned %d: %s", core.ErrServiceUnavailable, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", core.ErrServiceUnavailable, path, err)
	}
	return nil
}
