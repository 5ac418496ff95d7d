// Package extract integrates the contract-extraction service that parses a
// rental contract into listing fields. Access is subscription-gated.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result is the structured listing data pulled out of a contract.
type Result struct {
	RentPrice  int    `json:"rentPrice"`
	RentDate   string `json:"rentDate"`
	EndDate    string `json:"endDate"`
	Location   string `json:"location"`
	TenantName string `json:"tenantName"`
}

// Client calls the extraction service.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	stubMode   bool
}

// NewClient creates an extraction client. Stub mode returns canned fields
// without network access.
func NewClient(baseURL, secret string, stubMode bool) *Client {
	return &Client{
		baseURL:    baseURL,
		secret:     secret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		stubMode:   stubMode,
	}
}

// ExtractProperty sends the contract text for extraction.
func (c *Client) ExtractProperty(ctx context.Context, contractText string) (*Result, error) {
	if c.stubMode {
		return &Result{
			RentPrice:  15000,
			RentDate:   "2026-01-01",
			EndDate:    "2026-12-31",
			Location:   "Kadıköy, Istanbul",
			TenantName: "Stub Tenant",
		}, nil
	}

	body, err := json.Marshal(map[string]string{"contract_text": contractText})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction request: %w", err)
	}
	req.Header.Set("X-Extract-Secret", c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute extraction request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, string(raw))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}
	return &result, nil
}
