/**
 * @description
 * This package provides a client for the external treasury provider, the
 * service that actually moves value in and out of the campaign ledger's
 * custody. It encapsulates authenticated HTTP requests for payouts and for
 * confirming that a donation's value has been escrowed.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 * - internal/domain: For the Identity type.
 */
package treasuryclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/openfund/campaign-service/internal/domain"
)

// Client is a client for the treasury provider API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new treasury API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// TransferRequest is the payload for a payout instruction.
type TransferRequest struct {
	To        string `json:"to"`
	Amount    int64  `json:"amount"` // in kobo
	Reference string `json:"reference"`
}

// TransferResponse is the provider's answer to a payout instruction.
type TransferResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// EscrowResponse is the provider's record of escrowed donation value.
type EscrowResponse struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// ErrorResponse represents an error from the treasury API.
type ErrorResponse struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("treasury api error: %s - %s", e.Errors[0].Title, e.Errors[0].Detail)
	}
	return "unknown treasury api error"
}

// Transfer instructs the provider to pay the given amount to the recipient.
// A non-2xx response or a terminal non-successful status is a failure.
func (c *Client) Transfer(ctx context.Context, to domain.Identity, amount int64, reference string) error {
	body, err := json.Marshal(TransferRequest{
		To:        string(to),
		Amount:    amount,
		Reference: reference,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transfers", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("treasury transfer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && len(apiErr.Errors) > 0 {
			return &apiErr
		}
		return fmt.Errorf("treasury transfer failed with status %d", resp.StatusCode)
	}

	var transfer TransferResponse
	if err := json.NewDecoder(resp.Body).Decode(&transfer); err != nil {
		return fmt.Errorf("decode treasury transfer response: %w", err)
	}
	if transfer.Status == "failed" || transfer.Status == "rejected" {
		return fmt.Errorf("treasury transfer %s reported status %q", transfer.ID, transfer.Status)
	}
	return nil
}

// ConfirmEscrow verifies that the provider holds escrowed value under the
// reference and that it matches the expected amount.
func (c *Client) ConfirmEscrow(ctx context.Context, reference string, expectedAmount int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/escrows/"+reference, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("treasury escrow lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("escrow %q not found", reference)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("treasury escrow lookup failed with status %d: %s", resp.StatusCode, raw)
	}

	var escrow EscrowResponse
	if err := json.NewDecoder(resp.Body).Decode(&escrow); err != nil {
		return fmt.Errorf("decode treasury escrow response: %w", err)
	}
	if escrow.Status != "held" {
		return fmt.Errorf("escrow %q has status %q, want held", reference, escrow.Status)
	}
	if escrow.Amount != expectedAmount {
		return fmt.Errorf("escrow %q holds %d, want %d", reference, escrow.Amount, expectedAmount)
	}
	return nil
}
