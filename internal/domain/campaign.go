/**
 * @description
 * This file defines the core domain models for the campaign-service. These
 * structs represent the entities and data transfer objects (DTOs) used by the
 * ledger, the business logic, and the API layers.
 *
 * @notes
 * - Amounts are stored as `int64` in the smallest currency unit (kobo), which
 *   avoids floating-point inaccuracies with financial data.
 * - Campaign ids are dense positive integers assigned sequentially from 1.
 *   Id 0 is reserved and never denotes a real campaign.
 */

package domain

import "time"

// Identity is an opaque, comparable reference to a caller. It is supplied by
// the authentication layer (the JWT subject) and compared by plain equality.
type Identity string

// MaxPlatformFeeBps caps the platform fee at 10% (basis points of 10000).
const MaxPlatformFeeBps = 1000

// Campaign is the ledger's record of a single fundraising campaign.
type Campaign struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"image_url"`
	GoalAmount   int64     `json:"goal_amount"`   // in kobo, immutable
	RaisedAmount int64     `json:"raised_amount"` // in kobo
	Owner        Identity  `json:"owner"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// PlatformConfig holds the platform-level ledger configuration.
type PlatformConfig struct {
	CampaignCount  int64    `json:"campaign_count"`
	PlatformOwner  Identity `json:"platform_owner"`
	PlatformFeeBps int64    `json:"platform_fee_bps"`
}

// CreateCampaignRequest is the DTO for incoming campaign creation API requests.
type CreateCampaignRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	GoalAmount  int64  `json:"goal_amount"` // in kobo
}

// DonateRequest is the DTO for incoming donation API requests. The amount must
// equal the value escrowed with the treasury under EscrowReference.
type DonateRequest struct {
	Amount          int64  `json:"amount"` // in kobo
	EscrowReference string `json:"escrow_reference,omitempty"`
}

// WithdrawRequest is the DTO for incoming withdrawal API requests.
type WithdrawRequest struct {
	Amount int64 `json:"amount"` // in kobo
}

// UpdatePlatformFeeRequest is the DTO for fee administration requests.
type UpdatePlatformFeeRequest struct {
	FeeBps int64 `json:"fee_bps"`
}

// TransferPlatformOwnershipRequest is the DTO for platform ownership handover.
type TransferPlatformOwnershipRequest struct {
	NewOwner Identity `json:"new_owner"`
}
