package domain

import "time"

// Event types for committed ledger state changes. Each successful mutation
// emits exactly one event, in commit order.
const (
	EventCampaignCreated       = "campaign.created"
	EventDonationReceived      = "campaign.donation.received"
	EventFundsWithdrawn        = "campaign.funds.withdrawn"
	EventCampaignStatusChanged = "campaign.status.changed"
)

// Event is the append-only notification record for a committed state change.
// The Type doubles as the RabbitMQ routing key when the event is published.
type Event struct {
	Type       string    `json:"type"`
	CampaignID int64     `json:"campaign_id"`
	OccurredAt time.Time `json:"occurred_at"`

	// CampaignCreated
	Title      string   `json:"title,omitempty"`
	GoalAmount int64    `json:"goal_amount,omitempty"`
	Owner      Identity `json:"owner,omitempty"`

	// DonationReceived
	Donor  Identity `json:"donor,omitempty"`
	Amount int64    `json:"amount,omitempty"` // donation amount, or net payout for withdrawals

	// FundsWithdrawn
	Recipient Identity `json:"recipient,omitempty"`

	// CampaignStatusChanged
	IsActive *bool `json:"is_active,omitempty"`
}
