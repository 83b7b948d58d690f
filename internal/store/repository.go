/**
 * @description
 * This file defines the `Repository` interface for the campaign-service's
 * persistence layer. The ledger itself is the source of truth for balances;
 * the repository is the durable, append-only archive of committed events and
 * the latest campaign snapshots, used for inspection and the event history
 * endpoint. Defining an interface decouples the event pipeline from
 * PostgreSQL and keeps the unit tests database-free.
 *
 * @dependencies
 * - context: Standard Go library.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/openfund/campaign-service/internal/domain"
)

// JournalEntry is one persisted row of the committed-event archive.
type JournalEntry struct {
	ID         string       `json:"id"` // uuid
	Seq        uint64       `json:"seq"`
	CampaignID int64        `json:"campaign_id"`
	EventType  string       `json:"event_type"`
	Event      domain.Event `json:"event"`
}

// Repository defines the set of methods for persisting the event archive.
type Repository interface {
	// AppendEvent durably records a committed event under its commit sequence.
	AppendEvent(ctx context.Context, entry JournalEntry) error
	// SaveCampaignSnapshot upserts the latest projection of a campaign.
	SaveCampaignSnapshot(ctx context.Context, campaign domain.Campaign) error
	// ListEvents returns up to limit archived events for a campaign, oldest first.
	ListEvents(ctx context.Context, campaignID int64, limit int) ([]JournalEntry, error)
}

// NoopRepository discards writes and returns empty reads. It stands in when
// no database is configured.
type NoopRepository struct{}

func (NoopRepository) AppendEvent(ctx context.Context, entry JournalEntry) error { return nil }

func (NoopRepository) SaveCampaignSnapshot(ctx context.Context, campaign domain.Campaign) error {
	return nil
}

func (NoopRepository) ListEvents(ctx context.Context, campaignID int64, limit int) ([]JournalEntry, error) {
	return nil, nil
}
