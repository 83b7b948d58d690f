/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It archives committed ledger events in an append-only
 * `campaign_events` table and maintains a `campaigns` snapshot table for
 * inspection queries.
 *
 * @dependencies
 * - context, encoding/json, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openfund/campaign-service/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// AppendEvent inserts a committed event into the archive. The commit sequence
// is unique per service run; the uuid id keeps replays idempotent.
func (r *PostgresRepository) AppendEvent(ctx context.Context, entry JournalEntry) error {
	payload, err := json.Marshal(entry.Event)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO campaign_events (id, seq, campaign_id, event_type, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = r.db.Exec(ctx, query,
		entry.ID, entry.Seq, entry.CampaignID, entry.EventType, payload, entry.Event.OccurredAt)
	return err
}

// SaveCampaignSnapshot upserts the latest projection of a campaign.
func (r *PostgresRepository) SaveCampaignSnapshot(ctx context.Context, campaign domain.Campaign) error {
	query := `
		INSERT INTO campaigns (id, title, description, image_url, goal_amount, raised_amount, owner_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (id) DO UPDATE SET
			raised_amount = EXCLUDED.raised_amount,
			is_active     = EXCLUDED.is_active,
			updated_at    = now()
	`
	_, err := r.db.Exec(ctx, query,
		campaign.ID, campaign.Title, campaign.Description, campaign.ImageURL,
		campaign.GoalAmount, campaign.RaisedAmount, string(campaign.Owner),
		campaign.IsActive, campaign.CreatedAt)
	return err
}

// ListEvents returns up to limit archived events for a campaign, oldest first.
func (r *PostgresRepository) ListEvents(ctx context.Context, campaignID int64, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, seq, campaign_id, event_type, payload
		FROM campaign_events
		WHERE campaign_id = $1
		ORDER BY seq ASC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var entry JournalEntry
		var payload []byte
		if err := rows.Scan(&entry.ID, &entry.Seq, &entry.CampaignID, &entry.EventType, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &entry.Event); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
