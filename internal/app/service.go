/**
 * @description
 * This file contains the core application service for the campaign-service.
 * The `Service` struct wraps the in-memory campaign ledger and owns every
 * side effect around it: confirming donation escrow with the treasury,
 * rate limiting donors, publishing committed events to RabbitMQ, and
 * archiving them in the Postgres journal.
 *
 * Key features:
 * - All ledger semantics (balances, rosters, fee math, authorization) live in
 *   internal/ledger; this layer never reimplements them.
 * - Committed events flow through the in-process EventLog and are dispatched
 *   in commit order. Publish and archive failures are logged but never fail
 *   a mutation that has already committed.
 *
 * @dependencies
 * - context, errors, log, time: Standard Go libraries.
 * - github.com/google/uuid: For journal entry ids.
 * - internal/domain, internal/ledger, internal/store: Domain models, the
 *   ledger core, and the archive repository.
 * - pkg/rabbitmq: For event publication.
 */

package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/openfund/campaign-service/internal/domain"
	"github.com/openfund/campaign-service/internal/ledger"
	"github.com/openfund/campaign-service/internal/store"
	"github.com/openfund/campaign-service/pkg/rabbitmq"
)

// ErrDonationRateLimited is returned when a donor exceeds the configured
// per-minute donation rate limit.
var ErrDonationRateLimited = errors.New("donation rate limit exceeded")

// ErrEscrowNotConfirmed is returned when the treasury cannot confirm that the
// donated value is escrowed under the supplied reference.
var ErrEscrowNotConfirmed = errors.New("escrow not confirmed")

// EscrowConfirmer verifies that donated value is already held by the treasury.
type EscrowConfirmer interface {
	ConfirmEscrow(ctx context.Context, reference string, expectedAmount int64) error
}

// RateLimiter consumes one unit of a per-subject rate limit and reports the
// running count within the window.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the campaign ledger's business operations.
type Service struct {
	ledger   *ledger.Ledger
	repo     store.Repository
	producer rabbitmq.Publisher
	exchange string
	events   *EventLog

	escrow EscrowConfirmer // nil disables escrow confirmation (dev mode)

	rateLimiter        RateLimiter
	donationRateLimit  int
	donationRateWindow time.Duration

	dispatcherDone chan struct{}
}

// NewService creates the application service, the ledger it wraps, and the
// event dispatcher. The treasury is the external value-transfer mechanism
// used for withdrawals; escrow may be nil when no treasury API is configured.
func NewService(
	platformOwner domain.Identity,
	platformFeeBps int64,
	treasury ledger.Treasury,
	escrow EscrowConfirmer,
	repo store.Repository,
	producer rabbitmq.Publisher,
	exchange string,
) *Service {
	events := NewEventLog()
	s := &Service{
		repo:           repo,
		producer:       producer,
		exchange:       exchange,
		events:         events,
		escrow:         escrow,
		dispatcherDone: make(chan struct{}),
	}
	s.ledger = ledger.New(platformOwner, platformFeeBps, treasury, events.Append)
	go s.dispatchEvents()
	return s
}

// ConfigureDonationRateLimit enables per-donor donation rate limiting.
// A limit of zero disables it.
func (s *Service) ConfigureDonationRateLimit(limiter RateLimiter, perMinute int) {
	s.rateLimiter = limiter
	s.donationRateLimit = perMinute
	s.donationRateWindow = time.Minute
}

// Ledger exposes the underlying ledger for read operations.
func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}

// Events exposes the in-process committed-event log.
func (s *Service) Events() *EventLog {
	return s.events
}

// CreateCampaign creates a campaign owned by the caller and returns its id.
func (s *Service) CreateCampaign(ctx context.Context, caller domain.Identity, req domain.CreateCampaignRequest) (int64, error) {
	return s.ledger.CreateCampaign(caller, req)
}

// Donate records a donation after confirming the donated value is escrowed
// and the donor is within the rate limit.
func (s *Service) Donate(ctx context.Context, campaignID int64, donor domain.Identity, req domain.DonateRequest) error {
	if s.rateLimiter != nil && s.donationRateLimit > 0 {
		count, _, err := s.rateLimiter.ConsumeRateLimit(ctx, "donate", string(donor), s.donationRateLimit, s.donationRateWindow)
		if err != nil {
			// Rate limiting is protective, not load-bearing; a broken limiter
			// must not block donations.
			log.Printf("level=warn component=app msg=\"rate limiter unavailable; allowing donation\" donor=%s err=%v", donor, err)
		} else if count > s.donationRateLimit {
			return ErrDonationRateLimited
		}
	}

	if s.escrow != nil {
		if req.EscrowReference == "" {
			return errors.New("escrow reference is required")
		}
		if err := s.escrow.ConfirmEscrow(ctx, req.EscrowReference, req.Amount); err != nil {
			return errors.Join(ErrEscrowNotConfirmed, err)
		}
	}

	return s.ledger.Donate(campaignID, donor, req.Amount)
}

// WithdrawFunds pays out part of the campaign's raised amount to its owner,
// minus the platform fee.
func (s *Service) WithdrawFunds(ctx context.Context, campaignID int64, caller domain.Identity, amount int64) error {
	return s.ledger.WithdrawFunds(ctx, campaignID, caller, amount)
}

// ToggleCampaignStatus flips the campaign's active flag.
func (s *Service) ToggleCampaignStatus(ctx context.Context, campaignID int64, caller domain.Identity) error {
	return s.ledger.ToggleCampaignStatus(campaignID, caller)
}

// UpdatePlatformFee sets the platform fee rate (platform owner only).
func (s *Service) UpdatePlatformFee(ctx context.Context, caller domain.Identity, feeBps int64) error {
	return s.ledger.UpdatePlatformFee(caller, feeBps)
}

// TransferPlatformOwnership hands over the platform owner role.
func (s *Service) TransferPlatformOwnership(ctx context.Context, caller, newOwner domain.Identity) error {
	return s.ledger.TransferPlatformOwnership(caller, newOwner)
}

// ListCampaignEvents returns archived events for a campaign, oldest first.
func (s *Service) ListCampaignEvents(ctx context.Context, campaignID int64, limit int) ([]store.JournalEntry, error) {
	if _, err := s.ledger.GetCampaign(campaignID); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, campaignID, limit)
}

// Shutdown stops the event dispatcher after the feed drains.
func (s *Service) Shutdown() {
	s.events.Close()
	<-s.dispatcherDone
}

// dispatchEvents drains the committed-event feed in commit order, publishing
// each event to RabbitMQ and archiving it in the journal. Failures here are
// logged and skipped: the mutation has already committed.
func (s *Service) dispatchEvents() {
	defer close(s.dispatcherDone)
	for entry := range s.events.Feed() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := s.producer.Publish(ctx, s.exchange, entry.Event.Type, entry.Event); err != nil {
			log.Printf("level=warn component=app msg=\"event publish failed\" seq=%d type=%s campaign_id=%d err=%v",
				entry.Seq, entry.Event.Type, entry.Event.CampaignID, err)
		}

		journalEntry := store.JournalEntry{
			ID:         uuid.New().String(),
			Seq:        entry.Seq,
			CampaignID: entry.Event.CampaignID,
			EventType:  entry.Event.Type,
			Event:      entry.Event,
		}
		if err := s.repo.AppendEvent(ctx, journalEntry); err != nil {
			log.Printf("level=warn component=app msg=\"event archive failed\" seq=%d type=%s campaign_id=%d err=%v",
				entry.Seq, entry.Event.Type, entry.Event.CampaignID, err)
		}

		if campaign, err := s.ledger.GetCampaign(entry.Event.CampaignID); err == nil {
			if err := s.repo.SaveCampaignSnapshot(ctx, campaign); err != nil {
				log.Printf("level=warn component=app msg=\"campaign snapshot failed\" campaign_id=%d err=%v",
					entry.Event.CampaignID, err)
			}
		}
		cancel()
	}
}
