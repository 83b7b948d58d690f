/**
 * @description
 * This file contains the campaign ledger, the accounting core of the
 * campaign-service. The Ledger owns every campaign, the per-donor cumulative
 * donation records, the first-donation donor rosters, and the platform fee
 * configuration. All money movement bookkeeping happens here; the HTTP layer
 * and the event pipeline are thin shells around it.
 *
 * Key invariants (checked by the test suite):
 * - raised amount == sum of donations - sum of withdrawals, never negative
 * - campaign ids are dense integers in [1, campaignCount], id 0 is reserved
 * - a donor is on a campaign's roster iff their cumulative record is > 0,
 *   and appears exactly once, in first-donation order
 * - platform fee never exceeds MaxPlatformFeeBps
 *
 * @notes
 * - A single mutex serializes all mutations. The one place control leaves the
 *   ledger is the treasury payout inside WithdrawFunds; the raised amount is
 *   decremented BEFORE the payout and the lock is released around it, so a
 *   re-entrant withdrawal observes the reduced balance and cannot drain more
 *   than is available. This ordering is a correctness requirement.
 */

package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openfund/campaign-service/internal/domain"
)

// Treasury is the external value-transfer mechanism. Implementations move
// value out of the ledger's custody to the given recipient and report failure
// by returning a non-nil error.
type Treasury interface {
	Transfer(ctx context.Context, to domain.Identity, amount int64, reference string) error
}

// Sink receives each committed event exactly once, in commit order. It is
// invoked while the ledger lock is held and must not call back into the
// ledger.
type Sink func(event domain.Event)

// Ledger holds all campaign and donation state behind a single mutex.
type Ledger struct {
	mu sync.Mutex

	campaigns map[int64]*domain.Campaign
	donations map[int64]map[domain.Identity]int64 // campaign id -> donor -> cumulative amount
	donors    map[int64][]domain.Identity         // campaign id -> roster in first-donation order

	campaignCount  int64
	platformOwner  domain.Identity
	platformFeeBps int64

	treasury Treasury
	sink     Sink
	now      func() time.Time
}

// New creates a ledger with the given initial platform owner and fee.
// The fee is clamped into [0, MaxPlatformFeeBps].
func New(platformOwner domain.Identity, platformFeeBps int64, treasury Treasury, sink Sink) *Ledger {
	if platformFeeBps < 0 {
		platformFeeBps = 0
	}
	if platformFeeBps > domain.MaxPlatformFeeBps {
		platformFeeBps = domain.MaxPlatformFeeBps
	}
	if sink == nil {
		sink = func(domain.Event) {}
	}
	return &Ledger{
		campaigns:      make(map[int64]*domain.Campaign),
		donations:      make(map[int64]map[domain.Identity]int64),
		donors:         make(map[int64][]domain.Identity),
		platformOwner:  platformOwner,
		platformFeeBps: platformFeeBps,
		treasury:       treasury,
		sink:           sink,
		now:            time.Now,
	}
}

// SetClock overrides the ledger's time source. Tests use this to pin
// campaign creation timestamps.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// CreateCampaign allocates the next sequential campaign id and stores a new
// active campaign owned by the caller. Returns the new id.
func (l *Ledger) CreateCampaign(caller domain.Identity, req domain.CreateCampaignRequest) (int64, error) {
	if req.Title == "" {
		return 0, fmt.Errorf("%w: title must not be empty", ErrInvalidArgument)
	}
	if req.GoalAmount <= 0 {
		return 0, fmt.Errorf("%w: goal amount must be positive", ErrInvalidArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.campaignCount++
	id := l.campaignCount
	c := &domain.Campaign{
		ID:           id,
		Title:        req.Title,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		GoalAmount:   req.GoalAmount,
		RaisedAmount: 0,
		Owner:        caller,
		IsActive:     true,
		CreatedAt:    l.now().UTC(),
	}
	l.campaigns[id] = c
	l.donations[id] = make(map[domain.Identity]int64)

	l.sink(domain.Event{
		Type:       domain.EventCampaignCreated,
		CampaignID: id,
		OccurredAt: c.CreatedAt,
		Title:      c.Title,
		GoalAmount: c.GoalAmount,
		Owner:      c.Owner,
	})
	return id, nil
}

// Donate records a donation from the donor to the campaign. The donated value
// must already be in the ledger's custody (escrowed by the treasury) when this
// is called. First-time donors are appended to the campaign's roster.
func (l *Ledger) Donate(campaignID int64, donor domain.Identity, amount int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.campaign(campaignID)
	if err != nil {
		return err
	}
	if !c.IsActive {
		return ErrCampaignInactive
	}
	if amount <= 0 {
		return fmt.Errorf("%w: donation amount must be positive", ErrInvalidArgument)
	}

	if l.donations[campaignID][donor] == 0 {
		l.donors[campaignID] = append(l.donors[campaignID], donor)
	}
	l.donations[campaignID][donor] += amount
	c.RaisedAmount += amount

	l.sink(domain.Event{
		Type:       domain.EventDonationReceived,
		CampaignID: campaignID,
		OccurredAt: l.now().UTC(),
		Donor:      donor,
		Amount:     amount,
	})
	return nil
}

// WithdrawFunds pays out part of a campaign's raised amount to its owner,
// splitting off the platform fee at the rate current at withdrawal time:
// fee = floor(amount * feeBps / 10000), net = amount - fee.
//
// The raised amount is decremented before the treasury is instructed to pay,
// and the lock is not held across the payout. If either payout fails the
// decrement is rolled back and the whole operation fails.
func (l *Ledger) WithdrawFunds(ctx context.Context, campaignID int64, caller domain.Identity, amount int64) error {
	l.mu.Lock()
	c, err := l.campaign(campaignID)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	if c.Owner != caller {
		l.mu.Unlock()
		return ErrUnauthorized
	}
	if amount <= 0 {
		l.mu.Unlock()
		return fmt.Errorf("%w: withdrawal amount must be positive", ErrInvalidArgument)
	}
	if amount > c.RaisedAmount {
		l.mu.Unlock()
		return ErrInsufficientFunds
	}

	fee := amount * l.platformFeeBps / 10000
	net := amount - fee
	owner := c.Owner
	platformOwner := l.platformOwner

	// Debit before paying out. A re-entrant withdrawal arriving while the
	// treasury call is in flight sees the reduced balance.
	c.RaisedAmount -= amount
	l.mu.Unlock()

	reference := fmt.Sprintf("campaign-%d-withdrawal", campaignID)
	payoutErr := l.treasury.Transfer(ctx, owner, net, reference)
	if payoutErr == nil && fee > 0 {
		payoutErr = l.treasury.Transfer(ctx, platformOwner, fee, reference+"-fee")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if payoutErr != nil {
		c.RaisedAmount += amount
		return fmt.Errorf("%w: %v", ErrTransferFailed, payoutErr)
	}

	l.sink(domain.Event{
		Type:       domain.EventFundsWithdrawn,
		CampaignID: campaignID,
		OccurredAt: l.now().UTC(),
		Recipient:  owner,
		Amount:     net,
	})
	return nil
}

// ToggleCampaignStatus flips the campaign's active flag. Only the campaign
// owner may toggle. Raised funds and donation history are unaffected.
func (l *Ledger) ToggleCampaignStatus(campaignID int64, caller domain.Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.campaign(campaignID)
	if err != nil {
		return err
	}
	if c.Owner != caller {
		return ErrUnauthorized
	}
	c.IsActive = !c.IsActive

	active := c.IsActive
	l.sink(domain.Event{
		Type:       domain.EventCampaignStatusChanged,
		CampaignID: campaignID,
		OccurredAt: l.now().UTC(),
		IsActive:   &active,
	})
	return nil
}

// GetCampaign returns a snapshot copy of the campaign.
func (l *Ledger) GetCampaign(campaignID int64) (domain.Campaign, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.campaign(campaignID)
	if err != nil {
		return domain.Campaign{}, err
	}
	return *c, nil
}

// ListCampaigns returns snapshots of all campaigns in ascending id order.
func (l *Ledger) ListCampaigns() []domain.Campaign {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Campaign, 0, l.campaignCount)
	for id := int64(1); id <= l.campaignCount; id++ {
		out = append(out, *l.campaigns[id])
	}
	return out
}

// GetActiveCampaigns returns the ids of all active campaigns in ascending
// id order.
func (l *Ledger) GetActiveCampaigns() []int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	var ids []int64
	for id := int64(1); id <= l.campaignCount; id++ {
		if l.campaigns[id].IsActive {
			ids = append(ids, id)
		}
	}
	return ids
}

// GetDonationAmount returns the donor's cumulative donation to the campaign,
// zero if they never donated.
func (l *Ledger) GetDonationAmount(campaignID int64, donor domain.Identity) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.campaign(campaignID); err != nil {
		return 0, err
	}
	return l.donations[campaignID][donor], nil
}

// GetDonors returns a copy of the campaign's donor roster in first-donation
// order.
func (l *Ledger) GetDonors(campaignID int64) ([]domain.Identity, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.campaign(campaignID); err != nil {
		return nil, err
	}
	return append([]domain.Identity(nil), l.donors[campaignID]...), nil
}

// GetDonorCount returns the number of distinct donors to the campaign.
func (l *Ledger) GetDonorCount(campaignID int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.campaign(campaignID); err != nil {
		return 0, err
	}
	return len(l.donors[campaignID]), nil
}

// UpdatePlatformFee sets the platform fee rate. Only the platform owner may
// call this, and the fee cannot exceed 10%.
func (l *Ledger) UpdatePlatformFee(caller domain.Identity, feeBps int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.platformOwner {
		return ErrUnauthorized
	}
	if feeBps < 0 || feeBps > domain.MaxPlatformFeeBps {
		return fmt.Errorf("%w: fee cannot exceed 10%%", ErrInvalidArgument)
	}
	l.platformFeeBps = feeBps
	return nil
}

// TransferPlatformOwnership hands the platform owner role to a new identity.
func (l *Ledger) TransferPlatformOwnership(caller, newOwner domain.Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.platformOwner {
		return ErrUnauthorized
	}
	if newOwner == "" {
		return fmt.Errorf("%w: new owner must be a valid identity", ErrInvalidArgument)
	}
	l.platformOwner = newOwner
	return nil
}

// PlatformConfig returns a snapshot of the platform-level configuration.
func (l *Ledger) PlatformConfig() domain.PlatformConfig {
	l.mu.Lock()
	defer l.mu.Unlock()

	return domain.PlatformConfig{
		CampaignCount:  l.campaignCount,
		PlatformOwner:  l.platformOwner,
		PlatformFeeBps: l.platformFeeBps,
	}
}

// campaign looks up a campaign by id. Callers must hold the lock.
func (l *Ledger) campaign(campaignID int64) (*domain.Campaign, error) {
	c, ok := l.campaigns[campaignID]
	if !ok {
		return nil, ErrCampaignNotFound
	}
	return c, nil
}
