package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/openfund/campaign-service/internal/domain"
	"github.com/openfund/campaign-service/internal/ledger"
	"github.com/openfund/campaign-service/internal/store"
)

type stubTreasury struct{}

func (stubTreasury) Transfer(ctx context.Context, to domain.Identity, amount int64, reference string) error {
	return nil
}

type publishedMessage struct {
	Exchange   string
	RoutingKey string
	Event      domain.Event
}

type stubPublisher struct {
	mu        sync.Mutex
	published []publishedMessage
}

func (p *stubPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	event, _ := body.(domain.Event)
	p.published = append(p.published, publishedMessage{Exchange: exchange, RoutingKey: routingKey, Event: event})
	return nil
}

func (p *stubPublisher) Close() {}

func (p *stubPublisher) recorded() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage(nil), p.published...)
}

type stubRepo struct {
	store.NoopRepository

	mu       sync.Mutex
	appended []store.JournalEntry
	listErr  error
	canned   []store.JournalEntry
}

func (r *stubRepo) AppendEvent(ctx context.Context, entry store.JournalEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appended = append(r.appended, entry)
	return nil
}

func (r *stubRepo) ListEvents(ctx context.Context, campaignID int64, limit int) ([]store.JournalEntry, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.canned, nil
}

func (r *stubRepo) recorded() []store.JournalEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.JournalEntry(nil), r.appended...)
}

type stubEscrow struct {
	err error
}

func (e *stubEscrow) ConfirmEscrow(ctx context.Context, reference string, expectedAmount int64) error {
	return e.err
}

type stubLimiter struct {
	count int
	err   error
}

func (l *stubLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	return l.count, 30, l.err
}

const testPlatformOwner = domain.Identity("platform-owner")

func newTestService(t *testing.T, escrow EscrowConfirmer) (*Service, *stubPublisher, *stubRepo) {
	t.Helper()
	publisher := &stubPublisher{}
	repo := &stubRepo{}
	s := NewService(testPlatformOwner, 250, stubTreasury{}, escrow, repo, publisher, "campaign_events")
	return s, publisher, repo
}

func TestService_DispatchesCommittedEventsInOrder(t *testing.T) {
	s, publisher, repo := newTestService(t, nil)
	ctx := context.Background()

	id, err := s.CreateCampaign(ctx, "alice", domain.CreateCampaignRequest{Title: "Library roof", GoalAmount: 100000})
	if err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}
	if err := s.Donate(ctx, id, "bob", domain.DonateRequest{Amount: 5000}); err != nil {
		t.Fatalf("Donate failed: %v", err)
	}
	if err := s.WithdrawFunds(ctx, id, "alice", 2000); err != nil {
		t.Fatalf("WithdrawFunds failed: %v", err)
	}

	// Shutdown drains the dispatcher feed before returning.
	s.Shutdown()

	wantKeys := []string{
		domain.EventCampaignCreated,
		domain.EventDonationReceived,
		domain.EventFundsWithdrawn,
	}
	published := publisher.recorded()
	if len(published) != len(wantKeys) {
		t.Fatalf("expected %d published events, got %d", len(wantKeys), len(published))
	}
	for i, want := range wantKeys {
		if published[i].RoutingKey != want {
			t.Fatalf("publish %d: expected routing key %s, got %s", i, want, published[i].RoutingKey)
		}
		if published[i].Exchange != "campaign_events" {
			t.Fatalf("publish %d: expected exchange campaign_events, got %s", i, published[i].Exchange)
		}
	}

	appended := repo.recorded()
	if len(appended) != len(wantKeys) {
		t.Fatalf("expected %d journal entries, got %d", len(wantKeys), len(appended))
	}
	for i, entry := range appended {
		if entry.Seq != uint64(i+1) {
			t.Fatalf("journal entry %d: expected seq %d, got %d", i, i+1, entry.Seq)
		}
		if entry.EventType != wantKeys[i] {
			t.Fatalf("journal entry %d: expected type %s, got %s", i, wantKeys[i], entry.EventType)
		}
		if entry.ID == "" {
			t.Fatalf("journal entry %d: missing id", i)
		}
	}
}

func TestService_FailedMutationsEmitNothing(t *testing.T) {
	s, publisher, _ := newTestService(t, nil)
	ctx := context.Background()

	if _, err := s.CreateCampaign(ctx, "alice", domain.CreateCampaignRequest{Title: "", GoalAmount: 100}); !errors.Is(err, ledger.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if err := s.Donate(ctx, 1, "bob", domain.DonateRequest{Amount: 100}); !errors.Is(err, ledger.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}

	s.Shutdown()
	if len(publisher.recorded()) != 0 {
		t.Fatalf("failed operations must not publish events, got %d", len(publisher.recorded()))
	}
}

func TestService_Donate_RequiresEscrowConfirmation(t *testing.T) {
	s, _, _ := newTestService(t, &stubEscrow{err: errors.New("no such escrow")})
	ctx := context.Background()

	id, err := s.CreateCampaign(ctx, "alice", domain.CreateCampaignRequest{Title: "t", GoalAmount: 100})
	if err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}

	err = s.Donate(ctx, id, "bob", domain.DonateRequest{Amount: 100, EscrowReference: "esc-1"})
	if !errors.Is(err, ErrEscrowNotConfirmed) {
		t.Fatalf("expected ErrEscrowNotConfirmed, got %v", err)
	}

	amount, _ := s.Ledger().GetDonationAmount(id, "bob")
	if amount != 0 {
		t.Fatalf("unconfirmed escrow must not record a donation, got %d", amount)
	}
}

func TestService_Donate_MissingEscrowReference(t *testing.T) {
	s, _, _ := newTestService(t, &stubEscrow{})
	ctx := context.Background()

	id, err := s.CreateCampaign(ctx, "alice", domain.CreateCampaignRequest{Title: "t", GoalAmount: 100})
	if err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}
	if err := s.Donate(ctx, id, "bob", domain.DonateRequest{Amount: 100}); err == nil {
		t.Fatal("expected error when escrow reference is missing")
	}
}

func TestService_Donate_RateLimited(t *testing.T) {
	s, _, _ := newTestService(t, nil)
	s.ConfigureDonationRateLimit(&stubLimiter{count: 11}, 10)
	ctx := context.Background()

	id, err := s.CreateCampaign(ctx, "alice", domain.CreateCampaignRequest{Title: "t", GoalAmount: 100})
	if err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}
	if err := s.Donate(ctx, id, "bob", domain.DonateRequest{Amount: 100}); !errors.Is(err, ErrDonationRateLimited) {
		t.Fatalf("expected ErrDonationRateLimited, got %v", err)
	}
}

func TestService_Donate_LimiterFailureDoesNotBlockDonations(t *testing.T) {
	s, _, _ := newTestService(t, nil)
	s.ConfigureDonationRateLimit(&stubLimiter{err: errors.New("redis down")}, 10)
	ctx := context.Background()

	id, err := s.CreateCampaign(ctx, "alice", domain.CreateCampaignRequest{Title: "t", GoalAmount: 100})
	if err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}
	if err := s.Donate(ctx, id, "bob", domain.DonateRequest{Amount: 100}); err != nil {
		t.Fatalf("donation must proceed when the limiter is unavailable, got %v", err)
	}
}

func TestService_ListCampaignEvents_UnknownCampaign(t *testing.T) {
	s, _, _ := newTestService(t, nil)

	if _, err := s.ListCampaignEvents(context.Background(), 7, 10); !errors.Is(err, ledger.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
}

func TestEventLog_AssignsCommitSequence(t *testing.T) {
	log := NewEventLog()
	log.Append(domain.Event{Type: domain.EventCampaignCreated, CampaignID: 1})
	log.Append(domain.Event{Type: domain.EventDonationReceived, CampaignID: 1})

	history := log.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].Seq != 1 || history[1].Seq != 2 {
		t.Fatalf("expected sequences 1,2, got %d,%d", history[0].Seq, history[1].Seq)
	}

	first := <-log.Feed()
	second := <-log.Feed()
	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("feed must deliver in commit order, got %d,%d", first.Seq, second.Seq)
	}
}
