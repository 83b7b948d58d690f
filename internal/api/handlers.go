/**
 * @description
 * This file contains the HTTP handlers for the campaign-service's API
 * endpoints. Handlers parse incoming requests, call the application service,
 * and translate ledger errors into HTTP status codes. They act as the bridge
 * between the web layer and the ledger.
 *
 * @dependencies
 * - encoding/json, errors, log, net/http, strconv: Standard Go libraries.
 * - github.com/go-chi/chi/v5: For URL parameter extraction.
 * - internal/app, internal/domain, internal/ledger: Service logic, models,
 *   and the ledger's sentinel errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openfund/campaign-service/internal/app"
	"github.com/openfund/campaign-service/internal/domain"
	"github.com/openfund/campaign-service/internal/ledger"
	"github.com/openfund/campaign-service/internal/store"
)

// CampaignHandlers holds the application service that handlers will use.
type CampaignHandlers struct {
	service *app.Service
}

// NewCampaignHandlers creates a new instance of CampaignHandlers.
func NewCampaignHandlers(service *app.Service) *CampaignHandlers {
	return &CampaignHandlers{service: service}
}

// CreateCampaignHandler handles requests to create a new campaign.
func (h *CampaignHandlers) CreateCampaignHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCallerIdentity(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get caller identity from context")
		return
	}

	var req domain.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id, err := h.service.CreateCampaign(r.Context(), caller, req)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, map[string]any{"campaign_id": id})
}

// DonateHandler handles requests to donate to a campaign. The donated value
// must already be escrowed with the treasury under the supplied reference.
func (h *CampaignHandlers) DonateHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCallerIdentity(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get caller identity from context")
		return
	}
	campaignID, ok := h.campaignIDFromURL(w, r)
	if !ok {
		return
	}

	var req domain.DonateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.Donate(r.Context(), campaignID, caller, req); err != nil {
		switch {
		case errors.Is(err, app.ErrDonationRateLimited):
			h.writeError(w, http.StatusTooManyRequests, "Too many donations. Please wait and try again.")
		case errors.Is(err, app.ErrEscrowNotConfirmed):
			h.writeError(w, http.StatusPaymentRequired, "Donated value is not escrowed")
		default:
			h.writeLedgerError(w, err)
		}
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"campaign_id": campaignID,
		"donor":       caller,
		"amount":      req.Amount,
	})
}

// WithdrawHandler handles owner withdrawal requests.
func (h *CampaignHandlers) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCallerIdentity(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get caller identity from context")
		return
	}
	campaignID, ok := h.campaignIDFromURL(w, r)
	if !ok {
		return
	}

	var req domain.WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.WithdrawFunds(r.Context(), campaignID, caller, req.Amount); err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"campaign_id": campaignID,
		"amount":      req.Amount,
	})
}

// ToggleCampaignStatusHandler flips a campaign between active and inactive.
func (h *CampaignHandlers) ToggleCampaignStatusHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCallerIdentity(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get caller identity from context")
		return
	}
	campaignID, ok := h.campaignIDFromURL(w, r)
	if !ok {
		return
	}

	if err := h.service.ToggleCampaignStatus(r.Context(), campaignID, caller); err != nil {
		h.writeLedgerError(w, err)
		return
	}

	campaign, err := h.service.Ledger().GetCampaign(campaignID)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"campaign_id": campaignID,
		"is_active":   campaign.IsActive,
	})
}

// GetCampaignHandler returns the full projection of one campaign.
func (h *CampaignHandlers) GetCampaignHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignIDFromURL(w, r)
	if !ok {
		return
	}

	campaign, err := h.service.Ledger().GetCampaign(campaignID)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, campaign)
}

// ListCampaignsHandler returns all campaigns in ascending id order, or just
// the active campaign ids when ?active=true is set.
func (h *CampaignHandlers) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("active") == "true" {
		ids := h.service.Ledger().GetActiveCampaigns()
		if ids == nil {
			ids = []int64{}
		}
		h.respondWithJSON(w, http.StatusOK, map[string]any{"campaign_ids": ids})
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"items": h.service.Ledger().ListCampaigns()})
}

// GetDonationAmountHandler returns a donor's cumulative donation to a campaign.
func (h *CampaignHandlers) GetDonationAmountHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignIDFromURL(w, r)
	if !ok {
		return
	}
	donor := chi.URLParam(r, "donor")
	if donor == "" {
		h.writeError(w, http.StatusBadRequest, "Donor identity is required")
		return
	}

	amount, err := h.service.Ledger().GetDonationAmount(campaignID, domain.Identity(donor))
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"campaign_id": campaignID,
		"donor":       donor,
		"amount":      amount,
	})
}

// GetDonorsHandler returns a campaign's donor roster in first-donation order.
func (h *CampaignHandlers) GetDonorsHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignIDFromURL(w, r)
	if !ok {
		return
	}

	donors, err := h.service.Ledger().GetDonors(campaignID)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	if donors == nil {
		donors = []domain.Identity{}
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"campaign_id": campaignID,
		"donors":      donors,
		"donor_count": len(donors),
	})
}

// ListCampaignEventsHandler returns archived committed events for a campaign.
func (h *CampaignHandlers) ListCampaignEventsHandler(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := h.campaignIDFromURL(w, r)
	if !ok {
		return
	}
	limit := 50
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 || parsed > 500 {
			h.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.service.ListCampaignEvents(r.Context(), campaignID, limit)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	if entries == nil {
		entries = []store.JournalEntry{}
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"items": entries})
}

// UpdatePlatformFeeHandler sets the platform fee rate (platform owner only).
func (h *CampaignHandlers) UpdatePlatformFeeHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCallerIdentity(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get caller identity from context")
		return
	}

	var req domain.UpdatePlatformFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.UpdatePlatformFee(r.Context(), caller, req.FeeBps); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"fee_bps": req.FeeBps})
}

// TransferPlatformOwnershipHandler hands the platform owner role over.
func (h *CampaignHandlers) TransferPlatformOwnershipHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetCallerIdentity(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get caller identity from context")
		return
	}

	var req domain.TransferPlatformOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.TransferPlatformOwnership(r.Context(), caller, req.NewOwner); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]any{"platform_owner": req.NewOwner})
}

// GetFeesHandler returns the current platform fee configuration.
func (h *CampaignHandlers) GetFeesHandler(w http.ResponseWriter, r *http.Request) {
	cfg := h.service.Ledger().PlatformConfig()
	h.respondWithJSON(w, http.StatusOK, map[string]any{
		"platform_fee_bps": cfg.PlatformFeeBps,
		"campaign_count":   cfg.CampaignCount,
	})
}

// campaignIDFromURL parses the campaignID URL parameter. Any id that is not a
// positive integer maps to the not-found response, matching the ledger's
// treatment of out-of-range ids.
func (h *CampaignHandlers) campaignIDFromURL(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "campaignID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusNotFound, "Campaign not found")
		return 0, false
	}
	return id, true
}

// writeLedgerError maps ledger sentinel errors to HTTP status codes.
func (h *CampaignHandlers) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidArgument):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrCampaignNotFound):
		h.writeError(w, http.StatusNotFound, "Campaign not found")
	case errors.Is(err, ledger.ErrUnauthorized):
		h.writeError(w, http.StatusForbidden, "Caller is not authorized for this operation")
	case errors.Is(err, ledger.ErrCampaignInactive):
		h.writeError(w, http.StatusConflict, "Campaign is not active")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		h.writeError(w, http.StatusUnprocessableEntity, "Withdrawal amount exceeds raised funds")
	case errors.Is(err, ledger.ErrTransferFailed):
		h.writeError(w, http.StatusBadGateway, "Treasury transfer failed; withdrawal rolled back")
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// writeError sends a JSON error response.
func (h *CampaignHandlers) writeError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON sends a JSON response with the given status code.
func (h *CampaignHandlers) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}
