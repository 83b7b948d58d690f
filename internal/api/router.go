/**
 * @description
 * This file sets up the HTTP router for the campaign-service. It defines the
 * API endpoints, associates them with their handlers, and applies middleware.
 * Read endpoints are public; every mutating endpoint requires an
 * authenticated caller identity.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// CampaignRoutes creates and returns a new router for the campaign service.
func CampaignRoutes(h *CampaignHandlers, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	// Standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Public read endpoints.
	r.Get("/", h.ListCampaignsHandler)
	r.Get("/platform/fees", h.GetFeesHandler)
	r.Get("/{campaignID}", h.GetCampaignHandler)
	r.Get("/{campaignID}/donors", h.GetDonorsHandler)
	r.Get("/{campaignID}/donations/{donor}", h.GetDonationAmountHandler)
	r.Get("/{campaignID}/events", h.ListCampaignEventsHandler)

	// Group routes that require an authenticated caller identity.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		r.Post("/", h.CreateCampaignHandler)
		r.Post("/{campaignID}/donations", h.DonateHandler)
		r.Post("/{campaignID}/withdrawals", h.WithdrawHandler)
		r.Post("/{campaignID}/toggle", h.ToggleCampaignStatusHandler)

		// Platform administration
		r.Put("/platform/fee", h.UpdatePlatformFeeHandler)
		r.Put("/platform/owner", h.TransferPlatformOwnershipHandler)
	})

	return r
}
