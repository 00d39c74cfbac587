package api

import (
	"log"

	"github.com/go-chi/chi/v5"

	"bountyhooks/pkg/storage"
)

// Mount registers the read API on r.
func Mount(r chi.Router, claims storage.ClaimStore, bounties storage.BountyStore, logger *log.Logger) {
	r.Get("/health", Health)
	r.Method("GET", "/claims", &ClaimsHandler{Store: claims, Logger: logger})
	r.Method("GET", "/claims/{pr_id}", &ClaimHandler{Store: claims, Logger: logger})
	r.Method("GET", "/bounties", &BountiesHandler{Store: bounties, Logger: logger})
}
