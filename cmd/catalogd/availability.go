package main

import (
	"time"

	"catalogdesk-backend/internal/availability"
	"catalogdesk-backend/internal/rowstore"
)

type AvailabilityConfig struct {
	// Scripts maps a shop directory to the scraper refreshing its stock.
	Scripts           map[string]availability.ScriptChecker `json:"scripts"`
	TimeoutSeconds    int                                   `json:"timeout_seconds"`
	NativeConcurrency int                                   `json:"native_concurrency"`
}

// InitAvailability uses the configured scripts per shop and reads product
// pages directly for every other shop.
func InitAvailability(cfg AvailabilityConfig, store *rowstore.Store) *availability.Manager {
	checkers := map[string]availability.Checker{}
	for shop, script := range cfg.Scripts {
		checkers[shop] = script
	}
	native := availability.NewPageChecker(
		cfg.NativeConcurrency,
		time.Duration(cfg.TimeoutSeconds)*time.Second,
	)
	return availability.NewManager(store, native, checkers)
}
