package handlers

import (
	"net/http"

	"github.com/staybook/backend/internal/api/middleware"
	"github.com/staybook/backend/internal/config"
)

// SettingsResponse exposes the effective sync and calendar settings.
type SettingsResponse struct {
	SyncInterval          string `json:"sync_interval"`
	StalePolicy           string `json:"stale_policy"`
	RecurrenceHorizonDays int    `json:"recurrence_horizon_days"`
	ValidateOnSave        bool   `json:"validate_on_save"`
	WeekStart             string `json:"week_start"`
	Months                int    `json:"months"`
}

// GetSettings returns the server's effective settings. They are read-only
// over the API and come from the configuration file.
func GetSettings(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, SettingsResponse{
			SyncInterval:          cfg.Sync.Interval.String(),
			StalePolicy:           cfg.Sync.StalePolicy,
			RecurrenceHorizonDays: cfg.Sync.RecurrenceHorizonDays,
			ValidateOnSave:        cfg.Sync.ValidateOnSave,
			WeekStart:             cfg.Calendar.WeekStart,
			Months:                cfg.Calendar.Months,
		})
	}
}
