package handlers

import (
	"net/http"
	"time"

	"github.com/staybook/backend/internal/api/middleware"
	"github.com/staybook/backend/internal/storage"
	"github.com/staybook/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.PingContext(r.Context()) == nil

		status := http.StatusOK
		response := HealthResponse{Status: "healthy", DBConnected: dbConnected}
		if !dbConnected {
			response.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		middleware.WriteJSON(w, status, response)
	}
}

// NextRunner reports when the next background sweep is due.
type NextRunner interface {
	NextRun() *time.Time
}

// StatusResponse represents the caller's sync status.
type StatusResponse struct {
	PropertiesCount   int        `json:"properties_count"`
	FeedsCount        int        `json:"feeds_count"`
	ReservationsCount int        `json:"reservations_count"`
	LastSyncAt        *time.Time `json:"last_sync_at,omitempty"`
	NextSweepAt       *time.Time `json:"next_sweep_at,omitempty"`
	ConnectedClients  int        `json:"connected_clients"`
}

// Status returns counts for the caller's properties and the sweep schedule.
func Status(db *storage.DB, hub *websocket.Hub, scheduler NextRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := middleware.UserID(ctx)

		var resp StatusResponse
		var lastSync *string
		err := db.QueryRowContext(ctx, `
			SELECT COUNT(*), COUNT(NULLIF(feed_url, '')), MAX(last_sync_at)
			FROM properties WHERE user_id = ?
		`, userID).Scan(&resp.PropertiesCount, &resp.FeedsCount, &lastSync)
		if err == nil {
			err = db.QueryRowContext(ctx, `
				SELECT COUNT(*) FROM reservations r
				JOIN properties p ON p.id = r.property_id
				WHERE p.user_id = ? AND r.status <> 'cancelled'
			`, userID).Scan(&resp.ReservationsCount)
		}
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query status")
			return
		}

		if lastSync != nil {
			if t, err := parseSQLiteTime(*lastSync); err == nil {
				resp.LastSyncAt = &t
			}
		}
		if scheduler != nil {
			resp.NextSweepAt = scheduler.NextRun()
		}
		if hub != nil {
			resp.ConnectedClients = hub.ClientCount()
		}
		middleware.WriteJSON(w, http.StatusOK, resp)
	}
}

// sqliteTimeLayouts covers how go-sqlite3 writes time.Time values.
var sqliteTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseSQLiteTime(s string) (time.Time, error) {
	var err error
	for _, layout := range sqliteTimeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
