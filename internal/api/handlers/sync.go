package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/staybook/backend/internal/api/middleware"
	"github.com/staybook/backend/internal/calendar"
	"github.com/staybook/backend/internal/storage"
	"github.com/staybook/backend/internal/storage/models"
	"github.com/staybook/backend/internal/websocket"
)

// UserSyncTrigger queues a background sync of one user's properties.
type UserSyncTrigger interface {
	TriggerUserSync(userID string) bool
}

// PropertySyncer runs one property's sync inline.
type PropertySyncer interface {
	SyncProperty(ctx context.Context, p *models.Property) (*models.SyncResult, error)
}

type SyncResponse struct {
	models.SyncResult
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// TriggerSync starts a background sync of the caller's properties and
// answers with "started" only; results arrive over the websocket.
func TriggerSync(trigger UserSyncTrigger, broadcaster *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if trigger.TriggerUserSync(userID) && broadcaster != nil {
			broadcaster.BroadcastSyncStarted(userID, "user")
		}
		middleware.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
	}
}

// SyncProperty syncs one of the caller's properties and returns its result.
func SyncProperty(properties *storage.PropertyRepository, syncer PropertySyncer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := ownedProperty(w, r, properties, mux.Vars(r)["id"])
		if !ok {
			return
		}

		result, err := syncer.SyncProperty(r.Context(), p)
		if err == nil {
			middleware.WriteJSON(w, http.StatusOK, SyncResponse{SyncResult: *result})
			return
		}

		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, calendar.ErrInvalidFeedURL):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, calendar.ErrFeedUnreachable), errors.Is(err, calendar.ErrFeedMalformed):
			status = http.StatusBadGateway
		}

		resp := SyncResponse{Error: websocket.ErrorCode(err), Message: err.Error()}
		if result != nil {
			resp.SyncResult = *result
		}
		middleware.WriteJSON(w, status, resp)
	}
}
