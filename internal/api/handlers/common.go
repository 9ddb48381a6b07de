// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/staybook/backend/internal/api/middleware"
	"github.com/staybook/backend/internal/storage"
	"github.com/staybook/backend/internal/storage/models"
)

// ownedProperty loads a property of the calling user. Properties of other
// users are reported as not found. It writes the error response itself.
func ownedProperty(w http.ResponseWriter, r *http.Request, properties *storage.PropertyRepository, id string) (*models.Property, bool) {
	p, err := properties.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && p.UserID != middleware.UserID(r.Context())) {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Property not found")
		return nil, false
	}
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to load property")
		return nil, false
	}
	return p, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
		return false
	}
	return true
}

// parseDateParam parses a YYYY-MM-DD value, falling back to def when empty.
func parseDateParam(value string, def time.Time) (time.Time, error) {
	if value == "" {
		return def, nil
	}
	return models.ParseDate(value)
}

func today() time.Time {
	return models.Date(time.Now())
}
