package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/staybook/backend/internal/api/middleware"
	"github.com/staybook/backend/internal/calendar"
	"github.com/staybook/backend/internal/storage"
	"github.com/staybook/backend/internal/storage/models"
)

// FeedValidator checks a feed URL before it is stored.
type FeedValidator interface {
	ValidateFeed(ctx context.Context, url string) error
}

// Property request/response types

type PropertyRequest struct {
	Title   string `json:"title"`
	FeedURL string `json:"feed_url"`
}

// ListProperties returns the caller's properties.
func ListProperties(properties *storage.PropertyRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := properties.ListByUser(r.Context(), middleware.UserID(r.Context()))
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query properties")
			return
		}
		if list == nil {
			list = []models.Property{}
		}
		middleware.WriteJSON(w, http.StatusOK, list)
	}
}

// CreateProperty adds a property for the caller. A non-empty feed URL must
// pass validation when validator is non-nil, or nothing is saved.
func CreateProperty(properties *storage.PropertyRepository, validator FeedValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PropertyRequest
		if !decodeBody(w, r, &req) || !validateProperty(w, r, &req, validator) {
			return
		}

		p := &models.Property{
			UserID:  middleware.UserID(r.Context()),
			Title:   req.Title,
			FeedURL: req.FeedURL,
		}
		if err := properties.Create(r.Context(), p); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create property")
			return
		}
		middleware.WriteJSON(w, http.StatusCreated, p)
	}
}

// GetProperty returns a single property by ID.
func GetProperty(properties *storage.PropertyRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := ownedProperty(w, r, properties, mux.Vars(r)["id"])
		if !ok {
			return
		}
		middleware.WriteJSON(w, http.StatusOK, p)
	}
}

// UpdateProperty changes title and feed URL. The feed URL is validated
// again only when it changes.
func UpdateProperty(properties *storage.PropertyRepository, validator FeedValidator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := ownedProperty(w, r, properties, mux.Vars(r)["id"])
		if !ok {
			return
		}

		var req PropertyRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.FeedURL) == p.FeedURL {
			validator = nil
		}
		if !validateProperty(w, r, &req, validator) {
			return
		}

		p.Title = req.Title
		p.FeedURL = req.FeedURL
		if err := properties.Update(r.Context(), p); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update property")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, p)
	}
}

// DeleteProperty removes a property and, by cascade, its reservations.
func DeleteProperty(properties *storage.PropertyRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := ownedProperty(w, r, properties, mux.Vars(r)["id"])
		if !ok {
			return
		}
		if err := properties.Delete(r.Context(), p.ID); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete property")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func validateProperty(w http.ResponseWriter, r *http.Request, req *PropertyRequest, validator FeedValidator) bool {
	req.Title = strings.TrimSpace(req.Title)
	req.FeedURL = strings.TrimSpace(req.FeedURL)

	if req.Title == "" {
		middleware.WriteError(w, http.StatusUnprocessableEntity, middleware.ErrValidation, "Title is required")
		return false
	}
	if req.FeedURL == "" {
		return true
	}

	var err error
	if validator != nil {
		err = validator.ValidateFeed(r.Context(), req.FeedURL)
	} else if !calendar.IsFeedURL(req.FeedURL) {
		err = calendar.ErrInvalidFeedURL
	}
	if err != nil {
		msg := "Feed URL must be a reachable .ics address"
		if !errors.Is(err, calendar.ErrInvalidFeedURL) {
			msg = "Feed URL could not be checked"
		}
		middleware.WriteErrorWithDetails(w, http.StatusUnprocessableEntity, middleware.ErrValidation, msg,
			map[string]string{"field": "feed_url"})
		return false
	}
	return true
}
