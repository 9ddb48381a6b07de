package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/staybook/backend/internal/api/middleware"
	"github.com/staybook/backend/internal/occupancy"
	"github.com/staybook/backend/internal/storage"
	"github.com/staybook/backend/internal/storage/models"
)

// ConflictChecker finds reservations overlapping a proposed stay.
type ConflictChecker interface {
	CheckConflicts(ctx context.Context, propertyID string, start, end time.Time, excludeID string) ([]occupancy.Conflict, error)
}

// Reservation request/response types

type ReservationRequest struct {
	GuestName    *string  `json:"guest_name"`
	StartDate    *string  `json:"start_date"`
	EndDate      *string  `json:"end_date"`
	TotalPrice   *float64 `json:"total_price"`
	AllowOverlap bool     `json:"allow_overlap"`
}

type ReservationResponse struct {
	ID         string   `json:"id"`
	PropertyID string   `json:"property_id"`
	Source     string   `json:"source"`
	Status     string   `json:"status"`
	GuestName  string   `json:"guest_name"`
	StartDate  string   `json:"start_date"`
	EndDate    string   `json:"end_date"`
	Nights     int      `json:"nights"`
	TotalPrice *float64 `json:"total_price,omitempty"`
	ExternalID *string  `json:"external_id,omitempty"`
}

func toReservationResponse(res *models.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:         res.ID,
		PropertyID: res.PropertyID,
		Source:     res.Source,
		Status:     res.Status,
		GuestName:  res.GuestName,
		StartDate:  res.StartDate.Format(models.DateLayout),
		EndDate:    res.EndDate.Format(models.DateLayout),
		Nights:     res.Nights(),
		TotalPrice: res.TotalPrice,
		ExternalID: res.ExternalID,
	}
}

// ListReservations returns a property's reservations. With from and to it
// returns only active stays intersecting [from, to].
func ListReservations(repos storage.Repositories) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := ownedProperty(w, r, repos.Properties, mux.Vars(r)["id"])
		if !ok {
			return
		}

		var (
			list []models.Reservation
			err  error
		)
		q := r.URL.Query()
		if q.Get("from") != "" || q.Get("to") != "" {
			from, errFrom := parseDateParam(q.Get("from"), today())
			to, errTo := parseDateParam(q.Get("to"), from.AddDate(0, 0, 30))
			if errFrom != nil || errTo != nil || to.Before(from) {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "from and to must be YYYY-MM-DD with from <= to")
				return
			}
			list, err = repos.Reservations.ListOverlapping(r.Context(), []string{p.ID}, from, to.AddDate(0, 0, 1))
		} else {
			list, err = repos.Reservations.ListByProperty(r.Context(), p.ID)
		}
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query reservations")
			return
		}

		out := make([]ReservationResponse, len(list))
		for i := range list {
			out[i] = toReservationResponse(&list[i])
		}
		middleware.WriteJSON(w, http.StatusOK, out)
	}
}

// CreateReservation adds a manual reservation. Overlapping stays are
// rejected with 409 unless allow_overlap is set.
func CreateReservation(repos storage.Repositories, conflicts ConflictChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := ownedProperty(w, r, repos.Properties, mux.Vars(r)["id"])
		if !ok {
			return
		}

		var req ReservationRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.StartDate == nil || req.EndDate == nil {
			middleware.WriteError(w, http.StatusUnprocessableEntity, middleware.ErrValidation, "start_date and end_date are required")
			return
		}

		res := &models.Reservation{
			PropertyID: p.ID,
			Source:     models.SourceManual,
			Status:     models.StatusConfirmed,
		}
		if !applyManualFields(w, res, &req) {
			return
		}
		if !req.AllowOverlap && hasConflicts(w, r, conflicts, res) {
			return
		}

		if err := repos.Reservations.Create(r.Context(), res); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create reservation")
			return
		}
		middleware.WriteJSON(w, http.StatusCreated, toReservationResponse(res))
	}
}

// UpdateReservation edits a reservation. Manual stays accept every field;
// imported stays accept only total_price, since the feed owns the rest.
func UpdateReservation(repos storage.Repositories, conflicts ConflictChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := ownedReservation(w, r, repos)
		if !ok {
			return
		}

		var req ReservationRequest
		if !decodeBody(w, r, &req) {
			return
		}

		if res.IsImported() {
			if req.GuestName != nil || req.StartDate != nil || req.EndDate != nil {
				middleware.WriteError(w, http.StatusUnprocessableEntity, middleware.ErrValidation,
					"Imported reservations only accept total_price; dates and guest come from the feed")
				return
			}
			if err := repos.Reservations.SetPrice(r.Context(), res.ID, req.TotalPrice); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update reservation")
				return
			}
			res.TotalPrice = req.TotalPrice
			middleware.WriteJSON(w, http.StatusOK, toReservationResponse(res))
			return
		}

		if !applyManualFields(w, res, &req) {
			return
		}
		if !req.AllowOverlap && hasConflicts(w, r, conflicts, res) {
			return
		}
		if err := repos.Reservations.UpdateManual(r.Context(), res); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update reservation")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, toReservationResponse(res))
	}
}

// DeleteReservation removes a manual reservation. Imported stays are
// removed by the feed, not by hand.
func DeleteReservation(repos storage.Repositories) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := ownedReservation(w, r, repos)
		if !ok {
			return
		}
		if res.IsImported() {
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Imported reservations are managed by the property's feed")
			return
		}
		if err := repos.Reservations.Delete(r.Context(), res.ID); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete reservation")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ownedReservation(w http.ResponseWriter, r *http.Request, repos storage.Repositories) (*models.Reservation, bool) {
	res, err := repos.Reservations.GetByID(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Reservation not found")
		return nil, false
	}
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to load reservation")
		return nil, false
	}
	if _, ok := ownedProperty(w, r, repos.Properties, res.PropertyID); !ok {
		return nil, false
	}
	return res, true
}

// applyManualFields copies the fields present in req onto res and checks
// the resulting stay.
func applyManualFields(w http.ResponseWriter, res *models.Reservation, req *ReservationRequest) bool {
	if req.GuestName != nil {
		res.GuestName = strings.TrimSpace(*req.GuestName)
	}
	if req.TotalPrice != nil {
		res.TotalPrice = req.TotalPrice
	}
	for _, f := range []struct {
		value *string
		dst   *time.Time
		name  string
	}{
		{req.StartDate, &res.StartDate, "start_date"},
		{req.EndDate, &res.EndDate, "end_date"},
	} {
		if f.value == nil {
			continue
		}
		d, err := models.ParseDate(*f.value)
		if err != nil {
			middleware.WriteError(w, http.StatusUnprocessableEntity, middleware.ErrValidation, f.name+" must be YYYY-MM-DD")
			return false
		}
		*f.dst = d
	}

	if !res.EndDate.After(res.StartDate) {
		middleware.WriteError(w, http.StatusUnprocessableEntity, middleware.ErrValidation, "end_date must be after start_date")
		return false
	}
	return true
}

func hasConflicts(w http.ResponseWriter, r *http.Request, checker ConflictChecker, res *models.Reservation) bool {
	conflicts, err := checker.CheckConflicts(r.Context(), res.PropertyID, res.StartDate, res.EndDate, res.ID)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to check conflicts")
		return true
	}
	if len(conflicts) > 0 {
		middleware.WriteErrorWithDetails(w, http.StatusConflict, middleware.ErrConflict,
			"The stay overlaps existing reservations", conflicts)
		return true
	}
	return false
}
