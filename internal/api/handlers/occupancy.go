package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/staybook/backend/internal/api/middleware"
	"github.com/staybook/backend/internal/occupancy"
	"github.com/staybook/backend/internal/storage"
	"github.com/staybook/backend/internal/storage/models"
)

// maxGridMonths caps /api/calendar requests.
const maxGridMonths = 24

// maxOccupancyDays caps the /api/occupancy window at about the same span.
const maxOccupancyDays = 731

// OccupancyReader is the read side of occupancy.Service.
type OccupancyReader interface {
	ConflictChecker
	Occupancy(ctx context.Context, propertyIDs []string, from, to time.Time) (*occupancy.Index, error)
	Calendar(ctx context.Context, properties []models.Property, first time.Time, months int) ([]occupancy.PropertyCalendar, error)
}

type OccupancyResponse struct {
	From       string              `json:"from"`
	To         string              `json:"to"`
	Properties map[string][]string `json:"properties"`
}

type ConflictResponse struct {
	Conflict  bool                 `json:"conflict"`
	Conflicts []occupancy.Conflict `json:"conflicts"`
}

// Occupancy returns occupied days per property for the closed window
// [from, to]. from defaults to today and to to from + 30 days. Repeating
// "property" narrows the result to those properties.
func Occupancy(properties *storage.PropertyRepository, occ OccupancyReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, err := parseDateParam(q.Get("from"), today())
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "from must be YYYY-MM-DD")
			return
		}
		to, err := parseDateParam(q.Get("to"), from.AddDate(0, 0, 30))
		if err != nil || to.Before(from) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "to must be YYYY-MM-DD and not before from")
			return
		}
		if to.After(from.AddDate(0, 0, maxOccupancyDays-1)) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "window must not exceed 731 days")
			return
		}

		selected, ok := selectProperties(w, r, properties, q["property"])
		if !ok {
			return
		}
		ids := make([]string, len(selected))
		for i, p := range selected {
			ids[i] = p.ID
		}

		ix, err := occ.Occupancy(r.Context(), ids, from, to)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to compute occupancy")
			return
		}
		middleware.WriteJSON(w, http.StatusOK, OccupancyResponse{
			From:       from.Format(models.DateLayout),
			To:         to.Format(models.DateLayout),
			Properties: ix.ByProperty(ids),
		})
	}
}

// Calendar returns month grids for the caller's properties, starting at
// ?start=YYYY-MM (default: this month) for ?months=N months.
func Calendar(properties *storage.PropertyRepository, occ OccupancyReader, defaultMonths int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		first := today()
		if s := q.Get("start"); s != "" {
			t, err := time.Parse("2006-01", s)
			if err != nil {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "start must be YYYY-MM")
				return
			}
			first = t
		}

		months := defaultMonths
		if s := q.Get("months"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > maxGridMonths {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "months must be between 1 and 24")
				return
			}
			months = n
		}

		selected, ok := selectProperties(w, r, properties, q["property"])
		if !ok {
			return
		}

		cals, err := occ.Calendar(r.Context(), selected, first, months)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to build calendar")
			return
		}
		if cals == nil {
			cals = []occupancy.PropertyCalendar{}
		}
		middleware.WriteJSON(w, http.StatusOK, cals)
	}
}

// Conflicts reports whether ?start=&end= overlaps a stay of ?property=.
func Conflicts(properties *storage.PropertyRepository, occ OccupancyReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		p, ok := ownedProperty(w, r, properties, q.Get("property"))
		if !ok {
			return
		}

		start, errStart := models.ParseDate(q.Get("start"))
		end, errEnd := models.ParseDate(q.Get("end"))
		if errStart != nil || errEnd != nil || !end.After(start) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "start and end must be YYYY-MM-DD with end after start")
			return
		}

		conflicts, err := occ.CheckConflicts(r.Context(), p.ID, start, end, q.Get("exclude"))
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to check conflicts")
			return
		}
		if conflicts == nil {
			conflicts = []occupancy.Conflict{}
		}
		middleware.WriteJSON(w, http.StatusOK, ConflictResponse{Conflict: len(conflicts) > 0, Conflicts: conflicts})
	}
}

// selectProperties returns the caller's properties, narrowed to ids when
// given. An id the caller does not own is reported as not found.
func selectProperties(w http.ResponseWriter, r *http.Request, properties *storage.PropertyRepository, ids []string) ([]models.Property, bool) {
	if len(ids) == 0 {
		all, err := properties.ListByUser(r.Context(), middleware.UserID(r.Context()))
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query properties")
			return nil, false
		}
		return all, true
	}

	selected := make([]models.Property, 0, len(ids))
	for _, id := range ids {
		p, ok := ownedProperty(w, r, properties, id)
		if !ok {
			return nil, false
		}
		selected = append(selected, *p)
	}
	return selected, true
}
