// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/staybook/backend/internal/api/handlers"
	"github.com/staybook/backend/internal/api/middleware"
	"github.com/staybook/backend/internal/config"
	"github.com/staybook/backend/internal/logging"
	"github.com/staybook/backend/internal/session"
	"github.com/staybook/backend/internal/storage"
	"github.com/staybook/backend/internal/websocket"
)

// Scheduler is the part of calendar.Scheduler the API uses.
type Scheduler interface {
	handlers.UserSyncTrigger
	NextRun() *time.Time
}

// Services bundles what the HTTP layer needs.
type Services struct {
	Config      *config.Config
	DB          *storage.DB
	Hub         *websocket.Hub
	Broadcaster *websocket.EventBroadcaster
	Sessions    session.Store
	Syncer      handlers.PropertySyncer
	Scheduler   Scheduler
	Occupancy   handlers.OccupancyReader
	Validator   handlers.FeedValidator
	Logger      logging.Logger
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(s Services) *mux.Router {
	repos := storage.NewRepositories(s.DB)
	cookie := s.Config.Session.CookieName

	validator := s.Validator
	if !s.Config.Sync.ValidateOnSave {
		validator = nil
	}

	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging(s.Logger))
	r.Use(middleware.ErrorRecovery(s.Logger))

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Public endpoints
	api.HandleFunc("/health", handlers.HealthCheck(s.DB)).Methods("GET")
	api.HandleFunc("/login", handlers.Login(repos.Users, s.Sessions, cookie)).Methods("POST")
	api.HandleFunc("/logout", handlers.Logout(s.Sessions, cookie)).Methods("POST")

	// Everything else requires a session
	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.RequireUser(s.Sessions, cookie))

	authed.HandleFunc("/status", handlers.Status(s.DB, s.Hub, s.Scheduler)).Methods("GET")
	authed.HandleFunc("/settings", handlers.GetSettings(s.Config)).Methods("GET")
	authed.HandleFunc("/ws", handlers.WebSocketUpgrade(s.Hub, s.Logger)).Methods("GET")

	// Property endpoints
	authed.HandleFunc("/properties", handlers.ListProperties(repos.Properties)).Methods("GET")
	authed.HandleFunc("/properties", handlers.CreateProperty(repos.Properties, validator)).Methods("POST")
	authed.HandleFunc("/properties/{id}", handlers.GetProperty(repos.Properties)).Methods("GET")
	authed.HandleFunc("/properties/{id}", handlers.UpdateProperty(repos.Properties, validator)).Methods("PUT")
	authed.HandleFunc("/properties/{id}", handlers.DeleteProperty(repos.Properties)).Methods("DELETE")
	authed.HandleFunc("/properties/{id}/sync", handlers.SyncProperty(repos.Properties, s.Syncer)).Methods("POST")

	// Reservation endpoints
	authed.HandleFunc("/properties/{id}/reservations", handlers.ListReservations(repos)).Methods("GET")
	authed.HandleFunc("/properties/{id}/reservations", handlers.CreateReservation(repos, s.Occupancy)).Methods("POST")
	authed.HandleFunc("/reservations/{id}", handlers.UpdateReservation(repos, s.Occupancy)).Methods("PUT")
	authed.HandleFunc("/reservations/{id}", handlers.DeleteReservation(repos)).Methods("DELETE")

	// Sync and occupancy endpoints
	authed.HandleFunc("/sync", handlers.TriggerSync(s.Scheduler, s.Broadcaster)).Methods("POST")
	authed.HandleFunc("/occupancy", handlers.Occupancy(repos.Properties, s.Occupancy)).Methods("GET")
	authed.HandleFunc("/calendar", handlers.Calendar(repos.Properties, s.Occupancy, s.Config.Calendar.Months)).Methods("GET")
	authed.HandleFunc("/conflicts", handlers.Conflicts(repos.Properties, s.Occupancy)).Methods("GET")

	// Serve static frontend files
	if s.Config.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(s.Config.StaticDir)))
	}

	return r
}
