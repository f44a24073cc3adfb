package handlers

import (
	"net/http"

	"schoollunch/internal/metrics"
)

// Handlers bundles everything the router mounts
type Handlers struct {
	Auth       *AuthHandler
	Kids       *KidHandler
	Menu       *MenuHandler
	Lunch      *LunchHandler
	Admin      *AdminHandler
	Middleware *Middleware
	Metrics    *metrics.Metrics
	Health     func() error
}

// NewRouter registers every route and wraps the mux in request logging
func NewRouter(h Handlers) http.Handler {
	mux := http.NewServeMux()
	mw := h.Middleware

	mux.HandleFunc("GET /healthz", h.healthz)
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics.Handler())
	}

	// Public routes
	mux.HandleFunc("POST /api/register", mw.RateLimit(h.Auth.Register))
	mux.HandleFunc("POST /api/login", mw.RateLimit(h.Auth.Login))
	mux.HandleFunc("POST /api/logout", h.Auth.Logout)
	mux.HandleFunc("GET /api/auth/providers", h.Auth.ListOAuthProviders)
	mux.HandleFunc("GET /api/auth/{provider}/start", mw.RateLimit(h.Auth.StartOAuth))
	mux.HandleFunc("GET /api/auth/{provider}/callback", h.Auth.OAuthCallback)

	// Parent routes
	mux.HandleFunc("GET /api/user", mw.RequireAuth(h.Auth.CurrentUser))
	mux.HandleFunc("PUT /api/user", mw.RequireAuth(h.Auth.UpdateProfile))

	mux.HandleFunc("GET /api/kids", mw.RequireAuth(h.Kids.ListKids))
	mux.HandleFunc("POST /api/kids", mw.RequireAuth(h.Kids.CreateKid))
	mux.HandleFunc("GET /api/kids/{kidId}", mw.RequireAuth(h.Kids.GetKid))
	mux.HandleFunc("PUT /api/kids/{kidId}", mw.RequireAuth(h.Kids.UpdateKid))
	mux.HandleFunc("DELETE /api/kids/{kidId}", mw.RequireAuth(h.Kids.DeleteKid))

	mux.HandleFunc("GET /api/menu/{year}/{month}", mw.RequireAuth(h.Menu.GetMenu))
	mux.HandleFunc("GET /api/holidays/{year}/{month}", mw.RequireAuth(h.Menu.GetHolidays))
	mux.HandleFunc("GET /api/lunch/dates/{year}/{month}", mw.RequireAuth(h.Menu.GetSelectableDates))

	mux.HandleFunc("GET /api/kids/{kidId}/lunch-selections/{year}/{month}", mw.RequireAuth(h.Lunch.ListSelections))
	mux.HandleFunc("POST /api/kids/{kidId}/lunch-selections", mw.RequireAuth(h.Lunch.CreateSelection))
	mux.HandleFunc("POST /api/kids/{kidId}/lunch-selections/bulk", mw.RequireAuth(h.Lunch.BulkSave))
	mux.HandleFunc("PUT /api/kids/{kidId}/lunch-selections/{id}", mw.RequireAuth(h.Lunch.UpdateSelection))
	mux.HandleFunc("DELETE /api/kids/{kidId}/lunch-selections/{id}", mw.RequireAuth(h.Lunch.DeleteSelection))
	mux.HandleFunc("GET /api/kids/{kidId}/lunch-selections/{id}/history", mw.RequireAuth(h.Lunch.ListHistory))

	// Admin routes
	mux.HandleFunc("GET /api/admin/check", mw.RequireAdmin(h.Admin.Check))
	mux.HandleFunc("POST /api/admin/admins", mw.RequireAdmin(h.Admin.CreateAdmin))
	mux.HandleFunc("GET /api/admin/menu-items", mw.RequireAdmin(h.Admin.ListMenuItems))
	mux.HandleFunc("POST /api/admin/menu-items", mw.RequireAdmin(h.Admin.CreateMenuItem))
	mux.HandleFunc("PUT /api/admin/menu-items/{id}", mw.RequireAdmin(h.Admin.UpdateMenuItem))
	mux.HandleFunc("POST /api/admin/holidays", mw.RequireAdmin(h.Admin.CreateHoliday))
	mux.HandleFunc("DELETE /api/admin/holidays/{id}", mw.RequireAdmin(h.Admin.DeleteHoliday))
	mux.HandleFunc("GET /api/admin/backup", mw.RequireAdmin(h.Admin.ExportDatabase))

	return mw.Logging(mux)
}

func (h Handlers) healthz(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health(); err != nil {
			respondWithError(w, http.StatusServiceUnavailable, "Database unavailable", "Health check failed", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
