package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"

	"schoollunch/internal/service"
)

// AdminHandler handles admin-specific routes
type AdminHandler struct {
	authService    *service.AuthService
	menuService    *service.MenuService
	holidayService *service.HolidayService
	backupService  *service.BackupService
	clock          clockwork.Clock
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(authService *service.AuthService, menuService *service.MenuService, holidayService *service.HolidayService, backupService *service.BackupService, clock clockwork.Clock) *AdminHandler {
	return &AdminHandler{
		authService:    authService,
		menuService:    menuService,
		holidayService: holidayService,
		backupService:  backupService,
		clock:          clock,
	}
}

// Check confirms the caller is an admin; RequireAdmin has already rejected everyone else
func (h *AdminHandler) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"isAdmin": true})
}

// CreateAdmin creates another admin account
func (h *AdminHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	admin, err := h.authService.CreateAdmin(r.Context(), GetUserFromContext(r.Context()), in)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, admin)
}

// ListMenuItems returns the whole catalog, unavailable items included
func (h *AdminHandler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.menuService.ListAllMenuItems(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AdminHandler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var in service.MenuItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	item, err := h.menuService.CreateMenuItem(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *AdminHandler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	var patch service.MenuItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	item, err := h.menuService.UpdateMenuItem(r.Context(), id, patch)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *AdminHandler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var in service.HolidayInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	holiday, err := h.holidayService.Create(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, holiday)
}

func (h *AdminHandler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if err := h.holidayService.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportDatabase streams a JSON backup of the database as a download
func (h *AdminHandler) ExportDatabase(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	backup, err := h.backupService.Collect(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("schoollunch_backup_%s.json", h.clock.Now().Format("20060102_150405"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	writeJSON(w, http.StatusOK, backup)

	slog.Info("database exported", "admin_id", user.ID)
}
