package handlers

import (
	"net/http"

	"schoollunch/internal/models"
	"schoollunch/internal/service"
)

// LunchHandler exposes the selection lifecycle of one kid
type LunchHandler struct {
	lunchService *service.LunchService
}

// NewLunchHandler creates a new lunch handler
func NewLunchHandler(lunchService *service.LunchService) *LunchHandler {
	return &LunchHandler{lunchService: lunchService}
}

// SelectionResponse is a saved selection and what the save did
type SelectionResponse struct {
	Selection *models.LunchSelection `json:"selection"`
	Outcome   service.Outcome        `json:"outcome"`
}

// BulkResponse holds one result per requested date, in request order
type BulkResponse struct {
	Results []service.BulkResult `json:"results"`
}

func (h *LunchHandler) ListSelections(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	kidID, err := pathID(r, "kidId")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	year, month, err := pathYearMonth(r)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	selections, err := h.lunchService.ListForMonth(r.Context(), user.ID, kidID, year, month)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, selections)
}

// CreateSelection answers 201 for a new row and 200 when an existing
// selection for the date was updated or left as is
func (h *LunchHandler) CreateSelection(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	kidID, err := pathID(r, "kidId")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	var in service.SelectionInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	result, err := h.lunchService.Create(r.Context(), user.ID, kidID, in)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Outcome == service.OutcomeCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, SelectionResponse{Selection: result.Selection, Outcome: result.Outcome})
}

func (h *LunchHandler) BulkSave(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	kidID, err := pathID(r, "kidId")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	var in service.BulkSelectionInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	results, err := h.lunchService.BulkSave(r.Context(), user.ID, kidID, in)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BulkResponse{Results: results})
}

func (h *LunchHandler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	kidID, err := pathID(r, "kidId")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	selectionID, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	var in service.SelectionUpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	result, err := h.lunchService.Update(r.Context(), user.ID, kidID, selectionID, in)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SelectionResponse{Selection: result.Selection, Outcome: result.Outcome})
}

func (h *LunchHandler) DeleteSelection(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	kidID, err := pathID(r, "kidId")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	selectionID, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	if err := h.lunchService.Delete(r.Context(), user.ID, kidID, selectionID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LunchHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	kidID, err := pathID(r, "kidId")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	selectionID, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	history, err := h.lunchService.ListHistory(r.Context(), user.ID, kidID, selectionID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
