package handlers

import (
	"net/http"

	"schoollunch/internal/service"
)

// KidHandler handles kid-related HTTP requests
type KidHandler struct {
	kidService *service.KidService
}

// NewKidHandler creates a new kid handler
func NewKidHandler(kidService *service.KidService) *KidHandler {
	return &KidHandler{kidService: kidService}
}

// ListKids returns the signed-in parent's kids
func (h *KidHandler) ListKids(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	kids, err := h.kidService.List(r.Context(), user.ID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, kids)
}

func (h *KidHandler) GetKid(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	kidID, err := pathID(r, "kidId")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	kid, err := h.kidService.Get(r.Context(), user.ID, kidID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, kid)
}

func (h *KidHandler) CreateKid(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	var in service.KidInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	kid, err := h.kidService.Create(r.Context(), user.ID, in)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, kid)
}

func (h *KidHandler) UpdateKid(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	kidID, err := pathID(r, "kidId")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	var in service.KidInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	kid, err := h.kidService.Update(r.Context(), user.ID, kidID, in)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, kid)
}

// DeleteKid removes a kid together with the kid's selections
func (h *KidHandler) DeleteKid(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	kidID, err := pathID(r, "kidId")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if err := h.kidService.Delete(r.Context(), user.ID, kidID); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
