package handlers

import (
	"net/http"

	"schoollunch/internal/models"
	"schoollunch/internal/service"
)

// MenuHandler serves the read side of the school calendar: menus, holidays
// and the dates open for selection
type MenuHandler struct {
	menuService    *service.MenuService
	holidayService *service.HolidayService
	eligibility    *service.EligibilityService
}

// NewMenuHandler creates a new menu handler
func NewMenuHandler(menuService *service.MenuService, holidayService *service.HolidayService, eligibility *service.EligibilityService) *MenuHandler {
	return &MenuHandler{
		menuService:    menuService,
		holidayService: holidayService,
		eligibility:    eligibility,
	}
}

// MenuResponse is a month's menu, whole and split by diet
type MenuResponse struct {
	Year          int                      `json:"year"`
	Month         int                      `json:"month"`
	Items         []models.MonthlyMenuItem `json:"items"`
	Vegetarian    []models.MonthlyMenuItem `json:"vegetarian"`
	NonVegetarian []models.MonthlyMenuItem `json:"nonVegetarian"`
}

// DatesResponse lists the dates of a month open for selection
type DatesResponse struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Today models.Date   `json:"today"`
	Dates []models.Date `json:"dates"`
}

func (h *MenuHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathYearMonth(r)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	items, err := h.menuService.GetMenuItems(r.Context(), year, month)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	veg, nonVeg := service.SplitByDiet(items)
	writeJSON(w, http.StatusOK, MenuResponse{
		Year:          year,
		Month:         month,
		Items:         items,
		Vegetarian:    veg,
		NonVegetarian: nonVeg,
	})
}

func (h *MenuHandler) GetHolidays(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathYearMonth(r)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	holidays, err := h.holidayService.ListForMonth(r.Context(), year, month)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, holidays)
}

func (h *MenuHandler) GetSelectableDates(w http.ResponseWriter, r *http.Request) {
	year, month, err := pathYearMonth(r)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	dates, err := h.eligibility.SelectableDates(r.Context(), year, month)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DatesResponse{
		Year:  year,
		Month: month,
		Today: h.eligibility.Today(),
		Dates: dates,
	})
}
