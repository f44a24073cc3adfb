package service

import (
	"context"
	"strings"

	"schoollunch/internal/models"
	"schoollunch/internal/repository"
	"schoollunch/internal/validation"
)

// HolidayService manages the school holiday calendar
type HolidayService struct {
	store repository.HolidayStore
}

// NewHolidayService creates a new holiday service
func NewHolidayService(store repository.HolidayStore) *HolidayService {
	return &HolidayService{store: store}
}

// HolidayInput is the payload for adding a holiday
type HolidayInput struct {
	Date        models.Date `json:"date" validate:"required"`
	Description string      `json:"description" validate:"required,max=255"`
}

// ListForMonth returns the holidays of a month in date order
func (s *HolidayService) ListForMonth(ctx context.Context, year, month int) ([]models.Holiday, error) {
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}
	from, to := monthRange(year, month)
	holidays, err := s.store.ListHolidaysBetween(ctx, from, to)
	if err != nil {
		return nil, storeErr("failed to list holidays", err)
	}
	return holidays, nil
}

// Create adds a holiday. Existing selections on that date are left untouched.
func (s *HolidayService) Create(ctx context.Context, in HolidayInput) (*models.Holiday, error) {
	in.Description = strings.TrimSpace(in.Description)
	if err := invalidFields(validation.Struct(in)); err != nil {
		return nil, err
	}

	holiday := &models.Holiday{Date: in.Date, Description: in.Description}
	created, err := s.store.CreateHoliday(ctx, holiday)
	if err != nil {
		return nil, storeErr("failed to create holiday", err)
	}
	if !created {
		return nil, ErrHolidayExists
	}
	return holiday, nil
}

// Delete removes a holiday
func (s *HolidayService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.store.DeleteHoliday(ctx, id)
	if err != nil {
		return storeErr("failed to delete holiday", err)
	}
	if !deleted {
		return ErrHolidayNotFound
	}
	return nil
}
