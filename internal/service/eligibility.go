package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"schoollunch/internal/models"
	"schoollunch/internal/repository"
)

// SelectableDates returns the dates of year/month that are open for a lunch
// selection: tomorrow or later, not a Sunday and not in holidays. A month
// entirely before tomorrow yields an empty slice.
func SelectableDates(year int, month time.Month, today models.Date, holidays map[models.Date]struct{}) []models.Date {
	first := today.AddDays(1)
	if start := models.FirstOfMonth(year, month); first.Before(start) {
		first = start
	}
	last := models.NewDate(year, month, models.DaysIn(year, month))

	dates := []models.Date{}
	for d := first; !d.After(last); d = d.AddDays(1) {
		if d.Weekday() == time.Sunday {
			continue
		}
		if _, ok := holidays[d]; ok {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

// IsLocked reports whether a selection for date can no longer change, i.e. date < today+1.
func IsLocked(date, today models.Date) bool {
	return date.Before(today.AddDays(1))
}

// EligibilityService answers date questions against the school calendar.
// Today is re-derived from the clock on every call.
type EligibilityService struct {
	holidays repository.HolidayStore
	clock    clockwork.Clock
	location *time.Location
}

// NewEligibilityService creates an eligibility service. location is the school's time zone.
func NewEligibilityService(holidays repository.HolidayStore, clock clockwork.Clock, location *time.Location) *EligibilityService {
	if location == nil {
		location = time.Local
	}
	return &EligibilityService{holidays: holidays, clock: clock, location: location}
}

// Today returns the current date in the school's time zone
func (s *EligibilityService) Today() models.Date {
	return models.DateOf(s.clock.Now().In(s.location))
}

// SelectableDates returns the open dates of a month
func (s *EligibilityService) SelectableDates(ctx context.Context, year, month int) ([]models.Date, error) {
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}
	today := s.Today()

	holidays, err := holidaySet(ctx, s.holidays, year, time.Month(month))
	if err != nil {
		return nil, err
	}
	return SelectableDates(year, time.Month(month), today, holidays), nil
}

// checkSelectable returns a ValidationError on "date" unless date is open for selection
func checkSelectable(ctx context.Context, holidays repository.HolidayStore, date, today models.Date) error {
	if IsLocked(date, today) {
		return invalidField("date", "must be tomorrow or later")
	}
	if date.Weekday() == time.Sunday {
		return invalidField("date", "no lunch is served on Sundays")
	}
	list, err := holidays.ListHolidaysBetween(ctx, date, date)
	if err != nil {
		return storeErr("failed to load holidays", err)
	}
	if len(list) > 0 {
		return invalidField("date", "no lunch is served on "+list[0].Description)
	}
	return nil
}

func holidaySet(ctx context.Context, store repository.HolidayStore, year int, month time.Month) (map[models.Date]struct{}, error) {
	from, to := monthRange(year, int(month))
	list, err := store.ListHolidaysBetween(ctx, from, to)
	if err != nil {
		return nil, storeErr("failed to load holidays", err)
	}
	set := make(map[models.Date]struct{}, len(list))
	for _, h := range list {
		set[h.Date] = struct{}{}
	}
	return set, nil
}

func validateMonth(year, month int) error {
	fields := map[string]string{}
	if year < 2000 || year > 9999 {
		fields["year"] = "must be between 2000 and 9999"
	}
	if month < 1 || month > 12 {
		fields["month"] = "must be between 1 and 12"
	}
	return invalidFields(fields)
}

func monthRange(year, month int) (models.Date, models.Date) {
	m := time.Month(month)
	return models.FirstOfMonth(year, m), models.NewDate(year, m, models.DaysIn(year, m))
}
