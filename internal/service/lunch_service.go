package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"schoollunch/internal/metrics"
	"schoollunch/internal/models"
	"schoollunch/internal/repository"
	"schoollunch/internal/validation"
)

// maxUpdateAttempts bounds how often an update re-reads a selection after
// losing a compare-and-swap to a concurrent writer.
const maxUpdateAttempts = 3

// Outcome describes what happened to one selection write
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeDeleted   Outcome = "deleted"
	OutcomeLocked    Outcome = "locked"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeError     Outcome = "error"
)

// SelectionInput picks a menu item for one date
type SelectionInput struct {
	Date       models.Date `json:"date" validate:"required"`
	MenuItemID int64       `json:"menuItemId" validate:"required,gt=0"`
}

// SelectionUpdateInput replaces the menu item of an existing selection
type SelectionUpdateInput struct {
	MenuItemID int64 `json:"menuItemId" validate:"required,gt=0"`
}

// BulkSelectionInput picks one menu item for several dates
type BulkSelectionInput struct {
	Dates      []models.Date `json:"dates" validate:"required,min=1,max=31"`
	MenuItemID int64         `json:"menuItemId" validate:"required,gt=0"`
}

// SaveResult is a written (or unchanged) selection and how it got there
type SaveResult struct {
	Selection *models.LunchSelection
	Outcome   Outcome
}

// BulkResult is the outcome for one date of a bulk save
type BulkResult struct {
	Date      models.Date            `json:"date"`
	Outcome   Outcome                `json:"outcome"`
	Selection *models.LunchSelection `json:"selection,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Fields    map[string]string      `json:"fields,omitempty"`
}

// LunchService runs the lunch selection lifecycle: create, update, delete
// and the audit trail written on every update.
type LunchService struct {
	store       repository.Store
	eligibility *EligibilityService
	clock       clockwork.Clock
	metrics     *metrics.Metrics
}

// NewLunchService creates a lunch service. m may be nil.
func NewLunchService(store repository.Store, eligibility *EligibilityService, clock clockwork.Clock, m *metrics.Metrics) *LunchService {
	return &LunchService{
		store:       store,
		eligibility: eligibility,
		clock:       clock,
		metrics:     m,
	}
}

// Create saves the selection for (kidID, in.Date). When the kid already has a
// selection for that date it is updated instead, so there is never more than
// one row per kid and date.
func (s *LunchService) Create(ctx context.Context, actorID, kidID int64, in SelectionInput) (*SaveResult, error) {
	result, err := s.create(ctx, actorID, kidID, in)
	s.record("create", result, err)
	return result, err
}

func (s *LunchService) create(ctx context.Context, actorID, kidID int64, in SelectionInput) (*SaveResult, error) {
	if err := invalidFields(validation.Struct(in)); err != nil {
		return nil, err
	}
	today := s.eligibility.Today()

	var result *SaveResult
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		if _, err := ownedKid(ctx, tx, actorID, kidID); err != nil {
			return err
		}
		if err := checkSelectable(ctx, tx, in.Date, today); err != nil {
			return err
		}
		if err := checkMenuItem(ctx, tx, in.MenuItemID, in.Date); err != nil {
			return err
		}

		now := s.clock.Now()
		selection := &models.LunchSelection{
			KidID:      kidID,
			MenuItemID: in.MenuItemID,
			Date:       in.Date,
			CreatedAt:  now,
			ModifiedAt: now,
		}
		inserted, err := tx.InsertSelection(ctx, selection)
		if err != nil {
			return storeErr("failed to create selection", err)
		}
		if inserted {
			result = &SaveResult{Selection: selection, Outcome: OutcomeCreated}
			return nil
		}

		existing, err := tx.GetSelectionByKidAndDate(ctx, kidID, in.Date)
		if err != nil {
			return storeErr("failed to get selection", err)
		}
		if existing == nil {
			return ErrSelectionLocked
		}
		result, err = s.updateInTx(ctx, tx, actorID, existing, in.MenuItemID, today)
		return err
	})
	if err != nil {
		return nil, storeErr("failed to save selection", err)
	}
	return result, nil
}

// Update replaces the menu item of a selection. A selection that is locked,
// missing or belongs to another kid yields ErrSelectionLocked. Choosing the
// item that is already selected changes nothing and writes no history.
func (s *LunchService) Update(ctx context.Context, actorID, kidID, selectionID int64, in SelectionUpdateInput) (*SaveResult, error) {
	result, err := s.update(ctx, actorID, kidID, selectionID, in)
	s.record("update", result, err)
	return result, err
}

func (s *LunchService) update(ctx context.Context, actorID, kidID, selectionID int64, in SelectionUpdateInput) (*SaveResult, error) {
	if err := invalidFields(validation.Struct(in)); err != nil {
		return nil, err
	}
	today := s.eligibility.Today()

	var result *SaveResult
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		if _, err := ownedKid(ctx, tx, actorID, kidID); err != nil {
			return err
		}
		existing, err := tx.GetSelectionByID(ctx, selectionID)
		if err != nil {
			return storeErr("failed to get selection", err)
		}
		if existing == nil || existing.KidID != kidID {
			return ErrSelectionLocked
		}
		result, err = s.updateInTx(ctx, tx, actorID, existing, in.MenuItemID, today)
		return err
	})
	if err != nil {
		return nil, storeErr("failed to update selection", err)
	}
	return result, nil
}

// updateInTx swaps the menu item and appends the history row in the caller's
// transaction. The write only lands if the row still holds the item we read
// and is still unlocked; otherwise the row is re-read and re-checked.
func (s *LunchService) updateInTx(ctx context.Context, tx repository.Store, actorID int64, existing *models.LunchSelection, menuItemID int64, today models.Date) (*SaveResult, error) {
	kidID := existing.KidID
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		if IsLocked(existing.Date, today) {
			return nil, ErrSelectionLocked
		}
		if existing.MenuItemID == menuItemID {
			return &SaveResult{Selection: existing, Outcome: OutcomeUnchanged}, nil
		}
		if err := checkSelectable(ctx, tx, existing.Date, today); err != nil {
			return nil, err
		}
		if err := checkMenuItem(ctx, tx, menuItemID, existing.Date); err != nil {
			return nil, err
		}

		now := s.clock.Now()
		swapped, err := tx.UpdateSelectionMenuItem(ctx, existing.ID, existing.MenuItemID, menuItemID, today.AddDays(1), now)
		if err != nil {
			return nil, storeErr("failed to update selection", err)
		}
		if swapped {
			oldMenuItemID := existing.MenuItemID
			entry := &models.SelectionHistory{
				SelectionID:   existing.ID,
				OldMenuItemID: &oldMenuItemID,
				NewMenuItemID: menuItemID,
				ChangedAt:     now,
				ChangedBy:     actorID,
			}
			if err := tx.AppendSelectionHistory(ctx, entry); err != nil {
				return nil, storeErr("failed to record selection history", err)
			}
			existing.MenuItemID = menuItemID
			existing.ModifiedAt = now
			return &SaveResult{Selection: existing, Outcome: OutcomeUpdated}, nil
		}

		slog.Debug("selection changed underneath update, re-reading",
			"selection_id", existing.ID, "attempt", attempt)
		existing, err = tx.GetSelectionByID(ctx, existing.ID)
		if err != nil {
			return nil, storeErr("failed to get selection", err)
		}
		if existing == nil || existing.KidID != kidID {
			return nil, ErrSelectionLocked
		}
	}
	return nil, ErrSelectionLocked
}

// Delete removes a selection that is still open. Locked, missing or foreign
// selections yield ErrSelectionLocked.
func (s *LunchService) Delete(ctx context.Context, actorID, kidID, selectionID int64) error {
	err := s.delete(ctx, actorID, kidID, selectionID)
	if err == nil {
		s.metrics.RecordSelection("delete", string(OutcomeDeleted))
	} else {
		s.metrics.RecordSelection("delete", string(outcomeOf(err)))
	}
	return err
}

func (s *LunchService) delete(ctx context.Context, actorID, kidID, selectionID int64) error {
	today := s.eligibility.Today()

	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		if _, err := ownedKid(ctx, tx, actorID, kidID); err != nil {
			return err
		}
		deleted, err := tx.DeleteSelection(ctx, selectionID, kidID, today.AddDays(1))
		if err != nil {
			return storeErr("failed to delete selection", err)
		}
		if !deleted {
			return ErrSelectionLocked
		}
		return nil
	})
	return storeErr("failed to delete selection", err)
}

// BulkSave applies one menu item to several dates. Dates are saved one after
// another, each in its own transaction, so a failure on one date does not
// affect the others. Only a kid the actor does not own fails the whole call.
func (s *LunchService) BulkSave(ctx context.Context, actorID, kidID int64, in BulkSelectionInput) ([]BulkResult, error) {
	if err := invalidFields(validation.Struct(in)); err != nil {
		return nil, err
	}
	if _, err := ownedKid(ctx, s.store, actorID, kidID); err != nil {
		return nil, err
	}

	results := make([]BulkResult, 0, len(in.Dates))
	for _, date := range in.Dates {
		res, err := s.Create(ctx, actorID, kidID, SelectionInput{Date: date, MenuItemID: in.MenuItemID})
		if err != nil {
			results = append(results, failedBulkResult(date, err))
			continue
		}
		results = append(results, BulkResult{Date: date, Outcome: res.Outcome, Selection: res.Selection})
	}
	return results, nil
}

func failedBulkResult(date models.Date, err error) BulkResult {
	result := BulkResult{Date: date, Outcome: outcomeOf(err), Error: err.Error()}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		result.Fields = valErr.Fields
	}
	if result.Outcome == OutcomeError {
		// storage details stay in the logs
		slog.Error("bulk selection save failed", "date", date.String(), "error", err)
		result.Error = "could not save selection"
	}
	return result
}

// ListForMonth returns a kid's selections within a month, each with its menu item
func (s *LunchService) ListForMonth(ctx context.Context, actorID, kidID int64, year, month int) ([]models.LunchSelectionWithItem, error) {
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}
	if _, err := ownedKid(ctx, s.store, actorID, kidID); err != nil {
		return nil, err
	}
	from, to := monthRange(year, month)
	selections, err := s.store.ListSelectionsForKid(ctx, kidID, from, to)
	if err != nil {
		return nil, storeErr("failed to list selections", err)
	}
	return selections, nil
}

// ListHistory returns the change history of a kid's selection, newest first
func (s *LunchService) ListHistory(ctx context.Context, actorID, kidID, selectionID int64) ([]models.SelectionHistory, error) {
	if _, err := ownedKid(ctx, s.store, actorID, kidID); err != nil {
		return nil, err
	}
	selection, err := s.store.GetSelectionByID(ctx, selectionID)
	if err != nil {
		return nil, storeErr("failed to get selection", err)
	}
	if selection == nil || selection.KidID != kidID {
		return nil, ErrSelectionNotFound
	}
	history, err := s.store.ListSelectionHistory(ctx, selectionID)
	if err != nil {
		return nil, storeErr("failed to list selection history", err)
	}
	return history, nil
}

// checkMenuItem returns a ValidationError on "menuItemId" unless the item exists,
// is available and belongs to date's month
func checkMenuItem(ctx context.Context, store repository.MenuStore, menuItemID int64, date models.Date) error {
	item, err := store.GetMenuItemByID(ctx, menuItemID)
	if err != nil {
		return storeErr("failed to get menu item", err)
	}
	switch {
	case item == nil:
		return invalidField("menuItemId", "menu item does not exist")
	case !item.IsAvailable:
		return invalidField("menuItemId", "menu item is not available")
	case !item.ServesOn(date):
		return invalidField("menuItemId", "menu item is not on the menu for "+date.String())
	}
	return nil
}

func outcomeOf(err error) Outcome {
	var valErr *ValidationError
	switch {
	case errors.Is(err, ErrSelectionLocked):
		return OutcomeLocked
	case errors.Is(err, ErrKidNotFound):
		return OutcomeNotFound
	case errors.As(err, &valErr):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

func (s *LunchService) record(operation string, result *SaveResult, err error) {
	if err != nil {
		s.metrics.RecordSelection(operation, string(outcomeOf(err)))
		return
	}
	s.metrics.RecordSelection(operation, string(result.Outcome))
}
