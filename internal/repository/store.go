package repository

import (
	"context"
	"time"

	"schoollunch/internal/database"
	"schoollunch/internal/models"
)

// UserStore persists parent accounts and their sessions
type UserStore interface {
	CountUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, user *models.User) (bool, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByOAuth(ctx context.Context, provider, subject string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, user *models.User) error
	SetUserAdmin(ctx context.Context, id int64, isAdmin bool) error

	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// KidStore persists kid profiles
type KidStore interface {
	CreateKid(ctx context.Context, kid *models.Kid) error
	GetKidByID(ctx context.Context, id int64) (*models.Kid, error)
	ListKidsByUser(ctx context.Context, userID int64) ([]models.Kid, error)
	UpdateKid(ctx context.Context, kid *models.Kid) (bool, error)
	DeleteKid(ctx context.Context, id, userID int64) (bool, error)
}

// MenuStore persists the monthly menu catalog
type MenuStore interface {
	CreateMenuItem(ctx context.Context, item *models.MonthlyMenuItem) error
	GetMenuItemByID(ctx context.Context, id int64) (*models.MonthlyMenuItem, error)
	UpdateMenuItem(ctx context.Context, item *models.MonthlyMenuItem) (bool, error)
	ListMenuItemsForMonth(ctx context.Context, month models.Date, availableOnly bool) ([]models.MonthlyMenuItem, error)
	ListAllMenuItems(ctx context.Context) ([]models.MonthlyMenuItem, error)
}

// HolidayStore persists the holiday calendar
type HolidayStore interface {
	CreateHoliday(ctx context.Context, holiday *models.Holiday) (bool, error)
	ListHolidaysBetween(ctx context.Context, from, to models.Date) ([]models.Holiday, error)
	DeleteHoliday(ctx context.Context, id int64) (bool, error)
}

// SelectionStore persists lunch selections and their change history
type SelectionStore interface {
	InsertSelection(ctx context.Context, selection *models.LunchSelection) (bool, error)
	GetSelectionByID(ctx context.Context, id int64) (*models.LunchSelection, error)
	GetSelectionByKidAndDate(ctx context.Context, kidID int64, date models.Date) (*models.LunchSelection, error)
	UpdateSelectionMenuItem(ctx context.Context, id, oldMenuItemID, newMenuItemID int64, notBefore models.Date, modifiedAt time.Time) (bool, error)
	DeleteSelection(ctx context.Context, id, kidID int64, notBefore models.Date) (bool, error)
	ListSelectionsForKid(ctx context.Context, kidID int64, from, to models.Date) ([]models.LunchSelectionWithItem, error)

	AppendSelectionHistory(ctx context.Context, entry *models.SelectionHistory) error
	ListSelectionHistory(ctx context.Context, selectionID int64) ([]models.SelectionHistory, error)
}

// Store is the full persistence surface used by the services.
type Store interface {
	UserStore
	KidStore
	MenuStore
	HolidayStore
	SelectionStore

	// Atomic runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	Atomic(ctx context.Context, fn func(Store) error) error
}

// SQLStore implements Store on top of the dialect-aware database wrapper
type SQLStore struct {
	*UserRepository
	*KidRepository
	*MenuRepository
	*HolidayRepository
	*SelectionRepository

	db *database.DB // nil when already bound to a transaction
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore creates a store backed by db
func NewSQLStore(db *database.DB) *SQLStore {
	store := newStore(db)
	store.db = db
	return store
}

func newStore(q database.DBTX) *SQLStore {
	return &SQLStore{
		UserRepository:      NewUserRepository(q),
		KidRepository:       NewKidRepository(q),
		MenuRepository:      NewMenuRepository(q),
		HolidayRepository:   NewHolidayRepository(q),
		SelectionRepository: NewSelectionRepository(q),
	}
}

// Atomic runs fn inside a database transaction. Nested calls reuse the
// outer transaction.
func (s *SQLStore) Atomic(ctx context.Context, fn func(Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		return fn(newStore(tx))
	})
}

// nullIfEmpty stores empty optional text as NULL so unique indexes over
// optional columns do not collide on ''.
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
