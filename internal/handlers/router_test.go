package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"schoollunch/internal/database"
	"schoollunch/internal/metrics"
	"schoollunch/internal/models"
	"schoollunch/internal/repository"
	"schoollunch/internal/security"
	"schoollunch/internal/service"
)

type testServer struct {
	handler http.Handler
	clock   *clockwork.FakeClock
	store   *repository.SQLStore
}

// testTokenDuration outlasts every clock advance in the lifecycle tests
const testTokenDuration = 30 * 24 * time.Hour

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "lunch.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// Sunday 2024-03-10
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC))
	store := repository.NewSQLStore(db)
	m := metrics.New()
	csrf := security.NewCSRFProtector("csrf-secret")

	authService := service.NewAuthService(store, security.NewTokenManager("token-secret", testTokenDuration, clock), clock, 24*time.Hour)
	eligibility := service.NewEligibilityService(store, clock, time.UTC)
	menuService := service.NewMenuService(store)
	holidayService := service.NewHolidayService(store)

	handler := NewRouter(Handlers{
		Auth:       NewAuthHandler(authService, csrf, nil, ""),
		Kids:       NewKidHandler(service.NewKidService(store)),
		Menu:       NewMenuHandler(menuService, holidayService, eligibility),
		Lunch:      NewLunchHandler(service.NewLunchService(store, eligibility, clock, m)),
		Admin:      NewAdminHandler(authService, menuService, holidayService, service.NewBackupService(store, "sqlite", clock), clock),
		Middleware: NewMiddleware(authService, csrf, security.NewRateLimiter(rateLimit, time.Minute, clock), m, clock),
		Metrics:    m,
		Health:     db.Ping,
	})
	return &testServer{handler: handler, clock: clock, store: store}
}

// client is a signed-in user talking to the server either with a bearer
// token or with the session cookie and CSRF header
type client struct {
	t       *testing.T
	srv     *testServer
	user    *models.User
	token   string
	session *http.Cookie
	csrf    string
}

func (s *testServer) do(t *testing.T, method, path string, body any, prepare func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:4321"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prepare != nil {
		prepare(req)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) register(t *testing.T, username string) *client {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/register", map[string]string{
		"username": username,
		"password": "correct horse",
		"name":     "Parent " + username,
		"email":    username + "@example.com",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	decodeBody(t, rec, &resp)

	c := &client{t: t, srv: s, user: resp.User, token: resp.Token, csrf: resp.CSRFToken}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == security.SessionCookieName {
			c.session = cookie
		}
	}
	if c.session == nil || c.token == "" || c.csrf == "" {
		t.Fatalf("register %s: missing session cookie, token or csrf token", username)
	}
	return c
}

// bearer sends the request with the access token
func (c *client) bearer(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.srv.do(c.t, method, path, body, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+c.token)
	})
}

// cookie sends the request with the session cookie and, when withCSRF, the CSRF header
func (c *client) cookie(method, path string, body any, withCSRF bool) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.srv.do(c.t, method, path, body, func(r *http.Request) {
		r.AddCookie(c.session)
		if withCSRF {
			r.Header.Set(security.CSRFHeaderName, c.csrf)
		}
	})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body %s", rec.Code, want, rec.Body.String())
	}
}

func expectCode(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	var body ErrorResponse
	decodeBody(t, rec, &body)
	if body.Code != want {
		t.Errorf("error code = %q, want %q", body.Code, want)
	}
}

type lunchSetup struct {
	srv    *testServer
	admin  *client
	parent *client
	kidID  int64
	pasta  int64
	curry  int64
}

func newLunchSetup(t *testing.T) *lunchSetup {
	t.Helper()
	srv := newTestServer(t, 100)
	admin := srv.register(t, "admin")
	parent := srv.register(t, "parent")

	var kid models.Kid
	rec := parent.bearer(http.MethodPost, "/api/kids", map[string]string{
		"name": "Asha", "grade": "3", "school": "Springfield", "rollNumber": "12",
	})
	expectStatus(t, rec, http.StatusCreated)
	decodeBody(t, rec, &kid)

	createItem := func(name string, veg bool) int64 {
		var item models.MonthlyMenuItem
		rec := admin.bearer(http.MethodPost, "/api/admin/menu-items", map[string]any{
			"name": name, "description": name + " and salad", "isVegetarian": veg, "price": 450, "month": "2024-03-01",
		})
		expectStatus(t, rec, http.StatusCreated)
		decodeBody(t, rec, &item)
		return item.ID
	}

	return &lunchSetup{
		srv:    srv,
		admin:  admin,
		parent: parent,
		kidID:  kid.ID,
		pasta:  createItem("Pasta", true),
		curry:  createItem("Chicken Curry", false),
	}
}

func (s *lunchSetup) selectionsPath() string {
	return "/api/kids/" + strconv.FormatInt(s.kidID, 10) + "/lunch-selections"
}

func TestSelectionLifecycleOverHTTP(t *testing.T) {
	s := newLunchSetup(t)
	base := s.selectionsPath()

	rec := s.parent.bearer(http.MethodPost, base, map[string]any{"date": "2024-03-15", "menuItemId": s.pasta})
	expectStatus(t, rec, http.StatusCreated)
	var created SelectionResponse
	decodeBody(t, rec, &created)
	if created.Outcome != service.OutcomeCreated {
		t.Errorf("outcome = %s, want created", created.Outcome)
	}
	selectionPath := base + "/" + strconv.FormatInt(created.Selection.ID, 10)

	rec = s.parent.bearer(http.MethodPost, base, map[string]any{"date": "2024-03-15", "menuItemId": s.pasta})
	expectStatus(t, rec, http.StatusOK)

	s.srv.clock.Advance(72 * time.Hour) // 2024-03-13
	rec = s.parent.bearer(http.MethodPut, selectionPath, map[string]any{"menuItemId": s.curry})
	expectStatus(t, rec, http.StatusOK)

	rec = s.parent.bearer(http.MethodGet, selectionPath+"/history", nil)
	expectStatus(t, rec, http.StatusOK)
	var history []models.SelectionHistory
	decodeBody(t, rec, &history)
	if len(history) != 1 || *history[0].OldMenuItemID != s.pasta || history[0].NewMenuItemID != s.curry {
		t.Errorf("history = %+v, want one pasta -> curry entry", history)
	}

	rec = s.parent.bearer(http.MethodGet, base+"/2024/3", nil)
	expectStatus(t, rec, http.StatusOK)
	var list []models.LunchSelectionWithItem
	decodeBody(t, rec, &list)
	if len(list) != 1 || list[0].MenuItem.Name != "Chicken Curry" {
		t.Errorf("selections = %+v", list)
	}

	s.srv.clock.Advance(48 * time.Hour) // 2024-03-15
	rec = s.parent.bearer(http.MethodPut, selectionPath, map[string]any{"menuItemId": s.pasta})
	expectStatus(t, rec, http.StatusConflict)
	expectCode(t, rec, CodeSelectionLocked)

	rec = s.parent.bearer(http.MethodDelete, selectionPath, nil)
	expectStatus(t, rec, http.StatusConflict)
	expectCode(t, rec, CodeSelectionLocked)
}

func TestDeleteSelectionOverHTTP(t *testing.T) {
	s := newLunchSetup(t)

	rec := s.parent.bearer(http.MethodPost, s.selectionsPath(), map[string]any{"date": "2024-03-12", "menuItemId": s.pasta})
	expectStatus(t, rec, http.StatusCreated)
	var created SelectionResponse
	decodeBody(t, rec, &created)

	path := s.selectionsPath() + "/" + strconv.FormatInt(created.Selection.ID, 10)
	expectStatus(t, s.parent.bearer(http.MethodDelete, path, nil), http.StatusNoContent)
	expectStatus(t, s.parent.bearer(http.MethodDelete, path, nil), http.StatusConflict)
}

func TestSelectionValidationOverHTTP(t *testing.T) {
	s := newLunchSetup(t)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"sunday", map[string]any{"date": "2024-03-17", "menuItemId": s.pasta}, "date"},
		{"today", map[string]any{"date": "2024-03-10", "menuItemId": s.pasta}, "date"},
		{"malformed date", map[string]any{"date": "March 15", "menuItemId": s.pasta}, "body"},
		{"missing item", map[string]any{"date": "2024-03-15"}, "menuItemId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.parent.bearer(http.MethodPost, s.selectionsPath(), tt.body)
			expectStatus(t, rec, http.StatusBadRequest)
			var body ErrorResponse
			decodeBody(t, rec, &body)
			if _, ok := body.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %q", body.Fields, tt.field)
			}
		})
	}
}

func TestOtherParentsKidIsNotFound(t *testing.T) {
	s := newLunchSetup(t)
	stranger := s.srv.register(t, "stranger")
	kidPath := "/api/kids/" + strconv.FormatInt(s.kidID, 10)

	rec := s.parent.bearer(http.MethodPost, s.selectionsPath(), map[string]any{"date": "2024-03-15", "menuItemId": s.pasta})
	expectStatus(t, rec, http.StatusCreated)
	var created SelectionResponse
	decodeBody(t, rec, &created)
	selectionPath := s.selectionsPath() + "/" + strconv.FormatInt(created.Selection.ID, 10)

	requests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, kidPath, nil},
		{http.MethodPut, kidPath, map[string]string{"name": "X", "grade": "1", "school": "S", "rollNumber": "1"}},
		{http.MethodDelete, kidPath, nil},
		{http.MethodGet, s.selectionsPath() + "/2024/3", nil},
		{http.MethodPost, s.selectionsPath(), map[string]any{"date": "2024-03-16", "menuItemId": s.pasta}},
		{http.MethodPost, s.selectionsPath() + "/bulk", map[string]any{"dates": []string{"2024-03-16"}, "menuItemId": s.pasta}},
		{http.MethodPut, selectionPath, map[string]any{"menuItemId": s.curry}},
		{http.MethodDelete, selectionPath, nil},
		{http.MethodGet, selectionPath + "/history", nil},
	}
	for _, req := range requests {
		t.Run(req.method+" "+req.path, func(t *testing.T) {
			rec := stranger.bearer(req.method, req.path, req.body)
			expectStatus(t, rec, http.StatusNotFound)
			expectCode(t, rec, CodeNotFound)
		})
	}

	all, err := s.srv.store.ListAllSelections(context.Background())
	if err != nil {
		t.Fatalf("ListAllSelections() error = %v", err)
	}
	if len(all) != 1 || all[0].MenuItemID != s.pasta {
		t.Errorf("selections changed by a stranger: %+v", all)
	}
}

func TestBulkSaveOverHTTP(t *testing.T) {
	s := newLunchSetup(t)

	rec := s.parent.bearer(http.MethodPost, s.selectionsPath()+"/bulk", map[string]any{
		"dates":      []string{"2024-03-11", "2024-03-17", "2024-03-12"},
		"menuItemId": s.curry,
	})
	expectStatus(t, rec, http.StatusOK)
	var resp BulkResponse
	decodeBody(t, rec, &resp)

	want := []service.Outcome{service.OutcomeCreated, service.OutcomeInvalid, service.OutcomeCreated}
	if len(resp.Results) != len(want) {
		t.Fatalf("results = %+v", resp.Results)
	}
	for i, res := range resp.Results {
		if res.Outcome != want[i] {
			t.Errorf("result %d outcome = %s, want %s", i, res.Outcome, want[i])
		}
	}
}

func TestMenuAndDatesOverHTTP(t *testing.T) {
	s := newLunchSetup(t)

	rec := s.admin.bearer(http.MethodPost, "/api/admin/holidays", map[string]string{"date": "2024-03-20", "description": "Spring Break"})
	expectStatus(t, rec, http.StatusCreated)
	rec = s.admin.bearer(http.MethodPost, "/api/admin/holidays", map[string]string{"date": "2024-03-20", "description": "Again"})
	expectStatus(t, rec, http.StatusConflict)

	rec = s.parent.bearer(http.MethodGet, "/api/menu/2024/3", nil)
	expectStatus(t, rec, http.StatusOK)
	var menu MenuResponse
	decodeBody(t, rec, &menu)
	if len(menu.Items) != 2 || len(menu.Vegetarian) != 1 || len(menu.NonVegetarian) != 1 {
		t.Errorf("menu = %+v", menu)
	}
	if menu.Items[0].Name != "Chicken Curry" {
		t.Errorf("menu items not ordered by name: %q first", menu.Items[0].Name)
	}

	rec = s.parent.bearer(http.MethodGet, "/api/lunch/dates/2024/3", nil)
	expectStatus(t, rec, http.StatusOK)
	var dates DatesResponse
	decodeBody(t, rec, &dates)
	if len(dates.Dates) != 17 || dates.Dates[0].String() != "2024-03-11" {
		t.Errorf("dates = %v", dates.Dates)
	}
	for _, d := range dates.Dates {
		if d.String() == "2024-03-20" {
			t.Error("holiday listed as selectable")
		}
	}

	rec = s.parent.bearer(http.MethodGet, "/api/holidays/2024/3", nil)
	expectStatus(t, rec, http.StatusOK)
	var holidays []models.Holiday
	decodeBody(t, rec, &holidays)
	if len(holidays) != 1 {
		t.Errorf("holidays = %+v", holidays)
	}

	rec = s.parent.bearer(http.MethodGet, "/api/menu/2024/13", nil)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestAuthentication(t *testing.T) {
	srv := newTestServer(t, 100)
	parent := srv.register(t, "parent")

	rec := srv.do(t, http.MethodGet, "/api/kids", nil, nil)
	expectStatus(t, rec, http.StatusUnauthorized)

	rec = srv.do(t, http.MethodGet, "/api/kids", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-token")
	})
	expectStatus(t, rec, http.StatusUnauthorized)

	expectStatus(t, parent.cookie(http.MethodGet, "/api/user", nil, false), http.StatusOK)

	kid := map[string]string{"name": "Asha", "grade": "3", "school": "Springfield", "rollNumber": "12"}
	rec = parent.cookie(http.MethodPost, "/api/kids", kid, false)
	expectStatus(t, rec, http.StatusForbidden)
	expectCode(t, rec, CodeCSRF)
	expectStatus(t, parent.cookie(http.MethodPost, "/api/kids", kid, true), http.StatusCreated)

	rec = srv.do(t, http.MethodPost, "/api/login", map[string]string{"username": "parent", "password": "wrong password"}, nil)
	expectStatus(t, rec, http.StatusUnauthorized)
	expectCode(t, rec, CodeInvalidCredentials)

	rec = srv.do(t, http.MethodPost, "/api/register", map[string]string{
		"username": "parent", "password": "correct horse", "name": "Another", "email": "a@example.com",
	}, nil)
	expectStatus(t, rec, http.StatusConflict)

	rec = srv.do(t, http.MethodPost, "/api/logout", nil, func(r *http.Request) { r.AddCookie(parent.session) })
	expectStatus(t, rec, http.StatusNoContent)
	expectStatus(t, parent.cookie(http.MethodGet, "/api/user", nil, false), http.StatusUnauthorized)
}

func TestSessionAndTokenExpiry(t *testing.T) {
	srv := newTestServer(t, 100)
	parent := srv.register(t, "parent")

	srv.clock.Advance(2 * time.Hour)
	expectStatus(t, parent.bearer(http.MethodGet, "/api/user", nil), http.StatusOK)
	expectStatus(t, parent.cookie(http.MethodGet, "/api/user", nil, false), http.StatusOK)

	srv.clock.Advance(23 * time.Hour)
	expectStatus(t, parent.cookie(http.MethodGet, "/api/user", nil, false), http.StatusUnauthorized)
	expectStatus(t, parent.bearer(http.MethodGet, "/api/user", nil), http.StatusOK)

	srv.clock.Advance(testTokenDuration)
	expectStatus(t, parent.bearer(http.MethodGet, "/api/user", nil), http.StatusUnauthorized)
}

func TestAdminRoutes(t *testing.T) {
	srv := newTestServer(t, 100)
	admin := srv.register(t, "admin")
	parent := srv.register(t, "parent")

	if !admin.user.IsAdmin || parent.user.IsAdmin {
		t.Fatalf("admin flags = %v / %v, want first user only", admin.user.IsAdmin, parent.user.IsAdmin)
	}

	expectStatus(t, admin.bearer(http.MethodGet, "/api/admin/check", nil), http.StatusOK)
	rec := parent.bearer(http.MethodGet, "/api/admin/check", nil)
	expectStatus(t, rec, http.StatusForbidden)
	expectCode(t, rec, CodeForbidden)
	expectStatus(t, parent.bearer(http.MethodGet, "/api/admin/menu-items", nil), http.StatusForbidden)

	rec = admin.bearer(http.MethodPost, "/api/admin/admins", map[string]string{
		"username": "cook", "password": "correct horse", "name": "Head Cook", "email": "cook@example.com",
	})
	expectStatus(t, rec, http.StatusCreated)
	var cook models.User
	decodeBody(t, rec, &cook)
	if !cook.IsAdmin {
		t.Error("created account should be admin")
	}

	rec = admin.bearer(http.MethodPost, "/api/admin/menu-items", map[string]any{
		"name": "Pasta", "description": "Penne", "price": 450, "month": "2024-03-15",
	})
	expectStatus(t, rec, http.StatusCreated)
	var item models.MonthlyMenuItem
	decodeBody(t, rec, &item)
	if item.Month.String() != "2024-03-01" || !item.IsAvailable {
		t.Errorf("menu item = %+v", item)
	}

	rec = admin.bearer(http.MethodPut, "/api/admin/menu-items/"+strconv.FormatInt(item.ID, 10), map[string]any{"isAvailable": false})
	expectStatus(t, rec, http.StatusOK)
	expectStatus(t, admin.bearer(http.MethodPut, "/api/admin/menu-items/9999", map[string]any{"price": 1}), http.StatusNotFound)

	rec = admin.bearer(http.MethodGet, "/api/admin/menu-items", nil)
	expectStatus(t, rec, http.StatusOK)
	var items []models.MonthlyMenuItem
	decodeBody(t, rec, &items)
	if len(items) != 1 || items[0].IsAvailable {
		t.Errorf("catalog = %+v", items)
	}

	rec = admin.bearer(http.MethodPost, "/api/admin/holidays", map[string]string{"date": "2024-03-25", "description": "Holi"})
	expectStatus(t, rec, http.StatusCreated)
	var holiday models.Holiday
	decodeBody(t, rec, &holiday)
	holidayPath := "/api/admin/holidays/" + strconv.FormatInt(holiday.ID, 10)
	expectStatus(t, admin.bearer(http.MethodDelete, holidayPath, nil), http.StatusNoContent)
	expectStatus(t, admin.bearer(http.MethodDelete, holidayPath, nil), http.StatusNotFound)

	rec = admin.bearer(http.MethodGet, "/api/admin/backup", nil)
	expectStatus(t, rec, http.StatusOK)
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "schoollunch_backup_20240310_090000.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	var backup service.BackupData
	decodeBody(t, rec, &backup)
	if len(backup.Users) != 3 || len(backup.MenuItems) != 1 {
		t.Errorf("backup has %d users and %d menu items", len(backup.Users), len(backup.MenuItems))
	}
}

func TestLoginRateLimit(t *testing.T) {
	srv := newTestServer(t, 2)
	login := map[string]string{"username": "nobody", "password": "whatever1"}

	for i := 0; i < 2; i++ {
		expectStatus(t, srv.do(t, http.MethodPost, "/api/login", login, nil), http.StatusUnauthorized)
	}
	rec := srv.do(t, http.MethodPost, "/api/login", login, nil)
	expectStatus(t, rec, http.StatusTooManyRequests)
	expectCode(t, rec, CodeRateLimited)

	spoofed := srv.do(t, http.MethodPost, "/api/login", login, func(r *http.Request) {
		r.Header.Set("X-Forwarded-For", "203.0.113.77")
	})
	expectStatus(t, spoofed, http.StatusTooManyRequests)

	srv.clock.Advance(time.Minute)
	expectStatus(t, srv.do(t, http.MethodPost, "/api/login", login, nil), http.StatusUnauthorized)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, 100)

	expectStatus(t, srv.do(t, http.MethodGet, "/healthz", nil, nil), http.StatusOK)
	expectStatus(t, srv.do(t, http.MethodGet, "/api/kids", nil, nil), http.StatusUnauthorized)

	rec := srv.do(t, http.MethodGet, "/metrics", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	body := rec.Body.String()
	for _, want := range []string{
		"schoollunch_http_request_duration_seconds",
		`route="GET /api/kids"`,
		`status="401"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestOAuthProvidersNotConfigured(t *testing.T) {
	srv := newTestServer(t, 100)

	rec := srv.do(t, http.MethodGet, "/api/auth/providers", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("providers = %s, want []", rec.Body.String())
	}
	expectStatus(t, srv.do(t, http.MethodGet, "/api/auth/google/start", nil, nil), http.StatusNotFound)
}
