package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lamoy/api/internal/database"
	"github.com/lamoy/api/internal/enum"
	"github.com/lamoy/api/internal/handler"
	"github.com/lamoy/api/internal/middleware"
)

type mockMenuStore struct {
	createMenuCategoryFn func(ctx context.Context, name string) (database.MenuCategory, error)
	listMenuCategoriesFn func(ctx context.Context) ([]database.MenuCategory, error)
	updateMenuCategoryFn func(ctx context.Context, arg database.UpdateMenuCategoryParams) (database.MenuCategory, error)
	deleteMenuCategoryFn func(ctx context.Context, id int64) (int64, error)
	createMenuItemFn     func(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	getMenuItemFn        func(ctx context.Context, id int64) (database.MenuItem, error)
	listMenuItemsFn      func(ctx context.Context) ([]database.MenuItem, error)
	updateMenuItemFn     func(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	disableMenuItemFn    func(ctx context.Context, id int64) (database.MenuItem, error)
}

func (m *mockMenuStore) CreateMenuCategory(ctx context.Context, name string) (database.MenuCategory, error) {
	return m.createMenuCategoryFn(ctx, name)
}

func (m *mockMenuStore) ListMenuCategories(ctx context.Context) ([]database.MenuCategory, error) {
	return m.listMenuCategoriesFn(ctx)
}

func (m *mockMenuStore) UpdateMenuCategory(ctx context.Context, arg database.UpdateMenuCategoryParams) (database.MenuCategory, error) {
	return m.updateMenuCategoryFn(ctx, arg)
}

func (m *mockMenuStore) DeleteMenuCategory(ctx context.Context, id int64) (int64, error) {
	return m.deleteMenuCategoryFn(ctx, id)
}

func (m *mockMenuStore) CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
	return m.createMenuItemFn(ctx, arg)
}

func (m *mockMenuStore) GetMenuItem(ctx context.Context, id int64) (database.MenuItem, error) {
	return m.getMenuItemFn(ctx, id)
}

func (m *mockMenuStore) ListMenuItems(ctx context.Context) ([]database.MenuItem, error) {
	return m.listMenuItemsFn(ctx)
}

func (m *mockMenuStore) UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error) {
	return m.updateMenuItemFn(ctx, arg)
}

func (m *mockMenuStore) DisableMenuItem(ctx context.Context, id int64) (database.MenuItem, error) {
	return m.disableMenuItemFn(ctx, id)
}

// newMenuServer mirrors the production routing: reads are public, writes sit
// behind authentication plus the admin role.
func newMenuServer(store *mockMenuStore) http.Handler {
	h := handler.NewMenuHandler(store)
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	r.Group(func(g chi.Router) {
		g.Use(middleware.Authenticate(testSecret))
		g.Use(middleware.RequireRole(enum.RoleAdmin))
		h.RegisterAdminRoutes(g)
	})
	return r
}

func TestListMenuItems_Public(t *testing.T) {
	store := &mockMenuStore{
		listMenuItemsFn: func(ctx context.Context) ([]database.MenuItem, error) {
			return []database.MenuItem{
				{ID: 1, Name: "Chicken Adobo", Price: num(t, "120.00"), IsAvailable: true},
				{ID: 2, Name: "Lomi", Price: num(t, "90.00"), IsAvailable: false},
			}, nil
		},
	}
	srv := newMenuServer(store)

	// No Authorization header; menu browsing is open.
	req := httptest.NewRequest(http.MethodGet, "/menu/items", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp []struct {
		Name        string `json:"name"`
		Price       string `json:"price"`
		IsAvailable bool   `json:"is_available"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 || resp[0].Price != "120.00" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGetMenuItem_NotFound(t *testing.T) {
	store := &mockMenuStore{
		getMenuItemFn: func(ctx context.Context, id int64) (database.MenuItem, error) {
			return database.MenuItem{}, pgx.ErrNoRows
		},
	}
	srv := newMenuServer(store)

	req := httptest.NewRequest(http.MethodGet, "/menu/items/99", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCreateMenuItem_AdminOnly(t *testing.T) {
	store := &mockMenuStore{
		createMenuItemFn: func(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
			return database.MenuItem{ID: 1, Name: arg.Name, Price: arg.Price, IsAvailable: arg.IsAvailable}, nil
		},
	}
	srv := newMenuServer(store)
	body := `{"name":"Pancit Canton","price":"95.00"}`

	// No token.
	req := httptest.NewRequest(http.MethodPost, "/menu/items", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want 401", rec.Code)
	}

	// Customer token.
	req = httptest.NewRequest(http.MethodPost, "/menu/items", strings.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, 10, enum.RoleCustomer))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("customer: status = %d, want 403", rec.Code)
	}

	// Admin token.
	req = httptest.NewRequest(http.MethodPost, "/menu/items", strings.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, 1, enum.RoleAdmin))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin: status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Price       string `json:"price"`
		IsAvailable bool   `json:"is_available"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Price != "95.00" {
		t.Errorf("price = %s, want 95.00", resp.Price)
	}
	if !resp.IsAvailable {
		t.Error("new items default to available")
	}
}

func TestCreateMenuItem_BadPrice(t *testing.T) {
	srv := newMenuServer(&mockMenuStore{})

	for name, body := range map[string]string{
		"missing price":  `{"name":"X"}`,
		"negative price": `{"name":"X","price":"-5.00"}`,
		"not a number":   `{"name":"X","price":"cheap"}`,
		"missing name":   `{"price":"10.00"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/menu/items", strings.NewReader(body))
		req.Header.Set("Authorization", bearerToken(t, 1, enum.RoleAdmin))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestDeleteMenuItem_Disables(t *testing.T) {
	var disabledID int64
	store := &mockMenuStore{
		disableMenuItemFn: func(ctx context.Context, id int64) (database.MenuItem, error) {
			disabledID = id
			return database.MenuItem{ID: id, IsAvailable: false}, nil
		},
	}
	srv := newMenuServer(store)

	req := httptest.NewRequest(http.MethodDelete, "/menu/items/7", nil)
	req.Header.Set("Authorization", bearerToken(t, 1, enum.RoleAdmin))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if disabledID != 7 {
		t.Errorf("disabled item %d, want 7", disabledID)
	}
}

func TestDeleteCategory_WithItems(t *testing.T) {
	store := &mockMenuStore{
		deleteMenuCategoryFn: func(ctx context.Context, id int64) (int64, error) {
			return 0, &pgconn.PgError{Code: "23503"}
		},
	}
	srv := newMenuServer(store)

	req := httptest.NewRequest(http.MethodDelete, "/menu/categories/3", nil)
	req.Header.Set("Authorization", bearerToken(t, 1, enum.RoleAdmin))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestCreateCategory_Duplicate(t *testing.T) {
	store := &mockMenuStore{
		createMenuCategoryFn: func(ctx context.Context, name string) (database.MenuCategory, error) {
			return database.MenuCategory{}, &pgconn.PgError{Code: "23505"}
		},
	}
	srv := newMenuServer(store)

	req := httptest.NewRequest(http.MethodPost, "/menu/categories", strings.NewReader(`{"name":"Drinks"}`))
	req.Header.Set("Authorization", bearerToken(t, 1, enum.RoleAdmin))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}
