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
	"github.com/lamoy/api/internal/auth"
	"github.com/lamoy/api/internal/database"
	"github.com/lamoy/api/internal/enum"
	"github.com/lamoy/api/internal/handler"
	"golang.org/x/crypto/bcrypt"
)

type mockAuthStore struct {
	createUserFn     func(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	getUserByEmailFn func(ctx context.Context, email string) (database.User, error)
	getUserByIDFn    func(ctx context.Context, id int64) (database.User, error)
}

func (m *mockAuthStore) CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error) {
	return m.createUserFn(ctx, arg)
}

func (m *mockAuthStore) GetUserByEmail(ctx context.Context, email string) (database.User, error) {
	return m.getUserByEmailFn(ctx, email)
}

func (m *mockAuthStore) GetUserByID(ctx context.Context, id int64) (database.User, error) {
	return m.getUserByIDFn(ctx, id)
}

func newAuthServer(store *mockAuthStore) http.Handler {
	h := handler.NewAuthHandler(store, testSecret)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
}

func TestRegister(t *testing.T) {
	store := &mockAuthStore{
		createUserFn: func(ctx context.Context, arg database.CreateUserParams) (database.User, error) {
			if arg.Role != enum.RoleCustomer {
				t.Errorf("role = %q, registration must always create customers", arg.Role)
			}
			if arg.HashedPassword == "secret123" {
				t.Error("password stored in plain text")
			}
			return database.User{ID: 1, Username: arg.Username, Email: arg.Email, Role: arg.Role}, nil
		},
	}
	srv := newAuthServer(store)

	body := `{"username":"ana","email":"ana@example.com","password":"secret123","full_name":"Ana Cruz"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	claims, err := auth.ValidateToken(testSecret, resp.AccessToken)
	if err != nil {
		t.Fatalf("access token invalid: %v", err)
	}
	if claims.UserID != 1 || claims.Role != enum.RoleCustomer {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := auth.ValidateRefreshToken(testSecret, resp.RefreshToken); err != nil {
		t.Errorf("refresh token invalid: %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	srv := newAuthServer(&mockAuthStore{})

	for name, body := range map[string]string{
		"malformed json": `{nope`,
		"missing email":  `{"username":"ana","password":"secret123"}`,
		"short password": `{"username":"ana","email":"a@b.c","password":"short"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}
}

func TestRegister_Duplicate(t *testing.T) {
	store := &mockAuthStore{
		createUserFn: func(ctx context.Context, arg database.CreateUserParams) (database.User, error) {
			return database.User{}, &pgconn.PgError{Code: "23505"}
		},
	}
	srv := newAuthServer(store)

	body := `{"username":"ana","email":"ana@example.com","password":"secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	store := &mockAuthStore{
		getUserByEmailFn: func(ctx context.Context, email string) (database.User, error) {
			if email != "ana@example.com" {
				return database.User{}, pgx.ErrNoRows
			}
			return database.User{ID: 1, Email: email, HashedPassword: string(hashed), Role: enum.RoleCustomer}, nil
		},
	}
	srv := newAuthServer(store)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"ana@example.com","password":"secret123"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.User.Email != "ana@example.com" {
		t.Errorf("user email = %q", resp.User.Email)
	}

	// Wrong password and unknown email both come back as the same 401.
	for _, body := range []string{
		`{"email":"ana@example.com","password":"wrong"}`,
		`{"email":"nobody@example.com","password":"secret123"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	}
}

func TestRefresh(t *testing.T) {
	store := &mockAuthStore{
		getUserByIDFn: func(ctx context.Context, id int64) (database.User, error) {
			return database.User{ID: id, Email: "ana@example.com", Role: enum.RoleCustomer}, nil
		},
	}
	srv := newAuthServer(store)

	refresh, err := auth.GenerateRefreshToken(testSecret, 1)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refresh_token":"`+refresh+`"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	claims, err := auth.ValidateToken(testSecret, resp.AccessToken)
	if err != nil {
		t.Fatalf("new access token invalid: %v", err)
	}
	if claims.UserID != 1 {
		t.Errorf("claims user = %d, want 1", claims.UserID)
	}
}

func TestRefresh_Invalid(t *testing.T) {
	store := &mockAuthStore{
		getUserByIDFn: func(ctx context.Context, id int64) (database.User, error) {
			return database.User{}, pgx.ErrNoRows
		},
	}
	srv := newAuthServer(store)

	// Garbage token.
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refresh_token":"garbage"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status = %d, want 401", rec.Code)
	}

	// Valid token for a user that no longer exists.
	refresh, err := auth.GenerateRefreshToken(testSecret, 999)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refresh_token":"`+refresh+`"}`))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("deleted user: status = %d, want 401", rec.Code)
	}
}
