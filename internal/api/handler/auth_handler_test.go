package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/workforcehq/hrms-api/internal/core/domain"
	"github.com/workforcehq/hrms-api/internal/core/ports"
)

type stubAuthService struct {
	loginFn          func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error)
	logoutFn         func(ctx context.Context, userID, sessionID string) error
	refreshFn        func(ctx context.Context, refreshToken string) (*ports.TokenPair, error)
	changePasswordFn func(ctx context.Context, userID, current, next string) error
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	return s.loginFn(ctx, in)
}

func (s *stubAuthService) Logout(ctx context.Context, userID, sessionID string) error {
	return s.logoutFn(ctx, userID, sessionID)
}

func (s *stubAuthService) Refresh(ctx context.Context, refreshToken string) (*ports.TokenPair, error) {
	return s.refreshFn(ctx, refreshToken)
}

func (s *stubAuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	return s.changePasswordFn(ctx, userID, current, next)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func authenticated(req *http.Request, u *domain.User, sessionID string) *http.Request {
	ctx := domain.ContextWithPrincipal(req.Context(), &domain.Principal{User: u, SessionID: sessionID})
	return req.WithContext(ctx)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
			if in.Username != "jdoe" || in.Password != "secret" {
				t.Fatalf("unexpected args: %+v", in)
			}
			if in.IPAddress != "198.51.100.4" {
				t.Fatalf("expected client ip to be forwarded, got %q", in.IPAddress)
			}
			return &ports.LoginResult{
				User:      &domain.User{ID: "u1", Username: "jdoe", Role: domain.RoleEmployee},
				SessionID: "s1",
				TokenPair: ports.TokenPair{AccessToken: "access", RefreshToken: "refresh"},
			}, nil
		},
	}
	handler := NewAuthHandler(stub)

	req := jsonRequest(http.MethodPost, "/auth/login", `{"username":"jdoe","password":"secret"}`)
	req.Header.Set(echo.HeaderXRealIP, "198.51.100.4")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["access_token"] != "access" || resp["refresh_token"] != "refresh" || resp["session_id"] != "s1" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["username"] != "jdoe" {
		t.Fatalf("unexpected user payload: %+v", resp["user"])
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatalf("password hash must never be serialised")
	}
}

func TestAuthHandler_Login_Errors(t *testing.T) {
	for _, want := range []error{domain.ErrInvalidCredentials, domain.ErrAccountLocked} {
		t.Run(want.Error(), func(t *testing.T) {
			e := newEcho()
			stub := &stubAuthService{
				loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
					return nil, want
				},
			}
			c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login", `{"username":"jdoe","password":"bad"}`), httptest.NewRecorder())

			if err := NewAuthHandler(stub).Login(c); !errors.Is(err, want) {
				t.Fatalf("expected %v, got %v", want, err)
			}
		})
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub)

	for _, body := range []string{"not-json", `{"username":"jdoe"}`} {
		c := e.NewContext(jsonRequest(http.MethodPost, "/auth/login", body), httptest.NewRecorder())

		err := handler.Login(c)
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %v", body, err)
		}
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		refreshFn: func(ctx context.Context, token string) (*ports.TokenPair, error) {
			if token != "old-refresh" {
				return nil, domain.ErrInvalidRefreshToken
			}
			return &ports.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
		},
	}
	handler := NewAuthHandler(stub)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/auth/refresh", `{"refresh_token":"old-refresh"}`), rec)
	if err := handler.Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"access_token":"a2"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	c = e.NewContext(jsonRequest(http.MethodPost, "/auth/refresh", `{"refresh_token":"other"}`), httptest.NewRecorder())
	if err := handler.Refresh(c); !errors.Is(err, domain.ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	e := newEcho()
	var gotUser, gotSession string
	stub := &stubAuthService{
		logoutFn: func(ctx context.Context, userID, sessionID string) error {
			gotUser, gotSession = userID, sessionID
			return nil
		},
	}
	handler := NewAuthHandler(stub)

	req := authenticated(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), &domain.User{ID: "u1"}, "s1")
	rec := httptest.NewRecorder()
	if err := handler.Logout(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if gotUser != "u1" || gotSession != "s1" {
		t.Fatalf("logout called with %s/%s", gotUser, gotSession)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthHandler_Logout_StoreUnavailable(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		logoutFn: func(ctx context.Context, userID, sessionID string) error {
			return domain.ErrStoreUnavailable
		},
	}

	req := authenticated(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), &domain.User{ID: "u1"}, "s1")
	if err := NewAuthHandler(stub).Logout(e.NewContext(req, httptest.NewRecorder())); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{})

	if err := handler.Me(e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/me", nil), httptest.NewRecorder())); !errors.Is(err, domain.ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken without principal, got %v", err)
	}

	req := authenticated(httptest.NewRequest(http.MethodGet, "/auth/me", nil), &domain.User{ID: "u1", Username: "jdoe"}, "s1")
	rec := httptest.NewRecorder()
	if err := handler.Me(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"username":"jdoe"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		changePasswordFn: func(ctx context.Context, userID, current, next string) error {
			if userID != "u1" || current != "Old!Pass1" || next != "N3w!Pass1" {
				t.Fatalf("unexpected args: %s %s %s", userID, current, next)
			}
			return nil
		},
	}

	req := authenticated(jsonRequest(http.MethodPost, "/auth/change-password", `{"current_password":"Old!Pass1","new_password":"N3w!Pass1"}`), &domain.User{ID: "u1"}, "s1")
	rec := httptest.NewRecorder()
	if err := NewAuthHandler(stub).ChangePassword(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
