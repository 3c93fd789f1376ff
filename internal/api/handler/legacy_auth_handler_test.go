package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/printease/printease/internal/api/handler"
	"github.com/printease/printease/internal/core/domain"
	"github.com/printease/printease/internal/core/ports"
)

func TestLegacyAuth_Signup(t *testing.T) {
	var got ports.RegisterInput
	stub := &stubAccountService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			got = in
			return session(&domain.Account{ID: "c1", Role: in.Role}), nil
		},
	}
	e := newEcho()
	e.POST("/api/auth/signup", handler.NewLegacyAuthHandler(stub).Signup)

	rec := doJSON(t, e, http.MethodPost, "/api/auth/signup",
		`{"name":"Ana Maria Lopez","email":"a@x.com","password":"secret123","contactNumber":"+14155550100","role":"customer"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if msg := decode(t, rec)["message"]; msg != "User registered successfully" {
		t.Fatalf("unexpected message %v", msg)
	}
	if got.FirstName != "Ana" || got.LastName != "Maria Lopez" || got.Phone != "+14155550100" {
		t.Fatalf("unexpected register input: %+v", got)
	}
}

func TestLegacyAuth_SignupWithoutNameUsesEmail(t *testing.T) {
	var got ports.RegisterInput
	stub := &stubAccountService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
			got = in
			return session(&domain.Account{ID: "c1", Role: in.Role}), nil
		},
	}
	e := newEcho()
	e.POST("/api/auth/signup", handler.NewLegacyAuthHandler(stub).Signup)

	rec := doJSON(t, e, http.MethodPost, "/api/auth/signup",
		`{"email":"a@x.com","password":"secret123","role":"customer"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if got.FirstName != "a" {
		t.Fatalf("expected email local part as first name, got %q", got.FirstName)
	}
}

func TestLegacyAuth_SignupDuplicate(t *testing.T) {
	stub := &stubAccountService{
		registerFn: func(context.Context, ports.RegisterInput) (*ports.AuthResult, error) {
			return nil, domain.ErrDuplicateAccount
		},
	}
	e := newEcho()
	e.POST("/api/auth/signup", handler.NewLegacyAuthHandler(stub).Signup)

	rec := doJSON(t, e, http.MethodPost, "/api/auth/signup",
		`{"email":"a@x.com","password":"secret123","role":"owner"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestLegacyAuth_Login(t *testing.T) {
	stub := &stubAccountService{
		loginFn: func(_ context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
			if in.Password != "secret123" {
				return nil, domain.ErrInvalidCredential
			}
			return session(&domain.Account{ID: "c1", FirstName: "Ana", LastName: "Lopez", Email: in.Email, Role: domain.RoleCustomer}), nil
		},
	}
	e := newEcho()
	e.POST("/api/auth/login", handler.NewLegacyAuthHandler(stub).Login)

	rec := doJSON(t, e, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"secret123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode(t, rec)
	user := resp["user"].(map[string]any)
	if resp["token"] != "tok-c1" || user["role"] != "customer" || user["name"] != "Ana Lopez" || user["id"] != "c1" {
		t.Fatalf("unexpected login payload: %+v", resp)
	}

	rec = doJSON(t, e, http.MethodPost, "/api/auth/login", `{"email":"a@x.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized || decode(t, rec)["message"] != "Invalid credentials" {
		t.Fatalf("expected 401 Invalid credentials, got %d %s", rec.Code, rec.Body.String())
	}
}
