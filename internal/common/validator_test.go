package common

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

func TestGenericEchoValidator(t *testing.T) {
	tests := []struct {
		name    string
		input   credentials
		wantErr string
	}{
		{"valid", credentials{Email: "a@example.com", Password: "pw"}, ""},
		{"missing fields", credentials{}, "email is required; password is required"},
		{"bad email", credentials{Email: "nope", Password: "pw"}, "email must be a valid email address"},
		{"long password", credentials{Email: "a@example.com", Password: strings.Repeat("x", 73)}, "password must be at most 72 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&GenericEchoValidator{}).Validate(&tt.input)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var httpErr *echo.HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("expected echo.HTTPError, got %v", err)
			}
			if httpErr.Code != http.StatusBadRequest || httpErr.Message != tt.wantErr {
				t.Errorf("got %d %v, want 400 %q", httpErr.Code, httpErr.Message, tt.wantErr)
			}
		})
	}
}

func TestBindAndValidate(t *testing.T) {
	e := echo.New()
	e.Validator = NewGenericEchoValidator()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@example.com","password":"pw"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	var got credentials
	if err := BindAndValidate(e.NewContext(req, httptest.NewRecorder()), &got); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Email != "a@example.com" {
		t.Errorf("unexpected binding %+v", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	err := BindAndValidate(e.NewContext(req, httptest.NewRecorder()), &credentials{})
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %v", err)
	}
}
