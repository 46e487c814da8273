package service_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/vibast-solutions/ms-go-hr-auth/app/service"
)

func TestKindOfAndStatus(t *testing.T) {
	cases := []struct {
		err    error
		kind   service.ErrorKind
		status int
	}{
		{service.ErrUserExists, service.KindDuplicate, http.StatusBadRequest},
		{fmt.Errorf("%w: too short", service.ErrWeakPassword), service.KindValidation, http.StatusBadRequest},
		{service.ErrUserNotFound, service.KindNotFound, http.StatusNotFound},
		{service.ErrInvalidToken, service.KindInvalidToken, http.StatusBadRequest},
		{service.ErrTokenExpired, service.KindExpiredToken, http.StatusBadRequest},
		{service.ErrInvalidCredentials, service.KindAuthentication, http.StatusUnauthorized},
		{service.ErrAccountNotVerified, service.KindUnverified, http.StatusForbidden},
		{errors.New("connection refused"), service.KindServer, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := service.KindOf(tc.err); got != tc.kind {
			t.Fatalf("%v: expected kind %v, got %v", tc.err, tc.kind, got)
		}
		if got := service.KindOf(tc.err).HTTPStatus(); got != tc.status {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.status, got)
		}
	}
}

func TestPublicMessageHidesServerErrors(t *testing.T) {
	if got := service.PublicMessage(errors.New("dial tcp 10.0.0.3:3306: refused")); got != "internal server error" {
		t.Fatalf("expected generic message, got %q", got)
	}
	if got := service.PublicMessage(service.ErrTokenExpired); got != service.ErrTokenExpired.Message {
		t.Fatalf("expected %q, got %q", service.ErrTokenExpired.Message, got)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := service.NormalizeEmail("  Ada.Lovelace@Example.COM "); got != "ada.lovelace@example.com" {
		t.Fatalf("unexpected normalized email %q", got)
	}
}
