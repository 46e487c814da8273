package service

import (
	"errors"
	"net/http"
)

type ErrorKind int

const (
	KindServer ErrorKind = iota
	KindValidation
	KindDuplicate
	KindNotFound
	KindInvalidToken
	KindExpiredToken
	KindAuthentication
	KindUnverified
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicate:
		return "duplicate"
	case KindNotFound:
		return "not_found"
	case KindInvalidToken:
		return "invalid_token"
	case KindExpiredToken:
		return "expired_token"
	case KindAuthentication:
		return "authentication"
	case KindUnverified:
		return "unverified"
	default:
		return "server"
	}
}

// HTTPStatus is the response status for errors of kind k.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindDuplicate, KindInvalidToken, KindExpiredToken:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindUnverified:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a business-rule failure whose message is safe to show to clients.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrUserExists         = &Error{Kind: KindDuplicate, Message: "email or username is already registered"}
	ErrUserNotFound       = &Error{Kind: KindNotFound, Message: "user not found"}
	ErrInvalidCredentials = &Error{Kind: KindAuthentication, Message: "invalid email or password"}
	ErrAccountNotVerified = &Error{Kind: KindUnverified, Message: "email address has not been verified"}
	ErrInvalidToken       = &Error{Kind: KindInvalidToken, Message: "invalid or expired token"}
	ErrTokenExpired       = &Error{Kind: KindExpiredToken, Message: "token has expired"}
	ErrWeakPassword       = &Error{Kind: KindValidation, Message: "password does not meet policy requirements"}
	ErrInvalidSession     = &Error{Kind: KindAuthentication, Message: "invalid or expired session"}
)

// KindOf classifies err. Anything that is not an *Error is a server error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

// PublicMessage returns the message a client may see for err.
func PublicMessage(err error) string {
	if KindOf(err) == KindServer {
		return "internal server error"
	}
	return err.Error()
}
