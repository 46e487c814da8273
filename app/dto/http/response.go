package http

import (
	"time"

	"github.com/vibast-solutions/ms-go-hr-auth/app/entity"
)

// UserResponse is the public view of an account. It never carries the
// password digest or any token.
type UserResponse struct {
	ID         uint64     `json:"id"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Email      string     `json:"email"`
	Username   string     `json:"username,omitempty"`
	Role       string     `json:"role"`
	IsVerified bool       `json:"isVerified"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func NewUserResponse(user *entity.User) *UserResponse {
	resp := &UserResponse{
		ID:         user.ID,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Email:      user.Email,
		Role:       user.Role,
		IsVerified: user.IsVerified,
		CreatedAt:  user.CreatedAt,
	}
	if user.Username.Valid {
		resp.Username = user.Username.String
	}
	if user.VerifiedAt.Valid {
		verifiedAt := user.VerifiedAt.Time
		resp.VerifiedAt = &verifiedAt
	}
	return resp
}

type SignupResponse struct {
	Message string `json:"message"`
	UserID  uint64 `json:"userId"`
}

// SessionUser is the account summary returned with a session token.
type SessionUser struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func NewSessionUser(user *entity.User) *SessionUser {
	return &SessionUser{
		ID:    user.ID,
		Name:  user.DisplayName(),
		Email: user.Email,
		Role:  user.Role,
	}
}

type VerifyEmailResponse struct {
	Message         string `json:"message"`
	AlreadyVerified bool   `json:"alreadyVerified"`
}

type LoginResponse struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *SessionUser `json:"user"`
}

type MeResponse struct {
	Message string        `json:"message"`
	User    *UserResponse `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Message  string `json:"message"`
	Status   string `json:"status"`
	Database string `json:"database"`
}
