package dto

import (
	"time"

	"github.com/vibast-solutions/ms-go-hr-auth/app/entity"
)

type SignupResult struct {
	User *entity.User
}

type VerifyEmailResult struct {
	AlreadyVerified bool
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *entity.User
}
