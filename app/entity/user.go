package entity

import (
	"database/sql"
	"strings"
	"time"
)

const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleHR      = "hr"
	RoleITAdmin = "it_admin"
)

var roles = map[string]struct{}{
	RoleUser:    {},
	RoleAdmin:   {},
	RoleHR:      {},
	RoleITAdmin: {},
}

// IsValidRole reports whether role belongs to the closed role set.
func IsValidRole(role string) bool {
	_, ok := roles[role]
	return ok
}

type User struct {
	ID                       uint64
	FirstName                string
	LastName                 string
	Email                    string
	Username                 sql.NullString
	PasswordHash             string
	Role                     string
	IsVerified               bool
	VerifiedAt               sql.NullTime
	VerificationToken        sql.NullString
	VerificationTokenExpires sql.NullTime
	ResetToken               sql.NullString
	ResetTokenExpires        sql.NullTime
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

const TokenPurposeVerification = "verification"

// ConsumedToken records a single-use token after it has been spent.
type ConsumedToken struct {
	TokenHash  string
	Purpose    string
	UserID     uint64
	ConsumedAt time.Time
}
