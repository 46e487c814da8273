package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/vibast-solutions/ms-go-hr-auth/app/entity"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSession = errors.New("invalid or expired session token")

type SessionClaims struct {
	UserID uint64 `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type SessionIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionIssuer(secret, issuer string, ttl time.Duration) *SessionIssuer {
	return &SessionIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock returns a copy of the issuer that reads time from now.
func (s *SessionIssuer) WithClock(now func() time.Time) *SessionIssuer {
	cp := *s
	cp.now = now
	return &cp
}

func (s *SessionIssuer) TTL() time.Duration {
	return s.ttl
}

func (s *SessionIssuer) Issue(user *entity.User) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)

	claims := &SessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.DisplayName(),
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatUint(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *SessionIssuer) Parse(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidSession
	}

	return claims, nil
}
