package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

type SignupRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,max=255,email"`
	Password  string `json:"password" validate:"required,maxbytes=72"`
	Username  string `json:"username,omitempty" validate:"omitempty,username"`
}

type VerifyEmailRequest struct {
	Token string `query:"token" json:"token" validate:"required"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,max=255,email"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,max=255,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"omitempty,maxbytes=72"`
	// Password is accepted as an alias of NewPassword.
	Password string `json:"password,omitempty" validate:"omitempty,maxbytes=72"`
}

func NewSignupRequestFromContext(ctx echo.Context) (*SignupRequest, error) {
	var body SignupRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *SignupRequest) Validate() error {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)

	return validateStruct(r)
}

func NewVerifyEmailRequestFromContext(ctx echo.Context) (*VerifyEmailRequest, error) {
	return &VerifyEmailRequest{Token: ctx.QueryParam("token")}, nil
}

func (r *VerifyEmailRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)

	return validateStruct(r)
}

func NewResendVerificationRequestFromContext(ctx echo.Context) (*ResendVerificationRequest, error) {
	var body ResendVerificationRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *ResendVerificationRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)

	return validateStruct(r)
}

func NewLoginRequestFromContext(ctx echo.Context) (*LoginRequest, error) {
	var body LoginRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)

	return validateStruct(r)
}

func NewForgotPasswordRequestFromContext(ctx echo.Context) (*ForgotPasswordRequest, error) {
	var body ForgotPasswordRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *ForgotPasswordRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)

	return validateStruct(r)
}

func NewResetPasswordRequestFromContext(ctx echo.Context) (*ResetPasswordRequest, error) {
	var body ResetPasswordRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

// GetNewPassword returns newPassword, falling back to the password alias.
func (r *ResetPasswordRequest) GetNewPassword() string {
	if r.NewPassword != "" {
		return r.NewPassword
	}
	return r.Password
}

func (r *ResetPasswordRequest) Validate() error {
	r.Token = strings.TrimSpace(r.Token)

	if err := validateStruct(r); err != nil {
		return err
	}
	if r.GetNewPassword() == "" {
		return errors.New("newPassword is required")
	}

	return nil
}
