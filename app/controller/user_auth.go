package controller

import (
	"net/http"

	httpdto "github.com/vibast-solutions/ms-go-hr-auth/app/dto/http"
	"github.com/vibast-solutions/ms-go-hr-auth/app/entity"
	"github.com/vibast-solutions/ms-go-hr-auth/app/service"
	"github.com/vibast-solutions/ms-go-hr-auth/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const forgotPasswordMessage = "if an account exists for that email, a password reset link has been sent"

type UserAuthController struct {
	userAuthService service.UserAuthService
}

func NewUserAuthController(userAuthService service.UserAuthService) *UserAuthController {
	return &UserAuthController{userAuthService: userAuthService}
}

func (c *UserAuthController) Signup(ctx echo.Context) error {
	req, err := types.NewSignupRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind signup request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Message: "invalid request body"})
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Signup validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Message: err.Error()})
	}

	logger := logrus.WithField("email", service.NormalizeEmail(req.Email))
	logger.Info("Signup request received")
	result, err := c.userAuthService.Signup(ctx.Request().Context(), req)
	if err != nil {
		return respondError(ctx, logger, "Signup", err)
	}

	logger.WithField("user_id", result.User.ID).Info("User signed up")
	return ctx.JSON(http.StatusCreated, httpdto.SignupResponse{
		Message: "account created, please check your email to verify your address",
		UserID:  result.User.ID,
	})
}

func (c *UserAuthController) VerifyEmail(ctx echo.Context) error {
	req, err := types.NewVerifyEmailRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind verify email request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Message: "invalid request"})
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Verify email validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Message: err.Error()})
	}

	result, err := c.userAuthService.VerifyEmail(ctx.Request().Context(), req)
	if err != nil {
		return respondError(ctx, logrus.NewEntry(logrus.StandardLogger()), "Verify email", err)
	}

	message := "email verified successfully"
	if result.AlreadyVerified {
		message = "email is already verified"
	}
	logrus.WithField("already_verified", result.AlreadyVerified).Info("Verify email completed")
	return ctx.JSON(http.StatusOK, httpdto.VerifyEmailResponse{
		Message:         message,
		AlreadyVerified: result.AlreadyVerified,
	})
}

func (c *UserAuthController) ResendVerification(ctx echo.Context) error {
	req, err := types.NewResendVerificationRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind resend verification request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Message: "invalid request body"})
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Resend verification validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Message: err.Error()})
	}

	logger := logrus.WithField("email", service.NormalizeEmail(req.Email))
	logger.Info("Resend verification request received")
	result, err := c.userAuthService.ResendVerification(ctx.Request().Context(), req)
	if err != nil {
		return respondError(ctx, logger, "Resend verification", err)
	}

	message := "verification email sent"
	if result.AlreadyVerified {
		message = "email is already verified"
	}
	return ctx.JSON(http.StatusOK, httpdto.VerifyEmailResponse{
		Message:         message,
		AlreadyVerified: result.AlreadyVerified,
	})
}

func (c *UserAuthController) Login(ctx echo.Context) error {
	req, err := types.NewLoginRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind login request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Message: "invalid request body"})
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("email", req.Email).Debug("Login validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Message: err.Error()})
	}

	logger := logrus.WithField("email", service.NormalizeEmail(req.Email))
	logger.Info("Login request received")
	result, err := c.userAuthService.Login(ctx.Request().Context(), req)
	if err != nil {
		return respondError(ctx, logger, "Login", err)
	}

	logger.WithField("user_id", result.User.ID).Info("Login successful")
	return ctx.JSON(http.StatusOK, httpdto.LoginResponse{
		Message:   "login successful",
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      httpdto.NewSessionUser(result.User),
	})
}

func (c *UserAuthController) ForgotPassword(ctx echo.Context) error {
	req, err := types.NewForgotPasswordRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind forgot password request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Message: "invalid request body"})
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Forgot password validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Message: err.Error()})
	}

	logger := logrus.WithField("email", service.NormalizeEmail(req.Email))
	logger.Info("Forgot password request received")
	if err = c.userAuthService.ForgotPassword(ctx.Request().Context(), req); err != nil {
		return respondError(ctx, logger, "Forgot password", err)
	}

	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Message: forgotPasswordMessage})
}

func (c *UserAuthController) ResetPassword(ctx echo.Context) error {
	req, err := types.NewResetPasswordRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind reset password request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Message: "invalid request body"})
	}

	if err = req.Validate(); err != nil {
		logrus.Debug("Reset password validation failed")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Message: err.Error()})
	}

	logrus.Info("Reset password request received")
	if err = c.userAuthService.ResetPassword(ctx.Request().Context(), req); err != nil {
		return respondError(ctx, logrus.NewEntry(logrus.StandardLogger()), "Reset password", err)
	}

	logrus.Info("Password reset successful")
	return ctx.JSON(http.StatusOK, httpdto.MessageResponse{Message: "password has been reset successfully"})
}

func (c *UserAuthController) Me(ctx echo.Context) error {
	user, ok := ctx.Get(types.ContextUserKey).(*entity.User)
	if !ok || user == nil {
		logrus.Warn("Me failed: missing user in context")
		return ctx.JSON(http.StatusUnauthorized, httpdto.ErrorResponse{Message: "unauthorized"})
	}

	return ctx.JSON(http.StatusOK, httpdto.MeResponse{
		Message: "ok",
		User:    httpdto.NewUserResponse(user),
	})
}

// respondError maps a service error to its status code. Client errors are
// logged at warn level, anything else at error level with full detail.
func respondError(ctx echo.Context, logger *logrus.Entry, action string, err error) error {
	kind := service.KindOf(err)
	if kind == service.KindServer {
		logger.WithError(err).Error(action + " failed")
	} else {
		logger.WithField("reason", kind.String()).Warn(action + " failed: " + err.Error())
	}

	return ctx.JSON(kind.HTTPStatus(), httpdto.ErrorResponse{Message: service.PublicMessage(err)})
}
