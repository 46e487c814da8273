package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-hr-auth/app/dto"
	"github.com/vibast-solutions/ms-go-hr-auth/app/entity"
	"github.com/vibast-solutions/ms-go-hr-auth/app/mailer"
	"github.com/vibast-solutions/ms-go-hr-auth/app/repository"
	"github.com/vibast-solutions/ms-go-hr-auth/app/security"
	"github.com/vibast-solutions/ms-go-hr-auth/app/types"
	"github.com/vibast-solutions/ms-go-hr-auth/config"

	"github.com/sirupsen/logrus"
)

const (
	FlowSignup             = "signup"
	FlowVerifyEmail        = "verify_email"
	FlowResendVerification = "resend_verification"
	FlowLogin              = "login"
	FlowForgotPassword     = "forgot_password"
	FlowResetPassword      = "reset_password"
	FlowSession            = "session"

	mailSendTimeout = 30 * time.Second
	dummyPassword   = "hr-auth-timing-equalizer"
)

type userRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
	FindByVerificationToken(ctx context.Context, tokenHash string) (*entity.User, error)
	FindByResetToken(ctx context.Context, tokenHash string) (*entity.User, error)
	SetVerificationToken(ctx context.Context, userID uint64, tokenHash string, expires, now time.Time) (int64, error)
	SetResetToken(ctx context.Context, userID uint64, tokenHash string, expires, now time.Time) error
	ResetPassword(ctx context.Context, userID uint64, tokenHash, passwordHash string, now time.Time) (int64, error)
	ClearResetToken(ctx context.Context, userID uint64, tokenHash string, now time.Time) error
}

type consumedTokenRepository interface {
	Exists(ctx context.Context, tokenHash, purpose string) (bool, error)
}

// OutcomeRecorder counts the result of every flow.
type OutcomeRecorder interface {
	RecordOutcome(flow, outcome string)
}

type UserAuthService interface {
	Signup(ctx context.Context, req *types.SignupRequest) (*dto.SignupResult, error)
	VerifyEmail(ctx context.Context, req *types.VerifyEmailRequest) (*dto.VerifyEmailResult, error)
	ResendVerification(ctx context.Context, req *types.ResendVerificationRequest) (*dto.VerifyEmailResult, error)
	Login(ctx context.Context, req *types.LoginRequest) (*dto.LoginResult, error)
	ForgotPassword(ctx context.Context, req *types.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req *types.ResetPasswordRequest) error
	CurrentUser(ctx context.Context, userID uint64) (*entity.User, error)
	ValidateSession(ctx context.Context, token string) (*entity.User, error)
}

type AsyncRunner func(task func())

type UserAuthServiceOption func(*userAuthService)

type userAuthService struct {
	db                *sql.DB
	userRepo          userRepository
	consumedTokenRepo consumedTokenRepository
	hasher            *security.PasswordHasher
	sessions          *security.SessionIssuer
	mailer            mailer.Mailer
	composer          *mailer.Composer
	cfg               *config.Config
	asyncRunner       AsyncRunner
	recorder          OutcomeRecorder
	now               func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

func NewUserAuthService(
	db *sql.DB,
	userRepo userRepository,
	consumedTokenRepo consumedTokenRepository,
	m mailer.Mailer,
	cfg *config.Config,
	opts ...UserAuthServiceOption,
) (UserAuthService, error) {
	hasher, err := security.NewPasswordHasher(cfg.Password.BcryptCost)
	if err != nil {
		return nil, err
	}

	svc := &userAuthService{
		db:                db,
		userRepo:          userRepo,
		consumedTokenRepo: consumedTokenRepo,
		hasher:            hasher,
		sessions:          security.NewSessionIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.SessionTTL),
		mailer:            m,
		composer:          mailer.NewComposer(cfg.Mail.SenderName, cfg.App.FrontendBaseURL),
		cfg:               cfg,
		asyncRunner: func(task func()) {
			go task()
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	svc.sessions = svc.sessions.WithClock(svc.now)

	return svc, nil
}

func WithAsyncRunner(runner AsyncRunner) UserAuthServiceOption {
	return func(s *userAuthService) {
		if runner != nil {
			s.asyncRunner = runner
		}
	}
}

func WithClock(now func() time.Time) UserAuthServiceOption {
	return func(s *userAuthService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithOutcomeRecorder(recorder OutcomeRecorder) UserAuthServiceOption {
	return func(s *userAuthService) {
		s.recorder = recorder
	}
}

func (s *userAuthService) Signup(ctx context.Context, req *types.SignupRequest) (result *dto.SignupResult, err error) {
	defer func() { s.record(FlowSignup, err) }()

	if err = s.cfg.Password.Policy.Validate(req.Password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	email := NormalizeEmail(req.Email)
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	if req.Username != "" {
		existing, err = s.userRepo.FindByUsername(ctx, req.Username)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrUserExists
		}
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	token, err := security.GenerateToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &entity.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         entity.RoleUser,
		IsVerified:   false,
		VerificationToken: sql.NullString{
			String: security.HashToken(token),
			Valid:  true,
		},
		VerificationTokenExpires: sql.NullTime{
			Time:  now.Add(s.cfg.Tokens.VerificationTTL),
			Valid: true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Username != "" {
		user.Username = sql.NullString{String: req.Username, Valid: true}
	}

	if err = s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	s.sendVerification(user, token)

	return &dto.SignupResult{User: user}, nil
}

func (s *userAuthService) VerifyEmail(ctx context.Context, req *types.VerifyEmailRequest) (result *dto.VerifyEmailResult, err error) {
	defer func() { s.record(FlowVerifyEmail, err) }()

	tokenHash := security.HashToken(req.Token)
	user, err := s.userRepo.FindByVerificationToken(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if user == nil {
		consumed, err := s.consumedTokenRepo.Exists(ctx, tokenHash, entity.TokenPurposeVerification)
		if err != nil {
			return nil, err
		}
		if consumed {
			return &dto.VerifyEmailResult{AlreadyVerified: true}, nil
		}
		return nil, ErrInvalidToken
	}

	if user.IsVerified {
		return &dto.VerifyEmailResult{AlreadyVerified: true}, nil
	}

	now := s.now()
	if isExpired(user.VerificationTokenExpires, now) {
		return nil, ErrTokenExpired
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	txUsers := repository.NewUserRepository(tx)
	affected, err := txUsers.MarkVerified(ctx, user.ID, tokenHash, now)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Either a concurrent call verified the account or a resend replaced
		// the token. Only the first counts as already verified.
		current, err := txUsers.FindByID(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if current != nil && current.IsVerified {
			return &dto.VerifyEmailResult{AlreadyVerified: true}, nil
		}
		return nil, ErrInvalidToken
	}

	err = repository.NewConsumedTokenRepository(tx).Create(ctx, &entity.ConsumedToken{
		TokenHash:  tokenHash,
		Purpose:    entity.TokenPurposeVerification,
		UserID:     user.ID,
		ConsumedAt: now,
	})
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return &dto.VerifyEmailResult{AlreadyVerified: false}, nil
}

func (s *userAuthService) ResendVerification(ctx context.Context, req *types.ResendVerificationRequest) (result *dto.VerifyEmailResult, err error) {
	defer func() { s.record(FlowResendVerification, err) }()

	user, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsVerified {
		return &dto.VerifyEmailResult{AlreadyVerified: true}, nil
	}

	token, err := security.GenerateToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	affected, err := s.userRepo.SetVerificationToken(ctx, user.ID, security.HashToken(token), now.Add(s.cfg.Tokens.VerificationTTL), now)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Verified between the lookup and the update.
		return &dto.VerifyEmailResult{AlreadyVerified: true}, nil
	}

	s.sendVerification(user, token)

	return &dto.VerifyEmailResult{AlreadyVerified: false}, nil
}

func (s *userAuthService) Login(ctx context.Context, req *types.LoginRequest) (result *dto.LoginResult, err error) {
	defer func() { s.record(FlowLogin, err) }()

	user, err := s.userRepo.FindByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.hasher.Verify(req.Password, s.dummyHash())
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return nil, ErrAccountNotVerified
	}

	token, expiresAt, err := s.sessions.Issue(user)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// ForgotPassword answers the same way whether or not the account exists.
// A failed lookup is a server error, since it happens before existence is
// known. Failures after that point are logged only.
func (s *userAuthService) ForgotPassword(ctx context.Context, req *types.ForgotPasswordRequest) (err error) {
	defer func() { s.record(FlowForgotPassword, err) }()

	email := NormalizeEmail(req.Email)
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		logrus.Debug("Forgot password requested for unknown account")
		return nil
	}

	token, err := security.GenerateToken()
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to generate reset token")
		return nil
	}

	now := s.now()
	if err = s.userRepo.SetResetToken(ctx, user.ID, security.HashToken(token), now.Add(s.cfg.Tokens.ResetTTL), now); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to store reset token")
		return nil
	}

	s.dispatch(user, "reset", func() (mailer.Message, error) {
		return s.composer.PasswordReset(user.Email, user.DisplayName(), token, s.cfg.Tokens.ResetTTL)
	})

	return nil
}

func (s *userAuthService) ResetPassword(ctx context.Context, req *types.ResetPasswordRequest) (err error) {
	defer func() { s.record(FlowResetPassword, err) }()

	newPassword := req.GetNewPassword()
	if err = s.cfg.Password.Policy.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	tokenHash := security.HashToken(req.Token)
	user, err := s.userRepo.FindByResetToken(ctx, tokenHash)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidToken
	}

	now := s.now()
	if isExpired(user.ResetTokenExpires, now) {
		if clearErr := s.userRepo.ClearResetToken(ctx, user.ID, tokenHash, now); clearErr != nil {
			logrus.WithError(clearErr).WithField("user_id", user.ID).Error("Failed to clear expired reset token")
		}
		return ErrTokenExpired
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	affected, err := s.userRepo.ResetPassword(ctx, user.ID, tokenHash, passwordHash, now)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvalidToken
	}

	return nil
}

func (s *userAuthService) CurrentUser(ctx context.Context, userID uint64) (*entity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// ValidateSession checks the token signature and expiry, then confirms the
// account it names still exists.
func (s *userAuthService) ValidateSession(ctx context.Context, token string) (user *entity.User, err error) {
	defer func() { s.record(FlowSession, err) }()

	claims, err := s.sessions.Parse(token)
	if err != nil {
		return nil, ErrInvalidSession
	}

	user, err = s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidSession
	}

	return user, nil
}

func (s *userAuthService) sendVerification(user *entity.User, token string) {
	s.dispatch(user, "verification", func() (mailer.Message, error) {
		return s.composer.Verification(user.Email, user.DisplayName(), token, s.cfg.Tokens.VerificationTTL)
	})
}

// dispatch renders a message and hands delivery to the async runner. Failures
// are logged only; the calling flow has already committed.
func (s *userAuthService) dispatch(user *entity.User, kind string, build func() (mailer.Message, error)) {
	logger := logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
		"mail":    kind,
	})

	msg, err := build()
	if err != nil {
		logger.WithError(err).Error("Failed to render email")
		return
	}

	s.asyncRunner(func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
		defer cancel()

		if sendErr := s.mailer.Send(sendCtx, msg); sendErr != nil {
			logger.WithError(sendErr).Error("Failed to send email")
			return
		}
		logger.Debug("Email sent")
	})
}

func (s *userAuthService) dummyHash() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			logrus.WithError(err).Error("Failed to prepare dummy password digest")
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

func (s *userAuthService) record(flow string, err error) {
	if s.recorder == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
	}
	s.recorder.RecordOutcome(flow, outcome)
}

// isExpired treats a missing expiry as expired. A token is still valid at the
// exact instant it expires.
func isExpired(expires sql.NullTime, now time.Time) bool {
	return !expires.Valid || now.After(expires.Time)
}
