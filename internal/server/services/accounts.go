// Package services contains the server-side business logic: the account
// security engine (registration, login with lockout, password and profile
// changes) and the password reset flow.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neexa/neexa-backend/internal/common"
	"github.com/neexa/neexa-backend/internal/logging"
	"github.com/neexa/neexa-backend/internal/server/auth"
	"github.com/neexa/neexa-backend/internal/server/models"
	"github.com/neexa/neexa-backend/internal/server/password"
	"github.com/neexa/neexa-backend/internal/server/shared/db"
)

// Default lockout policy.
const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 30 * time.Minute
)

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	Email             string
	Password          string
	ConfirmPassword   string
	FirstName         string
	LastName          string
	Phone             *string
	DateOfBirth       *time.Time
	PreferredCurrency string
}

// AccountService owns the account lifecycle and the login state machine.
// Every mutation goes through one store transaction with the account row
// locked, so concurrent failed logins cannot lose counter updates.
type AccountService struct {
	store         db.Store
	hasher        *password.Hasher
	issuer        *auth.Issuer
	logger        logging.Logger
	now           func() time.Time
	lockThreshold int
	lockDuration  time.Duration
}

type AccountOption func(*AccountService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) AccountOption {
	return func(s *AccountService) { s.now = now }
}

// WithLockoutPolicy sets how many consecutive failures lock an account and
// for how long. Non-positive values keep the defaults.
func WithLockoutPolicy(threshold int, duration time.Duration) AccountOption {
	return func(s *AccountService) {
		if threshold > 0 {
			s.lockThreshold = threshold
		}
		if duration > 0 {
			s.lockDuration = duration
		}
	}
}

func NewAccountService(store db.Store, hasher *password.Hasher, issuer *auth.Issuer, logger logging.Logger, opts ...AccountOption) *AccountService {
	s := &AccountService{
		store:         store,
		hasher:        hasher,
		issuer:        issuer,
		logger:        logger,
		now:           time.Now,
		lockThreshold: DefaultLockoutThreshold,
		lockDuration:  DefaultLockoutDuration,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func identity(a *models.Account) auth.AccountClaims {
	return auth.AccountClaims{ID: a.ID, Email: a.Email, FirstName: a.FirstName, LastName: a.LastName}
}

// Register creates the account and signs the caller in.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.Account, *auth.TokenPair, error) {
	account, err := s.Create(ctx, in)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issuer.Issue(identity(account))
	if err != nil {
		return nil, nil, err
	}

	return account, pair, nil
}

// Create validates in and stores a new active account.
func (s *AccountService) Create(ctx context.Context, in RegisterInput) (*models.Account, error) {
	email := NormalizeEmail(in.Email)
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	v := &common.ValidationError{}
	validateName(v, "first_name", "First name", in.FirstName)
	validateName(v, "last_name", "Last name", in.LastName)
	if in.Phone != nil {
		validatePhone(v, *in.Phone)
	}
	currency := common.DefaultCurrency
	if in.PreferredCurrency != "" {
		currency = normalizeCurrency(v, in.PreferredCurrency)
	}
	if !v.Empty() {
		return nil, v
	}

	if err := password.Validate(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPassword, err)
	}
	if in.Password != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPassword, err)
	}

	now := s.now().UTC()
	account := &models.Account{
		Email:             email,
		PasswordHash:      hash,
		FirstName:         strings.TrimSpace(in.FirstName),
		LastName:          strings.TrimSpace(in.LastName),
		IsActive:          true,
		Phone:             in.Phone,
		DateOfBirth:       in.DateOfBirth,
		PreferredCurrency: currency,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos db.Repositories) error {
		_, err := repos.Accounts().GetByEmail(ctx, email)
		switch {
		case err == nil:
			return ErrEmailTaken
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		_, err = repos.Accounts().Create(ctx, account)
		if errors.Is(err, common.ErrAlreadyExists) {
			return ErrEmailTaken
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("error creating account: %w", err)
	}

	s.logger.Info(ctx, "account registered", "account_id", account.ID, "email", account.Email)
	return account, nil
}

// Authenticate checks credentials and applies the lockout policy. Unknown
// emails and wrong passwords fail with the same ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, email, pw string) (*models.Account, error) {
	email = NormalizeEmail(email)

	var (
		account *models.Account
		outcome error
	)

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos db.Repositories) error {
		a, err := repos.Accounts().GetByEmailForUpdate(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				s.hasher.VerifyAbsent(pw)
				outcome = ErrInvalidCredentials
				return nil
			}
			return err
		}

		now := s.now().UTC()

		if a.IsLocked(now) {
			outcome = ErrAccountLocked
			return nil
		}
		if !a.IsActive {
			outcome = ErrAccountInactive
			return nil
		}

		if !s.hasher.Verify(a.PasswordHash, pw) {
			a.FailedAttempts++
			if a.FailedAttempts >= s.lockThreshold {
				until := now.Add(s.lockDuration)
				a.LockedUntil = &until
			}
			a.UpdatedAt = now
			outcome = ErrInvalidCredentials
			// the counter must survive, so the failure still commits
			return repos.Accounts().Update(ctx, a)
		}

		a.FailedAttempts = 0
		a.LockedUntil = nil
		a.LastLogin = &now
		a.UpdatedAt = now
		if err := repos.Accounts().Update(ctx, a); err != nil {
			return err
		}
		account = a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error authenticating: %w", err)
	}

	if outcome != nil {
		switch outcome {
		case ErrAccountLocked:
			s.logger.Warn(ctx, "login attempt on locked account", "email", email)
		case ErrAccountInactive:
			s.logger.Info(ctx, "login attempt on deactivated account", "email", email)
		default:
			s.logger.Info(ctx, "failed login", "email", email)
		}
		return nil, outcome
	}

	s.logger.Info(ctx, "account logged in", "account_id", account.ID, "email", account.Email)
	return account, nil
}

// Login authenticates and issues a token pair.
func (s *AccountService) Login(ctx context.Context, email, pw string) (*models.Account, *auth.TokenPair, error) {
	account, err := s.Authenticate(ctx, email, pw)
	if err != nil {
		return nil, nil, err
	}

	pair, err := s.issuer.Issue(identity(account))
	if err != nil {
		return nil, nil, err
	}

	return account, pair, nil
}

// Refresh exchanges a refresh token for an access token carrying the
// account's current identity claims.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		return "", err
	}
	id, err := claims.AccountID()
	if err != nil {
		return "", err
	}

	account, err := s.CurrentAccount(ctx, id)
	if err != nil {
		return "", err
	}

	return s.issuer.IssueAccess(identity(account))
}

// ChangePassword replaces the password of an active account after checking
// the current one.
func (s *AccountService) ChangePassword(ctx context.Context, accountID int64, current, newPw, confirm string) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos db.Repositories) error {
		a, err := s.activeForUpdate(ctx, repos, accountID)
		if err != nil {
			return err
		}

		if newPw != confirm {
			return ErrNewPasswordMismatch
		}
		if !s.hasher.Verify(a.PasswordHash, current) {
			return ErrWrongCurrentPassword
		}
		if s.hasher.Verify(a.PasswordHash, newPw) {
			return ErrSamePassword
		}
		if err := password.Validate(newPw); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPassword, err)
		}

		hash, err := s.hasher.Hash(newPw)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPassword, err)
		}

		a.PasswordHash = hash
		a.UpdatedAt = s.now().UTC()
		if err := repos.Accounts().Update(ctx, a); err != nil {
			return err
		}

		s.logger.Info(ctx, "password changed", "account_id", a.ID, "email", a.Email)
		return nil
	})
	return s.wrap("error changing password", err)
}

// Deactivate marks an active account inactive.
func (s *AccountService) Deactivate(ctx context.Context, accountID int64) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos db.Repositories) error {
		a, err := s.activeForUpdate(ctx, repos, accountID)
		if err != nil {
			return err
		}

		a.IsActive = false
		a.UpdatedAt = s.now().UTC()
		if err := repos.Accounts().Update(ctx, a); err != nil {
			return err
		}

		s.logger.Info(ctx, "account deactivated", "account_id", a.ID, "email", a.Email)
		return nil
	})
	return s.wrap("error deactivating account", err)
}

// GetProfile returns an active account.
func (s *AccountService) GetProfile(ctx context.Context, accountID int64) (*models.Account, error) {
	a, err := s.store.Repositories().Accounts().GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("error loading account: %w", err)
	}
	if !a.IsActive {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

// UpdateProfile applies the non-nil fields of u to an active account.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID int64, u ProfileUpdate) (*models.Account, error) {
	var updated *models.Account

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos db.Repositories) error {
		a, err := s.activeForUpdate(ctx, repos, accountID)
		if err != nil {
			return err
		}

		if err := u.validate(); err != nil {
			return err
		}

		if u.FirstName != nil {
			a.FirstName = strings.TrimSpace(*u.FirstName)
		}
		if u.LastName != nil {
			a.LastName = strings.TrimSpace(*u.LastName)
		}
		if u.Phone != nil {
			phone := *u.Phone
			a.Phone = &phone
		}
		if u.DateOfBirth != nil {
			dob := *u.DateOfBirth
			a.DateOfBirth = &dob
		}
		if u.PreferredCurrency != nil {
			a.PreferredCurrency = *u.PreferredCurrency
		}
		a.UpdatedAt = s.now().UTC()

		if err := repos.Accounts().Update(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err := s.wrap("error updating profile", err); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "profile updated", "account_id", updated.ID, "email", updated.Email)
	return updated, nil
}

// CurrentAccount loads the account behind an authenticated request. Inactive
// and locked accounts are refused.
func (s *AccountService) CurrentAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	a, err := s.store.Repositories().Accounts().GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrAccountInactive
		}
		return nil, fmt.Errorf("error loading account: %w", err)
	}
	if !a.IsActive {
		return nil, ErrAccountInactive
	}
	if a.IsLocked(s.now().UTC()) {
		return nil, ErrAccountLocked
	}
	return a, nil
}

func (s *AccountService) activeForUpdate(ctx context.Context, repos db.Repositories, id int64) (*models.Account, error) {
	a, err := repos.Accounts().GetByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if !a.IsActive {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

// wrap leaves service and validation errors alone and labels store failures.
func (s *AccountService) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) || errors.Is(err, common.ErrValidation) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
