package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neexa/neexa-backend/internal/common"
	"github.com/neexa/neexa-backend/internal/logging"
	"github.com/neexa/neexa-backend/internal/server/models"
	"github.com/neexa/neexa-backend/internal/server/notify"
	"github.com/neexa/neexa-backend/internal/server/password"
	"github.com/neexa/neexa-backend/internal/server/shared/db"
)

const (
	DefaultResetTokenTTL    = time.Hour
	DefaultResetLinkBaseURL = "http://localhost:3000/reset-password?token="
	defaultDispatchTimeout  = 30 * time.Second
)

// ResetService runs the forgot-password flow. Reset tokens are committed
// before any mail goes out, and mail failures never undo them.
type ResetService struct {
	store           db.Store
	hasher          *password.Hasher
	notifier        notify.Notifier
	logger          logging.Logger
	ttl             time.Duration
	linkBase        string
	now             func() time.Time
	newToken        func() string
	sync            bool
	dispatchTimeout time.Duration
	wg              sync.WaitGroup
}

type ResetOption func(*ResetService)

func WithResetTTL(ttl time.Duration) ResetOption {
	return func(s *ResetService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithResetLinkBase(base string) ResetOption {
	return func(s *ResetService) {
		if base != "" {
			s.linkBase = base
		}
	}
}

func WithResetClock(now func() time.Time) ResetOption {
	return func(s *ResetService) { s.now = now }
}

// WithSyncDispatch makes RequestReset send the notification before it
// returns. The outcome is still only logged.
func WithSyncDispatch() ResetOption {
	return func(s *ResetService) { s.sync = true }
}

func WithDispatchTimeout(d time.Duration) ResetOption {
	return func(s *ResetService) {
		if d > 0 {
			s.dispatchTimeout = d
		}
	}
}

func NewResetService(store db.Store, hasher *password.Hasher, notifier notify.Notifier, logger logging.Logger, opts ...ResetOption) *ResetService {
	s := &ResetService{
		store:           store,
		hasher:          hasher,
		notifier:        notifier,
		logger:          logger,
		ttl:             DefaultResetTokenTTL,
		linkBase:        DefaultResetLinkBaseURL,
		now:             time.Now,
		newToken:        uuid.NewString,
		dispatchTimeout: defaultDispatchTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// RequestReset issues a reset token when email names an active account and
// returns nil either way, so callers cannot discover accounts. Only a
// malformed email or a store failure is reported.
func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return ErrInvalidEmail
	}

	var (
		account *models.Account
		token   *models.ResetToken
	)

	err := s.store.WithinTx(ctx, func(ctx context.Context, repos db.Repositories) error {
		a, err := repos.Accounts().GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return err
		}
		if !a.IsActive {
			return nil
		}

		now := s.now().UTC()
		t, err := repos.ResetTokens().Create(ctx, &models.ResetToken{
			Token:     s.newToken(),
			AccountID: a.ID,
			ExpiresAt: now.Add(s.ttl),
			CreatedAt: now,
		})
		if err != nil {
			return err
		}

		account, token = a, t
		return nil
	})
	if err != nil {
		return fmt.Errorf("error creating reset token: %w", err)
	}

	if token == nil {
		s.logger.Debug(ctx, "password reset requested for unknown or inactive email")
		return nil
	}

	s.logger.Info(ctx, "password reset requested", "account_id", account.ID, "email", account.Email)

	msg := notify.ResetMessage{
		Email:       account.Email,
		DisplayName: account.FullName(),
		Token:       token.Token,
		Link:        s.linkBase + token.Token,
	}

	if s.sync {
		s.dispatch(ctx, msg)
		return nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatch(context.WithoutCancel(ctx), msg)
	}()

	return nil
}

func (s *ResetService) dispatch(ctx context.Context, msg notify.ResetMessage) {
	ctx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()

	sent, err := s.notifier.Send(ctx, msg)
	switch {
	case err != nil:
		s.logger.Error(ctx, "reset notification failed", "email", msg.Email, "error", err)
	case !sent:
		s.logger.Warn(ctx, "reset notification not sent", "email", msg.Email)
	default:
		s.logger.Debug(ctx, "reset notification sent", "email", msg.Email)
	}
}

// Wait blocks until every in-flight notification has finished.
func (s *ResetService) Wait() {
	s.wg.Wait()
}

// VerifyResetToken reports whether token could be used right now.
func (s *ResetService) VerifyResetToken(ctx context.Context, token string) error {
	t, err := s.store.Repositories().ResetTokens().GetByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrResetTokenNotFound
		}
		return fmt.Errorf("error loading reset token: %w", err)
	}
	return s.usable(t)
}

func (s *ResetService) usable(t *models.ResetToken) error {
	if t.Expired(s.now().UTC()) {
		return ErrResetTokenExpired
	}
	if t.Used {
		return ErrResetTokenUsed
	}
	return nil
}

// ResetPassword sets a new password with a reset token. The password change
// and the token consumption commit together. A successful reset also lifts
// any login lockout.
func (s *ResetService) ResetPassword(ctx context.Context, token, newPw string) error {
	if err := password.Validate(newPw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPassword, err)
	}
	hash, err := s.hasher.Hash(newPw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPassword, err)
	}

	var account *models.Account
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos db.Repositories) error {
		t, err := repos.ResetTokens().GetByTokenForUpdate(ctx, strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return ErrResetTokenNotFound
			}
			return err
		}
		if err := s.usable(t); err != nil {
			return err
		}

		a, err := repos.Accounts().GetByIDForUpdate(ctx, t.AccountID)
		if err != nil {
			return err
		}
		// tokens of deactivated accounts are dead, like their forgot-password requests
		if !a.IsActive {
			return ErrResetTokenNotFound
		}

		a.PasswordHash = hash
		a.FailedAttempts = 0
		a.LockedUntil = nil
		a.UpdatedAt = s.now().UTC()
		if err := repos.Accounts().Update(ctx, a); err != nil {
			return err
		}

		account = a
		return repos.ResetTokens().MarkUsed(ctx, t.ID)
	})
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return err
		}
		return fmt.Errorf("error resetting password: %w", err)
	}

	s.logger.Info(ctx, "password reset", "account_id", account.ID, "email", account.Email)
	return nil
}
