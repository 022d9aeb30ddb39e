package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neexa/neexa-backend/internal/common"
	"github.com/neexa/neexa-backend/internal/logging"
	"github.com/neexa/neexa-backend/internal/server/password"
	"github.com/neexa/neexa-backend/internal/server/shared/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, pair, err := f.accounts.Register(ctx, aliceInput())
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", a.Email)
	assert.True(t, a.IsActive)
	assert.False(t, a.IsVerified)
	assert.Equal(t, "ARS", a.PreferredCurrency)
	assert.NotEqual(t, strongPassword, a.PasswordHash)
	assert.True(t, f.hasher.Verify(a.PasswordHash, strongPassword))

	id, err := f.issuer.Validate(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(in *RegisterInput)
		want   error
	}{
		{name: "bad email", modify: func(in *RegisterInput) { in.Email = "not-an-email" }, want: ErrInvalidEmail},
		{name: "weak password", modify: func(in *RegisterInput) {
			in.Password, in.ConfirmPassword = "weakpass", "weakpass"
		}, want: ErrInvalidPassword},
		{name: "mismatch", modify: func(in *RegisterInput) { in.ConfirmPassword = "Secret123?" }, want: ErrPasswordMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := aliceInput()
			tt.modify(&in)

			_, err := f.accounts.Create(context.Background(), in)

			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}
}

func TestCreate_WeakPasswordCarriesRule(t *testing.T) {
	f := newFixture(t)
	in := aliceInput()
	in.Password, in.ConfirmPassword = "Secret1234", "Secret1234"

	_, err := f.accounts.Create(context.Background(), in)

	var pe *password.PolicyError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, password.ErrNoSpecial, pe.Rule)
}

func TestCreate_FieldErrors(t *testing.T) {
	f := newFixture(t)
	in := aliceInput()
	in.FirstName = "  "
	in.LastName = "Sm1th"
	phone := "123"
	in.Phone = &phone
	in.PreferredCurrency = "pesos"

	_, err := f.accounts.Create(context.Background(), in)

	var ve *common.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, map[string]string{
		"first_name":         "First name cannot be empty",
		"last_name":          "Last name can only contain letters and spaces",
		"phone":              "Phone number must be between 10 and 15 digits",
		"preferred_currency": "Currency must be a 3-letter code",
	}, ve.Fields)
}

func TestCreate_AcceptsSpanishNames(t *testing.T) {
	f := newFixture(t)
	in := aliceInput()
	in.FirstName = "María José"
	in.LastName = "Ñúñez"
	in.PreferredCurrency = "usd"

	a, err := f.accounts.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "USD", a.PreferredCurrency)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Create(ctx, aliceInput())
	require.NoError(t, err)

	in := aliceInput()
	in.Email = "ALICE@example.com"
	_, err = f.accounts.Create(ctx, in)

	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, common.ErrAlreadyExists)
	assert.Equal(t, "User with this email already exists", err.Error())
}

func TestAuthenticate_UnknownAndWrongShareError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.accounts.Create(ctx, aliceInput())
	require.NoError(t, err)

	_, errUnknown := f.accounts.Authenticate(ctx, "ghost@example.com", strongPassword)
	_, errWrong := f.accounts.Authenticate(ctx, "alice@example.com", "Wrong123!")

	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestAuthenticate_UnknownEmailPaysForBcrypt(t *testing.T) {
	f := newFixture(t)
	f.hasher = password.NewHasher(10)
	f.accounts = NewAccountService(f.store, f.hasher, f.issuer, logging.Discard(), WithClock(f.clock.Now))
	ctx := context.Background()
	_, err := f.accounts.Create(ctx, aliceInput())
	require.NoError(t, err)
	f.hasher.VerifyAbsent("warm-up")

	start := time.Now()
	_, err = f.accounts.Authenticate(ctx, "alice@example.com", "Wrong123!")
	wrong := time.Since(start)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	start = time.Now()
	_, err = f.accounts.Authenticate(ctx, "ghost@example.com", "Wrong123!")
	unknown := time.Since(start)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Greater(t, unknown, wrong/4, "unknown email answered in %v, wrong password in %v", unknown, wrong)
}

func TestAuthenticate_LockoutAfterFiveFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.accounts.Create(ctx, aliceInput())
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := f.accounts.Authenticate(ctx, "alice@example.com", "Wrong123!")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	a, err := f.store.Repositories().Accounts().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 4, a.FailedAttempts)
	assert.Nil(t, a.LockedUntil)

	_, err = f.accounts.Authenticate(ctx, "alice@example.com", "Wrong123!")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	a, err = f.store.Repositories().Accounts().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, a.LockedUntil)
	assert.Equal(t, f.clock.Now().Add(30*time.Minute), *a.LockedUntil)

	// correct password is refused while locked, and does not move the lock
	f.clock.Advance(29 * time.Minute)
	_, err = f.accounts.Authenticate(ctx, "alice@example.com", strongPassword)
	assert.ErrorIs(t, err, ErrAccountLocked)
	assert.ErrorIs(t, err, common.ErrLocked)

	again, err := f.store.Repositories().Accounts().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, *a.LockedUntil, *again.LockedUntil)
	assert.Equal(t, 5, again.FailedAttempts)

	// after the window a correct password succeeds and clears everything
	f.clock.Advance(2 * time.Minute)
	got, err := f.accounts.Authenticate(ctx, "alice@example.com", strongPassword)
	require.NoError(t, err)
	assert.Zero(t, got.FailedAttempts)
	assert.Nil(t, got.LockedUntil)
	require.NotNil(t, got.LastLogin)
	assert.Equal(t, f.clock.Now(), *got.LastLogin)
}

func TestAuthenticate_SuccessResetsCounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.accounts.Create(ctx, aliceInput())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _ = f.accounts.Authenticate(ctx, "alice@example.com", "Wrong123!")
	}
	_, err = f.accounts.Authenticate(ctx, "alice@example.com", strongPassword)
	require.NoError(t, err)

	a, err := f.store.Repositories().Accounts().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Zero(t, a.FailedAttempts)
}

func TestAuthenticate_ConcurrentFailuresAreNotLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.accounts.Create(ctx, aliceInput())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.accounts.Authenticate(ctx, "alice@example.com", "Wrong123!")
		}()
	}
	wg.Wait()

	a, err := f.store.Repositories().Accounts().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 5, a.FailedAttempts)
	assert.True(t, a.IsLocked(f.clock.Now()))
}

func TestAuthenticate_CustomLockoutPolicy(t *testing.T) {
	f := newFixture(t)
	svc := NewAccountService(f.store, f.hasher, f.issuer, logging.Discard(),
		WithClock(f.clock.Now), WithLockoutPolicy(2, time.Minute))
	ctx := context.Background()
	_, err := svc.Create(ctx, aliceInput())
	require.NoError(t, err)

	_, _ = svc.Authenticate(ctx, "alice@example.com", "Wrong123!")
	_, _ = svc.Authenticate(ctx, "alice@example.com", "Wrong123!")

	_, err = svc.Authenticate(ctx, "alice@example.com", strongPassword)
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestAuthenticate_Inactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.accounts.Create(ctx, aliceInput())
	require.NoError(t, err)
	require.NoError(t, f.accounts.Deactivate(ctx, a.ID))

	_, err = f.accounts.Authenticate(ctx, "alice@example.com", strongPassword)
	assert.ErrorIs(t, err, ErrAccountInactive)
	assert.Equal(t, "Account is deactivated", err.Error())
}

type failingStore struct {
	db.Store
	err error
}

func (s failingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos db.Repositories) error) error {
	return s.err
}

func TestAuthenticate_StoreFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection reset")
	svc := NewAccountService(failingStore{Store: f.store, err: boom}, f.hasher, f.issuer, logging.Discard())

	_, err := svc.Authenticate(context.Background(), "alice@example.com", strongPassword)

	assert.ErrorIs(t, err, boom)
	var svcErr *Error
	assert.False(t, errors.As(err, &svcErr))
}

func TestLogin_ReturnsTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.accounts.Create(ctx, aliceInput())
	require.NoError(t, err)

	a, pair, err := f.accounts.Login(ctx, "ALICE@example.com", strongPassword)
	require.NoError(t, err)

	claims, err := f.issuer.ParseAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, a.Email, claims.Email)
	assert.Equal(t, "Alice", claims.FirstName)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, pair, err := f.accounts.Register(ctx, aliceInput())
	require.NoError(t, err)

	access, err := f.accounts.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	claims, err := f.issuer.ParseAccess(access)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)

	_, err = f.accounts.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestRefresh_DeactivatedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, pair, err := f.accounts.Register(ctx, aliceInput())
	require.NoError(t, err)
	require.NoError(t, f.accounts.Deactivate(ctx, a.ID))

	_, err = f.accounts.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestChangePassword(t *testing.T) {
	const newPassword = "Another456?"

	tests := []struct {
		name    string
		current string
		newPw   string
		confirm string
		want    error
	}{
		{name: "mismatch", current: strongPassword, newPw: newPassword, confirm: "Another456!", want: ErrNewPasswordMismatch},
		{name: "wrong current", current: "Wrong123!", newPw: newPassword, confirm: newPassword, want: ErrWrongCurrentPassword},
		{name: "reuse", current: strongPassword, newPw: strongPassword, confirm: strongPassword, want: ErrSamePassword},
		{name: "weak", current: strongPassword, newPw: "short", confirm: "short", want: ErrInvalidPassword},
		{name: "success", current: strongPassword, newPw: newPassword, confirm: newPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			a, err := f.accounts.Create(ctx, aliceInput())
			require.NoError(t, err)

			err = f.accounts.ChangePassword(ctx, a.ID, tt.current, tt.newPw, tt.confirm)

			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				_, err = f.accounts.Authenticate(ctx, a.Email, strongPassword)
				assert.NoError(t, err, "old password still works")
				return
			}
			require.NoError(t, err)
			_, err = f.accounts.Authenticate(ctx, a.Email, tt.newPw)
			assert.NoError(t, err)
			_, err = f.accounts.Authenticate(ctx, a.Email, strongPassword)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestChangePassword_UnknownAccount(t *testing.T) {
	f := newFixture(t)

	err := f.accounts.ChangePassword(context.Background(), 99, strongPassword, "Another456?", "Another456?")

	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDeactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.accounts.Create(ctx, aliceInput())
	require.NoError(t, err)

	require.NoError(t, f.accounts.Deactivate(ctx, a.ID))

	_, err = f.accounts.GetProfile(ctx, a.ID)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	assert.ErrorIs(t, f.accounts.Deactivate(ctx, a.ID), ErrAccountNotFound)
	assert.ErrorIs(t, f.accounts.Deactivate(ctx, 99), ErrAccountNotFound)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.accounts.Create(ctx, aliceInput())
	require.NoError(t, err)

	first := " Alicia "
	phone := "+54 9 11 2233-4455"
	currency := "usd"
	dob := time.Date(1990, 2, 3, 0, 0, 0, 0, time.UTC)
	f.clock.Advance(time.Hour)

	got, err := f.accounts.UpdateProfile(ctx, a.ID, ProfileUpdate{
		FirstName:         &first,
		Phone:             &phone,
		PreferredCurrency: &currency,
		DateOfBirth:       &dob,
	})
	require.NoError(t, err)

	assert.Equal(t, "Alicia", got.FirstName)
	assert.Equal(t, "Smith", got.LastName)
	assert.Equal(t, "USD", got.PreferredCurrency)
	require.NotNil(t, got.Phone)
	assert.Equal(t, phone, *got.Phone)
	assert.Equal(t, f.clock.Now(), got.UpdatedAt)

	stored, err := f.accounts.GetProfile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", stored.FirstName)
	require.NotNil(t, stored.DateOfBirth)
	assert.Equal(t, dob, *stored.DateOfBirth)
}

func TestUpdateProfile_InvalidLeavesAccountUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.accounts.Create(ctx, aliceInput())
	require.NoError(t, err)

	first := "R2D2"
	_, err = f.accounts.UpdateProfile(ctx, a.ID, ProfileUpdate{FirstName: &first})

	var ve *common.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "first_name")

	stored, err := f.accounts.GetProfile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", stored.FirstName)
}

func TestCurrentAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.accounts.Create(ctx, aliceInput())
	require.NoError(t, err)

	got, err := f.accounts.CurrentAccount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = f.accounts.CurrentAccount(ctx, 99)
	assert.ErrorIs(t, err, ErrAccountInactive)

	until := f.clock.Now().Add(time.Minute)
	err = f.store.WithinTx(ctx, func(ctx context.Context, repos db.Repositories) error {
		acc, err := repos.Accounts().GetByIDForUpdate(ctx, a.ID)
		if err != nil {
			return err
		}
		acc.LockedUntil = &until
		return repos.Accounts().Update(ctx, acc)
	})
	require.NoError(t, err)

	_, err = f.accounts.CurrentAccount(ctx, a.ID)
	assert.ErrorIs(t, err, ErrAccountLocked)
}
