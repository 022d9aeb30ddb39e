// Package admin implements the operator commands of neexa-cli.
package admin

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/neexa/neexa-backend/internal/common"
	"github.com/neexa/neexa-backend/internal/flagx"
	"github.com/neexa/neexa-backend/internal/logging"
	"github.com/neexa/neexa-backend/internal/server"
	"github.com/neexa/neexa-backend/internal/server/auth"
	"github.com/neexa/neexa-backend/internal/server/config"
	"github.com/neexa/neexa-backend/internal/server/password"
	"github.com/neexa/neexa-backend/internal/server/services"
	"github.com/neexa/neexa-backend/internal/server/shared/db"
)

// ErrUsage is returned for an unknown command or missing arguments.
var ErrUsage = errors.New("usage: neexa-cli <migrate|create-account|deactivate|gen-secret> [flags]")

const secretBytes = 32

// PasswordReader reads a password without echoing it.
type PasswordReader func(prompt string) ([]byte, error)

type Commands struct {
	config       *config.Config
	out          io.Writer
	logger       logging.Logger
	readPassword PasswordReader
	openStore    func(ctx context.Context, c *config.Config, migrate bool) (db.Store, error)
}

func NewCommands(c *config.Config, out io.Writer, logger logging.Logger, rp PasswordReader) *Commands {
	return &Commands{
		config:       c,
		out:          out,
		logger:       logger,
		readPassword: rp,
		openStore:    server.OpenStore,
	}
}

// Run executes the command named by args[0]. Arguments that are not flags
// of that command are ignored so server config flags may be mixed in.
func (c *Commands) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "migrate":
		return c.migrate(ctx)
	case "create-account":
		return c.createAccount(ctx, rest)
	case "deactivate":
		return c.deactivate(ctx, rest)
	case "gen-secret":
		return c.genSecret()
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (c *Commands) migrate(ctx context.Context) error {
	if c.config.DatabaseDSN == config.MemoryDSN {
		fmt.Fprintln(c.out, "in-memory store needs no migrations")
		return nil
	}
	store, err := c.openStore(ctx, c.config, true)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Fprintln(c.out, "migrations applied")
	return nil
}

func (c *Commands) accountService(ctx context.Context) (*services.AccountService, db.Store, error) {
	store, err := c.openStore(ctx, c.config, false)
	if err != nil {
		return nil, nil, err
	}
	issuer := auth.NewIssuer([]byte(c.config.SecretKey), c.config.AccessTokenValidityDuration, c.config.RefreshTokenValidityDuration)
	svc := services.NewAccountService(store, password.NewHasher(c.config.BcryptCost), issuer, c.logger,
		services.WithLockoutPolicy(c.config.LockoutThreshold, c.config.LockoutDuration))
	return svc, store, nil
}

func (c *Commands) createAccount(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-account", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "account email")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	currency := fs.String("currency", "", "preferred currency")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "-first", "-last", "-currency"})); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if strings.TrimSpace(*email) == "" || *first == "" || *last == "" {
		return fmt.Errorf("%w: -email, -first and -last are required", ErrUsage)
	}

	pw, err := c.readPassword("Password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	defer common.WipeByteArray(pw)
	confirm, err := c.readPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	defer common.WipeByteArray(confirm)

	svc, store, err := c.accountService(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	acc, err := svc.Create(ctx, services.RegisterInput{
		Email:             *email,
		Password:          string(pw),
		ConfirmPassword:   string(confirm),
		FirstName:         *first,
		LastName:          *last,
		PreferredCurrency: *currency,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "account %d created for %s\n", acc.ID, acc.Email)
	return nil
}

func (c *Commands) deactivate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("deactivate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	id := fs.String("id", "", "account id")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-id"})); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	accountID, err := strconv.ParseInt(*id, 10, 64)
	if err != nil || accountID <= 0 {
		return fmt.Errorf("%w: -id must be a positive number", ErrUsage)
	}

	svc, store, err := c.accountService(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := svc.Deactivate(ctx, accountID); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "account %d deactivated\n", accountID)
	return nil
}

func (c *Commands) genSecret() error {
	s, err := common.MakeRandHexString(secretBytes)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, s)
	return nil
}
