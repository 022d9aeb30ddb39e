package db

import (
	"context"
	"sync"

	"github.com/neexa/neexa-backend/internal/common"
	"github.com/neexa/neexa-backend/internal/server/models"
	"github.com/neexa/neexa-backend/internal/server/repositories/accounts"
	"github.com/neexa/neexa-backend/internal/server/repositories/resettokens"
)

// MemoryStore keeps everything in process memory. Transactions run one at a
// time against a private copy of the data, which replaces the live data only
// on commit.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

type memState struct {
	accounts      map[int64]*models.Account
	emails        map[string]int64
	tokens        map[int64]*models.ResetToken
	tokenValues   map[string]int64
	nextAccountID int64
	nextTokenID   int64
}

func newMemState() *memState {
	return &memState{
		accounts:    make(map[int64]*models.Account),
		emails:      make(map[string]int64),
		tokens:      make(map[int64]*models.ResetToken),
		tokenValues: make(map[string]int64),
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		accounts:      make(map[int64]*models.Account, len(s.accounts)),
		emails:        make(map[string]int64, len(s.emails)),
		tokens:        make(map[int64]*models.ResetToken, len(s.tokens)),
		tokenValues:   make(map[string]int64, len(s.tokenValues)),
		nextAccountID: s.nextAccountID,
		nextTokenID:   s.nextTokenID,
	}
	for id, a := range s.accounts {
		c.accounts[id] = a.Clone()
	}
	for k, v := range s.emails {
		c.emails[k] = v
	}
	for id, t := range s.tokens {
		tc := *t
		c.tokens[id] = &tc
	}
	for k, v := range s.tokenValues {
		c.tokenValues[k] = v
	}
	return c
}

// memRepositories guards every call with mu. Inside a transaction mu is a
// no-op since WithinTx already holds the store lock.
type memRepositories struct {
	mu    sync.Locker
	state func() *memState
}

func (r memRepositories) Accounts() accounts.Repository {
	return &memAccounts{r}
}

func (r memRepositories) ResetTokens() resettokens.Repository {
	return &memTokens{r}
}

func (r memRepositories) do(fn func(s *memState) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.state())
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

func (m *MemoryStore) Repositories() Repositories {
	return memRepositories{mu: &m.mu, state: func() *memState { return m.state }}
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := m.state.clone()
	if err := fn(ctx, memRepositories{mu: noLock{}, state: func() *memState { return work }}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.state = work
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) Close() error {
	return nil
}

type memAccounts struct{ memRepositories }

func (r *memAccounts) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	err := r.do(func(s *memState) error {
		if _, ok := s.emails[account.Email]; ok {
			return common.ErrAlreadyExists
		}
		s.nextAccountID++
		account.ID = s.nextAccountID
		s.accounts[account.ID] = account.Clone()
		s.emails[account.Email] = account.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (r *memAccounts) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	var out *models.Account
	err := r.do(func(s *memState) error {
		a, ok := s.accounts[id]
		if !ok {
			return common.ErrorNotFound
		}
		out = a.Clone()
		return nil
	})
	return out, err
}

func (r *memAccounts) GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *memAccounts) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var out *models.Account
	err := r.do(func(s *memState) error {
		id, ok := s.emails[email]
		if !ok {
			return common.ErrorNotFound
		}
		out = s.accounts[id].Clone()
		return nil
	})
	return out, err
}

func (r *memAccounts) GetByEmailForUpdate(ctx context.Context, email string) (*models.Account, error) {
	return r.GetByEmail(ctx, email)
}

func (r *memAccounts) Update(ctx context.Context, account *models.Account) error {
	return r.do(func(s *memState) error {
		cur, ok := s.accounts[account.ID]
		if !ok {
			return common.ErrorNotFound
		}
		a := account.Clone()
		a.Email = cur.Email
		a.CreatedAt = cur.CreatedAt
		s.accounts[a.ID] = a
		return nil
	})
}

type memTokens struct{ memRepositories }

func (r *memTokens) Create(ctx context.Context, token *models.ResetToken) (*models.ResetToken, error) {
	err := r.do(func(s *memState) error {
		if _, ok := s.tokenValues[token.Token]; ok {
			return common.ErrAlreadyExists
		}
		if _, ok := s.accounts[token.AccountID]; !ok {
			return common.ErrorNotFound
		}
		s.nextTokenID++
		token.ID = s.nextTokenID
		t := *token
		s.tokens[t.ID] = &t
		s.tokenValues[t.Token] = t.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (r *memTokens) GetByToken(ctx context.Context, token string) (*models.ResetToken, error) {
	var out *models.ResetToken
	err := r.do(func(s *memState) error {
		id, ok := s.tokenValues[token]
		if !ok {
			return common.ErrorNotFound
		}
		t := *s.tokens[id]
		out = &t
		return nil
	})
	return out, err
}

func (r *memTokens) GetByTokenForUpdate(ctx context.Context, token string) (*models.ResetToken, error) {
	return r.GetByToken(ctx, token)
}

func (r *memTokens) MarkUsed(ctx context.Context, id int64) error {
	return r.do(func(s *memState) error {
		t, ok := s.tokens[id]
		if !ok {
			return common.ErrorNotFound
		}
		t.Used = true
		return nil
	})
}
