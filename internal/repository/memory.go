package repository

// memory.go provides an in-process implementation of the user, account
// and ownership stores.  It backs STORE_DRIVER=memory for local runs and
// is the persistence double used by handler and router tests.

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/finapp/internal/model"
)

type relKey struct{ userID, accountID string }

// MemoryStore keeps users, accounts and relations in maps guarded by a
// single RWMutex.  Values are copied on the way in and out.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]model.User
	emails    map[string]string // email -> user id
	accounts  map[string]model.Account
	relations map[relKey]model.UserAccount
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     map[string]model.User{},
		emails:    map[string]string{},
		accounts:  map[string]model.Account{},
		relations: map[relKey]model.UserAccount{},
	}
}

// Users returns the user store view.
func (s *MemoryStore) Users() *MemoryUserRepo { return &MemoryUserRepo{s: s} }

// Accounts returns the account store view.
func (s *MemoryStore) Accounts() *MemoryAccountRepo { return &MemoryAccountRepo{s: s} }

// IsOwner reports whether userID holds the OWNER role on accountID.
func (s *MemoryStore) IsOwner(_ context.Context, accountID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rel, ok := s.relations[relKey{userID, accountID}]
	return ok && rel.Role == model.AccountOwner, nil
}

// Relations returns every relation of accountID.
func (s *MemoryStore) Relations(accountID string) []model.UserAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.UserAccount
	for k, rel := range s.relations {
		if k.accountID == accountID {
			out = append(out, rel)
		}
	}
	return out
}

// AddRelation links userID to accountID with role.
func (s *MemoryStore) AddRelation(_ context.Context, ua *model.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addRelationLocked(ua)
}

func (s *MemoryStore) addRelationLocked(ua *model.UserAccount) error {
	k := relKey{ua.UserID, ua.AccountID}
	if _, ok := s.relations[k]; ok {
		return ErrConflict
	}
	if ua.ID == "" {
		ua.ID = uuid.NewString()
	}
	s.relations[k] = *ua
	return nil
}

// MemoryUserRepo is the user view of a MemoryStore.
type MemoryUserRepo struct{ s *MemoryStore }

func (r *MemoryUserRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u.Email = NormalizeEmail(u.Email)
	if _, ok := r.s.emails[u.Email]; ok {
		return ErrEmailExists
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.users[u.ID] = *u
	r.s.emails[u.Email] = u.ID
	return nil
}

func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.emails[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	u := r.s.users[id]
	return &u, nil
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepo) List(_ context.Context) ([]*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Delete removes a user and its relations.
func (r *MemoryUserRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.s.users, id)
	delete(r.s.emails, u.Email)
	for k := range r.s.relations {
		if k.userID == id {
			delete(r.s.relations, k)
		}
	}
	return nil
}

// MemoryAccountRepo is the account view of a MemoryStore.
type MemoryAccountRepo struct{ s *MemoryStore }

func (r *MemoryAccountRepo) List(_ context.Context) ([]*model.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*model.Account, 0, len(r.s.accounts))
	for _, a := range r.s.accounts {
		a := a
		out = append(out, &a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryAccountRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// CreateWithOwner stores a and the owner relation under one lock so the
// pair appears atomically.
func (r *MemoryAccountRepo) CreateWithOwner(_ context.Context, a *model.Account, ownerID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	if err := r.s.addRelationLocked(&model.UserAccount{UserID: ownerID, AccountID: a.ID, Role: model.AccountOwner}); err != nil {
		return err
	}
	r.s.accounts[a.ID] = *a
	return nil
}

func (r *MemoryAccountRepo) Update(_ context.Context, id string, patch model.AccountPatch) (*model.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		a.Name = *patch.Name
	}
	if patch.Type != nil {
		a.Type = *patch.Type
	}
	a.UpdatedAt = time.Now().UTC()
	r.s.accounts[id] = a
	return &a, nil
}

func (r *MemoryAccountRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.accounts, id)
	for k := range r.s.relations {
		if k.accountID == id {
			delete(r.s.relations, k)
		}
	}
	return nil
}

func (r *MemoryAccountRepo) ListForUser(_ context.Context, userID string) ([]*model.AccountMembership, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*model.AccountMembership{}
	for k, rel := range r.s.relations {
		if k.userID != userID {
			continue
		}
		if a, ok := r.s.accounts[k.accountID]; ok {
			out = append(out, &model.AccountMembership{Account: a, Role: rel.Role})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
