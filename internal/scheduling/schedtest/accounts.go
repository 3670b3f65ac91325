package schedtest

import (
	"context"
	"sync"

	"clinic-scheduler/internal/auth"
	"clinic-scheduler/internal/model"
)

// Accounts is an in-memory auth.AccountFinder.
type Accounts struct {
	mu   sync.Mutex
	byID map[string]*model.Account
}

func NewAccounts() *Accounts {
	return &Accounts{byID: make(map[string]*model.Account)}
}

func key(role model.Role, username string) string {
	return role.String() + "/" + username
}

// Add registers an account with a bcrypt hash of password.
func (a *Accounts) Add(id int64, role model.Role, username, password, name string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.byID[key(role, username)] = &model.Account{ID: id, Role: role, Username: username, PasswordHash: hash, Name: name}
	return nil
}

func (a *Accounts) FindAccount(_ context.Context, role model.Role, username string) (*model.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	acct, ok := a.byID[key(role, username)]
	if !ok {
		return nil, model.NotFound(role.String(), 0)
	}
	cp := *acct
	return &cp, nil
}
