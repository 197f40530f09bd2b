package authsvc

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mwalimuhq/ngao/core"
)

type staticAccount struct {
	principal    Principal
	passwordHash []byte
	active       bool
}

// staticAuthenticator holds a fixed set of accounts in memory. DEV/TEST
// stand-in for the managed auth backend.
type staticAuthenticator struct {
	mu       sync.RWMutex
	accounts map[string]*staticAccount
}

var _ Authenticator = (*staticAuthenticator)(nil)

func NewStaticAuthenticator() *staticAuthenticator {
	return &staticAuthenticator{accounts: make(map[string]*staticAccount)}
}

// AddAccount registers an account and returns its id.
func (a *staticAuthenticator) AddAccount(username, email, password string, roles []string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	acc := &staticAccount{
		principal: Principal{
			ID:       uuid.New().String(),
			Username: core.CleanString(username, true),
			Email:    core.CleanString(email, true),
			Roles:    roles,
		},
		passwordHash: hash,
		active:       true,
	}
	a.mu.Lock()
	a.accounts[acc.principal.Username] = acc
	a.mu.Unlock()
	return acc.principal.ID, nil
}

func (a *staticAuthenticator) Deactivate(username string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if acc, ok := a.accounts[core.CleanString(username, true)]; ok {
		acc.active = false
	}
}

func (a *staticAuthenticator) Authenticate(username, password string) (Principal, error) {
	a.mu.RLock()
	acc, ok := a.accounts[core.CleanString(username, true)]
	a.mu.RUnlock()
	if !ok {
		return Principal{}, ErrAuthenticationFailed
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return Principal{}, ErrAuthenticationFailed
	}
	if !acc.active {
		return Principal{}, ErrAccountDeactivated
	}
	return acc.principal, nil
}
