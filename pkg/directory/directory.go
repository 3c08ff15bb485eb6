package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	mfaerrors "github.com/tendant/simple-mfa/pkg/errors"
	"github.com/tendant/simple-mfa/pkg/mfa"
)

// InMemoryDirectory is a read-mostly user directory kept in memory.
type InMemoryDirectory struct {
	users map[string]mfa.User
	mutex sync.RWMutex
}

var _ mfa.UserDirectory = (*InMemoryDirectory)(nil)

// NewInMemoryDirectory creates a directory holding users.
func NewInMemoryDirectory(users ...mfa.User) *InMemoryDirectory {
	d := &InMemoryDirectory{users: make(map[string]mfa.User, len(users))}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

// NewFileDirectory loads users from a JSON file containing an array of users.
func NewFileDirectory(path string) (*InMemoryDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read users file: %w", err)
	}

	var users []mfa.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse users file: %w", err)
	}

	for i, u := range users {
		if strings.TrimSpace(u.ID) == "" {
			return nil, fmt.Errorf("user at index %d has no id", i)
		}
		if u.MfaMethod != "" && u.MfaMethod != mfa.MethodEmail && u.MfaMethod != mfa.MethodSMS {
			return nil, fmt.Errorf("user %s has unsupported mfa_method %q", u.ID, u.MfaMethod)
		}
	}

	return NewInMemoryDirectory(users...), nil
}

// GetUser returns the user with id.
func (d *InMemoryDirectory) GetUser(ctx context.Context, id string) (mfa.User, error) {
	if err := ctx.Err(); err != nil {
		return mfa.User{}, err
	}

	d.mutex.RLock()
	defer d.mutex.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return mfa.User{}, mfaerrors.UserNotFound(id)
	}
	return u, nil
}

// Put adds or replaces a user.
func (d *InMemoryDirectory) Put(u mfa.User) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.users[u.ID] = u
}

// Len returns the number of users.
func (d *InMemoryDirectory) Len() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return len(d.users)
}
