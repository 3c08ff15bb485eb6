package passcode

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository implements Repository in process memory
type InMemoryRepository struct {
	passcodes table
	mutex     sync.RWMutex
}

// NewInMemoryRepository creates an empty in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		passcodes: make(table),
	}
}

func (r *InMemoryRepository) InvalidateActive(ctx context.Context, userRef string, now time.Time) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return int64(len(r.passcodes.invalidateActive(userRef))), nil
}

func (r *InMemoryRepository) Create(ctx context.Context, params CreateParams) (Passcode, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.passcodes.create(params), nil
}

func (r *InMemoryRepository) Issue(ctx context.Context, params CreateParams) (Passcode, error) {
	if err := ctx.Err(); err != nil {
		return Passcode{}, err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.passcodes.invalidateActive(params.UserRef)
	return r.passcodes.create(params), nil
}

func (r *InMemoryRepository) ConsumeByCode(ctx context.Context, code string, now time.Time) (Passcode, error) {
	if err := ctx.Err(); err != nil {
		return Passcode{}, err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	p, ok := r.passcodes.consume(code, now)
	if !ok {
		return Passcode{}, ErrPasscodeNotFound
	}
	return p, nil
}

func (r *InMemoryRepository) FindActiveByUser(ctx context.Context, userRef string, now time.Time) ([]Passcode, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.passcodes.activeByUser(userRef, now), nil
}

func (r *InMemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	expired := r.passcodes.expired(now)
	for _, p := range expired {
		delete(r.passcodes, p.ID)
	}
	return int64(len(expired)), nil
}
