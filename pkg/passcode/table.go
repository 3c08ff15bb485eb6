package passcode

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// table is the unsynchronized passcode set shared by the in-memory and file
// repositories. Callers hold their own lock.
type table map[uuid.UUID]Passcode

func (t table) invalidateActive(userRef string) []Passcode {
	var removed []Passcode
	for id, p := range t {
		if p.UserRef == userRef && p.ConsumedAt == nil {
			removed = append(removed, p)
			delete(t, id)
		}
	}
	return removed
}

func (t table) create(params CreateParams) Passcode {
	p := newPasscode(params)
	t[p.ID] = p
	return p
}

// newestActive returns the most recently created active passcode with code.
func (t table) newestActive(code string, now time.Time) (Passcode, bool) {
	var (
		found Passcode
		ok    bool
	)
	for _, p := range t {
		if p.Code != code || !p.IsActive(now) {
			continue
		}
		if !ok || p.CreatedAt.After(found.CreatedAt) {
			found = p
			ok = true
		}
	}
	return found, ok
}

func (t table) consume(code string, now time.Time) (Passcode, bool) {
	p, ok := t.newestActive(code, now)
	if !ok {
		return Passcode{}, false
	}
	consumedAt := now.UTC()
	p.ConsumedAt = &consumedAt
	t[p.ID] = p
	return p, true
}

func (t table) activeByUser(userRef string, now time.Time) []Passcode {
	var res []Passcode
	for _, p := range t {
		if p.UserRef == userRef && p.IsActive(now) {
			res = append(res, p)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res
}

func (t table) expired(now time.Time) []Passcode {
	var res []Passcode
	for _, p := range t {
		if p.IsExpired(now) {
			res = append(res, p)
		}
	}
	return res
}

func (t table) restore(records []Passcode) {
	for _, p := range records {
		t[p.ID] = p
	}
}
