package repofake

import (
	"sync"

	"github.com/jrsteele09/notes-auth-client/session"
)

var _ session.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo keeps the two session keys in a map, like browser local storage.
type FakeSessionRepo struct {
	values map[string][]byte
	lock   sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		values: make(map[string][]byte),
	}
}

func (r *FakeSessionRepo) Put(rec session.Record) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.values[session.TokenKey] = []byte(rec.Token)
	r.values[session.UserKey] = append([]byte(nil), rec.User...)
	return nil
}

func (r *FakeSessionRepo) Get() (*session.Record, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	tok, okTok := r.values[session.TokenKey]
	user, okUser := r.values[session.UserKey]
	if !okTok || !okUser {
		return nil, session.ErrNotFound
	}
	return &session.Record{Token: string(tok), User: append([]byte(nil), user...)}, nil
}

func (r *FakeSessionRepo) Delete() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.values, session.TokenKey)
	delete(r.values, session.UserKey)
	return nil
}

// Raw returns the stored value for key, for tests that inspect the layout.
func (r *FakeSessionRepo) Raw(key string) ([]byte, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	v, ok := r.values[key]
	return v, ok
}

// SetRaw writes a single key, for tests that corrupt storage.
func (r *FakeSessionRepo) SetRaw(key string, value []byte) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.values[key] = value
}
