package storagefakes

import (
	"sync"

	"github.com/jrsteele09/go-intranet-client/storage"
)

var _ storage.Store = (*FakeStore)(nil)

// FakeStore is an in-memory storage.Store for tests. ExternalPut and
// ExternalRemove simulate another process mutating the backing store and
// fire the registered external-change callbacks synchronously.
type FakeStore struct {
	lock      sync.Mutex
	values    map[string]string
	callbacks map[int]func(storage.Event)
	nextID    int
	closed    bool

	PutCalls    int
	DeleteCalls int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		values:    make(map[string]string),
		callbacks: make(map[int]func(storage.Event)),
	}
}

func (fs *FakeStore) Get(key string) (string, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	value, ok := fs.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return value, nil
}

func (fs *FakeStore) Put(values map[string]string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.PutCalls++
	for k, v := range values {
		fs.values[k] = v
	}
	return nil
}

func (fs *FakeStore) Delete(keys ...string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.DeleteCalls++
	for _, k := range keys {
		delete(fs.values, k)
	}
	return nil
}

func (fs *FakeStore) OnExternalChange(fn func(storage.Event)) (cancel func()) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	id := fs.nextID
	fs.nextID++
	fs.callbacks[id] = fn
	return func() {
		fs.lock.Lock()
		defer fs.lock.Unlock()
		delete(fs.callbacks, id)
	}
}

func (fs *FakeStore) Close() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.closed = true
	fs.callbacks = make(map[int]func(storage.Event))
	return nil
}

// ExternalPut simulates another writer setting key.
func (fs *FakeStore) ExternalPut(key, value string) {
	fs.lock.Lock()
	fs.values[key] = value
	fns := fs.snapshotCallbacks()
	fs.lock.Unlock()
	for _, fn := range fns {
		fn(storage.Event{Key: key})
	}
}

// ExternalRemove simulates another writer deleting key.
func (fs *FakeStore) ExternalRemove(key string) {
	fs.lock.Lock()
	delete(fs.values, key)
	fns := fs.snapshotCallbacks()
	fs.lock.Unlock()
	for _, fn := range fns {
		fn(storage.Event{Key: key, Removed: true})
	}
}

// Len reports the number of stored keys.
func (fs *FakeStore) Len() int {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	return len(fs.values)
}

func (fs *FakeStore) snapshotCallbacks() []func(storage.Event) {
	fns := make([]func(storage.Event), 0, len(fs.callbacks))
	for _, fn := range fs.callbacks {
		fns = append(fns, fn)
	}
	return fns
}
