// Package filestore persists session state to a JSON file, typically under
// the user's home directory. Concurrent intranet tools (another terminal,
// another CLI invocation) share the same file; mutations they make are
// detected through a filesystem watch and reported as external changes.
package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-intranet-client/storage"
)

var _ storage.Store = (*Store)(nil)

const defaultDirName = ".intranet"
const defaultFileName = "session.json"

// DefaultPath returns the conventional session file location,
// ~/.intranet/session.json.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "[DefaultPath] locating home directory")
	}
	return filepath.Join(home, defaultDirName, defaultFileName), nil
}

// Store is a storage.Store backed by a single JSON file.
type Store struct {
	path string
	log  zerolog.Logger

	lock      sync.Mutex
	known     map[string]string // file state as last written or observed here
	callbacks map[int]func(storage.Event)
	nextID    int

	watcher   *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for watch diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(fs *Store) {
		fs.log = log
	}
}

// New opens (creating if necessary) the session file at path and starts
// watching it for external mutations.
func New(path string, options ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("[filestore.New] path is required")
	}
	path = filepath.Clean(path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "[filestore.New] creating %s", dir)
	}

	fs := &Store{
		path:      path,
		log:       zerolog.Nop(),
		callbacks: make(map[int]func(storage.Event)),
		done:      make(chan struct{}),
	}
	for _, opt := range options {
		opt(fs)
	}

	known, err := fs.load()
	if err != nil {
		return nil, errors.Wrap(err, "[filestore.New] reading session file")
	}
	fs.known = known

	// Watch the directory rather than the file itself: atomic writes replace
	// the file by rename, which would silently drop a file-level watch.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "[filestore.New] creating watcher")
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close() // nolint: errcheck
		return nil, errors.Wrapf(err, "[filestore.New] watching %s", dir)
	}
	fs.watcher = watcher
	go fs.watch()

	return fs, nil
}

func (fs *Store) Get(key string) (string, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	value, ok := fs.known[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return value, nil
}

func (fs *Store) Put(values map[string]string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	state, err := fs.load()
	if err != nil {
		return errors.Wrap(err, "[filestore.Put] reading session file")
	}
	for k, v := range values {
		state[k] = v
	}
	if err := fs.write(state); err != nil {
		return errors.Wrap(err, "[filestore.Put] writing session file")
	}
	fs.known = state
	return nil
}

func (fs *Store) Delete(keys ...string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	state, err := fs.load()
	if err != nil {
		return errors.Wrap(err, "[filestore.Delete] reading session file")
	}
	for _, k := range keys {
		delete(state, k)
	}
	if err := fs.write(state); err != nil {
		return errors.Wrap(err, "[filestore.Delete] writing session file")
	}
	fs.known = state
	return nil
}

func (fs *Store) OnExternalChange(fn func(storage.Event)) (cancel func()) {
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

func (fs *Store) Close() error {
	var err error
	fs.closeOnce.Do(func() {
		close(fs.done)
		err = fs.watcher.Close()
	})
	return err
}

// watch consumes filesystem events and converts any drift between the file
// and the last state known to this instance into external-change events.
func (fs *Store) watch() {
	for {
		select {
		case <-fs.done:
			return
		case event, ok := <-fs.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fs.path {
				continue
			}
			fs.reconcile()
		case err, ok := <-fs.watcher.Errors:
			if !ok {
				return
			}
			fs.log.Warn().Err(err).Str("path", fs.path).Msg("session file watch error")
		}
	}
}

// reconcile reloads the file and fires callbacks for every key whose state
// differs from what this instance last wrote or observed.
func (fs *Store) reconcile() {
	fs.lock.Lock()
	state, err := fs.load()
	if err != nil {
		fs.lock.Unlock()
		fs.log.Warn().Err(err).Str("path", fs.path).Msg("could not reload session file")
		return
	}

	var events []storage.Event
	for key, previous := range fs.known {
		current, ok := state[key]
		switch {
		case !ok:
			events = append(events, storage.Event{Key: key, Removed: true})
		case current != previous:
			events = append(events, storage.Event{Key: key})
		}
	}
	for key := range state {
		if _, ok := fs.known[key]; !ok {
			events = append(events, storage.Event{Key: key})
		}
	}
	fs.known = state

	fns := make([]func(storage.Event), 0, len(fs.callbacks))
	for _, fn := range fs.callbacks {
		fns = append(fns, fn)
	}
	fs.lock.Unlock()

	for _, event := range events {
		fs.log.Debug().Str("key", event.Key).Bool("removed", event.Removed).Msg("external session change")
		for _, fn := range fns {
			fn(event)
		}
	}
}

// load reads the session file. A missing file is an empty store.
func (fs *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	state := map[string]string{}
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", fs.path)
	}
	return state, nil
}

// write replaces the session file atomically via a temp file and rename.
func (fs *Store) write(state map[string]string) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(fs.path), defaultFileName+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()          // nolint: errcheck
		os.Remove(tmpName)   // nolint: errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) // nolint: errcheck
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName) // nolint: errcheck
		return err
	}
	return os.Rename(tmpName, fs.path)
}
