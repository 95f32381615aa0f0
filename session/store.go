package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-intranet-client/apiclient"
	"github.com/jrsteele09/go-intranet-client/storage"
	"github.com/jrsteele09/go-intranet-client/users"
)

const (
	// DefaultSessionTTL is how long a session lives after a successful login
	// or revalidation. The backend enforces its own token expiry; this is
	// client-side housekeeping on top of it.
	DefaultSessionTTL = 24 * time.Hour

	// DefaultNearExpiryThreshold is the window NearExpiry uses when callers
	// pass no threshold of their own.
	DefaultNearExpiryThreshold = 10 * time.Minute

	// DefaultExpiryCheckInterval is the period of the background expiry
	// ticker started by Start.
	DefaultExpiryCheckInterval = time.Minute
)

// AuthAPI is the backend collaborator the store consumes. apiclient.Client
// satisfies it; tests supply a fake.
type AuthAPI interface {
	Login(ctx context.Context, creds apiclient.Credentials) (*apiclient.LoginResult, error)
	Verify(ctx context.Context, token string) (*users.User, error)
	Logout(ctx context.Context, token string) error
}

// Store owns the Session record and mediates every read and write of it.
// All methods are safe for concurrent use; each transition replaces the
// record atomically.
type Store struct {
	api           AuthAPI
	storage       storage.Store
	log           zerolog.Logger
	nowTime       func() time.Time // injectable for testing
	sessionTTL    time.Duration
	checkInterval time.Duration

	lock        sync.Mutex
	user        *users.User
	token       string
	expiry      time.Time
	lastLogin   time.Time
	status      Status
	errMsg      string
	initialized bool

	subscribers map[int]func(Session)
	nextSubID   int

	watchDone     chan struct{}
	watchStop     sync.Once
	cancelStorage func()
	started       bool
}

// Option configures a Store.
type Option func(*Store)

// WithNowTime sets the clock (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// WithLogger sets the store's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// WithSessionTTL overrides the 24h session lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.sessionTTL = ttl
	}
}

// WithExpiryCheckInterval overrides the background expiry ticker period.
func WithExpiryCheckInterval(interval time.Duration) Option {
	return func(s *Store) {
		s.checkInterval = interval
	}
}

// New creates a Store bound to the given backend client and durable storage.
func New(api AuthAPI, durable storage.Store, options ...Option) (*Store, error) {
	if api == nil {
		return nil, errors.New("[session.New] auth API client is required")
	}
	if durable == nil {
		return nil, errors.New("[session.New] durable storage is required")
	}

	s := &Store{
		api:           api,
		storage:       durable,
		log:           zerolog.Nop(),
		nowTime:       time.Now,
		sessionTTL:    DefaultSessionTTL,
		checkInterval: DefaultExpiryCheckInterval,
		status:        StatusIdle,
		subscribers:   make(map[int]func(Session)),
		watchDone:     make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Snapshot returns the current session record.
func (s *Store) Snapshot() Session {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.snapshotLocked()
}

// Initialize restores persisted credentials, if any, and revalidates them
// against the backend. It must run to completion before access decisions are
// made; until then snapshots report Initialized=false. The returned snapshot
// describes the outcome; Initialize itself never fails.
func (s *Store) Initialize(ctx context.Context) Session {
	s.setStatus(StatusLoading)

	token, tokenErr := s.storage.Get(storage.TokenKey)
	_, userErr := s.storage.Get(storage.UserKey)
	if tokenErr != nil || userErr != nil {
		// Nothing (or only half a session) stored: start empty, no error.
		s.storage.Delete(storage.TokenKey, storage.UserKey) // nolint: errcheck
		return s.finishInitialize(nil, "", "")
	}

	// The backend's view of the user wins over the stored copy.
	user, err := s.api.Verify(ctx, token)
	if err != nil {
		s.log.Info().Str("reason", apiclient.UserMessage(err)).Msg("stored session rejected")
		if err := s.storage.Delete(storage.TokenKey, storage.UserKey); err != nil {
			s.log.Warn().Err(err).Msg("could not clear stored session")
		}
		return s.finishInitialize(nil, "", apiclient.UserMessage(err))
	}

	s.log.Info().Str("user", user.Code).Msg("session restored")
	return s.finishInitialize(user, token, "")
}

// Login authenticates the given credentials. All failure paths return an
// *apiclient.APIError; the session is left (or reset to) empty on failure.
func (s *Store) Login(ctx context.Context, userCode, password string, companyID int) (*users.User, error) {
	if err := validateLoginInput(userCode, password, companyID); err != nil {
		s.fail(apiclient.UserMessage(err))
		return nil, err
	}

	s.setStatus(StatusLoading)

	result, err := s.api.Login(ctx, apiclient.Credentials{
		UserCode:  userCode,
		Password:  password,
		CompanyID: companyID,
	})
	if err != nil {
		s.log.Warn().Str("user", userCode).Int("company", companyID).
			Str("reason", apiclient.UserMessage(err)).Msg("login failed")
		s.fail(apiclient.UserMessage(err))
		return nil, err
	}

	now := s.nowTime()
	user := result.User

	s.lock.Lock()
	s.user = &user
	s.token = result.Token
	s.expiry = now.Add(s.sessionTTL)
	s.lastLogin = now
	s.status = StatusSuccess
	s.errMsg = ""
	s.initialized = true
	s.lock.Unlock()

	if err := s.persist(result.Token, &user); err != nil {
		// The in-memory session is live either way; only restore-on-restart
		// is lost.
		s.log.Error().Err(err).Msg("could not persist session")
	}

	s.log.Info().Str("user", user.Code).Int("company", user.CompanyID).Msg("login succeeded")
	s.notify()
	return &user, nil
}

// Logout clears the session. The backend is notified best-effort; from the
// caller's point of view logout cannot fail, so there is nothing to return.
func (s *Store) Logout(ctx context.Context) {
	s.lock.Lock()
	token := s.token
	s.lock.Unlock()

	if token != "" {
		if err := s.api.Logout(ctx, token); err != nil {
			s.log.Warn().Err(err).Msg("backend logout failed; clearing local session anyway")
		}
	}

	if err := s.storage.Delete(storage.TokenKey, storage.UserKey); err != nil {
		s.log.Warn().Err(err).Msg("could not clear stored session")
	}

	s.reset()
	s.log.Info().Msg("logged out")
	s.notify()
}

// UpdateUser shallow-merges the given fields into the current user and
// persists the merged record. Token and expiry are untouched. It is a no-op
// when unauthenticated.
func (s *Store) UpdateUser(update users.Update) {
	s.lock.Lock()
	if s.user == nil || s.token == "" {
		s.lock.Unlock()
		return
	}
	merged := s.user.Merge(update)
	s.user = &merged
	token := s.token
	s.lock.Unlock()

	if err := s.persist(token, &merged); err != nil {
		s.log.Error().Err(err).Msg("could not persist updated user")
	}
	s.notify()
}

// TimeRemaining returns how long until the session expires, and zero when
// there is no session, so callers can branch on a single comparison.
func (s *Store) TimeRemaining() time.Duration {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.user == nil || s.token == "" || s.expiry.IsZero() {
		return 0
	}
	remaining := s.expiry.Sub(s.nowTime())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NearExpiry reports whether the session expires within threshold. A
// threshold <= 0 uses DefaultNearExpiryThreshold.
func (s *Store) NearExpiry(threshold time.Duration) bool {
	if threshold <= 0 {
		threshold = DefaultNearExpiryThreshold
	}
	remaining := s.TimeRemaining()
	return remaining > 0 && remaining <= threshold
}

// ClearError moves the status machine from error back to idle.
func (s *Store) ClearError() {
	s.lock.Lock()
	if s.status == StatusError {
		s.status = StatusIdle
		s.errMsg = ""
	}
	s.lock.Unlock()
	s.notify()
}

// Subscribe registers fn to be called with a snapshot after every session
// transition, including forced logouts. The returned cancel func
// unregisters it.
func (s *Store) Subscribe(fn func(Session)) (cancel func()) {
	s.lock.Lock()
	defer s.lock.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		delete(s.subscribers, id)
	}
}

// Start launches the background housekeeping owned by this store: a periodic
// expiry check that logs the session out once TimeRemaining reaches zero,
// and a watch on durable storage that treats external removal of the token
// key as a logout signal from elsewhere. Close stops both deterministically.
func (s *Store) Start(ctx context.Context) error {
	s.lock.Lock()
	if s.started {
		s.lock.Unlock()
		return errors.New("[session.Start] already started")
	}
	s.started = true
	s.lock.Unlock()

	s.cancelStorage = s.storage.OnExternalChange(func(event storage.Event) {
		if event.Key != storage.TokenKey || !event.Removed {
			return
		}
		// Token presence in durable storage is the source of truth; someone
		// else already removed it, so only local state needs clearing.
		s.log.Info().Msg("session token removed externally; logging out")
		s.reset()
		s.notify()
	})

	go s.expiryLoop(ctx)
	return nil
}

// Close cancels the background expiry check and the storage watch. It does
// not touch the session itself.
func (s *Store) Close() {
	s.watchStop.Do(func() {
		close(s.watchDone)
		if s.cancelStorage != nil {
			s.cancelStorage()
		}
	})
}

func (s *Store) expiryLoop(ctx context.Context) {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.watchDone:
			return
		case <-ticker.C:
			s.lock.Lock()
			expired := s.user != nil && s.token != "" &&
				!s.expiry.IsZero() && !s.nowTime().Before(s.expiry)
			s.lock.Unlock()
			if expired {
				s.log.Info().Msg("session expired; logging out")
				s.Logout(ctx)
			}
		}
	}
}

// persist writes token and user to durable storage as one update.
func (s *Store) persist(token string, user *users.User) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "[session.persist] encoding user")
	}
	return s.storage.Put(map[string]string{
		storage.TokenKey: token,
		storage.UserKey:  string(userJSON),
	})
}

func (s *Store) finishInitialize(user *users.User, token, errMsg string) Session {
	s.lock.Lock()
	s.user = user
	s.token = token
	if user != nil {
		s.expiry = s.nowTime().Add(s.sessionTTL)
		s.status = StatusSuccess
	} else {
		s.expiry = time.Time{}
		if errMsg != "" {
			s.status = StatusError
		} else {
			s.status = StatusIdle
		}
	}
	s.errMsg = errMsg
	s.initialized = true
	snapshot := s.snapshotLocked()
	s.lock.Unlock()

	s.notify()
	return snapshot
}

// reset clears the in-memory session to its empty state.
func (s *Store) reset() {
	s.lock.Lock()
	s.user = nil
	s.token = ""
	s.expiry = time.Time{}
	s.status = StatusIdle
	s.errMsg = ""
	s.initialized = true
	s.lock.Unlock()
}

// fail records a failed auth operation, leaving the session empty.
func (s *Store) fail(message string) {
	s.lock.Lock()
	s.user = nil
	s.token = ""
	s.expiry = time.Time{}
	s.status = StatusError
	s.errMsg = message
	s.initialized = true
	s.lock.Unlock()
	s.notify()
}

func (s *Store) setStatus(status Status) {
	s.lock.Lock()
	s.status = status
	if status == StatusLoading {
		s.errMsg = ""
	}
	s.lock.Unlock()
	s.notify()
}

func (s *Store) snapshotLocked() Session {
	var user *users.User
	if s.user != nil {
		u := *s.user
		user = &u
	}
	return Session{
		User:          user,
		Token:         s.token,
		SessionExpiry: s.expiry,
		LastLoginTime: s.lastLogin,
		Status:        s.status,
		Error:         s.errMsg,
		Initialized:   s.initialized,
	}
}

func (s *Store) notify() {
	s.lock.Lock()
	snapshot := s.snapshotLocked()
	fns := make([]func(Session), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.lock.Unlock()
	for _, fn := range fns {
		fn(snapshot)
	}
}
