// Package backendtest is an in-process implementation of the intranet
// authentication API's wire contract: the login/verify/logout endpoints,
// their response envelope, and their error codes. It backs the client test
// suites and the local development server; it is not the production backend.
package backendtest

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/go-intranet-client/users"
)

const defaultTokenTTL = 24 * time.Hour

// Account is a directory entry: the user record plus authentication state.
type Account struct {
	User         users.User
	PasswordHash string
	Active       bool
	LastAccess   time.Time
}

// Backend serves the auth API over an in-memory user directory.
type Backend struct {
	secret   []byte
	log      zerolog.Logger
	nowTime  func() time.Time
	tokenTTL time.Duration

	lock     sync.Mutex
	accounts map[string]*Account // keyed by upper-cased user code

	router chi.Router
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the request logger.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Backend) {
		b.log = log
	}
}

// WithNowTime sets the clock (primarily for testing token expiry).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(b *Backend) {
		b.nowTime = nowFunc
	}
}

// WithTokenTTL overrides the issued token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		b.tokenTTL = ttl
	}
}

// New creates a Backend signing tokens with the given secret.
func New(secret string, options ...Option) (*Backend, error) {
	if secret == "" {
		return nil, errors.New("[backendtest.New] signing secret is required")
	}
	b := &Backend{
		secret:   []byte(secret),
		log:      zerolog.Nop(),
		nowTime:  time.Now,
		tokenTTL: defaultTokenTTL,
		accounts: make(map[string]*Account),
	}
	for _, opt := range options {
		opt(b)
	}

	r := chi.NewRouter()
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", b.handleLogin)
		r.Post("/verify", b.handleVerify)
		r.Post("/logout", b.handleLogout)
		r.Get("/health", b.handleHealth)
	})
	b.router = r

	return b, nil
}

// ServeHTTP makes the Backend an http.Handler.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// AddUser registers a directory entry with a bcrypt-hashed password.
func (b *Backend) AddUser(user users.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return errors.Wrap(err, "[backendtest.AddUser] hashing password")
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	b.accounts[strings.ToUpper(user.Code)] = &Account{
		User:         user,
		PasswordHash: string(hash),
		Active:       true,
	}
	return nil
}

// DeactivateUser marks an account inactive; logins then fail exactly like
// bad credentials, as the real backend does.
func (b *Backend) DeactivateUser(code string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if account, ok := b.accounts[strings.ToUpper(code)]; ok {
		account.Active = false
	}
}

// LastAccess returns when the account last authenticated.
func (b *Backend) LastAccess(code string) time.Time {
	b.lock.Lock()
	defer b.lock.Unlock()
	if account, ok := b.accounts[strings.ToUpper(code)]; ok {
		return account.LastAccess
	}
	return time.Time{}
}

// authenticate validates credentials and returns the user record bound to
// the requested company, mirroring the directory lookup of the real backend.
func (b *Backend) authenticate(code, password string, companyID int) (*users.User, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()

	account, ok := b.accounts[strings.ToUpper(code)]
	if !ok || !account.Active {
		return nil, false
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, false
	}

	account.LastAccess = b.nowTime()

	user := account.User
	user.CompanyID = companyID
	if user.CompanyName == "" {
		user.CompanyName = companyName(companyID)
	}
	last := account.LastAccess
	user.LastAccess = &last
	return &user, true
}

func (b *Backend) lookup(code string) (*users.User, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	account, ok := b.accounts[strings.ToUpper(code)]
	if !ok || !account.Active {
		return nil, false
	}
	user := account.User
	return &user, true
}

// tokenClaims is the issued JWT payload. Claim names follow the original
// token format so tokens are interchangeable with the real backend's.
type tokenClaims struct {
	UserCode    string `json:"cd_usuario"`
	UserName    string `json:"nome_usuario"`
	CompanyID   int    `json:"cd_multi_empresa"`
	CompanyName string `json:"nome_empresa"`
	Role        string `json:"perfil"`
	jwt.RegisteredClaims
}

// mintToken issues an HS256 token for the user.
func (b *Backend) mintToken(user *users.User) (string, error) {
	now := b.nowTime()
	claims := tokenClaims{
		UserCode:    user.Code,
		UserName:    user.Name,
		CompanyID:   user.CompanyID,
		CompanyName: user.CompanyName,
		Role:        user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(b.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

// verifyToken parses and validates a previously issued token.
func (b *Backend) verifyToken(raw string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return b.secret, nil
	}, jwt.WithTimeFunc(b.nowTime))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func companyName(companyID int) string {
	// The directory has no company table here; the real backend synthesizes
	// the same placeholder when complementary data is missing.
	return "Empresa " + strconv.Itoa(companyID)
}
