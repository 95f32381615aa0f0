package session_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-intranet-client/apiclient"
	"github.com/jrsteele09/go-intranet-client/session"
	"github.com/jrsteele09/go-intranet-client/session/clientfakes"
	"github.com/jrsteele09/go-intranet-client/storage"
	"github.com/jrsteele09/go-intranet-client/storage/storagefakes"
	"github.com/jrsteele09/go-intranet-client/users"
)

const (
	testUserCode    = "F04821"
	testUserName    = "Gerente de Unidade"
	testPassword    = "secret123"
	testCompanyID   = 1
	testCompanyName = "Empresa 1"
	testRole        = "gerente"
	testToken       = "token-1"
)

// fakeClock is a manually advanced clock shared with the store under test.
type fakeClock struct {
	lock sync.Mutex
	now  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

// testFixture holds the store under test and its fakes.
type testFixture struct {
	api     *clientfakes.FakeAuthAPI
	durable *storagefakes.FakeStore
	clock   *fakeClock
	store   *session.Store
}

func setupTestFixture(t *testing.T, options ...session.Option) *testFixture {
	t.Helper()

	api := clientfakes.NewFakeAuthAPI()
	durable := storagefakes.NewFakeStore()
	clock := newFakeClock()

	opts := append([]session.Option{session.WithNowTime(clock.Now)}, options...)
	store, err := session.New(api, durable, opts...)
	require.NoError(t, err)

	return &testFixture{api: api, durable: durable, clock: clock, store: store}
}

func testUser() users.User {
	return users.User{
		Code:        testUserCode,
		Name:        testUserName,
		CompanyID:   testCompanyID,
		CompanyName: testCompanyName,
		Role:        testRole,
	}
}

// allowLogin wires the fake API to accept the test credentials.
func (f *testFixture) allowLogin() {
	f.api.LoginFn = func(creds apiclient.Credentials) (*apiclient.LoginResult, error) {
		if creds.UserCode != testUserCode || creds.Password != testPassword {
			return nil, &apiclient.APIError{
				Kind:    apiclient.KindCredentials,
				Code:    apiclient.CodeInvalidCredentials,
				Message: "Credenciais inválidas ou usuário inativo",
			}
		}
		return &apiclient.LoginResult{Token: testToken, User: testUser()}, nil
	}
}

func (f *testFixture) login(t *testing.T) *users.User {
	t.Helper()
	f.allowLogin()
	user, err := f.store.Login(context.Background(), testUserCode, testPassword, testCompanyID)
	require.NoError(t, err)
	return user
}

func TestLoginValidationFailsWithoutNetworkCall(t *testing.T) {
	tests := []struct {
		name      string
		userCode  string
		password  string
		companyID int
	}{
		{"empty user code", "", testPassword, testCompanyID},
		{"blank user code", "   ", testPassword, testCompanyID},
		{"empty password", testUserCode, "", testCompanyID},
		{"zero company", testUserCode, testPassword, 0},
		{"negative company", testUserCode, testPassword, -3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := setupTestFixture(t)

			_, err := f.store.Login(context.Background(), tc.userCode, tc.password, tc.companyID)
			require.Error(t, err)
			require.Equal(t, apiclient.KindValidation, apiclient.KindOf(err))
			require.Zero(t, f.api.LoginCalls, "validation failures must not reach the network")

			snapshot := f.store.Snapshot()
			require.False(t, snapshot.Authenticated())
			require.Equal(t, session.StatusError, snapshot.Status)
			require.NotEmpty(t, snapshot.Error)
		})
	}
}

func TestLoginSuccess(t *testing.T) {
	f := setupTestFixture(t)
	loginTime := f.clock.Now()

	user := f.login(t)
	require.Equal(t, testUserCode, user.Code)

	snapshot := f.store.Snapshot()
	require.True(t, snapshot.Authenticated())
	require.Equal(t, testToken, snapshot.Token)
	require.Equal(t, session.StatusSuccess, snapshot.Status)
	require.Empty(t, snapshot.Error)
	require.Equal(t, loginTime, snapshot.LastLoginTime)
	require.Equal(t, loginTime.Add(session.DefaultSessionTTL), snapshot.SessionExpiry)

	// Token and user are persisted together.
	token, err := f.durable.Get(storage.TokenKey)
	require.NoError(t, err)
	require.Equal(t, testToken, token)

	userJSON, err := f.durable.Get(storage.UserKey)
	require.NoError(t, err)
	var stored users.User
	require.NoError(t, json.Unmarshal([]byte(userJSON), &stored))
	require.Equal(t, testUser(), stored)
}

func TestLoginRejectedCredentials(t *testing.T) {
	f := setupTestFixture(t)
	f.allowLogin()

	_, err := f.store.Login(context.Background(), testUserCode, "wrong", testCompanyID)
	require.Error(t, err)
	require.Equal(t, apiclient.KindCredentials, apiclient.KindOf(err))

	snapshot := f.store.Snapshot()
	require.False(t, snapshot.Authenticated())
	require.Nil(t, snapshot.User)
	require.Empty(t, snapshot.Token)
	require.Equal(t, session.StatusError, snapshot.Status)
	require.Equal(t, "Credenciais inválidas ou usuário inativo", snapshot.Error)
	require.Zero(t, f.durable.Len())
}

func TestAuthenticatedDerivedFromUserAndToken(t *testing.T) {
	f := setupTestFixture(t)
	require.False(t, f.store.Snapshot().Authenticated())

	f.login(t)
	snapshot := f.store.Snapshot()
	require.True(t, snapshot.Authenticated())
	require.NotNil(t, snapshot.User)
	require.NotEmpty(t, snapshot.Token)

	f.api.LogoutFn = func(string) error { return nil }
	f.store.Logout(context.Background())
	snapshot = f.store.Snapshot()
	require.False(t, snapshot.Authenticated())
	require.Nil(t, snapshot.User)
	require.Empty(t, snapshot.Token)
}

func TestTimeRemainingCountsDownMonotonically(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	require.Equal(t, session.DefaultSessionTTL, f.store.TimeRemaining())

	f.clock.Advance(1 * time.Hour)
	require.Equal(t, 23*time.Hour, f.store.TimeRemaining())

	f.clock.Advance(23 * time.Hour)
	require.Zero(t, f.store.TimeRemaining())

	f.clock.Advance(time.Minute)
	require.Zero(t, f.store.TimeRemaining(), "remaining never goes negative")
}

func TestTimeRemainingZeroWithoutSession(t *testing.T) {
	f := setupTestFixture(t)
	require.Zero(t, f.store.TimeRemaining())
}

func TestNearExpiry(t *testing.T) {
	f := setupTestFixture(t)
	require.False(t, f.store.NearExpiry(0), "no session is not near expiry")

	f.login(t)
	require.False(t, f.store.NearExpiry(0))

	f.clock.Advance(session.DefaultSessionTTL - 5*time.Minute)
	require.True(t, f.store.NearExpiry(0))
	require.True(t, f.store.NearExpiry(6*time.Minute))
	require.False(t, f.store.NearExpiry(time.Minute))

	f.clock.Advance(5 * time.Minute)
	require.False(t, f.store.NearExpiry(0), "expired is not near expiry")
}

func TestLogoutSwallowsBackendFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	f.api.LogoutFn = func(string) error {
		return &apiclient.APIError{Kind: apiclient.KindNetwork, Message: "connection refused"}
	}

	f.store.Logout(context.Background())

	require.Equal(t, 1, f.api.LogoutCalls)
	snapshot := f.store.Snapshot()
	require.False(t, snapshot.Authenticated())
	require.Equal(t, session.StatusIdle, snapshot.Status)
	require.Empty(t, snapshot.Error)
	require.Zero(t, f.durable.Len(), "storage cleared despite backend failure")
}

func TestLogoutWithoutSessionSkipsBackend(t *testing.T) {
	f := setupTestFixture(t)
	f.store.Logout(context.Background())
	require.Zero(t, f.api.LogoutCalls)
}

func TestInitializeWithNothingStored(t *testing.T) {
	f := setupTestFixture(t)

	snapshot := f.store.Initialize(context.Background())
	require.True(t, snapshot.Initialized)
	require.False(t, snapshot.Authenticated())
	require.Empty(t, snapshot.Error)
	require.Equal(t, session.StatusIdle, snapshot.Status)
	require.Zero(t, f.api.VerifyCalls)
}

func TestInitializeRestoresAndRevalidates(t *testing.T) {
	f := setupTestFixture(t)

	stale := testUser()
	stale.Name = "Nome Antigo"
	staleJSON, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, f.durable.Put(map[string]string{
		storage.TokenKey: testToken,
		storage.UserKey:  string(staleJSON),
	}))

	fresh := testUser()
	f.api.VerifyFn = func(token string) (*users.User, error) {
		require.Equal(t, testToken, token)
		u := fresh
		return &u, nil
	}

	restoreTime := f.clock.Now()
	snapshot := f.store.Initialize(context.Background())
	require.True(t, snapshot.Initialized)
	require.True(t, snapshot.Authenticated())
	require.Equal(t, testUserName, snapshot.User.Name, "backend's view of the user wins")
	require.Equal(t, restoreTime.Add(session.DefaultSessionTTL), snapshot.SessionExpiry)
	require.Equal(t, session.StatusSuccess, snapshot.Status)
}

func TestInitializeClearsRejectedSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.durable.Put(map[string]string{
		storage.TokenKey: "stale-token",
		storage.UserKey:  `{"cdUsuario":"F04821"}`,
	}))
	f.api.VerifyFn = func(string) (*users.User, error) {
		return nil, &apiclient.APIError{
			Kind:    apiclient.KindTokenInvalid,
			Code:    apiclient.CodeInvalidToken,
			Message: "Token inválido ou expirado",
		}
	}

	snapshot := f.store.Initialize(context.Background())
	require.True(t, snapshot.Initialized)
	require.False(t, snapshot.Authenticated())
	require.Equal(t, session.StatusError, snapshot.Status)
	require.Equal(t, "Token inválido ou expirado", snapshot.Error)
	require.Zero(t, f.durable.Len(), "rejected credentials are purged from storage")
}

func TestInitializeWithHalfStoredSessionStartsEmpty(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.durable.Put(map[string]string{storage.TokenKey: testToken}))

	snapshot := f.store.Initialize(context.Background())
	require.False(t, snapshot.Authenticated())
	require.Empty(t, snapshot.Error)
	require.Zero(t, f.api.VerifyCalls)
	require.Zero(t, f.durable.Len())
}

func TestSnapshotNotInitializedBeforeInitialize(t *testing.T) {
	f := setupTestFixture(t)
	require.False(t, f.store.Snapshot().Initialized)
}

func TestUpdateUserMergesAndPersists(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	before := f.store.Snapshot()

	newName := "Nome Atualizado"
	f.store.UpdateUser(users.Update{Name: &newName})

	snapshot := f.store.Snapshot()
	require.Equal(t, newName, snapshot.User.Name)
	require.Equal(t, testRole, snapshot.User.Role, "unset fields keep their values")
	require.Equal(t, before.Token, snapshot.Token)
	require.Equal(t, before.SessionExpiry, snapshot.SessionExpiry)

	userJSON, err := f.durable.Get(storage.UserKey)
	require.NoError(t, err)
	var stored users.User
	require.NoError(t, json.Unmarshal([]byte(userJSON), &stored))
	require.Equal(t, newName, stored.Name)
}

func TestUpdateUserNoopWhenUnauthenticated(t *testing.T) {
	f := setupTestFixture(t)
	puts := f.durable.PutCalls

	newName := "Nome"
	f.store.UpdateUser(users.Update{Name: &newName})

	require.Nil(t, f.store.Snapshot().User)
	require.Equal(t, puts, f.durable.PutCalls)
}

func TestClearErrorReturnsToIdle(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.store.Login(context.Background(), "", "", 0)
	require.Error(t, err)
	require.Equal(t, session.StatusError, f.store.Snapshot().Status)

	f.store.ClearError()
	snapshot := f.store.Snapshot()
	require.Equal(t, session.StatusIdle, snapshot.Status)
	require.Empty(t, snapshot.Error)
}

func TestExternalTokenRemovalForcesLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.store.Start(ctx))
	defer f.store.Close()

	var transitions []session.Session
	var lock sync.Mutex
	unsubscribe := f.store.Subscribe(func(s session.Session) {
		lock.Lock()
		transitions = append(transitions, s)
		lock.Unlock()
	})
	defer unsubscribe()

	f.durable.ExternalRemove(storage.TokenKey)

	snapshot := f.store.Snapshot()
	require.False(t, snapshot.Authenticated())
	require.Zero(t, f.api.LogoutCalls, "external removal needs no backend call")

	lock.Lock()
	defer lock.Unlock()
	require.NotEmpty(t, transitions, "subscribers observe the forced logout")
	require.False(t, transitions[len(transitions)-1].Authenticated())
}

func TestExternalChangeToOtherKeysIgnored(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	require.NoError(t, f.store.Start(context.Background()))
	defer f.store.Close()

	f.durable.ExternalPut(storage.TokenKey, "rotated-token")
	f.durable.ExternalRemove(storage.UserKey)

	require.True(t, f.store.Snapshot().Authenticated(),
		"only removal of the token key forces a logout")
}

func TestExpiryWatcherLogsOutExpiredSession(t *testing.T) {
	f := setupTestFixture(t, session.WithExpiryCheckInterval(5*time.Millisecond))
	f.login(t)
	f.api.LogoutFn = func(string) error { return nil }

	require.NoError(t, f.store.Start(context.Background()))
	defer f.store.Close()

	f.clock.Advance(session.DefaultSessionTTL + time.Second)

	require.Eventually(t, func() bool {
		return !f.store.Snapshot().Authenticated()
	}, 2*time.Second, 5*time.Millisecond)
	require.Zero(t, f.durable.Len())
}

func TestStartTwiceFails(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Start(context.Background()))
	defer f.store.Close()
	require.Error(t, f.store.Start(context.Background()))
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := session.New(nil, storagefakes.NewFakeStore())
	require.Error(t, err)

	_, err = session.New(clientfakes.NewFakeAuthAPI(), nil)
	require.Error(t, err)
}

func TestLoginFailureWithPlainError(t *testing.T) {
	f := setupTestFixture(t)
	f.api.LoginFn = func(apiclient.Credentials) (*apiclient.LoginResult, error) {
		return nil, errors.New("boom")
	}

	_, err := f.store.Login(context.Background(), testUserCode, testPassword, testCompanyID)
	require.Error(t, err)

	snapshot := f.store.Snapshot()
	require.False(t, snapshot.Authenticated())
	require.NotEmpty(t, snapshot.Error, "non-API errors still produce a user-facing message")
}
