package clientfakes

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-intranet-client/apiclient"
	"github.com/jrsteele09/go-intranet-client/session"
	"github.com/jrsteele09/go-intranet-client/users"
)

var _ session.AuthAPI = (*FakeAuthAPI)(nil)

// FakeAuthAPI is a stub session.AuthAPI for tests. Behaviour is supplied per
// operation via the *Fn fields; unset operations fail. Call counters let
// tests assert which network operations would have happened.
type FakeAuthAPI struct {
	lock sync.Mutex

	LoginFn  func(creds apiclient.Credentials) (*apiclient.LoginResult, error)
	VerifyFn func(token string) (*users.User, error)
	LogoutFn func(token string) error

	LoginCalls  int
	VerifyCalls int
	LogoutCalls int
}

func NewFakeAuthAPI() *FakeAuthAPI {
	return &FakeAuthAPI{}
}

func (f *FakeAuthAPI) Login(_ context.Context, creds apiclient.Credentials) (*apiclient.LoginResult, error) {
	f.lock.Lock()
	f.LoginCalls++
	fn := f.LoginFn
	f.lock.Unlock()
	if fn == nil {
		return nil, errors.New("FakeAuthAPI: LoginFn not set")
	}
	return fn(creds)
}

func (f *FakeAuthAPI) Verify(_ context.Context, token string) (*users.User, error) {
	f.lock.Lock()
	f.VerifyCalls++
	fn := f.VerifyFn
	f.lock.Unlock()
	if fn == nil {
		return nil, errors.New("FakeAuthAPI: VerifyFn not set")
	}
	return fn(token)
}

func (f *FakeAuthAPI) Logout(_ context.Context, token string) error {
	f.lock.Lock()
	f.LogoutCalls++
	fn := f.LogoutFn
	f.lock.Unlock()
	if fn == nil {
		return errors.New("FakeAuthAPI: LogoutFn not set")
	}
	return fn(token)
}
