package access

import (
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-intranet-client/session"
)

// DefaultLoginRoute is where unauthenticated users are sent when no other
// fallback is configured.
const DefaultLoginRoute = "/login"

// Outcome is a Guard verdict: the decision plus the action the caller should
// take on denial. Redirect is set when the user should be sent elsewhere
// (typically to login); otherwise a denial is rendered in place using the
// structured data on Decision.
type Outcome struct {
	Decision Decision
	Redirect string
}

// Guard evaluates requirements against a session store and owns the denial
// side effects: a warning log and the choice between redirecting and
// rendering the denial.
type Guard struct {
	store         *session.Store
	log           zerolog.Logger
	fallbackRoute string
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithGuardLogger sets the logger used for denial warnings.
func WithGuardLogger(log zerolog.Logger) GuardOption {
	return func(g *Guard) {
		g.log = log
	}
}

// WithFallbackRoute overrides where unauthenticated users are redirected.
func WithFallbackRoute(route string) GuardOption {
	return func(g *Guard) {
		g.fallbackRoute = route
	}
}

// NewGuard creates a Guard over the given session store.
func NewGuard(store *session.Store, options ...GuardOption) *Guard {
	g := &Guard{
		store:         store,
		log:           zerolog.Nop(),
		fallbackRoute: DefaultLoginRoute,
	}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// Check evaluates the requirement against the store's current session.
func (g *Guard) Check(req Requirement) Outcome {
	decision := Evaluate(g.store.Snapshot(), req)

	switch decision.Kind {
	case DecisionAllow, DecisionPending:
		return Outcome{Decision: decision}
	case DecisionNotAuthenticated:
		g.log.Warn().Str("reason", decision.Message).Msg("access denied")
		return Outcome{Decision: decision, Redirect: g.fallbackRoute}
	default:
		g.log.Warn().
			Str("reason", decision.Message).
			Str("role", decision.ActualRole).
			Int("company", decision.ActualCompany).
			Msg("access denied")
		return Outcome{Decision: decision}
	}
}
