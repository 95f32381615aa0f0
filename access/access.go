// Package access decides whether the current session may enter a protected
// area. Evaluate is a pure function over a session snapshot and a declarative
// requirement; the side effects of a denial (logging, redirecting) belong to
// Guard, keeping the decision itself trivially testable.
package access

import (
	"fmt"
	"strings"

	"github.com/jrsteele09/go-intranet-client/session"
	"github.com/jrsteele09/go-intranet-client/users"
)

// Requirement is a caller-constructed description of who may pass. An empty
// requirement admits any authenticated user.
type Requirement struct {
	// Roles the user's role may match, case-insensitively.
	Roles []string

	// RequireAll demands the user's role equal every entry in Roles rather
	// than any one of them. A user carries a single role, so this can only
	// succeed when all entries name the same role; it is kept for
	// compatibility with existing guards and is effectively unused.
	RequireAll bool

	// Companies the user's company must belong to. Empty means any company.
	Companies []int

	// Check is an arbitrary extra predicate over the user. It returns
	// whether the user is allowed and, when not, an optional message.
	Check func(u *users.User) (allowed bool, message string)
}

// Empty reports whether the requirement imposes no constraints beyond
// authentication.
func (r Requirement) Empty() bool {
	return len(r.Roles) == 0 && len(r.Companies) == 0 && r.Check == nil
}

// DecisionKind enumerates evaluation outcomes.
type DecisionKind string

const (
	// DecisionPending: the session store has not finished initializing;
	// callers must wait, not deny.
	DecisionPending DecisionKind = "pending"
	DecisionAllow   DecisionKind = "allow"
	// DecisionNotAuthenticated: there is no live session.
	DecisionNotAuthenticated DecisionKind = "not_authenticated"
	DecisionRoleDenied       DecisionKind = "role_denied"
	DecisionCompanyDenied    DecisionKind = "company_denied"
	DecisionCustomDenied     DecisionKind = "custom_denied"
)

// Decision is the evaluation result. Denials carry the structured data an
// access-denied view needs (what was required versus what the user has).
type Decision struct {
	Kind    DecisionKind
	Message string

	RequiredRoles    []string
	ActualRole       string
	AllowedCompanies []int
	ActualCompany    int
}

// Allowed reports whether the decision admits the user.
func (d Decision) Allowed() bool {
	return d.Kind == DecisionAllow
}

// Evaluate decides whether the session satisfies the requirement. Checks run
// in a fixed order (authentication, role, company, custom) and short-circuit,
// so at most one denial reason is ever produced.
func Evaluate(s session.Session, req Requirement) Decision {
	if !s.Initialized {
		return Decision{Kind: DecisionPending, Message: "Verificando sessão..."}
	}
	if !s.Authenticated() {
		return Decision{
			Kind:    DecisionNotAuthenticated,
			Message: "Sessão expirada ou usuário não autenticado",
		}
	}
	user := s.User

	if len(req.Roles) > 0 && !roleMatches(user, req.Roles, req.RequireAll) {
		return Decision{
			Kind:          DecisionRoleDenied,
			Message:       fmt.Sprintf("Acesso restrito aos perfis: %s", strings.Join(req.Roles, ", ")),
			RequiredRoles: req.Roles,
			ActualRole:    user.Role,
		}
	}

	if len(req.Companies) > 0 && !companyAllowed(user.CompanyID, req.Companies) {
		return Decision{
			Kind:             DecisionCompanyDenied,
			Message:          "Acesso não permitido para esta empresa",
			AllowedCompanies: req.Companies,
			ActualCompany:    user.CompanyID,
		}
	}

	if req.Check != nil {
		if allowed, message := req.Check(user); !allowed {
			if message == "" {
				message = "Acesso negado"
			}
			return Decision{Kind: DecisionCustomDenied, Message: message}
		}
	}

	return Decision{Kind: DecisionAllow}
}

func roleMatches(user *users.User, roles []string, requireAll bool) bool {
	if requireAll {
		for _, role := range roles {
			if !user.HasRole(role) {
				return false
			}
		}
		return true
	}
	return user.HasAnyRole(roles...)
}

func companyAllowed(companyID int, allowed []int) bool {
	for _, id := range allowed {
		if id == companyID {
			return true
		}
	}
	return false
}
