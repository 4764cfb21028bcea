package authz

import (
	"errors"
	"fmt"
	"net/http"
)

// Reason classifies why a guard denied a request. Every reason is an
// expected outcome surfaced as a value; infrastructure faults travel as
// plain errors so a store outage never masquerades as an access decision.
type Reason string

const (
	ReasonUnauthenticated  Reason = "unauthenticated"
	ReasonEmailNotVerified Reason = "email_not_verified"
	ReasonAccountSuspended Reason = "account_suspended"
	ReasonAccountDeleted   Reason = "account_deleted"
	ReasonForbidden        Reason = "forbidden"
)

// Denial is the tagged failure branch of a guard decision.
type Denial struct {
	Reason Reason
}

// Grant is the success branch: a fully populated profile plus the session
// metadata it was resolved from.
type Grant struct {
	Profile Profile
	Session Session
}

// Guard runs the unified decision sequence for both the page and the API
// entry points. The transport-specific effect (redirect vs structured
// error) is issued by the calling layer, not here.
type Guard struct {
	sessions SessionResolver
	builder  *Builder
}

// NewGuard constructs a Guard.
func NewGuard(sessions SessionResolver, builder *Builder) (*Guard, error) {
	if sessions == nil {
		return nil, errors.New("authz: session resolver is required")
	}
	if builder == nil {
		return nil, errors.New("authz: profile builder is required")
	}
	return &Guard{sessions: sessions, builder: builder}, nil
}

// Authorize resolves the session, builds the profile, applies the status
// gate and evaluates the policy, in that order. Exactly one of the three
// returns is meaningful: a Grant on success, a Denial on an expected policy
// failure, or an error when the session resolver or grant store failed.
// An anonymous request never reaches the grant store.
func (g *Guard) Authorize(r *http.Request, policy Policy) (Grant, *Denial, error) {
	sess, err := g.sessions.Resolve(r)
	if err != nil {
		return Grant{}, nil, fmt.Errorf("resolve session: %w", err)
	}
	if sess == nil {
		return Grant{}, &Denial{Reason: ReasonUnauthenticated}, nil
	}

	profile, err := g.builder.Build(r.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The account vanished between session issuance and now; treat
			// it the same as not being logged in.
			return Grant{}, &Denial{Reason: ReasonUnauthenticated}, nil
		}
		return Grant{}, nil, err
	}

	if denial := statusGate(profile, policy); denial != nil {
		return Grant{}, denial, nil
	}
	if !Can(profile, policy) {
		return Grant{}, &Denial{Reason: ReasonForbidden}, nil
	}
	return Grant{Profile: profile, Session: *sess}, nil, nil
}

// statusGate applies the account-state checks the policy requested. Order is
// fixed: email verification, then suspension, then deletion.
func statusGate(p Profile, policy Policy) *Denial {
	if policy.RequireVerifiedEmail && !p.EmailVerified {
		return &Denial{Reason: ReasonEmailNotVerified}
	}
	if policy.BlockSuspended && p.Status == StatusSuspended {
		return &Denial{Reason: ReasonAccountSuspended}
	}
	if policy.BlockDeleted && p.Status == StatusDeleted {
		return &Denial{Reason: ReasonAccountDeleted}
	}
	return nil
}
