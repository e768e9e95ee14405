package session

// DecisionKind is the outcome of a route guard.
type DecisionKind int

const (
	Allow DecisionKind = iota
	RedirectLogin
	RedirectVerify
	RedirectSetup
	RedirectHome
)

// Decision tells the router what to do with a navigation. From carries the
// originally requested path on RedirectLogin.
type Decision struct {
	Kind DecisionKind
	Path string
	From string
}

// Guard evaluates routes against a Manager's state.
type Guard struct {
	sessions *Manager
}

// NewGuard constructs a Guard.
func NewGuard(sessions *Manager) *Guard {
	return &Guard{sessions: sessions}
}

// Protect admits authenticated users that are not waiting on a 2FA step.
func (g *Guard) Protect(path string) Decision {
	state := g.sessions.State()
	switch {
	case !state.Authenticated:
		return Decision{Kind: RedirectLogin, Path: PathLogin, From: path}
	case state.SetupRequired:
		if path == PathSetup2FA {
			return Decision{Kind: Allow, Path: path}
		}
		return Decision{Kind: RedirectSetup, Path: PathSetup2FA}
	case state.PendingVerification:
		target := VerifyPath(state.User.Method())
		if path == target {
			return Decision{Kind: Allow, Path: path}
		}
		return Decision{Kind: RedirectVerify, Path: target}
	default:
		return Decision{Kind: Allow, Path: path}
	}
}

// AdminOnly is Protect plus an admin role check; other roles go home.
func (g *Guard) AdminOnly(path string) Decision {
	decision := g.Protect(path)
	if decision.Kind != Allow {
		return decision
	}
	if user := g.sessions.State().User; user == nil || user.Role != RoleAdmin {
		return Decision{Kind: RedirectHome, Path: PathHome}
	}
	return decision
}
