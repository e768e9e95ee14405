package settings

// DB-backed override keys.
const (
	// WebAuthnRPIDKey overrides the relying party ID.
	WebAuthnRPIDKey = "WEB_AUTHN_RPID"
	// WebAuthnRPNameKey overrides the relying party display name.
	WebAuthnRPNameKey = "WEB_AUTHN_RP_NAME"
	// WebAuthnOriginsKey overrides the allowed origins (JSON array or string).
	WebAuthnOriginsKey = "WEB_AUTHN_ORIGINS"
	// AutoCreateTeamKey toggles creating unknown teams during signup.
	AutoCreateTeamKey = "SIGNUP_AUTO_CREATE_TEAM"
)
