package security

import (
	"net/url"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/teamhub/teamhub/internal/config"
	"github.com/teamhub/teamhub/internal/settings"
)

// Default WebAuthn relying party configuration.
const (
	// webAuthnRPName is the default relying party display name.
	webAuthnRPName = "Teamhub"
	// webAuthnOrigin is the default WebAuthn origin.
	webAuthnOrigin = "http://localhost:8080"
	// webAuthnTimeout matches the platform prompt timeout.
	webAuthnTimeout = 60 * time.Second
)

// NewWebAuthn builds the relying party from file config, with DB overrides taking precedence.
func NewWebAuthn(cfg config.WebAuthnConfig) (*webauthn.WebAuthn, error) {
	rpName := firstNonEmpty(settings.String(settings.WebAuthnRPNameKey), cfg.RPName, webAuthnRPName)

	origins := settings.Strings(settings.WebAuthnOriginsKey)
	if len(origins) == 0 {
		origins = normalizeOrigins(cfg.Origins)
	}
	if len(origins) == 0 {
		origins = []string{webAuthnOrigin}
	}

	rpID := firstNonEmpty(settings.String(settings.WebAuthnRPIDKey), strings.TrimSpace(cfg.RPID), deriveRPIDFromOrigins(origins))

	return webauthn.New(&webauthn.Config{
		RPID:          rpID,
		RPDisplayName: rpName,
		RPOrigins:     origins,
		Timeouts: webauthn.TimeoutsConfig{
			Login: webauthn.TimeoutConfig{
				Enforce:    true,
				Timeout:    webAuthnTimeout,
				TimeoutUVD: webAuthnTimeout,
			},
			Registration: webauthn.TimeoutConfig{
				Enforce:    true,
				Timeout:    webAuthnTimeout,
				TimeoutUVD: webAuthnTimeout,
			},
		},
	})
}

// OriginHost parses an origin string and returns its hostname.
func OriginHost(origin string) string {
	trimmed := strings.TrimSpace(origin)
	if trimmed == "" {
		return ""
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.TrimSpace(parsed.Hostname())
}

// deriveRPIDFromOrigins extracts an RP ID from the configured origins.
func deriveRPIDFromOrigins(origins []string) string {
	for _, origin := range origins {
		if host := OriginHost(origin); host != "" {
			return host
		}
	}
	return ""
}

func normalizeOrigins(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
