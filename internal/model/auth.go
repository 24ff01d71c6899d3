package model

import "strings"

// AuthSignal is the authentication state the realtime layer reacts to. It
// is owned by the auth subsystem; this package only reads it.
type AuthSignal struct {
	// Token is the session token, or empty when logged out.
	Token string

	// Preferences is the user's realtime preference map, keyed by
	// sub-preference name (e.g. "notifications", "boards"). Realtime is
	// enabled when any entry is true, and defaults to enabled when the
	// map is empty.
	Preferences map[string]bool

	// Elevated reports whether the current user may hold the
	// system/administrative namespace.
	Elevated bool
}

// RealtimeEnabled derives the realtime-enabled flag from the preference
// map: enabled if any sub-preference is truthy, defaulting to enabled when
// nothing is set.
func (s AuthSignal) RealtimeEnabled() bool {
	if len(s.Preferences) == 0 {
		return true
	}
	for _, enabled := range s.Preferences {
		if enabled {
			return true
		}
	}
	return false
}

// Valid reports whether the signal should result in live connections:
// a structurally well-formed token with realtime enabled.
func (s AuthSignal) Valid() bool {
	return TokenWellFormed(s.Token) && s.RealtimeEnabled()
}

// Equal reports whether two signals would drive the same connection
// decisions. Preference maps are compared only through the derived flag.
func (s AuthSignal) Equal(other AuthSignal) bool {
	return s.Token == other.Token &&
		s.RealtimeEnabled() == other.RealtimeEnabled() &&
		s.Elevated == other.Elevated
}

// TokenWellFormed checks that a token is structurally well-formed: three
// non-empty dot-separated segments. Malformed tokens never reach the
// network layer.
func TokenWellFormed(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}
