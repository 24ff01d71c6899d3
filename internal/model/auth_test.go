package model

import "testing"

func TestTokenWellFormed(t *testing.T) {
	cases := []struct {
		token string
		want  bool
	}{
		{"header.payload.signature", true},
		{"a.b.c", true},
		{"", false},
		{"nodots", false},
		{"two.parts", false},
		{"a.b.c.d", false},
		{"a..c", false},
		{".b.c", false},
		{"a.b.", false},
	}
	for _, tc := range cases {
		if got := TokenWellFormed(tc.token); got != tc.want {
			t.Errorf("TokenWellFormed(%q) = %v, want %v", tc.token, got, tc.want)
		}
	}
}

func TestRealtimeEnabledDefaultsOn(t *testing.T) {
	if !(AuthSignal{}).RealtimeEnabled() {
		t.Error("empty preference map should default to enabled")
	}
	on := AuthSignal{Preferences: map[string]bool{"boards": false, "chat": true}}
	if !on.RealtimeEnabled() {
		t.Error("any true sub-preference should enable realtime")
	}
	off := AuthSignal{Preferences: map[string]bool{"boards": false, "chat": false}}
	if off.RealtimeEnabled() {
		t.Error("all-false preference map should disable realtime")
	}
}

func TestSignalEqualComparesDerivedFlag(t *testing.T) {
	a := AuthSignal{Token: "a.b.c"}
	b := AuthSignal{Token: "a.b.c", Preferences: map[string]bool{"boards": true}}
	if !a.Equal(b) {
		t.Error("signals with the same derived flag should be equal")
	}

	c := AuthSignal{Token: "a.b.c", Preferences: map[string]bool{"boards": false}}
	if a.Equal(c) {
		t.Error("disabling realtime should change equality")
	}

	d := AuthSignal{Token: "a.b.c", Elevated: true}
	if a.Equal(d) {
		t.Error("elevation should change equality")
	}
}

func TestSignalValid(t *testing.T) {
	if !(AuthSignal{Token: "a.b.c"}).Valid() {
		t.Error("well-formed token with default preferences should be valid")
	}
	if (AuthSignal{Token: "bad"}).Valid() {
		t.Error("malformed token should never be valid")
	}
	off := AuthSignal{Token: "a.b.c", Preferences: map[string]bool{"boards": false}}
	if off.Valid() {
		t.Error("realtime-disabled signal should not be valid")
	}
}
