package model

import "time"

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

// Now is the default Clock: UTC, truncated to whole seconds so stored values compare cleanly
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// StrPtr returns a pointer to s, or nil for an empty string
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StrVal safely dereferences p
func StrVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// SameDay reports whether a and b fall on the same UTC calendar day
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
