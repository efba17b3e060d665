// Package gate decides whether a request may reach a protected page or API.
//
// Decide is the pure state machine; Gate wraps it as HTTP middleware for
// pages (browser redirects) and for JSON endpoints.
package gate

import (
	"github.com/ovaphlow/pitchfork/service-club-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/permission"
)

// Kind is the outcome of a gate evaluation.
type Kind uint8

const (
	Allow Kind = iota
	// RedirectLogin: no authenticated session.
	RedirectLogin
	// Pending: permissions are still loading; no access decision is made.
	Pending
	// Redirect: the section is not viewable; Location is where the user belongs.
	Redirect
	// ReadOnly: the section is viewable but the request needs editor access.
	ReadOnly
)

func (k Kind) String() string {
	switch k {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "login"
	case Pending:
		return "pending"
	case Redirect:
		return "redirect"
	case ReadOnly:
		return "read_only"
	}
	return "unknown"
}

type Decision struct {
	Kind     Kind
	Location string
}

// Decide evaluates one request against the permission snapshot.
func Decide(authenticated bool, snap permission.Snapshot, sec access.Section, need access.Level) Decision {
	if !authenticated {
		return Decision{Kind: RedirectLogin, Location: access.LoginPath}
	}
	if snap.IsLoading() {
		return Decision{Kind: Pending}
	}
	if !snap.CanView(sec) {
		return Decision{Kind: Redirect, Location: snap.Landing()}
	}
	if need == access.Editor && !snap.CanEdit(sec) {
		return Decision{Kind: ReadOnly}
	}
	return Decision{Kind: Allow}
}

// NeedFor maps an HTTP method to the access it requires: safe methods read,
// everything else writes.
func NeedFor(method string) access.Level {
	switch method {
	case "GET", "HEAD", "OPTIONS":
		return access.Viewer
	}
	return access.Editor
}
