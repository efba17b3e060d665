// Package permission resolves a signed-in user's per-section access levels.
//
// Resolution fails closed: a fetch error, a missing user row or a disabled
// account all yield a permission set that denies every section. Callers
// receive a Snapshot that is either loading or resolved and must not make
// access decisions while it is loading.
package permission

import "github.com/ovaphlow/pitchfork/service-club-go/internal/access"

// UserPermissions is the resolved access of one user.
type UserPermissions struct {
	UserID         int64
	OrganizationID string
	Levels         access.Levels
}

// CanView is true iff the section's level is viewer or editor.
func (p UserPermissions) CanView(s access.Section) bool { return p.Levels.Get(s).CanView() }

// CanEdit is true iff the section's level is editor.
func (p UserPermissions) CanEdit(s access.Section) bool { return p.Levels.Get(s).CanEdit() }

// FirstAccessibleSection scans the registry in priority order and returns the
// path of the first viewable section.
func (p UserPermissions) FirstAccessibleSection() (string, bool) {
	for _, s := range access.Sections() {
		if p.CanView(s) {
			return s.Path(), true
		}
	}
	return "", false
}

// Status of a Snapshot.
type Status uint8

const (
	StatusLoading Status = iota
	StatusResolved
)

func (s Status) String() string {
	if s == StatusResolved {
		return "resolved"
	}
	return "loading"
}

// Snapshot is what consumers read. A loading snapshot grants nothing.
type Snapshot struct {
	Status      Status
	Permissions UserPermissions
}

// Loading returns the snapshot for a load that has not completed.
func Loading(userID int64) Snapshot {
	return Snapshot{Status: StatusLoading, Permissions: UserPermissions{UserID: userID}}
}

// Resolved wraps p.
func Resolved(p UserPermissions) Snapshot {
	return Snapshot{Status: StatusResolved, Permissions: p}
}

func (s Snapshot) IsLoading() bool { return s.Status != StatusResolved }

func (s Snapshot) CanView(sec access.Section) bool {
	return !s.IsLoading() && s.Permissions.CanView(sec)
}

func (s Snapshot) CanEdit(sec access.Section) bool {
	return !s.IsLoading() && s.Permissions.CanEdit(sec)
}

func (s Snapshot) FirstAccessibleSection() (string, bool) {
	if s.IsLoading() {
		return "", false
	}
	return s.Permissions.FirstAccessibleSection()
}

// Landing is the first accessible path or the neutral fallback.
func (s Snapshot) Landing() string {
	if p, ok := s.FirstAccessibleSection(); ok {
		return p
	}
	return access.FallbackPath
}
