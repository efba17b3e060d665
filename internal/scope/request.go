package scope

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/access"
)

var ErrBadFilter = errors.New("invalid filter")

// KindFromRequest reads the {kind} route variable, falling back to the kind
// query parameter on routes without one.
func KindFromRequest(r *http.Request) (Kind, error) {
	if v, ok := mux.Vars(r)["kind"]; ok {
		return ParseKind(v)
	}
	return ParseKind(r.URL.Query().Get("kind"))
}

// SectionFromRequest maps the {kind} route variable to its permission section.
func SectionFromRequest(r *http.Request) (access.Section, bool) {
	k, err := KindFromRequest(r)
	if err != nil {
		return 0, false
	}
	return k.Section(), true
}

// HierarchyFromRequest builds the hierarchy of kind k from season_id and category_id.
func HierarchyFromRequest(r *http.Request, k Kind) (Hierarchy, error) {
	q := r.URL.Query()
	return New(k, q.Get("season_id"), q.Get("category_id"))
}

// FilterFromRequest parses include_deleted, player_id, from, to and limit.
func FilterFromRequest(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	var f Filter
	if v := q.Get("include_deleted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("%w: include_deleted", ErrBadFilter)
		}
		f.IncludeDeleted = b
	}
	f.PlayerID = q.Get("player_id")
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(DateLayout, v)
		if err != nil {
			return f, fmt.Errorf("%w: %s must be YYYY-MM-DD", ErrBadFilter, p.name)
		}
		*p.dst = t
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		return f, fmt.Errorf("%w: to is before from", ErrBadFilter)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("%w: limit", ErrBadFilter)
		}
		f.Limit = n
	}
	return f, nil
}

// QueryFromRequest combines the caller's organization with the request's
// hierarchy and filters.
func QueryFromRequest(r *http.Request, orgID string) (Query, error) {
	k, err := KindFromRequest(r)
	if err != nil {
		return Query{}, err
	}
	return QueryForKind(r, orgID, k)
}

// QueryForKind is QueryFromRequest with the tree fixed by the route.
func QueryForKind(r *http.Request, orgID string, k Kind) (Query, error) {
	h, err := HierarchyFromRequest(r, k)
	if err != nil {
		return Query{}, err
	}
	f, err := FilterFromRequest(r)
	if err != nil {
		return Query{}, err
	}
	return Query{OrganizationID: orgID, Hierarchy: h, Filter: f}, nil
}

// IsBadRequest reports whether err comes from a malformed scoping request
// rather than from the backend.
func IsBadRequest(err error) bool {
	for _, target := range []error{ErrBadFilter, ErrUnknownKind, ErrMissingHierarchy, ErrMissingOrganization, ErrUnsupportedFilter, ErrInvalidColumn} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
