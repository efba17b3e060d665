package gate

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/permission"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

// Loader resolves a user's permissions.
type Loader interface {
	Load(ctx context.Context, userID int64) permission.Snapshot
}

// SectionFunc picks the section a request belongs to. false means no such route.
type SectionFunc func(r *http.Request) (access.Section, bool)

// Fixed always selects sec.
func Fixed(sec access.Section) SectionFunc {
	return func(*http.Request) (access.Section, bool) { return sec, true }
}

type Gate struct {
	perms       Loader
	loadTimeout time.Duration
	logger      *zap.SugaredLogger
	decisions   *prometheus.CounterVec
}

// New builds a Gate. reg may be nil to skip metric registration.
func New(perms Loader, logger *zap.SugaredLogger, reg prometheus.Registerer) *Gate {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Gate{
		perms:       perms,
		loadTimeout: 2 * time.Second,
		logger:      logger,
		decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "club_gate_decisions_total",
			Help: "Route gate outcomes by section and decision.",
		}, []string{"section", "decision"}),
	}
}

type snapshotKey struct{}

// WithSnapshot stores the permissions a request was admitted with.
func WithSnapshot(ctx context.Context, snap permission.Snapshot) context.Context {
	return context.WithValue(ctx, snapshotKey{}, snap)
}

// SnapshotFrom returns the permissions the gate admitted the request with.
func SnapshotFrom(ctx context.Context) (permission.Snapshot, bool) {
	s, ok := ctx.Value(snapshotKey{}).(permission.Snapshot)
	return s, ok
}

// load resolves the identity's permissions. A session whose organization
// differs from the user row is stale and gets no access.
func (g *Gate) load(ctx context.Context, id *auth.Identity) permission.Snapshot {
	ctx, cancel := context.WithTimeout(ctx, g.loadTimeout)
	defer cancel()
	snap := g.perms.Load(ctx, id.UserID)
	if !snap.IsLoading() && snap.Permissions.OrganizationID != id.OrganizationID {
		return permission.Resolved(permission.UserPermissions{UserID: id.UserID})
	}
	return snap
}

func (g *Gate) evaluate(r *http.Request, sec access.Section, need access.Level) (Decision, permission.Snapshot) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		return Decide(false, permission.Snapshot{}, sec, need), permission.Snapshot{}
	}
	snap := g.load(r.Context(), id)
	d := Decide(true, snap, sec, need)
	g.decisions.WithLabelValues(sec.Key(), d.Kind.String()).Inc()
	if d.Kind != Allow {
		g.logger.Debugw("gate decision", "section", sec.Key(), "decision", d.Kind.String(), "user_id", id.UserID, "path", r.URL.Path)
	}
	return d, snap
}

// Page gates a browser page: denials become 302 redirects.
func (g *Gate) Page(sec access.Section) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, snap := g.evaluate(r, sec, access.Viewer)
			switch d.Kind {
			case Allow:
				next.ServeHTTP(w, r.WithContext(WithSnapshot(r.Context(), snap)))
			case Pending:
				writePending(w)
			default:
				http.Redirect(w, r, d.Location, http.StatusFound)
			}
		})
	}
}

// API gates a JSON endpoint of a fixed section. The required level follows the method.
func (g *Gate) API(sec access.Section) func(http.Handler) http.Handler {
	return g.APIBy(Fixed(sec))
}

// APIBy gates a JSON endpoint whose section depends on the request.
func (g *Gate) APIBy(pick SectionFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sec, ok := pick(r)
			if !ok {
				utilities.WriteError(w, http.StatusNotFound, "not found")
				return
			}
			d, snap := g.evaluate(r, sec, NeedFor(r.Method))
			switch d.Kind {
			case Allow:
				next.ServeHTTP(w, r.WithContext(WithSnapshot(r.Context(), snap)))
			case RedirectLogin:
				utilities.WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required", "redirect": d.Location})
			case Pending:
				writePending(w)
			case Redirect:
				utilities.WriteJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden", "redirect": d.Location})
			case ReadOnly:
				utilities.WriteError(w, http.StatusForbidden, "read-only access")
			}
		})
	}
}

func writePending(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "1")
	utilities.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
}

// Home redirects a signed-in user to the first section they can view.
func (g *Gate) Home(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		http.Redirect(w, r, access.LoginPath, http.StatusFound)
		return
	}
	snap := g.load(r.Context(), id)
	if snap.IsLoading() {
		writePending(w)
		return
	}
	http.Redirect(w, r, snap.Landing(), http.StatusFound)
}

// PageInfo answers an admitted page request with its section metadata.
func PageInfo(sec access.Section) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, _ := SnapshotFrom(r.Context())
		utilities.WriteJSON(w, http.StatusOK, map[string]any{
			"section":  sec.Key(),
			"label":    sec.Label(),
			"can_edit": snap.CanEdit(sec),
		})
	}
}

// NoAccess is the neutral fallback page for users without any viewable section.
func NoAccess(w http.ResponseWriter, r *http.Request) {
	utilities.WriteJSON(w, http.StatusOK, map[string]string{
		"section": "none",
		"message": "your account has no access to any section; contact a staff administrator",
	})
}
