package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/coach"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/gate"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/match"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/medical"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/physical"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/player"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/season"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/user"
)

const apiPrefix = "/club-api"

// Deps is everything the route table mounts.
type Deps struct {
	Logger     *zap.SugaredLogger
	Registry   *prometheus.Registry
	Sessions   *auth.Service
	CookieName string
	Gate       *gate.Gate
	Auth       *auth.Handler
	Users      *user.Handler
	Seasons    *season.Handler
	Players    *player.Handler
	Coaches    *coach.Handler
	Matches    *match.Handler
	Medical    *medical.Handler
	Physical   *physical.Handler
}

type pageRoute struct {
	path string
	sec  access.Section
}

// New builds the HTTP handler: request id, security headers and logging wrap
// a mux whose routes are authenticated, metered and gated per section.
func New(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	var reg prometheus.Registerer
	gatherer := prometheus.DefaultGatherer
	if d.Registry != nil {
		reg, gatherer = d.Registry, d.Registry
	}
	metrics := newHTTPMetrics(reg)

	r := mux.NewRouter()
	r.Use(metrics.middleware)
	r.Use(auth.Authenticate(d.Sessions, d.CookieName, d.Logger))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	r.HandleFunc(apiPrefix+"/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// auth
	r.HandleFunc(apiPrefix+"/auth/sign-in", d.Auth.SignIn).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/auth/sign-out", d.Auth.SignOut).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/auth/session", d.Auth.Session).Methods(http.MethodGet)

	// pages
	for _, p := range []pageRoute{
		{"/dashboard", access.Football},
		{"/dashboard/senior", access.SeniorFootball},
		{"/dashboard/medical", access.MedicalPlayers},
		{"/dashboard/medical-staff", access.MedicalStaff},
		{"/dashboard/physical", access.Physical},
		{"/dashboard/youth-records", access.YouthRecords},
		{"/dashboard/staff", access.Staff},
	} {
		r.Handle(p.path, d.Gate.Page(p.sec)(gate.PageInfo(p.sec))).Methods(http.MethodGet)
	}
	r.HandleFunc("/dashboard/home", d.Gate.Home).Methods(http.MethodGet)
	r.HandleFunc(access.FallbackPath, gate.NoAccess).Methods(http.MethodGet)

	api := r.PathPrefix(apiPrefix).Subrouter()
	mountFootball(api, d)
	mountSections(api, d)
	return RequestIDMiddleware()(SecurityHeadersMiddleware()(LoggingMiddleware(d.Logger)(r)))
}

// mountFootball registers the routes shared by both trees. {kind} picks the
// tree and therefore the section.
func mountFootball(api *mux.Router, d Deps) {
	fb := api.PathPrefix("/{kind:youth|senior}").Subrouter()
	fb.Use(d.Gate.APIBy(scope.SectionFromRequest))

	fb.HandleFunc("/seasons", d.Seasons.Seasons).Methods(http.MethodGet)
	fb.HandleFunc("/seasons", d.Seasons.CreateSeason).Methods(http.MethodPost)
	fb.HandleFunc("/seasons/{season_id}/categories", d.Seasons.Categories).Methods(http.MethodGet)
	fb.HandleFunc("/seasons/{season_id}/categories", d.Seasons.CreateCategory).Methods(http.MethodPost)

	fb.HandleFunc("/players", d.Players.List).Methods(http.MethodGet)
	fb.HandleFunc("/players", d.Players.Create).Methods(http.MethodPost)
	fb.HandleFunc("/players/{id}", d.Players.Update).Methods(http.MethodPut)
	fb.HandleFunc("/players/{id}", d.Players.Delete).Methods(http.MethodDelete)
	fb.HandleFunc("/players/{id}/restore", d.Players.Restore).Methods(http.MethodPost)
	fb.HandleFunc("/players/{id}/photo", d.Players.UploadPhoto).Methods(http.MethodPost)

	fb.HandleFunc("/coaches", d.Coaches.List).Methods(http.MethodGet)
	fb.HandleFunc("/coaches", d.Coaches.Create).Methods(http.MethodPost)
	fb.HandleFunc("/coaches/{id}", d.Coaches.Delete).Methods(http.MethodDelete)

	// summary routes before /matches/{id} so "summary" is not taken for an id
	fb.HandleFunc("/matches/summary", d.Matches.Summary).Methods(http.MethodGet)
	fb.HandleFunc("/matches/summary/export", d.Matches.ExportSummary).Methods(http.MethodGet)
	fb.HandleFunc("/matches", d.Matches.List).Methods(http.MethodGet)
	fb.HandleFunc("/matches", d.Matches.Create).Methods(http.MethodPost)
	fb.HandleFunc("/matches/{id}", d.Matches.Delete).Methods(http.MethodDelete)
	fb.HandleFunc("/matches/{id}/stats", d.Matches.Stats).Methods(http.MethodGet)
	fb.HandleFunc("/matches/{id}/stats", d.Matches.SaveStats).Methods(http.MethodPut)
	fb.HandleFunc("/matches/{id}/video", d.Matches.UploadVideo).Methods(http.MethodPost)

	fb.HandleFunc("/overview", d.Matches.Overview).Methods(http.MethodGet)
}

func mountSections(api *mux.Router, d Deps) {
	yr := api.PathPrefix("/youth-records").Subrouter()
	yr.Use(d.Gate.API(access.YouthRecords))
	yr.HandleFunc("/summary", d.Matches.YouthRecords).Methods(http.MethodGet)
	yr.HandleFunc("/summary/export", d.Matches.ExportYouthRecords).Methods(http.MethodGet)

	med := api.PathPrefix("/medical/{subject}").Subrouter()
	med.Use(d.Gate.APIBy(medical.SectionFromRequest))
	med.HandleFunc("/records", d.Medical.List).Methods(http.MethodGet)
	med.HandleFunc("/records", d.Medical.Create).Methods(http.MethodPost)
	med.HandleFunc("/records/{id}", d.Medical.Update).Methods(http.MethodPut)
	med.HandleFunc("/records/{id}", d.Medical.Delete).Methods(http.MethodDelete)
	med.HandleFunc("/records/{id}/document", d.Medical.UploadDocument).Methods(http.MethodPost)
	med.HandleFunc("/summary", d.Medical.Summary).Methods(http.MethodGet)

	ph := api.PathPrefix("/physical").Subrouter()
	ph.Use(d.Gate.API(access.Physical))
	ph.HandleFunc("/datasets", d.Physical.List).Methods(http.MethodGet)
	ph.HandleFunc("/datasets", d.Physical.Create).Methods(http.MethodPost)
	ph.HandleFunc("/datasets/{id}", d.Physical.Delete).Methods(http.MethodDelete)
	ph.HandleFunc("/summary", d.Physical.Summary).Methods(http.MethodGet)
	ph.HandleFunc("/summary/export", d.Physical.ExportSummary).Methods(http.MethodGet)

	st := api.PathPrefix("/staff").Subrouter()
	st.Use(d.Gate.API(access.Staff))
	st.HandleFunc("/users", d.Users.List).Methods(http.MethodGet)
	st.HandleFunc("/users", d.Users.Create).Methods(http.MethodPost)
	st.HandleFunc("/users/{id}/permissions", d.Users.SetPermissions).Methods(http.MethodPut)

	fn := api.PathPrefix("/functions").Subrouter()
	fn.Use(d.Gate.API(access.Staff))
	fn.HandleFunc("/delete-user", d.Users.DeleteUserFunction).Methods(http.MethodPost)
	fn.HandleFunc("/update-user", d.Users.UpdateUserFunction).Methods(http.MethodPost)
}
