package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/loomhr/auth/internal/auth/service"
	"github.com/loomhr/auth/internal/auth/store"
	"github.com/loomhr/auth/pkg/httpx"
	"github.com/loomhr/auth/pkg/jwtx"
	"github.com/loomhr/auth/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store             store.Store
	LoginService      *service.LoginService
	EnrollmentService *service.EnrollmentService
	DeviceService     *service.DeviceService
	AuditService      *service.AuditService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerLogin()
	r.registerPasswordReset()
	r.registerMFA()
	r.registerDevices()
	r.registerAudit()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerLogin() {
	h := &LoginHandler{LoginService: r.LoginService}

	// Credential submission endpoints get the strict limit to slow down
	// brute force. Keyed by IP; identity is not known yet.
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/login/mfa",
		httpx.Chain(http.HandlerFunc(h.HandleChallenge),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/login/otp/request",
		httpx.Chain(http.HandlerFunc(h.HandleOTPRequest),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/login/otp",
		httpx.Chain(http.HandlerFunc(h.HandleOTPLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerPasswordReset() {
	h := &ResetHandler{LoginService: r.LoginService}

	r.Mux.Handle("POST /v1/password-reset/request",
		httpx.Chain(http.HandlerFunc(h.HandleRequest),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/password-reset",
		httpx.Chain(http.HandlerFunc(h.HandleComplete),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{EnrollmentService: r.EnrollmentService}

	securedEnroll := httpx.Chain(http.HandlerFunc(h.HandleEnroll),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByIdentity(httpx.ModerateLimit),
	)

	// Strict limit on verification to slow down code guessing.
	securedVerify := httpx.Chain(http.HandlerFunc(h.HandleVerify),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByIdentity(httpx.StrictLimit),
	)

	securedDisable := httpx.Chain(http.HandlerFunc(h.HandleDisable),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByIdentity(httpx.StrictLimit),
	)

	r.Mux.Handle("POST /v1/mfa/enroll", securedEnroll)
	r.Mux.Handle("POST /v1/mfa/verify", securedVerify)
	r.Mux.Handle("DELETE /v1/mfa", securedDisable)
}

func (r *Router) registerDevices() {
	h := &DevicesHandler{DeviceService: r.DeviceService}

	securedList := httpx.Chain(http.HandlerFunc(h.HandleList),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByIdentity(httpx.LenientLimit),
	)
	securedRevoke := httpx.Chain(http.HandlerFunc(h.HandleRevoke),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByIdentity(httpx.ModerateLimit),
	)

	r.Mux.Handle("GET /v1/devices", securedList)
	r.Mux.Handle("DELETE /v1/devices/{id}", securedRevoke)
}

func (r *Router) registerAudit() {
	h := &AuditHandler{AuditService: r.AuditService}

	securedSessions := httpx.Chain(http.HandlerFunc(h.HandleSessions),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByIdentity(httpx.LenientLimit),
	)
	securedHistory := httpx.Chain(http.HandlerFunc(h.HandleHistory),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByIdentity(httpx.LenientLimit),
	)

	r.Mux.Handle("GET /v1/sessions", securedSessions)
	r.Mux.Handle("GET /v1/login-history", securedHistory)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
