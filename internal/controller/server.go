// Package controller contains the controller-specific logic for the HTTP API.
package controller

import (
	"context"
	"net/http"
	"time"

	"sponte/internal/controller/handlers"
	"sponte/internal/controller/middleware"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Options configure the server beyond its handlers.
type Options struct {
	SystemSecret   string
	RateLimit      float64
	RateLimitBurst int
	// CORSOrigins may call the API from a browser.
	CORSOrigins []string
	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler
	// WriteTimeout must cover a synchronous generation call.
	WriteTimeout time.Duration
}

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// NewHandler builds the routed, instrumented handler.
func NewHandler(h *handlers.Handlers, users middleware.UserLookup, opts Options) http.Handler {
	authMW := middleware.AuthMiddleware(users)
	rateMW := middleware.NewRateLimiter(middleware.WithLimit(opts.RateLimit, opts.RateLimitBurst)).Middleware()
	internalMW := middleware.RequireInternalAuth(opts.SystemSecret)

	authed := func(fn http.HandlerFunc) http.Handler {
		return authMW(rateMW(fn))
	}

	mux := http.NewServeMux()

	// Probes
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	// Google redirects the browser here, so it cannot carry an API key.
	mux.HandleFunc("GET /oauth/google/callback", h.GoogleCallback)

	// Onboarding
	mux.Handle("POST /onboarding/location", authed(h.CreateDraftLocation))
	mux.Handle("POST /onboarding/submit", authed(h.SubmitOnboarding))

	// Locations and agent settings
	mux.Handle("GET /locations/me", authed(h.GetMyLocation))
	mux.Handle("GET /locations/{id}", authed(h.GetLocation))
	mux.Handle("PATCH /locations/{id}/gbp-location", authed(h.UpdateGBPLocation))
	mux.Handle("PATCH /locations/{id}/settings", authed(h.UpdateSettings))
	mux.Handle("GET /locations/{id}/agents", authed(h.ListAgentConfigs))
	mux.Handle("PATCH /locations/{id}/agents/{agent}", authed(h.UpdateAgentConfig))
	mux.Handle("GET /locations/{id}/agents/{agent}/due", authed(h.IsDue))

	// Tasks
	mux.Handle("POST /tasks", authed(h.CreateTask))
	mux.Handle("GET /tasks/{id}", authed(h.GetTask))
	mux.Handle("POST /tasks/{id}/process", authed(h.ProcessTask))
	mux.Handle("GET /locations/{id}/tasks", authed(h.ListTasks))
	mux.Handle("POST /agents/{agent}/generate", authed(h.Generate))

	// Outputs
	mux.Handle("GET /locations/{id}/outputs", authed(h.ListOutputs))
	mux.Handle("GET /locations/{id}/drafts", authed(h.ListDrafts))
	mux.Handle("GET /outputs/{id}", authed(h.GetOutput))
	mux.Handle("PATCH /outputs/{id}", authed(h.EditOutput))
	mux.Handle("POST /outputs/{id}/approve", authed(h.ApproveOutput))
	mux.Handle("POST /outputs/{id}/reject", authed(h.RejectOutput))
	mux.Handle("POST /outputs/{id}/post", authed(h.PostOutput))

	// Reports
	mux.Handle("POST /reports", authed(h.CreateReport))
	mux.Handle("GET /reports/{id}", authed(h.GetReport))
	mux.Handle("GET /locations/{id}/reports", authed(h.ListReports))
	mux.Handle("GET /locations/{id}/reports/latest", authed(h.LatestReport))

	// Google connection
	mux.Handle("GET /oauth/google/connect", authed(h.ConnectGoogle))
	mux.Handle("POST /oauth/google/disconnect/{id}", authed(h.DisconnectGoogle))
	mux.Handle("GET /oauth/google/status/{id}", authed(h.GoogleStatus))

	// Internal endpoints
	// these should run on a separate port or strict network rules.
	mux.Handle("POST /internal/users", internalMW(http.HandlerFunc(h.CreateUser)))
	mux.Handle("GET /internal/jobs", internalMW(http.HandlerFunc(h.ListJobs)))
	mux.Handle("POST /internal/jobs/{name}/run", internalMW(http.HandlerFunc(h.RunJob)))

	traced := otelhttp.NewHandler(mux, "sponte-controller",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/healthz" && r.URL.Path != "/readyz" && r.URL.Path != "/metrics"
		}),
	)
	return middleware.RequestID(middleware.CORS(opts.CORSOrigins)(traced))
}

// New creates a new controller server.
func New(addr string, handler http.Handler, opts Options) *Server {
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 2 * time.Minute
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: writeTimeout,
		},
	}
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
