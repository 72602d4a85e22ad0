package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"sponte/internal/agents"
	"sponte/internal/controller/middleware"
	"sponte/internal/google"
	"sponte/internal/notifier"
	"sponte/internal/onboarding"
	"sponte/internal/reports"
	"sponte/internal/scheduler"
	"sponte/internal/store"
	"sponte/internal/store/memstore"

	"github.com/google/uuid"
)

type fakeGenerator struct {
	err error
}

func (g *fakeGenerator) Generate(ctx context.Context, req agents.GenerationRequest) (*agents.GeneratedContent, error) {
	if g.err != nil {
		return nil, g.err
	}
	cta := store.CTACall
	return &agents.GeneratedContent{
		Content:      "Fresh sourdough every morning at " + req.Location.BusinessName,
		CallToAction: &cta,
		Reasoning:    "seasonal",
		Model:        "test",
	}, nil
}

type fakeOAuth struct {
	authErr       error
	exchangeErr   error
	disconnectErr error
	status        *google.ConnectionStatus
	gotState      string
}

func (f *fakeOAuth) AuthURL(userID, locationID uuid.UUID) (string, error) {
	if f.authErr != nil {
		return "", f.authErr
	}
	return "https://accounts.example/auth?state=s1", nil
}

func (f *fakeOAuth) Exchange(ctx context.Context, state, code string) (*store.OAuthToken, error) {
	f.gotState = state
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &store.OAuthToken{LocationID: uuid.MustParse("6f1c2f4e-8d1c-4f43-9f0a-2b8f6c1d0e11")}, nil
}

func (f *fakeOAuth) Disconnect(ctx context.Context, locationID uuid.UUID) error {
	return f.disconnectErr
}

func (f *fakeOAuth) Status(ctx context.Context, locationID uuid.UUID) (*google.ConnectionStatus, error) {
	if f.status == nil {
		return &google.ConnectionStatus{}, nil
	}
	return f.status, nil
}

type fakeJobs struct {
	triggerErr error
	triggered  []string
}

func (f *fakeJobs) Trigger(name string) error {
	if f.triggerErr != nil {
		return f.triggerErr
	}
	f.triggered = append(f.triggered, name)
	return nil
}

func (f *fakeJobs) Jobs() []scheduler.JobInfo {
	return []scheduler.JobInfo{{Name: scheduler.JobAgentTick, Spec: "0 6 * * *"}}
}

type recorder struct {
	mu   sync.Mutex
	msgs []notifier.Message
}

func (r *recorder) Send(ctx context.Context, msg notifier.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []agents.PublishRequest
}

func (p *fakePublisher) Publish(ctx context.Context, req agents.PublishRequest) (*agents.PublishResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)
	return &agents.PublishResult{ExternalID: "gbp-post-1", URL: "https://maps.example/p/gbp-post-1"}, nil
}

type fixture struct {
	store  *memstore.Store
	h      *Handlers
	agents *agents.Service
	gen    *fakeGenerator
	oauth  *fakeOAuth
	jobs   *fakeJobs
	mail   *recorder
	pub    *fakePublisher

	user  *store.User
	other *store.User
	loc   *store.Location
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memstore.New()
	f := &fixture{store: s, gen: &fakeGenerator{}, oauth: &fakeOAuth{}, jobs: &fakeJobs{}, mail: &recorder{}, pub: &fakePublisher{}}

	f.agents = agents.NewService(s, f.gen, f.pub, nil)
	f.h = New(Deps{
		Store:       s,
		Agents:      f.agents,
		Onboarding:  onboarding.NewService(s, nil, "", nil),
		Reports:     reports.NewService(s, reports.NewBuilder(s, nil, nil), f.mail, "", nil),
		OAuth:       f.oauth,
		Jobs:        f.jobs,
		FrontendURL: "https://app.example/",
	})

	f.user = f.addUser(t, "rosa@rosas.example")
	f.other = f.addUser(t, "mallory@example.com")

	now := time.Now().UTC()
	f.loc = &store.Location{
		ID:              uuid.New(),
		UserID:          f.user.ID,
		BusinessName:    "Rosa's Bakery",
		City:            "Austin",
		PrimaryCategory: "Bakery",
		GBPCadence:      "weekly",
		ReportEmails:    []string{"rosa@rosas.example"},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.CreateLocation(context.Background(), nil, f.loc); err != nil {
		t.Fatalf("CreateLocation failed: %v", err)
	}
	for _, agent := range store.AllAgentTypes {
		_, _ = s.CreateAgentConfig(context.Background(), nil, &store.AgentConfig{
			ID: uuid.New(), LocationID: f.loc.ID, AgentType: agent,
			AutonomyMode: store.AutonomyDraft, IsActive: true, ConfigData: map[string]any{},
		})
	}
	return f
}

func (f *fixture) addUser(t *testing.T, email string) *store.User {
	t.Helper()
	u := &store.User{ID: uuid.New(), Email: email, SubscriptionTier: store.TierStarter, CreatedAt: time.Now()}
	if err := f.store.CreateUser(context.Background(), u, "hash-"+u.ID.String()); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return u
}

// do calls handler directly. pathValues are name/value pairs.
func (f *fixture) do(t *testing.T, handler http.HandlerFunc, method, target string, body any, user *store.User, pathValues ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("encode body: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(pathValues); i += 2 {
		req.SetPathValue(pathValues[i], pathValues[i+1])
	}
	if user != nil {
		req = req.WithContext(middleware.NewContextWithUser(req.Context(), user))
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

// draft creates a GBP draft for the fixture location.
func (f *fixture) draft(t *testing.T) *store.Output {
	t.Helper()
	_, out, err := f.agents.Generate(context.Background(), agents.CreateTaskRequest{
		LocationID: f.loc.ID,
		AgentType:  store.AgentGBP,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return out
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("handler returned wrong status code: got %v want %v (body %s)", rr.Code, want, rr.Body.String())
	}
}

func TestServiceErrorMapping(t *testing.T) {
	h := New(Deps{Store: memstore.New()})
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"not connected", google.ErrNotConnected, http.StatusNotFound},
		{"invalid transition", store.ErrInvalidTransition, http.StatusConflict},
		{"duplicate task", store.ErrDuplicateTask, http.StatusConflict},
		{"generation", &agents.GenerationError{Err: errors.New("overloaded")}, http.StatusBadGateway},
		{"agent validation", agents.ErrInvalidInput, http.StatusBadRequest},
		{"unsupported task", agents.ErrUnsupportedTask, http.StatusBadRequest},
		{"onboarding validation", onboarding.ErrInvalidInput, http.StatusBadRequest},
		{"bad period", reports.ErrInvalidPeriod, http.StatusBadRequest},
		{"bad state", google.ErrInvalidState, http.StatusBadRequest},
		{"not configured", google.ErrNotConfigured, http.StatusServiceUnavailable},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.serviceError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, "Thing")
			if rr.Code != tt.want {
				t.Errorf("got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestPagination(t *testing.T) {
	h := New(Deps{Store: memstore.New()})
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
		wantOK     bool
	}{
		{"", defaultPageSize, 0, true},
		{"?limit=10&offset=20", 10, 20, true},
		{"?limit=1000", maxPageSize, 0, true},
		{"?limit=0", 0, 0, false},
		{"?offset=-1", 0, 0, false},
		{"?limit=ten", 0, 0, false},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		limit, offset, ok := h.page(rr, httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
		if ok != tt.wantOK || limit != tt.wantLimit || offset != tt.wantOffset {
			t.Errorf("page(%q) = %d, %d, %v", tt.query, limit, offset, ok)
		}
	}
}
