// Package onboarding turns the signup form into a location with its agents.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"sponte/internal/logger"
	"sponte/internal/notifier"
	"sponte/internal/store"

	"github.com/google/uuid"
)

// ErrInvalidInput is returned when a required field is missing.
var ErrInvalidInput = errors.New("invalid onboarding input")

const welcomeTimeout = 30 * time.Second

// BusinessProfile is the NAP step of the form.
type BusinessProfile struct {
	BusinessName    string
	DBAName         string
	StreetAddress   string
	City            string
	State           string
	ZipCode         string
	Phone           string
	PhoneSecondary  string
	WebsiteURL      string
	CMSPlatform     string
	PrimaryCategory string
	Services        []string
}

func (p BusinessProfile) validate() error {
	required := []struct{ name, value string }{
		{"businessName", p.BusinessName},
		{"streetAddress", p.StreetAddress},
		{"city", p.City},
		{"state", p.State},
		{"zipCode", p.ZipCode},
		{"phone", p.Phone},
		{"primaryCategory", p.PrimaryCategory},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// Submission is the complete form.
type Submission struct {
	BusinessProfile

	BrandTone       string
	BlogCadence     string
	GBPCadence      string
	ForbiddenWords  []string
	ForbiddenTopics []string
	GlobalAutonomy  string
	PrimaryGoal     string
	ReportFrequency string
	ReportEmails    []string
}

func (s Submission) validate() error {
	if err := s.BusinessProfile.validate(); err != nil {
		return err
	}
	switch store.ReportType(s.ReportFrequency) {
	case "", store.ReportWeekly, store.ReportMonthly:
	default:
		return fmt.Errorf("%w: reportFrequency must be weekly or monthly", ErrInvalidInput)
	}
	for _, e := range s.ReportEmails {
		if !strings.Contains(e, "@") {
			return fmt.Errorf("%w: invalid report email %q", ErrInvalidInput, e)
		}
	}
	return nil
}

// Result is what Submit created.
type Result struct {
	Location       *store.Location
	ConfigsCreated int
}

// Service runs onboarding.
type Service struct {
	store        store.Store
	notifier     notifier.Notifier
	dashboardURL string
	logger       *slog.Logger
	now          func() time.Time

	wg sync.WaitGroup
}

// NewService wires onboarding. frontendURL is linked from the welcome email.
func NewService(s store.Store, n notifier.Notifier, frontendURL string, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	dash := ""
	if frontendURL != "" {
		dash = strings.TrimRight(frontendURL, "/") + "/dashboard"
	}
	return &Service{store: s, notifier: n, dashboardURL: dash, logger: log, now: time.Now}
}

// Wait blocks until queued welcome emails have been attempted.
func (s *Service) Wait() {
	s.wg.Wait()
}

// CreateDraftLocation stores the NAP step so accounts can be connected
// before the form is finished. An existing location is updated in place.
func (s *Service) CreateDraftLocation(ctx context.Context, user *store.User, p BusinessProfile) (*store.Location, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	loc, existing, err := s.locationFor(ctx, user)
	if err != nil {
		return nil, err
	}
	applyProfile(loc, p)

	if existing {
		err = s.store.UpdateLocation(ctx, nil, loc)
	} else {
		err = s.store.CreateLocation(ctx, nil, loc)
	}
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.logger).Info("draft location saved", "location_id", loc.ID, "user_id", user.ID, "updated", existing)
	return loc, nil
}

// Submit stores the full form, marks the user onboarded and provisions one
// config per agent, all in one transaction. Existing configs are kept.
func (s *Service) Submit(ctx context.Context, user *store.User, sub Submission) (*Result, error) {
	if err := sub.validate(); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx, s.logger).With("user_id", user.ID)

	mode, ok := store.ParseAutonomyMode(sub.GlobalAutonomy)
	if !ok && sub.GlobalAutonomy != "" {
		log.Warn("unknown autonomy mode, defaulting to draft", "value", sub.GlobalAutonomy)
	}

	loc, existing, err := s.locationFor(ctx, user)
	if err != nil {
		return nil, err
	}
	applyProfile(loc, sub.BusinessProfile)
	loc.BrandTone = sub.BrandTone
	loc.BlogCadence = sub.BlogCadence
	loc.GBPCadence = sub.GBPCadence
	loc.ForbiddenWords = sub.ForbiddenWords
	loc.ForbiddenTopics = sub.ForbiddenTopics
	loc.PrimaryGoal = sub.PrimaryGoal
	loc.ReportFrequency = sub.ReportFrequency
	loc.ReportEmails = sub.ReportEmails

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if existing {
		err = s.store.UpdateLocation(ctx, tx, loc)
	} else {
		err = s.store.CreateLocation(ctx, tx, loc)
	}
	if err != nil {
		return nil, fmt.Errorf("save location: %w", err)
	}
	if err := s.store.SetOnboardingCompleted(ctx, tx, user.ID); err != nil {
		return nil, fmt.Errorf("mark onboarded: %w", err)
	}

	now := s.now().UTC()
	created := 0
	for _, agent := range store.AllAgentTypes {
		ok, err := s.store.CreateAgentConfig(ctx, tx, &store.AgentConfig{
			ID:           uuid.New(),
			LocationID:   loc.ID,
			AgentType:    agent,
			AutonomyMode: mode,
			IsActive:     true,
			ConfigData:   map[string]any{},
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s config: %w", agent, err)
		}
		if ok {
			created++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	user.OnboardingCompleted = true
	log.Info("onboarding completed", "location_id", loc.ID, "configs_created", created)

	s.queueWelcome(ctx, user.Email, loc.BusinessName)
	return &Result{Location: loc, ConfigsCreated: created}, nil
}

func (s *Service) queueWelcome(ctx context.Context, to, businessName string) {
	if s.notifier == nil || to == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), welcomeTimeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		err := notifier.SendWelcome(ctx, s.notifier, notifier.Welcome{
			To:           to,
			BusinessName: businessName,
			DashboardURL: s.dashboardURL,
		})
		if err != nil {
			logger.FromContext(ctx, s.logger).Error("failed to send welcome email", "to", to, "error", err)
		}
	}()
}

// locationFor returns the user's location, or a new unsaved one.
func (s *Service) locationFor(ctx context.Context, user *store.User) (*store.Location, bool, error) {
	loc, err := s.store.GetLocationByUser(ctx, user.ID)
	if err == nil {
		return loc, true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}
	now := s.now().UTC()
	return &store.Location{ID: uuid.New(), UserID: user.ID, CreatedAt: now, UpdatedAt: now}, false, nil
}

func applyProfile(loc *store.Location, p BusinessProfile) {
	loc.BusinessName = strings.TrimSpace(p.BusinessName)
	loc.DBAName = p.DBAName
	loc.StreetAddress = p.StreetAddress
	loc.City = p.City
	loc.State = p.State
	loc.ZipCode = p.ZipCode
	loc.PhonePrimary = p.Phone
	loc.PhoneSecondary = p.PhoneSecondary
	loc.WebsiteURL = p.WebsiteURL
	loc.CMSPlatform = p.CMSPlatform
	loc.PrimaryCategory = p.PrimaryCategory
	loc.Services = CleanList(p.Services)
}

// ParseServices splits a newline-separated services field.
func ParseServices(s string) []string {
	return CleanList(strings.Split(s, "\n"))
}

// SplitComma splits a comma-separated field such as report emails.
func SplitComma(s string) []string {
	return CleanList(strings.Split(s, ","))
}

// CleanList trims entries and drops blanks.
func CleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
