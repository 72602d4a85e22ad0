package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type sentEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

func TestResend_Send(t *testing.T) {
	var got sentEmail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer re_test" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer srv.Close()

	r, err := NewResend(Config{APIKey: "re_test", BaseURL: srv.URL, From: "Sponte AI <reports@sponte.test>"}, srv.Client())
	if err != nil {
		t.Fatalf("NewResend failed: %v", err)
	}
	err = r.Send(context.Background(), Message{To: []string{"owner@rosas.example"}, Subject: "Hi", Text: "Body"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got.From != "Sponte AI <reports@sponte.test>" || got.To[0] != "owner@rosas.example" || got.Text != "Body" {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestResend_Send_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"statusCode":422,"message":"Invalid from address"}`))
	}))
	defer srv.Close()

	r, err := NewResend(Config{APIKey: "re_test", BaseURL: srv.URL}, srv.Client())
	if err != nil {
		t.Fatalf("NewResend failed: %v", err)
	}

	err = r.Send(context.Background(), Message{To: []string{"a@b.c"}})
	if err == nil || !strings.Contains(err.Error(), "Invalid from address") {
		t.Errorf("expected API error, got %v", err)
	}
	if err := r.Send(context.Background(), Message{}); err == nil {
		t.Error("expected error for empty recipients")
	}
}

func TestNewResend_BadBaseURL(t *testing.T) {
	if _, err := NewResend(Config{APIKey: "re_test", BaseURL: "://nope"}, nil); err == nil {
		t.Error("expected error for malformed base url")
	}
	if _, ok := New(Config{APIKey: "re_test", BaseURL: "://nope"}, nil, nil).(*Noop); !ok {
		t.Error("expected Noop fallback for malformed base url")
	}
}

func TestNew_NoopWithoutKey(t *testing.T) {
	n := New(Config{}, nil, nil)
	if _, ok := n.(*Noop); !ok {
		t.Fatalf("expected *Noop, got %T", n)
	}
	if err := n.Send(context.Background(), Message{To: []string{"a@b.c"}}); err != nil {
		t.Errorf("Noop.Send returned %v", err)
	}
}

type recorder struct{ msgs []Message }

func (r *recorder) Send(ctx context.Context, msg Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func TestSendReport(t *testing.T) {
	rec := &recorder{}
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	err := SendReport(context.Background(), rec, ReportEmail{
		To:           []string{"a@b.c", "d@e.f"},
		BusinessName: "Rosa's Bakery",
		ReportType:   "weekly",
		PeriodStart:  start,
		PeriodEnd:    start.AddDate(0, 0, 7),
		Highlights:   []string{"3 posts published"},
		Insights:     []string{"Calls are up 12%"},
		Link:         "https://app.example/dashboard/reports/1",
	})
	if err != nil {
		t.Fatalf("SendReport failed: %v", err)
	}

	msg := rec.msgs[0]
	if msg.Subject != "Weekly Report: Rosa's Bakery" || len(msg.To) != 2 {
		t.Errorf("unexpected message: %+v", msg)
	}
	for _, want := range []string{"Mar 2, 2026 - Mar 8, 2026", "- 3 posts published", "Calls are up 12%", "/reports/1"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("body missing %q:\n%s", want, msg.Text)
		}
	}
}

func TestSendWelcome(t *testing.T) {
	rec := &recorder{}
	if err := SendWelcome(context.Background(), rec, Welcome{To: "a@b.c", BusinessName: "Rosa's Bakery", DashboardURL: "https://app.example/dashboard"}); err != nil {
		t.Fatalf("SendWelcome failed: %v", err)
	}
	if !strings.Contains(rec.msgs[0].Text, "Rosa's Bakery") || !strings.Contains(rec.msgs[0].Text, "https://app.example/dashboard") {
		t.Errorf("unexpected body: %s", rec.msgs[0].Text)
	}
}
