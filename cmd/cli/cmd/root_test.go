package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"sponte/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const testLocationID = "6f1c2f4e-8d1c-4f43-9f0a-2b8f6c1d0e11"

func resetViper() {
	viper.Reset()
	viper.SetEnvPrefix("SPONTE")
	viper.AutomaticEnv()
}

// resetFlags restores every flag to its default so one test's flags do not
// leak into the next Execute.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// newAPI starts a fake controller serving routes and points the CLI at it.
// GET /locations/me is served unless routes override it.
func newAPI(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	if _, ok := routes["GET /locations/me"]; !ok {
		mux.HandleFunc("GET /locations/me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, api.LocationResponse{ID: testLocationID, BusinessName: "Rosa's Bakery"})
		})
	}
	for pattern, h := range routes {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("%s: expected Bearer token, got: %s", pattern, got)
			}
			h(w, r)
		})
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")
	return server
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeRequest[T any](t *testing.T, r *http.Request) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode request body: %v", err)
	}
	return v
}

func TestRootCommand_DefaultURL(t *testing.T) {
	resetViper()

	cmd := &cobra.Command{}
	cmd.PersistentFlags().String("url", "http://localhost:8000", "sponte controller URL")
	viper.BindPFlag("url", cmd.PersistentFlags().Lookup("url"))

	url := viper.GetString("url")
	if url != "http://localhost:8000" {
		t.Errorf("expected default url http://localhost:8000, got: %s", url)
	}
}

func TestRootCommand_EnvVarBinding(t *testing.T) {
	resetViper()

	t.Setenv("SPONTE_TOKEN", "env-token-value")
	t.Setenv("SPONTE_URL", "http://custom-url:8080")
	t.Setenv("SPONTE_LOCATION", testLocationID)

	if token := viper.GetString("token"); token != "env-token-value" {
		t.Errorf("expected token from env var, got: %s", token)
	}
	if url := viper.GetString("url"); url != "http://custom-url:8080" {
		t.Errorf("expected url from env var, got: %s", url)
	}
	if loc := viper.GetString("location"); loc != testLocationID {
		t.Errorf("expected location from env var, got: %s", loc)
	}
}

func TestRootCommand_Help(t *testing.T) {
	resetViper()

	out, err := execute(t, "--help")
	if err != nil {
		t.Errorf("root command should execute without error: %v", err)
	}
	if !strings.Contains(out, "seoctl") {
		t.Errorf("expected usage in help output, got: %s", out)
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	registered := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range []string{"location", "tasks", "status", "drafts", "show", "approve", "reject", "edit", "post", "generate", "due", "reports"} {
		if !registered[name] {
			t.Errorf("expected %q subcommand to be registered with root command", name)
		}
	}
}

func TestExecute_ReturnsError(t *testing.T) {
	resetViper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"unknown-command-xyz"})

	if err := Execute(); err == nil {
		t.Error("expected error for unknown command")
	}
	if !strings.Contains(out.String(), "Error:") {
		t.Errorf("expected error to be printed, got: %s", out.String())
	}
}

func TestRootCommand_CustomConfigFile(t *testing.T) {
	resetViper()

	tmpFile, err := os.CreateTemp("", "seoctl-test-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	tmpFile.WriteString("url: http://custom-from-config:9999\ntoken: config-token\nlocation: loc-from-config\n")
	tmpFile.Close()

	cfgFile = tmpFile.Name()
	defer func() { cfgFile = "" }()
	initConfig()

	if url := viper.GetString("url"); url != "http://custom-from-config:9999" {
		t.Errorf("expected url from config file, got: %s", url)
	}
	if token := viper.GetString("token"); token != "config-token" {
		t.Errorf("expected token from config file, got: %s", token)
	}
	if loc := viper.GetString("location"); loc != "loc-from-config" {
		t.Errorf("expected location from config file, got: %s", loc)
	}
}

func TestCommands_MissingToken(t *testing.T) {
	for _, args := range [][]string{
		{"location"},
		{"tasks"},
		{"status", "task-1"},
		{"drafts"},
		{"approve", "out-1"},
		{"generate", "gbp"},
		{"reports"},
	} {
		t.Run(args[0], func(t *testing.T) {
			resetViper()
			viper.Set("token", "")

			_, err := execute(t, args...)
			if !errors.Is(err, errNoToken) {
				t.Errorf("expected missing token error, got: %v", err)
			}
		})
	}
}

func TestLocationResolution(t *testing.T) {
	t.Run("explicit location skips lookup", func(t *testing.T) {
		resetViper()
		var lookedUp bool
		newAPI(t, map[string]http.HandlerFunc{
			"GET /locations/me": func(w http.ResponseWriter, r *http.Request) {
				lookedUp = true
				writeJSON(w, http.StatusOK, api.LocationResponse{ID: "other"})
			},
			"GET /locations/{id}/drafts": func(w http.ResponseWriter, r *http.Request) {
				if id := r.PathValue("id"); id != "explicit-loc" {
					t.Errorf("expected explicit location, got %s", id)
				}
				writeJSON(w, http.StatusOK, api.OutputListResponse{})
			},
		})
		viper.Set("location", "explicit-loc")

		if _, err := execute(t, "drafts"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lookedUp {
			t.Error("expected no /locations/me call when a location is configured")
		}
	})

	t.Run("no location for user", func(t *testing.T) {
		resetViper()
		newAPI(t, map[string]http.HandlerFunc{
			"GET /locations/me": func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "Location not found"})
			},
		})

		_, err := execute(t, "tasks")
		if err == nil || !strings.Contains(err.Error(), "finish onboarding") {
			t.Errorf("expected onboarding hint, got: %v", err)
		}
	})
}

func TestLocationCommand(t *testing.T) {
	resetViper()
	newAPI(t, map[string]http.HandlerFunc{
		"GET /locations/me": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, api.LocationResponse{
				ID:              testLocationID,
				BusinessName:    "Rosa's Bakery",
				City:            "Austin",
				Services:        []string{"Cakes", "Bread"},
				GBPCadence:      "weekly",
				GBPLocationName: "locations/123",
			})
		},
		"GET /oauth/google/status/{id}": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, api.OAuthStatusResponse{Connected: true, Refreshable: true})
		},
	})

	out, err := execute(t, "location")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Rosa's Bakery", testLocationID, "Cakes, Bread", "gbp weekly", "connected", "locations/123"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got: %s", want, out)
		}
	}
}
