package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "seoctl",
	Short: "seoctl is a command line tool for the sponte local SEO platform",
	Long: `seoctl is the command-line interface for the sponte controller.

sponte runs a team of content agents for each business location. Agents draft
Google Business Profile posts, blog posts and other content on a cadence, a
person reviews the drafts, and approved content is published.

Common workflows:

  Show your location:
    seoctl location

  Generate a Google Business Profile post now:
    seoctl generate gbp --context "Spring menu launch"

  Review drafts:
    seoctl drafts
    seoctl edit <output-id> --content "..." --cta CALL
    seoctl approve <output-id>
    seoctl reject <output-id> --reason "Off brand"

  Publish an approved output:
    seoctl post <output-id>
    seoctl post <output-id> --no-publish --post-id <id>

  Inspect tasks:
    seoctl tasks --agent gbp --status failed
    seoctl status <task-id>

Configuration:
  Set the API endpoint and credentials via flags, environment variables or a config file:
    SPONTE_URL         API endpoint (default: http://localhost:8000)
    SPONTE_TOKEN       API key for authentication
    SPONTE_LOCATION    Location ID (default: the location of the API key's user)`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// errNoToken is returned by commands that need an API key.
var errNoToken = errors.New("API token not found. Please set it using the --token flag or the SPONTE_TOKEN environment variable")

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		rootCmd.PrintErrln("Error:", err)
	}
	return err
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".seoctl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".seoctl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "SPONTE_VARNAME"
	viper.SetEnvPrefix("SPONTE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newClient builds a client from the resolved configuration.
func newClient() (*Client, error) {
	token := viper.GetString("token")
	if token == "" {
		return nil, errNoToken
	}
	return NewClient(viper.GetString("url"), token), nil
}

// locationID returns the configured location, falling back to the caller's own.
func locationID(cmd *cobra.Command, c *Client) (string, error) {
	if id := viper.GetString("location"); id != "" {
		return id, nil
	}
	loc, err := c.MyLocation(cmd.Context())
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return "", errors.New("no location found for this API key, finish onboarding or pass --location")
		}
		return "", fmt.Errorf("failed to resolve location: %w", err)
	}
	return loc.ID, nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.seoctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:8000", "sponte controller URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "API key for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))

	rootCmd.PersistentFlags().StringP("location", "L", "", "location ID (default is your own location)")
	viper.BindPFlag("location", rootCmd.PersistentFlags().Lookup("location"))
}
