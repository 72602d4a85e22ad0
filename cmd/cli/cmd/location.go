package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var locationCmd = &cobra.Command{
	Use:   "location",
	Short: "Show your business location and its Google connection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		loc, err := client.MyLocation(cmd.Context())
		if err != nil {
			return fmt.Errorf("error fetching location: %w", err)
		}

		cmd.Println(heading("", loc.BusinessName))
		cmd.Println(field("ID", loc.ID))
		cmd.Println(field("Address", fmt.Sprintf("%s, %s, %s %s", loc.StreetAddress, loc.City, loc.State, loc.ZipCode)))
		cmd.Println(field("Phone", loc.PhonePrimary))
		cmd.Println(field("Category", loc.PrimaryCategory))
		if len(loc.Services) > 0 {
			cmd.Println(field("Services", strings.Join(loc.Services, ", ")))
		}
		cmd.Println(field("Cadence", fmt.Sprintf("gbp %s, blog %s", orDash(loc.GBPCadence), orDash(loc.BlogCadence))))

		status, err := client.GoogleStatus(cmd.Context(), loc.ID)
		if err != nil {
			return fmt.Errorf("error fetching google status: %w", err)
		}
		switch {
		case !status.Connected:
			cmd.Println(field("Google", busyStyle.Render("not connected")))
		case status.Expired && !status.Refreshable:
			cmd.Println(field("Google", failStyle.Render("expired, reconnect")))
		default:
			cmd.Println(field("Google", okStyle.Render("connected")+" "+orDash(loc.GBPLocationName)))
		}
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(locationCmd)
}
