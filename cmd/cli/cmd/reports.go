package cmd

import (
	"fmt"
	"net/http"
	"sort"
	"text/tabwriter"

	"sponte/pkg/api"

	"github.com/spf13/cobra"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List performance reports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		loc, err := locationID(cmd, client)
		if err != nil {
			return err
		}

		reportType, _ := cmd.Flags().GetString("type")
		if latest, _ := cmd.Flags().GetBool("latest"); latest {
			r, err := client.LatestReport(cmd.Context(), loc, reportType)
			if err != nil {
				if IsStatus(err, http.StatusNotFound) {
					cmd.Println("No reports yet.")
					return nil
				}
				return fmt.Errorf("error fetching report: %w", err)
			}
			printReport(cmd, r)
			return nil
		}

		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		list, err := client.ListReports(cmd.Context(), loc, reportType, limit, offset)
		if err != nil {
			return fmt.Errorf("error fetching reports: %w", err)
		}
		if len(list.Reports) == 0 {
			cmd.Println("No reports found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "REPORT ID\tTYPE\tPERIOD\tEMAILED")
		for _, r := range list.Reports {
			emailed := "-"
			if r.EmailSentAt != nil {
				emailed = relativeTime(*r.EmailSentAt)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.ReportType, period(&r), emailed)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		cmd.Printf("Showing %d of %d reports.\n", len(list.Reports), list.Total)
		return nil
	},
}

var reportCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate a report for the most recent period",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		loc, err := locationID(cmd, client)
		if err != nil {
			return err
		}

		req := api.CreateReportRequest{LocationID: loc}
		req.ReportType, _ = cmd.Flags().GetString("type")
		req.SendEmail, _ = cmd.Flags().GetBool("email")
		if req.ReportType == "" {
			req.ReportType = "weekly"
		}

		r, err := client.CreateReport(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("error generating report: %w", err)
		}
		printReport(cmd, r)
		return nil
	},
}

func period(r *api.ReportResponse) string {
	// Periods are half-open, so show the last included day.
	return r.PeriodStart.Format("2006-01-02") + " to " + r.PeriodEnd.AddDate(0, 0, -1).Format("2006-01-02")
}

func printReport(cmd *cobra.Command, r *api.ReportResponse) {
	cmd.Println(heading("", fmt.Sprintf("Report %s (%s)", r.ID, r.ReportType)))
	cmd.Println(field("Period", period(r)))
	cmd.Println(field("Emailed", formatTimeWithRelative(r.EmailSentAt)))

	metrics, _ := r.Data["metrics"].(map[string]any)
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cmd.Printf("  %-22s %v\n", k, metrics[k])
	}
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportCreateCmd)

	reportsCmd.PersistentFlags().String("type", "", "Report type (weekly, monthly, custom)")
	reportsCmd.Flags().Bool("latest", false, "Show only the latest report")
	reportsCmd.Flags().IntP("limit", "l", 20, "Number of reports to list")
	reportsCmd.Flags().IntP("offset", "o", 0, "Offset for pagination")

	reportCreateCmd.Flags().Bool("email", false, "Email the report to the location's recipients")
}
