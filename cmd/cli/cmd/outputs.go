package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"sponte/pkg/api"

	"github.com/spf13/cobra"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "List drafts waiting for review",
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

		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		drafts, err := client.ListDrafts(cmd.Context(), loc, limit, offset)
		if err != nil {
			return fmt.Errorf("error fetching drafts: %w", err)
		}
		if len(drafts) == 0 {
			cmd.Println("No drafts waiting for review.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "OUTPUT ID\tTYPE\tCTA\tCREATED\tCONTENT")
		for _, o := range drafts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				o.ID,
				o.OutputType,
				deref(o.CallToAction),
				relativeTime(o.CreatedAt),
				truncate(o.Content, 60),
			)
		}
		return w.Flush()
	},
}

var showCmd = &cobra.Command{
	Use:   "show [output_id]",
	Short: "Show one output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		out, err := client.GetOutput(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error fetching output: %w", err)
		}
		printOutput(cmd, out)
		return nil
	},
}

func printOutput(cmd *cobra.Command, o *api.OutputResponse) {
	cmd.Println(heading(statusIcon(o.Status), "Output Details"))

	cmd.Println(field("ID", o.ID))
	cmd.Println(field("Type", o.OutputType))
	cmd.Println(field("Status", colorizeStatus(o.Status)))
	if o.Title != "" {
		cmd.Println(field("Title", o.Title))
	}
	if o.CallToAction != nil {
		cmd.Println(field("CTA", *o.CallToAction))
	}
	if o.PlatformURL != nil {
		cmd.Println(field("URL", *o.PlatformURL))
	}
	cmd.Println(field("Created", formatTimeWithRelative(&o.CreatedAt)))
	cmd.Println(field("Posted", formatTimeWithRelative(o.PostedAt)))
	cmd.Printf("\n%s\n", o.Content)
}

var approveCmd = &cobra.Command{
	Use:   "approve [output_id]",
	Short: "Approve a draft for publishing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		out, err := client.ApproveOutput(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error approving output: %w", err)
		}
		cmd.Printf("✅ Output %s approved.\n", out.ID)
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject [output_id]",
	Short: "Reject a draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		if reason == "" {
			return errors.New("--reason is required")
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		out, err := client.RejectOutput(cmd.Context(), args[0], reason)
		if err != nil {
			return fmt.Errorf("error rejecting output: %w", err)
		}
		cmd.Printf("Output %s rejected.\n", out.ID)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit [output_id]",
	Short: "Replace the content of a draft or approved output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req api.EditOutputRequest
		req.Content, _ = cmd.Flags().GetString("content")
		if req.Content == "" {
			return errors.New("--content is required")
		}
		if cmd.Flags().Changed("cta") {
			cta, _ := cmd.Flags().GetString("cta")
			req.CallToAction = &cta
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		out, err := client.EditOutput(cmd.Context(), args[0], req)
		if err != nil {
			return fmt.Errorf("error editing output: %w", err)
		}
		cmd.Printf("✏️  Output %s updated (%s).\n", out.ID, out.Status)
		return nil
	},
}

var postCmd = &cobra.Command{
	Use:   "post [output_id]",
	Short: "Mark an approved output posted",
	Long: `Mark an approved output posted. The controller publishes it through the
connected Google Business Profile when the location is bound. Pass --no-publish
for content published by hand, and record where with --post-id and --post-url.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req api.PostOutputRequest
		if skip, _ := cmd.Flags().GetBool("no-publish"); skip {
			publish := false
			req.AutoPost = &publish
		}
		if cmd.Flags().Changed("post-id") {
			id, _ := cmd.Flags().GetString("post-id")
			req.PlatformPostID = &id
		}
		if cmd.Flags().Changed("post-url") {
			u, _ := cmd.Flags().GetString("post-url")
			req.PlatformURL = &u
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		out, err := client.PostOutput(cmd.Context(), args[0], req)
		if err != nil {
			return fmt.Errorf("error posting output: %w", err)
		}

		cmd.Printf("🚀 Output %s posted.\n", out.ID)
		if out.PlatformURL != nil {
			cmd.Printf("   URL: %s\n", *out.PlatformURL)
		}
		if msg, ok := out.Metadata["publish_error"].(string); ok {
			cmd.Printf("   %s %s\n", failStyle.Render("Publishing failed:"), msg)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(draftsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(postCmd)

	draftsCmd.Flags().IntP("limit", "l", 20, "Number of drafts to list")
	draftsCmd.Flags().IntP("offset", "o", 0, "Offset for pagination")

	rejectCmd.Flags().StringP("reason", "r", "", "Why the draft was rejected")

	editCmd.Flags().StringP("content", "c", "", "New content")
	editCmd.Flags().String("cta", "", "Call to action (BOOK, ORDER, SHOP, LEARN_MORE, SIGN_UP, CALL)")

	postCmd.Flags().Bool("no-publish", false, "Record an external post without calling the platform")
	postCmd.Flags().String("post-id", "", "Platform post ID of a manual publish")
	postCmd.Flags().String("post-url", "", "URL of a manual publish")
}
