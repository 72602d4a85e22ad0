package cmd

import (
	"fmt"

	"sponte/pkg/api"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate [agent_type]",
	Short: "Generate a draft now",
	Long: `Create and process a task for one agent (gbp, nap, keyword, blog, social, reporting)
and print the resulting draft. This waits for the content model to answer.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		loc, err := locationID(cmd, client)
		if err != nil {
			return err
		}

		req := api.GenerateRequest{LocationID: loc}
		req.TaskType, _ = cmd.Flags().GetString("task-type")
		req.Context, _ = cmd.Flags().GetString("context")

		cmd.Printf("Generating %s content...\n", args[0])
		resp, err := client.Generate(cmd.Context(), args[0], req)
		if err != nil {
			if resp != nil {
				cmd.Printf("%s Task %s failed: %s\n", statusIcon(resp.Task.Status), resp.Task.ID, deref(resp.Task.ErrorMessage))
			}
			return fmt.Errorf("error generating content: %w", err)
		}

		cmd.Printf("%s Task %s %s\n", statusIcon(resp.Task.Status), resp.Task.ID, resp.Task.Status)
		if resp.Output != nil {
			printOutput(cmd, resp.Output)
		}
		return nil
	},
}

var dueCmd = &cobra.Command{
	Use:   "due [agent_type]",
	Short: "Check whether an agent is due to run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		loc, err := locationID(cmd, client)
		if err != nil {
			return err
		}
		resp, err := client.IsDue(cmd.Context(), loc, args[0])
		if err != nil {
			return fmt.Errorf("error checking cadence: %w", err)
		}
		if resp.Due {
			cmd.Println(busyStyle.Render(resp.AgentType + " is due"))
		} else {
			cmd.Println(okStyle.Render(resp.AgentType + " is not due"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(dueCmd)

	generateCmd.Flags().String("task-type", "", "Task type (default is the agent's main task)")
	generateCmd.Flags().StringP("context", "c", "", "Extra context for the content model")
}
