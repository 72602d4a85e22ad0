package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"sponte/pkg/api"

	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List tasks for a location",
	Long:  `List agent tasks, newest scheduled first. Filter by agent type (gbp, blog, ...) and status (pending, in_progress, completed, failed, approved, rejected, posted).`,
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

		var q TaskQuery
		q.AgentType, _ = cmd.Flags().GetString("agent")
		q.Status, _ = cmd.Flags().GetString("status")
		q.Limit, _ = cmd.Flags().GetInt("limit")
		q.Offset, _ = cmd.Flags().GetInt("offset")

		tasks, err := client.ListTasks(cmd.Context(), loc, q)
		if err != nil {
			return fmt.Errorf("error fetching tasks: %w", err)
		}
		if len(tasks) == 0 {
			if q.Offset > 0 {
				cmd.Println("No more tasks found.")
			} else {
				cmd.Println("No tasks found.")
			}
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TASK ID\tAGENT\tTYPE\tSTATUS\tSCHEDULED FOR\tERROR")
		for _, t := range tasks {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				t.ID,
				t.AgentType,
				t.TaskType,
				t.Status,
				t.ScheduledFor.Format(time.RFC3339),
				truncate(deref(t.ErrorMessage), 50),
			)
		}
		return w.Flush()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [task_id]",
	Short: "Get status of a task",
	Long:  `Retrieve detailed status information for an agent task, including its state, error message and timestamps.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		task, err := client.GetTask(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error fetching task: %w", err)
		}
		printTask(cmd, task)
		return nil
	},
}

func printTask(cmd *cobra.Command, task *api.TaskResponse) {
	cmd.Println(heading(statusIcon(task.Status), "Task Details"))

	cmd.Println(field("ID", task.ID))
	cmd.Println(field("Agent", fmt.Sprintf("%s (%s)", task.AgentType, task.TaskType)))
	cmd.Println(field("Status", colorizeStatus(task.Status)))

	if task.ErrorMessage != nil {
		cmd.Println(field("Error", failStyle.Render(*task.ErrorMessage)))
	}

	cmd.Println(field("Scheduled", formatTimeWithRelative(&task.ScheduledFor)))

	// Duration from creation when finished
	if task.CompletedAt != nil {
		took := waitStyle.Render("(" + formatDuration(task.CompletedAt.Sub(task.CreatedAt)) + ")")
		cmd.Println(field("Finished", formatTimeWithRelative(task.CompletedAt)+" "+took))
	} else {
		cmd.Println(field("Finished", "-"))
	}

	if content, ok := task.GeneratedContent["content"].(string); ok && content != "" {
		cmd.Printf("%s\n%s\n", labelStyle.Render("Content:"), content)
	}
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(statusCmd)

	tasksCmd.Flags().StringP("agent", "a", "", "Filter by agent type")
	tasksCmd.Flags().StringP("status", "s", "", "Filter by task status")
	tasksCmd.Flags().IntP("limit", "l", 20, "Number of tasks to list")
	tasksCmd.Flags().IntP("offset", "o", 0, "Offset for pagination")
}
