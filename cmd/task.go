package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/proj/internal/db"
	"github.com/marcus/proj/internal/models"
	"github.com/marcus/proj/internal/output"
)

var (
	taskAddPriority    = newEnum(string(models.PriorityNormal), toStrings(models.Priorities())...)
	taskUpdatePriority = newEnum("", toStrings(models.Priorities())...)
	taskUpdateStatus   = newEnum("", toStrings(models.TaskStatuses())...)
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add DESCRIPTION",
	Short: "Add a pending task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		id, err := database.AddTask(args[0], models.Priority(taskAddPriority.String()))
		if err != nil {
			return fail(err)
		}
		return logged("task", fmt.Sprintf("T%d", id), id)
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Change a task's status, priority or notes",
	Long: `Status changes follow the task workflow:

  pending     -> in_progress, blocked, cancelled
  in_progress -> completed, blocked, cancelled
  blocked     -> pending, in_progress, cancelled

completed and cancelled are final.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "T")
		if err != nil {
			return fail(err)
		}
		notes, _ := cmd.Flags().GetString("notes")
		status := models.TaskStatus(taskUpdateStatus.String())
		priority := models.Priority(taskUpdatePriority.String())
		if status == "" && priority == "" && notes == "" {
			return fail(fmt.Errorf("%w: nothing to update (use --status, --priority or --notes)", db.ErrInvalidInput))
		}

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		var task *models.Task
		if status != "" {
			// Notes ride along with the status change
			if task, err = database.UpdateTaskStatus(id, status, notes); err != nil {
				return fail(err)
			}
			notes = ""
		}
		if priority != "" || notes != "" {
			if task, err = database.UpdateTaskDetails(id, priority, notes); err != nil {
				return fail(err)
			}
		}

		if jsonOutput {
			return output.JSON(task)
		}
		output.Success("Updated T%d", task.ID)
		output.Line("%s", taskLine(*task))
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks by priority",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		var tasks []models.Task
		all, _ := cmd.Flags().GetBool("all")
		if all {
			tasks, err = database.ListTasks()
		} else {
			tasks, err = database.ActiveTasks()
		}
		if err != nil {
			return fail(err)
		}
		if jsonOutput {
			return output.JSON(tasks)
		}
		if len(tasks) == 0 {
			output.Line("No tasks")
			return nil
		}
		for _, t := range tasks {
			output.Line("%s", taskLine(t))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskAddCmd, taskUpdateCmd, taskListCmd)

	addEnumFlag(taskAddCmd.Flags(), "priority", "p", taskAddPriority, "Task priority")
	addEnumFlag(taskUpdateCmd.Flags(), "status", "s", taskUpdateStatus, "New status")
	addEnumFlag(taskUpdateCmd.Flags(), "priority", "p", taskUpdatePriority, "New priority")
	taskUpdateCmd.Flags().String("notes", "", "Replace the task notes")
	taskListCmd.Flags().BoolP("all", "a", false, "Include completed and cancelled tasks")
}
