package cli

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Anton/internal/domain"
	"github.com/shaiso/Anton/internal/repo"
)

// NewTasksCmd создаёт группу команд для запросов к архиву задач.
func NewTasksCmd(outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Query the task archive",
	}

	cmd.AddCommand(
		newTasksListCmd(outputFn),
		newTasksShowCmd(outputFn),
	)

	return cmd
}

func newTasksListCmd(outputFn func() *Output) *cobra.Command {
	var source, status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			pool, err := repo.NewPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			tasks, err := repo.NewTaskRepo(pool).List(ctx, repo.Filter{
				Source: domain.Source(source),
				Status: domain.TaskStatus(status),
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, len(tasks))
			for i, t := range tasks {
				rows[i] = []string{
					t.TaskID.String(),
					string(t.Source),
					string(t.Priority),
					string(t.Status),
					strconv.Itoa(t.Attempts),
					truncate(t.Title, 50),
				}
			}

			out.Print([]string{"TASK ID", "SOURCE", "PRIORITY", "STATUS", "ATTEMPTS", "TITLE"}, rows, tasks)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Filter by source (jira, datadog, sonarcloud)")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (RECEIVED, DISPATCHED, DEAD_LETTERED)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum tasks to show")

	return cmd
}

func newTasksShowCmd(outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show TASK_ID",
		Short: "Show one archived task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()
			ctx := cmd.Context()

			taskID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid task id: %w", err)
			}

			pool, err := repo.NewPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			task, err := repo.NewTaskRepo(pool).GetByID(ctx, taskID)
			if err != nil {
				return err
			}

			out.Print(
				[]string{"TASK ID", "SOURCE", "PRIORITY", "STATUS", "ATTEMPTS", "JOB", "ERROR"},
				[][]string{{
					task.TaskID.String(),
					string(task.Source),
					string(task.Priority),
					string(task.Status),
					strconv.Itoa(task.Attempts),
					task.JobName,
					truncate(task.LastError, 60),
				}},
				task,
			)
			return nil
		},
	}
}
