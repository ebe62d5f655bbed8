package commands

import (
	"fmt"
	"io"

	"github.com/benvon/todomvc-api/internal/database"
	"github.com/benvon/todomvc-api/internal/models"
	"github.com/benvon/todomvc-api/internal/validation"
	"github.com/spf13/cobra"
)

// NewTodosCmd creates the read-only todos inspection command
func NewTodosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "todos",
		Short: "Inspect stored todos",
	}
	cmd.AddCommand(newTodosListCmd())
	cmd.AddCommand(newTodosCountsCmd())
	return cmd
}

func newTodosListCmd() *cobra.Command {
	var visibility string
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List todos matching a visibility filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := validation.ValidateVisibility(visibility)
			if err != nil {
				return err
			}
			if page < 1 || pageSize < 1 {
				return fmt.Errorf("--page and --page-size must be positive")
			}
			db, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			todos, total, err := database.NewTodoRepository(db).List(cmd.Context(), v, page, pageSize)
			if err != nil {
				return fmt.Errorf("list todos: %w", err)
			}
			printTodos(cmd.OutOrStdout(), v, todos, total)
			return nil
		},
	}
	cmd.Flags().StringVar(&visibility, "visibility", string(models.VisibilityAll), "all, active or completed")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 100, "Todos per page")
	return cmd
}

func newTodosCountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show how many todos each filter matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(db)

			counts, err := database.NewTodoRepository(db).Counts(cmd.Context())
			if err != nil {
				return fmt.Errorf("count todos: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "all: %d\nactive: %d\ncompleted: %d\n", counts.All, counts.Active, counts.Completed)
			return nil
		},
	}
}

func printTodos(out io.Writer, v models.Visibility, todos []models.Todo, total int) {
	if len(todos) == 0 {
		fmt.Fprintf(out, "No %s todos.\n", v)
		return
	}
	for _, t := range todos {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(out, "[%s] %d  %s\n", mark, t.ID, t.Title)
	}
	fmt.Fprintf(out, "%d of %d %s todos\n", len(todos), total, v)
}
