package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/todolists/todolists/engine/todo"
)

func todoCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "todo",
		Short: "Manage the todos of a list",
	}
	cmd.AddCommand(
		todoAddCmd(a),
		todoShowCmd(a),
		todoToggleCmd(a),
		todoDeleteCmd(a),
	)
	return cmd
}

func todoAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <list-id> <title>",
		Short: "Add a todo to a list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[0])
			if err != nil {
				return err
			}
			title := joinArgs(args[1:])
			if err := validateTitle(title); err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, p todo.Persistence) error {
				_, err := p.CreateTodo(ctx, ids[0], title)
				if errors.Is(err, todo.ErrNotFound) {
					return notFound("todo list")
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "The todo has been created.")
				return nil
			})
		},
	}
}

func todoShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <list-id> <todo-id>",
		Short: "Show one todo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args...)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, p todo.Persistence) error {
				t, err := p.LoadTodo(ctx, ids[0], ids[1])
				if err != nil {
					return err
				}
				if t == nil {
					return notFound("todo")
				}
				printTodo(cmd.OutOrStdout(), t)
				return nil
			})
		},
	}
}

func todoToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <list-id> <todo-id>",
		Short: "Flip the done state of a todo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args...)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, p todo.Persistence) error {
				before, err := p.LoadTodo(ctx, ids[0], ids[1])
				if err != nil {
					return err
				}
				if before == nil {
					return notFound("todo")
				}
				toggled, err := p.ToggleTodo(ctx, ids[0], ids[1])
				if err != nil {
					return err
				}
				if !toggled {
					return notFound("todo")
				}
				state := "done"
				if before.Done {
					state = "NOT done"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%q marked %s.\n", before.Title, state)
				return nil
			})
		},
	}
}

func todoDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <list-id> <todo-id>",
		Short: "Delete a todo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args...)
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, p todo.Persistence) error {
				deleted, err := p.DeleteTodo(ctx, ids[0], ids[1])
				if err != nil {
					return err
				}
				if !deleted {
					return notFound("todo")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "The todo has been deleted.")
				return nil
			})
		},
	}
}
