package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/todolists/todolists/engine/todo"
)

var (
	validate = validator.New()

	errTitleLength = errors.New("the title must be between 1 and 100 characters")
	errTitleTaken  = errors.New("the list title must be unique")
)

func validateTitle(title string) error {
	if err := validate.Var(strings.TrimSpace(title), "required,max=100"); err != nil {
		return errTitleLength
	}
	return nil
}

func listsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "Show all todo lists, open ones first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd, func(ctx context.Context, p todo.Persistence) error {
				lists, err := p.SortedTodoLists(ctx)
				if err != nil {
					return err
				}
				printTodoLists(cmd.OutOrStdout(), p, lists)
				return nil
			})
		},
	}
}

func listCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Manage a single todo list",
	}
	cmd.AddCommand(
		listCreateCmd(a),
		listShowCmd(a),
		listRenameCmd(a),
		listDeleteCmd(a),
		listCompleteCmd(a),
	)
	return cmd
}

func listCreateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create <title>",
		Short: "Create a todo list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := joinArgs(args)
			if err := validateTitle(title); err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, p todo.Persistence) error {
				exists, err := p.ExistsTodoListTitle(ctx, title)
				if err != nil {
					return err
				}
				if exists {
					return errTitleTaken
				}
				created, err := p.CreateTodoList(ctx, title)
				if err != nil {
					return err
				}
				if !created {
					return errTitleTaken
				}
				fmt.Fprintln(cmd.OutOrStdout(), "The todo list has been created.")
				return nil
			})
		},
	}
}

func listShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <list-id>",
		Short: "Show a todo list with its todos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, p todo.Persistence) error {
				list, err := p.LoadTodoList(ctx, ids[0])
				if err != nil {
					return err
				}
				if list == nil {
					return notFound("todo list")
				}
				todos, err := p.SortedTodos(ctx, list)
				if err != nil {
					return err
				}
				printTodoList(cmd.OutOrStdout(), p, list, todos)
				return nil
			})
		},
	}
}

func listRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <list-id> <title>",
		Short: "Rename a todo list",
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
				exists, err := p.ExistsTodoListTitle(ctx, title)
				if err != nil {
					return err
				}
				if exists {
					return errTitleTaken
				}
				updated, err := p.SetTodoListTitle(ctx, ids[0], title)
				if err != nil {
					return err
				}
				if !updated {
					return notFound("todo list")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Todo list updated.")
				return nil
			})
		},
	}
}

func listDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <list-id>",
		Short: "Delete a todo list and its todos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, p todo.Persistence) error {
				deleted, err := p.DeleteTodoList(ctx, ids[0])
				if err != nil {
					return err
				}
				if !deleted {
					return notFound("todo list")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Todo list deleted.")
				return nil
			})
		},
	}
}

func listCompleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <list-id>",
		Short: "Mark every todo of a list as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[0])
			if err != nil {
				return err
			}
			return a.run(cmd, func(ctx context.Context, p todo.Persistence) error {
				updated, err := p.CompleteAllTodos(ctx, ids[0])
				if err != nil {
					return err
				}
				if !updated {
					return notFound("open todos")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All todos have been marked as done.")
				return nil
			})
		},
	}
}
