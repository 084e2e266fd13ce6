package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/todolists/todolists/engine/infra/postgres"
	"github.com/todolists/todolists/engine/todo"
	pgtodo "github.com/todolists/todolists/engine/todo/infra/postgres"
	"github.com/todolists/todolists/pkg/config"
	"github.com/todolists/todolists/pkg/logger"
)

var errNoUser = errors.New("no user given: pass --user or set " + userEnvVar)

// PersistenceFactory opens a persistence layer for user. The returned func
// releases whatever the layer holds.
type PersistenceFactory func(ctx context.Context, cfg *config.Config, user string) (todo.Persistence, func(), error)

// StoreChecker verifies that the configured database answers.
type StoreChecker func(ctx context.Context, cfg *config.Config) error

type app struct {
	open  PersistenceFactory
	check StoreChecker
}

// run opens one persistence layer for the session user and hands it to fn.
func (a *app) run(cmd *cobra.Command, fn func(ctx context.Context, p todo.Persistence) error) error {
	user, err := resolveUser(cmd)
	if err != nil {
		return err
	}
	return a.runAs(cmd, user, fn)
}

func (a *app) runAs(cmd *cobra.Command, user string, fn func(ctx context.Context, p todo.Persistence) error) error {
	ctx := cmd.Context()
	p, release, err := a.open(ctx, config.FromContext(ctx), user)
	if err != nil {
		return err
	}
	defer release()
	return fn(ctx, p)
}

func resolveUser(cmd *cobra.Command) (string, error) {
	user, err := cmd.Flags().GetString("user")
	if err != nil {
		return "", fmt.Errorf("failed to get user flag: %w", err)
	}
	if user == "" {
		user = os.Getenv(userEnvVar)
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return "", errNoUser
	}
	return user, nil
}

func openPersistence(ctx context.Context, cfg *config.Config, user string) (todo.Persistence, func(), error) {
	store, err := postgres.NewStore(ctx, postgres.ConfigFromApp(&cfg.Database))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	release := func() {
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			logger.FromContext(ctx).Warn("Failed to close store", "error", err)
		}
	}
	exec := postgres.NewExecutor(store)
	return pgtodo.NewPgPersistence(todo.UserSession(user), exec), release, nil
}

func checkStore(ctx context.Context, cfg *config.Config) error {
	store, err := postgres.NewStore(ctx, postgres.ConfigFromApp(&cfg.Database))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			logger.FromContext(ctx).Warn("Failed to close store", "error", err)
		}
	}()
	return store.HealthCheck(ctx)
}

func parseIDs(raw ...string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, r := range raw {
		id, err := todo.ParseID(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, todo.ErrNotFound)
}
