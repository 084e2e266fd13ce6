package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Masterminds/squirrel"
	"github.com/go-viper/mapstructure/v2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	pgstore "github.com/todolists/todolists/engine/infra/postgres"
	"github.com/todolists/todolists/engine/todo"
	"github.com/todolists/todolists/pkg/logger"
)

// Executor runs a single parameterized statement and returns its raw result.
type Executor interface {
	Execute(ctx context.Context, statement string, params ...any) (*pgstore.ResultSet, error)
}

// PgPersistence implements todo.Persistence for one authenticated user.
type PgPersistence struct {
	username string
	exec     Executor
}

var _ todo.Persistence = (*PgPersistence)(nil)

// NewPgPersistence binds the persistence layer to the session's user.
func NewPgPersistence(session todo.Session, exec Executor) *PgPersistence {
	return &PgPersistence{username: session.Username(), exec: exec}
}

// Username returns the user every statement is scoped to.
func (p *PgPersistence) Username() string { return p.username }

// dummyHash keeps the unknown-user path as slow as a real comparison.
var dummyHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("todolists-timing-guard"), bcrypt.DefaultCost)
	if err != nil {
		return nil
	}
	return hash
})

// Authenticate checks the password against the stored bcrypt hash. Unknown
// users and wrong passwords both yield false.
func (p *PgPersistence) Authenticate(ctx context.Context, username, password string) (bool, error) {
	if username == "" {
		return false, nil
	}
	query, args, err := squirrel.Select("password").
		From("users").
		Where(squirrel.Eq{"username": username}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building select query: %w", err)
	}
	result, err := p.exec.Execute(ctx, query, args...)
	if err != nil {
		return false, err
	}
	var user todo.User
	if row := result.First(); row != nil {
		if err := decode(row, &user); err != nil {
			return false, fmt.Errorf("decoding user: %w", err)
		}
	}
	if user.Password == "" {
		//nolint:errcheck // comparison only equalizes timing
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return false, nil
	}
	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		logger.FromContext(ctx).Warn("Stored password hash is unusable", "username", username, "err", err)
		return false, nil
	}
}

// CompleteAllTodos marks every open todo of the list as done. It returns true
// when at least one todo changed.
func (p *PgPersistence) CompleteAllTodos(ctx context.Context, listID int64) (bool, error) {
	query, args, err := squirrel.Update("todos").
		Set("done", squirrel.Expr("true")).
		Where(squirrel.Eq{"todolist_id": listID}).
		Where("done = false").
		Where(squirrel.Eq{"username": p.username}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building update query: %w", err)
	}
	return p.affected(ctx, query, args)
}

// CreateTodo appends a todo to an existing list. A missing list yields
// todo.ErrNotFound and nothing is inserted.
func (p *PgPersistence) CreateTodo(ctx context.Context, listID int64, title string) (bool, error) {
	list, err := p.LoadTodoList(ctx, listID)
	if err != nil {
		return false, err
	}
	if list == nil {
		return false, todo.ErrNotFound
	}
	query, args, err := squirrel.Insert("todos").
		Columns("todolist_id", "title", "username").
		Values(listID, title, p.username).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building insert query: %w", err)
	}
	return p.affected(ctx, query, args)
}

// CreateTodoList inserts a new list. A duplicate title returns false.
func (p *PgPersistence) CreateTodoList(ctx context.Context, title string) (bool, error) {
	query, args, err := squirrel.Insert("todolists").
		Columns("title", "username").
		Values(title, p.username).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building insert query: %w", err)
	}
	created, err := p.affected(ctx, query, args)
	if err != nil {
		if pgstore.IsUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return created, nil
}

// DeleteTodo removes one todo from a list.
func (p *PgPersistence) DeleteTodo(ctx context.Context, listID, todoID int64) (bool, error) {
	query, args, err := squirrel.Delete("todos").
		Where(squirrel.Eq{"todolist_id": listID}).
		Where(squirrel.Eq{"id": todoID}).
		Where(squirrel.Eq{"username": p.username}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building delete query: %w", err)
	}
	return p.affected(ctx, query, args)
}

// DeleteTodoList removes a list. Its todos go with it through the schema's
// cascade.
func (p *PgPersistence) DeleteTodoList(ctx context.Context, listID int64) (bool, error) {
	query, args, err := squirrel.Delete("todolists").
		Where(squirrel.Eq{"id": listID}).
		Where(squirrel.Eq{"username": p.username}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building delete query: %w", err)
	}
	return p.affected(ctx, query, args)
}

// ExistsTodoListTitle reports whether the user already has a list titled title.
func (p *PgPersistence) ExistsTodoListTitle(ctx context.Context, title string) (bool, error) {
	query, args, err := squirrel.Select("*").
		From("todolists").
		Where(squirrel.Eq{"title": title}).
		Where(squirrel.Eq{"username": p.username}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building select query: %w", err)
	}
	return p.affected(ctx, query, args)
}

// HasUndoneTodos expects list.Todos to be loaded.
func (p *PgPersistence) HasUndoneTodos(list *todo.TodoList) bool {
	return list.HasUndone()
}

// IsDoneTodoList expects list.Todos to be loaded.
func (p *PgPersistence) IsDoneTodoList(list *todo.TodoList) bool {
	return list.IsDone()
}

// LoadTodo returns nil when the todo does not exist for this user and list.
func (p *PgPersistence) LoadTodo(ctx context.Context, listID, todoID int64) (*todo.Todo, error) {
	query, args, err := squirrel.Select("*").
		From("todos").
		Where(squirrel.Eq{"todolist_id": listID}).
		Where(squirrel.Eq{"id": todoID}).
		Where(squirrel.Eq{"username": p.username}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	result, err := p.exec.Execute(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	row := result.First()
	if row == nil {
		return nil, nil
	}
	var t todo.Todo
	if err := decode(row, &t); err != nil {
		return nil, fmt.Errorf("decoding todo: %w", err)
	}
	return &t, nil
}

// LoadTodoList fetches the list header and its todos concurrently. The two
// reads are not atomic with respect to concurrent writers. It returns nil
// when the header is missing.
func (p *PgPersistence) LoadTodoList(ctx context.Context, listID int64) (*todo.TodoList, error) {
	listQuery, listArgs, err := squirrel.Select("*").
		From("todolists").
		Where(squirrel.Eq{"id": listID}).
		Where(squirrel.Eq{"username": p.username}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	todosQuery, todosArgs, err := squirrel.Select("*").
		From("todos").
		Where(squirrel.Eq{"todolist_id": listID}).
		Where(squirrel.Eq{"username": p.username}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	listResult, todosResult, err := p.executePair(ctx, listQuery, listArgs, todosQuery, todosArgs)
	if err != nil {
		return nil, err
	}
	row := listResult.First()
	if row == nil {
		return nil, nil
	}
	var list todo.TodoList
	if err := decode(row, &list); err != nil {
		return nil, fmt.Errorf("decoding todo list: %w", err)
	}
	list.Todos = make([]*todo.Todo, 0, len(todosResult.Rows))
	if err := decode(todosResult.Rows, &list.Todos); err != nil {
		return nil, fmt.Errorf("decoding todos: %w", err)
	}
	return &list, nil
}

// SetTodoListTitle renames a list.
func (p *PgPersistence) SetTodoListTitle(ctx context.Context, listID int64, title string) (bool, error) {
	query, args, err := squirrel.Update("todolists").
		Set("title", title).
		Where(squirrel.Eq{"id": listID}).
		Where(squirrel.Eq{"username": p.username}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building update query: %w", err)
	}
	return p.affected(ctx, query, args)
}

// SortedTodoLists returns every list of the user with its todos attached,
// open lists first and done lists last, each group ordered by lowercased
// title.
func (p *PgPersistence) SortedTodoLists(ctx context.Context) ([]*todo.TodoList, error) {
	listsQuery, listsArgs, err := squirrel.Select("*").
		From("todolists").
		Where(squirrel.Eq{"username": p.username}).
		OrderBy("lower(title) ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	todosQuery, todosArgs, err := squirrel.Select("*").
		From("todos").
		Where(squirrel.Eq{"username": p.username}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	listsResult, todosResult, err := p.executePair(ctx, listsQuery, listsArgs, todosQuery, todosArgs)
	if err != nil {
		return nil, err
	}
	lists := make([]*todo.TodoList, 0, len(listsResult.Rows))
	if err := decode(listsResult.Rows, &lists); err != nil {
		return nil, fmt.Errorf("decoding todo lists: %w", err)
	}
	todos := make([]*todo.Todo, 0, len(todosResult.Rows))
	if err := decode(todosResult.Rows, &todos); err != nil {
		return nil, fmt.Errorf("decoding todos: %w", err)
	}
	for _, list := range lists {
		list.Todos = make([]*todo.Todo, 0)
		for _, t := range todos {
			if t.TodoListID == list.ID {
				list.Todos = append(list.Todos, t)
			}
		}
	}
	return todo.PartitionTodoLists(lists), nil
}

// SortedTodos returns the list's todos ordered by the store: undone before
// done, then by lowercased title. A nil list has no todos.
func (p *PgPersistence) SortedTodos(ctx context.Context, list *todo.TodoList) ([]*todo.Todo, error) {
	if list == nil {
		return []*todo.Todo{}, nil
	}
	query, args, err := squirrel.Select("*").
		From("todos").
		Where(squirrel.Eq{"todolist_id": list.ID}).
		Where(squirrel.Eq{"username": p.username}).
		OrderBy("done ASC", "lower(title) ASC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}
	result, err := p.exec.Execute(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	todos := make([]*todo.Todo, 0, len(result.Rows))
	if err := decode(result.Rows, &todos); err != nil {
		return nil, fmt.Errorf("decoding todos: %w", err)
	}
	return todos, nil
}

// ToggleTodo flips the done flag in a single statement.
func (p *PgPersistence) ToggleTodo(ctx context.Context, listID, todoID int64) (bool, error) {
	query, args, err := squirrel.Update("todos").
		Set("done", squirrel.Expr("NOT done")).
		Where(squirrel.Eq{"todolist_id": listID}).
		Where(squirrel.Eq{"id": todoID}).
		Where(squirrel.Eq{"username": p.username}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building update query: %w", err)
	}
	return p.affected(ctx, query, args)
}

func (p *PgPersistence) affected(ctx context.Context, query string, args []any) (bool, error) {
	result, err := p.exec.Execute(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return result.RowCount > 0, nil
}

// executePair issues both statements before waiting on either.
func (p *PgPersistence) executePair(
	ctx context.Context,
	firstQuery string,
	firstArgs []any,
	secondQuery string,
	secondArgs []any,
) (*pgstore.ResultSet, *pgstore.ResultSet, error) {
	var first, second *pgstore.ResultSet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		first, err = p.exec.Execute(gctx, firstQuery, firstArgs...)
		return err
	})
	g.Go(func() error {
		var err error
		second, err = p.exec.Execute(gctx, secondQuery, secondArgs...)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return first, second, nil
}

func decode(input any, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "db",
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
