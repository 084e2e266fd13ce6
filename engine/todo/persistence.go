package todo

import "context"

// Persistence is the per-user data access surface consumed by the outer
// layers. Every operation is scoped to the session's user.
type Persistence interface {
	Authenticate(ctx context.Context, username, password string) (bool, error)
	CompleteAllTodos(ctx context.Context, listID int64) (bool, error)
	CreateTodo(ctx context.Context, listID int64, title string) (bool, error)
	CreateTodoList(ctx context.Context, title string) (bool, error)
	DeleteTodo(ctx context.Context, listID, todoID int64) (bool, error)
	DeleteTodoList(ctx context.Context, listID int64) (bool, error)
	ExistsTodoListTitle(ctx context.Context, title string) (bool, error)
	HasUndoneTodos(list *TodoList) bool
	IsDoneTodoList(list *TodoList) bool
	LoadTodo(ctx context.Context, listID, todoID int64) (*Todo, error)
	LoadTodoList(ctx context.Context, listID int64) (*TodoList, error)
	SetTodoListTitle(ctx context.Context, listID int64, title string) (bool, error)
	SortedTodoLists(ctx context.Context) ([]*TodoList, error)
	SortedTodos(ctx context.Context, list *TodoList) ([]*Todo, error)
	ToggleTodo(ctx context.Context, listID, todoID int64) (bool, error)
}
