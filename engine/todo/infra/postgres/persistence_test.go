package postgres_test

import (
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	pgstore "github.com/todolists/todolists/engine/infra/postgres"
	"github.com/todolists/todolists/engine/todo"
	"github.com/todolists/todolists/engine/todo/infra/postgres"
	"github.com/todolists/todolists/pkg/logger"
)

const (
	selectPassword   = "SELECT password FROM users WHERE username = $1"
	selectList       = "SELECT * FROM todolists WHERE id = $1 AND username = $2"
	selectListTodos  = "SELECT * FROM todos WHERE todolist_id = $1 AND username = $2"
	selectAllLists   = "SELECT * FROM todolists WHERE username = $1 ORDER BY lower(title) ASC"
	selectAllTodos   = "SELECT * FROM todos WHERE username = $1"
	selectSorted     = "SELECT * FROM todos WHERE todolist_id = $1 AND username = $2 ORDER BY done ASC, lower(title) ASC"
	selectTodo       = "SELECT * FROM todos WHERE todolist_id = $1 AND id = $2 AND username = $3"
	selectByTitle    = "SELECT * FROM todolists WHERE title = $1 AND username = $2"
	insertTodo       = "INSERT INTO todos (todolist_id,title,username) VALUES ($1,$2,$3)"
	insertList       = "INSERT INTO todolists (title,username) VALUES ($1,$2)"
	completeAll      = "UPDATE todos SET done = true WHERE todolist_id = $1 AND done = false AND username = $2"
	toggleTodo       = "UPDATE todos SET done = NOT done WHERE todolist_id = $1 AND id = $2 AND username = $3"
	renameList       = "UPDATE todolists SET title = $1 WHERE id = $2 AND username = $3"
	deleteTodo       = "DELETE FROM todos WHERE todolist_id = $1 AND id = $2 AND username = $3"
	deleteList       = "DELETE FROM todolists WHERE id = $1 AND username = $2"
	sessionUsername  = "alice"
	otherUsersListID = int64(99)
)

var (
	listColumns = []string{"id", "title", "username"}
	todoColumns = []string{"id", "title", "done", "todolist_id", "username"}
)

func sql(statement string) string {
	return "^" + regexp.QuoteMeta(statement) + "$"
}

func newPersistence(t *testing.T) (pgxmock.PgxPoolIface, *postgres.PgPersistence) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	exec := pgstore.NewExecutor(
		pgstore.QuerierAcquirer(mock),
		pgstore.WithLogger(logger.NewLogger(logger.TestConfig())),
	)
	return mock, postgres.NewPgPersistence(todo.UserSession(sessionUsername), exec)
}

func tag(mock pgxmock.PgxPoolIface, commandTag string) *pgxmock.Rows {
	return mock.NewRows([]string{}).AddCommandTag(pgconn.NewCommandTag(commandTag))
}

func listWith(todos ...*todo.Todo) *todo.TodoList {
	return &todo.TodoList{ID: 1, Title: "List", Username: sessionUsername, Todos: todos}
}

func TestPgPersistence_Authenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("Should accept the exact password of an existing user", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(selectPassword)).
			WithArgs("bob").
			WillReturnRows(mock.NewRows([]string{"password"}).AddRow(string(hash)))
		ok, err := repo.Authenticate(t.Context(), "bob", "correct horse")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should reject a wrong password", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(selectPassword)).
			WithArgs("bob").
			WillReturnRows(mock.NewRows([]string{"password"}).AddRow(string(hash)))
		ok, err := repo.Authenticate(t.Context(), "bob", "Correct horse")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Should reject an unknown user the same way", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(selectPassword)).
			WithArgs("mallory").
			WillReturnRows(mock.NewRows([]string{"password"}))
		ok, err := repo.Authenticate(t.Context(), "mallory", "correct horse")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Should reject an empty username without querying", func(t *testing.T) {
		mock, repo := newPersistence(t)
		ok, err := repo.Authenticate(t.Context(), "", "anything")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should surface store failures", func(t *testing.T) {
		mock, repo := newPersistence(t)
		boom := errors.New("connection refused")
		mock.ExpectQuery(sql(selectPassword)).WithArgs("bob").WillReturnError(boom)
		_, err := repo.Authenticate(t.Context(), "bob", "correct horse")
		assert.ErrorIs(t, err, boom)
	})
}

func TestPgPersistence_CompleteAllTodos(t *testing.T) {
	t.Run("Should report true when todos were updated", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(completeAll)).
			WithArgs(int64(1), sessionUsername).
			WillReturnRows(tag(mock, "UPDATE 2"))
		ok, err := repo.CompleteAllTodos(t.Context(), 1)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should report false when nothing was open", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(completeAll)).
			WithArgs(int64(1), sessionUsername).
			WillReturnRows(tag(mock, "UPDATE 0"))
		ok, err := repo.CompleteAllTodos(t.Context(), 1)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestPgPersistence_CreateTodo(t *testing.T) {
	t.Run("Should insert into an existing list", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.MatchExpectationsInOrder(false)
		mock.ExpectQuery(sql(selectList)).
			WithArgs(int64(1), sessionUsername).
			WillReturnRows(mock.NewRows(listColumns).AddRow(int32(1), "Groceries", sessionUsername))
		mock.ExpectQuery(sql(selectListTodos)).
			WithArgs(int64(1), sessionUsername).
			WillReturnRows(mock.NewRows(todoColumns))
		mock.ExpectQuery(sql(insertTodo)).
			WithArgs(int64(1), "Milk", sessionUsername).
			WillReturnRows(tag(mock, "INSERT 0 1"))
		ok, err := repo.CreateTodo(t.Context(), 1, "Milk")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should fail with not found and skip the insert", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.MatchExpectationsInOrder(false)
		mock.ExpectQuery(sql(selectList)).
			WithArgs(otherUsersListID, sessionUsername).
			WillReturnRows(mock.NewRows(listColumns))
		mock.ExpectQuery(sql(selectListTodos)).
			WithArgs(otherUsersListID, sessionUsername).
			WillReturnRows(mock.NewRows(todoColumns))
		ok, err := repo.CreateTodo(t.Context(), otherUsersListID, "Milk")
		assert.ErrorIs(t, err, todo.ErrNotFound)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgPersistence_CreateTodoList(t *testing.T) {
	t.Run("Should create a list with a fresh title", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(insertList)).
			WithArgs("Groceries", sessionUsername).
			WillReturnRows(tag(mock, "INSERT 0 1"))
		ok, err := repo.CreateTodoList(t.Context(), "Groceries")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Should return false on a duplicate title", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(insertList)).
			WithArgs("Groceries", sessionUsername).
			WillReturnError(&pgconn.PgError{
				Code:           "23505",
				Message:        `duplicate key value violates unique constraint "todolists_title_username_key"`,
				ConstraintName: "todolists_title_username_key",
			})
		ok, err := repo.CreateTodoList(t.Context(), "Groceries")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Should propagate other constraint errors", func(t *testing.T) {
		mock, repo := newPersistence(t)
		fk := &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}
		mock.ExpectQuery(sql(insertList)).
			WithArgs("Groceries", sessionUsername).
			WillReturnError(fk)
		ok, err := repo.CreateTodoList(t.Context(), "Groceries")
		assert.False(t, ok)
		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.Equal(t, "23503", pgErr.Code)
	})
}

func TestPgPersistence_Delete(t *testing.T) {
	t.Run("Should delete an existing todo", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(deleteTodo)).
			WithArgs(int64(1), int64(4), sessionUsername).
			WillReturnRows(tag(mock, "DELETE 1"))
		ok, err := repo.DeleteTodo(t.Context(), 1, 4)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Should report false for a todo of another user", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(deleteTodo)).
			WithArgs(otherUsersListID, int64(4), sessionUsername).
			WillReturnRows(tag(mock, "DELETE 0"))
		ok, err := repo.DeleteTodo(t.Context(), otherUsersListID, 4)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Should delete an existing list", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(deleteList)).
			WithArgs(int64(1), sessionUsername).
			WillReturnRows(tag(mock, "DELETE 1"))
		ok, err := repo.DeleteTodoList(t.Context(), 1)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Should report false for a missing list", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(deleteList)).
			WithArgs(int64(2), sessionUsername).
			WillReturnRows(tag(mock, "DELETE 0"))
		ok, err := repo.DeleteTodoList(t.Context(), 2)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestPgPersistence_ExistsTodoListTitle(t *testing.T) {
	t.Run("Should find an existing title", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(selectByTitle)).
			WithArgs("Groceries", sessionUsername).
			WillReturnRows(mock.NewRows(listColumns).AddRow(int32(1), "Groceries", sessionUsername))
		ok, err := repo.ExistsTodoListTitle(t.Context(), "Groceries")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Should not find a missing title", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(selectByTitle)).
			WithArgs("Work", sessionUsername).
			WillReturnRows(mock.NewRows(listColumns))
		ok, err := repo.ExistsTodoListTitle(t.Context(), "Work")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestPgPersistence_Predicates(t *testing.T) {
	_, repo := newPersistence(t)
	done := &todo.Todo{ID: 1, Title: "a", Done: true}
	open := &todo.Todo{ID: 2, Title: "b"}

	t.Run("Should treat an empty list as not done and without undone todos", func(t *testing.T) {
		empty := listWith()
		assert.False(t, repo.IsDoneTodoList(empty))
		assert.False(t, repo.HasUndoneTodos(empty))
	})

	t.Run("Should treat a fully completed list as done", func(t *testing.T) {
		list := listWith(done)
		assert.True(t, repo.IsDoneTodoList(list))
		assert.False(t, repo.HasUndoneTodos(list))
	})

	t.Run("Should treat a mixed list as open", func(t *testing.T) {
		list := listWith(done, open)
		assert.False(t, repo.IsDoneTodoList(list))
		assert.True(t, repo.HasUndoneTodos(list))
	})
}

func TestPgPersistence_LoadTodo(t *testing.T) {
	t.Run("Should load a todo", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(selectTodo)).
			WithArgs(int64(1), int64(7), sessionUsername).
			WillReturnRows(mock.NewRows(todoColumns).AddRow(int32(7), "Milk", true, int32(1), sessionUsername))
		got, err := repo.LoadTodo(t.Context(), 1, 7)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, &todo.Todo{ID: 7, Title: "Milk", Done: true, TodoListID: 1, Username: sessionUsername}, got)
	})

	t.Run("Should return nil when absent", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(selectTodo)).
			WithArgs(int64(1), int64(8), sessionUsername).
			WillReturnRows(mock.NewRows(todoColumns))
		got, err := repo.LoadTodo(t.Context(), 1, 8)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestPgPersistence_LoadTodoList(t *testing.T) {
	t.Run("Should merge header and todos", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.MatchExpectationsInOrder(false)
		mock.ExpectQuery(sql(selectList)).
			WithArgs(int64(1), sessionUsername).
			WillReturnRows(mock.NewRows(listColumns).AddRow(int32(1), "Groceries", sessionUsername))
		mock.ExpectQuery(sql(selectListTodos)).
			WithArgs(int64(1), sessionUsername).
			WillReturnRows(mock.NewRows(todoColumns).
				AddRow(int32(1), "Milk", false, int32(1), sessionUsername).
				AddRow(int32(2), "Eggs", true, int32(1), sessionUsername))
		list, err := repo.LoadTodoList(t.Context(), 1)
		require.NoError(t, err)
		require.NotNil(t, list)
		assert.Equal(t, int64(1), list.ID)
		assert.Equal(t, "Groceries", list.Title)
		require.Len(t, list.Todos, 2)
		assert.Equal(t, "Milk", list.Todos[0].Title)
		assert.True(t, list.Todos[1].Done)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should return nil when the header is missing even with todos", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.MatchExpectationsInOrder(false)
		mock.ExpectQuery(sql(selectList)).
			WithArgs(int64(5), sessionUsername).
			WillReturnRows(mock.NewRows(listColumns))
		mock.ExpectQuery(sql(selectListTodos)).
			WithArgs(int64(5), sessionUsername).
			WillReturnRows(mock.NewRows(todoColumns).AddRow(int32(1), "Orphan", false, int32(5), sessionUsername))
		list, err := repo.LoadTodoList(t.Context(), 5)
		require.NoError(t, err)
		assert.Nil(t, list)
	})

	t.Run("Should return an empty todo slice for an empty list", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.MatchExpectationsInOrder(false)
		mock.ExpectQuery(sql(selectList)).
			WithArgs(int64(1), sessionUsername).
			WillReturnRows(mock.NewRows(listColumns).AddRow(int32(1), "Empty", sessionUsername))
		mock.ExpectQuery(sql(selectListTodos)).
			WithArgs(int64(1), sessionUsername).
			WillReturnRows(mock.NewRows(todoColumns))
		list, err := repo.LoadTodoList(t.Context(), 1)
		require.NoError(t, err)
		require.NotNil(t, list)
		assert.NotNil(t, list.Todos)
		assert.Empty(t, list.Todos)
		assert.False(t, repo.IsDoneTodoList(list))
	})

	t.Run("Should fail when either query fails", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.MatchExpectationsInOrder(false)
		boom := errors.New("todos query failed")
		mock.ExpectQuery(sql(selectList)).
			WithArgs(int64(1), sessionUsername).
			WillReturnRows(mock.NewRows(listColumns).AddRow(int32(1), "Groceries", sessionUsername))
		mock.ExpectQuery(sql(selectListTodos)).
			WithArgs(int64(1), sessionUsername).
			WillReturnError(boom)
		list, err := repo.LoadTodoList(t.Context(), 1)
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, list)
	})
}

func TestPgPersistence_SetTodoListTitle(t *testing.T) {
	t.Run("Should rename an existing list", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(renameList)).
			WithArgs("Shopping", int64(1), sessionUsername).
			WillReturnRows(tag(mock, "UPDATE 1"))
		ok, err := repo.SetTodoListTitle(t.Context(), 1, "Shopping")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Should report false for a list of another user", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(renameList)).
			WithArgs("Shopping", otherUsersListID, sessionUsername).
			WillReturnRows(tag(mock, "UPDATE 0"))
		ok, err := repo.SetTodoListTitle(t.Context(), otherUsersListID, "Shopping")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestPgPersistence_SortedTodoLists(t *testing.T) {
	t.Run("Should attach todos and move done lists last in query order", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.MatchExpectationsInOrder(false)
		mock.ExpectQuery(sql(selectAllLists)).
			WithArgs(sessionUsername).
			WillReturnRows(mock.NewRows(listColumns).
				AddRow(int32(1), "Alpha", sessionUsername).
				AddRow(int32(2), "beta", sessionUsername).
				AddRow(int32(3), "Charlie", sessionUsername).
				AddRow(int32(4), "delta", sessionUsername))
		mock.ExpectQuery(sql(selectAllTodos)).
			WithArgs(sessionUsername).
			WillReturnRows(mock.NewRows(todoColumns).
				AddRow(int32(10), "a1", true, int32(1), sessionUsername).
				AddRow(int32(11), "b1", false, int32(2), sessionUsername).
				AddRow(int32(12), "b2", true, int32(2), sessionUsername).
				AddRow(int32(13), "d1", true, int32(4), sessionUsername))
		lists, err := repo.SortedTodoLists(t.Context())
		require.NoError(t, err)
		titles := make([]string, 0, len(lists))
		for _, l := range lists {
			titles = append(titles, l.Title)
		}
		assert.Equal(t, []string{"beta", "Charlie", "Alpha", "delta"}, titles)
		assert.Len(t, lists[0].Todos, 2)
		assert.Empty(t, lists[1].Todos)
		assert.Len(t, lists[2].Todos, 1)
		assert.Equal(t, int64(13), lists[3].Todos[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should return an empty slice for a user without lists", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.MatchExpectationsInOrder(false)
		mock.ExpectQuery(sql(selectAllLists)).WithArgs(sessionUsername).WillReturnRows(mock.NewRows(listColumns))
		mock.ExpectQuery(sql(selectAllTodos)).WithArgs(sessionUsername).WillReturnRows(mock.NewRows(todoColumns))
		lists, err := repo.SortedTodoLists(t.Context())
		require.NoError(t, err)
		assert.NotNil(t, lists)
		assert.Empty(t, lists)
	})
}

func TestPgPersistence_SortedTodos(t *testing.T) {
	t.Run("Should return todos in store order", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(selectSorted)).
			WithArgs(int64(1), sessionUsername).
			WillReturnRows(mock.NewRows(todoColumns).
				AddRow(int32(2), "apples", false, int32(1), sessionUsername).
				AddRow(int32(1), "Bread", false, int32(1), sessionUsername).
				AddRow(int32(3), "cheese", true, int32(1), sessionUsername))
		todos, err := repo.SortedTodos(t.Context(), listWith())
		require.NoError(t, err)
		require.Len(t, todos, 3)
		assert.Equal(t, "apples", todos[0].Title)
		assert.Equal(t, "Bread", todos[1].Title)
		assert.True(t, todos[2].Done)
	})

	t.Run("Should return no todos for a nil list without querying", func(t *testing.T) {
		mock, repo := newPersistence(t)
		todos, err := repo.SortedTodos(t.Context(), nil)
		require.NoError(t, err)
		assert.NotNil(t, todos)
		assert.Empty(t, todos)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgPersistence_ToggleTodo(t *testing.T) {
	t.Run("Should flip the done flag in place", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(toggleTodo)).
			WithArgs(int64(1), int64(7), sessionUsername).
			WillReturnRows(tag(mock, "UPDATE 1"))
		ok, err := repo.ToggleTodo(t.Context(), 1, 7)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Should report false for a missing todo", func(t *testing.T) {
		mock, repo := newPersistence(t)
		mock.ExpectQuery(sql(toggleTodo)).
			WithArgs(otherUsersListID, int64(7), sessionUsername).
			WillReturnRows(tag(mock, "UPDATE 0"))
		ok, err := repo.ToggleTodo(t.Context(), otherUsersListID, 7)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestNewPgPersistence(t *testing.T) {
	t.Run("Should scope to the session user", func(t *testing.T) {
		_, repo := newPersistence(t)
		assert.Equal(t, sessionUsername, repo.Username())
	})
}
