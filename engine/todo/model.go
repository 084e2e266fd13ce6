package todo

// User is an account that owns todo lists. Password holds a bcrypt hash.
type User struct {
	Username string `db:"username" json:"username"`
	Password string `db:"password" json:"-"`
}

// TodoList is a titled collection of todos owned by one user.
// Todos is filled by the read operations that need it and is never persisted.
type TodoList struct {
	ID       int64   `db:"id"       json:"id"`
	Title    string  `db:"title"    json:"title"`
	Username string  `db:"username" json:"username"`
	Todos    []*Todo `db:"-"        json:"todos,omitempty"`
}

// Todo is a single entry of a TodoList.
type Todo struct {
	ID         int64  `db:"id"          json:"id"`
	Title      string `db:"title"       json:"title"`
	Done       bool   `db:"done"        json:"done"`
	TodoListID int64  `db:"todolist_id" json:"todolist_id"`
	Username   string `db:"username"    json:"username"`
}

// IsDone reports whether the list has at least one todo and all are done.
func (l *TodoList) IsDone() bool {
	if l == nil || len(l.Todos) == 0 {
		return false
	}
	for _, t := range l.Todos {
		if !t.Done {
			return false
		}
	}
	return true
}

// HasUndone reports whether any todo of the list is still open.
func (l *TodoList) HasUndone() bool {
	if l == nil {
		return false
	}
	for _, t := range l.Todos {
		if !t.Done {
			return true
		}
	}
	return false
}

// PartitionTodoLists returns the lists that are not done followed by the done
// ones, each group keeping its input order.
func PartitionTodoLists(lists []*TodoList) []*TodoList {
	return partition(lists, (*TodoList).IsDone)
}

// PartitionTodos splits the list's todos into undone then done, stably.
func PartitionTodos(list *TodoList) []*Todo {
	if list == nil {
		return []*Todo{}
	}
	return partition(list.Todos, func(t *Todo) bool { return t.Done })
}

func partition[T any](items []T, done func(T) bool) []T {
	out := make([]T, 0, len(items))
	var finished []T
	for _, item := range items {
		if done(item) {
			finished = append(finished, item)
			continue
		}
		out = append(out, item)
	}
	return append(out, finished...)
}
