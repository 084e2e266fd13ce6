package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/todolists/todolists/engine/todo"
)

var (
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Strikethrough(true)
	openStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

func marker(done bool) string {
	if done {
		return doneStyle.Render("[x]")
	}
	return openStyle.Render("[ ]")
}

func styledTitle(title string, done bool) string {
	if done {
		return doneStyle.Render(title)
	}
	return openStyle.Render(title)
}

func countDone(todos []*todo.Todo) int {
	n := 0
	for _, t := range todos {
		if t.Done {
			n++
		}
	}
	return n
}

func printTodoLists(w io.Writer, p todo.Persistence, lists []*todo.TodoList) {
	if len(lists) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No todo lists yet."))
		return
	}
	for _, l := range lists {
		done := p.IsDoneTodoList(l)
		fmt.Fprintf(w, "%s %3d  %s  %s\n",
			marker(done), l.ID, styledTitle(l.Title, done),
			mutedStyle.Render(fmt.Sprintf("%d/%d", countDone(l.Todos), len(l.Todos))),
		)
	}
}

func printTodoList(w io.Writer, p todo.Persistence, list *todo.TodoList, todos []*todo.Todo) {
	fmt.Fprintln(w, headerStyle.Render(list.Title))
	if len(todos) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("There are no todos on this list."))
		return
	}
	for _, t := range todos {
		printTodo(w, t)
	}
	switch {
	case p.IsDoneTodoList(list):
		fmt.Fprintln(w, doneStyle.Render("All done."))
	case p.HasUndoneTodos(list):
		open := len(todos) - countDone(todos)
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%d of %d open", open, len(todos))))
	}
}

func printTodo(w io.Writer, t *todo.Todo) {
	fmt.Fprintf(w, "%s %3d  %s\n", marker(t.Done), t.ID, styledTitle(t.Title, t.Done))
}
