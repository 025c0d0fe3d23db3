package components

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/pthm/hxwire"
	"github.com/pthm/hxwire/lib/typecast"
)

// Todo is a single todo item.
type Todo struct {
	ID    int
	Title string
	Done  bool
}

// TodoStore is the persistence the todo list needs.
type TodoStore interface {
	List(owner string) []Todo
	Add(owner, title string) Todo
	Toggle(owner string, id int) bool
}

// TodoList is a per-visitor todo list. The owner is sealed: the browser
// carries it but cannot read or change it.
type TodoList struct {
	*hxwire.Base
	store TodoStore
}

// NewTodoList creates a todo list instance. The store is provided by the
// engine's resolver at boot.
func NewTodoList() hxwire.Component {
	c := &TodoList{Base: hxwire.NewBase("todos")}
	c.Set("draft", "")
	c.Action("add", c.add)
	c.Action("toggle", c.toggle).Params(
		typecast.Param{Name: "id", Kind: typecast.Int},
	)
	c.Listen("todos:refresh", "refresh")
	c.Action("refresh", func(context.Context, typecast.Args) error { return nil })
	return c
}

func (c *TodoList) BootSignature() typecast.Signature {
	return typecast.Signature{{Name: "store"}}
}

func (c *TodoList) Boot(ctx context.Context, args typecast.Args) error {
	v, _ := args.Value("store")
	store, ok := v.(TodoStore)
	if !ok {
		return fmt.Errorf("todos: store is %T", v)
	}
	c.store = store
	return nil
}

func (c *TodoList) MountSignature() typecast.Signature {
	return typecast.Signature{{Name: "owner", Kind: typecast.String}}
}

func (c *TodoList) Mount(ctx context.Context, args typecast.Args) error {
	c.Seal("owner", args.String("owner"))
	return nil
}

func (c *TodoList) owner() string {
	s, _ := c.Unsealed("owner").(string)
	return s
}

func (c *TodoList) add(ctx context.Context, args typecast.Args) error {
	title := strings.TrimSpace(c.String("draft"))
	if title == "" {
		c.ErrorBag().Add("draft", "Title is required")
		return nil
	}
	c.ErrorBag().Clear()
	todo := c.store.Add(c.owner(), title)
	c.Set("draft", "")
	c.Emit("todo:added", todo.ID)
	return nil
}

func (c *TodoList) toggle(ctx context.Context, args typecast.Args) error {
	if !c.store.Toggle(c.owner(), args.Int("id")) {
		c.ErrorBag().Add("id", "No such todo")
	}
	return nil
}

func (c *TodoList) Render(ctx context.Context) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var sb strings.Builder
		sb.WriteString(`<div class="todos"><ul>`)
		for _, t := range c.store.List(c.owner()) {
			class := ""
			if t.Done {
				class = ` class="done"`
			}
			fmt.Fprintf(&sb, `<li%s><button hx-post="/_wire/todos" hx-target="closest [data-wire-id]" hx-swap="outerHTML" data-wire-call="toggle" hx-vals='{"id": %d}'>%s</button></li>`,
				class, t.ID, templ.EscapeString(t.Title))
		}
		sb.WriteString(`</ul>`)
		fmt.Fprintf(&sb, `<input name="draft" value="%s" hx-post="/_wire/todos" hx-trigger="change" hx-target="closest [data-wire-id]" hx-swap="outerHTML" data-wire-model="draft">`,
			templ.EscapeString(c.String("draft")))
		if msg := c.ErrorBag().First("draft"); msg != "" {
			fmt.Fprintf(&sb, `<p class="error">%s</p>`, templ.EscapeString(msg))
		}
		sb.WriteString(`<button hx-post="/_wire/todos" hx-target="closest [data-wire-id]" hx-swap="outerHTML" data-wire-call="add">Add</button></div>`)
		_, err := io.WriteString(w, sb.String())
		return err
	})
}

// Registry returns a registry with the example components.
func Registry() *hxwire.Registry {
	return hxwire.NewRegistry().
		Add("counter", NewCounter).
		Add("todos", NewTodoList)
}
