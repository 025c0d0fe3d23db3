package main

import (
	"sync"

	"github.com/pthm/hxwire/example/components"
)

// Store is an in-memory todo store that implements components.TodoStore.
type Store struct {
	mu     sync.RWMutex
	todos  map[string][]components.Todo
	nextID int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{todos: make(map[string][]components.Todo), nextID: 1}
}

// List returns the owner's todos in creation order.
func (s *Store) List(owner string) []components.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]components.Todo(nil), s.todos[owner]...)
}

// Add creates a todo for owner.
func (s *Store) Add(owner, title string) components.Todo {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := components.Todo{ID: s.nextID, Title: title}
	s.nextID++
	s.todos[owner] = append(s.todos[owner], t)
	return t
}

// Toggle flips the done state of one of owner's todos.
func (s *Store) Toggle(owner string, id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.todos[owner] {
		if s.todos[owner][i].ID == id {
			s.todos[owner][i].Done = !s.todos[owner][i].Done
			return true
		}
	}
	return false
}
