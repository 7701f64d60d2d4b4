package main

import (
	"fmt"
	"sort"
	"sync"
)

// Todo is a task shown by the demo pages.
type Todo struct {
	ID    string
	Title string
	Notes string
	Done  bool
	Tags  []string
	seq   int
}

// Stats summarizes the store for the navigation frame.
type Stats struct {
	Total int
	Done  int
	Open  int
}

// Store is an in-memory todo store.
type Store struct {
	mu     sync.RWMutex
	todos  map[string]*Todo
	nextID int
}

// NewStore creates a store with sample data.
func NewStore() *Store {
	s := &Store{
		todos:  make(map[string]*Todo),
		nextID: 1,
	}

	s.Add("Buy groceries", "Milk, eggs, bread", "personal")
	s.Add("Review PR #123", "Check the authentication changes", "work", "urgent")
	s.Add("Write documentation", "Update API docs for v2", "work")
	s.Add("Call dentist", "Schedule annual checkup", "personal", "later")

	return s
}

// Add creates a todo and returns its ID.
func (s *Store) Add(title, notes string, tags ...string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("todo-%d", s.nextID)
	s.todos[id] = &Todo{
		ID:    id,
		Title: title,
		Notes: notes,
		Tags:  tags,
		seq:   s.nextID,
	}
	s.nextID++
	return id
}

// Get returns a copy of the todo with id.
func (s *Store) Get(id string) (Todo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.todos[id]
	if !ok {
		return Todo{}, false
	}
	return *t, true
}

// Toggle flips the done state of a todo.
func (s *Store) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.todos[id]
	if !ok {
		return false
	}
	t.Done = !t.Done
	return true
}

// List returns todos newest first. status is "open", "done" or empty
// for all.
func (s *Store) List(status string) []Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Todo, 0, len(s.todos))
	for _, t := range s.todos {
		if (status == "open" && t.Done) || (status == "done" && !t.Done) {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq > out[j].seq })
	return out
}

// Stats counts todos by state.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	for _, t := range s.todos {
		st.Total++
		if t.Done {
			st.Done++
		} else {
			st.Open++
		}
	}
	return st
}
