// Package lifecycle holds the legal status transitions of every persisted entity.
// Callers move an entity forward only through Transition; nothing else in the
// codebase compares or assigns raw status strings.
package lifecycle

import (
	"fmt"
	"net/http"
)

// TransitionError is returned when an event is not legal in the current status.
// It is raised before any side effect happens.
type TransitionError struct {
	Machine string
	From    string
	Event   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: event %q is not allowed in status %q", e.Machine, e.Event, e.From)
}

func (e *TransitionError) HTTPStatus() int { return http.StatusConflict }

// Step is the outcome of a legal transition. From == To for idempotent re-invocations.
type Step[S ~string] struct {
	From S
	To   S
}

// Changed reports whether the transition moved the entity to a new status.
func (s Step[S]) Changed() bool { return s.From != s.To }

type Machine[S ~string, E ~string] struct {
	name     string
	order    []S
	rank     map[S]int
	edges    map[S]map[E]S
	terminal map[S]bool
	fail     E
	failed   S
}

type edge[S ~string, E ~string] struct {
	from  S
	event E
	to    S
}

// newMachine builds a machine. order lists statuses from earliest to latest and
// drives Rank; failEvent is wired from every non-terminal status to failedStatus.
func newMachine[S ~string, E ~string](name string, order []S, terminal []S, failEvent E, failedStatus S, edges []edge[S, E]) *Machine[S, E] {
	m := &Machine[S, E]{
		name:     name,
		order:    order,
		rank:     make(map[S]int, len(order)),
		edges:    make(map[S]map[E]S),
		terminal: make(map[S]bool, len(terminal)),
		fail:     failEvent,
		failed:   failedStatus,
	}
	for i, s := range order {
		m.rank[s] = i
	}
	for _, s := range terminal {
		m.terminal[s] = true
	}
	for _, e := range edges {
		m.add(e.from, e.event, e.to)
	}
	return m
}

func (m *Machine[S, E]) add(from S, ev E, to S) {
	if m.edges[from] == nil {
		m.edges[from] = make(map[E]S)
	}
	m.edges[from][ev] = to
}

func (m *Machine[S, E]) Name() string { return m.name }

// Transition returns the status reached by applying ev to cur.
func (m *Machine[S, E]) Transition(cur S, ev E) (Step[S], error) {
	if _, known := m.rank[cur]; !known {
		return Step[S]{}, &TransitionError{Machine: m.name, From: string(cur), Event: string(ev)}
	}
	if ev == m.fail && m.failed != "" && !m.terminal[cur] {
		return Step[S]{From: cur, To: m.failed}, nil
	}
	if to, ok := m.edges[cur][ev]; ok {
		return Step[S]{From: cur, To: to}, nil
	}
	return Step[S]{}, &TransitionError{Machine: m.name, From: string(cur), Event: string(ev)}
}

func (m *Machine[S, E]) Can(cur S, ev E) bool {
	_, err := m.Transition(cur, ev)
	return err == nil
}

func (m *Machine[S, E]) IsTerminal(s S) bool { return m.terminal[s] }

// Rank orders statuses along the forward path. Unknown statuses rank -1.
func (m *Machine[S, E]) Rank(s S) int {
	r, ok := m.rank[s]
	if !ok {
		return -1
	}
	return r
}

// Latest returns whichever of a and b is further along; a wins ties.
func (m *Machine[S, E]) Latest(a, b S) S {
	if m.Rank(b) > m.Rank(a) {
		return b
	}
	return a
}

func (m *Machine[S, E]) Valid(s S) bool {
	_, ok := m.rank[s]
	return ok
}
