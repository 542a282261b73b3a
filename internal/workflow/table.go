// Package workflow holds the status transition tables for every TraceWell
// entity and the shared lookup logic over them.
//
// A [Table] maps each status to the roles allowed to act while an entity is
// in that status and the edges leaving it. Tables are built once at package
// initialisation and never mutated afterwards, so lookups are safe from any
// number of goroutines.
//
// The tables answer "which edges may this role take from here" and nothing
// more. Entity-specific preconditions (recorded approvals, ownership,
// segregation of duties, step completeness) are enforced by the action
// packages that persist the change.
package workflow

import (
	"fmt"
	"slices"
	"strings"

	"github.com/zulandar/tracewell/internal/role"
)

// ApprovalKind tags a transition that needs a separately recorded approval.
type ApprovalKind string

const (
	ApprovalNone           ApprovalKind = ""
	ApprovalInternalReview ApprovalKind = "internal_review"
	ApprovalStakeholder    ApprovalKind = "stakeholder"
	ApprovalHumanReview    ApprovalKind = "human_review"
)

// Transition is one permitted edge out of a status.
type Transition[S ~string] struct {
	To               S            `json:"to" yaml:"to"`
	Label            string       `json:"label" yaml:"label"`
	RequiresNotes    bool         `json:"requires_notes" yaml:"requires_notes"`
	RequiresApproval bool         `json:"requires_approval" yaml:"requires_approval"`
	ApprovalKind     ApprovalKind `json:"approval_kind,omitempty" yaml:"approval_kind,omitempty"`
}

// Edge declares a plain transition.
func Edge[S ~string](to S, label string) Transition[S] {
	return Transition[S]{To: to, Label: label}
}

// NotedEdge declares a transition that must carry a justification note.
func NotedEdge[S ~string](to S, label string) Transition[S] {
	return Transition[S]{To: to, Label: label, RequiresNotes: true}
}

// ApprovedEdge declares a transition gated on a recorded approval of kind.
func ApprovedEdge[S ~string](to S, label string, kind ApprovalKind) Transition[S] {
	return Transition[S]{To: to, Label: label, RequiresApproval: true, ApprovalKind: kind}
}

// StatusConfig is the per-status entry of a table.
type StatusConfig[S ~string] struct {
	AllowedRoles []role.Role
	Edges        []Transition[S]
}

// Table is an immutable status transition table for one entity kind.
type Table[S ~string] struct {
	name    string
	initial S
	order   []S
	states  map[S]StatusConfig[S]
}

// NewTable starts a table. Statuses are declared with [Table.On].
func NewTable[S ~string](name string, initial S) *Table[S] {
	return &Table[S]{
		name:    name,
		initial: initial,
		states:  make(map[S]StatusConfig[S]),
	}
}

// On declares status with the roles that may act on it and its outgoing
// edges. It panics on duplicate statuses or self-loops since tables are
// package-level configuration and such a mistake must fail at start-up.
func (t *Table[S]) On(status S, roles []role.Role, edges ...Transition[S]) *Table[S] {
	if _, dup := t.states[status]; dup {
		panic(fmt.Sprintf("workflow: %s: status %q declared twice", t.name, status))
	}
	for _, e := range edges {
		if e.To == status {
			panic(fmt.Sprintf("workflow: %s: self-loop on %q", t.name, status))
		}
	}
	t.order = append(t.order, status)
	t.states[status] = StatusConfig[S]{
		AllowedRoles: slices.Clone(roles),
		Edges:        slices.Clone(edges),
	}
	return t
}

// Name returns the entity kind the table governs.
func (t *Table[S]) Name() string { return t.name }

// Initial returns the status new entities are created in.
func (t *Table[S]) Initial() S { return t.initial }

// Statuses returns every declared status in declaration order.
func (t *Table[S]) Statuses() []S { return slices.Clone(t.order) }

// Known reports whether s is a declared status.
func (t *Table[S]) Known(s S) bool {
	_, ok := t.states[s]
	return ok
}

// Terminal reports whether s has no outgoing edges.
func (t *Table[S]) Terminal(s S) bool {
	return len(t.states[s].Edges) == 0
}

// Config returns a copy of the entry for status.
func (t *Table[S]) Config(status S) (StatusConfig[S], bool) {
	cfg, ok := t.states[status]
	if !ok {
		return StatusConfig[S]{}, false
	}
	return StatusConfig[S]{
		AllowedRoles: slices.Clone(cfg.AllowedRoles),
		Edges:        slices.Clone(cfg.Edges),
	}, true
}

// Allowed returns the edges r may take from current. It returns an empty
// list when r is absent, when current is undeclared, or when r is not among
// the roles allowed to act in current.
func (t *Table[S]) Allowed(current S, r role.Role) []Transition[S] {
	if r == role.None {
		return []Transition[S]{}
	}
	cfg, ok := t.states[current]
	if !ok || !r.In(cfg.AllowedRoles...) {
		return []Transition[S]{}
	}
	return slices.Clone(cfg.Edges)
}

// Find returns the edge from current to target if r may take it.
func (t *Table[S]) Find(current, target S, r role.Role) (Transition[S], bool) {
	for _, e := range t.Allowed(current, r) {
		if e.To == target {
			return e, true
		}
	}
	return Transition[S]{}, false
}

// Can reports whether target is among the edges r may take from current.
func (t *Table[S]) Can(current, target S, r role.Role) bool {
	_, ok := t.Find(current, target, r)
	return ok
}

// Validate decides a requested transition. It returns the matching edge, or
// [ErrUnauthorized] when r is absent or not among the roles declared for
// current, [ErrIllegalTransition] when current is undeclared or has no such
// edge, and [ErrNotesRequired] when the edge needs notes and none were given.
// The role gate runs before the edge lookup, so a terminal status still
// answers unauthorized to roles outside its set. Approval requirements are
// reported on the returned edge but not checked.
func (t *Table[S]) Validate(current, target S, r role.Role, notes string) (Transition[S], error) {
	if r == role.None {
		return Transition[S]{}, fmt.Errorf("%s: no role: %w", t.name, ErrUnauthorized)
	}
	cfg, ok := t.states[current]
	if !ok {
		return Transition[S]{}, fmt.Errorf("%s: unknown status %q: %w", t.name, current, ErrIllegalTransition)
	}
	if !r.In(cfg.AllowedRoles...) {
		return Transition[S]{}, fmt.Errorf("%s: %s cannot act on %q: %w",
			t.name, r.DisplayName(), current, ErrUnauthorized)
	}
	if len(cfg.Edges) == 0 {
		return Transition[S]{}, fmt.Errorf("%s: %q has no outgoing transitions: %w", t.name, current, ErrIllegalTransition)
	}
	edge, ok := t.Find(current, target, r)
	if !ok {
		return Transition[S]{}, fmt.Errorf("%s: %q -> %q: %w", t.name, current, target, ErrIllegalTransition)
	}
	if edge.RequiresNotes && strings.TrimSpace(notes) == "" {
		return Transition[S]{}, fmt.Errorf("%s: %q -> %q: %w", t.name, current, target, ErrNotesRequired)
	}
	return edge, nil
}
