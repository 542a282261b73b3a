// Package role defines the closed set of TraceWell roles and the acting identity.
//
// Roles enter the system as strings (token claims, CLI flags) and must be
// converted with [Parse] at that boundary. Business logic only ever handles
// the typed [Role].
package role

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRole is returned by [Parse] for a non-empty value that does not
// name a TraceWell role.
var ErrUnknownRole = errors.New("unknown role")

// Role is the authorization class of the acting user. The zero value means
// "no role" and is never allowed to act.
type Role string

const (
	Admin            Role = "admin"
	PortfolioManager Role = "portfolio_manager"
	ProgramManager   Role = "program_manager"
	Developer        Role = "developer"
	UATManager       Role = "uat_manager"
	UATTester        Role = "uat_tester"
)

// None is the absent role.
const None Role = ""

// All lists every role in display order.
var All = []Role{Admin, PortfolioManager, ProgramManager, Developer, UATManager, UATTester}

var displayNames = map[Role]string{
	Admin:            "Admin",
	PortfolioManager: "Portfolio Manager",
	ProgramManager:   "Program Manager",
	Developer:        "Developer",
	UATManager:       "UAT Manager",
	UATTester:        "UAT Tester",
}

// Parse converts a raw role value into a [Role]. It accepts the canonical
// snake_case form and the display name, case-insensitively. An empty value
// parses to [None] without error; anything else unrecognised is
// [ErrUnknownRole].
func Parse(s string) (Role, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return None, nil
	}
	norm := strings.ToLower(strings.NewReplacer(" ", "_", "-", "_").Replace(s))
	for _, r := range All {
		if string(r) == norm {
			return r, nil
		}
	}
	return None, fmt.Errorf("role: %q: %w", s, ErrUnknownRole)
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := displayNames[r]
	return ok
}

// DisplayName returns the human-readable role name.
func (r Role) DisplayName() string {
	if name, ok := displayNames[r]; ok {
		return name
	}
	return "No role"
}

func (r Role) String() string { return string(r) }

// In reports whether r is a member of set.
func (r Role) In(set ...Role) bool {
	for _, s := range set {
		if r == s {
			return true
		}
	}
	return false
}

// TestingElevated reports whether r may act on any test execution regardless
// of who it is assigned to.
func (r Role) TestingElevated() bool {
	return r.In(Admin, UATManager)
}

// Actor is the authenticated user performing an action.
type Actor struct {
	ID   string
	Role Role
}

// Anonymous reports whether the actor carries no user id.
func (a Actor) Anonymous() bool {
	return a.ID == ""
}
