// Package guard decides, for a route and the current session, whether the
// route is rendered or the navigation is redirected. The decision is a pure
// function of the route class, token presence and role.
package guard

import (
	"fmt"

	"github.com/khutwa-dev/khutwa/internal/models"
)

// Well-known locations
const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Class is the access classification assigned to a route
type Class string

const (
	Public        Class = "public"
	Authenticated Class = "authenticated"
	Elevated      Class = "elevated"
	AdminOnly     Class = "admin-only"
)

// Classes lists every class in table order
var Classes = []Class{Public, Authenticated, Elevated, AdminOnly}

// Valid reports whether c is a known class
func (c Class) Valid() bool {
	switch c {
	case Public, Authenticated, Elevated, AdminOnly:
		return true
	}
	return false
}

// UnmarshalText rejects unknown classes when loading a route table
func (c *Class) UnmarshalText(text []byte) error {
	class := Class(text)
	if !class.Valid() {
		return fmt.Errorf("unknown route class %q", string(text))
	}
	*c = class
	return nil
}

// Decision is the outcome of a guard evaluation
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// MarshalText renders the decision name in JSON and logs
func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Target returns where the decision sends the user; empty for Allow
func (d Decision) Target() string {
	switch d {
	case RedirectLogin:
		return LoginPath
	case RedirectHome:
		return HomePath
	}
	return ""
}

// Decide applies the access rules in order. The first matching rule wins.
func Decide(class Class, hasToken bool, role models.Role) Decision {
	switch {
	case class == Public && hasToken:
		return RedirectHome
	case class == Public:
		return Allow
	case !hasToken:
		return RedirectLogin
	case class == Authenticated:
		return Allow
	case class == Elevated && role != models.RoleAdmin && role != models.RoleTeacher:
		return RedirectHome
	case class == AdminOnly && role != models.RoleAdmin:
		return RedirectHome
	}
	return Allow
}

// DecideUnmatched is the catch-all for routes with no classification
func DecideUnmatched(hasToken bool) Decision {
	if hasToken {
		return RedirectHome
	}
	return RedirectLogin
}
