package nav

import (
	_ "embed"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/khutwa-dev/khutwa/internal/guard"
	"github.com/khutwa-dev/khutwa/internal/models"
)

//go:embed menu.yaml
var defaultMenu []byte

// MenuEntry is one item of the side navigation
type MenuEntry struct {
	Name  string        `yaml:"name" json:"name"`
	Path  string        `yaml:"path" json:"path"`
	Roles []models.Role `yaml:"roles" json:"roles"`
}

// VisibleTo reports whether role is in the entry's allowed roles
func (e MenuEntry) VisibleTo(role models.Role) bool {
	return slices.Contains(e.Roles, role)
}

// Menu is the ordered side navigation
type Menu []MenuEntry

type menuFile struct {
	Menu Menu `yaml:"menu"`
}

// DefaultMenu returns the built-in menu
func DefaultMenu() Menu {
	m, err := ParseMenu(defaultMenu)
	if err != nil {
		panic(fmt.Sprintf("nav: built-in menu is invalid: %v", err))
	}
	return m
}

// LoadMenu reads a menu from a YAML file; an empty path returns the built-in menu
func LoadMenu(file string) (Menu, error) {
	if file == "" {
		return DefaultMenu(), nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu: %w", err)
	}
	m, err := ParseMenu(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return m, nil
}

// ParseMenu decodes a YAML menu and checks its entries
func ParseMenu(data []byte) (Menu, error) {
	var f menuFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse menu: %w", err)
	}
	for i, e := range f.Menu {
		if e.Name == "" || e.Path == "" {
			return nil, fmt.Errorf("menu[%d]: name and path are required", i)
		}
		for _, r := range e.Roles {
			if !r.Valid() {
				return nil, fmt.Errorf("menu[%d]: unknown role %q", i, r)
			}
		}
	}
	return f.Menu, nil
}

// Visible returns the entries whose allowed roles include role
func (m Menu) Visible(role models.Role) Menu {
	out := make(Menu, 0, len(m))
	for _, e := range m {
		if e.VisibleTo(role) {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks the menu against the route table: every entry must be
// allowed by the guard for every role that can see it
func (m Menu) Validate(table *guard.Table) error {
	for _, e := range m {
		for _, role := range e.Roles {
			v := table.Evaluate(e.Path, true, role)
			if v.Decision != guard.Allow {
				return fmt.Errorf("menu entry %q (%s) is visible to %s but the guard decides %s",
					e.Name, e.Path, role, v.Decision)
			}
		}
	}
	return nil
}
