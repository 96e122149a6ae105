package guard

import (
	_ "embed"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/khutwa-dev/khutwa/internal/models"
)

//go:embed routes.yaml
var defaultRoutes []byte

// Route assigns a class to a path pattern. Segments starting with ':' match
// any single non-empty path segment and are captured as params.
type Route struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Class   Class  `yaml:"class" json:"class"`

	segments []string
}

// Match is a resolved route
type Match struct {
	Pattern string            `json:"pattern"`
	Class   Class             `json:"class"`
	Params  map[string]string `json:"params,omitempty"`
}

// Verdict is the result of evaluating a concrete path
type Verdict struct {
	Path     string   `json:"path"`
	Decision Decision `json:"decision"`
	Matched  bool     `json:"matched"`
	Match    Match    `json:"match"`
}

// Table is the static route classification
type Table struct {
	routes []Route
}

type tableFile struct {
	Routes []Route `yaml:"routes"`
}

// DefaultTable returns the built-in route table
func DefaultTable() *Table {
	t, err := ParseTable(defaultRoutes)
	if err != nil {
		panic(fmt.Sprintf("guard: built-in route table is invalid: %v", err))
	}
	return t
}

// LoadTable reads a route table from a YAML file. An empty path returns the
// built-in table.
func LoadTable(file string) (*Table, error) {
	if file == "" {
		return DefaultTable(), nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read route table: %w", err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return t, nil
}

// ParseTable decodes and validates a YAML route table
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse route table: %w", err)
	}
	return NewTable(f.Routes)
}

// NewTable validates routes and builds a table. The login route must be
// public and the home route authenticated, so that following a redirect
// always ends on an allowed route.
func NewTable(routes []Route) (*Table, error) {
	seen := make(map[string]bool)
	t := &Table{routes: make([]Route, 0, len(routes))}

	for i, r := range routes {
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("route[%d]: pattern %q must start with /", i, r.Pattern)
		}
		if !r.Class.Valid() {
			return nil, fmt.Errorf("route[%d]: unknown class %q", i, r.Class)
		}

		pattern := NormalizePath(r.Pattern)
		if seen[pattern] {
			return nil, fmt.Errorf("route[%d]: duplicate pattern %q", i, pattern)
		}
		seen[pattern] = true

		segments := splitPath(pattern)
		params := make(map[string]bool)
		for _, seg := range segments {
			if name, ok := strings.CutPrefix(seg, ":"); ok {
				if name == "" {
					return nil, fmt.Errorf("route[%d]: empty param name in %q", i, pattern)
				}
				if params[name] {
					return nil, fmt.Errorf("route[%d]: duplicate param %q in %q", i, name, pattern)
				}
				params[name] = true
			}
		}

		t.routes = append(t.routes, Route{Pattern: pattern, Class: r.Class, segments: segments})
	}

	if m, ok := t.Resolve(LoginPath); !ok || m.Class != Public {
		return nil, fmt.Errorf("route table must classify %s as public", LoginPath)
	}
	if m, ok := t.Resolve(HomePath); !ok || m.Class != Authenticated {
		return nil, fmt.Errorf("route table must classify %s as authenticated", HomePath)
	}

	return t, nil
}

// Routes returns a copy of the table's routes
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Resolve finds the route for a concrete path. When several patterns match,
// the one with the most literal segments wins.
func (t *Table) Resolve(p string) (Match, bool) {
	segments := splitPath(NormalizePath(p))

	var (
		best      Match
		bestScore = -1
	)
	for _, r := range t.routes {
		params, score, ok := r.match(segments)
		if !ok || score <= bestScore {
			continue
		}
		best = Match{Pattern: r.Pattern, Class: r.Class, Params: params}
		bestScore = score
	}
	return best, bestScore >= 0
}

// Evaluate classifies p and applies the access rules, including the
// catch-all for unclassified paths
func (t *Table) Evaluate(p string, hasToken bool, role models.Role) Verdict {
	p = NormalizePath(p)
	m, ok := t.Resolve(p)
	if !ok {
		return Verdict{Path: p, Decision: DecideUnmatched(hasToken)}
	}
	return Verdict{
		Path:     p,
		Decision: Decide(m.Class, hasToken, role),
		Matched:  true,
		Match:    m,
	}
}

func (r Route) match(segments []string) (map[string]string, int, bool) {
	if len(segments) != len(r.segments) {
		return nil, 0, false
	}

	var params map[string]string
	score := 0
	for i, seg := range r.segments {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			if params == nil {
				params = make(map[string]string)
			}
			params[name] = segments[i]
			continue
		}
		if seg != segments[i] {
			return nil, 0, false
		}
		score++
	}
	return params, score, true
}

// NormalizePath strips query and fragment and cleans the path
func NormalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func splitPath(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
