// Package scope assigns GHG Protocol scopes to activities.
//
// Scope 1 covers direct emissions (owned combustion, fleet), Scope 2 covers
// purchased energy, Scope 3 covers all other indirect emissions. Assignment
// is an ordered rule table with producer-vs-consumer semantics: "electricity
// generation" is a producer activity (Scope 1) while "purchased electricity"
// is consumption (Scope 2).
package scope

import "fmt"

// Scope is a GHG Protocol scope. The zero value means "not yet assigned";
// every classification resolves to one of the three valid scopes.
type Scope int

const (
	// Scope1 is direct emissions from owned or controlled sources.
	Scope1 Scope = iota + 1

	// Scope2 is indirect emissions from purchased energy.
	Scope2

	// Scope3 is all other indirect emissions in the value chain.
	Scope3
)

// IsValid reports whether s is one of the three assigned scopes.
func (s Scope) IsValid() bool {
	return s >= Scope1 && s <= Scope3
}

// String returns the wire spelling, e.g. "SCOPE_1".
func (s Scope) String() string {
	switch s {
	case Scope1:
		return "SCOPE_1"
	case Scope2:
		return "SCOPE_2"
	case Scope3:
		return "SCOPE_3"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler so scopes serialize as
// "SCOPE_1" in JSON and YAML.
func (s Scope) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("cannot marshal unassigned scope %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Parse converts a wire spelling back into a Scope.
func Parse(text string) (Scope, error) {
	switch text {
	case "SCOPE_1", "scope_1", "1":
		return Scope1, nil
	case "SCOPE_2", "scope_2", "2":
		return Scope2, nil
	case "SCOPE_3", "scope_3", "3":
		return Scope3, nil
	default:
		return 0, fmt.Errorf("unknown scope %q", text)
	}
}
