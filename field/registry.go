// Package field implements the closed registry of conversation-scoped data
// fields. The registry is fixed at construction: an enumerated set of named
// descriptors with explicit validators rather than an open dictionary, so
// unknown-key drift is impossible and validation stays exhaustive.
package field

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Kind enumerates the value kinds a field can hold.
type Kind int

const (
	// KindString is free text bounded by MinLen/MaxLen.
	KindString Kind = iota
	// KindBool accepts booleans and true/false-like literals.
	KindBool
	// KindEnum accepts one of Allowed after case normalization.
	KindEnum
)

// Descriptor declares a single field: its kind, constraints and whether it
// must be collected before export.
type Descriptor struct {
	Name     string
	Kind     Kind
	Required bool
	MinLen   int
	MaxLen   int
	Allowed  []string
}

// ValidationError reports a value that failed a descriptor's constraints.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for field %q: %s", e.Field, e.Message)
}

// UnknownFieldError reports a field name outside the registry.
type UnknownFieldError struct {
	Field string
	Valid []string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q, valid fields: %s", e.Field, strings.Join(e.Valid, ", "))
}

// Registry is an immutable mapping from field name to descriptor. It is pure
// and stateless: Validate has no side effects and is deterministic for
// identical input.
type Registry struct {
	fields map[string]Descriptor
	names  []string
}

// NewRegistry builds a registry from the given descriptors. The descriptor
// set is copied; later mutation of the input slice has no effect.
func NewRegistry(descriptors []Descriptor) *Registry {
	fields := make(map[string]Descriptor, len(descriptors))
	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		fields[d.Name] = d
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return &Registry{fields: fields, names: names}
}

// Default returns the onboarding field registry.
func Default() *Registry {
	return NewRegistry([]Descriptor{
		{Name: "employee_name", Kind: KindString, Required: true, MinLen: 1, MaxLen: 255},
		{Name: "employee_id", Kind: KindString, Required: true, MinLen: 1, MaxLen: 50},
		{Name: "starter_kit", Kind: KindEnum, Required: true, Allowed: []string{"mouse", "keyboard", "backpack"}},
		{Name: "dietary_restrictions", Kind: KindString, MaxLen: 500},
		{Name: "meeting_scheduled", Kind: KindBool},
	})
}

// Names returns all field names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Required returns the names of all required fields in sorted order.
func (r *Registry) Required() []string {
	var req []string
	for _, name := range r.names {
		if r.fields[name].Required {
			req = append(req, name)
		}
	}
	return req
}

// Describe returns the descriptor for a field name.
func (r *Registry) Describe(name string) (Descriptor, bool) {
	d, ok := r.fields[name]
	return d, ok
}

// Validate checks a raw value against the named field's constraints and
// returns the normalized value. Enum values are lowercased before comparison;
// string values keep their original form; bool fields accept bool values and
// "true"/"false" literals.
func (r *Registry) Validate(name string, raw any) (any, error) {
	d, ok := r.fields[name]
	if !ok {
		return nil, &UnknownFieldError{Field: name, Valid: r.Names()}
	}

	switch d.Kind {
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, &ValidationError{Field: name, Value: raw, Message: fmt.Sprintf("expected a string, got %T", raw)}
		}
		// Length bounds count characters, not bytes.
		length := utf8.RuneCountInString(s)
		if length < d.MinLen {
			return nil, &ValidationError{Field: name, Value: raw, Message: fmt.Sprintf("must be at least %d characters", d.MinLen)}
		}
		if d.MaxLen > 0 && length > d.MaxLen {
			return nil, &ValidationError{Field: name, Value: raw, Message: fmt.Sprintf("must be at most %d characters", d.MaxLen)}
		}
		return s, nil

	case KindBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}
		return nil, &ValidationError{Field: name, Value: raw, Message: "must be true or false"}

	case KindEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, &ValidationError{Field: name, Value: raw, Message: fmt.Sprintf("expected a string, got %T", raw)}
		}
		normalized := strings.ToLower(strings.TrimSpace(s))
		for _, allowed := range d.Allowed {
			if normalized == allowed {
				return normalized, nil
			}
		}
		return nil, &ValidationError{
			Field:   name,
			Value:   raw,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(d.Allowed, ", ")),
		}

	default:
		return nil, &ValidationError{Field: name, Value: raw, Message: "unsupported field kind"}
	}
}

// Missing returns the required fields absent from the given field map, in
// sorted order.
func (r *Registry) Missing(fields map[string]any) []string {
	var missing []string
	for _, name := range r.Required() {
		if _, ok := fields[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
