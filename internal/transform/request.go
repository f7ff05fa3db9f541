package transform

import (
	"errors"
	"fmt"
	"sort"
)

// ErrContractViolation is returned when a plugin breaks the provider contract,
// for example by declaring no request. It aborts the build.
var ErrContractViolation = errors.New("transform: plugin contract violation")

// Scope is a plugin's declared breadth of interest.
type Scope int

const (
	// ScopeNone targets only the classes named in the extra set.
	ScopeNone Scope = iota + 1
	// ScopeChanged targets added and changed classes plus the extra set.
	ScopeChanged
	// ScopeAll targets every class.
	ScopeAll
)

func (s Scope) String() string {
	switch s {
	case ScopeNone:
		return "NONE"
	case ScopeChanged:
		return "CHANGED"
	case ScopeAll:
		return "ALL"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// ParseScope maps the configuration spelling of a scope.
func ParseScope(s string) (Scope, error) {
	switch s {
	case "none", "NONE":
		return ScopeNone, nil
	case "changed", "CHANGED":
		return ScopeChanged, nil
	case "all", "ALL":
		return ScopeAll, nil
	}
	return 0, fmt.Errorf("transform: unknown scope %q", s)
}

// Request is what a plugin wants to see during one build. It is immutable.
type Request struct {
	scope Scope
	extra map[string]struct{}
}

// NewRequest builds a request. extra lists internal class names the plugin
// wants regardless of scope.
func NewRequest(scope Scope, extra ...string) *Request {
	r := &Request{scope: scope, extra: make(map[string]struct{}, len(extra))}
	for _, n := range extra {
		r.extra[n] = struct{}{}
	}
	return r
}

func (r *Request) Scope() Scope { return r.scope }

// Wants reports whether name is in the extra set.
func (r *Request) Wants(name string) bool {
	_, ok := r.extra[name]
	return ok
}

// Extra returns the extra set, sorted.
func (r *Request) Extra() []string {
	out := make([]string, 0, len(r.extra))
	for n := range r.extra {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Validate checks a request returned by a plugin. A nil request, a request
// without an extra set and an unset scope are contract violations.
func (r *Request) Validate() error {
	switch {
	case r == nil:
		return fmt.Errorf("%w: no request", ErrContractViolation)
	case r.extra == nil:
		return fmt.Errorf("%w: no extra set", ErrContractViolation)
	case r.scope == 0:
		return fmt.Errorf("%w: scope not set", ErrContractViolation)
	}
	return nil
}
