// Package plugins holds the signatures of the functions template
// expressions may call: a built-in table plus signatures loaded from a
// Starlark manifest. The compiler only needs signatures; the function
// bodies live in each target runtime's library.
package plugins

import "fmt"

// Signature describes one callable function.
type Signature struct {
	Name    string
	MinArgs int
	MaxArgs int
	// Backends lists the backend names the function is implemented for.
	// Empty means every backend.
	Backends []string
}

// AcceptsArity reports whether a call with n arguments matches.
func (s Signature) AcceptsArity(n int) bool {
	return n >= s.MinArgs && n <= s.MaxArgs
}

// SupportsBackend reports whether the named backend can emit a call to
// this function.
func (s Signature) SupportsBackend(backend string) bool {
	if len(s.Backends) == 0 {
		return true
	}
	for _, b := range s.Backends {
		if b == backend {
			return true
		}
	}
	return false
}

// Registry is the function table for one compile run.
type Registry struct {
	sigs map[string]Signature
}

// NewRegistry returns a registry seeded with the built-in functions.
func NewRegistry() *Registry {
	r := &Registry{sigs: make(map[string]Signature)}
	for _, s := range builtins {
		r.sigs[s.Name] = s
	}
	return r
}

var builtins = []Signature{
	{Name: "round", MinArgs: 1, MaxArgs: 2},
	{Name: "floor", MinArgs: 1, MaxArgs: 1},
	{Name: "ceiling", MinArgs: 1, MaxArgs: 1},
	{Name: "abs", MinArgs: 1, MaxArgs: 1},
	{Name: "min", MinArgs: 2, MaxArgs: 2},
	{Name: "max", MinArgs: 2, MaxArgs: 2},
	{Name: "strLen", MinArgs: 1, MaxArgs: 1},
}

// IsBuiltin reports whether name is one of the built-in functions, which
// backends synthesize inline instead of calling the plugin runtime.
func IsBuiltin(name string) bool {
	for _, s := range builtins {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Register adds a signature. Built-ins and already registered plugins
// cannot be redeclared.
func (r *Registry) Register(s Signature) error {
	if s.Name == "" {
		return fmt.Errorf("plugin signature requires a name")
	}
	if s.MinArgs < 0 || s.MaxArgs < s.MinArgs {
		return fmt.Errorf("plugin %q: invalid arity range [%d, %d]", s.Name, s.MinArgs, s.MaxArgs)
	}
	if _, ok := r.sigs[s.Name]; ok {
		return fmt.Errorf("function %q is already declared", s.Name)
	}
	r.sigs[s.Name] = s
	return nil
}

// Lookup returns the signature for name.
func (r *Registry) Lookup(name string) (Signature, bool) {
	s, ok := r.sigs[name]
	return s, ok
}
