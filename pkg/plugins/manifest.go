package plugins

import (
	"fmt"

	"go.starlark.net/starlark"
)

// LoadManifest executes a Starlark plugin manifest and registers every
// signature it declares. A manifest is a sequence of calls like:
//
//	plugin(name = "formatPhone", min_args = 1, max_args = 2)
//	plugin(name = "bidiMark", min_args = 0, max_args = 0, backends = ["js"])
func LoadManifest(path string, reg *Registry) error {
	declare := func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name string
		var minArgs, maxArgs int
		var backends *starlark.List
		if err := starlark.UnpackArgs(fn.Name(), args, kwargs,
			"name", &name,
			"min_args", &minArgs,
			"max_args", &maxArgs,
			"backends?", &backends,
		); err != nil {
			return nil, err
		}
		sig := Signature{Name: name, MinArgs: minArgs, MaxArgs: maxArgs}
		if backends != nil {
			for i := 0; i < backends.Len(); i++ {
				s, ok := starlark.AsString(backends.Index(i))
				if !ok {
					return nil, fmt.Errorf("plugin %q: backends must be strings", name)
				}
				sig.Backends = append(sig.Backends, s)
			}
		}
		if err := reg.Register(sig); err != nil {
			return nil, err
		}
		return starlark.None, nil
	}

	thread := &starlark.Thread{Name: "lumen-plugins"}
	env := starlark.StringDict{
		"plugin": starlark.NewBuiltin("plugin", declare),
	}
	if _, err := starlark.ExecFile(thread, path, nil, env); err != nil {
		return fmt.Errorf("loading plugin manifest %s: %w", path, err)
	}
	return nil
}
