package builtin

import "github.com/lexandro/ff/attr"

// Register adds all built-in providers to the registry.
func Register(r *attr.Registry) error {
	for _, p := range []attr.Provider{File{}, Ignore{}, Mime{}, Hash{}} {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}
