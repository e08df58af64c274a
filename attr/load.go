package attr

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"strings"
)

// LoadPlugins loads user providers from the given directories. Each shared
// object must export a symbol named Provider that satisfies the Provider
// interface. A file that fails to load or register is an unrecoverable
// plugin error; missing or unreadable directories are skipped.
func LoadPlugins(r *Registry, dirs []string) error {
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".so") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := loadPlugin(r, path); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadPlugin(r *Registry, path string) error {
	name := strings.TrimSuffix(filepath.Base(path), ".so")

	p, err := plugin.Open(path)
	if err != nil {
		return &ProviderError{Plugin: name, Err: fmt.Errorf("opening %s: %w", path, err)}
	}

	sym, err := p.Lookup("Provider")
	if err != nil {
		return &ProviderError{Plugin: name, Err: fmt.Errorf("%s: %w", path, err)}
	}

	var provider Provider
	switch v := sym.(type) {
	case Provider:
		provider = v
	case *Provider:
		provider = *v
	default:
		return &ProviderError{Plugin: name,
			Err: fmt.Errorf("%s: Provider symbol has wrong type", path)}
	}

	return r.Register(provider)
}
