package provider

import (
	"fmt"
	"os"
	"plugin"
	"sync"

	"github.com/ruteri/serverless-sdk/interfaces"
)

// LoadFunc is the exported entry point of a provider library.
type LoadFunc = func() any

// Loader turns a library location into its LoadProvider entry point. All
// foreign-symbol handling lives behind this interface.
type Loader interface {
	Load(lib Library) (LoadFunc, error)
}

// PluginLoader loads Go plugins built with -buildmode=plugin.
//
// The plugin package offers no way to close a library: the code stays mapped
// for the life of the process and only the *plugin.Plugin value used for
// the symbol lookup is dropped when Load returns.
type PluginLoader struct {
	mu sync.Mutex
}

func NewPluginLoader() *PluginLoader {
	return &PluginLoader{}
}

// Load opens lib.Path and resolves interfaces.LoadProviderSymbol. Loads are
// serialized.
func (l *PluginLoader) Load(lib Library) (LoadFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(lib.Path); err != nil {
		return nil, interfaces.CouldNotLoadProvider(err.Error())
	}

	p, err := plugin.Open(lib.Path)
	if err != nil {
		return nil, interfaces.CouldNotLoadProvider(err.Error())
	}

	sym, err := p.Lookup(interfaces.LoadProviderSymbol)
	if err != nil {
		return nil, interfaces.CouldNotLoadProvider(err.Error())
	}

	switch fn := sym.(type) {
	case func() any:
		return fn, nil
	case *func() any:
		return *fn, nil
	default:
		return nil, interfaces.CouldNotLoadProvider(
			fmt.Sprintf("%s: symbol %s has type %T", lib.Path, interfaces.LoadProviderSymbol, sym))
	}
}

// StaticLoader serves entry points linked into the binary, keyed by library
// name. It stands in for PluginLoader in statically linked builds and tests.
type StaticLoader map[string]LoadFunc

func (s StaticLoader) Load(lib Library) (LoadFunc, error) {
	fn, ok := s[lib.Name]
	if !ok || fn == nil {
		return nil, interfaces.CouldNotLoadProvider(fmt.Sprintf("%s: no statically linked library", lib.Name))
	}
	return fn, nil
}
