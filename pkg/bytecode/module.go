package bytecode

import "errors"

// ErrModuleNotFound is returned by module loaders when no module exists at
// the requested path.
var ErrModuleNotFound = errors.New("module not found")

// Module is a compilation unit with its own global scope. Functions
// compiled inside a module carry a reference to it; calling one switches
// the VM's module context so the function's global reads and writes resolve
// against the module scope first.
type Module struct {
	// Name is the short name the module is known by.
	Name string
	// Path is the loader-specific identity the module was loaded from.
	Path string

	globals map[string]Value
	exports map[string]bool
}

// NewModule returns an empty module.
func NewModule(name, path string) *Module {
	return &Module{
		Name:    name,
		Path:    path,
		globals: make(map[string]Value),
		exports: make(map[string]bool),
	}
}

// Get reads a module-scoped global.
func (m *Module) Get(name string) (Value, bool) {
	v, ok := m.globals[name]
	return v, ok
}

// Set writes an existing module-scoped global. It reports false when the
// name was never defined.
func (m *Module) Set(name string, v Value) bool {
	if _, ok := m.globals[name]; !ok {
		return false
	}
	m.globals[name] = v
	return true
}

// Define creates or overwrites a module-scoped global.
func (m *Module) Define(name string, v Value) {
	m.globals[name] = v
}

// Export marks a module global as visible to importers.
func (m *Module) Export(name string) {
	m.exports[name] = true
}

// Exported reports whether name is exported.
func (m *Module) Exported(name string) bool {
	return m.exports[name]
}

// GetExport returns an exported binding. Unexported or missing names report
// false.
func (m *Module) GetExport(name string) (Value, bool) {
	if !m.exports[name] {
		return NilValue(), false
	}
	v, ok := m.globals[name]
	return v, ok
}

// ExportNames returns the exported names in unspecified order.
func (m *Module) ExportNames() []string {
	names := make([]string, 0, len(m.exports))
	for n := range m.exports {
		names = append(names, n)
	}
	return names
}

// ModuleLoader resolves an import path to a fully initialized module.
// Loading, compiling and running the module body is the loader's concern;
// the VM only caches the result per path.
type ModuleLoader interface {
	Load(path string) (*Module, error)
}

// MapLoader is a ModuleLoader over a fixed set of modules. Useful for
// embedding prebuilt module tables and for tests.
type MapLoader map[string]*Module

func (l MapLoader) Load(path string) (*Module, error) {
	if m, ok := l[path]; ok {
		return m, nil
	}
	return nil, ErrModuleNotFound
}
