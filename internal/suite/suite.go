// Package suite defines the registry of test suites known to utrun and
// resolves user selections against it.
package suite

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Descriptor describes one independently buildable and runnable test binary.
type Descriptor struct {
	ID   string // Unique identifier used on the command line
	Name string // Display name, also the build target and binary file name
	Path string // Directory of the binary relative to the output dir, with leading and trailing slash
}

// Executable returns the binary path relative to the output directory,
// in the form the runner invokes it ("./tests/ipc/RialtoIpcUnitTests").
func (d Descriptor) Executable() string {
	return "." + d.Path + d.Name
}

// Registry is an immutable, ordered set of suite descriptors keyed by id.
// Construct one per run and pass it to the components that need it.
type Registry struct {
	suites *orderedmap.OrderedMap[string, Descriptor]
}

// NewRegistry builds a registry from descriptors in definition order.
// Ids must be unique and non-empty; every descriptor needs a name.
func NewRegistry(descriptors []Descriptor) (*Registry, error) {
	m := orderedmap.New[string, Descriptor]()
	for _, d := range descriptors {
		if d.ID == "" {
			return nil, fmt.Errorf("suite with name %q has empty id", d.Name)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("suite %q has empty name", d.ID)
		}
		if _, present := m.Set(d.ID, d); present {
			return nil, fmt.Errorf("duplicate suite id %q", d.ID)
		}
	}
	return &Registry{suites: m}, nil
}

// Default returns the built-in registry of the media player unit test matrix.
func Default() *Registry {
	r, err := NewRegistry(DefaultDescriptors())
	if err != nil {
		panic(err) // built-in table is static
	}
	return r
}

// DefaultDescriptors returns a fresh copy of the built-in suite table.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{ID: "servermain", Name: "RialtoServerMainUnitTests", Path: "/tests/media/server/main/"},
		{ID: "servergstplayer", Name: "RialtoServerGstPlayerUnitTests", Path: "/tests/media/server/gstplayer/"},
		{ID: "serveripc", Name: "RialtoServerIpcUnitTests", Path: "/tests/media/server/ipc/"},
		{ID: "serverservice", Name: "RialtoServerServiceUnitTests", Path: "/tests/media/server/service/"},
		{ID: "client", Name: "RialtoClientUnitTests", Path: "/tests/media/client/main/"},
		{ID: "clientipc", Name: "RialtoClientIpcUnitTests", Path: "/tests/media/client/ipc/"},
		{ID: "common", Name: "RialtoPlayerCommonUnitTests", Path: "/tests/media/common/"},
		{ID: "logging", Name: "RialtoLoggingUnitTests", Path: "/tests/logging/"},
		{ID: "manager", Name: "RialtoServerManagerUnitTests", Path: "/tests/serverManager/"},
		{ID: "ipc", Name: "RialtoIpcUnitTests", Path: "/tests/ipc/"},
	}
}

// Len returns the number of registered suites.
func (r *Registry) Len() int {
	return r.suites.Len()
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (Descriptor, bool) {
	return r.suites.Get(id)
}

// All returns every descriptor in definition order.
func (r *Registry) All() []Descriptor {
	result := make([]Descriptor, 0, r.suites.Len())
	for pair := r.suites.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Value)
	}
	return result
}

// IDs returns every registered id in definition order.
func (r *Registry) IDs() []string {
	result := make([]string, 0, r.suites.Len())
	for pair := r.suites.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Key)
	}
	return result
}

// Resolve selects suites for a run.
//
// A nil requested slice selects the whole registry in definition order.
// Otherwise the selection follows request order, repeated ids are kept once,
// and ids not present in the registry are returned in missing (in request
// order) for the caller to report. An empty selection is valid.
func (r *Registry) Resolve(requested []string) (Selection, []string) {
	sel := Selection{suites: orderedmap.New[string, Descriptor]()}
	if requested == nil {
		for pair := r.suites.Oldest(); pair != nil; pair = pair.Next() {
			sel.suites.Set(pair.Key, pair.Value)
		}
		return sel, nil
	}

	var missing []string
	for _, id := range requested {
		d, ok := r.suites.Get(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		if _, dup := sel.suites.Get(id); dup {
			continue
		}
		sel.suites.Set(id, d)
	}
	return sel, missing
}

// Selection is the ordered set of suites chosen for one run.
// The zero value is an empty selection.
type Selection struct {
	suites *orderedmap.OrderedMap[string, Descriptor]
}

// NewSelection builds a selection directly from descriptors, dropping
// repeated ids. Mostly useful in tests.
func NewSelection(descriptors ...Descriptor) Selection {
	sel := Selection{suites: orderedmap.New[string, Descriptor]()}
	for _, d := range descriptors {
		if _, dup := sel.suites.Get(d.ID); !dup {
			sel.suites.Set(d.ID, d)
		}
	}
	return sel
}

// Len returns the number of selected suites.
func (s Selection) Len() int {
	if s.suites == nil {
		return 0
	}
	return s.suites.Len()
}

// Empty reports whether nothing was selected.
func (s Selection) Empty() bool {
	return s.Len() == 0
}

// Descriptors returns the selected descriptors in order.
func (s Selection) Descriptors() []Descriptor {
	if s.suites == nil {
		return nil
	}
	result := make([]Descriptor, 0, s.suites.Len())
	for pair := s.suites.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Value)
	}
	return result
}

// IDs returns the selected ids in order.
func (s Selection) IDs() []string {
	if s.suites == nil {
		return nil
	}
	result := make([]string, 0, s.suites.Len())
	for pair := s.suites.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Key)
	}
	return result
}

// Names returns the display names of the selected suites in order.
// These are the build targets.
func (s Selection) Names() []string {
	ds := s.Descriptors()
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = d.Name
	}
	return names
}
