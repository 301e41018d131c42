package dispatch

import (
	"maps"
	"slices"
)

// Extension performs a named operation on receivers that have no method
// of that name, the way an open class would. It returns NotApplicable()
// to decline a receiver so resolution can continue.
type Extension func(recv any, args []any, block Func) (any, error)

// Registry maps operation names to extensions.
// A Registry is never modified after construction; With returns a copy.
type Registry struct {
	exts map[string]Extension
}

// NewRegistry creates a Registry from the given extensions.
func NewRegistry(exts map[string]Extension) *Registry {
	return &Registry{exts: maps.Clone(exts)}
}

// With returns a copy of r with name bound to ext, replacing any
// existing binding.
func (r *Registry) With(name string, ext Extension) *Registry {
	exts := make(map[string]Extension, len(r.exts)+1)
	maps.Copy(exts, r.exts)
	exts[name] = ext
	return &Registry{exts: exts}
}

// Merge returns a copy of r with every binding in exts added.
func (r *Registry) Merge(exts map[string]Extension) *Registry {
	out := make(map[string]Extension, len(r.exts)+len(exts))
	maps.Copy(out, r.exts)
	maps.Copy(out, exts)
	return &Registry{exts: out}
}

// Lookup returns the extension bound to name.
func (r *Registry) Lookup(name string) (Extension, bool) {
	if r == nil {
		return nil, false
	}
	ext, ok := r.exts[name]
	return ext, ok
}

// Names returns the bound names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.exts))
}
