// Package sourcemap maps generated listing line numbers back to original
// DSL source positions, so runtime errors and diagnostics can be
// translated back to the line the developer wrote. Lookup runs in that
// direction only; there is no source-to-generated lookup.
// Grounded on
// original_source/src/streetrace/dsl/sourcemap/registry.py, translated
// from bisect-on-a-parallel-array into sort.Search over a single slice.
package sourcemap

import "sort"

// Mapping is a single generated-to-source correspondence.
type Mapping struct {
	GeneratedLine   int
	GeneratedColumn int
	SourceFile      string
	SourceLine      int
	SourceColumn    int
	SourceEndLine   int // 0 when not a multi-line span
	SourceEndColumn int
}

// fileMappings holds mappings for one generated file, kept sorted by
// GeneratedLine for binary-search lookup.
type fileMappings struct {
	entries []Mapping
}

func (f *fileMappings) add(m Mapping) {
	idx := sort.Search(len(f.entries), func(i int) bool {
		return f.entries[i].GeneratedLine >= m.GeneratedLine
	})
	f.entries = append(f.entries, Mapping{})
	copy(f.entries[idx+1:], f.entries[idx:])
	f.entries[idx] = m
}

// lookup returns the mapping with the largest GeneratedLine <= line, or
// false if line precedes every recorded mapping.
func (f *fileMappings) lookup(line int) (Mapping, bool) {
	idx := sort.Search(len(f.entries), func(i int) bool {
		return f.entries[i].GeneratedLine > line
	})
	if idx == 0 {
		return Mapping{}, false
	}
	return f.entries[idx-1], true
}

// Registry stores source maps keyed by generated file name. It does no
// locking and is not safe for concurrent use. The compile driver does not
// use a Registry; it returns each compile's mappings as a slice on
// compiler.Result.
type Registry struct {
	files map[string]*fileMappings
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{files: make(map[string]*fileMappings)}
}

// Add records mapping for generatedFile.
func (r *Registry) Add(generatedFile string, mapping Mapping) {
	fm, ok := r.files[generatedFile]
	if !ok {
		fm = &fileMappings{}
		r.files[generatedFile] = fm
	}
	fm.add(mapping)
}

// Lookup finds the source location for generatedLine within
// generatedFile, returning false if no mapping covers it.
func (r *Registry) Lookup(generatedFile string, generatedLine int) (Mapping, bool) {
	fm, ok := r.files[generatedFile]
	if !ok {
		return Mapping{}, false
	}
	return fm.lookup(generatedLine)
}

// Mappings returns every mapping recorded for generatedFile, in
// generated-line order.
func (r *Registry) Mappings(generatedFile string) []Mapping {
	fm, ok := r.files[generatedFile]
	if !ok {
		return nil
	}
	out := make([]Mapping, len(fm.entries))
	copy(out, fm.entries)
	return out
}

// Clear discards every recorded mapping.
func (r *Registry) Clear() {
	r.files = make(map[string]*fileMappings)
}
