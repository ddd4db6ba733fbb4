// Package stdlib holds the fixed registry of std.* names recognized by the
// compiler. Entries are loaded from an embedded ABI document rather than a
// Go literal map so the registry reads as data, not code.
package stdlib

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
)

//go:embed stdlib.json
var abi string

// Entry describes one std.* binding. Scheme is documentation only: this
// compiler does not run type inference (see DESIGN.md), so Scheme is never
// consulted during lowering, only surfaced for tooling.
type Entry struct {
	Index  int    `json:"index"`
	Scheme string `json:"scheme"`
}

var registry = map[string]Entry{}

func init() {
	if err := json.Unmarshal([]byte(abi), &registry); err != nil {
		panic(fmt.Sprintf("stdlib: malformed embedded ABI: %s", err))
	}
}

// Prefix is the namespace reserved for standard-library identifiers.
const Prefix = "std."

// IsStd reports whether name is syntactically a standard-library reference.
// This is a textual check (spec: "if name begins with std."), independent
// of whether the name is actually registered.
func IsStd(name string) bool {
	return len(name) >= len(Prefix) && name[:len(Prefix)] == Prefix
}

// Index returns the std index for a fully qualified name, e.g. "std.add".
func Index(name string) (int, bool) {
	entry, ok := registry[name]
	return entry.Index, ok
}

// Lookup returns the full registry entry for a fully qualified name.
func Lookup(name string) (Entry, bool) {
	entry, ok := registry[name]
	return entry, ok
}

// Names returns every registered std.* name, sorted for deterministic
// iteration (diagnostics, tests).
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
