// Package link assigns code-segment offsets to lowered definitions and
// resolves their symbolic PushFn/PushCmd operands into numeric ones,
// exactly as spec.md §4.3 describes the layout pass.
package link

import (
	"fmt"

	"github.com/prog-lang/purec/pkg/ir"
	"github.com/prog-lang/purec/pkg/stdlib"
)

// opSize is the wire size of one instruction in bytes (pkg/bytecode §4.6).
const opSize = 8

// Program is the linked form of a lowered definition list: same
// definitions, same order, with every PushFn/PushCmd operand resolved to
// its final numeric value.
type Program struct {
	Definitions []ir.Definition
	Offsets     map[string]int // definition id -> byte offset of its first op
	Index       map[string]int // every resolvable symbol -> its numeric operand
}

// Link lays out defs in order (offset 0 for the first, each subsequent
// definition immediately following the previous one's code) and rewrites
// every symbolic reference. The symbol index is seeded from the standard
// library registry before any user definition is assigned an offset, so a
// PushFn(name) and a PushCmd(name) never collide even though both are
// ultimately encoded as a plain u32 operand (spec.md §4.3: "the registry
// values and the code-segment offsets share the same operand slot by
// design").
func Link(defs []ir.Definition) (*Program, error) {
	index := make(map[string]int, len(defs)+len(stdlib.Names()))
	for _, name := range stdlib.Names() {
		idx, _ := stdlib.Index(name)
		index[name] = idx
	}

	offsets := make(map[string]int, len(defs))
	offset := 0
	for _, def := range defs {
		offsets[def.ID] = offset
		index[def.ID] = offset
		offset += opSize * len(def.Code)
	}

	resolved := make([]ir.Definition, len(defs))
	for i, def := range defs {
		code := make([]ir.Op, len(def.Code))
		for j, op := range def.Code {
			if op.Code == ir.PushFn || op.Code == ir.PushCmd {
				numeric, ok := index[op.Ref]
				if !ok {
					// pkg/ast's reference-closure check guarantees every
					// symbol referenced by user code resolves; a miss here
					// means the IR produced a reference that was never
					// validated, which is this compiler's bug, not the
					// user's.
					panic(fmt.Sprintf("internal compiler error: unresolved symbol %q in %q", op.Ref, def.ID))
				}
				op.Arg = uint32(numeric)
			}
			code[j] = op
		}
		resolved[i] = ir.Definition{ID: def.ID, Code: code}
	}

	return &Program{Definitions: resolved, Offsets: offsets, Index: index}, nil
}
