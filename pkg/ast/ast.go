// Package ast defines the abstract syntax tree for the source language and
// the validation pass that turns a raw tree into a well-formed program.
//
// Construction is total on well-formed parser output; New only ever hands
// back a validated AST (see pkg/valid), matching the "construct, then
// check" idiom used across this module.
package ast

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prog-lang/purec/internal/collections"
	"github.com/prog-lang/purec/pkg/stdlib"
	"github.com/prog-lang/purec/pkg/valid"
)

// Expr is the closed sum of expression shapes in the source language.
type Expr interface{ exprNode() }

// Int is a signed 32-bit literal, e.g. -42.
type Int struct{ Value int32 }

// Name is a reference to a parameter bound by an enclosing Func.
type Name struct{ Ident string }

// ID is a fully qualified reference, either to another top-level
// declaration or to a std.* registry entry.
type ID struct{ Qualified string }

// Call applies Func to an ordered, non-empty list of arguments.
type Call struct {
	Func Expr
	Args []Expr
}

// Func is an n-ary lambda; Params must be pairwise distinct.
type Func struct {
	Params []string
	Body   Expr
}

func (Int) exprNode()  {}
func (Name) exprNode() {}
func (ID) exprNode()   {}
func (Call) exprNode() {}
func (Func) exprNode() {}

// Declaration is a top-level binding `id = expr`.
type Declaration struct {
	ID   string
	Expr Expr
}

// Entrypoint is the declaration name execution begins from.
const Entrypoint = "main"

// qualifiedEntrypoint is the fully-qualified spelling accepted as an alias.
const qualifiedEntrypoint = "main.main"

// AST is a validated collection of top-level declarations.
type AST struct {
	decls map[string]Declaration
	order []string // entrypoint first, remaining ids sorted
}

// New builds an AST from an ordered list of declarations and validates it.
// The incoming order is irrelevant to the result: New re-derives a
// deterministic order (entrypoint first, the rest sorted by id) so that
// byte-identical input always yields a byte-identical compile, regardless
// of what order the parser happened to hand declarations in.
func New(decls []Declaration) (*AST, error) {
	index := make(map[string]Declaration, len(decls))
	for _, decl := range decls {
		if _, dup := index[decl.ID]; dup {
			return nil, fmt.Errorf("duplicate declaration: %s", decl.ID)
		}
		index[decl.ID] = decl
	}

	tree := &AST{decls: index, order: deterministicOrder(index)}
	return valid.MustBuild(tree, nil)
}

// deterministicOrder places the entrypoint (if present) first and sorts
// every other id lexically, so that an unordered map never leaks its
// iteration order into the emitted artifact. Grounded on the teacher's
// pkg/jack/lowering.go NewLowerer, which sorts classes by name for the
// same reproducibility reason before it assigns any offsets or labels.
func deterministicOrder(index map[string]Declaration) []string {
	entry, hasEntry := resolveEntrypointKey(index)

	rest := make([]string, 0, len(index))
	for id := range index {
		if hasEntry && id == entry {
			continue
		}
		rest = append(rest, id)
	}
	sort.Strings(rest)

	if !hasEntry {
		return rest
	}
	return append([]string{entry}, rest...)
}

func resolveEntrypointKey(index map[string]Declaration) (string, bool) {
	if _, ok := index[Entrypoint]; ok {
		return Entrypoint, true
	}
	if _, ok := index[qualifiedEntrypoint]; ok {
		return qualifiedEntrypoint, true
	}
	return "", false
}

// Validate checks the three semantic invariants this compiler enforces.
// Re-validating an already-valid AST is a no-op: none of these checks
// mutate the receiver.
func (t *AST) Validate() error {
	if err := t.validateEntrypoint(); err != nil {
		return err
	}
	if err := t.validateReferenceClosure(); err != nil {
		return err
	}
	if err := t.validateParameterScoping(); err != nil {
		return err
	}
	return nil
}

func (t *AST) validateEntrypoint() error {
	if _, ok := resolveEntrypointKey(t.decls); !ok {
		return fmt.Errorf("Missing entrypoint: %s", Entrypoint)
	}
	return nil
}

// validateReferenceClosure checks that every ID reachable from any
// declaration body (plus the implicit entrypoint reference) resolves to
// either a declared id or a registered std.* name.
func (t *AST) validateReferenceClosure() error {
	seen := map[string]bool{}
	var unknown []string

	var walk func(Expr)
	walk = func(e Expr) {
		switch v := e.(type) {
		case ID:
			if seen[v.Qualified] {
				return
			}
			seen[v.Qualified] = true
			if !t.resolvable(v.Qualified) {
				unknown = append(unknown, v.Qualified)
			}
		case Call:
			walk(v.Func)
			for _, arg := range v.Args {
				walk(arg)
			}
		case Func:
			walk(v.Body)
		}
	}

	for _, id := range t.order {
		walk(t.decls[id].Expr)
	}

	if len(unknown) > 0 {
		return fmt.Errorf("Unknown references found: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func (t *AST) resolvable(name string) bool {
	if stdlib.IsStd(name) {
		_, ok := stdlib.Index(name)
		return ok
	}
	_, ok := t.decls[name]
	return ok
}

// validateParameterScoping enforces that every Func's parameter names are
// pairwise distinct and that every Name reference resolves to some
// enclosing Func's parameter. This supplements spec.md: the original
// pipeline left Name lowering as `todo!()` (original_source/src/def.rs),
// but an unbound parameter reference is nonsensical input a front end
// should reject before lowering, not discover mid-compile.
func (t *AST) validateParameterScoping() error {
	var scopes collections.Stack[map[string]struct{}]

	var walk func(Expr, string) error
	walk = func(e Expr, declID string) error {
		switch v := e.(type) {
		case Name:
			for _, frame := range scopes.Frames() {
				if _, ok := frame[v.Ident]; ok {
					return nil
				}
			}
			return fmt.Errorf("Unbound parameter: %s in %s", v.Ident, declID)
		case Call:
			if err := walk(v.Func, declID); err != nil {
				return err
			}
			for _, arg := range v.Args {
				if err := walk(arg, declID); err != nil {
					return err
				}
			}
			return nil
		case Func:
			frame := make(map[string]struct{}, len(v.Params))
			for _, p := range v.Params {
				if _, dup := frame[p]; dup {
					return fmt.Errorf("Duplicate parameter: %s in %s", p, declID)
				}
				frame[p] = struct{}{}
			}
			scopes.Push(frame)
			err := walk(v.Body, declID)
			scopes.Pop()
			return err
		default:
			return nil
		}
	}

	for _, id := range t.order {
		if err := walk(t.decls[id].Expr, id); err != nil {
			return err
		}
	}
	return nil
}

// Declarations returns every declaration, entrypoint first, the remainder
// sorted by id.
func (t *AST) Declarations() []Declaration {
	out := make([]Declaration, len(t.order))
	for i, id := range t.order {
		out[i] = t.decls[id]
	}
	return out
}

// Get fetches a declaration by id. Behaviour is undefined (panics) on an
// id absent from the AST: validation upstream guarantees every id a caller
// legitimately has came from Declarations() or a validated ID reference.
func (t *AST) Get(id string) Declaration {
	decl, ok := t.decls[id]
	if !ok {
		panic(fmt.Sprintf("internal compiler error: unknown declaration %q", id))
	}
	return decl
}

// Has reports whether id names a declaration in this AST.
func (t *AST) Has(id string) bool {
	_, ok := t.decls[id]
	return ok
}
