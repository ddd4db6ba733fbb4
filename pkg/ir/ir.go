// Package ir lowers a validated pkg/ast.AST into a linear stack-machine
// instruction sequence per declaration. Grounded on the teacher's
// pkg/jack/lowering.go Lowerer: a DFS walk over a tree-shaped program
// producing a flat operation list, one definition at a time.
package ir

import (
	"fmt"

	"github.com/prog-lang/purec/pkg/ast"
	"github.com/prog-lang/purec/pkg/stdlib"
)

// Op is a stack-machine opcode. Ref carries a symbolic (qualified) name
// before linking and a numeric operand after pkg/link resolves it; every
// other operand is already numeric at construction time.
type Op struct {
	Code Code
	Ref  string // only meaningful for PushFn / PushCmd, before linking
	Arg  uint32 // count/index operand of ARGC, PushArg, Drop and Feed, and the resolved Ref post-link
	I32  int32  // signed payload for PushI32
	Bool bool   // payload for PushBool
	U8   uint8  // payload for PushU8
}

// Code names every opcode this compiler ever emits. ARGC shares NOP's wire
// tag (pkg/bytecode) but is kept as a distinct Code here so the IR stays
// self-describing; the overlap is introduced only at encoding time.
type Code int

const (
	NOP Code = iota
	ARGC
	PushUnit
	PushBool
	PushU8
	PushI32
	PushFn
	PushCmd
	PushArg
	Drop
	Feed
	Branch
	Return
)

// Definition is one top-level declaration lowered to code.
type Definition struct {
	ID   string
	Code []Op
}

// lifted numbers the synthetic lambda-lifted definitions generated for the
// current top-level declaration (Lower resets it before each one). It lives
// on a lowerer created per Lower call (not a package var) so concurrent or
// repeated compiles never interfere with each other; grounded on the
// teacher's Lowerer.nRandomizer field, which plays the same role
// (deterministic, distinct synthetic names).
type lowerer struct {
	ast    *ast.AST
	lifted uint
	extra  []Definition // synthetic definitions produced by lambda-lifting
}

// Lower converts every declaration in program into a Definition, in the
// AST's own deterministic order, appending any lambda-lifted synthetic
// definitions after the declarations that produced them.
func Lower(program *ast.AST) ([]Definition, error) {
	l := &lowerer{ast: program}

	defs := make([]Definition, 0, len(program.Declarations()))
	for _, decl := range program.Declarations() {
		l.lifted = 0 // reset per top-level declaration, per SPEC_FULL.md §4.4
		code, err := l.lowerDeclaration(decl)
		if err != nil {
			return nil, fmt.Errorf("lowering %q: %w", decl.ID, err)
		}
		defs = append(defs, Definition{ID: decl.ID, Code: code})
		defs = append(defs, l.extra...)
		l.extra = nil
	}
	return defs, nil
}

// env maps an in-scope parameter name to its positional index in the
// enclosing definition's argument frame.
type env map[string]uint32

func (l *lowerer) lowerDeclaration(decl ast.Declaration) ([]Op, error) {
	arity := uint32(0)
	body := decl.Expr
	scope := env{}

	if fn, ok := decl.Expr.(ast.Func); ok {
		arity = uint32(len(fn.Params))
		body = fn.Body
		for i, p := range fn.Params {
			scope[p] = uint32(i)
		}
	}

	code := []Op{{Code: ARGC, Arg: arity}}
	lowered, err := l.lowerExpr(body, scope, decl.ID)
	if err != nil {
		return nil, err
	}
	code = append(code, lowered...)
	code = append(code, Op{Code: Return})
	return code, nil
}

// lowerExpr lowers one expression. A declaration's outermost Func never
// reaches it: lowerDeclaration handles that one with ARGC and recurses
// straight into its body. Every Func lowerExpr does see is therefore
// *nested* (found mid-expression) and is lambda-lifted, since this
// implementation resolves Name references via a positional argument frame
// and two different frames cannot be flattened into one without renaming.
func (l *lowerer) lowerExpr(e ast.Expr, scope env, declID string) ([]Op, error) {
	switch v := e.(type) {
	case ast.Int:
		return []Op{{Code: PushI32, I32: v.Value}}, nil

	case ast.Name:
		idx, ok := scope[v.Ident]
		if !ok {
			// pkg/ast's parameter-scoping check guarantees this never
			// happens on validated input.
			panic(fmt.Sprintf("internal compiler error: unbound name %q during lowering of %q", v.Ident, declID))
		}
		return []Op{{Code: PushArg, Arg: idx}}, nil

	case ast.ID:
		return l.lowerID(v, declID)

	case ast.Call:
		return l.lowerCall(v, scope, declID)

	case ast.Func:
		return l.lowerLambda(v, scope, declID)

	default:
		panic(fmt.Sprintf("internal compiler error: unrecognized expression %T", e))
	}
}

func (l *lowerer) lowerID(id ast.ID, declID string) ([]Op, error) {
	if stdlib.IsStd(id.Qualified) {
		return []Op{{Code: PushFn, Ref: id.Qualified}}, nil
	}

	target := l.ast.Get(id.Qualified)
	if _, isFunc := target.Expr.(ast.Func); isFunc {
		return []Op{{Code: PushCmd, Ref: id.Qualified}}, nil
	}
	// Nullary definition: force the thunk by applying unit.
	return []Op{
		{Code: PushCmd, Ref: id.Qualified},
		{Code: PushUnit},
		{Code: Feed, Arg: 1},
	}, nil
}

func (l *lowerer) lowerCall(call ast.Call, scope env, declID string) ([]Op, error) {
	code, err := l.lowerExpr(call.Func, scope, declID)
	if err != nil {
		return nil, err
	}
	for _, arg := range call.Args {
		argCode, err := l.lowerExpr(arg, scope, declID)
		if err != nil {
			return nil, err
		}
		code = append(code, argCode...)
	}
	code = append(code, Op{Code: Feed, Arg: uint32(len(call.Args))})
	return code, nil
}

// lowerLambda lifts a nested Func into a synthetic top-level definition,
// capturing the enclosing scope's free names as its leading parameters (in
// the order freeNames returns them: first occurrence in the body), and
// rewrites the call site into an application of the lifted command to
// those captures.
func (l *lowerer) lowerLambda(fn ast.Func, scope env, declID string) ([]Op, error) {
	captures := freeNames(fn, scope)

	lamID := fmt.Sprintf("%s$lam%d", declID, l.lifted)
	l.lifted++

	liftedScope := env{}
	for i, name := range captures {
		liftedScope[name] = uint32(i)
	}
	for i, p := range fn.Params {
		liftedScope[p] = uint32(len(captures) + i)
	}

	body, err := l.lowerExpr(fn.Body, liftedScope, lamID)
	if err != nil {
		return nil, err
	}
	liftedCode := []Op{{Code: ARGC, Arg: uint32(len(captures) + len(fn.Params))}}
	liftedCode = append(liftedCode, body...)
	liftedCode = append(liftedCode, Op{Code: Return})
	l.extra = append(l.extra, Definition{ID: lamID, Code: liftedCode})

	// Partially apply the lifted command to its captures, in capture order.
	code := []Op{{Code: PushCmd, Ref: lamID}}
	for _, name := range captures {
		code = append(code, Op{Code: PushArg, Arg: scope[name]})
	}
	if len(captures) > 0 {
		code = append(code, Op{Code: Feed, Arg: uint32(len(captures))})
	}
	return code, nil
}

// freeNames collects, in first-occurrence order, every Name referenced in
// fn's body that is bound by scope but not shadowed by one of fn's own
// parameters. pkg/ast's parameter-scoping validation guarantees every Name
// anywhere in the program resolves to some enclosing Func, so a Name that
// isn't one of fn's own parameters must be a capture from scope.
func freeNames(fn ast.Func, scope env) []string {
	baseShadow := make(map[string]bool, len(fn.Params))
	for _, p := range fn.Params {
		baseShadow[p] = true
	}

	seen := map[string]bool{}
	var order []string

	// walk carries its own shadow set per nesting level, rather than
	// mutating one shared set, so a deeper Func reusing an outer param
	// name shadows that name only for its own body, not for the rest of
	// fn's body once the walk returns to it.
	var walk func(ast.Expr, map[string]bool)
	walk = func(e ast.Expr, shadowed map[string]bool) {
		switch v := e.(type) {
		case ast.Name:
			if shadowed[v.Ident] || seen[v.Ident] {
				return
			}
			if _, captured := scope[v.Ident]; captured {
				seen[v.Ident] = true
				order = append(order, v.Ident)
			}
		case ast.Call:
			walk(v.Func, shadowed)
			for _, arg := range v.Args {
				walk(arg, shadowed)
			}
		case ast.Func:
			nested := make(map[string]bool, len(shadowed)+len(v.Params))
			for name := range shadowed {
				nested[name] = true
			}
			for _, p := range v.Params {
				nested[p] = true
			}
			walk(v.Body, nested)
		}
	}
	walk(fn.Body, baseShadow)
	return order
}
