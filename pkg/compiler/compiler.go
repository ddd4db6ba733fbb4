// Package compiler orchestrates the full pipeline — parse, build & validate
// the AST, then lower to one of the two backends — and defines the error
// taxonomy cmd/purec maps to process exit codes. This package never
// touches the filesystem or calls os.Exit; that stays in cmd/purec, the
// same pkg/cmd layering the teacher's three translators use (pkg/* stays
// pure, cmd/*/main.go does I/O and reports exit codes).
package compiler

import (
	"bytes"
	"fmt"

	"github.com/prog-lang/purec/pkg/ast"
	"github.com/prog-lang/purec/pkg/bytecode"
	"github.com/prog-lang/purec/pkg/ir"
	"github.com/prog-lang/purec/pkg/link"
	"github.com/prog-lang/purec/pkg/parser"
	"github.com/prog-lang/purec/pkg/script"
)

// Arch selects which backend Compile targets.
type Arch string

const (
	ArchVM   Arch = "vm"
	ArchNode Arch = "node"
)

// Result carries exactly one populated payload field, selected by Arch.
type Result struct {
	Arch     Arch
	Bytecode []byte // set iff Arch == ArchVM
	Script   string // set iff Arch == ArchNode
}

// SyntaxError wraps a failure from pkg/parser.
type SyntaxError struct{ Err error }

func (e SyntaxError) Error() string { return "Syntax error:\n" + e.Err.Error() }
func (e SyntaxError) Unwrap() error { return e.Err }

// SemanticError wraps a failure from pkg/ast validation or a later stage
// that discovers semantically invalid input.
type SemanticError struct{ Err error }

func (e SemanticError) Error() string { return "Semantic error:\n" + e.Err.Error() }
func (e SemanticError) Unwrap() error { return e.Err }

// UnknownArchError reports an Arch value outside {ArchVM, ArchNode}.
type UnknownArchError struct{ Got string }

func (e UnknownArchError) Error() string {
	return fmt.Sprintf("Unknown architecture: %q (expected %q or %q)", e.Got, ArchVM, ArchNode)
}

// Compile runs the whole pipeline against src and produces a Result for
// arch. A parse failure is always a SyntaxError; an AST validation failure
// is always a SemanticError; every later-stage failure (lowering, linking,
// encoding) indicates either an internal compiler error (panics, per
// SPEC_FULL.md §7, not returned here) or, in principle, a SemanticError —
// in practice pkg/ast validation proves every invariant those stages rely
// on, so this path is unreachable on validated input.
func Compile(src []byte, arch Arch) (Result, error) {
	if arch != ArchVM && arch != ArchNode {
		return Result{}, UnknownArchError{Got: string(arch)}
	}

	decls, err := parser.New(bytes.NewReader(src)).ParseDeclarations()
	if err != nil {
		return Result{}, SyntaxError{Err: err}
	}
	program, err := ast.New(decls)
	if err != nil {
		return Result{}, SemanticError{Err: err}
	}

	switch arch {
	case ArchVM:
		defs, err := ir.Lower(program)
		if err != nil {
			return Result{}, SemanticError{Err: err}
		}
		linked, err := link.Link(defs)
		if err != nil {
			return Result{}, SemanticError{Err: err}
		}
		encoded, err := bytecode.AsBytes(linked, nil)
		if err != nil {
			return Result{}, SemanticError{Err: err}
		}
		return Result{Arch: ArchVM, Bytecode: encoded}, nil

	case ArchNode:
		text, err := script.Generate(program)
		if err != nil {
			return Result{}, SemanticError{Err: err}
		}
		return Result{Arch: ArchNode, Script: text}, nil

	default:
		panic("internal compiler error: unreachable arch switch arm")
	}
}
