// Package script lowers a validated pkg/ast.AST straight to curried,
// Node.js-flavored JavaScript source text, grounded on
// original_source/src/js.rs's JS enum and its string-rendering impls, in
// the teacher's Generate() ([]string, error) shape (pkg/hack/codegen.go,
// pkg/asm/codegen.go) generalized from one-instruction-per-line to
// one-declaration-per-line via recursive expression rendering.
package script

import (
	"fmt"
	"strings"

	"github.com/prog-lang/purec/pkg/ast"
)

const prelude = `const std = require("./std");`
const trailer = `main();`

// Generate renders program as a complete script module: the require
// prelude, one declaration binding per line (entrypoint first, the
// remainder sorted by id, matching pkg/link's order so both backends agree
// on declaration order for the same input), then the trailer call.
func Generate(program *ast.AST) (string, error) {
	lines := []string{prelude}

	for _, decl := range program.Declarations() {
		body, err := renderExpr(decl.Expr)
		if err != nil {
			return "", fmt.Errorf("rendering %q: %w", decl.ID, err)
		}
		lines = append(lines, fmt.Sprintf("const %s = %s;", decl.ID, body))
	}

	lines = append(lines, trailer)
	return strings.Join(lines, "\n\n") + "\n", nil
}

// renderExpr mirrors js.rs's `impl Into<String> for JS`: Name and ID both
// render as bare identifier text (pkg/ast already resolved Name to a
// parameter, so there is nothing left to distinguish at this stage), Int
// renders as a decimal literal, Call renders as a curried application with
// every argument individually parenthesized, and Func renders as a chain
// of arrow functions.
func renderExpr(e ast.Expr) (string, error) {
	switch v := e.(type) {
	case ast.Int:
		return fmt.Sprintf("%d", v.Value), nil

	case ast.Name:
		return v.Ident, nil

	case ast.ID:
		return v.Qualified, nil

	case ast.Call:
		return renderCall(v)

	case ast.Func:
		return renderFunc(v)

	default:
		return "", fmt.Errorf("unrenderable expression %T", e)
	}
}

func renderCall(call ast.Call) (string, error) {
	head, err := renderBracketedFunc(call.Func)
	if err != nil {
		return "", err
	}

	args := make([]string, len(call.Args))
	for i, arg := range call.Args {
		rendered, err := renderExpr(arg)
		if err != nil {
			return "", err
		}
		args[i] = fmt.Sprintf("(%s)", rendered)
	}
	return fmt.Sprintf("%s %s", head, strings.Join(args, " ")), nil
}

func renderFunc(fn ast.Func) (string, error) {
	body, err := renderExpr(fn.Body)
	if err != nil {
		return "", err
	}
	arrows := make([]string, len(fn.Params))
	copy(arrows, fn.Params)
	return fmt.Sprintf("%s => %s", strings.Join(arrows, " => "), body), nil
}

// renderBracketedFunc parenthesizes the call head when it is itself a Func
// literal, so `(x => x) (1)` reads unambiguously rather than binding the
// arrow body across the whole application.
func renderBracketedFunc(e ast.Expr) (string, error) {
	rendered, err := renderExpr(e)
	if err != nil {
		return "", err
	}
	if _, isFunc := e.(ast.Func); isFunc {
		return fmt.Sprintf("(%s)", rendered), nil
	}
	return rendered, nil
}
