package script_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prog-lang/purec/pkg/ast"
	"github.com/prog-lang/purec/pkg/script"
)

func mustAST(t *testing.T, decls []ast.Declaration) *ast.AST {
	t.Helper()
	program, err := ast.New(decls)
	require.NoError(t, err)
	return program
}

func TestGenerateMinimalEntrypoint(t *testing.T) {
	program := mustAST(t, []ast.Declaration{{ID: "main", Expr: ast.Int{Value: 42}}})

	out, err := script.Generate(program)
	require.NoError(t, err)

	assert.True(t, strings.Contains(out, `const std = require("./std");`))
	assert.True(t, strings.Contains(out, "const main = 42;"))
	assert.True(t, strings.HasSuffix(out, "main();\n"))
}

func TestGenerateCurriedCall(t *testing.T) {
	program := mustAST(t, []ast.Declaration{{
		ID: "main",
		Expr: ast.Call{
			Func: ast.ID{Qualified: "std.add"},
			Args: []ast.Expr{ast.Int{Value: 1}, ast.Int{Value: 2}},
		},
	}})

	out, err := script.Generate(program)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "const main = std.add (1) (2);"))
}

func TestGenerateFuncBindingAndBracketedHead(t *testing.T) {
	program := mustAST(t, []ast.Declaration{
		{ID: "inc", Expr: ast.Func{
			Params: []string{"x"},
			Body: ast.Call{
				Func: ast.ID{Qualified: "std.add"},
				Args: []ast.Expr{ast.Name{Ident: "x"}, ast.Int{Value: 1}},
			},
		}},
		{ID: "main", Expr: ast.Call{
			Func: ast.Func{Params: []string{"x"}, Body: ast.Name{Ident: "x"}},
			Args: []ast.Expr{ast.Int{Value: 1}},
		}},
	})

	out, err := script.Generate(program)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, "const inc = x => std.add (x) (1);"))
	assert.True(t, strings.Contains(out, "const main = (x => x) (1);"))
}
