package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prog-lang/purec/pkg/ast"
)

func TestNewOrdersEntrypointFirst(t *testing.T) {
	decls := []ast.Declaration{
		{ID: "zebra", Expr: ast.Int{Value: 1}},
		{ID: "main", Expr: ast.Int{Value: 42}},
		{ID: "apple", Expr: ast.Int{Value: 2}},
	}

	program, err := ast.New(decls)
	require.NoError(t, err)

	ordered := program.Declarations()
	require.Len(t, ordered, 3)
	assert.Equal(t, "main", ordered[0].ID)
	assert.Equal(t, "apple", ordered[1].ID)
	assert.Equal(t, "zebra", ordered[2].ID)
}

func TestNewRejectsMissingEntrypoint(t *testing.T) {
	_, err := ast.New([]ast.Declaration{{ID: "helper", Expr: ast.Int{Value: 1}}})
	assert.ErrorContains(t, err, "Missing entrypoint")
}

func TestNewRejectsDuplicateDeclarations(t *testing.T) {
	decls := []ast.Declaration{
		{ID: "main", Expr: ast.Int{Value: 1}},
		{ID: "main", Expr: ast.Int{Value: 2}},
	}
	_, err := ast.New(decls)
	assert.ErrorContains(t, err, "duplicate declaration")
}

func TestNewRejectsUnknownReference(t *testing.T) {
	decls := []ast.Declaration{
		{ID: "main", Expr: ast.ID{Qualified: "nowhere"}},
	}
	_, err := ast.New(decls)
	assert.ErrorContains(t, err, "Unknown references found")
}

func TestNewAcceptsStdlibReference(t *testing.T) {
	decls := []ast.Declaration{
		{ID: "main", Expr: ast.Call{
			Func: ast.ID{Qualified: "std.add"},
			Args: []ast.Expr{ast.Int{Value: 1}, ast.Int{Value: 2}},
		}},
	}
	_, err := ast.New(decls)
	assert.NoError(t, err)
}

func TestNewRejectsUnboundParameter(t *testing.T) {
	decls := []ast.Declaration{
		{ID: "main", Expr: ast.Name{Ident: "x"}},
	}
	_, err := ast.New(decls)
	assert.ErrorContains(t, err, "Unbound parameter")
}

func TestNewRejectsDuplicateParameters(t *testing.T) {
	decls := []ast.Declaration{
		{ID: "main", Expr: ast.Func{
			Params: []string{"x", "x"},
			Body:   ast.Name{Ident: "x"},
		}},
	}
	_, err := ast.New(decls)
	assert.ErrorContains(t, err, "Duplicate parameter")
}

func TestNewAcceptsQualifiedEntrypointAlias(t *testing.T) {
	decls := []ast.Declaration{
		{ID: "main.main", Expr: ast.Int{Value: 1}},
	}
	program, err := ast.New(decls)
	require.NoError(t, err)
	assert.True(t, program.Has("main.main"))
}
