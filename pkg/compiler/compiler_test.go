package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prog-lang/purec/pkg/compiler"
)

func TestCompileToNodeScript(t *testing.T) {
	result, err := compiler.Compile([]byte("main = 42"), compiler.ArchNode)
	require.NoError(t, err)
	assert.Equal(t, compiler.ArchNode, result.Arch)
	assert.Contains(t, result.Script, "const main = 42;")
}

func TestCompileToVMBytecode(t *testing.T) {
	result, err := compiler.Compile([]byte("main = 42"), compiler.ArchVM)
	require.NoError(t, err)
	assert.Equal(t, compiler.ArchVM, result.Arch)
	// 8-byte data header + 3 ops * 8 bytes.
	assert.Len(t, result.Bytecode, 8+3*8)
}

func TestCompileReportsSyntaxError(t *testing.T) {
	_, err := compiler.Compile([]byte("main = ("), compiler.ArchNode)
	require.Error(t, err)
	var synErr compiler.SyntaxError
	assert.ErrorAs(t, err, &synErr)
	assert.Contains(t, err.Error(), "Syntax error:")
}

func TestCompileReportsSemanticError(t *testing.T) {
	_, err := compiler.Compile([]byte("helper = 1"), compiler.ArchNode)
	require.Error(t, err)
	var semErr compiler.SemanticError
	assert.ErrorAs(t, err, &semErr)
	assert.Contains(t, err.Error(), "Semantic error:")
	assert.Contains(t, err.Error(), "Missing entrypoint")
}

func TestCompileRejectsUnknownArch(t *testing.T) {
	_, err := compiler.Compile([]byte("main = 42"), compiler.Arch("wasm"))
	require.Error(t, err)
	var archErr compiler.UnknownArchError
	assert.ErrorAs(t, err, &archErr)
}
