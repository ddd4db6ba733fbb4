package bytecode_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prog-lang/purec/pkg/bytecode"
	"github.com/prog-lang/purec/pkg/ir"
	"github.com/prog-lang/purec/pkg/link"
)

func TestAsBytesMinimalEntrypoint(t *testing.T) {
	defs := []ir.Definition{
		{ID: "main", Code: []ir.Op{
			{Code: ir.ARGC, Arg: 0},
			{Code: ir.PushI32, I32: 42},
			{Code: ir.Return},
		}},
	}
	program, err := link.Link(defs)
	require.NoError(t, err)

	out, err := bytecode.AsBytes(program, nil)
	require.NoError(t, err)

	// 8-byte zero data-length header, then 3 ops * 8 bytes.
	require.Len(t, out, 8+3*8)
	assert.Equal(t, uint64(0), binary.LittleEndian.Uint64(out[0:8]))

	code := out[8:]
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(code[0:4]))  // ARGC tag == NOP tag
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(code[4:8]))  // ARGC(0) payload

	assert.Equal(t, uint32(4), binary.LittleEndian.Uint32(code[8:12])) // PUSH_I32 tag
	assert.Equal(t, int32(42), int32(binary.LittleEndian.Uint32(code[12:16])))

	assert.Equal(t, uint32(11), binary.LittleEndian.Uint32(code[16:20])) // RETURN tag
}

func TestAsBytesCodeSegmentLengthIsMultipleOf8(t *testing.T) {
	defs := []ir.Definition{
		{ID: "main", Code: []ir.Op{
			{Code: ir.ARGC, Arg: 0},
			{Code: ir.PushFn, Ref: "std.add"},
			{Code: ir.PushI32, I32: 1},
			{Code: ir.PushI32, I32: 2},
			{Code: ir.Feed, Arg: 2},
			{Code: ir.Return},
		}},
	}
	program, err := link.Link(defs)
	require.NoError(t, err)

	out, err := bytecode.AsBytes(program, nil)
	require.NoError(t, err)

	codeLen := len(out) - 8
	assert.Zero(t, codeLen%8)
	assert.Equal(t, 6*8, codeLen)
}
