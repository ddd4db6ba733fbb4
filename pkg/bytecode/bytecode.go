// Package bytecode encodes a linked program into the byte-exact wire
// format spec.md §4.4/§6 describes, byte for byte compatible with the
// original_source/src/asm.rs encoder this specification was distilled
// from: an 8-byte little-endian data-length header, the (zero-padded)
// data payload, then a flat sequence of 8-byte instructions.
package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/prog-lang/purec/pkg/ir"
	"github.com/prog-lang/purec/pkg/link"
)

// tag is the 4-byte little-endian opcode discriminant written as the first
// half of every encoded instruction. Consecutive integers starting at 0,
// in the order spec.md §6 fixes; ARGC is not a tag of its own, it is
// encoded with the NOP tag and its count as payload (nonzero iff the
// count is), an intentional quirk
// (SPEC_FULL.md §9) preserved rather than "fixed".
type tag uint32

const (
	tagNOP tag = iota
	tagPushUnit
	tagPushBool
	tagPushU8
	tagPushI32
	tagPushFn
	tagPushCmd
	tagPushArg
	tagDrop
	tagFeed
	tagBranch
	tagReturn
)

var tags = map[ir.Code]tag{
	ir.NOP:      tagNOP,
	ir.ARGC:     tagNOP, // deliberate overlap, see the tag doc
	ir.PushUnit: tagPushUnit,
	ir.PushBool: tagPushBool,
	ir.PushU8:   tagPushU8,
	ir.PushI32:  tagPushI32,
	ir.PushFn:   tagPushFn,
	ir.PushCmd:  tagPushCmd,
	ir.PushArg:  tagPushArg,
	ir.Drop:     tagDrop,
	ir.Feed:     tagFeed,
	ir.Branch:   tagBranch,
	ir.Return:   tagReturn,
}

const opSize = 8 // 4-byte tag + 4-byte payload
const alignment = 8

// AsBytes renders the linked program as the final wire artifact. data is
// the raw byte content of the data segment (always empty today: the
// source language has no string/byte-literal construct, see
// SPEC_FULL.md §4.6); the parameter exists so a future literal-table pass
// has somewhere to plug in without changing this function's signature.
func AsBytes(program *link.Program, data []byte) ([]byte, error) {
	out := new(bytes.Buffer)

	if err := writeDataSegment(out, data); err != nil {
		return nil, err
	}
	for _, def := range program.Definitions {
		for _, op := range def.Code {
			encoded, err := encodeOp(op)
			if err != nil {
				return nil, fmt.Errorf("encoding %q: %w", def.ID, err)
			}
			out.Write(encoded)
		}
	}
	return out.Bytes(), nil
}

// writeDataSegment writes the u64 LE length header followed by data,
// zero-padded to a multiple of alignment, mirroring asm.rs's
// aligned_data_length/data_vec pair.
func writeDataSegment(out *bytes.Buffer, data []byte) error {
	header := make([]byte, 8)
	binary.LittleEndian.PutUint64(header, uint64(alignedLength(len(data))))
	out.Write(header)

	out.Write(data)
	if pad := alignedLength(len(data)) - len(data); pad > 0 {
		out.Write(make([]byte, pad))
	}
	return nil
}

func alignedLength(n int) int {
	if n%alignment == 0 {
		return n
	}
	return n + (alignment - n%alignment)
}

// encodeOp renders one instruction as its fixed 8-byte wire form: a 4-byte
// LE tag followed by a 4-byte LE payload, per the table in spec.md §6.
func encodeOp(op ir.Op) ([]byte, error) {
	t, ok := tags[op.Code]
	if !ok {
		return nil, fmt.Errorf("unknown opcode %v", op.Code)
	}

	buf := make([]byte, opSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(t))

	switch op.Code {
	case ir.ARGC, ir.PushArg, ir.Drop, ir.Feed:
		binary.LittleEndian.PutUint32(buf[4:8], op.Arg)
	case ir.PushFn, ir.PushCmd:
		binary.LittleEndian.PutUint32(buf[4:8], op.Arg)
	case ir.PushI32:
		binary.LittleEndian.PutUint32(buf[4:8], uint32(op.I32))
	case ir.PushBool:
		if op.Bool {
			buf[4] = 1
		}
	case ir.PushU8:
		buf[4] = op.U8
	case ir.NOP, ir.PushUnit, ir.Branch, ir.Return:
		// no payload
	default:
		return nil, fmt.Errorf("unhandled opcode %v", op.Code)
	}
	return buf, nil
}
