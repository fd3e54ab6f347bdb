package script

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Set of errors returned while building or parsing scripts.
var (
	ErrScriptTooLarge = errors.New("script exceeds maximum size")
	ErrTruncatedPush  = errors.New("push runs past the end of the script")
	ErrDataTooLarge   = errors.New("data exceeds maximum element size")
)

// Script is an immutable sequence of opcodes and inline data.
type Script []byte

// String returns the disassembly of the script, or its hex form when it
// can't be parsed.
func (s Script) String() string {
	str, err := Disassemble(s)
	if err != nil {
		return hexutil.Encode(s)
	}
	return str
}

// MarshalText implements the TextMarshaler interface.
func (s Script) MarshalText() ([]byte, error) {
	return []byte(hexutil.Encode(s)), nil
}

// UnmarshalText implements the TextUnmarshaler interface.
func (s *Script) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return err
	}

	*s = b
	return nil
}

// =============================================================================

// ParsedOp is a single instruction with any inline data it pushes.
type ParsedOp struct {
	Opcode Opcode
	Data   []byte
}

// ParseOps splits the script into instructions. Unknown opcodes are kept as
// instructions without data.
func ParseOps(s Script) ([]ParsedOp, error) {
	var ops []ParsedOp

	for pos := 0; pos < len(s); {
		op := Opcode(s[pos])
		pos++

		var width int
		switch op {
		case OP_PUSHDATA1:
			width = 1
		case OP_PUSHDATA2:
			width = 2
		case OP_PUSHDATA4:
			width = 4
		default:
			ops = append(ops, ParsedOp{Opcode: op})
			continue
		}

		if len(s)-pos < width {
			return nil, ErrTruncatedPush
		}

		var n uint64
		for i := width - 1; i >= 0; i-- {
			n = n<<8 | uint64(s[pos+i])
		}
		pos += width

		if n > uint64(len(s)-pos) {
			return nil, ErrTruncatedPush
		}

		ops = append(ops, ParsedOp{Opcode: op, Data: s[pos : pos+int(n)]})
		pos += int(n)
	}

	return ops, nil
}

// Disassemble renders the script as a space separated list of mnemonics with
// pushed data shown in hex.
func Disassemble(s Script) (string, error) {
	ops, err := ParseOps(s)
	if err != nil {
		return "", err
	}

	parts := make([]string, len(ops))
	for i, op := range ops {
		switch op.Opcode {
		case OP_PUSHDATA1, OP_PUSHDATA2, OP_PUSHDATA4:
			parts[i] = fmt.Sprintf("%s %s", op.Opcode, hexutil.Encode(op.Data))
		default:
			parts[i] = op.Opcode.String()
		}
	}

	return strings.Join(parts, " "), nil
}

// =============================================================================

// Builder assembles scripts. The first error encountered is kept and
// returned from Script.
type Builder struct {
	script []byte
	err    error
}

// NewBuilder constructs an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddOp appends an opcode.
func (b *Builder) AddOp(op Opcode) *Builder {
	b.script = append(b.script, byte(op))
	return b
}

// AddOps appends opcodes in order.
func (b *Builder) AddOps(ops ...Opcode) *Builder {
	for _, op := range ops {
		b.AddOp(op)
	}
	return b
}

// AddData appends the smallest push instruction that carries the data.
// Empty data is pushed with OP_0.
func (b *Builder) AddData(data []byte) *Builder {
	if b.err != nil {
		return b
	}

	switch l := len(data); {
	case l == 0:
		b.script = append(b.script, byte(OP_0))
		return b
	case l > MaxElementSize:
		b.err = ErrDataTooLarge
		return b
	case l <= math.MaxUint8:
		b.script = append(b.script, byte(OP_PUSHDATA1), byte(l))
	default:
		b.script = append(b.script, byte(OP_PUSHDATA2))
		b.script = binary.LittleEndian.AppendUint16(b.script, uint16(l))
	}

	b.script = append(b.script, data...)
	return b
}

// AddInt appends a number, using OP_0 and OP_1..OP_16 where possible.
func (b *Builder) AddInt(n int16) *Builder {
	switch {
	case n == 0:
		return b.AddOp(OP_0)
	case n >= 1 && n <= 16:
		return b.AddOp(OP_1 + Opcode(n-1))
	}

	data, _ := EncodeNum(int32(n))
	return b.AddData(data)
}

// AddLockTime appends a lock time value for OP_CHECKLOCKTIMEVERIFY.
func (b *Builder) AddLockTime(lockTime uint32) *Builder {
	data := binary.LittleEndian.AppendUint32(nil, lockTime)
	for len(data) > 0 && data[len(data)-1] == 0 {
		data = data[:len(data)-1]
	}
	return b.AddData(data)
}

// Script returns the assembled script.
func (b *Builder) Script() (Script, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.script) > MaxScriptSize {
		return nil, ErrScriptTooLarge
	}

	return append(Script{}, b.script...), nil
}
