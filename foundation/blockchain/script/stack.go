package script

import (
	"errors"
	"math"
)

// Limits applied to the execution stack.
const (
	MaxStackSize   = 1000
	MaxElementSize = 520
)

var (
	errStackUnderflow = errors.New("stack underflow")
	errStackOverflow  = errors.New("stack overflow")
	errNumberRange    = errors.New("number out of range")
)

// Boolean encodings.
var (
	True  = []byte{1}
	False = []byte{}
)

// Stack represents the execution stack of byte strings.
type Stack struct {
	items [][]byte
}

// Len returns the number of items on the stack.
func (s *Stack) Len() int {
	return len(s.items)
}

// Push places a copy of the item on top of the stack.
func (s *Stack) Push(item []byte) error {
	if len(s.items) >= MaxStackSize {
		return errStackOverflow
	}

	cpy := make([]byte, len(item))
	copy(cpy, item)
	s.items = append(s.items, cpy)

	return nil
}

// Pop removes and returns the top item.
func (s *Stack) Pop() ([]byte, error) {
	l := len(s.items)
	if l == 0 {
		return nil, errStackUnderflow
	}

	item := s.items[l-1]
	s.items = s.items[:l-1]

	return item, nil
}

// Peek returns the item n positions below the top without removing it.
func (s *Stack) Peek(n int) ([]byte, error) {
	l := len(s.items)
	if n < 0 || n >= l {
		return nil, errStackUnderflow
	}

	return s.items[l-1-n], nil
}

// Items returns a copy of the stack from bottom to top.
func (s *Stack) Items() [][]byte {
	items := make([][]byte, len(s.items))
	for i, item := range s.items {
		items[i] = append([]byte{}, item...)
	}

	return items
}

// PushBool pushes the boolean encoding of v.
func (s *Stack) PushBool(v bool) error {
	if v {
		return s.Push(True)
	}
	return s.Push(False)
}

// PushNum pushes the minimal encoding of n.
func (s *Stack) PushNum(n int32) error {
	b, err := EncodeNum(n)
	if err != nil {
		return err
	}
	return s.Push(b)
}

// PopNum removes the top item and decodes it as a number.
func (s *Stack) PopNum() (int32, error) {
	item, err := s.Pop()
	if err != nil {
		return 0, err
	}
	return DecodeNum(item)
}

// =============================================================================

// EncodeNum produces the minimal little endian encoding of a 16 bit number.
// Zero is the empty string, values that fit a signed byte use one byte.
func EncodeNum(n int32) ([]byte, error) {
	switch {
	case n < math.MinInt16 || n > math.MaxInt16:
		return nil, errNumberRange
	case n == 0:
		return []byte{}, nil
	case n >= math.MinInt8 && n <= math.MaxInt8:
		return []byte{byte(int8(n))}, nil
	}

	v := uint16(int16(n))
	return []byte{byte(v), byte(v >> 8)}, nil
}

// DecodeNum decodes a stack item as a 16 bit number.
func DecodeNum(b []byte) (int32, error) {
	switch len(b) {
	case 0:
		return 0, nil
	case 1:
		return int32(int8(b[0])), nil
	case 2:
		return int32(int16(uint16(b[0]) | uint16(b[1])<<8)), nil
	}

	return 0, errNumberRange
}

// IsTrue reports whether the item holds any non zero byte.
func IsTrue(item []byte) bool {
	for _, b := range item {
		if b != 0 {
			return true
		}
	}
	return false
}
