package bptree

import (
	"encoding/binary"
	"math"
)

// Codec encodes and decodes one fixed-width value of type T to and from
// a byte slice. Size sets the page layout at tree-open time and is read
// again on every page encode and decode; every slot reserves exactly that
// many bytes — the concrete enforcement of the
// "no variable-length records" non-goal.
type Codec[T any] interface {
	Size() int
	Put(buf []byte, v T)
	Get(buf []byte) T
}

// Comparator orders two values of T, in the style of the original
// source's key_comp/val_comp template parameters: negative if a < b,
// zero if equal, positive if a > b.
type Comparator[T any] func(a, b T) int

type int64Codec struct{}

// Int64Codec encodes int64 values, little-endian, 8 bytes wide.
func Int64Codec() Codec[int64] { return int64Codec{} }

func (int64Codec) Size() int { return 8 }
func (int64Codec) Put(buf []byte, v int64) {
	binary.LittleEndian.PutUint64(buf, uint64(v))
}
func (int64Codec) Get(buf []byte) int64 {
	return int64(binary.LittleEndian.Uint64(buf))
}

type uint64Codec struct{}

// Uint64Codec encodes uint64 values, little-endian, 8 bytes wide.
func Uint64Codec() Codec[uint64] { return uint64Codec{} }

func (uint64Codec) Size() int { return 8 }
func (uint64Codec) Put(buf []byte, v uint64) {
	binary.LittleEndian.PutUint64(buf, v)
}
func (uint64Codec) Get(buf []byte) uint64 {
	return binary.LittleEndian.Uint64(buf)
}

type float64Codec struct{}

// Float64Codec encodes float64 values via their IEEE-754 bit pattern,
// little-endian, 8 bytes wide.
func Float64Codec() Codec[float64] { return float64Codec{} }

func (float64Codec) Size() int { return 8 }
func (float64Codec) Put(buf []byte, v float64) {
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
}
func (float64Codec) Get(buf []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf))
}

// FixedBytesCodec encodes a []byte value of exactly Width bytes,
// truncating or zero-padding on Put. It is the codec behind the fixed-
// width string type used by cmd/bptreedb.
type FixedBytesCodec struct {
	Width int
}

func (c FixedBytesCodec) Size() int { return c.Width }

// Put zero-pads v up to Width, or silently truncates it down to Width if
// v is longer — callers are responsible for keeping values within the
// width they configured the codec with.
func (c FixedBytesCodec) Put(buf []byte, v []byte) {
	for i := range buf[:c.Width] {
		buf[i] = 0
	}
	copy(buf[:c.Width], v)
}

func (c FixedBytesCodec) Get(buf []byte) []byte {
	out := make([]byte, c.Width)
	copy(out, buf[:c.Width])
	return out
}
