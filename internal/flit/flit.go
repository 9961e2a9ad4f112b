// Package flit implements FLIT64, a little-endian prefix varint for 64-bit
// unsigned integers.
//
// The number of trailing zero bits of the first byte tells how many bytes
// follow: a value encoded in n bytes (1 <= n <= 8) is stored as the n-byte
// little-endian word v<<n | 1<<(n-1), carrying 7n payload bits. Values that
// do not fit in 56 bits are stored as a zero byte followed by the full
// 8-byte little-endian value.
package flit

import (
	"encoding/binary"
	"math/bits"
)

const (
	// MaxLen is the longest encoding.
	MaxLen = 9

	// FastSlack is how many readable bytes Parse64Fast needs at src.
	FastSlack = MaxLen
)

// EncodedLen returns the number of bytes Encode64 writes for v.
func EncodedLen(v uint64) int {
	if v>>56 != 0 {
		return MaxLen
	}
	n := (bits.Len64(v) + 6) / 7
	if n == 0 {
		return 1
	}
	return n
}

// Encode64 writes v at the start of dst and returns the number of bytes written.
// dst must have room for EncodedLen(v) bytes.
func Encode64(dst []byte, v uint64) int {
	n := EncodedLen(v)
	if n == MaxLen {
		dst[0] = 0
		binary.LittleEndian.PutUint64(dst[1:MaxLen], v)
		return MaxLen
	}
	word := v<<uint(n) | 1<<uint(n-1)
	for i := 0; i < n; i++ {
		dst[i] = byte(word >> (8 * uint(i)))
	}
	return n
}

// Append appends the encoding of v to dst.
func Append(dst []byte, v uint64) []byte {
	var buf [MaxLen]byte
	n := Encode64(buf[:], v)
	return append(dst, buf[:n]...)
}

// Parse64Fast decodes the value at the start of src and returns it together
// with the encoded length. It always loads a full word and therefore requires
// len(src) >= FastSlack regardless of the encoded length; shorter slices panic.
func Parse64Fast(src []byte) (uint64, int) {
	_ = src[FastSlack-1]
	if src[0] == 0 {
		return binary.LittleEndian.Uint64(src[1:MaxLen]), MaxLen
	}
	n := bits.TrailingZeros8(src[0]) + 1
	word := binary.LittleEndian.Uint64(src)
	if n < 8 {
		word &= 1<<(8*uint(n)) - 1
	}
	return word >> uint(n), n
}

// Parse64Safe decodes the value at the start of src without reading past
// len(src). It returns (0, 0) when src is empty or holds a truncated encoding.
func Parse64Safe(src []byte) (uint64, int) {
	if len(src) == 0 {
		return 0, 0
	}
	if src[0] == 0 {
		if len(src) < MaxLen {
			return 0, 0
		}
		return binary.LittleEndian.Uint64(src[1:MaxLen]), MaxLen
	}
	n := bits.TrailingZeros8(src[0]) + 1
	if len(src) < n {
		return 0, 0
	}
	var word uint64
	for i := n - 1; i >= 0; i-- {
		word = word<<8 | uint64(src[i])
	}
	return word >> uint(n), n
}
