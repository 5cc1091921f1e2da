// Package endian provides byte order utilities for reading container segments
// and reinterpreting pixel memory.
//
// Container fields are always little-endian. Pixel payloads are declared
// little-endian as well, so swapping only happens on big-endian hosts; the
// swap helpers here are nevertheless exercised on every host by tests since
// swapping is an involution.
//
// # Thread Safety
//
// All functions in this package are safe for concurrent use. The returned
// EndianEngine instances are immutable and stateless.
package endian

import (
	"encoding/binary"
	"unsafe"
)

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary.
//
// binary.LittleEndian and binary.BigEndian both satisfy it.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// CheckEndianness uses a fixed integer value to determine the host's byte order.
func CheckEndianness() binary.ByteOrder {
	// 0x0100: the first byte in memory is 0x01 only on big-endian hosts.
	var i uint16 = 0x0100
	b := (*[2]byte)(unsafe.Pointer(&i))

	if b[0] == 0x01 {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// IsNativeLittleEndian reports whether the host is little-endian.
func IsNativeLittleEndian() bool {
	return CheckEndianness() == binary.LittleEndian
}

// CompareNativeEndian reports whether order matches the host byte order.
func CompareNativeEndian(order binary.ByteOrder) bool {
	return order == CheckEndianness()
}

// NeedsSwap reports whether data declared in order must be byte-swapped before
// it can be reinterpreted as native scalars.
func NeedsSwap(order binary.ByteOrder) bool {
	return order != nil && !CompareNativeEndian(order)
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}

// SwapInPlace reverses the byte order of every width-byte component of data.
//
// Widths of 0 and 1 are a no-op. Trailing bytes that do not form a complete
// component are left untouched. Applying SwapInPlace twice restores data.
func SwapInPlace(data []byte, width int) {
	if width <= 1 {
		return
	}

	n := len(data) - len(data)%width
	switch width {
	case 2:
		for i := 0; i < n; i += 2 {
			data[i], data[i+1] = data[i+1], data[i]
		}
	case 4:
		for i := 0; i < n; i += 4 {
			data[i], data[i+1], data[i+2], data[i+3] = data[i+3], data[i+2], data[i+1], data[i]
		}
	default:
		for i := 0; i < n; i += width {
			for lo, hi := i, i+width-1; lo < hi; lo, hi = lo+1, hi-1 {
				data[lo], data[hi] = data[hi], data[lo]
			}
		}
	}
}

// Swapped returns a swapped copy of data, leaving data untouched.
func Swapped(data []byte, width int) []byte {
	out := make([]byte, len(data))
	copy(out, data)
	SwapInPlace(out, width)

	return out
}
