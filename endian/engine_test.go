package endian

import (
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestCheckEndianness(t *testing.T) {
	var marker uint16 = 0x0102
	first := (*[2]byte)(unsafe.Pointer(&marker))[0]

	switch first {
	case 0x01:
		require.Equal(t, binary.BigEndian, CheckEndianness())
		require.False(t, IsNativeLittleEndian())
	case 0x02:
		require.Equal(t, binary.LittleEndian, CheckEndianness())
		require.True(t, IsNativeLittleEndian())
	default:
		require.Failf(t, "unexpected byte value", "got: %v", first)
	}
}

func TestNeedsSwap(t *testing.T) {
	native := CheckEndianness()
	require.False(t, NeedsSwap(native))
	require.False(t, NeedsSwap(nil))

	if native == binary.LittleEndian {
		require.True(t, NeedsSwap(binary.BigEndian))
	} else {
		require.True(t, NeedsSwap(binary.LittleEndian))
	}
}

func TestEngines(t *testing.T) {
	buf := GetLittleEndianEngine().AppendUint32(nil, 0x01020304)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf)

	buf = GetBigEndianEngine().AppendUint32(nil, 0x01020304)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, buf)
}

func TestSwapInPlace(t *testing.T) {
	tests := []struct {
		name  string
		width int
		in    []byte
		want  []byte
	}{
		{"width1", 1, []byte{1, 2, 3}, []byte{1, 2, 3}},
		{"width2", 2, []byte{1, 2, 3, 4}, []byte{2, 1, 4, 3}},
		{"width4", 4, []byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte{4, 3, 2, 1, 8, 7, 6, 5}},
		{"width8", 8, []byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte{8, 7, 6, 5, 4, 3, 2, 1}},
		{"trailing", 2, []byte{1, 2, 3}, []byte{2, 1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append([]byte(nil), tt.in...)
			SwapInPlace(data, tt.width)
			require.Equal(t, tt.want, data)
		})
	}
}

func TestSwapInvolution(t *testing.T) {
	orig := make([]byte, 96)
	for i := range orig {
		orig[i] = byte(i*7 + 3)
	}

	for _, width := range []int{2, 4, 8, 16} {
		once := Swapped(orig, width)
		require.NotEqual(t, orig, once)
		twice := Swapped(once, width)
		require.Equal(t, orig, twice, "width %d", width)
	}
}

func BenchmarkSwapInPlace(b *testing.B) {
	data := make([]byte, 64*1024)
	for b.Loop() {
		SwapInPlace(data, 2)
	}
}
