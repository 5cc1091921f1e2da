package buffer

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/arloliu/zisraw/errs"
)

// MaxSize bounds the byte counts accepted by Size. Lower it to reject
// oversized planes before allocation.
var MaxSize int64 = 1 << 40

// Size multiplies dims into a byte count. Negative factors, overflow and
// products above MaxSize fail with errs.ErrOutOfRange.
func Size(dims ...int) (int, error) {
	limit := min(uint64(MaxSize), uint64(math.MaxInt)) //nolint: gosec

	total := uint64(1)
	for _, d := range dims {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative size factor in %v", errs.ErrOutOfRange, dims)
		}

		hi, lo := bits.Mul64(total, uint64(d))
		if hi != 0 || lo > limit {
			return 0, fmt.Errorf("%w: size %v exceeds %d bytes", errs.ErrOutOfRange, dims, limit)
		}
		total = lo
	}

	return int(total), nil //nolint: gosec
}
