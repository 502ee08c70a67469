package frame

import (
	"errors"
	"fmt"
)

// ErrUndersized reports a Frame too small for the requested holdout.
var ErrUndersized = errors.New("frame has fewer rows than the requested holdout")

// TailSplit partitions f positionally: train is rows [0, N-n) and test is the
// n-row suffix [N-n, N). Column order and row order are preserved, so
// concatenating train and test reproduces f exactly.
//
// The source data is assumed to be in temporal order; the suffix is the most
// recent window. n must be positive and no larger than the row count — an
// undersized input is a checked error, never a silent empty train slice.
func TailSplit(f *Frame, n int) (train, test *Frame, err error) {
	if f == nil {
		return nil, nil, errors.New("nil frame")
	}
	if n <= 0 {
		return nil, nil, fmt.Errorf("holdout size must be positive (got %d)", n)
	}
	if f.NumRows() < n {
		return nil, nil, fmt.Errorf("%w: %d rows < %d", ErrUndersized, f.NumRows(), n)
	}

	cut := f.NumRows() - n
	train, err = f.Slice(0, cut)
	if err != nil {
		return nil, nil, err
	}
	test, err = f.Slice(cut, f.NumRows())
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}
