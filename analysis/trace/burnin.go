package trace

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBurnIn is returned for burn-in fractions outside [0,1) and for
// burn-in counts that would leave no samples.
var ErrInvalidBurnIn = errors.New("invalid burn-in")

// BurnIn is the leading portion of a chain discarded before analysis, given
// either as a fraction of the chain or as an absolute sample count.
type BurnIn struct {
	Fraction float64
	Count    int
	absolute bool
}

// BurnInFraction discards floor(N*f) leading samples.
func BurnInFraction(f float64) BurnIn {
	return BurnIn{Fraction: f}
}

// BurnInCount discards exactly n leading samples.
func BurnInCount(n int) BurnIn {
	return BurnIn{Count: n, absolute: true}
}

// IsCount reports whether the burn-in is an absolute sample count.
func (b BurnIn) IsCount() bool {
	return b.absolute
}

// Validate checks the burn-in independently of any chain length.
func (b BurnIn) Validate() error {
	if b.absolute {
		if b.Count < 0 {
			return fmt.Errorf("%w: count must be non-negative, got %d", ErrInvalidBurnIn, b.Count)
		}
		return nil
	}
	if math.IsNaN(b.Fraction) || b.Fraction < 0 || b.Fraction >= 1 {
		return fmt.Errorf("%w: fraction must be in [0, 1), got %v", ErrInvalidBurnIn, b.Fraction)
	}
	return nil
}

// Rows returns how many leading rows to discard from a chain of length n.
func (b BurnIn) Rows(n int) (int, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	if b.absolute {
		if b.Count >= n {
			return 0, fmt.Errorf("%w: count %d leaves no samples of %d", ErrInvalidBurnIn, b.Count, n)
		}
		return b.Count, nil
	}
	rows := int(float64(n) * b.Fraction)
	if n > 0 && rows >= n {
		return 0, fmt.Errorf("%w: fraction %v leaves no samples of %d", ErrInvalidBurnIn, b.Fraction, n)
	}
	return rows, nil
}

func (b BurnIn) String() string {
	if b.absolute {
		return fmt.Sprintf("%d samples", b.Count)
	}
	return fmt.Sprintf("%.1f%%", b.Fraction*100)
}
