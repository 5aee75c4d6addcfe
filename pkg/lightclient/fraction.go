package lightclient

// Fraction represents a trust threshold Num/Den, canonically 1/3.
type Fraction struct {
	Num uint64
	Den uint64
}

// DefaultTrustLevel is the canonical 1/3 trust-level fraction.
var DefaultTrustLevel = Fraction{Num: 1, Den: 3}

// Valid reports whether the fraction satisfies 0 < num <= den.
func (f Fraction) Valid() bool {
	return f.Den > 0 && f.Num > 0 && f.Num <= f.Den
}

// Of returns floor(f * total), used to compute the minimum voting power
// required to satisfy the fraction against a total.
func (f Fraction) Of(total int64) int64 {
	if f.Den == 0 {
		return 0
	}
	return (total * int64(f.Num)) / int64(f.Den)
}
