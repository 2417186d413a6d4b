package domain

// Money is an amount in the platform currency's smallest unit (yen).
// Negative amounts never appear in valid records; validation rejects them
// before construction.
type Money int64

// NonNegative reports whether the amount is usable as a price or target.
func (m Money) NonNegative() bool { return m >= 0 }

// Positive reports whether the amount is usable as a donation amount.
func (m Money) Positive() bool { return m > 0 }
