package rng

// Source is the subset of dice.Source used for rolling.
// Using a local interface keeps this package a leaf.
type Source interface {
	Intn(n int) int
}

// blendResolution is the number of buckets used when a system has no
// integer RN procedure and is rolled against its true hit directly.
const blendResolution = 10000

// Roll draws random numbers from src the way the game does and reports
// whether an attack with the given listed hit rate connects.
//
// Direct draws one RN in [0, 100). Averaged draws two and compares their sum
// to twice the listed rate. SplitBlend draws one RN below 50 and otherwise a
// single uniform draw against TrueHit.
//
// Precondition: 0 <= listed <= 100; src must be non-nil.
// Postcondition: Over many draws the hit frequency converges to s.TrueHit(listed).
func (s System) Roll(src Source, listed int) bool {
	checkListed(listed)
	switch {
	case s == Direct, s == SplitBlend && listed < 50:
		return src.Intn(100) < listed
	case s == Averaged:
		return src.Intn(100)+src.Intn(100) < 2*listed
	default:
		threshold := int(s.TrueHit(listed)*blendResolution + 0.5)
		return src.Intn(blendResolution) < threshold
	}
}
