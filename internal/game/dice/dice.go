// Package dice provides the random number sources used to replay combat rounds
// the way the game rolls them.
package dice

// Source is the randomness provider for RN draws.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}
