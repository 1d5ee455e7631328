package netsim

// ids.go holds the process-wide monotonic identifier generator used to
// stamp packets, events, and topology objects with stable integer ids.
// Mirrors net.go's own nxtID() idiom: a single package-level counter, no
// locking, because the engine is single-threaded cooperative.

var nextIDCounter int

// nxtID returns a fresh, process-unique, monotonically increasing integer.
func nxtID() int {
	nextIDCounter++
	return nextIDCounter
}
