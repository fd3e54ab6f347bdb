package miner

// SetNonceSpace limits the nonces tried and returns a func restoring it.
func SetNonceSpace(n uint64) func() {
	prev := nonceSpace
	nonceSpace = n
	return func() { nonceSpace = prev }
}
