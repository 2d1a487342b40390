package rootref

// log2 returns the base-2 logarithm of a power-of-two value n, used to
// convert Config.PoolSizeBytes into poolengine.Config.PoolLogSize.
func log2(n int) uint {
	var log uint
	for n > 1 {
		n >>= 1
		log++
	}
	return log
}
