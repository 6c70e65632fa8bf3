package analysis

// MomentumUp reports whether the last k steps of prices are strictly
// increasing. It needs at least k+1 observations; with fewer it reports
// false rather than an error.
func MomentumUp(prices []float64, k int) bool {
	if k < 1 || len(prices) < k+1 {
		return false
	}
	for i := len(prices) - k; i < len(prices); i++ {
		if prices[i] <= prices[i-1] {
			return false
		}
	}
	return true
}
