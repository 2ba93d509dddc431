// Basic calculation functions
package calc

import (
	"math"
	"sort"
)

// Calculates mean of supplied values after removing percentage of extreme values (post-sort)
func TrimmedMean(values []float64, trimPercent float64) (mean float64) {
	if trimPercent < 0 {
		trimPercent = 0
	}

	n := len(values)
	if n == 0 {
		return
	}

	nums := sorted(values)

	// How many to trim from each end
	trimCount := int(float64(n) * trimPercent)
	if trimCount*2 >= n {
		trimCount = (n - 1) / 2
	}

	var sum float64
	for _, v := range nums[trimCount : n-trimCount] {
		sum += v
	}
	mean = sum / float64(n-2*trimCount)
	return
}

// Nearest-rank percentile, p in [0,1]. NaN for no values.
func Percentile(values []float64, p float64) (value float64) {
	if len(values) == 0 {
		value = math.NaN()
		return
	}
	p = math.Max(0, math.Min(1, p))

	nums := sorted(values)
	rank := int(math.Ceil(p*float64(len(nums)))) - 1
	if rank < 0 {
		rank = 0
	}
	value = nums[rank]
	return
}

func sorted(values []float64) (nums []float64) {
	nums = make([]float64, len(values))
	copy(nums, values)
	sort.Float64s(nums)
	return
}
