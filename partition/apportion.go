package partition

import "math"

// snapEpsilon absorbs float error in quotas such as 60*0.7 = 41.99999999999999.
const snapEpsilon = 1e-9

// Apportion distributes total over weights by the largest remainder method.
// Weights need not sum to one. Remainders are awarded by descending
// fractional part, ties to the lower index. The result always sums to total.
func Apportion(total int, weights []float64) []int {
	out := make([]int, len(weights))
	if total <= 0 || len(weights) == 0 {
		return out
	}

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return out
	}

	frac := make([]float64, len(weights))
	assigned := 0
	for i, w := range weights {
		q := float64(total) * w / sum
		if r := math.Round(q); math.Abs(q-r) < snapEpsilon {
			q = r
		}
		fl := math.Floor(q)
		out[i] = int(fl)
		frac[i] = q - fl
		assigned += out[i]
	}

	for rem := total - assigned; rem > 0; rem-- {
		best := -1
		for i := range frac {
			if frac[i] < 0 {
				continue
			}
			if best < 0 || frac[i] > frac[best]+snapEpsilon {
				best = i
			}
		}
		if best < 0 {
			out[0] += rem
			break
		}
		out[best]++
		frac[best] = -1
	}

	return out
}

// ClassTargets apportions the n images of a class over weights. When n
// covers every weight, a zero share is raised to one image taken from the
// largest share (ties to the lower index), so rounding alone never leaves a
// split without the class.
func ClassTargets(n int, weights []float64) []int {
	out := Apportion(n, weights)
	if n < len(weights) {
		return out
	}
	for i, v := range out {
		if v > 0 {
			continue
		}
		donor := 0
		for j := range out {
			if out[j] > out[donor] {
				donor = j
			}
		}
		out[donor]--
		out[i] = 1
	}
	return out
}

// floorShare returns floor(n*ratio) tolerating float error.
func floorShare(n int, ratio float64) int {
	q := float64(n) * ratio
	if r := math.Round(q); math.Abs(q-r) < snapEpsilon {
		return int(r)
	}
	return int(math.Floor(q))
}
