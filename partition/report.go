package partition

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// SplitStats is the per-split breakdown of one class.
type SplitStats struct {
	Split         string  `json:"split"`
	Assigned      int     `json:"assigned"`
	Target        int     `json:"target"`
	TargetRatio   float64 `json:"target_ratio"`
	AchievedRatio float64 `json:"achieved_ratio"`
	// Deviation is Assigned - Target in images.
	Deviation int `json:"deviation"`
}

// ClassReport describes how one class was distributed.
type ClassReport struct {
	ClassID    int          `json:"class_id"`
	ImageCount int          `json:"image_count"`
	Splits     []SplitStats `json:"splits"`
	// ChiSquare is the chi-square distance between the achieved and the
	// ideal (unrounded) per-split counts.
	ChiSquare float64 `json:"chi_square"`
	// MaxDeviation is the largest absolute Deviation over the splits.
	MaxDeviation int `json:"max_deviation"`
}

// Report is the quality summary of an assignment.
type Report struct {
	Sizes   map[string]int `json:"sizes"`
	Classes []ClassReport  `json:"classes"`
	// MaxChiSquare is the worst ChiSquare over all classes.
	MaxChiSquare float64 `json:"max_chi_square"`
}

// Evaluate measures how closely a follows ratios for every class in h.
// It works for stratified and random assignments alike; in the latter case
// Target is the count ComputeTargets would have given the class.
func Evaluate(in Input, a *Assignment) *Report {
	ratios := a.Ratios()
	active := ratios.Active()
	w := ratios.weights()

	r := &Report{Sizes: a.Sizes()}

	counts := countPerSplit(in, a, active)
	for _, c := range in.Histogram.Classes() {
		n := in.Histogram.ImageCount(c)
		targets := ClassTargets(n, w)

		cr := ClassReport{ClassID: c, ImageCount: n}
		obs := make([]float64, len(active))
		exp := make([]float64, len(active))
		for i, s := range active {
			got := counts[c][i]
			obs[i] = float64(got)
			exp[i] = float64(n) * w[i]

			dev := got - targets[i]
			cr.Splits = append(cr.Splits, SplitStats{
				Split:         s.String(),
				Assigned:      got,
				Target:        targets[i],
				TargetRatio:   w[i],
				AchievedRatio: float64(got) / float64(n),
				Deviation:     dev,
			})
			if abs(dev) > cr.MaxDeviation {
				cr.MaxDeviation = abs(dev)
			}
		}
		cr.ChiSquare = stat.ChiSquare(obs, exp)
		r.MaxChiSquare = math.Max(r.MaxChiSquare, cr.ChiSquare)
		r.Classes = append(r.Classes, cr)
	}

	return r
}

func countPerSplit(in Input, a *Assignment, active []Split) map[int][]int {
	counts := make(map[int][]int, in.Histogram.Len())
	for _, c := range in.Histogram.Classes() {
		counts[c] = make([]int, len(active))
	}
	for i, s := range active {
		it := a.Images(s).Iterator()
		for it.HasNext() {
			for _, c := range in.classes(in.Dataset.Image(it.Next())) {
				counts[c][i]++
			}
		}
	}
	return counts
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

