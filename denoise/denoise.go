// Package denoise infers exact sequence variants from dereplicated reads by
// divisive partitioning under a per-quality substitution error model.
package denoise

import (
	"math"

	"github.com/dasnellings/ampliconTools/derep"
	"github.com/vertgenlab/gonomics/dna"
	"golang.org/x/exp/slices"
)

// Options controls partition growth.
type Options struct {
	// OmegaA is the p-value threshold below which a unique sequence is too
	// abundant to be explained as errors from an existing partition center and
	// founds a new partition. P-values are Bonferroni adjusted by the number
	// of candidate sequences before comparison.
	OmegaA float64
	// MaxVariants bounds the number of partitions, 0 for no bound.
	MaxVariants int
}

// DefaultOptions returns the standard partitioning thresholds.
func DefaultOptions() Options {
	return Options{OmegaA: 1e-40}
}

// Variant is one inferred true sequence with its within-sample abundance.
type Variant struct {
	Seq     []dna.Base
	Count   int
	Members []int // indices into the dereplicated records assigned to this variant
}

// Sample partitions one sample's dereplicated records into variants. Records
// must be sorted by descending abundance, as produced by derep.Sample. The
// result is deterministic for identical inputs: candidates are scanned in
// record order and ties in promotion p-value go to the higher-abundance
// record. recToVar maps each record index to its variant's index.
func Sample(recs []*derep.Record, em *ErrorModel, opt Options) (vars []*Variant, recToVar []int) {
	n := len(recs)
	if n == 0 {
		return nil, nil
	}

	centers := []int{0}
	isCenter := make([]bool, n)
	isCenter[0] = true
	assign := make([]int, n)      // record -> index into centers
	bestLogLam := make([]float64, n)
	for i := 1; i < n; i++ {
		bestLogLam[i] = logLambda(recs[i], recs[0], em)
	}

	for opt.MaxVariants == 0 || len(centers) < opt.MaxVariants {
		centerReads := make([]int, len(centers))
		var candidates int
		for i := 0; i < n; i++ {
			centerReads[assign[i]] += recs[i].Count
			if !isCenter[i] {
				candidates++
			}
		}
		if candidates == 0 {
			break
		}

		best := -1
		bestP := math.Inf(1)
		for i := 0; i < n; i++ {
			if isCenter[i] {
				continue
			}
			mu := math.Exp(bestLogLam[i]) * float64(centerReads[assign[i]])
			p := abundancePValue(recs[i].Count, mu)
			// ties go to the record scanned first, which has the higher abundance
			if p < bestP {
				bestP = p
				best = i
			}
		}
		if best < 0 || bestP*float64(candidates) >= opt.OmegaA {
			break
		}

		isCenter[best] = true
		centers = append(centers, best)
		c := len(centers) - 1
		assign[best] = c
		bestLogLam[best] = 0
		for i := 0; i < n; i++ {
			if isCenter[i] {
				continue
			}
			ll := logLambda(recs[i], recs[best], em)
			if ll > bestLogLam[i] {
				bestLogLam[i] = ll
				assign[i] = c
			}
		}
	}

	vars = make([]*Variant, len(centers))
	for c, recIdx := range centers {
		vars[c] = &Variant{Seq: recs[recIdx].Seq}
	}
	for i := 0; i < n; i++ {
		v := vars[assign[i]]
		v.Count += recs[i].Count
		v.Members = append(v.Members, i)
	}

	// report variants by descending abundance, founding order breaks ties
	order := make([]int, len(vars))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return vars[b].Count - vars[a].Count
	})
	sorted := make([]*Variant, len(vars))
	varPos := make([]int, len(vars))
	for pos, c := range order {
		sorted[pos] = vars[c]
		varPos[c] = pos
	}
	recToVar = make([]int, n)
	for i := 0; i < n; i++ {
		recToVar[i] = varPos[assign[i]]
	}
	return sorted, recToVar
}

// logLambda is the log probability that rec's sequence was read from center's
// sequence, given rec's per-position mean quality scores. Records whose length
// differs from the center cannot be generated by it.
func logLambda(rec, center *derep.Record, em *ErrorModel) float64 {
	if len(rec.Seq) != len(center.Seq) {
		return math.Inf(-1)
	}
	var sum float64
	for i := range rec.Seq {
		p := em.Sub(center.Seq[i], rec.Seq[i], int(math.Round(rec.MeanQual[i])))
		if p <= 0 {
			return math.Inf(-1)
		}
		sum += math.Log(p)
	}
	return sum
}
