// Package learn fits a per-run substitution error model from filtered reads
// by alternating denoising under the current model with re-estimation of
// per-quality error rates from the resulting partitions.
package learn

import (
	"log"
	"math"
	"math/rand"

	"github.com/dasnellings/ampliconTools/denoise"
	"github.com/dasnellings/ampliconTools/derep"
	"github.com/dasnellings/ampliconTools/filter"
	"gonum.org/v1/gonum/stat"
)

// Orientation selects which mate of each filtered pair feeds the learner.
type Orientation int

const (
	Forward Orientation = iota
	Reverse
)

func (o Orientation) String() string {
	if o == Reverse {
		return "reverse"
	}
	return "forward"
}

// Options controls the learning loop.
type Options struct {
	MaxIter   int     // maximum refinement iterations
	Tolerance float64 // convergence threshold on the largest rate change
	MaxReads  int     // stop adding samples once this many reads are loaded, 0 for all
	Seed      int64   // seeds the sample processing order
	Verbose   int
}

// DefaultOptions returns the standard learning parameters.
func DefaultOptions() Options {
	return Options{MaxIter: 10, Tolerance: 1e-7, MaxReads: 1_000_000}
}

// rate floor and ceiling keep the smoothed model away from degenerate values
const minRate = 1e-7
const maxRate = 0.25

// Files fits an error model for one orientation from per-sample filtered
// fastq pairs. Samples are loaded in seeded random order until MaxReads is
// reached; the refinement itself is deterministic given the loaded reads.
// Returns the fitted model and whether the loop converged within MaxIter.
func Files(fwdFiles, revFiles []string, orient Orientation, denOpt denoise.Options, opt Options) (*denoise.ErrorModel, bool) {
	rng := rand.New(rand.NewSource(opt.Seed))
	order := rng.Perm(len(fwdFiles))

	var sampleRecs [][]*derep.Record
	var loaded int
	for _, i := range order {
		fwd, rev := filter.ReadPairs(fwdFiles[i], revFiles[i])
		reads := fwd
		if orient == Reverse {
			reads = rev
		}
		recs, _ := derep.Sample(reads)
		sampleRecs = append(sampleRecs, recs)
		loaded += len(reads)
		if opt.MaxReads > 0 && loaded >= opt.MaxReads {
			break
		}
	}
	if opt.Verbose > 0 {
		log.Printf("learning %s error model from %d reads in %d samples\n", orient, loaded, len(sampleRecs))
	}

	em := denoise.DefaultModel()
	var converged bool
	for iter := 1; iter <= opt.MaxIter; iter++ {
		var tally counts
		for _, recs := range sampleRecs {
			vars, recToVar := denoise.Sample(recs, em, denOpt)
			tally.add(recs, vars, recToVar)
		}
		next := estimate(&tally)
		delta := next.MaxDelta(em)
		em = next
		if opt.Verbose > 0 {
			log.Printf("%s iteration %d: max rate change %g\n", orient, iter, delta)
		}
		if delta < opt.Tolerance {
			converged = true
			break
		}
	}
	if !converged {
		log.Printf("WARNING: %s error model did not converge within %d iterations, proceeding with best estimate\n", orient, opt.MaxIter)
	}
	if v := em.MonotonicityViolations(); len(v) > 0 {
		log.Printf("WARNING: %s error rates increase with quality score for %v\n", orient, v)
	}
	return em, converged
}

// counts tallies observed substitutions by quality score and base pair.
type counts struct {
	obs   [denoise.MaxQ + 1][4][4]float64
	total [denoise.MaxQ + 1][4]float64
}

// add accumulates mismatches between each record and the center of the
// variant it was assigned to, weighted by the record's abundance.
func (c *counts) add(recs []*derep.Record, vars []*denoise.Variant, recToVar []int) {
	for i, rec := range recs {
		center := vars[recToVar[i]].Seq
		if len(center) != len(rec.Seq) {
			continue
		}
		for pos := range rec.Seq {
			fi := denoise.BaseIndex(center[pos])
			ti := denoise.BaseIndex(rec.Seq[pos])
			if fi < 0 || ti < 0 {
				continue
			}
			q := int(math.Round(rec.MeanQual[pos]))
			if q < 0 {
				q = 0
			}
			if q > denoise.MaxQ {
				q = denoise.MaxQ
			}
			w := float64(rec.Count)
			c.obs[q][fi][ti] += w
			c.total[q][fi] += w
		}
	}
}

// estimate converts tallied substitution frequencies into a smoothed model.
// For each substitution type the observed log10 rates are regressed on
// quality score, weighted by the number of observations. Only bins where the
// substitution was actually seen enter the fit: a bin with zero errors has no
// observed rate, and inventing one from a pseudocount would swamp the fit on
// clean runs. Error-free bins instead inherit the fitted trend, and a
// substitution never observed at all keeps the nominal phred rates.
func estimate(c *counts) *denoise.ErrorModel {
	em := new(denoise.ErrorModel)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if i == j {
				continue
			}
			var xs, ys, ws []float64
			for q := 0; q <= denoise.MaxQ; q++ {
				if c.obs[q][i][j] == 0 {
					continue
				}
				rate := c.obs[q][i][j] / c.total[q][i]
				xs = append(xs, float64(q))
				ys = append(ys, math.Log10(rate))
				ws = append(ws, c.total[q][i])
			}
			if len(xs) < 2 {
				// not enough data, fall back to the nominal phred rates
				def := denoise.DefaultModel()
				for q := 0; q <= denoise.MaxQ; q++ {
					em.Rates[q][i][j] = def.Rates[q][i][j]
				}
				continue
			}
			alpha, beta := stat.LinearRegression(xs, ys, ws, false)
			for q := 0; q <= denoise.MaxQ; q++ {
				rate := math.Pow(10, alpha+beta*float64(q))
				if rate < minRate {
					rate = minRate
				}
				if rate > maxRate {
					rate = maxRate
				}
				em.Rates[q][i][j] = rate
			}
		}
	}
	for q := 0; q <= denoise.MaxQ; q++ {
		for i := 0; i < 4; i++ {
			var off float64
			for j := 0; j < 4; j++ {
				if i != j {
					off += em.Rates[q][i][j]
				}
			}
			em.Rates[q][i][i] = 1 - off
		}
	}
	return em
}
