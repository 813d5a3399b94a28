// Package merge reconciles denoised forward and reverse variants into
// full-length sequences by overlap consensus.
package merge

import (
	"github.com/dasnellings/ampliconTools/denoise"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/numbers"
	"golang.org/x/exp/slices"
)

// Options controls overlap acceptance.
type Options struct {
	MinOverlap  int // minimum overlap length between forward read and reverse complement
	MaxMismatch int // maximum mismatches tolerated in the overlap region
}

// DefaultOptions returns the standard merge thresholds.
func DefaultOptions() Options {
	return Options{MinOverlap: 12, MaxMismatch: 0}
}

// Merged is one consensus sequence assembled from a forward and a reverse
// variant, with the number of read pairs that support the pairing.
type Merged struct {
	Seq      []dna.Base
	Count    int
	FwdIndex int // originating forward variant
	RevIndex int // originating reverse variant
}

type pairing struct {
	fwd, rev int
	count    int
}

// Sample merges one sample's forward and reverse variants. readToFwd and
// readToRev map each filtered read index to its forward and reverse variant.
// Pairings whose overlap fails the thresholds are dropped; mergedReads counts
// the read pairs supporting successful merges.
func Sample(fwdVars, revVars []*denoise.Variant, readToFwd, readToRev []int, opt Options) (merged []*Merged, mergedReads int) {
	support := make(map[[2]int]int)
	for i := range readToFwd {
		support[[2]int{readToFwd[i], readToRev[i]}]++
	}

	pairings := make([]pairing, 0, len(support))
	for k, c := range support {
		pairings = append(pairings, pairing{fwd: k[0], rev: k[1], count: c})
	}
	slices.SortFunc(pairings, func(a, b pairing) int {
		if a.count != b.count {
			return b.count - a.count
		}
		if a.fwd != b.fwd {
			return a.fwd - b.fwd
		}
		return a.rev - b.rev
	})

	for _, p := range pairings {
		seq, ok := overlap(fwdVars[p.fwd].Seq, revVars[p.rev].Seq, opt)
		if !ok {
			continue
		}
		merged = append(merged, &Merged{Seq: seq, Count: p.count, FwdIndex: p.fwd, RevIndex: p.rev})
		mergedReads += p.count
	}
	return merged, mergedReads
}

// overlap aligns the 3' end of the forward sequence against the reverse
// complement of the reverse sequence and builds the consensus as forward
// prefix plus reverse suffix. Alignment must be unambiguous: two candidate
// overlaps with equally many matching bases reject the pair.
func overlap(fwd, rev []dna.Base, opt Options) ([]dna.Base, bool) {
	rc := dna.ReverseComplementAndCopy(rev)

	bestScore := -1
	bestOv := -1
	ambiguous := false
	maxOv := numbers.Min(len(fwd), len(rc))
	for ov := maxOv; ov >= opt.MinOverlap; ov-- {
		var mismatches, matches int
		offset := len(fwd) - ov
		for i := 0; i < ov; i++ {
			a := fwd[offset+i]
			b := rc[i]
			if a == dna.N || b == dna.N {
				continue
			}
			if a == b {
				matches++
			} else {
				mismatches++
			}
		}
		if mismatches > opt.MaxMismatch {
			continue
		}
		if matches > bestScore {
			bestScore = matches
			bestOv = ov
			ambiguous = false
		} else if matches == bestScore {
			ambiguous = true
		}
	}
	if bestOv < 0 || ambiguous {
		return nil, false
	}

	ans := make([]dna.Base, 0, len(fwd)+len(rc)-bestOv)
	ans = append(ans, fwd...)
	ans = append(ans, rc[bestOv:]...)
	return ans, true
}
