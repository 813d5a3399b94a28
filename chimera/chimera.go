// Package chimera flags and removes sequence variants explainable as
// recombinations of two more abundant variants.
package chimera

import (
	"log"

	"github.com/dasnellings/ampliconTools/table"
	"github.com/vertgenlab/gonomics/dna"
)

// Method selects how per-sample bimera evidence is combined.
type Method string

const (
	Consensus Method = "consensus" // flag when enough containing samples agree
	Pooled    Method = "pooled"    // pool counts across samples and test once
)

// Options controls bimera detection.
type Options struct {
	Method        Method
	MinFoldParent float64 // a parent must be at least this fold more abundant than the candidate
	MaxMismatch   int     // mismatches tolerated on each side of the breakpoint
	MinFragment   int     // minimum bases each parent must contribute
	MinConsensus  float64 // fraction of containing samples that must flag a variant (consensus method)
}

// DefaultOptions returns the standard detection thresholds.
func DefaultOptions() Options {
	return Options{
		Method:        Consensus,
		MinFoldParent: 2,
		MaxMismatch:   1,
		MinFragment:   4,
		MinConsensus:  0.9,
	}
}

// Remove drops chimeric columns from the table. Returns the reduced table,
// the removed sequences, and the fraction of total abundance retained. A low
// retained fraction is reported as a warning, never an error.
func Remove(t *table.Table, opt Options) (*table.Table, []string, float64) {
	seqs := make([][]dna.Base, len(t.Seqs))
	for j, s := range t.Seqs {
		seqs[j] = dna.StringToBases(s)
	}

	flagged := make(map[string]bool)
	switch opt.Method {
	case Pooled:
		pooled := make([]int, len(t.Seqs))
		for j := range t.Seqs {
			pooled[j] = t.ColTotal(j)
		}
		for _, j := range flagRow(seqs, pooled, t, opt) {
			flagged[t.Seqs[j]] = true
		}
	default:
		votes := make([]int, len(t.Seqs))
		present := make([]int, len(t.Seqs))
		for i := range t.Counts {
			for _, j := range flagRow(seqs, t.Counts[i], t, opt) {
				votes[j]++
			}
			for j, c := range t.Counts[i] {
				if c > 0 {
					present[j]++
				}
			}
		}
		for j := range t.Seqs {
			if present[j] > 0 && float64(votes[j]) >= opt.MinConsensus*float64(present[j]) {
				flagged[t.Seqs[j]] = true
			}
		}
	}

	ans := t.Remove(flagged)
	var removed []string
	for _, s := range t.Seqs {
		if flagged[s] {
			removed = append(removed, s)
		}
	}
	frac := 1.0
	if total := t.Total(); total > 0 {
		frac = float64(ans.Total()) / float64(total)
	}
	if frac < 0.7 {
		log.Printf("WARNING: only %.1f%% of reads survived chimera removal, input may be heavily chimeric or thresholds too aggressive\n", frac*100)
	}
	return ans, removed, frac
}

// flagRow returns the column indices flagged as bimeras given one row of
// counts. Parents must be more abundant than the candidate both within the
// row (by MinFoldParent) and table-wide, so the most abundant variant of the
// table can never be flagged.
func flagRow(seqs [][]dna.Base, counts []int, t *table.Table, opt Options) []int {
	var ans []int
	for j := range seqs {
		if counts[j] == 0 {
			continue
		}
		var parents [][]dna.Base
		for k := range seqs {
			if k == j || len(seqs[k]) != len(seqs[j]) {
				continue
			}
			if float64(counts[k]) >= opt.MinFoldParent*float64(counts[j]) && t.ColTotal(k) > t.ColTotal(j) {
				parents = append(parents, seqs[k])
			}
		}
		if len(parents) < 2 {
			continue
		}
		if isBimera(seqs[j], parents, opt) {
			ans = append(ans, j)
		}
	}
	return ans
}

// isBimera reports whether seq can be split at some breakpoint into a left
// part matching one parent and a right part matching another, each within
// MaxMismatch and contributing at least MinFragment bases.
func isBimera(seq []dna.Base, parents [][]dna.Base, opt Options) bool {
	n := len(seq)
	if n < 2*opt.MinFragment {
		return false
	}

	// longest usable prefix per parent, and the two best to avoid O(P^2) pairing
	bestLeft, secondLeft := -1, -1 // parent indices
	bestLeftLen, secondLeftLen := -1, -1
	bestRight, secondRight := -1, -1
	bestRightStart, secondRightStart := n + 1, n + 1

	for p, parent := range parents {
		l := prefixLen(seq, parent, opt.MaxMismatch)
		if l > bestLeftLen {
			secondLeft, secondLeftLen = bestLeft, bestLeftLen
			bestLeft, bestLeftLen = p, l
		} else if l > secondLeftLen {
			secondLeft, secondLeftLen = p, l
		}
		s := suffixStart(seq, parent, opt.MaxMismatch)
		if s < bestRightStart {
			secondRight, secondRightStart = bestRight, bestRightStart
			bestRight, bestRightStart = p, s
		} else if s < secondRightStart {
			secondRight, secondRightStart = p, s
		}
	}

	covers := func(leftLen, rightStart int) bool {
		return leftLen >= opt.MinFragment &&
			rightStart <= n-opt.MinFragment &&
			leftLen >= rightStart
	}
	if bestLeft != bestRight {
		return covers(bestLeftLen, bestRightStart)
	}
	// best prefix and best suffix come from the same parent; a bimera needs two
	return (secondLeft >= 0 && covers(secondLeftLen, bestRightStart)) ||
		(secondRight >= 0 && covers(bestLeftLen, secondRightStart))
}

// prefixLen returns the longest prefix of seq matching parent with at most
// maxMismatch mismatches.
func prefixLen(seq, parent []dna.Base, maxMismatch int) int {
	var mismatches int
	for i := range seq {
		if seq[i] != parent[i] {
			mismatches++
			if mismatches > maxMismatch {
				return i
			}
		}
	}
	return len(seq)
}

// suffixStart returns the smallest index from which seq matches parent to the
// end with at most maxMismatch mismatches.
func suffixStart(seq, parent []dna.Base, maxMismatch int) int {
	var mismatches int
	for i := len(seq) - 1; i >= 0; i-- {
		if seq[i] != parent[i] {
			mismatches++
			if mismatches > maxMismatch {
				return i + 1
			}
		}
	}
	return 0
}
