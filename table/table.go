// Package table aggregates merged sequences across samples into a
// samples x sequence-variant count matrix keyed by the sequence string.
package table

import (
	"fmt"
	"strings"

	"github.com/dasnellings/ampliconTools/merge"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Table is a feature table of raw counts. Columns are the union of all
// distinct sequences across samples, ordered by descending total abundance
// with ties broken lexicographically, so identical inputs always produce an
// identical table.
type Table struct {
	Samples []string
	Seqs    []string
	Counts  [][]int // Counts[sample][column], zero when absent
}

// Build assembles the feature table. merged[i] holds sample names[i]'s merged
// sequences; duplicate sequences within one sample sum.
func Build(names []string, merged [][]*merge.Merged) *Table {
	perSeq := make(map[string][]int)
	for i := range merged {
		for _, m := range merged[i] {
			key := dna.BasesToString(m.Seq)
			counts, ok := perSeq[key]
			if !ok {
				counts = make([]int, len(names))
				perSeq[key] = counts
			}
			counts[i] += m.Count
		}
	}

	seqs := maps.Keys(perSeq)
	totals := make(map[string]int, len(seqs))
	for seq, counts := range perSeq {
		for _, c := range counts {
			totals[seq] += c
		}
	}
	slices.SortFunc(seqs, func(a, b string) int {
		if totals[a] != totals[b] {
			return totals[b] - totals[a]
		}
		return strings.Compare(a, b)
	})

	t := &Table{Samples: names, Seqs: seqs}
	t.Counts = make([][]int, len(names))
	for i := range names {
		t.Counts[i] = make([]int, len(seqs))
		for j, seq := range seqs {
			t.Counts[i][j] = perSeq[seq][i]
		}
	}
	return t
}

// ColTotal returns the summed abundance of column j across all samples.
func (t *Table) ColTotal(j int) int {
	var sum int
	for i := range t.Counts {
		sum += t.Counts[i][j]
	}
	return sum
}

// SampleTotal returns the summed abundance of sample i across all columns.
func (t *Table) SampleTotal(i int) int {
	var sum int
	for _, c := range t.Counts[i] {
		sum += c
	}
	return sum
}

// Total returns the grand total abundance of the table.
func (t *Table) Total() int {
	var sum int
	for i := range t.Counts {
		sum += t.SampleTotal(i)
	}
	return sum
}

// Remove returns a copy of the table without the flagged columns.
func (t *Table) Remove(flagged map[string]bool) *Table {
	ans := &Table{Samples: t.Samples}
	var keep []int
	for j, seq := range t.Seqs {
		if !flagged[seq] {
			keep = append(keep, j)
			ans.Seqs = append(ans.Seqs, seq)
		}
	}
	ans.Counts = make([][]int, len(t.Counts))
	for i := range t.Counts {
		ans.Counts[i] = make([]int, len(keep))
		for k, j := range keep {
			ans.Counts[i][k] = t.Counts[i][j]
		}
	}
	return ans
}

// WriteTSV writes the table with one row per sample and one column per
// sequence, headed by the sequence strings.
func (t *Table) WriteTSV(filename string) {
	out := fileio.EasyCreate(filename)
	var err error
	_, err = fmt.Fprintf(out, "sample\t%s\n", strings.Join(t.Seqs, "\t"))
	exception.PanicOnErr(err)
	for i, name := range t.Samples {
		sb := new(strings.Builder)
		sb.WriteString(name)
		for _, c := range t.Counts[i] {
			fmt.Fprintf(sb, "\t%d", c)
		}
		_, err = fmt.Fprintln(out, sb.String())
		exception.PanicOnErr(err)
	}
	err = out.Close()
	exception.PanicOnErr(err)
}
