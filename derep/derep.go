// Package derep collapses identical reads within one sample into unique
// sequence records, keeping the per-position mean quality and the identity of
// the member reads for downstream inference.
package derep

import (
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/fastq"
	"golang.org/x/exp/slices"
)

// Record is one unique sequence observed within a single sample.
type Record struct {
	Seq      []dna.Base
	Count    int
	MeanQual []float64 // per-position mean phred quality over member reads
	Reads    []int     // input indices of the member reads
	first    int       // index of first observation, for stable ties
}

// Sample dereplicates one sample's reads for one orientation. Records are
// returned sorted by descending abundance, ties broken by first observation.
// readToRec maps each input read index to its record's index in the returned
// slice.
func Sample(reads []fastq.Fastq) (recs []*Record, readToRec []int) {
	m := make(map[string]*Record)
	for i := range reads {
		key := dna.BasesToString(reads[i].Seq)
		rec, ok := m[key]
		if !ok {
			rec = &Record{
				Seq:      reads[i].Seq,
				MeanQual: make([]float64, len(reads[i].Qual)),
				first:    i,
			}
			m[key] = rec
			recs = append(recs, rec)
		}
		rec.Count++
		rec.Reads = append(rec.Reads, i)
		for j := range reads[i].Qual {
			rec.MeanQual[j] += float64(reads[i].Qual[j])
		}
	}

	for _, rec := range recs {
		for j := range rec.MeanQual {
			rec.MeanQual[j] /= float64(rec.Count)
		}
	}

	slices.SortFunc(recs, func(a, b *Record) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return a.first - b.first
	})

	readToRec = make([]int, len(reads))
	for idx, rec := range recs {
		for _, r := range rec.Reads {
			readToRec[r] = idx
		}
	}
	return recs, readToRec
}
