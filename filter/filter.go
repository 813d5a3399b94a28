// Package filter trims and quality-filters paired amplicon reads in lockstep.
package filter

import (
	"fmt"
	"math"

	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fastq"
	"github.com/vertgenlab/gonomics/fileio"
)

// fastq encodes quality with an ascii offset of 33 so every score lands on a
// printable character
const asciiOffset uint8 = 33

// Options controls per-read trimming and rejection criteria. Zero values
// disable the corresponding criterion except MaxNs, which is a hard count
// (the default of zero tolerates no ambiguous bases).
type Options struct {
	TrimLeftFwd int     // bases removed from the 5' end of forward reads (primer removal)
	TrimLeftRev int     // bases removed from the 5' end of reverse reads
	TruncLenFwd int     // forward reads cut to this length, shorter reads discarded
	TruncLenRev int     // reverse reads cut to this length, shorter reads discarded
	TruncQ      uint8   // reads cut before the first position with quality <= TruncQ
	MaxNs       int     // maximum number of ambiguous bases per read
	MaxEEFwd    float64 // maximum expected errors for forward reads, 0 disables
	MaxEERev    float64 // maximum expected errors for reverse reads, 0 disables
}

// Result counts one sample's reads in and out of the filter.
type Result struct {
	Input int
	Kept  int
}

var errorProbs [256]float64

func init() {
	for i := range errorProbs {
		errorProbs[i] = math.Pow(10, -float64(i)/10)
	}
}

// ExpectedErrors sums the per-position error probabilities implied by phred
// quality scores.
func ExpectedErrors(qual []uint8) float64 {
	var sum float64
	for _, q := range qual {
		sum += errorProbs[q]
	}
	return sum
}

// PairFiles filters one sample's paired fastq files. A read pair is written to
// the output files only if both mates independently pass every criterion, so
// positional correspondence between the two output files is preserved.
func PairFiles(fwdIn, revIn, fwdOut, revOut string, opt Options) Result {
	readPairs := make(chan fastq.PairedEnd, 1000)
	go fastq.PairedEndToChan(fwdIn, revIn, readPairs)

	fOut := fileio.EasyCreate(fwdOut)
	rOut := fileio.EasyCreate(revOut)

	var ans Result
	var pair fastq.PairedEnd
	for pair = range readPairs {
		ans.Input++
		if !passes(&pair.Fwd, opt.TrimLeftFwd, opt.TruncLenFwd, opt.MaxEEFwd, opt) {
			continue
		}
		if !passes(&pair.Rev, opt.TrimLeftRev, opt.TruncLenRev, opt.MaxEERev, opt) {
			continue
		}
		ans.Kept++
		WriteRecord(fOut, pair.Fwd)
		WriteRecord(rOut, pair.Rev)
	}

	err := fOut.Close()
	exception.PanicOnErr(err)
	err = rOut.Close()
	exception.PanicOnErr(err)
	return ans
}

// passes applies trimming in place and reports whether the read survives.
// Order: 5' trim, quality truncation, length truncation, ambiguous base count,
// expected errors.
func passes(fq *fastq.Fastq, trimLeft, truncLen int, maxEE float64, opt Options) bool {
	if trimLeft > 0 {
		if len(fq.Seq) <= trimLeft {
			return false
		}
		fq.Seq = fq.Seq[trimLeft:]
		fq.Qual = fq.Qual[trimLeft:]
	}

	for i := range fq.Qual {
		if fq.Qual[i] <= opt.TruncQ {
			fq.Seq = fq.Seq[:i]
			fq.Qual = fq.Qual[:i]
			break
		}
	}

	if truncLen > 0 {
		if len(fq.Seq) < truncLen {
			return false
		}
		fq.Seq = fq.Seq[:truncLen]
		fq.Qual = fq.Qual[:truncLen]
	}

	if len(fq.Seq) == 0 {
		return false
	}

	var ns int
	for i := range fq.Seq {
		if fq.Seq[i] == dna.N {
			ns++
		}
	}
	if ns > opt.MaxNs {
		return false
	}

	if maxEE > 0 && ExpectedErrors(fq.Qual) > maxEE {
		return false
	}
	return true
}

// WriteRecord writes one fastq record, converting raw phred scores back to
// their ascii representation.
func WriteRecord(out *fileio.EasyWriter, fq fastq.Fastq) {
	qual := make([]byte, len(fq.Qual))
	for i := range fq.Qual {
		qual[i] = fq.Qual[i] + asciiOffset
	}
	_, err := fmt.Fprintf(out, "@%s\n%s\n+\n%s\n", fq.Name, dna.BasesToString(fq.Seq), string(qual))
	exception.PanicOnErr(err)
}

// ReadPairs loads a filtered pair of fastq files into memory in matched order.
func ReadPairs(fwdFile, revFile string) (fwd, rev []fastq.Fastq) {
	readPairs := make(chan fastq.PairedEnd, 1000)
	go fastq.PairedEndToChan(fwdFile, revFile, readPairs)
	for pair := range readPairs {
		fwd = append(fwd, pair.Fwd)
		rev = append(rev, pair.Rev)
	}
	return
}
