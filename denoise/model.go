package denoise

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
)

// MaxQ is the highest quality score the model distinguishes. Scores above
// MaxQ are clamped to MaxQ.
const MaxQ = 50

var bases = []dna.Base{dna.A, dna.C, dna.G, dna.T}
var baseNames = []string{"A", "C", "G", "T"}

// ErrorModel maps (quality score, true base, observed base) to a substitution
// probability. One model is fit per orientation and is read-only once fit, so
// it may be shared freely across concurrent workers.
type ErrorModel struct {
	// Rates[q][from][to], bases indexed A=0 C=1 G=2 T=3.
	// Rates[q][i][i] is the probability of reading the true base correctly.
	Rates [MaxQ + 1][4][4]float64
}

// BaseIndex returns the model index for a base, or -1 for ambiguous bases.
func BaseIndex(b dna.Base) int {
	switch b {
	case dna.A:
		return 0
	case dna.C:
		return 1
	case dna.G:
		return 2
	case dna.T:
		return 3
	}
	return -1
}

// Sub returns the probability of observing base to at quality q when the true
// base is from. Positions involving ambiguous bases carry no evidence and
// return 1.
func (em *ErrorModel) Sub(from, to dna.Base, q int) float64 {
	fi := BaseIndex(from)
	ti := BaseIndex(to)
	if fi < 0 || ti < 0 {
		return 1
	}
	if q < 0 {
		q = 0
	}
	if q > MaxQ {
		q = MaxQ
	}
	return em.Rates[q][fi][ti]
}

// DefaultModel returns the model implied by the nominal phred definition: an
// error probability of 10^(-q/10) split evenly across the three substitutions.
func DefaultModel() *ErrorModel {
	em := new(ErrorModel)
	for q := 0; q <= MaxQ; q++ {
		errProb := math.Pow(10, -float64(q)/10)
		if errProb > 0.75 {
			errProb = 0.75
		}
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				if i == j {
					em.Rates[q][i][j] = 1 - errProb
				} else {
					em.Rates[q][i][j] = errProb / 3
				}
			}
		}
	}
	return em
}

// MaxDelta returns the largest absolute difference between two models' rates.
func (em *ErrorModel) MaxDelta(other *ErrorModel) float64 {
	var max float64
	for q := 0; q <= MaxQ; q++ {
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				d := math.Abs(em.Rates[q][i][j] - other.Rates[q][i][j])
				if d > max {
					max = d
				}
			}
		}
	}
	return max
}

// MonotonicityViolations reports substitution types whose error rate increases
// with quality score anywhere in the model. Rates are expected to be
// non-increasing with quality; violations are a quality-control signal.
func (em *ErrorModel) MonotonicityViolations() []string {
	const slack = 1e-9
	var ans []string
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if i == j {
				continue
			}
			for q := 1; q <= MaxQ; q++ {
				if em.Rates[q][i][j] > em.Rates[q-1][i][j]+slack {
					ans = append(ans, fmt.Sprintf("%s>%s at Q%d", baseNames[i], baseNames[j], q))
					break
				}
			}
		}
	}
	return ans
}

// WriteTSV writes the model as a quality-by-substitution table.
func (em *ErrorModel) WriteTSV(filename string) {
	out := fileio.EasyCreate(filename)
	var err error
	_, err = fmt.Fprint(out, "quality")
	exception.PanicOnErr(err)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			_, err = fmt.Fprintf(out, "\t%s>%s", baseNames[i], baseNames[j])
			exception.PanicOnErr(err)
		}
	}
	_, err = fmt.Fprintln(out)
	exception.PanicOnErr(err)
	for q := 0; q <= MaxQ; q++ {
		_, err = fmt.Fprintf(out, "%d", q)
		exception.PanicOnErr(err)
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				_, err = fmt.Fprintf(out, "\t%g", em.Rates[q][i][j])
				exception.PanicOnErr(err)
			}
		}
		_, err = fmt.Fprintln(out)
		exception.PanicOnErr(err)
	}
	err = out.Close()
	exception.PanicOnErr(err)
}

// ReadTSV reads a model written by WriteTSV.
func ReadTSV(filename string) (*ErrorModel, error) {
	em := new(ErrorModel)
	in := fileio.EasyOpen(filename)
	defer in.Close()

	line, done := fileio.EasyNextRealLine(in)
	if done || !strings.HasPrefix(line, "quality") {
		return nil, fmt.Errorf("%s: not an error model file", filename)
	}
	for line, done = fileio.EasyNextRealLine(in); !done; line, done = fileio.EasyNextRealLine(in) {
		fields := strings.Split(line, "\t")
		if len(fields) != 17 {
			return nil, fmt.Errorf("%s: expected 17 fields, found %d", filename, len(fields))
		}
		q, err := strconv.Atoi(fields[0])
		if err != nil || q < 0 || q > MaxQ {
			return nil, fmt.Errorf("%s: bad quality score %q", filename, fields[0])
		}
		for k := 1; k < 17; k++ {
			rate, err := strconv.ParseFloat(fields[k], 64)
			if err != nil {
				return nil, fmt.Errorf("%s: bad rate %q", filename, fields[k])
			}
			em.Rates[q][(k-1)/4][(k-1)%4] = rate
		}
	}
	return em, nil
}
