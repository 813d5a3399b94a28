// Package track records per-sample read counts surviving each pipeline stage.
package track

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
)

// Record holds one sample's read counts through the pipeline. A zero column
// after a nonzero one marks where the sample's reads were lost.
type Record struct {
	Sample      string
	Input       int // raw read pairs
	Filtered    int // pairs surviving the quality filter
	DenoisedFwd int // reads assigned to forward variants
	DenoisedRev int // reads assigned to reverse variants
	Merged      int // read pairs supporting a successful merge
	NonChimeric int // abundance remaining after chimera removal
}

var header = []string{"sample", "input", "filtered", "denoisedF", "denoisedR", "merged", "nonchim"}

// WriteTSV writes the tracking table.
func WriteTSV(filename string, recs []Record) {
	out := fileio.EasyCreate(filename)
	var err error
	_, err = fmt.Fprintln(out, strings.Join(header, "\t"))
	exception.PanicOnErr(err)
	for _, r := range recs {
		_, err = fmt.Fprintf(out, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.Sample, r.Input, r.Filtered, r.DenoisedFwd, r.DenoisedRev, r.Merged, r.NonChimeric)
		exception.PanicOnErr(err)
	}
	err = out.Close()
	exception.PanicOnErr(err)
}

// String renders the tracking table aligned for terminal display.
func String(recs []Record) string {
	s := new(strings.Builder)
	w := tabwriter.NewWriter(s, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.Sample, r.Input, r.Filtered, r.DenoisedFwd, r.DenoisedRev, r.Merged, r.NonChimeric)
	}
	w.Flush()
	return s.String()
}
