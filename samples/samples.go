// Package samples discovers paired fastq files and maps them to sample names.
package samples

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
	"golang.org/x/exp/slices"
)

var fastqExtensions = []string{".fastq.gz", ".fq.gz", ".fastq", ".fq"}
var fwdMarkers = []string{"_R1", "_1"}
var revMarkers = []string{"_R2", "_2"}

// Pair holds one sample's forward and reverse read files.
type Pair struct {
	Name string
	Fwd  string
	Rev  string
}

// Discover scans dir for paired fastq files following the _R1/_R2 (or _1/_2)
// naming convention and returns one Pair per sample, sorted by sample name.
// A forward file without a matching reverse file (or vice versa) is an error.
func Discover(dir string) ([]Pair, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading input directory %s: %w", dir, err)
	}

	fwd := make(map[string]string)
	rev := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, orient, ok := splitName(e.Name())
		if !ok {
			continue
		}
		switch orient {
		case 'f':
			fwd[name] = filepath.Join(dir, e.Name())
		case 'r':
			rev[name] = filepath.Join(dir, e.Name())
		}
	}

	var ans []Pair
	for name, f := range fwd {
		r, ok := rev[name]
		if !ok {
			return nil, fmt.Errorf("sample %s: forward file %s has no matching reverse file", name, f)
		}
		ans = append(ans, Pair{Name: name, Fwd: f, Rev: r})
	}
	for name, r := range rev {
		if _, ok := fwd[name]; !ok {
			return nil, fmt.Errorf("sample %s: reverse file %s has no matching forward file", name, r)
		}
	}
	slices.SortFunc(ans, func(a, b Pair) int {
		return strings.Compare(a.Name, b.Name)
	})
	return ans, nil
}

// splitName strips the fastq extension and locates the orientation marker.
// Returns the sample name, 'f' or 'r', and whether the file looked like fastq at all.
func splitName(file string) (name string, orient byte, ok bool) {
	var base string
	for _, ext := range fastqExtensions {
		if strings.HasSuffix(file, ext) {
			base = strings.TrimSuffix(file, ext)
			break
		}
	}
	if base == "" {
		return "", 0, false
	}
	for _, m := range fwdMarkers {
		if idx := strings.LastIndex(base, m); idx > 0 && noTrailingDigit(base, idx+len(m)) {
			return base[:idx], 'f', true
		}
	}
	for _, m := range revMarkers {
		if idx := strings.LastIndex(base, m); idx > 0 && noTrailingDigit(base, idx+len(m)) {
			return base[:idx], 'r', true
		}
	}
	return "", 0, false
}

// noTrailingDigit rejects matches like _12 when looking for _1.
func noTrailingDigit(base string, end int) bool {
	if end >= len(base) {
		return true
	}
	return base[end] < '0' || base[end] > '9'
}

// CountReads returns the number of fastq records in a file. Every line counts:
// a quality string can open with '#' (phred 2), so the comment-skipping reader
// would drop records.
func CountReads(file string) int {
	in := fileio.EasyOpen(file)
	var lines int
	for _, done := fileio.EasyNextLine(in); !done; _, done = fileio.EasyNextLine(in) {
		lines++
	}
	err := in.Close()
	exception.PanicOnErr(err)
	return lines / 4
}

// Validate checks that both files of a pair contain the same number of reads.
func (p Pair) Validate() error {
	f := CountReads(p.Fwd)
	r := CountReads(p.Rev)
	if f != r {
		return fmt.Errorf("sample %s: %d forward reads but %d reverse reads", p.Name, f, r)
	}
	return nil
}

// FilteredPair returns the output file names for a sample's filtered reads.
func (p Pair) FilteredPair(outDir string) (fwd, rev string) {
	fwd = filepath.Join(outDir, p.Name+"_R1_filt.fastq.gz")
	rev = filepath.Join(outDir, p.Name+"_R2_filt.fastq.gz")
	return
}
