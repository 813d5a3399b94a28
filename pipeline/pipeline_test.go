package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/dasnellings/ampliconTools/chimera"
	"github.com/dasnellings/ampliconTools/denoise"
	"github.com/dasnellings/ampliconTools/filter"
	"github.com/dasnellings/ampliconTools/learn"
	"github.com/dasnellings/ampliconTools/merge"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fastq"
	"github.com/vertgenlab/gonomics/fileio"
)

// a 40 base amplicon; forward reads cover [0,28), reverse reads cover [12,40)
// so the merge overlap is 16 bases
const amplicon = "ACGGTCAATGCCTAGGATTACAGGCATCAATTGCAAGCTT"

func variantOf(amp string) string {
	b := []byte(amp)
	b[5] = 'G' // C>G inside the forward-only region
	return string(b)
}

func ampliconReads(amp string, n int, tag string) (fwd, rev []fastq.Fastq) {
	fwdSeq := dna.StringToBases(amp[:28])
	revSeq := dna.ReverseComplementAndCopy(dna.StringToBases(amp[12:]))
	for i := 0; i < n; i++ {
		fq := fastq.Fastq{Name: tag, Seq: fwdSeq, Qual: make([]uint8, 28)}
		rq := fastq.Fastq{Name: tag, Seq: revSeq, Qual: make([]uint8, 28)}
		for j := 0; j < 28; j++ {
			if j%2 == 0 {
				fq.Qual[j], rq.Qual[j] = 36, 36
			} else {
				fq.Qual[j], rq.Qual[j] = 38, 38
			}
		}
		fwd = append(fwd, fq)
		rev = append(rev, rq)
	}
	return
}

func writeSample(dir, name string, fwd, rev []fastq.Fastq) {
	fOut := fileio.EasyCreate(filepath.Join(dir, name+"_R1.fastq.gz"))
	rOut := fileio.EasyCreate(filepath.Join(dir, name+"_R2.fastq.gz"))
	for i := range fwd {
		filter.WriteRecord(fOut, fwd[i])
		filter.WriteRecord(rOut, rev[i])
	}
	err := fOut.Close()
	exception.PanicOnErr(err)
	err = rOut.Close()
	exception.PanicOnErr(err)
}

// writeScenario creates sample A with 100 clean read pairs and sample B with
// 50 clean pairs plus 5 pairs of a single-substitution variant.
func writeScenario(dir string) {
	aFwd, aRev := ampliconReads(amplicon, 100, "a")
	writeSample(dir, "sampleA", aFwd, aRev)

	bFwd, bRev := ampliconReads(amplicon, 50, "b")
	vFwd, vRev := ampliconReads(variantOf(amplicon), 5, "v")
	writeSample(dir, "sampleB", append(bFwd, vFwd...), append(bRev, vRev...))
}

func testConfig(in, out string) Config {
	return Config{
		InputDir:  in,
		OutputDir: out,
		Filter: filter.Options{
			TruncLenFwd: 28,
			TruncLenRev: 28,
			TruncQ:      2,
			MaxNs:       0,
			MaxEEFwd:    2,
			MaxEERev:    2,
		},
		Learn:   learn.Options{MaxIter: 10, Tolerance: 1e-7, Seed: 1},
		Denoise: denoise.Options{OmegaA: 1e-10},
		Merge:   merge.Options{MinOverlap: 12, MaxMismatch: 0},
		Chimera: chimera.DefaultOptions(),
		Threads: 1,
	}
}

func TestRunScenario(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeScenario(in)

	res, err := Run(testConfig(in, out))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Failures) != 0 {
		t.Fatalf("no sample should fail: %v", res.Failures)
	}

	tab := res.Table
	if len(tab.Samples) != 2 || tab.Samples[0] != "sampleA" || tab.Samples[1] != "sampleB" {
		t.Fatalf("unexpected samples: %v", tab.Samples)
	}
	if len(tab.Seqs) != 2 {
		t.Fatalf("expected the clean amplicon and the variant as columns, got %d: %v", len(tab.Seqs), tab.Seqs)
	}
	if tab.Seqs[0] != amplicon {
		t.Errorf("top column should be the clean amplicon")
	}
	if tab.Seqs[1] != variantOf(amplicon) {
		t.Errorf("second column should be the single-substitution variant")
	}
	if tab.Counts[0][0] != 100 || tab.Counts[1][0] != 50 {
		t.Errorf("clean amplicon counts: got %d and %d, want 100 and 50", tab.Counts[0][0], tab.Counts[1][0])
	}
	if tab.Counts[0][1] != 0 || tab.Counts[1][1] != 5 {
		t.Errorf("variant counts: got %d and %d, want 0 and 5", tab.Counts[0][1], tab.Counts[1][1])
	}

	// read survival is non-increasing through the pipeline
	for _, rec := range res.Track {
		if rec.Input < rec.Filtered || rec.Filtered < rec.Merged || rec.Merged < rec.NonChimeric {
			t.Errorf("track counts increase for %s: %+v", rec.Sample, rec)
		}
		if rec.Input != rec.Filtered {
			t.Errorf("clean reads should all survive filtering for %s", rec.Sample)
		}
	}
}

func TestRunReproducible(t *testing.T) {
	in := t.TempDir()
	writeScenario(in)

	res1, err := Run(testConfig(in, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	res2, err := Run(testConfig(in, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}

	if len(res1.Table.Seqs) != len(res2.Table.Seqs) {
		t.Fatalf("runs produced %d and %d columns", len(res1.Table.Seqs), len(res2.Table.Seqs))
	}
	for j := range res1.Table.Seqs {
		if res1.Table.Seqs[j] != res2.Table.Seqs[j] {
			t.Errorf("column %d differs between runs", j)
		}
		for i := range res1.Table.Counts {
			if res1.Table.Counts[i][j] != res2.Table.Counts[i][j] {
				t.Errorf("count at (%d,%d) differs between runs", i, j)
			}
		}
	}
	if res1.FwdModel.MaxDelta(res2.FwdModel) != 0 {
		t.Error("error models differ between identical runs")
	}
}

func TestRunDegenerateSample(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeScenario(in)
	// sampleC's reads are all too short to survive truncation
	cFwd, cRev := ampliconReads(amplicon, 10, "c")
	for i := range cFwd {
		cFwd[i].Seq = cFwd[i].Seq[:10]
		cFwd[i].Qual = cFwd[i].Qual[:10]
	}
	writeSample(in, "sampleC", cFwd, cRev)

	res, err := Run(testConfig(in, out))
	if err != nil {
		t.Fatal(err)
	}
	// sampleC is excluded from the table but still accounted for
	if len(res.Table.Samples) != 2 {
		t.Errorf("degenerate sample should not appear in the table: %v", res.Table.Samples)
	}
	var found bool
	for _, rec := range res.Track {
		if rec.Sample == "sampleC" {
			found = true
			if rec.Filtered != 0 || rec.Merged != 0 || rec.NonChimeric != 0 {
				t.Errorf("degenerate sample should have zero surviving reads: %+v", rec)
			}
		}
	}
	if !found {
		t.Error("degenerate sample missing from the track record")
	}
}

func TestRunEmptyDir(t *testing.T) {
	if _, err := Run(testConfig(t.TempDir(), t.TempDir())); err == nil {
		t.Error("a directory without fastq files should be a fatal error")
	}
}
