package filter

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fastq"
	"github.com/vertgenlab/gonomics/fileio"
)

func mkRead(name, seq string, qual uint8) fastq.Fastq {
	bases := dna.StringToBases(seq)
	quals := make([]uint8, len(bases))
	for i := range quals {
		quals[i] = qual
	}
	return fastq.Fastq{Name: name, Seq: bases, Qual: quals}
}

func writeFastq(filename string, reads []fastq.Fastq) {
	out := fileio.EasyCreate(filename)
	for i := range reads {
		WriteRecord(out, reads[i])
	}
	err := out.Close()
	exception.PanicOnErr(err)
}

func TestExpectedErrors(t *testing.T) {
	qual := []uint8{20, 20, 20, 20}
	got := ExpectedErrors(qual)
	want := 4 * 0.01
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("ExpectedErrors: got %g, want %g", got, want)
	}
}

func TestPasses(t *testing.T) {
	opt := Options{TruncQ: 2, MaxNs: 0, MaxEEFwd: 2}

	good := mkRead("good", "ACGTACGTACGT", 35)
	if !passes(&good, 0, 10, opt.MaxEEFwd, opt) {
		t.Error("high quality read should pass")
	}
	if len(good.Seq) != 10 || len(good.Qual) != 10 {
		t.Errorf("read should be truncated to 10 bases, got %d", len(good.Seq))
	}

	short := mkRead("short", "ACGTA", 35)
	if passes(&short, 0, 10, opt.MaxEEFwd, opt) {
		t.Error("read shorter than truncLen should fail")
	}

	withN := mkRead("withN", "ACGTNCGTACGT", 35)
	if passes(&withN, 0, 10, opt.MaxEEFwd, opt) {
		t.Error("read with an N should fail with MaxNs of 0")
	}

	lowQ := mkRead("lowQ", "ACGTACGTACGT", 8)
	// expected errors: 12 * 10^-0.8 = 1.9, passes a budget of 2 but not 1
	if !passes(&lowQ, 0, 0, 2, opt) {
		t.Error("read within the expected error budget should pass")
	}
	lowQ = mkRead("lowQ", "ACGTACGTACGT", 8)
	if passes(&lowQ, 0, 0, 1, opt) {
		t.Error("read exceeding the expected error budget should fail")
	}

	trimmed := mkRead("trimmed", "ACGTACGTACGT", 35)
	if !passes(&trimmed, 4, 0, 2, opt) {
		t.Error("trimLeft should not fail a long read")
	}
	if dna.BasesToString(trimmed.Seq) != "ACGTACGT" {
		t.Errorf("trimLeft should remove the first 4 bases, got %s", dna.BasesToString(trimmed.Seq))
	}

	qualCut := mkRead("qualCut", "ACGTACGTACGT", 35)
	qualCut.Qual[6] = 2
	if passes(&qualCut, 0, 10, 2, opt) {
		t.Error("read cut at a low quality position before truncLen should fail")
	}
}

func TestPairFilesLockstep(t *testing.T) {
	dir := t.TempDir()
	fwdIn := filepath.Join(dir, "s_R1.fastq.gz")
	revIn := filepath.Join(dir, "s_R2.fastq.gz")
	fwdOut := filepath.Join(dir, "s_R1_filt.fastq.gz")
	revOut := filepath.Join(dir, "s_R2_filt.fastq.gz")

	// pair 1 passes, pair 2 fails on the reverse mate only, pair 3 passes,
	// pair 4 fails on the forward mate only
	fwd := []fastq.Fastq{
		mkRead("read0", "ACGTACGTAC", 35),
		mkRead("read1", "ACGTACGTAC", 35),
		mkRead("read2", "TTGCATGCAA", 35),
		mkRead("read3", "ACGTN", 35),
	}
	rev := []fastq.Fastq{
		mkRead("read0", "GGCCTTAAGG", 35),
		mkRead("read1", "GGCC", 35),
		mkRead("read2", "CCAATTGGCC", 35),
		mkRead("read3", "GGCCTTAAGG", 35),
	}
	writeFastq(fwdIn, fwd)
	writeFastq(revIn, rev)

	opt := Options{TruncLenFwd: 10, TruncLenRev: 10, TruncQ: 2, MaxEEFwd: 2, MaxEERev: 2}
	res := PairFiles(fwdIn, revIn, fwdOut, revOut, opt)
	if res.Input != 4 {
		t.Errorf("expected 4 input pairs, got %d", res.Input)
	}
	if res.Kept != 2 {
		t.Errorf("expected 2 kept pairs, got %d", res.Kept)
	}

	gotFwd, gotRev := ReadPairs(fwdOut, revOut)
	if len(gotFwd) != len(gotRev) {
		t.Fatalf("filtered outputs out of lockstep: %d forward vs %d reverse", len(gotFwd), len(gotRev))
	}
	if len(gotFwd) != 2 {
		t.Fatalf("expected 2 filtered pairs, got %d", len(gotFwd))
	}
	if gotFwd[0].Name != "read0" || gotFwd[1].Name != "read2" {
		t.Errorf("wrong reads kept: %s, %s", gotFwd[0].Name, gotFwd[1].Name)
	}
	if gotRev[0].Name != "read0" || gotRev[1].Name != "read2" {
		t.Errorf("reverse reads out of correspondence: %s, %s", gotRev[0].Name, gotRev[1].Name)
	}
	if dna.BasesToString(gotFwd[0].Seq) != "ACGTACGTAC" {
		t.Errorf("unexpected filtered sequence: %s", dna.BasesToString(gotFwd[0].Seq))
	}
	for i := range gotFwd {
		for j := range gotFwd[i].Qual {
			if gotFwd[i].Qual[j] != 35 {
				t.Fatalf("quality scores corrupted in round trip: %d", gotFwd[i].Qual[j])
			}
		}
	}
}
