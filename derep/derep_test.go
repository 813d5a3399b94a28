package derep

import (
	"testing"

	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/fastq"
)

func mkRead(seq string, qual ...uint8) fastq.Fastq {
	return fastq.Fastq{Name: "r", Seq: dna.StringToBases(seq), Qual: qual}
}

func TestSample(t *testing.T) {
	reads := []fastq.Fastq{
		mkRead("ACGT", 30, 30, 30, 30),
		mkRead("ACGG", 20, 20, 20, 20),
		mkRead("ACGT", 40, 40, 40, 40),
		mkRead("TTTT", 35, 35, 35, 35),
		mkRead("ACGT", 35, 35, 35, 35),
	}
	recs, readToRec := Sample(reads)

	if len(recs) != 3 {
		t.Fatalf("expected 3 unique sequences, got %d", len(recs))
	}
	if dna.BasesToString(recs[0].Seq) != "ACGT" || recs[0].Count != 3 {
		t.Errorf("most abundant record should be ACGT x3, got %s x%d", dna.BasesToString(recs[0].Seq), recs[0].Count)
	}
	// ties broken by first observation: ACGG seen before TTTT
	if dna.BasesToString(recs[1].Seq) != "ACGG" {
		t.Errorf("tie should break by first observation, got %s", dna.BasesToString(recs[1].Seq))
	}
	for i := range recs[0].MeanQual {
		if recs[0].MeanQual[i] != 35 {
			t.Errorf("mean quality at position %d: got %f, want 35", i, recs[0].MeanQual[i])
		}
	}

	var total int
	for _, rec := range recs {
		total += rec.Count
	}
	if total != len(reads) {
		t.Errorf("record counts sum to %d, want %d", total, len(reads))
	}

	wantAssign := []int{0, 1, 0, 2, 0}
	for i := range wantAssign {
		if readToRec[i] != wantAssign[i] {
			t.Errorf("read %d assigned to record %d, want %d", i, readToRec[i], wantAssign[i])
		}
	}
	for idx, rec := range recs {
		if len(rec.Reads) != rec.Count {
			t.Errorf("record %d: %d member reads but count %d", idx, len(rec.Reads), rec.Count)
		}
	}
}

func TestSampleEmpty(t *testing.T) {
	recs, readToRec := Sample(nil)
	if len(recs) != 0 || len(readToRec) != 0 {
		t.Error("empty input should produce no records")
	}
}
