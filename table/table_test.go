package table

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/dasnellings/ampliconTools/merge"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/fileio"
)

func mkMerged(seq string, count int) *merge.Merged {
	return &merge.Merged{Seq: dna.StringToBases(seq), Count: count}
}

func TestBuild(t *testing.T) {
	names := []string{"s1", "s2"}
	merged := [][]*merge.Merged{
		{mkMerged("AAAA", 100), mkMerged("CCCC", 10)},
		{mkMerged("AAAA", 50), mkMerged("GGGG", 30)},
	}
	tab := Build(names, merged)

	if len(tab.Seqs) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(tab.Seqs))
	}
	// columns ordered by descending total abundance
	if tab.Seqs[0] != "AAAA" || tab.Seqs[1] != "GGGG" || tab.Seqs[2] != "CCCC" {
		t.Errorf("column order wrong: %v", tab.Seqs)
	}
	// absent combinations are zero, not missing
	if tab.Counts[0][1] != 0 {
		t.Errorf("s1 x GGGG should be 0, got %d", tab.Counts[0][1])
	}
	if tab.Counts[1][0] != 50 || tab.Counts[0][0] != 100 {
		t.Errorf("AAAA counts wrong: %d, %d", tab.Counts[0][0], tab.Counts[1][0])
	}
	if tab.ColTotal(0) != 150 || tab.SampleTotal(0) != 110 || tab.Total() != 190 {
		t.Errorf("totals wrong: col %d, sample %d, grand %d", tab.ColTotal(0), tab.SampleTotal(0), tab.Total())
	}
}

func TestBuildDeterministicTies(t *testing.T) {
	// equal-abundance columns order lexicographically
	names := []string{"s1"}
	merged := [][]*merge.Merged{{mkMerged("TTTT", 5), mkMerged("AAAA", 5), mkMerged("GGGG", 5)}}
	for i := 0; i < 10; i++ {
		tab := Build(names, merged)
		if tab.Seqs[0] != "AAAA" || tab.Seqs[1] != "GGGG" || tab.Seqs[2] != "TTTT" {
			t.Fatalf("tie order not deterministic: %v", tab.Seqs)
		}
	}
}

func TestRemoveAndWrite(t *testing.T) {
	names := []string{"s1", "s2"}
	merged := [][]*merge.Merged{
		{mkMerged("AAAA", 100), mkMerged("CCCC", 10)},
		{mkMerged("AAAA", 50)},
	}
	tab := Build(names, merged)
	reduced := tab.Remove(map[string]bool{"CCCC": true})
	if len(reduced.Seqs) != 1 || reduced.Seqs[0] != "AAAA" {
		t.Fatalf("expected only AAAA to remain, got %v", reduced.Seqs)
	}
	if reduced.Counts[0][0] != 100 || reduced.Counts[1][0] != 50 {
		t.Errorf("counts lost in removal: %v", reduced.Counts)
	}

	file := filepath.Join(t.TempDir(), "table.tsv")
	reduced.WriteTSV(file)
	lines := fileio.Read(file)
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "sample\tAAAA" {
		t.Errorf("bad header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "s1\t100") {
		t.Errorf("bad row: %q", lines[1])
	}
}
