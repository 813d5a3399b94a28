package track

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/vertgenlab/gonomics/fileio"
)

var testRecs = []Record{
	{Sample: "s1", Input: 1000, Filtered: 900, DenoisedFwd: 900, DenoisedRev: 900, Merged: 850, NonChimeric: 800},
	{Sample: "s2", Input: 500, Filtered: 0},
}

func TestWriteTSV(t *testing.T) {
	file := filepath.Join(t.TempDir(), "track.tsv")
	WriteTSV(file, testRecs)
	lines := fileio.Read(file)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "sample\tinput\tfiltered\tdenoisedF\tdenoisedR\tmerged\tnonchim" {
		t.Errorf("bad header: %q", lines[0])
	}
	if lines[1] != "s1\t1000\t900\t900\t900\t850\t800" {
		t.Errorf("bad row: %q", lines[1])
	}
	if lines[2] != "s2\t500\t0\t0\t0\t0\t0" {
		t.Errorf("bad row: %q", lines[2])
	}
}

func TestString(t *testing.T) {
	s := String(testRecs)
	if !strings.Contains(s, "s1") || !strings.Contains(s, "850") {
		t.Errorf("rendered table missing data:\n%s", s)
	}
	if len(strings.Split(strings.TrimSpace(s), "\n")) != 3 {
		t.Errorf("rendered table should have 3 lines:\n%s", s)
	}
}
