// Package pipeline runs the full denoising workflow: quality filtering, error
// model learning, per-sample denoising, read-pair merging, feature table
// assembly, and chimera removal, with per-sample read accounting throughout.
package pipeline

import (
	"fmt"
	"log"
	"os"

	"github.com/dasnellings/ampliconTools/chimera"
	"github.com/dasnellings/ampliconTools/denoise"
	"github.com/dasnellings/ampliconTools/derep"
	"github.com/dasnellings/ampliconTools/filter"
	"github.com/dasnellings/ampliconTools/learn"
	"github.com/dasnellings/ampliconTools/merge"
	"github.com/dasnellings/ampliconTools/samples"
	"github.com/dasnellings/ampliconTools/table"
	"github.com/dasnellings/ampliconTools/track"
	"github.com/exascience/pargo/parallel"
)

// Config collects the options of every stage.
type Config struct {
	InputDir  string
	OutputDir string // receives filtered fastq pairs
	Filter    filter.Options
	Learn     learn.Options
	Denoise   denoise.Options
	Merge     merge.Options
	Chimera   chimera.Options
	Threads   int // worker parallelism within each stage, 0 for GOMAXPROCS
	Verbose   int
}

// SampleFailure records a sample that was dropped from the run.
type SampleFailure struct {
	Sample string
	Err    error
}

// Result is the full output of a pipeline run.
type Result struct {
	Table        *table.Table
	Removed      []string // chimeric sequences dropped from the table
	FracRetained float64  // abundance fraction surviving chimera removal
	Track        []track.Record
	FwdModel     *denoise.ErrorModel
	RevModel     *denoise.ErrorModel
	Failures     []SampleFailure
}

type sampleState struct {
	pair             samples.Pair
	fwdFilt, revFilt string
	filt             filter.Result
	err              error
	merged           []*merge.Merged
	denoisedFwd      int
	denoisedRev      int
	mergedReads      int
}

// Run executes every stage in order. Stages run to completion for all samples
// before the next stage begins; within a stage samples are processed in
// parallel. A failing sample is isolated and reported in Result.Failures, not
// fatal; Run returns an error only when the whole run cannot proceed.
func Run(cfg Config) (*Result, error) {
	pairs, err := samples.Discover(cfg.InputDir)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no paired fastq files found in %s", cfg.InputDir)
	}
	if err = os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, err
	}

	states := make([]*sampleState, len(pairs))
	for i := range pairs {
		s := &sampleState{pair: pairs[i]}
		s.fwdFilt, s.revFilt = pairs[i].FilteredPair(cfg.OutputDir)
		states[i] = s
	}

	// stage 1: lockstep quality filtering
	parallel.Range(0, len(states), cfg.Threads, func(low, high int) {
		for i := low; i < high; i++ {
			s := states[i]
			s.err = isolate(s.pair.Name, func() {
				if err := s.pair.Validate(); err != nil {
					panic(err)
				}
				s.filt = filter.PairFiles(s.pair.Fwd, s.pair.Rev, s.fwdFilt, s.revFilt, cfg.Filter)
			})
		}
	})

	var live []*sampleState
	for _, s := range states {
		switch {
		case s.err != nil:
			log.Printf("WARNING: sample %s dropped: %v\n", s.pair.Name, s.err)
		case s.filt.Kept == 0:
			log.Printf("WARNING: sample %s has no reads surviving the quality filter, excluded from all later stages\n", s.pair.Name)
		default:
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		return nil, fmt.Errorf("no samples survived quality filtering")
	}

	// stage 2: error model learning, one model per orientation
	fwdFiles := make([]string, len(live))
	revFiles := make([]string, len(live))
	for i, s := range live {
		fwdFiles[i] = s.fwdFilt
		revFiles[i] = s.revFilt
	}
	fwdModel, _ := learn.Files(fwdFiles, revFiles, learn.Forward, cfg.Denoise, cfg.Learn)
	revModel, _ := learn.Files(fwdFiles, revFiles, learn.Reverse, cfg.Denoise, cfg.Learn)

	// stage 3: per-sample dereplication, denoising, and merging
	parallel.Range(0, len(live), cfg.Threads, func(low, high int) {
		for i := low; i < high; i++ {
			s := live[i]
			s.err = isolate(s.pair.Name, func() {
				denoiseAndMerge(s, fwdModel, revModel, cfg)
			})
		}
	})
	var merged []*sampleState
	for _, s := range live {
		if s.err != nil {
			log.Printf("WARNING: sample %s dropped: %v\n", s.pair.Name, s.err)
			continue
		}
		merged = append(merged, s)
	}
	if len(merged) == 0 {
		return nil, fmt.Errorf("no samples survived denoising")
	}

	// stage 4: feature table over all samples
	names := make([]string, len(merged))
	perSample := make([][]*merge.Merged, len(merged))
	for i, s := range merged {
		names[i] = s.pair.Name
		perSample[i] = s.merged
	}
	full := table.Build(names, perSample)

	// stage 5: chimera removal on the complete table
	reduced, removed, frac := chimera.Remove(full, cfg.Chimera)
	if cfg.Verbose > 0 {
		log.Printf("removed %d chimeric sequences, %.2f%% of reads retained\n", len(removed), frac*100)
	}

	ans := &Result{
		Table:        reduced,
		Removed:      removed,
		FracRetained: frac,
		FwdModel:     fwdModel,
		RevModel:     revModel,
	}
	for _, s := range states {
		if s.err != nil {
			ans.Failures = append(ans.Failures, SampleFailure{Sample: s.pair.Name, Err: s.err})
		}
	}

	rowOf := make(map[string]int)
	for i, name := range reduced.Samples {
		rowOf[name] = i
	}
	for _, s := range states {
		rec := track.Record{
			Sample:      s.pair.Name,
			Input:       s.filt.Input,
			Filtered:    s.filt.Kept,
			DenoisedFwd: s.denoisedFwd,
			DenoisedRev: s.denoisedRev,
			Merged:      s.mergedReads,
		}
		if row, ok := rowOf[s.pair.Name]; ok && s.err == nil {
			rec.NonChimeric = reduced.SampleTotal(row)
		}
		ans.Track = append(ans.Track, rec)
	}
	return ans, nil
}

// denoiseAndMerge processes one sample through stages that need no
// cross-sample state. The error models are read-only and shared.
func denoiseAndMerge(s *sampleState, fwdModel, revModel *denoise.ErrorModel, cfg Config) {
	fwdReads, revReads := filter.ReadPairs(s.fwdFilt, s.revFilt)

	fwdRecs, fwdReadToRec := derep.Sample(fwdReads)
	revRecs, revReadToRec := derep.Sample(revReads)

	fwdVars, fwdRecToVar := denoise.Sample(fwdRecs, fwdModel, cfg.Denoise)
	revVars, revRecToVar := denoise.Sample(revRecs, revModel, cfg.Denoise)
	for _, v := range fwdVars {
		s.denoisedFwd += v.Count
	}
	for _, v := range revVars {
		s.denoisedRev += v.Count
	}

	readToFwd := make([]int, len(fwdReads))
	readToRev := make([]int, len(revReads))
	for r := range fwdReads {
		readToFwd[r] = fwdRecToVar[fwdReadToRec[r]]
		readToRev[r] = revRecToVar[revReadToRec[r]]
	}
	s.merged, s.mergedReads = merge.Sample(fwdVars, revVars, readToFwd, readToRev, cfg.Merge)
}

// isolate converts a panic while processing one sample into that sample's
// error so other in-flight samples are unaffected.
func isolate(name string, f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sample %s: %v", name, r)
		}
	}()
	f()
	return nil
}
