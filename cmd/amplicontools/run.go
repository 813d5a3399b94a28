package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/dasnellings/ampliconTools/chimera"
	"github.com/dasnellings/ampliconTools/denoise"
	"github.com/dasnellings/ampliconTools/filter"
	"github.com/dasnellings/ampliconTools/learn"
	"github.com/dasnellings/ampliconTools/merge"
	"github.com/dasnellings/ampliconTools/pipeline"
	"github.com/dasnellings/ampliconTools/track"
	"github.com/vertgenlab/gonomics/exception"
)

func runUsage(runFlags *flag.FlagSet) {
	fmt.Print(
		"run - run the full pipeline from raw reads to feature table\n\n" +
			"Discovers paired fastq files by _R1/_R2 naming, quality filters each pair\n" +
			"in lockstep, learns per-run error models, denoises every sample, merges\n" +
			"read pairs, assembles the feature table, and removes chimeras. Writes the\n" +
			"feature table, the read tracking table, and both error models to the\n" +
			"output directory alongside the filtered fastq files.\n\n" +
			"Usage:\n" +
			"  amplicontools run [options] -i rawdata/ -o output/\n\n" +
			"Options:\n")
	runFlags.PrintDefaults()
}

func runRun(args []string) {
	var err error
	runFlags := flag.NewFlagSet("run", flag.ExitOnError)

	input := runFlags.String("i", "", "Directory containing raw paired fastq files.")
	output := runFlags.String("o", "", "Output directory. Created if missing.")
	trimLeftFwd := runFlags.Int("trimLeftFwd", 0, "Bases to remove from the 5' end of forward reads, e.g. primer length.")
	trimLeftRev := runFlags.Int("trimLeftRev", 0, "Bases to remove from the 5' end of reverse reads.")
	truncLenFwd := runFlags.Int("truncLenFwd", 0, "Truncate forward reads to this length, discarding shorter reads. 0 disables.")
	truncLenRev := runFlags.Int("truncLenRev", 0, "Truncate reverse reads to this length, discarding shorter reads. 0 disables.")
	truncQ := runFlags.Int("truncQ", 2, "Cut reads before the first position with quality <= truncQ.")
	maxNs := runFlags.Int("maxNs", 0, "Maximum number of ambiguous bases allowed per read.")
	maxEEFwd := runFlags.Float64("maxEEFwd", 2, "Maximum expected errors for forward reads. 0 disables.")
	maxEERev := runFlags.Float64("maxEERev", 2, "Maximum expected errors for reverse reads. 0 disables.")
	omegaA := runFlags.Float64("omegaA", 1e-40, "P-value threshold below which a sequence founds a new partition.")
	maxVariants := runFlags.Int("maxVariants", 0, "Maximum number of partitions per sample and orientation. 0 for no bound.")
	maxIter := runFlags.Int("maxIter", 10, "Maximum error model refinement iterations.")
	maxReads := runFlags.Int("maxReads", 1_000_000, "Maximum reads used for error model learning. 0 uses everything.")
	minOverlap := runFlags.Int("minOverlap", 12, "Minimum overlap between forward read and reverse complement when merging.")
	maxMismatch := runFlags.Int("maxMismatch", 0, "Maximum mismatches tolerated in the overlap region.")
	chimeraMethod := runFlags.String("chimeraMethod", "consensus", "Chimera removal method: consensus or pooled.")
	minFoldParent := runFlags.Float64("minFoldParent", 2, "A chimera parent must be at least this fold more abundant than the candidate.")
	seed := runFlags.Int64("seed", 1, "Seed for reproducible stochastic steps.")
	threads := runFlags.Int("threads", 0, "Number of worker threads per stage. 0 uses all processors.")
	verbose := runFlags.Int("verbose", 0, "Level of verbosity in log.")
	runFlags.Usage = func() { runUsage(runFlags) }

	err = runFlags.Parse(args)
	exception.PanicOnErr(err)

	if *input == "" || *output == "" {
		runFlags.Usage()
		log.Fatalln("ERROR: must input a raw fastq directory (-i) and an output directory (-o)")
	}
	if *chimeraMethod != string(chimera.Consensus) && *chimeraMethod != string(chimera.Pooled) {
		log.Fatalf("ERROR: unknown chimera method %q, expected consensus or pooled\n", *chimeraMethod)
	}

	cfg := pipeline.Config{
		InputDir:  *input,
		OutputDir: *output,
		Filter: filter.Options{
			TrimLeftFwd: *trimLeftFwd,
			TrimLeftRev: *trimLeftRev,
			TruncLenFwd: *truncLenFwd,
			TruncLenRev: *truncLenRev,
			TruncQ:      uint8(*truncQ),
			MaxNs:       *maxNs,
			MaxEEFwd:    *maxEEFwd,
			MaxEERev:    *maxEERev,
		},
		Learn: learn.Options{
			MaxIter:   *maxIter,
			Tolerance: 1e-7,
			MaxReads:  *maxReads,
			Seed:      *seed,
			Verbose:   *verbose,
		},
		Denoise: denoise.Options{OmegaA: *omegaA, MaxVariants: *maxVariants},
		Merge:   merge.Options{MinOverlap: *minOverlap, MaxMismatch: *maxMismatch},
		Chimera: chimera.Options{
			Method:        chimera.Method(*chimeraMethod),
			MinFoldParent: *minFoldParent,
			MaxMismatch:   1,
			MinFragment:   4,
			MinConsensus:  0.9,
		},
		Threads: *threads,
		Verbose: *verbose,
	}

	res, err := pipeline.Run(cfg)
	if err != nil {
		log.Fatalf("ERROR: %v\n", err)
	}

	res.Table.WriteTSV(filepath.Join(*output, "feature_table.tsv"))
	track.WriteTSV(filepath.Join(*output, "track_reads.tsv"), res.Track)
	res.FwdModel.WriteTSV(filepath.Join(*output, "fwd.err.tsv"))
	res.RevModel.WriteTSV(filepath.Join(*output, "rev.err.tsv"))

	fmt.Print(track.String(res.Track))
	log.Printf("%d sequence variants across %d samples, %d chimeras removed (%.2f%% of reads retained)\n",
		len(res.Table.Seqs), len(res.Table.Samples), len(res.Removed), res.FracRetained*100)
	for _, f := range res.Failures {
		log.Printf("WARNING: %v\n", f.Err)
	}
}
