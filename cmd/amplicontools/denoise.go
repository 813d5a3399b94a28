package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/dasnellings/ampliconTools/denoise"
	"github.com/dasnellings/ampliconTools/derep"
	"github.com/dasnellings/ampliconTools/filter"
	"github.com/dasnellings/ampliconTools/merge"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/exception"
	"github.com/vertgenlab/gonomics/fileio"
)

func denoiseUsage(denoiseFlags *flag.FlagSet) {
	fmt.Print(
		"denoise - infer sequence variants for one filtered sample\n\n" +
			"Dereplicates a filtered read pair, partitions each orientation into\n" +
			"sequence variants under the supplied error models, and merges the\n" +
			"forward and reverse variants into full-length sequences.\n\n" +
			"Usage:\n" +
			"  amplicontools denoise [options] -1 r1.filt.fastq.gz -2 r2.filt.fastq.gz -fwdModel fwd.err.tsv -revModel rev.err.tsv -o variants.fasta\n\n" +
			"Options:\n")
	denoiseFlags.PrintDefaults()
}

func runDenoise(args []string) {
	var err error
	denoiseFlags := flag.NewFlagSet("denoise", flag.ExitOnError)

	r1 := denoiseFlags.String("1", "", "Filtered forward fastq file.")
	r2 := denoiseFlags.String("2", "", "Filtered reverse fastq file.")
	fwdModelFile := denoiseFlags.String("fwdModel", "", "Forward error model TSV from 'amplicontools learn'. Defaults to nominal phred rates.")
	revModelFile := denoiseFlags.String("revModel", "", "Reverse error model TSV from 'amplicontools learn'. Defaults to nominal phred rates.")
	output := denoiseFlags.String("o", "stdout", "Output fasta of merged sequence variants with abundances.")
	omegaA := denoiseFlags.Float64("omegaA", 1e-40, "P-value threshold below which a sequence founds a new partition.")
	maxVariants := denoiseFlags.Int("maxVariants", 0, "Maximum number of partitions per sample and orientation. 0 for no bound.")
	minOverlap := denoiseFlags.Int("minOverlap", 12, "Minimum overlap between forward read and reverse complement when merging.")
	maxMismatch := denoiseFlags.Int("maxMismatch", 0, "Maximum mismatches tolerated in the overlap region.")
	denoiseFlags.Usage = func() { denoiseUsage(denoiseFlags) }

	err = denoiseFlags.Parse(args)
	exception.PanicOnErr(err)

	if *r1 == "" || *r2 == "" {
		denoiseFlags.Usage()
		log.Fatalln("ERROR: must input a filtered read pair (-1, -2)")
	}

	fwdModel := denoise.DefaultModel()
	if *fwdModelFile != "" {
		fwdModel, err = denoise.ReadTSV(*fwdModelFile)
		exception.PanicOnErr(err)
	}
	revModel := denoise.DefaultModel()
	if *revModelFile != "" {
		revModel, err = denoise.ReadTSV(*revModelFile)
		exception.PanicOnErr(err)
	}

	denOpt := denoise.Options{OmegaA: *omegaA, MaxVariants: *maxVariants}
	mergeOpt := merge.Options{MinOverlap: *minOverlap, MaxMismatch: *maxMismatch}

	fwdReads, revReads := filter.ReadPairs(*r1, *r2)
	if len(fwdReads) == 0 {
		log.Fatalln("ERROR: no reads found in input")
	}

	fwdRecs, fwdReadToRec := derep.Sample(fwdReads)
	revRecs, revReadToRec := derep.Sample(revReads)
	fwdVars, fwdRecToVar := denoise.Sample(fwdRecs, fwdModel, denOpt)
	revVars, revRecToVar := denoise.Sample(revRecs, revModel, denOpt)
	log.Printf("%d forward and %d reverse variants from %d read pairs\n", len(fwdVars), len(revVars), len(fwdReads))

	readToFwd := make([]int, len(fwdReads))
	readToRev := make([]int, len(revReads))
	for r := range fwdReads {
		readToFwd[r] = fwdRecToVar[fwdReadToRec[r]]
		readToRev[r] = revRecToVar[revReadToRec[r]]
	}
	merged, mergedReads := merge.Sample(fwdVars, revVars, readToFwd, readToRev, mergeOpt)
	log.Printf("%d merged sequences supported by %d of %d read pairs\n", len(merged), mergedReads, len(fwdReads))

	out := fileio.EasyCreate(*output)
	for i, m := range merged {
		_, err = fmt.Fprintf(out, ">asv_%d;size=%d\n%s\n", i+1, m.Count, dna.BasesToString(m.Seq))
		exception.PanicOnErr(err)
	}
	err = out.Close()
	exception.PanicOnErr(err)
}
