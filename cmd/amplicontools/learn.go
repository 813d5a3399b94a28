package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/dasnellings/ampliconTools/denoise"
	"github.com/dasnellings/ampliconTools/learn"
	"github.com/dasnellings/ampliconTools/samples"
	"github.com/guptarohit/asciigraph"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/exception"
)

func learnUsage(learnFlags *flag.FlagSet) {
	fmt.Print(
		"learn - fit per-run error models from filtered reads\n\n" +
			"Reads all filtered fastq pairs in a directory and fits one substitution\n" +
			"error model per orientation by iterative refinement.\n\n" +
			"Usage:\n" +
			"  amplicontools learn [options] -i filtered/ -fwdOut fwd.err.tsv -revOut rev.err.tsv\n\n" +
			"Options:\n")
	learnFlags.PrintDefaults()
}

func runLearn(args []string) {
	var err error
	learnFlags := flag.NewFlagSet("learn", flag.ExitOnError)

	input := learnFlags.String("i", "", "Directory containing filtered paired fastq files (sample_R1/_R2 naming).")
	fwdOut := learnFlags.String("fwdOut", "", "Output TSV for the forward error model.")
	revOut := learnFlags.String("revOut", "", "Output TSV for the reverse error model.")
	maxIter := learnFlags.Int("maxIter", 10, "Maximum refinement iterations.")
	tolerance := learnFlags.Float64("tolerance", 1e-7, "Convergence threshold on the largest error rate change between iterations.")
	maxReads := learnFlags.Int("maxReads", 1_000_000, "Stop adding samples once this many reads are loaded. 0 loads everything.")
	seed := learnFlags.Int64("seed", 1, "Seed for the sample processing order.")
	omegaA := learnFlags.Float64("omegaA", 1e-40, "Partition promotion threshold used while refining.")
	plotModel := learnFlags.Bool("plot", false, "Print the fitted error rates as a terminal plot.")
	verbose := learnFlags.Int("verbose", 0, "Level of verbosity in log.")
	learnFlags.Usage = func() { learnUsage(learnFlags) }

	err = learnFlags.Parse(args)
	exception.PanicOnErr(err)

	if *input == "" || *fwdOut == "" || *revOut == "" {
		learnFlags.Usage()
		log.Fatalln("ERROR: must input a filtered fastq directory (-i) and output files (-fwdOut, -revOut)")
	}

	pairs, err := samples.Discover(*input)
	exception.PanicOnErr(err)
	if len(pairs) == 0 {
		log.Fatalf("ERROR: no paired fastq files found in %s\n", *input)
	}
	fwdFiles := make([]string, len(pairs))
	revFiles := make([]string, len(pairs))
	for i := range pairs {
		fwdFiles[i] = pairs[i].Fwd
		revFiles[i] = pairs[i].Rev
	}

	denOpt := denoise.DefaultOptions()
	denOpt.OmegaA = *omegaA
	opt := learn.Options{
		MaxIter:   *maxIter,
		Tolerance: *tolerance,
		MaxReads:  *maxReads,
		Seed:      *seed,
		Verbose:   *verbose,
	}

	fwdModel, _ := learn.Files(fwdFiles, revFiles, learn.Forward, denOpt, opt)
	fwdModel.WriteTSV(*fwdOut)
	revModel, _ := learn.Files(fwdFiles, revFiles, learn.Reverse, denOpt, opt)
	revModel.WriteTSV(*revOut)

	if *plotModel {
		fmt.Println("forward error rates by quality score")
		plotRates(fwdModel)
		fmt.Println("reverse error rates by quality score")
		plotRates(revModel)
	}
}

// plotRates prints the summed substitution rate per true base across quality
// scores, one colored series per base.
func plotRates(em *denoise.ErrorModel) {
	trueBases := []dna.Base{dna.A, dna.C, dna.G, dna.T}
	series := make([][]float64, len(trueBases))
	for i, b := range trueBases {
		series[i] = make([]float64, denoise.MaxQ+1)
		for q := 0; q <= denoise.MaxQ; q++ {
			var off float64
			for _, to := range []dna.Base{dna.A, dna.C, dna.G, dna.T} {
				if to != b {
					off += em.Sub(b, to, q)
				}
			}
			series[i][q] = off
		}
	}
	fmt.Println(asciigraph.PlotMany(series, asciigraph.Precision(3), asciigraph.SeriesColors(
		asciigraph.Red,
		asciigraph.Yellow,
		asciigraph.Green,
		asciigraph.Blue,
	), asciigraph.Height(10)))
}
