package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/dasnellings/ampliconTools/filter"
	"github.com/vertgenlab/gonomics/exception"
)

func filterUsage(filterFlags *flag.FlagSet) {
	fmt.Print(
		"filter - quality filter paired fastq files in lockstep\n\n" +
			"A read pair is kept only if both mates pass every criterion, so the two\n" +
			"output files stay in matched order.\n\n" +
			"Usage:\n" +
			"  amplicontools filter [options] -1 r1.fastq.gz -2 r2.fastq.gz -o1 r1.filt.fastq.gz -o2 r2.filt.fastq.gz\n\n" +
			"Options:\n")
	filterFlags.PrintDefaults()
}

func runFilter(args []string) {
	var err error
	filterFlags := flag.NewFlagSet("filter", flag.ExitOnError)

	r1 := filterFlags.String("1", "", "Forward fastq file. May be gzipped.")
	r2 := filterFlags.String("2", "", "Reverse fastq file. May be gzipped.")
	o1 := filterFlags.String("o1", "", "Output file for filtered forward reads.")
	o2 := filterFlags.String("o2", "", "Output file for filtered reverse reads.")
	trimLeftFwd := filterFlags.Int("trimLeftFwd", 0, "Bases to remove from the 5' end of forward reads, e.g. primer length.")
	trimLeftRev := filterFlags.Int("trimLeftRev", 0, "Bases to remove from the 5' end of reverse reads.")
	truncLenFwd := filterFlags.Int("truncLenFwd", 0, "Truncate forward reads to this length, discarding shorter reads. 0 disables.")
	truncLenRev := filterFlags.Int("truncLenRev", 0, "Truncate reverse reads to this length, discarding shorter reads. 0 disables.")
	truncQ := filterFlags.Int("truncQ", 2, "Cut reads before the first position with quality <= truncQ.")
	maxNs := filterFlags.Int("maxNs", 0, "Maximum number of ambiguous bases allowed per read.")
	maxEEFwd := filterFlags.Float64("maxEEFwd", 2, "Maximum expected errors for forward reads. 0 disables.")
	maxEERev := filterFlags.Float64("maxEERev", 2, "Maximum expected errors for reverse reads. 0 disables.")
	filterFlags.Usage = func() { filterUsage(filterFlags) }

	err = filterFlags.Parse(args)
	exception.PanicOnErr(err)

	if *r1 == "" || *r2 == "" || *o1 == "" || *o2 == "" {
		filterFlags.Usage()
		log.Fatalln("ERROR: must input paired fastq files (-1, -2) and output files (-o1, -o2)")
	}

	opt := filter.Options{
		TrimLeftFwd: *trimLeftFwd,
		TrimLeftRev: *trimLeftRev,
		TruncLenFwd: *truncLenFwd,
		TruncLenRev: *truncLenRev,
		TruncQ:      uint8(*truncQ),
		MaxNs:       *maxNs,
		MaxEEFwd:    *maxEEFwd,
		MaxEERev:    *maxEERev,
	}
	res := filter.PairFiles(*r1, *r2, *o1, *o2, opt)
	log.Printf("%d of %d read pairs passed filtering\n", res.Kept, res.Input)
	if res.Kept == 0 {
		log.Println("WARNING: no reads survived filtering")
	}
}
