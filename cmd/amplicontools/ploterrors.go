package main

import (
	"flag"
	"fmt"
	"log"
	"math"

	"github.com/dasnellings/ampliconTools/denoise"
	"github.com/vertgenlab/gonomics/dna"
	"github.com/vertgenlab/gonomics/exception"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

func plotErrorsUsage(plotFlags *flag.FlagSet) {
	fmt.Print(
		"plotErrors - plot a learned error model\n\n" +
			"Writes a PNG of log10 substitution rate against quality score, one line\n" +
			"per substitution type, with the nominal phred expectation for reference.\n\n" +
			"Usage:\n" +
			"  amplicontools plotErrors [options] -i fwd.err.tsv -o fwd.err.png\n\n" +
			"Options:\n")
	plotFlags.PrintDefaults()
}

func runPlotErrors(args []string) {
	var err error
	plotFlags := flag.NewFlagSet("plotErrors", flag.ExitOnError)

	input := plotFlags.String("i", "", "Error model TSV from 'amplicontools learn'.")
	output := plotFlags.String("o", "errors.png", "Output PNG file.")
	plotFlags.Usage = func() { plotErrorsUsage(plotFlags) }

	err = plotFlags.Parse(args)
	exception.PanicOnErr(err)

	if *input == "" {
		plotFlags.Usage()
		log.Fatalln("ERROR: must input an error model TSV (-i)")
	}

	em, err := denoise.ReadTSV(*input)
	exception.PanicOnErr(err)

	p := plot.New()
	p.Title.Text = "substitution error rates"
	p.X.Label.Text = "quality score"
	p.Y.Label.Text = "log10 error rate"

	bases := []dna.Base{dna.A, dna.C, dna.G, dna.T}
	names := []string{"A", "C", "G", "T"}
	var lines []interface{}
	for i, from := range bases {
		for j, to := range bases {
			if i == j {
				continue
			}
			xys := make(plotter.XYs, denoise.MaxQ+1)
			for q := 0; q <= denoise.MaxQ; q++ {
				xys[q].X = float64(q)
				xys[q].Y = math.Log10(em.Sub(from, to, q))
			}
			lines = append(lines, names[i]+">"+names[j], xys)
		}
	}
	nominal := make(plotter.XYs, denoise.MaxQ+1)
	for q := 0; q <= denoise.MaxQ; q++ {
		nominal[q].X = float64(q)
		nominal[q].Y = -float64(q) / 10
	}
	lines = append(lines, "nominal", nominal)

	err = plotutil.AddLines(p, lines...)
	exception.PanicOnErr(err)
	err = p.Save(8*vg.Inch, 6*vg.Inch, *output)
	exception.PanicOnErr(err)
	log.Printf("wrote %s\n", *output)
}
