package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
)

const version string = "0.0.1"
const gonomicsVersion string = "1.0.1-0.20240426183757-e6c6ab634c20"

type subcommand struct {
	name     string
	function func(args []string)
	blurb    string
}

// SubCommands lists every runnable tool; registering a new one here is all it
// takes to make it dispatchable.
var SubCommands = []*subcommand{
	{"filter", runFilter, "quality filter paired fastq files in lockstep"},
	{"learn", runLearn, "fit per-run error models from filtered reads"},
	{"denoise", runDenoise, "infer sequence variants for one filtered sample"},
	{"run", runRun, "run the full pipeline from raw reads to feature table"},
	{"plotErrors", runPlotErrors, "plot a learned error model"},
}

func usage() {
	s := new(strings.Builder)
	s.WriteString(
		"Program: amplicontools (paired-end amplicon denoising to exact sequence variants)\n" +
			"Version: " + version + " (gonomics " + gonomicsVersion + ")\n" +
			"\nUsage:\tamplicontools <command> [options]\n\n" +
			"Commands:\n")

	// tabwriter keeps the name and blurb columns aligned
	w := tabwriter.NewWriter(s, 0, 8, 5, '\t', tabwriter.AlignRight)
	for i := range SubCommands {
		fmt.Fprintf(w, "\t%s\t%s\n", SubCommands[i].name, SubCommands[i].blurb)
	}
	w.Flush()
	fmt.Print(s.String())
}

// commandMap indexes SubCommands by name for dispatch.
func commandMap() map[string]func(args []string) {
	m := make(map[string]func(args []string))
	for i := range SubCommands {
		m[SubCommands[i].name] = SubCommands[i].function
	}
	return m
}

func main() {
	flag.Usage = usage
	flag.Parse()

	command := commandMap()[flag.Arg(0)]
	if command == nil {
		flag.Usage()
		if flag.Arg(0) != "" {
			errExit("unknown command: " + flag.Arg(0))
		}
		return
	}

	// hand the remaining arguments to the subcommand's own flag set
	command(flag.Args()[1:])
}

func errExit(err string) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
