// Command suiviconso runs a consumption-analysis pipeline described by a
// YAML configuration file: readers merge utility time series into one table,
// filters reshape it, plotters render charts and reports from it.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/suiviconso/suiviconso/internal/filters"
	"github.com/suiviconso/suiviconso/internal/pipeline"
	"github.com/suiviconso/suiviconso/internal/plotters"
	"github.com/suiviconso/suiviconso/internal/readers"
	"github.com/suiviconso/suiviconso/internal/version"
)

var (
	plotsDir    = flag.String("plots-dir", "plots", "Directory to write plot artifacts into")
	format      = flag.String("format", "png", "Plot artifact format: png or html")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] config.yaml\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	if *format != "png" && *format != "html" {
		log.Fatalf("unsupported format %q, want png or html", *format)
	}

	sections, err := pipeline.LoadConfigFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	reg := pipeline.NewRegistry()
	readers.Register(reg)
	filters.Register(reg)
	plotters.Register(reg)

	p, err := pipeline.New(reg, sections, pipeline.WithPlotterDefaults(map[string]interface{}{
		"output_dir": *plotsDir,
		"format":     *format,
	}))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Plotter failures are logged inside Run and do not surface here; only
	// reader and filter failures abort the run.
	if err := p.Run(); err != nil {
		log.Fatalf("run %s failed: %v", p.RunID(), err)
	}
}
