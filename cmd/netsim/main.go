// Command netsim runs a discrete-event network simulation described by a
// topology file and writes the resulting structured log to disk.
package main

import (
	"flag"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"

	"github.com/iti/netsim"
)

func main() {
	log.SetHandler(cli.Default)

	topoFile := flag.String("topo", "", "path to a topology file (.json or .yaml)")
	expFile := flag.String("exp", "", "path to an optional experiment config file (.json or .yaml) overriding run parameters")
	algo := flag.String("algo", "", "congestion algorithm override applied to every flow: reno or fast (default: each flow's own setting)")
	outFile := flag.String("out", "trace.json", "path to write the run's log records to")
	verbose := flag.Bool("verbose", false, "mirror log records to stderr as they're produced")
	maxTime := flag.Float64("max-time", 3600, "stop the run after this many simulated seconds even if flows remain")
	flag.Parse()

	if *topoFile == "" {
		log.Error("-topo is required")
		flag.Usage()
		os.Exit(2)
	}

	td, err := netsim.ReadTopologyDesc(*topoFile)
	if err != nil {
		log.WithError(err).Fatal("reading topology")
	}

	cfg := netsim.DefaultConfig()
	cfg.MaxSimTimeSec = *maxTime

	if *expFile != "" {
		ec, err := netsim.ReadExperimentConfig(*expFile)
		if err != nil {
			log.WithError(err).Fatal("reading experiment config")
		}
		ec.ApplyTo(cfg)
	}

	if *verbose {
		cfg.LogVerbose = true
	}
	if *algo != "" {
		cfg.CongestionAlgorithmOverride = *algo
	}

	sim, err := netsim.BuildTopology(td, cfg)
	if err != nil {
		log.WithError(err).Fatal("building topology")
	}

	sim.Run()

	if err := sim.Logger().WriteToFile(*outFile); err != nil {
		log.WithError(err).Fatal("writing trace")
	}
	log.WithField("file", *outFile).Info("wrote trace")
}
