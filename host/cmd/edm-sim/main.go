// Command edm-sim runs the controller against simulated hardware from a
// YAML scenario and prints what happened.
package main

import (
	"flag"
	"fmt"
	"os"

	"sparkedm/config"
	"sparkedm/core"
	"sparkedm/host/sim"
)

var (
	scenario   = flag.String("scenario", "scenario.yaml", "Scenario file")
	configFile = flag.String("config", "", "Machine config (JSON); the default machine if empty")
	verbose    = flag.Bool("verbose", false, "Print the controller's debug log")
)

func main() {
	flag.Parse()

	data, err := os.ReadFile(*scenario)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	sc, err := sim.LoadScenario(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var cfg *config.Config
	if *configFile != "" {
		raw, err := os.ReadFile(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if cfg, err = config.Load(raw); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", *configFile, err)
			os.Exit(1)
		}
	}

	if *verbose {
		core.SetDebugWriter(func(s string) { fmt.Println("    " + s) })
		core.SetDebugEnabled(true)
	}

	report, err := sim.Run(sc, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Mode transitions:")
	for _, tr := range report.Transitions {
		fmt.Printf("  %10v  %-8s -> %s\n", tr.At, tr.From, tr.To)
	}

	fmt.Println("Settings commits:")
	for _, c := range report.Commits {
		status := "ok"
		if c.Err != nil {
			status = c.Err.Error()
		}
		fmt.Printf("  %10v  seq=%d %s\n", c.At, c.Seq, status)
	}

	p := report.Params
	fmt.Println("Final state:")
	fmt.Printf("  mode      %s\n", report.Mode)
	fmt.Printf("  screen    %q %q %q\n", report.Screen[0], report.Screen[1], report.Screen[2])
	fmt.Printf("  t_on      %dus\n", p.OnMicros)
	fmt.Printf("  t_off     %dus (%d Hz)\n", p.OffMicros, p.SparkFrequency())
	fmt.Printf("  depth     %s mm\n", p.TargetDepth())
	fmt.Printf("  position  %d steps (%d pulses)\n", report.Position, report.Steps)

	if report.Reloaded != p {
		fmt.Printf("Reload mismatch: flash holds %+v\n", report.Reloaded)
		os.Exit(2)
	}
	fmt.Println("Reload matches final parameters.")
}
