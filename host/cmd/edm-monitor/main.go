// Command edm-monitor prints the controller's log lines from its USB port.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"sparkedm/host/serial"
)

var (
	device = flag.String("port", "/dev/ttyACM0", "Serial device path")
	baud   = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	only   = flag.String("only", "", "Comma-separated subsystems to show, e.g. SETTINGS,RT")
	stamp  = flag.Bool("timestamps", true, "Prefix lines with the host time")
)

func main() {
	flag.Parse()

	filter := make(map[string]bool)
	for _, s := range strings.Split(*only, ",") {
		if s = strings.TrimSpace(s); s != "" {
			filter[strings.ToUpper(s)] = true
		}
	}

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	port, err := serial.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	fmt.Fprintf(os.Stderr, "Listening on %s\n", *device)
	err = serial.ReadLines(port, func(l serial.Line) {
		if len(filter) > 0 && !filter[l.Subsystem] {
			return
		}
		prefix := ""
		if *stamp {
			prefix = time.Now().Format("15:04:05.000") + " "
		}
		if l.Subsystem != "" {
			fmt.Printf("%s%-8s %s\n", prefix, l.Subsystem, l.Text)
		} else {
			fmt.Printf("%s%s\n", prefix, l.Text)
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
