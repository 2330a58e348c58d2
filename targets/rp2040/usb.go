//go:build rp2040

package main

import (
	"machine"
)

// InitUSB configures the USB CDC serial port used for log output
func InitUSB() {
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}
}

// USBPrintln writes one log line. Output is dropped while no host is
// attached.
func USBPrintln(s string) {
	machine.Serial.Write([]byte(s))
	machine.Serial.Write([]byte("\r\n"))
}
