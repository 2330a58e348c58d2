// Package serial reads the controller's log over its USB CDC port.
package serial

import (
	"bufio"
	"io"
	"strings"
)

// Port is an open serial device. Tests substitute any io.ReadWriteCloser.
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC ignores it)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the settings the firmware's log port uses
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 0,
	}
}

// Line is one log line split into its subsystem prefix and message.
type Line struct {
	Subsystem string // e.g. "SETTINGS", empty when the line has no prefix
	Text      string
}

// ParseLine splits "[SUBSYSTEM] text".
func ParseLine(s string) Line {
	s = strings.TrimRight(s, "\r\n")
	if strings.HasPrefix(s, "[") {
		if end := strings.IndexByte(s, ']'); end > 1 {
			return Line{Subsystem: s[1:end], Text: strings.TrimSpace(s[end+1:])}
		}
	}
	return Line{Text: s}
}

// ReadLines calls fn for every complete line read from r until r fails.
// io.EOF ends the scan without error.
func ReadLines(r io.Reader, fn func(Line)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fn(ParseLine(scanner.Text()))
	}
	return scanner.Err()
}
