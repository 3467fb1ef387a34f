// Package hostlink is the host-side serial link used to push and pull
// saved profile.Store files to and from the device over USB, built on
// github.com/tarm/serial.
package hostlink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/tarm/serial"
)

const baudRate = 115200

// Open opens the first responsive serial device among the platform's
// usual candidates, or dev itself if non-empty.
func Open(dev string) (io.ReadWriteCloser, error) {
	var devices []string
	if dev != "" {
		devices = append(devices, dev)
	} else {
		switch runtime.GOOS {
		case "windows":
			devices = append(devices, "COM3", "COM4")
		case "linux":
			devices = append(devices, "/dev/ttyACM0", "/dev/ttyUSB0")
		case "darwin":
			devices = append(devices, "/dev/tty.usbmodem0")
		}
	}
	if len(devices) == 0 {
		return nil, errors.New("hostlink: no device specified")
	}
	var firstErr error
	for _, d := range devices {
		c := &serial.Config{Name: d, Baud: baudRate}
		s, err := serial.OpenPort(c)
		if err == nil {
			return s, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("hostlink: %w", firstErr)
}

// wire framing: the profile record's lines as they are, terminated by a
// bare "." on its own line.
const endOfRecord = "."

// PullProfile reads a complete profile text record from the link,
// terminated by a line containing only ".".
func PullProfile(rw io.ReadWriter) ([]byte, error) {
	var out []byte
	sc := bufio.NewScanner(rw)
	for sc.Scan() {
		line := sc.Text()
		if line == endOfRecord {
			return out, nil
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("hostlink: %w", err)
	}
	return nil, fmt.Errorf("hostlink: %w", io.ErrUnexpectedEOF)
}

// PushProfile writes record's bytes followed by the end-of-record
// marker.
func PushProfile(rw io.ReadWriter, record []byte) error {
	if _, err := rw.Write(record); err != nil {
		return fmt.Errorf("hostlink: %w", err)
	}
	end := endOfRecord + "\n"
	if len(record) > 0 && record[len(record)-1] != '\n' {
		end = "\n" + end
	}
	if _, err := io.WriteString(rw, end); err != nil {
		return fmt.Errorf("hostlink: %w", err)
	}
	return nil
}
