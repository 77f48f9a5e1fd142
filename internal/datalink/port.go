package datalink

import (
	"io"
)

// SerialPorter is the minimal port surface the mux needs. Real serial
// ports, replayed captures and test ports all satisfy it.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}
