package badge

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// IDLength is the number of raw bytes in a badge identifier frame
const IDLength = 4

var terminator = []byte("\r\n")

// FrameLengthError reports a terminated frame that does not carry exactly IDLength bytes
type FrameLengthError struct {
	Length int
}

func (e *FrameLengthError) Error() string {
	return fmt.Sprintf("invalid frame length: %d bytes", e.Length)
}

// Framer accumulates serial bytes and cuts them into CRLF-terminated frames.
// It is not safe for concurrent use.
type Framer struct {
	buf []byte
}

// Feed appends data and returns one event per complete frame, in wire
// order. Frames of the wrong length carry a *FrameLengthError.
func (f *Framer) Feed(data []byte) []Event {
	f.buf = append(f.buf, data...)

	var events []Event
	for {
		end := bytes.Index(f.buf, terminator)
		if end < 0 {
			break
		}
		frame := f.buf[:end]
		if len(frame) == IDLength {
			events = append(events, Event{ID: strings.ToUpper(hex.EncodeToString(frame))})
		} else {
			events = append(events, Event{Err: &FrameLengthError{Length: len(frame)}})
		}
		f.buf = f.buf[end+len(terminator):]
	}

	if len(f.buf) == 0 {
		f.buf = nil
	}
	return events
}

// Pending returns the number of buffered bytes not yet terminated
func (f *Framer) Pending() int {
	return len(f.buf)
}
