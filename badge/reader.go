package badge

import (
	"io"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

// closeTimeout bounds how long Close waits for the read loop to finish
const closeTimeout = time.Second

var portPatterns = []string{
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
	"/dev/ttyS*",
	"/dev/tty.usb*",
	"/dev/cu.usb*",
}

// ListPorts returns the serial device nodes present on this machine
func ListPorts() []string {
	var ports []string
	for _, pattern := range portPatterns {
		matches, _ := filepath.Glob(pattern)
		ports = append(ports, matches...)
	}
	sort.Strings(ports)
	return ports
}

type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// Event is one result of the read loop: either a badge ID or an error.
// Fatal is set when the port failed and the loop has stopped.
type Event struct {
	ID    string
	Err   error
	Fatal bool
}

// Reader polls a serial port on its own goroutine and publishes decoded
// badge IDs on Events.
type Reader struct {
	Logger Logger

	port   io.ReadCloser
	poll   time.Duration
	events chan Event

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Open opens a serial port at 8N1 and starts reading from it
func Open(name string, baud int, poll time.Duration, logger Logger) (*Reader, error) {
	if name == "" {
		return nil, errors.New("no serial port selected")
	}
	if baud <= 0 {
		return nil, errors.Errorf("invalid baud rate %d", baud)
	}

	c := &serial.Config{
		Name:        name,
		Baud:        baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: poll,
	}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", name)
	}

	return NewReader(port, poll, logger), nil
}

// NewReader starts the read loop on an already opened port
func NewReader(port io.ReadCloser, poll time.Duration, logger Logger) *Reader {
	if logger == nil {
		logger = nopLogger{}
	}
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	r := &Reader{
		Logger: logger,
		port:   port,
		poll:   poll,
		events: make(chan Event, 64),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	go r.run()
	return r
}

// Events is closed once the read loop has exited
func (r *Reader) Events() <-chan Event {
	return r.events
}

// Close stops the read loop, waits for it for at most closeTimeout and
// closes the port.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		close(r.stop)

		select {
		case <-r.done:
		case <-time.After(closeTimeout):
			r.Logger.Errorf("Serial read loop did not stop within %s", closeTimeout)
		}

		r.closeErr = r.port.Close()
	})
	return r.closeErr
}

func (r *Reader) stopping() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

func (r *Reader) emit(ev Event) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.stop:
		return false
	}
}

func (r *Reader) run() {
	defer close(r.done)
	defer close(r.events)

	var framer Framer
	buf := make([]byte, 256)
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for !r.stopping() {
		n, err := r.port.Read(buf)
		if n > 0 {
			r.Logger.Debugf("Serial read %d bytes: % X", n, buf[:n])
			for _, ev := range framer.Feed(buf[:n]) {
				if !r.emit(ev) {
					return
				}
			}
		}

		// a read timeout surfaces as io.EOF on a file-backed port
		if err != nil && err != io.EOF {
			if r.stopping() {
				return
			}
			r.emit(Event{Err: errors.Wrap(err, "serial read"), Fatal: true})
			return
		}

		if n == 0 {
			select {
			case <-ticker.C:
			case <-r.stop:
				return
			}
		}
	}
}
