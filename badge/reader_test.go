package badge

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort hands out queued chunks and reports a read timeout (io.EOF) when
// nothing is queued, like a serial port opened with a read timeout.
type fakePort struct {
	mu     sync.Mutex
	chunks [][]byte
	err    error
	closed bool
}

func (p *fakePort) push(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks = append(p.chunks, b)
}

func (p *fakePort) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("port closed")
	}
	if len(p.chunks) > 0 {
		n := copy(b, p.chunks[0])
		p.chunks[0] = p.chunks[0][n:]
		if len(p.chunks[0]) == 0 {
			p.chunks = p.chunks[1:]
		}
		return n, nil
	}
	if p.err != nil {
		return 0, p.err
	}
	return 0, io.EOF
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func nextEvent(t *testing.T, r *Reader) Event {
	t.Helper()
	select {
	case ev, ok := <-r.Events():
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestReaderDecodesFrames(t *testing.T) {
	port := &fakePort{}
	r := NewReader(port, time.Millisecond, nil)
	defer r.Close()

	port.push([]byte{0xAA, 0xBB})
	port.push([]byte{0xCC, 0xDD, '\r', '\n'})

	ev := nextEvent(t, r)
	assert.Equal(t, "AABBCCDD", ev.ID)
	assert.NoError(t, ev.Err)
}

func TestReaderReportsDataErrorAndContinues(t *testing.T) {
	port := &fakePort{}
	r := NewReader(port, time.Millisecond, nil)
	defer r.Close()

	port.push([]byte{0x01, 0x02, 0x03, '\r', '\n', 0x01, 0x02, 0x03, 0x04, '\r', '\n'})

	ev := nextEvent(t, r)
	var lenErr *FrameLengthError
	require.True(t, errors.As(ev.Err, &lenErr))
	assert.Equal(t, 3, lenErr.Length)
	assert.False(t, ev.Fatal)

	ev = nextEvent(t, r)
	assert.Equal(t, "01020304", ev.ID)
}

func TestReaderStopsOnPortError(t *testing.T) {
	port := &fakePort{}
	r := NewReader(port, time.Millisecond, nil)

	port.fail(errors.New("device unplugged"))

	ev := nextEvent(t, r)
	assert.True(t, ev.Fatal)
	assert.Contains(t, ev.Err.Error(), "device unplugged")

	_, ok := <-r.Events()
	assert.False(t, ok)
	require.NoError(t, r.Close())
	assert.True(t, port.isClosed())
}

func TestReaderCloseJoinsLoop(t *testing.T) {
	port := &fakePort{}
	r := NewReader(port, time.Millisecond, nil)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.True(t, port.isClosed())

	select {
	case <-r.done:
	default:
		t.Fatal("read loop still running after Close")
	}
}

func TestOpenRejectsMissingPort(t *testing.T) {
	_, err := Open("", 115200, 10*time.Millisecond, nil)
	assert.Error(t, err)

	_, err = Open("/dev/ttyUSB0", 0, 10*time.Millisecond, nil)
	assert.Error(t, err)
}
