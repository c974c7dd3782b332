package badge

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramerSingleFrame(t *testing.T) {
	var f Framer
	events := f.Feed([]byte{0xAA, 0xBB, 0xCC, 0xDD, '\r', '\n'})
	assert.Equal(t, []Event{{ID: "AABBCCDD"}}, events)
	assert.Zero(t, f.Pending())
}

func TestFramerSplitAcrossReads(t *testing.T) {
	var f Framer
	assert.Empty(t, f.Feed([]byte{0x01, 0x02}))
	assert.Equal(t, 2, f.Pending())

	assert.Empty(t, f.Feed([]byte{0x03, 0x04, '\r'}))

	events := f.Feed([]byte{'\n', 0x0A})
	assert.Equal(t, []Event{{ID: "01020304"}}, events)
	assert.Equal(t, 1, f.Pending())
}

func TestFramerKeepsWireOrder(t *testing.T) {
	var f Framer
	data := []byte{
		0xDE, 0xAD, 0xBE, 0xEF, '\r', '\n',
		0x01, 0x02, '\r', '\n',
		0x00, 0x00, 0x00, 0x0F, '\r', '\n',
	}
	events := f.Feed(data)
	require.Len(t, events, 3)

	assert.Equal(t, "DEADBEEF", events[0].ID)
	assert.NoError(t, events[0].Err)

	var lenErr *FrameLengthError
	assert.Empty(t, events[1].ID)
	require.True(t, errors.As(events[1].Err, &lenErr))
	assert.Equal(t, 2, lenErr.Length)

	assert.Equal(t, "0000000F", events[2].ID)
	assert.NoError(t, events[2].Err)
}

func TestFramerBadFrameBeforeGoodFrame(t *testing.T) {
	var f Framer
	events := f.Feed([]byte{0x01, '\r', '\n', 0xAA, 0xBB, 0xCC, 0xDD, '\r', '\n'})
	require.Len(t, events, 2)
	assert.Error(t, events[0].Err)
	assert.Equal(t, "AABBCCDD", events[1].ID)
}

func TestFramerEmptyFrame(t *testing.T) {
	var f Framer
	events := f.Feed([]byte("\r\n"))
	require.Len(t, events, 1)
	assert.Empty(t, events[0].ID)
	assert.EqualError(t, events[0].Err, "invalid frame length: 0 bytes")
}
