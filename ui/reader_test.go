package ui

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knxtools/badge"
	"knxtools/config"
)

// idlePort never delivers data, like a port hitting its read timeout
type idlePort struct{}

func (idlePort) Read([]byte) (int, error) { return 0, io.EOF }
func (idlePort) Close() error             { return nil }

func newTestReaderApp(t *testing.T) *ReaderApp {
	cfg := config.NewConfig()
	cfg.Reader.LogFile = filepath.Join(t.TempDir(), "badges.csv")
	return NewReaderApp(cfg, LoggerLevelInfo)
}

func attachReader(t *testing.T, a *ReaderApp) *badge.Reader {
	r := badge.NewReader(idlePort{}, time.Millisecond, nil)
	t.Cleanup(func() { r.Close() })
	a.reader = r
	return r
}

func TestReaderAppAddsBadgeRow(t *testing.T) {
	a := newTestReaderApp(t)
	r := attachReader(t, a)

	a.handleEvent(r, badge.Event{ID: "AABBCCDD"})

	require.Equal(t, 2, a.dataTable.GetRowCount())
	assert.Equal(t, "AABBCCDD", a.dataTable.GetCell(1, 3).Text)
	assert.Equal(t, 1, a.session.Seen())
	assert.Contains(t, a.statusBar.GetText(true), "Badges: 1")
}

func TestReaderAppDuplicateWarnsWithoutRow(t *testing.T) {
	a := newTestReaderApp(t)
	r := attachReader(t, a)

	a.handleEvent(r, badge.Event{ID: "AABBCCDD"})
	a.handleEvent(r, badge.Event{ID: "AABBCCDD"})

	assert.Equal(t, 2, a.dataTable.GetRowCount())
	assert.Equal(t, 1, a.session.Seen())
	assert.True(t, a.pages.HasPage("message:Duplicate Badge"))
}

func TestReaderAppDataErrorKeepsConnection(t *testing.T) {
	a := newTestReaderApp(t)
	r := attachReader(t, a)

	a.handleEvent(r, badge.Event{Err: &badge.FrameLengthError{Length: 1}})

	assert.True(t, a.pages.HasPage("message:Data Error"))
	assert.Equal(t, 1, a.dataTable.GetRowCount())
	assert.Equal(t, r, a.reader)
}

func TestReaderAppIgnoresStaleReader(t *testing.T) {
	a := newTestReaderApp(t)
	stale := attachReader(t, a)
	attachReader(t, a)

	a.handleEvent(stale, badge.Event{ID: "AABBCCDD"})
	a.handleEvent(stale, badge.Event{Err: errors.New("read failed"), Fatal: true})

	assert.Equal(t, 1, a.dataTable.GetRowCount())
	assert.Zero(t, a.session.Seen())
	assert.NotNil(t, a.reader)
	assert.False(t, a.pages.HasPage("message:Serial Error"))
}

func TestReaderAppDisconnectResetsSession(t *testing.T) {
	a := newTestReaderApp(t)
	r := attachReader(t, a)

	a.toggleRecording()
	require.True(t, a.session.Recording())
	assert.Equal(t, "Stop Recording", a.recordForm.GetButton(0).GetLabel())

	a.handleEvent(r, badge.Event{ID: "AABBCCDD"})
	require.Equal(t, 1, a.session.Seen())

	a.toggleConnection()

	assert.Nil(t, a.reader)
	assert.False(t, a.session.Recording())
	assert.Zero(t, a.session.Seen())
	assert.Equal(t, "Connect", a.serialForm.GetButton(connectButton).GetLabel())
	assert.Equal(t, "Start Recording", a.recordForm.GetButton(0).GetLabel())
	assert.FileExists(t, a.config.Reader.LogFile)
}

func TestReaderAppFatalErrorDisconnects(t *testing.T) {
	a := newTestReaderApp(t)
	r := attachReader(t, a)

	a.handleEvent(r, badge.Event{ID: "AABBCCDD"})
	a.handleEvent(r, badge.Event{Err: errors.New("device removed"), Fatal: true})

	assert.Nil(t, a.reader)
	assert.Zero(t, a.session.Seen())
	assert.True(t, a.pages.HasPage("message:Serial Error"))
	assert.Contains(t, a.statusBar.GetText(true), "Disconnected")
}

func TestReaderAppCtrlCStopsCleanly(t *testing.T) {
	a := newTestReaderApp(t)
	attachReader(t, a)
	a.toggleRecording()
	require.True(t, a.session.Recording())

	capture := a.app.GetInputCapture()
	assert.Nil(t, capture(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl)))

	assert.Nil(t, a.reader)
	assert.False(t, a.session.Recording())
}
