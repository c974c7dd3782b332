package ui

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
	"github.com/rivo/tview"

	"knxtools/badge"
	"knxtools/config"
)

// button indexes in the serial form
const (
	connectButton = iota
	refreshButton
	accessButton
)

// ReaderApp is the badge reader UI
type ReaderApp struct {
	app        *tview.Application
	config     *config.Config
	logger     *Logger
	pages      *tview.Pages
	serialForm *tview.Form
	recordForm *tview.Form
	dataTable  *tview.Table
	logView    *tview.TextView
	statusBar  *tview.TextView

	portDrop     *tview.DropDown
	baudField    *tview.InputField
	fileField    *tview.InputField
	encodingDrop *tview.DropDown

	ports   []string
	reader  *badge.Reader
	session *badge.Session
	status  string

	stopOnce sync.Once
}

var tableHeaders = []string{"Time", "Name", "Employee ID", "Badge ID", "Access"}

// NewReaderApp creates the badge reader UI
func NewReaderApp(cfg *config.Config, level LoggerLevel) *ReaderApp {
	a := &ReaderApp{
		app:     tview.NewApplication(),
		config:  cfg,
		session: badge.NewSession(),
		status:  "Ready",
	}

	a.setupUI(level)
	return a
}

func (a *ReaderApp) setupUI(level LoggerLevel) {
	a.pages = tview.NewPages()

	a.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetChangedFunc(func() {
			a.app.Draw()
		})
	a.logView.SetBorder(true).SetTitle("Logs")

	a.logger = NewLogger(a.logView, level)
	a.logger.Infof("Badge reader started")

	a.setupSerialForm()
	a.setupRecordForm()
	a.setupDataTable()

	a.statusBar = tview.NewTextView().
		SetDynamicColors(true)
	a.updateStatusBar()

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.serialForm, 5, 1, true).
		AddItem(a.recordForm, 5, 1, false).
		AddItem(a.dataTable, 0, 10, false).
		AddItem(a.logView, 6, 1, false).
		AddItem(a.statusBar, 1, 1, false)

	a.pages.AddPage("main", flex, true, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF1:
			a.app.SetFocus(a.serialForm)
			return nil
		case tcell.KeyF2:
			a.app.SetFocus(a.recordForm)
			return nil
		case tcell.KeyF3:
			a.app.SetFocus(a.dataTable)
			return nil
		case tcell.KeyEscape:
			if a.pages.GetPageCount() > 1 {
				return event
			}
			a.stop()
			return nil
		case tcell.KeyCtrlC:
			a.stop()
			return nil
		}
		return event
	})
}

func (a *ReaderApp) setupSerialForm() {
	cfg := a.config.Reader

	a.serialForm = tview.NewForm().SetHorizontal(true)
	a.serialForm.SetBorder(true).SetTitle("Serial Port")

	a.portDrop = tview.NewDropDown().SetLabel("Port").SetFieldWidth(16)
	a.refreshPorts()

	a.baudField = tview.NewInputField().SetLabel("Baud").SetText(strconv.Itoa(cfg.Baud)).SetFieldWidth(8).
		SetAcceptanceFunc(tview.InputFieldInteger)

	a.serialForm.AddFormItem(a.portDrop).AddFormItem(a.baudField)
	a.serialForm.AddButton("Connect", a.toggleConnection)
	a.serialForm.AddButton("Refresh", a.refreshPorts)
	a.serialForm.AddButton("Access: "+badge.AccessLabel(a.session.Access()), a.toggleAccess)
}

func (a *ReaderApp) setupRecordForm() {
	cfg := a.config.Reader

	a.recordForm = tview.NewForm().SetHorizontal(true)
	a.recordForm.SetBorder(true).SetTitle("Recording")

	a.fileField = tview.NewInputField().SetLabel("File").SetText(cfg.LogFile).SetFieldWidth(30)

	options := make([]string, len(badge.Encodings))
	current := 0
	for i, enc := range badge.Encodings {
		options[i] = string(enc)
		if string(enc) == cfg.Encoding {
			current = i
		}
	}
	a.encodingDrop = tview.NewDropDown().SetLabel("Encoding").SetOptions(options, nil)
	a.encodingDrop.SetCurrentOption(current)

	a.recordForm.AddFormItem(a.fileField).AddFormItem(a.encodingDrop)
	a.recordForm.AddButton("Start Recording", a.toggleRecording)
	a.recordForm.AddButton("Save Config", a.saveConfig)
}

func (a *ReaderApp) setupDataTable() {
	a.dataTable = tview.NewTable().SetBorders(false)
	a.dataTable.SetBorder(true).SetTitle("Badges")
	a.dataTable.SetFixed(1, 0)
	a.dataTable.SetSelectable(true, false)

	for col, h := range tableHeaders {
		a.dataTable.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false).
			SetExpansion(1))
	}
}

func (a *ReaderApp) refreshPorts() {
	a.ports = badge.ListPorts()
	if cfgPort := a.config.Reader.Port; cfgPort != "" && !contains(a.ports, cfgPort) {
		a.ports = append([]string{cfgPort}, a.ports...)
	}

	current := 0
	for i, p := range a.ports {
		if p == a.config.Reader.Port {
			current = i
		}
	}
	if len(a.ports) == 0 {
		a.portDrop.SetOptions([]string{"(no ports)"}, nil)
	} else {
		a.portDrop.SetOptions(a.ports, nil)
	}
	a.portDrop.SetCurrentOption(current)
	a.logger.Debugf("Found %d serial port(s)", len(a.ports))
}

func (a *ReaderApp) selectedPort() string {
	index, _ := a.portDrop.GetCurrentOption()
	if index < 0 || index >= len(a.ports) {
		return ""
	}
	return a.ports[index]
}

func (a *ReaderApp) toggleConnection() {
	if a.reader != nil {
		a.disconnect()
	} else {
		a.connect()
	}
	a.updateButtons()
	a.updateStatusBar()
}

func (a *ReaderApp) connect() {
	port := a.selectedPort()
	if port == "" {
		showMessage(a.pages, "Error", "Select a serial port")
		return
	}
	baud, err := strconv.Atoi(a.baudField.GetText())
	if err != nil || baud <= 0 {
		showMessage(a.pages, "Error", fmt.Sprintf("Invalid baud rate %q", a.baudField.GetText()))
		return
	}

	poll := time.Duration(a.config.Reader.PollInterval) * time.Millisecond
	r, err := badge.Open(port, baud, poll, a.logger)
	if err != nil {
		a.logger.Errorf("Error connecting: %v", err)
		showMessage(a.pages, "Connection Error", err.Error())
		return
	}

	a.reader = r
	a.config.Reader.Port = port
	a.config.Reader.Baud = baud
	a.status = fmt.Sprintf("Connected %s@%d", port, baud)
	a.logger.Infof("Connected to %s at %d baud", port, baud)

	go a.pump(r)
}

// disconnect closes the port, stops recording and forgets the badges seen
func (a *ReaderApp) disconnect() {
	if a.reader == nil {
		return
	}
	r := a.reader
	a.reader = nil

	if err := r.Close(); err != nil {
		a.logger.Errorf("Error closing port: %v", err)
	}
	a.stopRecording()
	a.session.Reset()
	a.status = "Disconnected"
	a.logger.Infof("Disconnected")
}

// pump forwards reader events to the UI goroutine, in order
func (a *ReaderApp) pump(r *badge.Reader) {
	for ev := range r.Events() {
		ev := ev
		a.app.QueueUpdateDraw(func() {
			a.handleEvent(r, ev)
		})
	}
}

func (a *ReaderApp) handleEvent(r *badge.Reader, ev badge.Event) {
	if r != a.reader {
		return
	}
	defer a.updateStatusBar()

	if ev.Err != nil {
		if ev.Fatal {
			a.logger.Errorf("Serial error: %v", ev.Err)
			showMessage(a.pages, "Serial Error", ev.Err.Error())
			a.disconnect()
			a.updateButtons()
			return
		}
		a.logger.Errorf("Data error: %v", ev.Err)
		showMessage(a.pages, "Data Error", ev.Err.Error())
		return
	}

	rec, err := a.session.Accept(ev.ID, time.Now())
	if errors.Is(err, badge.ErrDuplicate) {
		a.status = "Duplicate badge: " + ev.ID
		a.logger.Errorf("Duplicate badge %s ignored", ev.ID)
		showMessage(a.pages, "Duplicate Badge", fmt.Sprintf("Badge %s is already registered and was not added", ev.ID))
		return
	}

	a.addRow(rec)
	a.status = "Added badge: " + ev.ID
	a.logger.Infof("Badge %s accepted", ev.ID)

	if err != nil {
		a.logger.Errorf("Error writing log: %v", err)
		showMessage(a.pages, "File Error", err.Error())
	}
}

func (a *ReaderApp) addRow(rec badge.Record) {
	row := a.dataTable.GetRowCount()
	values := []string{
		rec.Time.Format(badge.TimeLayout),
		rec.Name,
		rec.EmployeeID,
		rec.BadgeID,
		badge.AccessLabel(rec.Access),
	}
	for col, v := range values {
		a.dataTable.SetCell(row, col, tview.NewTableCell(v).SetExpansion(1))
	}
	a.dataTable.ScrollToEnd()
}

func (a *ReaderApp) toggleAccess() {
	if a.reader == nil {
		a.logger.Infof("Connect before changing the access level")
		return
	}
	access := a.session.ToggleAccess()
	a.status = "Access level: " + badge.AccessLabel(access)
	a.logger.Infof("Access level switched to %s", badge.AccessLabel(access))
	a.updateButtons()
	a.updateStatusBar()
}

func (a *ReaderApp) toggleRecording() {
	if a.session.Recording() {
		a.stopRecording()
	} else {
		a.startRecording()
	}
	a.updateButtons()
	a.updateStatusBar()
}

func (a *ReaderApp) startRecording() {
	if a.reader == nil {
		showMessage(a.pages, "Error", "Connect to a serial port first")
		return
	}
	path := a.fileField.GetText()
	if path == "" {
		showMessage(a.pages, "Error", "Enter a file name")
		return
	}
	_, encName := a.encodingDrop.GetCurrentOption()
	enc := badge.Encoding(encName)

	if err := a.session.StartLog(path, enc); err != nil {
		a.logger.Errorf("Error opening log: %v", err)
		showMessage(a.pages, "File Error", err.Error())
		return
	}
	a.config.Reader.LogFile = path
	a.config.Reader.Encoding = encName
	a.status = fmt.Sprintf("Recording to %s (%s)", path, encName)
	a.logger.Infof("Recording to %s (%s)", path, encName)
}

func (a *ReaderApp) stopRecording() {
	if !a.session.Recording() {
		return
	}
	path := a.session.LogPath()
	if err := a.session.StopLog(); err != nil {
		a.logger.Errorf("Error closing log: %v", err)
		showMessage(a.pages, "File Error", err.Error())
	}
	a.status = "Recording stopped"
	a.logger.Infof("Stopped recording to %s", path)
}

func (a *ReaderApp) updateButtons() {
	connect := "Connect"
	if a.reader != nil {
		connect = "Disconnect"
	}
	a.serialForm.GetButton(connectButton).SetLabel(connect)
	a.serialForm.GetButton(accessButton).SetLabel("Access: " + badge.AccessLabel(a.session.Access()))

	record := "Start Recording"
	if a.session.Recording() {
		record = "Stop Recording"
	}
	a.recordForm.GetButton(0).SetLabel(record)
}

// updateStatusBar updates the status bar
func (a *ReaderApp) updateStatusBar() {
	state := "[red]Disconnected[white]"
	if a.reader != nil {
		state = "[green]Connected[white]"
	}
	recording := "off"
	if a.session.Recording() {
		recording = a.session.LogPath()
	}
	a.statusBar.Clear()
	fmt.Fprintf(a.statusBar, " %s | Badges: %d | Recording: %s | %s",
		state, a.session.Seen(), tview.Escape(recording), tview.Escape(a.status))
}

func (a *ReaderApp) saveConfig() {
	a.config.Reader.LogFile = a.fileField.GetText()
	_, a.config.Reader.Encoding = a.encodingDrop.GetCurrentOption()
	if port := a.selectedPort(); port != "" {
		a.config.Reader.Port = port
	}
	if baud, err := strconv.Atoi(a.baudField.GetText()); err == nil && baud > 0 {
		a.config.Reader.Baud = baud
	}

	if err := a.config.Save(); err != nil {
		a.logger.Errorf("Error saving configuration: %v", err)
		showMessage(a.pages, "Config Error", err.Error())
		return
	}
	a.logger.Infof("Configuration saved to %s", a.config.Path())
}

// Run starts the application
func (a *ReaderApp) Run() error {
	return a.app.SetRoot(a.pages, true).EnableMouse(true).Run()
}

// stop closes the port and the log before leaving the UI loop
func (a *ReaderApp) stop() {
	a.stopOnce.Do(func() {
		a.disconnect()
		a.stopRecording()
		a.app.Stop()
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
