package ui

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
	"github.com/rivo/tview"

	"knxtools/config"
	"knxtools/knx_client"
)

const defaultInterfaceOption = "(system default)"

type senderResultKind int

const (
	scanFinished senderResultKind = iota
	sendFinished
)

// senderResult carries the outcome of a background operation to the UI goroutine
type senderResult struct {
	kind     senderResultKind
	gateways []knx_client.Gateway
	message  knx_client.Message
	err      error
}

// SenderApp is the KNX command sender UI
type SenderApp struct {
	app       *tview.Application
	config    *config.Config
	client    *knx_client.Client
	logger    *Logger
	pages     *tview.Pages
	form      *tview.Form
	logView   *tview.TextView
	statusBar *tview.TextView

	interfaceDrop *tview.DropDown
	gatewayDrop   *tview.DropDown
	ipField       *tview.InputField
	portField     *tview.InputField
	groupField    *tview.InputField
	valueField    *tview.InputField

	interfaces []knx_client.Interface
	gateways   []knx_client.Gateway

	// set on the UI goroutine while a worker is outstanding
	scanning bool
	sending  bool

	results  chan senderResult
	quit     chan struct{}
	stopOnce sync.Once
}

// NewSenderApp creates the sender UI
func NewSenderApp(cfg *config.Config, level LoggerLevel) *SenderApp {
	a := &SenderApp{
		app:     tview.NewApplication(),
		config:  cfg,
		client:  knx_client.NewClient(cfg.Sender),
		results: make(chan senderResult, 4),
		quit:    make(chan struct{}),
	}

	a.setupUI(level)
	return a
}

func (a *SenderApp) setupUI(level LoggerLevel) {
	a.pages = tview.NewPages()

	a.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetChangedFunc(func() {
			a.app.Draw()
		})
	a.logView.SetBorder(true).SetTitle("Logs")

	a.logger = NewLogger(a.logView, level)
	a.client.Logger = a.logger
	a.logger.Infof("KNX sender started")

	a.setupForm()

	a.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.updateStatusBar()

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.form, 0, 3, true).
		AddItem(a.logView, 0, 2, false).
		AddItem(a.statusBar, 1, 1, false)

	a.pages.AddPage("main", flex, true, true)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF5:
			a.scan()
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

func (a *SenderApp) setupForm() {
	cfg := a.config.Sender

	a.form = tview.NewForm()
	a.form.SetBorder(true).SetTitle("KNX Command")

	a.interfaceDrop = tview.NewDropDown().SetLabel("Interface")
	a.loadInterfaces()

	a.gatewayDrop = tview.NewDropDown().SetLabel("Gateway")
	a.gatewayDrop.SetOptions([]string{"(scan to discover)"}, nil)
	a.gatewayDrop.SetCurrentOption(0)

	a.ipField = tview.NewInputField().SetLabel("Gateway IP").SetText(cfg.GatewayIP).SetFieldWidth(20)
	a.portField = tview.NewInputField().SetLabel("Port").SetText(strconv.Itoa(cfg.GatewayPort)).SetFieldWidth(8).
		SetAcceptanceFunc(tview.InputFieldInteger)
	a.groupField = tview.NewInputField().SetLabel("Group Address").SetText(cfg.GroupAddress).SetFieldWidth(14)
	a.valueField = tview.NewInputField().SetLabel("Value").SetText(cfg.Value).SetFieldWidth(8)

	a.form.AddFormItem(a.interfaceDrop).
		AddFormItem(a.gatewayDrop).
		AddFormItem(a.ipField).
		AddFormItem(a.portField).
		AddFormItem(a.groupField).
		AddFormItem(a.valueField)

	a.form.AddButton("Scan", a.scan)
	a.form.AddButton("Send", a.send)
	a.form.AddButton("Edit Config", a.showConfigDialog)
	a.form.AddButton("Quit", a.stop)
}

// loadInterfaces fills the interface drop-down and selects the configured one
func (a *SenderApp) loadInterfaces() {
	ifaces, err := knx_client.Interfaces()
	if err != nil {
		a.logger.Errorf("Error listing interfaces: %v", err)
	}
	a.interfaces = ifaces

	options := []string{defaultInterfaceOption}
	current := 0
	for i, ifi := range ifaces {
		options = append(options, ifi.String())
		if ifi.Name == a.config.Sender.Interface {
			current = i + 1
		}
	}
	a.interfaceDrop.SetOptions(options, nil)
	a.interfaceDrop.SetCurrentOption(current)
}

func (a *SenderApp) selectedInterface() string {
	index, _ := a.interfaceDrop.GetCurrentOption()
	if index <= 0 || index > len(a.interfaces) {
		return ""
	}
	return a.interfaces[index-1].Name
}

func (a *SenderApp) scan() {
	if a.scanning {
		a.logger.Infof("Scan already running")
		return
	}

	a.scanning = true
	name := a.selectedInterface()
	a.logger.Infof("Scanning for gateways on %s", displayInterface(name))
	go func() {
		gateways, err := a.client.Scan(name)
		a.post(senderResult{kind: scanFinished, gateways: gateways, err: err})
	}()
	a.updateStatusBar()
}

func (a *SenderApp) send() {
	if a.sending {
		a.logger.Infof("Send already running")
		return
	}
	a.sending = true

	ip := a.ipField.GetText()
	port := a.portField.GetText()
	group := a.groupField.GetText()
	value := a.valueField.GetText()

	a.logger.Infof("Sending %s to %s via %s:%s", value, group, ip, port)
	go func() {
		msg, err := a.client.Send(ip, port, group, value)
		a.post(senderResult{kind: sendFinished, message: msg, err: err})
	}()
	a.updateStatusBar()
}

func (a *SenderApp) post(res senderResult) {
	select {
	case a.results <- res:
	case <-a.quit:
	}
}

// dispatch is the single consumer of background results. Each result is
// applied on the UI goroutine.
func (a *SenderApp) dispatch() {
	for {
		select {
		case res := <-a.results:
			a.app.QueueUpdateDraw(func() {
				a.handleResult(res)
			})
		case <-a.quit:
			return
		}
	}
}

func (a *SenderApp) handleResult(res senderResult) {
	defer a.updateStatusBar()

	switch res.kind {
	case scanFinished:
		a.scanning = false
		if res.err != nil {
			a.logger.Errorf("Scan failed: %v", res.err)
			showMessage(a.pages, "Scan Error", res.err.Error())
			return
		}
		a.setGateways(res.gateways)
	case sendFinished:
		a.sending = false
		if res.err != nil {
			a.logger.Errorf("Send failed: %v", res.err)
			showMessage(a.pages, sendErrorTitle(res.err), res.err.Error())
			return
		}
		a.logger.Infof("Command sent: %s -> %s", res.message.Value, res.message.Destination)
		showMessage(a.pages, "Sent", fmt.Sprintf("%s written to %s", res.message.Value, res.message.Destination))
	}
}

func (a *SenderApp) setGateways(gateways []knx_client.Gateway) {
	a.gateways = gateways
	if len(gateways) == 0 {
		a.logger.Infof("No gateway found, enter the address manually")
		a.gatewayDrop.SetOptions([]string{"(none found)"}, nil)
		a.gatewayDrop.SetCurrentOption(0)
		return
	}

	options := make([]string, len(gateways))
	for i, gw := range gateways {
		options[i] = gw.String()
		a.logger.Infof("Gateway: %s", gw)
	}
	a.gatewayDrop.SetOptions(options, func(_ string, index int) {
		if index < 0 || index >= len(a.gateways) {
			return
		}
		gw := a.gateways[index]
		a.ipField.SetText(gw.IP)
		a.portField.SetText(strconv.Itoa(gw.Port))
	})
	a.gatewayDrop.SetCurrentOption(0)
}

// updateStatusBar updates the status bar
func (a *SenderApp) updateStatusBar() {
	scan := "[green]idle[white]"
	if a.scanning {
		scan = "[yellow]running[white]"
	}
	send := "[green]idle[white]"
	if a.sending {
		send = "[yellow]running[white]"
	}
	a.statusBar.Clear()
	fmt.Fprintf(a.statusBar, "Mode: %s | Scan: %s | Send: %s | F5 Scan | Esc Quit",
		a.config.Sender.ConnectionType, scan, send)
}

// storeForm copies the main form into the configuration
func (a *SenderApp) storeForm() {
	a.config.Sender.Interface = a.selectedInterface()
	a.config.Sender.GatewayIP = a.ipField.GetText()
	if port, err := knx_client.ValidatePort(a.portField.GetText()); err == nil {
		a.config.Sender.GatewayPort = port
	}
	a.config.Sender.GroupAddress = a.groupField.GetText()
	a.config.Sender.Value = a.valueField.GetText()
}

// saveConfig saves the current configuration
func (a *SenderApp) saveConfig() {
	a.storeForm()
	if err := a.config.Save(); err != nil {
		a.logger.Errorf("Error saving configuration: %v", err)
		showMessage(a.pages, "Config Error", err.Error())
		return
	}

	a.client.UpdateConfig(a.config.Sender)
	a.logger.Infof("Configuration saved to %s", a.config.Path())
	a.updateStatusBar()
}

func (a *SenderApp) showConfigDialog() {
	form := tview.NewForm()
	form.SetBorder(true).SetTitle("Config Settings")

	cfg := &a.config.Sender
	types := []string{"tunnel", knx_client.ConnectionRouting}
	current := 0
	if cfg.ConnectionType == knx_client.ConnectionRouting {
		current = 1
	}
	form.AddDropDown("Connection", types, current, func(option string, _ int) {
		cfg.ConnectionType = option
	})
	form.AddInputField("Multicast Address", cfg.MulticastAddress, 22, nil, func(text string) {
		cfg.MulticastAddress = text
	})
	addIntField(form, "Scan Timeout (s)", &cfg.ScanTimeout)
	addIntField(form, "Resend Interval (ms)", &cfg.ResendInterval)
	addIntField(form, "Heartbeat Interval (ms)", &cfg.HeartbeatInterval)
	addIntField(form, "Response Timeout (ms)", &cfg.ResponseTimeout)

	form.AddButton("Save", func() {
		a.saveConfig()
		closeDialog(a.pages)
	})
	form.AddButton("Cancel", func() {
		closeDialog(a.pages)
	})

	showDialog(a.pages, form, 60, 17)
}

// Run starts the application
func (a *SenderApp) Run() error {
	go a.dispatch()
	return a.app.SetRoot(a.pages, true).EnableMouse(true).Run()
}

func (a *SenderApp) stop() {
	a.stopOnce.Do(func() {
		close(a.quit)
		a.app.Stop()
	})
}

// addIntField adds an integer input bound to target
func addIntField(form *tview.Form, label string, target *int) {
	form.AddInputField(label, strconv.Itoa(*target), 10, tview.InputFieldInteger, func(text string) {
		if n, err := strconv.Atoi(text); err == nil {
			*target = n
		}
	})
}

func displayInterface(name string) string {
	if name == "" {
		return defaultInterfaceOption
	}
	return name
}

func sendErrorTitle(err error) string {
	switch {
	case errors.Is(err, knx_client.ErrInvalidIP),
		errors.Is(err, knx_client.ErrInvalidPort),
		errors.Is(err, knx_client.ErrInvalidGroupAddress),
		errors.Is(err, knx_client.ErrInvalidValue):
		return "Input Error"
	case errors.Is(err, knx_client.ErrSendInProgress):
		return "Busy"
	}
	return "Connection Error"
}
