package knx_client

import (
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/vapourismo/knx-go/knx"
	"github.com/vapourismo/knx-go/knx/knxnet"

	"knxtools/config"
)

var (
	ErrScanInProgress = errors.New("scan already running")
	ErrSendInProgress = errors.New("send already running")
)

// ConnectionRouting sends through multicast routing instead of a tunnel
const ConnectionRouting = "routing"

const defaultDiscoveryAddress = "224.0.23.12:3671"

type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// groupConn is the part of knx.GroupTunnel / knx.GroupRouter the client uses
type groupConn interface {
	Send(event knx.GroupEvent) error
	Close()
}

type discoverFunc func(ifi *net.Interface, multicastAddr string, timeout time.Duration) ([]*knxnet.SearchRes, error)

// Client sends group writes to a KNXnet/IP gateway and discovers gateways
type Client struct {
	Logger Logger

	mu  sync.Mutex
	cfg config.SenderConfig

	scanning atomic.Bool
	sending  atomic.Bool

	discover discoverFunc
	dial     func(gateway string) (groupConn, error)
}

func NewClient(cfg config.SenderConfig) *Client {
	c := &Client{
		Logger:   nopLogger{},
		cfg:      cfg,
		discover: knx.DiscoverOnInterface,
	}
	c.dial = c.open
	return c
}

func (c *Client) UpdateConfig(cfg config.SenderConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cfg = cfg
}

func (c *Client) config() config.SenderConfig {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cfg
}

// Scanning reports whether a scan is running
func (c *Client) Scanning() bool {
	return c.scanning.Load()
}

// Sending reports whether a send is running
func (c *Client) Sending() bool {
	return c.sending.Load()
}

// Scan searches for gateways on the named interface, or on the system
// default multicast interface when name is empty. It blocks for the
// configured scan timeout.
func (c *Client) Scan(ifaceName string) ([]Gateway, error) {
	if !c.scanning.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer c.scanning.Store(false)

	cfg := c.config()

	var ifi *net.Interface
	if ifaceName != "" {
		var err error
		ifi, err = net.InterfaceByName(ifaceName)
		if err != nil {
			return nil, errors.Wrapf(err, "interface %s", ifaceName)
		}
	}

	timeout := time.Duration(cfg.ScanTimeout) * time.Second
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	c.Logger.Debugf("Searching for gateways on %q for %s", ifaceName, timeout)
	results, err := c.discover(ifi, defaultDiscoveryAddress, timeout)
	if err != nil {
		return nil, errors.Wrap(err, "gateway discovery")
	}

	seen := make(map[string]bool)
	gateways := make([]Gateway, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}
		gw := Gateway{
			Name: strings.TrimRight(res.DescriptionB.DeviceHardware.FriendlyName, "\x00 "),
			IP:   net.IP(res.Control.Address[:]).String(),
			Port: int(res.Control.Port),
		}
		if seen[gw.Addr()] {
			continue
		}
		seen[gw.Addr()] = true
		gateways = append(gateways, gw)
	}

	c.Logger.Infof("Found %d gateway(s)", len(gateways))
	return gateways, nil
}

// Send validates the input, connects, writes value to groupAddr once and
// disconnects again.
func (c *Client) Send(ip, port, groupAddr, value string) (Message, error) {
	if err := ValidateIP(ip); err != nil {
		return Message{}, err
	}
	p, err := ValidatePort(port)
	if err != nil {
		return Message{}, err
	}
	dest, err := ParseGroupAddress(groupAddr)
	if err != nil {
		return Message{}, err
	}
	val, err := ParseValue(value)
	if err != nil {
		return Message{}, err
	}

	if !c.sending.CompareAndSwap(false, true) {
		return Message{}, ErrSendInProgress
	}
	defer c.sending.Store(false)

	msg := Message{
		Gateway:     net.JoinHostPort(strings.TrimSpace(ip), strconv.Itoa(p)),
		Destination: dest,
		Value:       val,
	}

	conn, err := c.dial(msg.Gateway)
	if err != nil {
		return Message{}, errors.Wrapf(err, "connect %s", msg.Gateway)
	}
	defer conn.Close()

	err = conn.Send(knx.GroupEvent{
		Command:     knx.GroupWrite,
		Destination: msg.Destination,
		Data:        msg.Value.Pack(),
	})
	if err != nil {
		return Message{}, errors.Wrapf(err, "send to %s", msg.Destination)
	}

	c.Logger.Infof("Sent %s to %s via %s", msg.Value, msg.Destination, msg.Gateway)
	return msg, nil
}

// open connects using the configured connection type
func (c *Client) open(gateway string) (groupConn, error) {
	cfg := c.config()

	if cfg.ConnectionType == ConnectionRouting {
		addr := cfg.MulticastAddress
		if addr == "" {
			addr = defaultDiscoveryAddress
		}
		router, err := knx.NewGroupRouter(addr, knx.DefaultRouterConfig)
		if err != nil {
			return nil, err
		}
		return &router, nil
	}

	tc := knx.DefaultTunnelConfig
	if cfg.ResendInterval > 0 {
		tc.ResendInterval = time.Duration(cfg.ResendInterval) * time.Millisecond
	}
	if cfg.HeartbeatInterval > 0 {
		tc.HeartbeatInterval = time.Duration(cfg.HeartbeatInterval) * time.Millisecond
	}
	if cfg.ResponseTimeout > 0 {
		tc.ResponseTimeout = time.Duration(cfg.ResponseTimeout) * time.Millisecond
	}

	tunnel, err := knx.NewGroupTunnel(gateway, tc)
	if err != nil {
		return nil, err
	}
	return &tunnel, nil
}

// Interfaces lists non-loopback interfaces that are up and carry an IPv4 address
func Interfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, errors.Wrap(err, "list interfaces")
	}

	var out []Interface
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := ifi.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}
			out = append(out, Interface{Name: ifi.Name, Addr: ipnet.IP.String()})
			break
		}
	}
	return out, nil
}
