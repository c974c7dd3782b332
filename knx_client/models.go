package knx_client

import (
	"fmt"
	"net"
	"strconv"

	"github.com/vapourismo/knx-go/knx/cemi"
	"github.com/vapourismo/knx-go/knx/dpt"
)

// Gateway describes a KNXnet/IP gateway found by a scan
type Gateway struct {
	Name string
	IP   string
	Port int
}

// Addr returns the gateway as host:port
func (g Gateway) Addr() string {
	return net.JoinHostPort(g.IP, strconv.Itoa(g.Port))
}

func (g Gateway) String() string {
	if g.Name == "" {
		return g.Addr()
	}
	return fmt.Sprintf("%s (%s)", g.Name, g.Addr())
}

// Interface is a local network interface usable for discovery
type Interface struct {
	Name string
	Addr string
}

func (i Interface) String() string {
	return fmt.Sprintf("%s %s", i.Name, i.Addr)
}

// ValueKind selects how a Value is encoded on the bus
type ValueKind int

const (
	// Binary is a 1-bit switch value (DPT 1.001)
	Binary ValueKind = iota
	// Byte is an unsigned 8-bit value (DPT 5.004)
	Byte
)

// Value is the payload of an outgoing group write
type Value struct {
	Kind ValueKind
	Raw  uint8
}

// Pack encodes the value as application data
func (v Value) Pack() []byte {
	if v.Kind == Byte {
		return dpt.DPT_5004(v.Raw).Pack()
	}
	return dpt.DPT_1001(v.Raw != 0).Pack()
}

func (v Value) String() string {
	if v.Kind == Byte {
		return strconv.Itoa(int(v.Raw))
	}
	if v.Raw != 0 {
		return "ON"
	}
	return "OFF"
}

// Message is one group write telegram as handed to the connection
type Message struct {
	Gateway     string
	Destination cemi.GroupAddr
	Value       Value
}
