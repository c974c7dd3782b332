package knx_client

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/vapourismo/knx-go/knx/cemi"
)

var (
	ErrInvalidIP           = errors.New("invalid IP address")
	ErrInvalidPort         = errors.New("invalid port")
	ErrInvalidGroupAddress = errors.New("invalid group address")
	ErrInvalidValue        = errors.New("invalid value")
)

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseBounded parses a digit-only string and checks it against max
func parseBounded(s string, max int) (int, bool) {
	if !isDigits(s) || len(s) > 5 {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > max {
		return 0, false
	}
	return n, true
}

// ValidateIP accepts exactly four dot-separated integers in [0,255]
func ValidateIP(s string) error {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 4 {
		return errors.Wrapf(ErrInvalidIP, "%q", s)
	}
	for _, p := range parts {
		if _, ok := parseBounded(p, 255); !ok {
			return errors.Wrapf(ErrInvalidIP, "%q", s)
		}
	}
	return nil
}

// ValidatePort accepts integers in [1,65535]
func ValidatePort(s string) (int, error) {
	n, ok := parseBounded(strings.TrimSpace(s), 65535)
	if !ok || n < 1 {
		return 0, errors.Wrapf(ErrInvalidPort, "%q", s)
	}
	return n, nil
}

// ParseGroupAddress accepts main/middle/sub, main/sub and free (single number) notation
func ParseGroupAddress(s string) (cemi.GroupAddr, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	bad := errors.Wrapf(ErrInvalidGroupAddress, "%q", s)

	switch len(parts) {
	case 3:
		main, ok1 := parseBounded(parts[0], 31)
		middle, ok2 := parseBounded(parts[1], 7)
		sub, ok3 := parseBounded(parts[2], 255)
		if !ok1 || !ok2 || !ok3 {
			return 0, bad
		}
		return cemi.NewGroupAddr3(uint8(main), uint8(middle), uint8(sub)), nil
	case 2:
		main, ok1 := parseBounded(parts[0], 31)
		sub, ok2 := parseBounded(parts[1], 2047)
		if !ok1 || !ok2 {
			return 0, bad
		}
		return cemi.NewGroupAddr2(uint8(main), uint16(sub)), nil
	case 1:
		n, ok := parseBounded(parts[0], 65535)
		if !ok {
			return 0, bad
		}
		return cemi.GroupAddr(n), nil
	}
	return 0, bad
}

// ParseValue turns operator input into a payload.
// on/off, true/false, 0 and 1 are switch values; 2..255 is a byte value.
func ParseValue(s string) (Value, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "on", "true":
		return Value{Kind: Binary, Raw: 1}, nil
	case "off", "false":
		return Value{Kind: Binary, Raw: 0}, nil
	}

	n, ok := parseBounded(v, 255)
	if !ok {
		return Value{}, errors.Wrapf(ErrInvalidValue, "%q", s)
	}
	if n <= 1 {
		return Value{Kind: Binary, Raw: uint8(n)}, nil
	}
	return Value{Kind: Byte, Raw: uint8(n)}, nil
}
